package robot

import (
	"context"
	"log/slog"
)

// LogActuator only logs the actions it is asked to perform. It stands in for
// the arm when none is connected.
type LogActuator struct {
	logger *slog.Logger
}

// NewLogActuator creates a logging actuator.
func NewLogActuator(logger *slog.Logger) *LogActuator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogActuator{logger: logger.With("component", "robot.log")}
}

// DeliverTool logs the delivery.
func (a *LogActuator) DeliverTool(ctx context.Context, name string) error {
	if name == "" {
		return ErrNoTool
	}
	a.logger.Info("[ACTION] delivering tool", "tool", name)
	return nil
}

// OrganizeTools logs the organize action.
func (a *LogActuator) OrganizeTools(ctx context.Context) error {
	a.logger.Info("[ACTION] organizing tools by class")
	return nil
}

var _ Actuator = (*LogActuator)(nil)
