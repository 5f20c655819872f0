package robot

import (
	"context"
	"log/slog"
	"time"

	"github.com/teslashibe/go-guido/pkg/events"
)

// Observed wraps an Actuator and publishes an event for every issued action,
// including failed ones.
type Observed struct {
	next   Actuator
	pub    events.Publisher
	logger *slog.Logger
}

// NewObserved wraps next.
func NewObserved(next Actuator, pub events.Publisher, logger *slog.Logger) *Observed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observed{next: next, pub: pub, logger: logger.With("component", "robot.observed")}
}

// DeliverTool delegates and publishes robot.deliver.
func (o *Observed) DeliverTool(ctx context.Context, name string) error {
	err := o.next.DeliverTool(ctx, name)
	o.publish(ctx, events.KindDeliver, map[string]any{"tool": name}, err)
	return err
}

// OrganizeTools delegates and publishes robot.organize.
func (o *Observed) OrganizeTools(ctx context.Context) error {
	err := o.next.OrganizeTools(ctx)
	o.publish(ctx, events.KindOrganize, map[string]any{}, err)
	return err
}

func (o *Observed) publish(ctx context.Context, kind events.Kind, data map[string]any, err error) {
	data["ok"] = err == nil
	if err != nil {
		data["error"] = err.Error()
	}
	if perr := o.pub.Publish(context.WithoutCancel(ctx), events.New(kind, time.Now(), "", data)); perr != nil {
		o.logger.Warn("publish action event failed", "kind", kind, "error", perr)
	}
}

var _ Actuator = (*Observed)(nil)
