// Package robot issues physical actions to the tool-delivery arm.
//
// Small interfaces are composed as needed: the dispatcher needs both
// deliveries and organizing, the auto-organizer only the latter.
package robot

import (
	"context"
	"errors"
	"fmt"
)

// ToolDeliverer hands a named tool to the user.
type ToolDeliverer interface {
	DeliverTool(ctx context.Context, name string) error
}

// Organizer sorts the tools on the bench by class.
type Organizer interface {
	OrganizeTools(ctx context.Context) error
}

// Actuator is the composite interface the assistant depends on.
type Actuator interface {
	ToolDeliverer
	Organizer
}

// ErrNoTool is returned when a delivery names no tool.
var ErrNoTool = errors.New("robot: tool name required")

// ActuationError reports an action the robot did not carry out.
type ActuationError struct {
	Action string
	Tool   string
	Status int
	Err    error
}

func (e *ActuationError) Error() string {
	target := e.Action
	if e.Tool != "" {
		target = fmt.Sprintf("%s %q", e.Action, e.Tool)
	}
	if e.Err != nil {
		return fmt.Sprintf("robot: %s failed: %v", target, e.Err)
	}
	return fmt.Sprintf("robot: %s rejected with status %d", target, e.Status)
}

func (e *ActuationError) Unwrap() error { return e.Err }
