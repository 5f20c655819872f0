package assistant

import (
	"context"
	"log/slog"
	"time"

	"github.com/teslashibe/go-guido/pkg/command"
	"github.com/teslashibe/go-guido/pkg/events"
	"github.com/teslashibe/go-guido/pkg/robot"
	"github.com/teslashibe/go-guido/pkg/speech"
)

const (
	DefaultInactivityInterval = 30 * time.Second
	DefaultInactivityTimeout  = 15 * time.Minute
	DefaultOrganizeInterval   = 600 * time.Second
)

// Periodic runs Fn every Interval until ctx is cancelled.
type Periodic struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context)
}

// Run blocks until ctx is cancelled. The first call to Fn happens one
// Interval after Run starts.
func (p Periodic) Run(ctx context.Context) error {
	if p.Interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Fn(ctx)
		}
	}
}

// InactivityChecker puts the assistant to sleep after a period without commands.
type InactivityChecker struct {
	Interval time.Duration
	Timeout  time.Duration

	state  *State
	clock  Clock
	msgs   Messages
	notify notifier
	logger *slog.Logger
}

// NewInactivityChecker creates a checker with the default interval and timeout.
func NewInactivityChecker(state *State, speaker speech.Speaker, clock Clock, pub events.Publisher, msgs Messages, logger *slog.Logger) *InactivityChecker {
	if logger == nil {
		logger = slog.Default()
	}
	if pub == nil {
		pub = events.Nop{}
	}
	logger = logger.With("component", "assistant.inactivity")
	return &InactivityChecker{
		Interval: DefaultInactivityInterval,
		Timeout:  DefaultInactivityTimeout,
		state:    state,
		clock:    clock,
		msgs:     msgs,
		notify:   notifier{speaker: speaker, pub: pub, clock: clock, logger: logger},
		logger:   logger,
	}
}

// Check expires the session if it has been idle longer than Timeout. It
// returns true only when this call made the transition.
func (c *InactivityChecker) Check(ctx context.Context) bool {
	session := c.state.Session()
	if !c.state.ExpireIfIdle(c.clock.Now(), c.Timeout) {
		return false
	}
	c.logger.Info("deactivated due to inactivity", "timeout", c.Timeout)
	c.notify.emit(ctx, events.KindDeactivated, session, map[string]any{"reason": string(ReasonInactivity)})
	c.notify.say(ctx, c.msgs.TimedOut)
	return true
}

// Run checks every Interval until ctx is cancelled.
func (c *InactivityChecker) Run(ctx context.Context) error {
	return Periodic{
		Name:     "inactivity",
		Interval: c.Interval,
		Fn:       func(ctx context.Context) { c.Check(ctx) },
	}.Run(ctx)
}

// AutoOrganizer periodically asks the robot to tidy its tools while Active.
// It never changes the activation state.
type AutoOrganizer struct {
	Interval time.Duration

	state    *State
	actuator robot.Actuator
	msgs     Messages
	notify   notifier
	logger   *slog.Logger
}

// NewAutoOrganizer creates an organizer with the default interval.
func NewAutoOrganizer(state *State, speaker speech.Speaker, actuator robot.Actuator, clock Clock, pub events.Publisher, msgs Messages, logger *slog.Logger) *AutoOrganizer {
	if logger == nil {
		logger = slog.Default()
	}
	if pub == nil {
		pub = events.Nop{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	logger = logger.With("component", "assistant.organizer")
	return &AutoOrganizer{
		Interval: DefaultOrganizeInterval,
		state:    state,
		actuator: actuator,
		msgs:     msgs,
		notify:   notifier{speaker: speaker, pub: pub, clock: clock, logger: logger},
		logger:   logger,
	}
}

// Check organizes the tools when Active. It returns false while Dormant.
func (o *AutoOrganizer) Check(ctx context.Context) bool {
	if !o.state.Active() {
		return false
	}
	o.logger.Info("periodic tool organization")
	o.notify.emit(ctx, events.KindCommand, o.state.Session(), map[string]any{
		"kind":    command.Organize.String(),
		"trigger": "timer",
	})
	o.notify.say(ctx, o.msgs.Organizing)
	if err := o.actuator.OrganizeTools(ctx); err != nil {
		o.logger.Error("organize failed", "error", err)
	}
	return true
}

// Run checks every Interval until ctx is cancelled.
func (o *AutoOrganizer) Run(ctx context.Context) error {
	return Periodic{
		Name:     "organizer",
		Interval: o.Interval,
		Fn:       func(ctx context.Context) { o.Check(ctx) },
	}.Run(ctx)
}
