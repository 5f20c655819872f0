package assistant

import (
	"context"
	"log/slog"
	"time"

	"github.com/teslashibe/go-guido/pkg/command"
	"github.com/teslashibe/go-guido/pkg/events"
	"github.com/teslashibe/go-guido/pkg/procedure"
	"github.com/teslashibe/go-guido/pkg/robot"
	"github.com/teslashibe/go-guido/pkg/speech"
)

// DefaultStepPause separates spoken procedure steps.
const DefaultStepPause = time.Second

// Outcome describes what Dispatch did with a command.
type Outcome struct {
	Command command.Command

	// Asleep is true when the command arrived after the assistant had gone
	// Dormant and was answered with the asleep notice instead.
	Asleep bool

	// Deactivated is true when the command put the assistant to sleep.
	Deactivated bool

	// Steps is the number of procedure steps spoken.
	Steps int

	// Err is the first speaker or actuator failure, already logged.
	Err error
}

// Dispatcher runs the handler for a classified command.
type Dispatcher struct {
	state     *State
	speaker   speech.Speaker
	actuator  robot.Actuator
	library   *procedure.Library
	msgs      Messages
	clock     Clock
	stepPause time.Duration
	notify    notifier
	logger    *slog.Logger
}

// DispatcherConfig collects the collaborators of a Dispatcher.
type DispatcherConfig struct {
	State     *State
	Speaker   speech.Speaker
	Actuator  robot.Actuator
	Library   *procedure.Library
	Messages  *Messages
	Clock     Clock
	Events    events.Publisher
	StepPause time.Duration
	Logger    *slog.Logger
}

// NewDispatcher creates a dispatcher. State, Speaker and Actuator are required.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Library == nil {
		cfg.Library = procedure.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Events == nil {
		cfg.Events = events.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	msgs := DefaultMessages()
	if cfg.Messages != nil {
		msgs = *cfg.Messages
	}
	if cfg.StepPause < 0 {
		cfg.StepPause = 0
	}
	logger := cfg.Logger.With("component", "assistant.dispatch")
	return &Dispatcher{
		state:     cfg.State,
		speaker:   cfg.Speaker,
		actuator:  cfg.Actuator,
		library:   cfg.Library,
		msgs:      msgs,
		clock:     cfg.Clock,
		stepPause: cfg.StepPause,
		notify:    notifier{speaker: cfg.Speaker, pub: cfg.Events, clock: cfg.Clock, logger: logger},
		logger:    logger,
	}
}

// Dispatch handles one command heard while Active. Activity is refreshed
// before the handler runs; a command that lost the race with the inactivity
// checker is answered with the asleep notice. Unknown commands do not count
// as activity. Failures are logged and reported in the Outcome, never fatal.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd command.Command) Outcome {
	out := Outcome{Command: cmd}

	if cmd.Kind == command.Unknown && cmd.Utterance == "" {
		return out
	}

	awake := d.state.Active()
	if cmd.Kind != command.Unknown {
		awake = d.state.Refresh(d.clock.Now())
	}
	session := d.state.Session()
	if !awake {
		d.logger.Info("command arrived after deactivation", "command", cmd.String())
		out.Asleep = true
		out.Err = d.speak(ctx, d.msgs.Asleep)
		return out
	}

	d.logger.Info("dispatching command", "command", cmd.String(), "session", session)
	d.notify.emit(ctx, events.KindCommand, session, map[string]any{
		"kind":      cmd.Kind.String(),
		"tool":      cmd.Tool,
		"topic":     cmd.Topic,
		"utterance": cmd.Utterance,
	})

	switch cmd.Kind {
	case command.ToolRequest:
		out.Err = d.deliver(ctx, cmd.Tool)
	case command.Guidance:
		out.Steps, out.Err = d.guide(ctx, cmd.Topic)
	case command.Time:
		out.Err = d.speak(ctx, d.msgs.Time(d.clock.Now()))
	case command.Deactivate:
		if d.state.Deactivate(ReasonCommand) {
			out.Deactivated = true
			d.notify.emit(ctx, events.KindDeactivated, session, map[string]any{"reason": string(ReasonCommand)})
		}
		out.Err = d.speak(ctx, d.msgs.Deactivated)
	case command.Organize:
		out.Err = d.organize(ctx)
	default:
		out.Err = d.speak(ctx, d.msgs.Unknown)
	}
	return out
}

func (d *Dispatcher) speak(ctx context.Context, text string) error {
	err := d.speaker.Speak(ctx, text)
	if err != nil && ctx.Err() == nil {
		d.logger.Warn("speech failed", "text", text, "error", err)
	}
	return err
}

func (d *Dispatcher) deliver(ctx context.Context, tool string) error {
	if tool == "" {
		return d.speak(ctx, d.msgs.MissingTool)
	}
	spoken := d.speak(ctx, d.msgs.Deliver(tool))
	if err := d.actuator.DeliverTool(ctx, tool); err != nil {
		d.logger.Error("tool delivery failed", "tool", tool, "error", err)
		return err
	}
	d.logger.Info("tool delivery requested", "tool", tool)
	return spoken
}

func (d *Dispatcher) organize(ctx context.Context) error {
	spoken := d.speak(ctx, d.msgs.Organizing)
	if err := d.actuator.OrganizeTools(ctx); err != nil {
		d.logger.Error("organize failed", "error", err)
		return err
	}
	return spoken
}

// guide recites the procedure selected by topic and returns the number of
// steps spoken.
func (d *Dispatcher) guide(ctx context.Context, topic string) (int, error) {
	match := d.library.Lookup(topic)
	switch {
	case match.Generic:
		return 0, d.speakAll(ctx, d.msgs.GuidanceMenu)
	case !match.Found():
		return 0, d.speak(ctx, d.msgs.NoProcedure)
	}

	p := match.Procedure
	d.logger.Info("reciting procedure", "procedure", p.Key, "steps", len(p.Steps))
	firstErr := d.speakAll(ctx, d.msgs.Recital(p))
	if firstErr != nil && ctx.Err() != nil {
		return 0, firstErr
	}

	for i, step := range p.Steps {
		if i > 0 {
			if !d.pause(ctx) {
				return i, ctx.Err()
			}
		}
		if !d.state.Active() {
			d.logger.Info("procedure interrupted by deactivation", "procedure", p.Key, "step", i+1)
			return i, firstErr
		}
		if err := d.speak(ctx, d.msgs.Step(i, step)); err != nil {
			if ctx.Err() != nil {
				return i, err
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return len(p.Steps), firstErr
}

func (d *Dispatcher) speakAll(ctx context.Context, lines []string) error {
	var firstErr error
	for _, line := range lines {
		if err := d.speak(ctx, line); err != nil {
			if ctx.Err() != nil {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// pause waits between steps. It returns false when ctx is cancelled.
func (d *Dispatcher) pause(ctx context.Context) bool {
	if d.stepPause <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d.stepPause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
