// Package assistant is Guido's core: the activation state machine, the command
// dispatcher, the background timers and the main listen loop that ties them
// to a transcript source, a speaker and a robot actuator.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-guido/pkg/command"
	"github.com/teslashibe/go-guido/pkg/events"
	"github.com/teslashibe/go-guido/pkg/procedure"
	"github.com/teslashibe/go-guido/pkg/robot"
	"github.com/teslashibe/go-guido/pkg/speech"
	"github.com/teslashibe/go-guido/pkg/transcript"
)

// Config holds the loop and timer settings.
type Config struct {
	DormantWindow transcript.Window
	ActiveWindow  transcript.Window

	InactivityInterval time.Duration
	InactivityTimeout  time.Duration
	OrganizeInterval   time.Duration

	StepPause       time.Duration
	CalibrateFor    time.Duration
	FarewellTimeout time.Duration

	// RetryDelay throttles the loop after a transcription service failure.
	RetryDelay time.Duration
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		DormantWindow:      transcript.DormantWindow,
		ActiveWindow:       transcript.ActiveWindow,
		InactivityInterval: DefaultInactivityInterval,
		InactivityTimeout:  DefaultInactivityTimeout,
		OrganizeInterval:   DefaultOrganizeInterval,
		StepPause:          DefaultStepPause,
		CalibrateFor:       time.Second,
		FarewellTimeout:    5 * time.Second,
		RetryDelay:         500 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.DormantWindow.Timeout <= 0 || c.ActiveWindow.Timeout <= 0 {
		return errors.New("assistant: listen timeouts must be positive")
	}
	if c.InactivityInterval <= 0 {
		return errors.New("assistant: inactivity interval must be positive")
	}
	if c.InactivityTimeout <= 0 {
		return errors.New("assistant: inactivity timeout must be positive")
	}
	if c.OrganizeInterval <= 0 {
		return errors.New("assistant: organize interval must be positive")
	}
	if c.StepPause < 0 || c.CalibrateFor < 0 || c.RetryDelay < 0 {
		return errors.New("assistant: durations must not be negative")
	}
	if c.FarewellTimeout <= 0 {
		return errors.New("assistant: farewell timeout must be positive")
	}
	return nil
}

// Deps are the collaborators of an Assistant. Source, Speaker and Actuator
// are required; everything else has a default.
type Deps struct {
	Source     transcript.Source
	Speaker    speech.Speaker
	Actuator   robot.Actuator
	Library    *procedure.Library
	Classifier *command.Classifier
	Clock      Clock
	Events     events.Publisher
	State      *State
	Messages   *Messages
	Logger     *slog.Logger
}

// Assistant listens for the wake phrase, then for commands, until its
// context is cancelled.
type Assistant struct {
	cfg        Config
	source     transcript.Source
	speaker    speech.Speaker
	classifier *command.Classifier
	clock      Clock
	state      *State
	msgs       Messages
	dispatcher *Dispatcher
	inactivity *InactivityChecker
	organizer  *AutoOrganizer
	notify     notifier
	logger     *slog.Logger
}

// New assembles an assistant.
func New(cfg Config, deps Deps) (*Assistant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Source == nil:
		return nil, errors.New("assistant: transcript source required")
	case deps.Speaker == nil:
		return nil, errors.New("assistant: speaker required")
	case deps.Actuator == nil:
		return nil, errors.New("assistant: actuator required")
	}
	if deps.Library == nil {
		deps.Library = procedure.Default()
	}
	if deps.Classifier == nil {
		deps.Classifier = command.NewClassifier(nil)
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.State == nil {
		deps.State = NewState()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	msgs := DefaultMessages()
	if deps.Messages != nil {
		msgs = *deps.Messages
	}

	logger := deps.Logger.With("component", "assistant")
	a := &Assistant{
		cfg:        cfg,
		source:     deps.Source,
		speaker:    deps.Speaker,
		classifier: deps.Classifier,
		clock:      deps.Clock,
		state:      deps.State,
		msgs:       msgs,
		notify:     notifier{speaker: deps.Speaker, pub: deps.Events, clock: deps.Clock, logger: logger},
		logger:     logger,
	}
	a.dispatcher = NewDispatcher(DispatcherConfig{
		State:     deps.State,
		Speaker:   deps.Speaker,
		Actuator:  deps.Actuator,
		Library:   deps.Library,
		Messages:  &msgs,
		Clock:     deps.Clock,
		Events:    deps.Events,
		StepPause: cfg.StepPause,
		Logger:    deps.Logger,
	})
	a.inactivity = NewInactivityChecker(deps.State, deps.Speaker, deps.Clock, deps.Events, msgs, deps.Logger)
	a.inactivity.Interval = cfg.InactivityInterval
	a.inactivity.Timeout = cfg.InactivityTimeout
	a.organizer = NewAutoOrganizer(deps.State, deps.Speaker, deps.Actuator, deps.Clock, deps.Events, msgs, deps.Logger)
	a.organizer.Interval = cfg.OrganizeInterval
	return a, nil
}

// State returns the shared activation state.
func (a *Assistant) State() *State { return a.state }

// Dispatcher returns the command dispatcher.
func (a *Assistant) Dispatcher() *Dispatcher { return a.dispatcher }

// Run blocks until ctx is cancelled. Listen and speech failures are logged and
// the loop carries on; cancellation stops the timers, deactivates, speaks the
// farewell and returns nil.
func (a *Assistant) Run(ctx context.Context) error {
	if cal, ok := a.source.(transcript.Calibrator); ok && a.cfg.CalibrateFor > 0 {
		a.logger.Info("calibrating for ambient noise", "duration", a.cfg.CalibrateFor)
		if err := cal.Calibrate(ctx, a.cfg.CalibrateFor); err != nil && ctx.Err() == nil {
			a.logger.Warn("calibration failed", "error", err)
		}
	}

	a.notify.emit(ctx, events.KindReady, "", nil)
	a.notify.say(ctx, a.msgs.Ready)

	timersCtx, cancelTimers := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(timersCtx)
	g.Go(func() error { return a.inactivity.Run(gctx) })
	g.Go(func() error { return a.organizer.Run(gctx) })

	a.logger.Info("listening", "inactivity_timeout", a.cfg.InactivityTimeout)
	for ctx.Err() == nil {
		if a.state.Active() {
			a.listenActive(ctx)
		} else {
			a.listenDormant(ctx)
		}
	}

	cancelTimers()
	if err := g.Wait(); err != nil {
		a.logger.Warn("timer stopped with error", "error", err)
	}

	session := a.state.Session()
	if a.state.Deactivate(ReasonShutdown) {
		a.notify.emit(ctx, events.KindDeactivated, session, map[string]any{"reason": string(ReasonShutdown)})
	}

	farewellCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.FarewellTimeout)
	defer cancel()
	a.notify.say(farewellCtx, a.msgs.Shutdown)
	a.notify.emit(farewellCtx, events.KindShutdown, "", nil)
	a.logger.Info("stopped")
	return nil
}

// listenDormant waits for the wake phrase. Everything else is ignored.
func (a *Assistant) listenDormant(ctx context.Context) {
	text, err := a.source.Listen(ctx, a.cfg.DormantWindow)
	if err != nil {
		a.listenFailed(ctx, command.ModeDormant, err)
		return
	}
	if text == "" {
		return
	}
	a.notify.emit(ctx, events.KindHeard, "", map[string]any{"text": text, "mode": command.ModeDormant.String()})

	if cmd := a.classifier.Classify(text, command.ModeDormant); cmd.Kind != command.Activation {
		a.logger.Debug("ignoring utterance while dormant", "text", text)
		return
	}
	if !a.state.Activate(a.clock.Now()) {
		return
	}
	session := a.state.Session()
	a.logger.Info("activated", "session", session)
	a.notify.emit(ctx, events.KindActivated, session, map[string]any{"text": text})
	a.notify.say(ctx, a.msgs.Activated)
}

// listenActive waits for one command and dispatches it.
func (a *Assistant) listenActive(ctx context.Context) {
	text, err := a.source.Listen(ctx, a.cfg.ActiveWindow)
	if err != nil {
		a.listenFailed(ctx, command.ModeActive, err)
		return
	}
	if text == "" {
		a.logger.Info("No command detected, continuing to listen...")
		return
	}
	a.notify.emit(ctx, events.KindHeard, a.state.Session(), map[string]any{"text": text, "mode": command.ModeActive.String()})

	cmd := a.classifier.Classify(text, command.ModeActive)
	out := a.dispatcher.Dispatch(ctx, cmd)
	if out.Err != nil && ctx.Err() == nil {
		a.logger.Debug("command completed with errors", "command", cmd.String(), "error", out.Err)
	}
}

func (a *Assistant) listenFailed(ctx context.Context, mode command.Mode, err error) {
	if ctx.Err() != nil {
		return
	}

	var svcErr *transcript.ServiceError
	switch {
	case errors.Is(err, transcript.ErrNoSpeech):
		if mode == command.ModeActive {
			a.logger.Info("No command detected, continuing to listen...")
		}
	case errors.Is(err, transcript.ErrUnintelligible):
		if mode == command.ModeActive {
			a.logger.Info("could not understand audio")
			a.notify.say(ctx, a.msgs.Unknown)
		} else {
			a.logger.Debug("unintelligible audio while dormant")
		}
	case errors.As(err, &svcErr):
		a.logger.Warn("transcription service failed", "service", svcErr.Service, "error", svcErr.Err)
		a.backoff(ctx)
	default:
		a.logger.Warn("listen failed", "mode", mode.String(), "error", fmt.Errorf("assistant: %w", err))
		a.backoff(ctx)
	}
}

func (a *Assistant) backoff(ctx context.Context) {
	if a.cfg.RetryDelay <= 0 {
		return
	}
	t := time.NewTimer(a.cfg.RetryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
