package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-guido/internal/config"
	"github.com/teslashibe/go-guido/pkg/assistant"
	"github.com/teslashibe/go-guido/pkg/audioio"
	"github.com/teslashibe/go-guido/pkg/command"
	"github.com/teslashibe/go-guido/pkg/events"
	"github.com/teslashibe/go-guido/pkg/journal"
	"github.com/teslashibe/go-guido/pkg/procedure"
	"github.com/teslashibe/go-guido/pkg/robot"
	"github.com/teslashibe/go-guido/pkg/speech"
	"github.com/teslashibe/go-guido/pkg/transcript"
	"github.com/teslashibe/go-guido/pkg/tts"
	"github.com/teslashibe/go-guido/pkg/web"
)

// typedQueueSize bounds utterances typed on stdin or posted to the dashboard.
const typedQueueSize = 8

type app struct {
	assistant *assistant.Assistant
	bus       *events.Bus
	journal   *journal.Journal
	forwarder *events.NATSForwarder
	web       *web.Server

	stdin   io.Reader
	queue   *transcript.Queue
	closers []io.Closer
	logger  *slog.Logger
}

// wire builds every component named by cfg. On error, anything already
// opened is closed.
func wire(ctx context.Context, cfg config.Config, stdin io.Reader, stdout io.Writer, logger *slog.Logger) (_ *app, err error) {
	a := &app{
		bus:    events.NewBus(cfg.Events.Buffer, logger),
		stdin:  stdin,
		logger: logger.With("component", "main"),
	}
	a.closers = append(a.closers, a.bus)
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	state := assistant.NewState()
	library := procedure.Default()
	classifier := command.NewClassifier(nil)

	if cfg.Journal.Path != "" {
		if a.journal, err = journal.Open(cfg.Journal.Path, logger); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.journal)
	}
	if cfg.Events.NATSURL != "" {
		if a.forwarder, err = events.DialNATS(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, logger); err != nil {
			return nil, err
		}
	}

	actuator, err := wireRobot(cfg.Robot, logger)
	if err != nil {
		return nil, err
	}

	speaker, err := a.wireSpeech(cfg, stdout, logger)
	if err != nil {
		return nil, err
	}

	source, err := a.wireTranscript(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a.assistant, err = assistant.New(cfg.Assistant(), assistant.Deps{
		Source:     source,
		Speaker:    speech.NewObserved(speaker, a.bus, state.Session, logger),
		Actuator:   robot.NewObserved(actuator, a.bus, logger),
		Library:    library,
		Classifier: classifier,
		Events:     a.bus,
		State:      state,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Web.Enabled {
		a.web = web.NewServer(cfg.Web.Config, web.Deps{
			State:      state,
			Library:    library,
			Classifier: classifier,
			Queue:      a.queue,
			Journal:    a.journal,
			Logger:     logger,
		})
	}
	return a, nil
}

func wireRobot(cfg config.RobotConfig, logger *slog.Logger) (robot.Actuator, error) {
	switch cfg.Backend {
	case config.RobotHTTP:
		return robot.NewHTTPActuator(cfg.URL, cfg.Timeout, logger), nil
	case config.RobotLog:
		return robot.NewLogActuator(logger), nil
	}
	return nil, fmt.Errorf("unknown robot backend %q", cfg.Backend)
}

func (a *app) wireSpeech(cfg config.Config, stdout io.Writer, logger *slog.Logger) (speech.Speaker, error) {
	console := speech.NewConsole(stdout, logger)
	if cfg.Speech.Backend == config.SpeechConsole {
		return console, nil
	}

	// The selected provider comes first; the other one, when a key is
	// configured for it, becomes the fallback.
	var providers []tts.Provider
	addOpenAI := func() error {
		if cfg.Speech.OpenAIKey == "" {
			return nil
		}
		p, err := tts.NewOpenAI(providerOptions(cfg.Speech, config.SpeechOpenAI,
			tts.WithAPIKey(cfg.Speech.OpenAIKey),
			tts.WithLogger(logger),
		)...)
		if err != nil {
			return err
		}
		providers = append(providers, p)
		return nil
	}
	addElevenLabs := func() error {
		if cfg.Speech.ElevenLabsKey == "" {
			return nil
		}
		p, err := tts.NewElevenLabs(providerOptions(cfg.Speech, config.SpeechElevenLabs,
			tts.WithAPIKey(cfg.Speech.ElevenLabsKey),
			tts.WithSampleRate(cfg.Audio.SampleRate),
			tts.WithLogger(logger),
		)...)
		if err != nil {
			return err
		}
		providers = append(providers, p)
		return nil
	}

	order := []func() error{addOpenAI, addElevenLabs}
	if cfg.Speech.Backend == config.SpeechElevenLabs {
		order = []func() error{addElevenLabs, addOpenAI}
	}
	for _, add := range order {
		if err := add(); err != nil {
			return nil, err
		}
	}

	chain, err := tts.NewChain(logger, providers...)
	if err != nil {
		return nil, err
	}
	sink, err := audioio.NewSink(cfg.Audio, logger)
	if err != nil {
		chain.Close()
		return nil, err
	}
	voice := speech.NewVoice(chain, sink, console, logger)
	a.closers = append(a.closers, voice)
	return voice, nil
}

// providerOptions adds the configured voice and model when they were meant
// for backend; a fallback provider keeps its own defaults.
func providerOptions(cfg config.SpeechConfig, backend string, opts ...tts.Option) []tts.Option {
	voice := ""
	if cfg.Backend == backend {
		voice = cfg.Voice
		if cfg.Model != "" {
			opts = append(opts, tts.WithModel(cfg.Model))
		}
	}
	if voice == "" && backend == config.SpeechElevenLabs {
		voice = "josh"
	}
	if voice != "" {
		opts = append(opts, tts.WithVoice(voice))
	}
	return opts
}

func (a *app) wireTranscript(ctx context.Context, cfg config.Config, logger *slog.Logger) (transcript.Source, error) {
	var sources []transcript.Source

	if cfg.Transcript.Backend != config.TranscriptConsole {
		mic, err := audioio.NewSource(cfg.Audio, logger)
		if err != nil {
			return nil, err
		}

		var src interface {
			transcript.Source
			io.Closer
		}
		switch cfg.Transcript.Backend {
		case config.TranscriptVosk:
			src, err = transcript.NewVosk(transcript.VoskConfig{URL: cfg.Transcript.VoskURL}, mic, logger)
		case config.TranscriptGoogle:
			src, err = transcript.NewGoogle(ctx, transcript.GoogleConfig{
				APIKey:      cfg.Transcript.GoogleAPIKey,
				Language:    cfg.Transcript.Language,
				PhraseHints: phraseHints(cfg.Transcript.PhraseHints),
			}, mic, logger)
		default:
			err = fmt.Errorf("unknown transcript backend %q", cfg.Transcript.Backend)
		}
		if err != nil {
			mic.Close()
			return nil, err
		}
		a.closers = append(a.closers, src)
		sources = append(sources, src)
	}

	if cfg.Transcript.Backend == config.TranscriptConsole || cfg.Transcript.Typed || cfg.Web.Enabled {
		a.queue = transcript.NewQueue(typedQueueSize)
		sources = append(sources, a.queue)
	}
	return transcript.Merge(sources...), nil
}

// phraseHints biases recognition toward the wake phrase and the tool names
// unless the configuration lists its own.
func phraseHints(configured []string) []string {
	if len(configured) > 0 {
		return configured
	}
	hints := append([]string{}, command.ActivationPhrases...)
	return append(hints, command.DefaultTools...)
}

// run blocks until ctx is cancelled. Observers subscribe before the
// assistant starts and outlive it, so the ready line, the farewell and the
// shutdown events are all recorded.
func (a *app) run(ctx context.Context) error {
	defer a.close()

	observers, stopObservers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopObservers()

	var consumers []func() error
	observe := func(consume func(context.Context, <-chan events.Event) error) error {
		sub, err := a.bus.Subscribe(observers)
		if err != nil {
			return err
		}
		consumers = append(consumers, func() error { return consume(observers, sub) })
		return nil
	}
	if a.journal != nil {
		if err := observe(a.journal.Consume); err != nil {
			return err
		}
	}
	if a.forwarder != nil {
		if err := observe(a.forwarder.Consume); err != nil {
			return err
		}
	}
	if a.web != nil {
		if err := observe(a.web.Serve); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, consume := range consumers {
		g.Go(consume)
	}
	g.Go(func() error {
		defer stopObservers()
		return a.assistant.Run(gctx)
	})

	// Reading stdin blocks in the scanner and cannot be interrupted, so it
	// is not part of the group.
	if a.queue != nil && a.stdin != nil {
		go func() {
			if err := a.queue.ReadLines(gctx, a.stdin); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn("stdin reader stopped", "error", err)
			}
		}()
	}

	return g.Wait()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
