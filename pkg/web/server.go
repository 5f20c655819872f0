// Package web serves Guido's dashboard API: assistant status, the tool and
// procedure catalogs, typed utterances and a live event stream.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-guido/pkg/assistant"
	"github.com/teslashibe/go-guido/pkg/command"
	"github.com/teslashibe/go-guido/pkg/events"
	"github.com/teslashibe/go-guido/pkg/hub"
	"github.com/teslashibe/go-guido/pkg/journal"
	"github.com/teslashibe/go-guido/pkg/procedure"
	"github.com/teslashibe/go-guido/pkg/transcript"
)

// Config configures the dashboard server.
type Config struct {
	Addr string `mapstructure:"addr"`

	// UtteranceRate is the per-client limit on POST /api/utterance, in
	// requests per second, with UtteranceBurst allowed at once.
	UtteranceRate  float64 `mapstructure:"utterance_rate"`
	UtteranceBurst int     `mapstructure:"utterance_burst"`

	// RecentTTL is how long events stay in the recent buffer.
	RecentTTL   time.Duration `mapstructure:"recent_ttl"`
	RecentLimit int           `mapstructure:"recent_limit"`
}

// DefaultConfig returns a server on :8080.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		UtteranceRate:  1,
		UtteranceBurst: 3,
		RecentTTL:      10 * time.Minute,
		RecentLimit:    50,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("web: addr required")
	}
	if c.UtteranceRate <= 0 || c.UtteranceBurst <= 0 {
		return errors.New("web: utterance rate and burst must be positive")
	}
	if c.RecentTTL <= 0 || c.RecentLimit <= 0 {
		return errors.New("web: recent ttl and limit must be positive")
	}
	return nil
}

// Deps are the assistant parts the dashboard reads. Only State is required.
type Deps struct {
	State      *assistant.State
	Library    *procedure.Library
	Classifier *command.Classifier
	Queue      *transcript.Queue
	Journal    *journal.Journal
	Logger     *slog.Logger
}

// Server is the dashboard server
type Server struct {
	cfg  Config
	deps Deps
	app  *fiber.App
	hub  *hub.Hub

	recent   *cache.Cache
	seq      atomic.Uint64
	limiters *limiters

	logger *slog.Logger
}

type recentEntry struct {
	seq   uint64
	event events.Event
}

// NewServer creates the server and its routes.
func NewServer(cfg Config, deps Deps) *Server {
	if deps.Library == nil {
		deps.Library = procedure.Default()
	}
	if deps.Classifier == nil {
		deps.Classifier = command.NewClassifier(nil)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		deps:     deps,
		hub:      hub.New("events", deps.Logger),
		recent:   cache.New(cfg.RecentTTL, cfg.RecentTTL),
		limiters: newLimiters(cfg.UtteranceRate, cfg.UtteranceBurst),
		logger:   deps.Logger.With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Guido Dashboard",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/status", s.handleStatus)
	api.Get("/tools", s.handleTools)
	api.Get("/procedures", s.handleProcedures)
	api.Get("/procedures/:key", s.handleProcedure)
	api.Post("/classify", s.handleClassify)
	api.Post("/utterance", s.limiters.middleware(s.logger), s.handleUtterance)
	api.Get("/events", s.handleEvents)
	api.Get("/sessions/:id", s.handleSession)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Hub returns the live event hub.
func (s *Server) Hub() *hub.Hub { return s.hub }

// Observe adds e to the recent buffer and broadcasts it to websocket clients.
func (s *Server) Observe(e events.Event) {
	s.recent.Set(e.ID, recentEntry{seq: s.seq.Add(1), event: e}, cache.DefaultExpiration)
	if err := s.hub.BroadcastJSON(e); err != nil {
		s.logger.Warn("broadcast failed", "kind", e.Kind, "error", err)
	}
}

// Recent returns up to limit buffered events, oldest first.
func (s *Server) Recent(limit int) []events.Event {
	items := s.recent.Items()
	entries := make([]recentEntry, 0, len(items))
	for _, it := range items {
		if entry, ok := it.Object.(recentEntry); ok {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	out := make([]events.Event, len(entries))
	for i, entry := range entries {
		out[i] = entry.event
	}
	return out
}

// Run serves until ctx is cancelled. Events from bus, when set, feed the
// recent buffer and the websocket stream.
func (s *Server) Run(ctx context.Context, bus *events.Bus) error {
	var sub <-chan events.Event
	if bus != nil {
		var err error
		if sub, err = bus.Subscribe(ctx); err != nil {
			return err
		}
	}
	return s.Serve(ctx, sub)
}

// Serve is Run with an existing subscription. sub may be nil; when set,
// Serve returns only after it closes.
func (s *Server) Serve(ctx context.Context, sub <-chan events.Event) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.hub.Run(gctx) })

	if sub != nil {
		g.Go(func() error {
			for e := range sub {
				s.Observe(e)
			}
			return nil
		})
	}

	g.Go(func() error {
		s.logger.Info("dashboard listening", "addr", s.cfg.Addr)
		if err := s.app.Listen(s.cfg.Addr); err != nil {
			return fmt.Errorf("web: listen %s: %w", s.cfg.Addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return s.app.ShutdownWithTimeout(5 * time.Second)
	})

	return g.Wait()
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
