package speech

import (
	"context"
	"log/slog"
	"time"

	"github.com/teslashibe/go-guido/pkg/events"
)

// Observed wraps a Speaker and publishes a speech.spoken event for every
// utterance that was delivered.
type Observed struct {
	next    Speaker
	pub     events.Publisher
	session func() string
	logger  *slog.Logger
}

// NewObserved wraps next. session, if not nil, supplies the current session id.
func NewObserved(next Speaker, pub events.Publisher, session func() string, logger *slog.Logger) *Observed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observed{
		next:    next,
		pub:     pub,
		session: session,
		logger:  logger.With("component", "speech.observed"),
	}
}

// Speak delegates to the wrapped speaker, then publishes.
func (o *Observed) Speak(ctx context.Context, text string) error {
	if err := o.next.Speak(ctx, text); err != nil {
		return err
	}

	var session string
	if o.session != nil {
		session = o.session()
	}
	e := events.New(events.KindSpoken, time.Now(), session, map[string]any{"text": text})
	if err := o.pub.Publish(context.WithoutCancel(ctx), e); err != nil {
		o.logger.Warn("publish spoken event failed", "error", err)
	}
	return nil
}

var _ Speaker = (*Observed)(nil)
