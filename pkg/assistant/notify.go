package assistant

import (
	"context"
	"log/slog"

	"github.com/teslashibe/go-guido/pkg/events"
	"github.com/teslashibe/go-guido/pkg/speech"
)

// notifier speaks and publishes on behalf of the loop, dispatcher and timers.
// Failures are logged and never returned.
type notifier struct {
	speaker speech.Speaker
	pub     events.Publisher
	clock   Clock
	logger  *slog.Logger
}

func (n notifier) say(ctx context.Context, text string) {
	if err := n.speaker.Speak(ctx, text); err != nil && ctx.Err() == nil {
		n.logger.Warn("speech failed", "text", text, "error", err)
	}
}

func (n notifier) emit(ctx context.Context, kind events.Kind, session string, data map[string]any) {
	e := events.New(kind, n.clock.Now(), session, data)
	if err := n.pub.Publish(context.WithoutCancel(ctx), e); err != nil {
		n.logger.Warn("publish failed", "kind", kind, "error", err)
	}
}
