// Package speech is Guido's voice: everything the assistant says goes
// through a Speaker.
package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Speaker says text out loud. Speak blocks until the text has been spoken,
// which is what paces guidance steps. Implementations are safe for
// concurrent use; the main loop and the background timers share one.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Console prints utterances instead of playing audio.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
	logger *slog.Logger
}

// NewConsole creates a speaker writing "Guido: <text>" lines to w.
func NewConsole(w io.Writer, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{
		w:      w,
		prefix: "Guido: ",
		logger: logger.With("component", "speech.console"),
	}
}

// Speak writes one line.
func (c *Console) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("speaking", "text", text)
	if _, err := fmt.Fprintln(c.w, c.prefix+text); err != nil {
		return fmt.Errorf("speech: console write: %w", err)
	}
	return nil
}

var _ Speaker = (*Console)(nil)
