package speech

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-guido/pkg/audioio"
	"github.com/teslashibe/go-guido/pkg/tts"
)

// Voice synthesizes text with a TTS provider and plays it on an audio sink.
// Utterances never overlap: a second Speak waits for the first to finish.
type Voice struct {
	provider tts.Provider
	sink     audioio.Sink
	fallback Speaker
	logger   *slog.Logger

	mu sync.Mutex
}

// NewVoice creates a Voice. When synthesis or playback fails the text is
// handed to fallback (if not nil) so the user still sees it.
func NewVoice(provider tts.Provider, sink audioio.Sink, fallback Speaker, logger *slog.Logger) *Voice {
	if logger == nil {
		logger = slog.Default()
	}
	return &Voice{
		provider: provider,
		sink:     sink,
		fallback: fallback,
		logger:   logger.With("component", "speech.voice"),
	}
}

// Speak synthesizes and plays text, returning once playback has drained.
func (v *Voice) Speak(ctx context.Context, text string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	err := v.play(ctx, text)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	v.logger.Warn("voice output failed", "text", text, "error", err)
	if v.fallback != nil {
		return v.fallback.Speak(ctx, text)
	}
	return err
}

func (v *Voice) play(ctx context.Context, text string) error {
	result, err := v.provider.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("speech: synthesize: %w", err)
	}

	chunk := audioio.NewChunk(result.Audio, result.SampleRate, 1)
	if err := v.sink.Write(ctx, chunk); err != nil {
		return fmt.Errorf("speech: play: %w", err)
	}
	if err := v.sink.Flush(ctx); err != nil {
		return fmt.Errorf("speech: drain: %w", err)
	}

	v.logger.Debug("spoke", "text", text, "duration", result.Duration, "provider", result.Provider)
	return nil
}

// Close releases the provider and the sink.
func (v *Voice) Close() error {
	perr := v.provider.Close()
	serr := v.sink.Close()
	if perr != nil {
		return perr
	}
	return serr
}

var _ Speaker = (*Voice)(nil)
