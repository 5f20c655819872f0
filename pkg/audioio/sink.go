package audioio

import (
	"context"
	"io"
)

// Sink plays audio to a speaker.
type Sink interface {
	// Start opens the output device.
	Start(ctx context.Context) error

	// Stop closes the output device. It is safe to call Stop multiple times.
	Stop() error

	// Write queues an audio chunk for playback. It may block while the
	// device buffer is full.
	Write(ctx context.Context, chunk AudioChunk) error

	// Flush waits for all queued audio to be played.
	Flush(ctx context.Context) error

	// Config returns the current audio configuration.
	Config() Config

	// Name returns the backend name.
	Name() string

	io.Closer
}
