package audioio

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// MockSource is a scripted audio source for tests. Chunks queued with Feed
// are returned by Read in order; Read blocks when the queue is empty.
type MockSource struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	queue   []AudioChunk
	wake    chan struct{}
	starts  int
}

// NewMockSource creates a new mock audio source.
func NewMockSource(cfg Config, logger *slog.Logger) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockSource{
		cfg:    cfg,
		logger: logger,
		wake:   make(chan struct{}),
	}
}

// Feed queues chunks for Read.
func (m *MockSource) Feed(chunks ...AudioChunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, chunks...)
	m.signalLocked()
}

// FeedSilence queues n buffers of silence.
func (m *MockSource) FeedSilence(n int) {
	m.Feed(m.tone(n, 0)...)
}

// FeedTone queues n buffers of a constant non-zero level, which energy
// based phrase detection treats as speech.
func (m *MockSource) FeedTone(n int, level int16) {
	m.Feed(m.tone(n, level)...)
}

func (m *MockSource) tone(n int, level int16) []AudioChunk {
	chunks := make([]AudioChunk, n)
	for i := range chunks {
		samples := make([]int16, m.cfg.BufferSize()*m.cfg.Channels)
		for j := range samples {
			samples[j] = level
		}
		chunks[i] = AudioChunk{Samples: samples, SampleRate: m.cfg.SampleRate, Channels: m.cfg.Channels}
	}
	return chunks
}

func (m *MockSource) signalLocked() {
	close(m.wake)
	m.wake = make(chan struct{})
}

// Start marks the source as running.
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if !m.running {
		m.running = true
		m.starts++
	}
	return nil
}

// Stop marks the source as stopped and wakes blocked readers.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.running = false
		m.signalLocked()
	}
	return nil
}

// Read returns the next queued chunk.
func (m *MockSource) Read(ctx context.Context) (AudioChunk, error) {
	for {
		m.mu.Lock()
		if !m.running {
			m.mu.Unlock()
			return AudioChunk{}, io.EOF
		}
		if len(m.queue) > 0 {
			chunk := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return chunk, nil
		}
		wake := m.wake
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return AudioChunk{}, ctx.Err()
		case <-wake:
		}
	}
}

// Pending returns the number of queued chunks.
func (m *MockSource) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Starts returns how many times the source went from stopped to running.
func (m *MockSource) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// Config returns the audio configuration.
func (m *MockSource) Config() Config { return m.cfg }

// Name returns "mock".
func (m *MockSource) Name() string { return "mock" }

// Close stops the source permanently.
func (m *MockSource) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.Stop()
}

var _ Source = (*MockSource)(nil)

// MockSink records everything written to it.
type MockSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	written []AudioChunk
	flushes int
}

// NewMockSink creates a new mock audio sink.
func NewMockSink(cfg Config, logger *slog.Logger) *MockSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockSink{cfg: cfg, logger: logger}
}

// Start begins accepting audio.
func (m *MockSink) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return io.ErrClosedPipe
	}
	m.running = true
	return nil
}

// Stop halts audio acceptance.
func (m *MockSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

// Write records a chunk. Like the ALSA sink it starts lazily.
func (m *MockSink) Write(ctx context.Context, chunk AudioChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return io.ErrClosedPipe
	}
	m.running = true
	m.written = append(m.written, ResampleChunk(chunk, m.cfg.SampleRate))
	return nil
}

// Flush counts the call.
func (m *MockSink) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return ctx.Err()
}

// Written returns a copy of the recorded chunks.
func (m *MockSink) Written() []AudioChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AudioChunk(nil), m.written...)
}

// Flushes returns the number of Flush calls.
func (m *MockSink) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}

// Config returns the audio configuration.
func (m *MockSink) Config() Config { return m.cfg }

// Name returns "mock".
func (m *MockSink) Name() string { return "mock" }

// Close releases the sink.
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.running = false
	return nil
}

var _ Sink = (*MockSink)(nil)
