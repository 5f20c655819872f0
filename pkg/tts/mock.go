package tts

import (
	"context"
	"sync"
)

// Mock implements Provider for testing.
type Mock struct {
	// SynthesizeFunc overrides Synthesize. If nil, returns 10ms of silence
	// per character at 16kHz.
	SynthesizeFunc func(ctx context.Context, text string) (*AudioResult, error)

	// HealthFunc overrides Health. If nil, the mock is healthy.
	HealthFunc func(ctx context.Context) error

	mu     sync.Mutex
	texts  []string
	closed bool
}

// NewMock creates a new mock provider.
func NewMock() *Mock {
	return &Mock{}
}

// Synthesize records text and returns SynthesizeFunc's result.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	fn := m.SynthesizeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	if text == "" {
		return nil, wrap("mock", ErrEmptyText)
	}

	const rate = 16000
	audio := make([]byte, len(text)*rate/100*2)
	return &AudioResult{
		Audio:      audio,
		SampleRate: rate,
		Duration:   pcmDuration(len(audio), rate),
		CharCount:  len(text),
		Provider:   "mock",
	}, nil
}

// Health calls HealthFunc.
func (m *Mock) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Texts returns every text passed to Synthesize.
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Provider = (*Mock)(nil)
