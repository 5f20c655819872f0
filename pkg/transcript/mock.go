package transcript

import (
	"context"
	"sync"
	"time"
)

// Result is one scripted Listen outcome.
type Result struct {
	Text string
	Err  error
}

// Mock is a scripted Source for tests. It returns queued results in order and,
// once the script is exhausted, blocks until ctx is cancelled.
type Mock struct {
	mu         sync.Mutex
	script     []Result
	windows    []Window
	calibrated time.Duration
	wake       chan struct{}
	drained    chan struct{}
}

// NewMock creates a mock that will return results in order.
func NewMock(results ...Result) *Mock {
	m := &Mock{
		wake:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	m.script = append(m.script, results...)
	if len(m.script) == 0 {
		close(m.drained)
	}
	return m
}

// Say appends utterances to the script.
func (m *Mock) Say(texts ...string) {
	for _, t := range texts {
		m.Add(Result{Text: t})
	}
}

// Add appends a result to the script.
func (m *Mock) Add(r Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, r)
	close(m.wake)
	m.wake = make(chan struct{})
}

// Listen returns the next scripted result.
func (m *Mock) Listen(ctx context.Context, w Window) (string, error) {
	m.mu.Lock()
	m.windows = append(m.windows, w)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		if len(m.script) > 0 {
			r := m.script[0]
			m.script = m.script[1:]
			if len(m.script) == 0 {
				select {
				case <-m.drained:
				default:
					close(m.drained)
				}
			}
			m.mu.Unlock()
			return Normalize(r.Text), r.Err
		}
		wake := m.wake
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-wake:
		}
	}
}

// Drained is closed once every scripted result has been returned.
func (m *Mock) Drained() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drained
}

// Windows returns the window of every Listen call.
func (m *Mock) Windows() []Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Window(nil), m.windows...)
}

// Calibrate records the requested duration.
func (m *Mock) Calibrate(ctx context.Context, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calibrated = d
	return nil
}

// Calibrated returns the duration passed to Calibrate.
func (m *Mock) Calibrated() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calibrated
}

var (
	_ Source     = (*Mock)(nil)
	_ Calibrator = (*Mock)(nil)
)
