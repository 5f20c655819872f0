package speech

import (
	"context"
	"sync"
	"time"
)

// Recorder is a Speaker for tests. It records every utterance and can be
// made to fail or to take time.
type Recorder struct {
	mu    sync.Mutex
	said  []string
	err   error
	delay time.Duration
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes subsequent Speak calls record the text and return err.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// SetDelay makes Speak block for d (or until ctx is done) before recording.
func (r *Recorder) SetDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delay = d
}

// Speak records text.
func (r *Recorder) Speak(ctx context.Context, text string) error {
	r.mu.Lock()
	delay := r.delay
	r.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.said = append(r.said, text)
	return r.err
}

// Said returns a copy of everything spoken so far.
func (r *Recorder) Said() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.said...)
}

// Last returns the most recent utterance, or "".
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.said) == 0 {
		return ""
	}
	return r.said[len(r.said)-1]
}

// Count returns how many times text was spoken.
func (r *Recorder) Count(text string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.said {
		if s == text {
			n++
		}
	}
	return n
}

// Reset forgets everything spoken.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.said = nil
}

var _ Speaker = (*Recorder)(nil)
