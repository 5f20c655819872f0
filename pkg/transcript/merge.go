package transcript

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Merged listens on several sources at once and returns the first utterance.
// Utterances that arrive in the same listen as the winner are held back and
// returned by the following calls.
type Merged struct {
	sources []Source

	mu      sync.Mutex
	pending []string
}

// Merge combines sources. A single source is returned unchanged.
func Merge(sources ...Source) Source {
	if len(sources) == 1 {
		return sources[0]
	}
	return &Merged{sources: sources}
}

type listenResult struct {
	text string
	err  error
}

// Listen runs every source with the same window. The first non-empty
// utterance wins and the other listens are cancelled. When none produce
// text the most significant error is returned: ErrUnintelligible, then a
// ServiceError, then ErrNoSpeech.
func (m *Merged) Listen(ctx context.Context, w Window) (string, error) {
	if text, ok := m.next(); ok {
		return text, nil
	}
	if len(m.sources) == 0 {
		<-ctx.Done()
		return "", ctx.Err()
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan listenResult, len(m.sources))
	for _, src := range m.sources {
		go func(src Source) {
			text, err := src.Listen(ctx, w)
			results <- listenResult{text: text, err: err}
		}(src)
	}

	var errs []error
	var heard []string
	for range m.sources {
		r := <-results
		switch {
		case r.text != "":
			if len(heard) == 0 {
				cancel()
			}
			heard = append(heard, r.text)
		case r.err != nil:
			errs = append(errs, r.err)
		}
	}
	if len(heard) > 0 {
		m.hold(heard[1:])
		return heard[0], nil
	}
	if err := parent.Err(); err != nil {
		return "", err
	}
	return "", pickError(errs)
}

func (m *Merged) next() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return "", false
	}
	text := m.pending[0]
	m.pending = m.pending[1:]
	return text, true
}

func (m *Merged) hold(texts []string) {
	if len(texts) == 0 {
		return
	}
	m.mu.Lock()
	m.pending = append(m.pending, texts...)
	m.mu.Unlock()
}

func pickError(errs []error) error {
	var svc *ServiceError
	var svcErr error
	noSpeech := false
	var other error
	for _, err := range errs {
		switch {
		case errors.Is(err, ErrUnintelligible):
			return ErrUnintelligible
		case errors.As(err, &svc):
			if svcErr == nil {
				svcErr = err
			}
		case errors.Is(err, ErrNoSpeech):
			noSpeech = true
		case other == nil:
			other = err
		}
	}
	switch {
	case svcErr != nil:
		return svcErr
	case noSpeech:
		return ErrNoSpeech
	case other != nil:
		return other
	}
	return ErrNoSpeech
}

// Calibrate forwards to every source that supports it.
func (m *Merged) Calibrate(ctx context.Context, d time.Duration) error {
	var errs []error
	for _, src := range m.sources {
		if cal, ok := src.(Calibrator); ok {
			if err := cal.Calibrate(ctx, d); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

var (
	_ Source     = (*Merged)(nil)
	_ Calibrator = (*Merged)(nil)
)
