// Package transcript turns microphone audio into lowercase utterances.
//
// A Source is asked to listen once per loop iteration with a bounded Window.
// It returns the utterance, or an empty string together with one of the
// classified errors below. None of the errors are fatal to the caller.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Window bounds a single listen attempt.
type Window struct {
	// Timeout is how long to wait for speech to start.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	// PhraseLimit caps the length of the captured phrase.
	PhraseLimit time.Duration `mapstructure:"phrase_limit" json:"phrase_limit"`
}

// Default listen windows for the two assistant modes.
var (
	DormantWindow = Window{Timeout: 10 * time.Second, PhraseLimit: 3 * time.Second}
	ActiveWindow  = Window{Timeout: 8 * time.Second, PhraseLimit: 5 * time.Second}
)

var (
	// ErrNoSpeech is returned when nothing was said before the window timed out.
	ErrNoSpeech = errors.New("transcript: no speech detected")

	// ErrUnintelligible is returned when speech was captured but not understood.
	ErrUnintelligible = errors.New("transcript: speech not understood")
)

// ServiceError reports a recognition backend failure.
type ServiceError struct {
	Service string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("transcript [%s]: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Source produces utterances.
type Source interface {
	// Listen blocks for at most w (plus backend latency) and returns the
	// normalized utterance.
	Listen(ctx context.Context, w Window) (string, error)
}

// Calibrator is implemented by sources that can adapt to ambient noise.
type Calibrator interface {
	Calibrate(ctx context.Context, d time.Duration) error
}

// Normalize lowercases text and collapses whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
