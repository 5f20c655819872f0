package transcript

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-guido/pkg/audioio"
)

// Phrase detection defaults.
const (
	DefaultEnergyThreshold = 0.001
	DefaultPauseThreshold  = 800 * time.Millisecond

	minEnergyThreshold = 0.0002
	ambientMultiplier  = 3.0
)

// Recorder captures a single spoken phrase from an audio source using an
// energy threshold. Durations are measured in captured audio rather than wall
// time so that a stalled microphone cannot stretch a window.
type Recorder struct {
	src    audioio.Source
	logger *slog.Logger
	pause  time.Duration

	mu        sync.Mutex
	threshold float64
}

// NewRecorder wraps src.
func NewRecorder(src audioio.Source, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		src:       src,
		logger:    logger.With("component", "transcript.recorder"),
		pause:     DefaultPauseThreshold,
		threshold: DefaultEnergyThreshold,
	}
}

// Threshold returns the current speech energy threshold.
func (r *Recorder) Threshold() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threshold
}

// Calibrate samples d of ambient audio and raises or lowers the speech
// threshold to sit above it.
func (r *Recorder) Calibrate(ctx context.Context, d time.Duration) error {
	if err := r.src.Start(ctx); err != nil {
		return &ServiceError{Service: "microphone", Err: err}
	}

	var heard time.Duration
	var sum float64
	var n int
	for heard < d {
		chunk, err := r.src.Read(ctx)
		if err != nil {
			return &ServiceError{Service: "microphone", Err: err}
		}
		heard += chunk.Duration()
		sum += chunk.Energy()
		n++
	}

	ambient := 0.0
	if n > 0 {
		ambient = sum / float64(n)
	}
	threshold := ambient * ambientMultiplier
	if threshold < minEnergyThreshold {
		threshold = minEnergyThreshold
	}

	r.mu.Lock()
	r.threshold = threshold
	r.mu.Unlock()

	r.logger.Info("calibrated for ambient noise", "ambient", ambient, "threshold", threshold)
	return nil
}

// Record waits up to w.Timeout for speech and returns the phrase, ending it
// after a pause or when it reaches w.PhraseLimit.
func (r *Recorder) Record(ctx context.Context, w Window) ([]int16, audioio.Config, error) {
	cfg := r.src.Config()
	if err := r.src.Start(ctx); err != nil {
		return nil, cfg, &ServiceError{Service: "microphone", Err: err}
	}

	// The wall clock bound covers a source that stops delivering audio.
	readCtx, cancel := context.WithTimeout(ctx, w.Timeout+w.PhraseLimit)
	defer cancel()

	threshold := r.Threshold()

	var (
		phrase  []int16
		waited  time.Duration
		spoken  time.Duration
		silence time.Duration
		started bool
	)

	for {
		chunk, err := r.src.Read(readCtx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, cfg, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				if started {
					return phrase, cfg, nil
				}
				return nil, cfg, ErrNoSpeech
			}
			return nil, cfg, &ServiceError{Service: "microphone", Err: err}
		}

		d := chunk.Duration()
		loud := chunk.Energy() > threshold

		if !started {
			if !loud {
				waited += d
				if waited >= w.Timeout {
					return nil, cfg, ErrNoSpeech
				}
				continue
			}
			started = true
		}

		phrase = append(phrase, chunk.Samples...)
		spoken += d
		if loud {
			silence = 0
		} else {
			silence += d
		}

		if silence >= r.pause || spoken >= w.PhraseLimit {
			return phrase, cfg, nil
		}
	}
}

// Close stops the underlying audio source.
func (r *Recorder) Close() error {
	return r.src.Close()
}
