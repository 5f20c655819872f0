package transcript

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"
)

// ErrQueueFull is returned by Offer when no reader is keeping up.
var ErrQueueFull = errors.New("transcript: queue full")

// Queue is a Source fed with typed or injected text instead of audio. The
// console backend and the dashboard's utterance endpoint both push into it.
type Queue struct {
	lines chan string
}

// NewQueue creates a queue holding up to buffer pending utterances.
func NewQueue(buffer int) *Queue {
	if buffer <= 0 {
		buffer = 16
	}
	return &Queue{lines: make(chan string, buffer)}
}

// Push enqueues text, blocking while the queue is full.
func (q *Queue) Push(ctx context.Context, text string) error {
	select {
	case q.lines <- text:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Offer enqueues text without blocking.
func (q *Queue) Offer(text string) error {
	select {
	case q.lines <- text:
		return nil
	default:
		return ErrQueueFull
	}
}

// Listen returns the next queued utterance, or ErrNoSpeech when none arrives
// within w.Timeout. Blank lines count as silence.
func (q *Queue) Listen(ctx context.Context, w Window) (string, error) {
	timer := time.NewTimer(w.Timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", ErrNoSpeech
	case line := <-q.lines:
		text := Normalize(line)
		if text == "" {
			return "", ErrNoSpeech
		}
		return text, nil
	}
}

// ReadLines pushes every line of r into the queue until r is exhausted or
// ctx is cancelled.
func (q *Queue) ReadLines(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := q.Push(ctx, scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

var _ Source = (*Queue)(nil)
