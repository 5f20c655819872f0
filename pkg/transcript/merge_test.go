package transcript

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quick = Window{Timeout: 20 * time.Millisecond, PhraseLimit: time.Second}

func TestMergeSingleSource(t *testing.T) {
	q := NewQueue(1)
	assert.Same(t, q, Merge(q))
}

func TestMergeFirstUtteranceWins(t *testing.T) {
	q := NewQueue(1)
	idle := NewMock()
	src := Merge(idle, q)

	require.NoError(t, q.Offer("Hey Guido"))
	text, err := src.Listen(context.Background(), Window{Timeout: time.Second})

	require.NoError(t, err)
	assert.Equal(t, "hey guido", text)
}

func TestMergeKeepsSimultaneousUtterances(t *testing.T) {
	mic := NewMock(Result{Text: "What time is it"})
	typed := NewMock(Result{Text: "give me the hammer"})
	src := Merge(mic, typed)

	var heard []string
	for range 2 {
		text, err := src.Listen(context.Background(), quick)
		require.NoError(t, err)
		heard = append(heard, text)
	}
	assert.ElementsMatch(t, []string{"what time is it", "give me the hammer"}, heard)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := src.Listen(ctx, quick)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMergeQueuesLoseNothing(t *testing.T) {
	for range 20 {
		mic, typed := NewQueue(1), NewQueue(1)
		require.NoError(t, mic.Offer("what time is it"))
		require.NoError(t, typed.Offer("give me the hammer"))
		src := Merge(mic, typed)

		var heard []string
		for range 2 {
			text, err := src.Listen(context.Background(), Window{Timeout: time.Second})
			require.NoError(t, err)
			heard = append(heard, text)
		}
		assert.ElementsMatch(t, []string{"what time is it", "give me the hammer"}, heard)
	}
}

func TestMergeErrorPrecedence(t *testing.T) {
	svc := &ServiceError{Service: "vosk", Err: errors.New("refused")}

	_, err := Merge(NewMock(Result{Err: ErrNoSpeech}), NewMock(Result{Err: svc})).Listen(context.Background(), quick)
	assert.ErrorAs(t, err, new(*ServiceError))

	_, err = Merge(NewMock(Result{Err: svc}), NewMock(Result{Err: ErrUnintelligible})).Listen(context.Background(), quick)
	assert.ErrorIs(t, err, ErrUnintelligible)

	_, err = Merge(NewQueue(1), NewMock(Result{})).Listen(context.Background(), quick)
	assert.ErrorIs(t, err, ErrNoSpeech)
}

func TestMergeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := Merge(NewMock(), NewMock())

	done := make(chan error, 1)
	go func() {
		_, err := src.Listen(ctx, quick)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("merged listen did not stop")
	}
}

func TestMergeCalibratesEverySource(t *testing.T) {
	a, b := NewMock(), NewMock()
	cal, ok := Merge(a, NewQueue(1), b).(Calibrator)
	require.True(t, ok)

	require.NoError(t, cal.Calibrate(context.Background(), time.Second))
	assert.Equal(t, time.Second, a.Calibrated())
	assert.Equal(t, time.Second, b.Calibrated())
}
