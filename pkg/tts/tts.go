// Package tts turns Guido's replies into speech audio.
//
// All providers return raw mono PCM16 so the result can be written straight
// to an audio sink. Providers can be combined with Chain so that a failing
// cloud service falls back to the next one.
//
//	provider, _ := tts.NewOpenAI(
//	    tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    tts.WithVoice(tts.VoiceOnyx),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "I am activated sir!")
package tts

import (
	"context"
	"time"
)

// Provider synthesizes speech.
type Provider interface {
	// Synthesize converts text to audio, returning the complete PCM buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is a complete synthesis result.
type AudioResult struct {
	// Audio contains little-endian PCM16 mono samples.
	Audio []byte

	// SampleRate of Audio in Hz.
	SampleRate int

	// Duration is the playback duration of Audio.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request round trip in milliseconds.
	LatencyMs int64

	// Provider names the backend that produced the audio.
	Provider string
}

// pcmDuration returns the playback time of n bytes of mono PCM16 at rate.
func pcmDuration(n, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(n/2) * time.Second / time.Duration(rate)
}
