package tts

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const providerElevenLabs = "elevenlabs"

// ModelTurboV2_5 is the low-latency ElevenLabs model.
const ModelTurboV2_5 = "eleven_turbo_v2_5"

// ElevenLabsVoices maps friendly preset names to ElevenLabs voice IDs.
var ElevenLabsVoices = map[string]string{
	"josh":    "TxGEqnHWrfWFTfGW9XjX", // American male, deep
	"adam":    "pNInz6obpgDQGcFmaJgB", // American male, deep
	"sam":     "yoZ06aMxZJJ28mfd3POQ", // American male, raspy
	"rachel":  "21m00Tcm4TlvDq8ikWAM", // American female, calm
	"charlie": "IKne3meq5aSn9XLyUdCD", // Australian male, casual
}

// ResolveElevenLabsVoice returns the voice ID for a preset name,
// or the input unchanged if it's already a voice ID.
func ResolveElevenLabsVoice(name string) string {
	if id, ok := ElevenLabsVoices[name]; ok {
		return id
	}
	return name
}

// ElevenLabs synthesizes through the ElevenLabs text-to-speech endpoint.
type ElevenLabs struct {
	endpoint
}

// NewElevenLabs creates a provider. A voice is required; the sample rate must
// be one ElevenLabs can emit as raw PCM.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg, err := newConfig(Config{
		BaseURL: "https://api.elevenlabs.io/v1",
		Model:   ModelTurboV2_5,
	}, opts)
	if err != nil {
		return nil, err
	}
	if cfg.Voice == "" {
		return nil, ErrNoVoice
	}
	cfg.Voice = ResolveElevenLabsVoice(cfg.Voice)

	switch cfg.SampleRate {
	case 16000, 22050, 24000, 44100:
	default:
		return nil, fmt.Errorf("tts: unsupported ElevenLabs sample rate %d", cfg.SampleRate)
	}

	auth := func(r *http.Request) { r.Header.Set("xi-api-key", cfg.APIKey) }
	return &ElevenLabs{newEndpoint(providerElevenLabs, cfg, auth, elevenLabsDetail)}, nil
}

// Synthesize converts text to PCM16 audio at the configured sample rate.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, wrap(providerElevenLabs, ErrEmptyText)
	}
	start := time.Now()

	path := "/text-to-speech/" + url.PathEscape(e.cfg.Voice) + "?" +
		url.Values{"output_format": {fmt.Sprintf("pcm_%d", e.cfg.SampleRate)}}.Encode()
	audio, err := e.post(ctx, path, map[string]any{
		"text":     text,
		"model_id": e.cfg.Model,
		"voice_settings": map[string]any{
			"stability":         0.5,
			"similarity_boost":  0.75,
			"use_speaker_boost": true,
		},
	}, "audio/pcm")
	if err != nil {
		return nil, err
	}
	latency := time.Since(start).Milliseconds()
	e.logger.Debug("synthesized", "chars", len(text), "bytes", len(audio), "latency_ms", latency)

	return &AudioResult{
		Audio:      audio,
		SampleRate: e.cfg.SampleRate,
		Duration:   pcmDuration(len(audio), e.cfg.SampleRate),
		CharCount:  len(text),
		LatencyMs:  latency,
		Provider:   providerElevenLabs,
	}, nil
}

// Health fetches the account to check the key and connectivity.
func (e *ElevenLabs) Health(ctx context.Context) error {
	return e.probe(ctx, "/user")
}

var _ Provider = (*ElevenLabs)(nil)
