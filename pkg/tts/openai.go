package tts

import (
	"context"
	"net/http"
	"time"
)

const (
	providerOpenAI = "openai"

	// openAIPCMRate is the fixed rate of OpenAI's "pcm" response format.
	openAIPCMRate = 24000
)

// Voices and models Guido uses from the OpenAI speech API.
const (
	VoiceOnyx   = "onyx"
	VoiceNova   = "nova"
	ModelTTS1   = "tts-1"
	ModelTTS1HD = "tts-1-hd"
)

// OpenAI synthesizes through the OpenAI audio/speech endpoint.
type OpenAI struct {
	endpoint
}

// NewOpenAI creates a provider. The voice defaults to onyx and the model to tts-1.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg, err := newConfig(Config{
		BaseURL: "https://api.openai.com/v1",
		Voice:   VoiceOnyx,
		Model:   ModelTTS1,
	}, opts)
	if err != nil {
		return nil, err
	}
	auth := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+cfg.APIKey) }
	return &OpenAI{newEndpoint(providerOpenAI, cfg, auth, openAIDetail)}, nil
}

// Synthesize converts text to 24kHz PCM16 audio.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, wrap(providerOpenAI, ErrEmptyText)
	}
	start := time.Now()
	audio, err := o.post(ctx, "/audio/speech", map[string]any{
		"model":           o.cfg.Model,
		"voice":           o.cfg.Voice,
		"input":           text,
		"response_format": "pcm",
	}, "")
	if err != nil {
		return nil, err
	}
	latency := time.Since(start).Milliseconds()
	o.logger.Debug("synthesized", "chars", len(text), "bytes", len(audio), "latency_ms", latency)

	return &AudioResult{
		Audio:      audio,
		SampleRate: openAIPCMRate,
		Duration:   pcmDuration(len(audio), openAIPCMRate),
		CharCount:  len(text),
		LatencyMs:  latency,
		Provider:   providerOpenAI,
	}, nil
}

// Health lists models to check the key and connectivity.
func (o *OpenAI) Health(ctx context.Context) error {
	return o.probe(ctx, "/models")
}

var _ Provider = (*OpenAI)(nil)
