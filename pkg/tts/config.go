package tts

import (
	"cmp"
	"log/slog"
	"time"

	"github.com/teslashibe/go-guido/internal/httpc"
)

// Config is shared by the HTTP providers. Options fill it in and any field
// left at its zero value takes the provider's default, so passing an empty
// voice or model from configuration is harmless.
type Config struct {
	APIKey     string
	BaseURL    string
	Voice      string
	Model      string
	SampleRate int
	Retry      httpc.Retry
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Option sets one Config field.
type Option func(*Config)

// WithAPIKey sets the provider credential.
func WithAPIKey(key string) Option { return func(c *Config) { c.APIKey = key } }

// WithBaseURL points the provider at another endpoint, such as a test server.
func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }

// WithVoice selects a voice by ID or, for ElevenLabs, by preset name.
func WithVoice(voice string) Option { return func(c *Config) { c.Voice = voice } }

// WithModel selects the synthesis model.
func WithModel(model string) Option { return func(c *Config) { c.Model = model } }

// WithSampleRate requests PCM at rate from providers that let the caller choose.
func WithSampleRate(rate int) Option { return func(c *Config) { c.SampleRate = rate } }

// WithRetry retries transport failures and 429/5xx replies attempts times.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Config) { c.Retry = httpc.Retry{Attempts: attempts, Delay: delay} }
}

// WithLogger sets the logger the provider derives its component logger from.
func WithLogger(logger *slog.Logger) Option { return func(c *Config) { c.Logger = logger } }

const (
	defaultTimeout    = 15 * time.Second
	defaultSampleRate = 16000
)

var defaultRetry = httpc.Retry{Attempts: 2, Delay: 200 * time.Millisecond}

// newConfig applies opts and fills unset fields from defaults and then from
// the package defaults. An API key is required.
func newConfig(defaults Config, opts []Option) (Config, error) {
	var c Config
	for _, opt := range opts {
		opt(&c)
	}
	c.BaseURL = cmp.Or(c.BaseURL, defaults.BaseURL)
	c.Voice = cmp.Or(c.Voice, defaults.Voice)
	c.Model = cmp.Or(c.Model, defaults.Model)
	c.SampleRate = cmp.Or(c.SampleRate, defaults.SampleRate, defaultSampleRate)
	c.Timeout = cmp.Or(c.Timeout, defaults.Timeout, defaultTimeout)
	if c.Retry == (httpc.Retry{}) {
		c.Retry = defaultRetry
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.APIKey == "" {
		return c, ErrNoAPIKey
	}
	return c, nil
}
