// Package audioio captures microphone audio and plays synthesized speech.
//
// Backends:
//   - ALSA (Linux) - drives arecord/aplay from alsa-utils on the robot
//   - Mock - scripted audio for tests and machines without a sound card
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto selects ALSA on Linux and the mock elsewhere.
	BackendAuto Backend = "auto"
	// BackendALSA uses the alsa-utils command line tools.
	BackendALSA Backend = "alsa"
	// BackendMock uses an in-memory implementation.
	BackendMock Backend = "mock"
)

// Config holds audio configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	// Default: "auto"
	Backend Backend `yaml:"backend" json:"backend" mapstructure:"backend"`

	// SampleRate is the audio sample rate in Hz.
	// Default: 16000 (what speech recognizers expect)
	SampleRate int `yaml:"sample_rate" json:"sample_rate" mapstructure:"sample_rate"`

	// Channels is the number of audio channels.
	// Default: 1 (mono)
	Channels int `yaml:"channels" json:"channels" mapstructure:"channels"`

	// BufferDuration is the size of audio buffers.
	// Default: 100ms
	BufferDuration time.Duration `yaml:"buffer_duration" json:"buffer_duration" mapstructure:"buffer_duration"`

	// Device is the ALSA device identifier, e.g. "default" or "plughw:1,0".
	Device string `yaml:"device" json:"device" mapstructure:"device"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendAuto,
		SampleRate:     16000,
		Channels:       1,
		BufferDuration: 100 * time.Millisecond,
		Device:         "",
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case "", BackendAuto, BackendALSA, BackendMock:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("buffer_duration must be positive, got %v", c.BufferDuration)
	}
	return nil
}

// BufferSize returns the number of samples per buffer.
func (c *Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}

// BufferBytes returns the size of a buffer in bytes (assuming int16 samples).
func (c *Config) BufferBytes() int {
	return c.BufferSize() * c.Channels * 2
}
