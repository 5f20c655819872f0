// Package config loads Guido's configuration.
//
// Values are layered: built-in defaults, then an optional YAML or TOML file,
// then GUIDO_* environment variables (a .env file is read first), then
// command line flags bound by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teslashibe/go-guido/pkg/assistant"
	"github.com/teslashibe/go-guido/pkg/audioio"
	"github.com/teslashibe/go-guido/pkg/events"
	"github.com/teslashibe/go-guido/pkg/transcript"
	"github.com/teslashibe/go-guido/pkg/web"
)

// EnvPrefix prefixes every environment override, e.g. GUIDO_ROBOT_URL.
const EnvPrefix = "GUIDO"

// Config is the complete runtime configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Listen     ListenConfig     `mapstructure:"listen"`
	Timers     TimersConfig     `mapstructure:"timers"`
	Transcript TranscriptConfig `mapstructure:"transcript"`
	Speech     SpeechConfig     `mapstructure:"speech"`
	Audio      audioio.Config   `mapstructure:"audio"`
	Robot      RobotConfig      `mapstructure:"robot"`
	Web        WebConfig        `mapstructure:"web"`
	Events     EventsConfig     `mapstructure:"events"`
	Journal    JournalConfig    `mapstructure:"journal"`
}

// LogConfig configures internal/log.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
	JSON  bool   `mapstructure:"json"`
}

// ListenConfig bounds each listen attempt.
type ListenConfig struct {
	Dormant transcript.Window `mapstructure:"dormant"`
	Active  transcript.Window `mapstructure:"active"`
}

// TimersConfig holds the assistant's timing.
type TimersConfig struct {
	InactivityInterval time.Duration `mapstructure:"inactivity_interval"`
	InactivityTimeout  time.Duration `mapstructure:"inactivity_timeout"`
	OrganizeInterval   time.Duration `mapstructure:"organize_interval"`
	StepPause          time.Duration `mapstructure:"step_pause"`
	Calibrate          time.Duration `mapstructure:"calibrate"`
}

// Transcript backends.
const (
	TranscriptConsole = "console"
	TranscriptVosk    = "vosk"
	TranscriptGoogle  = "google"
)

// TranscriptConfig selects the speech recognizer.
type TranscriptConfig struct {
	Backend string `mapstructure:"backend"`

	// Typed also accepts utterances typed on stdin or posted to the
	// dashboard alongside a microphone backend.
	Typed bool `mapstructure:"typed"`

	VoskURL      string   `mapstructure:"vosk_url"`
	GoogleAPIKey string   `mapstructure:"google_api_key"`
	Language     string   `mapstructure:"language"`
	PhraseHints  []string `mapstructure:"phrase_hints"`
}

// Speech backends.
const (
	SpeechConsole    = "console"
	SpeechOpenAI     = "openai"
	SpeechElevenLabs = "elevenlabs"
)

// SpeechConfig selects the voice.
type SpeechConfig struct {
	Backend string `mapstructure:"backend"`

	OpenAIKey     string `mapstructure:"openai_key"`
	ElevenLabsKey string `mapstructure:"elevenlabs_key"`
	Voice         string `mapstructure:"voice"`
	Model         string `mapstructure:"model"`
}

// Robot backends.
const (
	RobotLog  = "log"
	RobotHTTP = "http"
)

// RobotConfig selects the actuator.
type RobotConfig struct {
	Backend string        `mapstructure:"backend"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WebConfig configures the dashboard.
type WebConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	web.Config `mapstructure:",squash"`
}

// EventsConfig configures the event bus and optional NATS forwarding.
type EventsConfig struct {
	Buffer        int    `mapstructure:"buffer"`
	NATSURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// JournalConfig configures the SQLite journal. An empty path disables it.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// DefaultConfig returns a configuration that runs on a laptop: typed input,
// console speech and a logging robot.
func DefaultConfig() Config {
	a := assistant.DefaultConfig()
	return Config{
		Log: LogConfig{Level: "info"},
		Listen: ListenConfig{
			Dormant: a.DormantWindow,
			Active:  a.ActiveWindow,
		},
		Timers: TimersConfig{
			InactivityInterval: a.InactivityInterval,
			InactivityTimeout:  a.InactivityTimeout,
			OrganizeInterval:   a.OrganizeInterval,
			StepPause:          a.StepPause,
			Calibrate:          a.CalibrateFor,
		},
		Transcript: TranscriptConfig{
			Backend:  TranscriptConsole,
			VoskURL:  "ws://localhost:2700",
			Language: "en-US",
		},
		Speech: SpeechConfig{Backend: SpeechConsole},
		Audio:  audioio.DefaultConfig(),
		Robot: RobotConfig{
			Backend: RobotLog,
			URL:     "http://localhost:8000",
			Timeout: 5 * time.Second,
		},
		Web:     WebConfig{Config: web.DefaultConfig()},
		Events:  EventsConfig{Buffer: 64, SubjectPrefix: events.DefaultSubjectPrefix},
		Journal: JournalConfig{},
	}
}

// Assistant converts the listen and timer sections.
func (c Config) Assistant() assistant.Config {
	a := assistant.DefaultConfig()
	a.DormantWindow = c.Listen.Dormant
	a.ActiveWindow = c.Listen.Active
	a.InactivityInterval = c.Timers.InactivityInterval
	a.InactivityTimeout = c.Timers.InactivityTimeout
	a.OrganizeInterval = c.Timers.OrganizeInterval
	a.StepPause = c.Timers.StepPause
	a.CalibrateFor = c.Timers.Calibrate
	return a
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if err := c.Assistant().Validate(); err != nil {
		return &ConfigError{Field: "timers", Message: err.Error()}
	}

	switch c.Transcript.Backend {
	case TranscriptConsole:
	case TranscriptVosk:
		if c.Transcript.VoskURL == "" {
			return &ConfigError{Field: "transcript.vosk_url", Message: "required for the vosk backend"}
		}
	case TranscriptGoogle:
		if c.Transcript.Language == "" {
			return &ConfigError{Field: "transcript.language", Message: "required for the google backend"}
		}
	default:
		return &ConfigError{Field: "transcript.backend", Message: fmt.Sprintf("unknown backend %q", c.Transcript.Backend)}
	}

	switch c.Speech.Backend {
	case SpeechConsole:
	case SpeechOpenAI:
		if c.Speech.OpenAIKey == "" {
			return &ConfigError{Field: "speech.openai_key", Message: "OPENAI_API_KEY is required for the openai backend"}
		}
	case SpeechElevenLabs:
		if c.Speech.ElevenLabsKey == "" {
			return &ConfigError{Field: "speech.elevenlabs_key", Message: "ELEVENLABS_API_KEY is required for the elevenlabs backend"}
		}
	default:
		return &ConfigError{Field: "speech.backend", Message: fmt.Sprintf("unknown backend %q", c.Speech.Backend)}
	}

	if c.Transcript.Backend != TranscriptConsole || c.Speech.Backend != SpeechConsole {
		audio := c.Audio
		if err := audio.Validate(); err != nil {
			return &ConfigError{Field: "audio", Message: err.Error()}
		}
	}

	switch c.Robot.Backend {
	case RobotLog:
	case RobotHTTP:
		if c.Robot.URL == "" {
			return &ConfigError{Field: "robot.url", Message: "required for the http backend"}
		}
	default:
		return &ConfigError{Field: "robot.backend", Message: fmt.Sprintf("unknown backend %q", c.Robot.Backend)}
	}

	if c.Web.Enabled {
		if err := c.Web.Config.Validate(); err != nil {
			return &ConfigError{Field: "web", Message: err.Error()}
		}
	}
	if c.Events.Buffer <= 0 {
		return &ConfigError{Field: "events.buffer", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + ": " + e.Message
}

// LoadEnvFiles reads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration into v. path names a config file; when empty,
// guido.{yaml,toml} is looked up in the working directory and
// $HOME/.config/guido and is optional. Flags must be bound to v beforehand.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("speech.openai_key", EnvPrefix+"_SPEECH_OPENAI_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("speech.elevenlabs_key", EnvPrefix+"_SPEECH_ELEVENLABS_KEY", "ELEVENLABS_API_KEY")
	_ = v.BindEnv("transcript.google_api_key", EnvPrefix+"_TRANSCRIPT_GOOGLE_API_KEY", "GOOGLE_API_KEY")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("guido")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/guido")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("config: read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults registers every key with its default so that environment
// variables and flags can override keys missing from the config file.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	defaults := map[string]any{
		"log.level": d.Log.Level,
		"log.file":  d.Log.File,
		"log.json":  d.Log.JSON,

		"listen.dormant.timeout":      d.Listen.Dormant.Timeout,
		"listen.dormant.phrase_limit": d.Listen.Dormant.PhraseLimit,
		"listen.active.timeout":       d.Listen.Active.Timeout,
		"listen.active.phrase_limit":  d.Listen.Active.PhraseLimit,

		"timers.inactivity_interval": d.Timers.InactivityInterval,
		"timers.inactivity_timeout":  d.Timers.InactivityTimeout,
		"timers.organize_interval":   d.Timers.OrganizeInterval,
		"timers.step_pause":          d.Timers.StepPause,
		"timers.calibrate":           d.Timers.Calibrate,

		"transcript.backend":        d.Transcript.Backend,
		"transcript.typed":          d.Transcript.Typed,
		"transcript.vosk_url":       d.Transcript.VoskURL,
		"transcript.google_api_key": d.Transcript.GoogleAPIKey,
		"transcript.language":       d.Transcript.Language,
		"transcript.phrase_hints":   d.Transcript.PhraseHints,

		"speech.backend":        d.Speech.Backend,
		"speech.openai_key":     d.Speech.OpenAIKey,
		"speech.elevenlabs_key": d.Speech.ElevenLabsKey,
		"speech.voice":          d.Speech.Voice,
		"speech.model":          d.Speech.Model,

		"audio.backend":         string(d.Audio.Backend),
		"audio.sample_rate":     d.Audio.SampleRate,
		"audio.channels":        d.Audio.Channels,
		"audio.buffer_duration": d.Audio.BufferDuration,
		"audio.device":          d.Audio.Device,

		"robot.backend": d.Robot.Backend,
		"robot.url":     d.Robot.URL,
		"robot.timeout": d.Robot.Timeout,

		"web.enabled":         d.Web.Enabled,
		"web.addr":            d.Web.Addr,
		"web.utterance_rate":  d.Web.UtteranceRate,
		"web.utterance_burst": d.Web.UtteranceBurst,
		"web.recent_ttl":      d.Web.RecentTTL,
		"web.recent_limit":    d.Web.RecentLimit,

		"events.buffer":         d.Events.Buffer,
		"events.nats_url":       d.Events.NATSURL,
		"events.subject_prefix": d.Events.SubjectPrefix,

		"journal.path": d.Journal.Path,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}
