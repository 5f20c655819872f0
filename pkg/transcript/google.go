package transcript

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/speech/v1"

	"github.com/teslashibe/go-guido/pkg/audioio"
)

const serviceGoogle = "google"

// GoogleConfig configures the Cloud Speech recognizer.
type GoogleConfig struct {
	// APIKey authenticates with an API key. When empty, application default
	// credentials are used.
	APIKey string
	// Language is a BCP-47 code. Default: en-US.
	Language string
	// PhraseHints bias recognition towards assistant vocabulary.
	PhraseHints []string
}

// Google recognizes phrases with the Cloud Speech-to-Text v1 API.
type Google struct {
	cfg    GoogleConfig
	svc    *speech.Service
	rec    *Recorder
	logger *slog.Logger
}

// NewGoogle creates a Google source recording from src.
func NewGoogle(ctx context.Context, cfg GoogleConfig, src audioio.Source, logger *slog.Logger) (*Google, error) {
	var opts []option.ClientOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		creds, err := google.FindDefaultCredentials(ctx, speech.CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("transcript: google credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(creds.TokenSource))
	}
	return newGoogle(ctx, cfg, src, logger, opts...)
}

func newGoogle(ctx context.Context, cfg GoogleConfig, src audioio.Source, logger *slog.Logger, opts ...option.ClientOption) (*Google, error) {
	svc, err := speech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("transcript: speech service: %w", err)
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Google{
		cfg:    cfg,
		svc:    svc,
		rec:    NewRecorder(src, logger),
		logger: logger.With("component", "transcript.google"),
	}, nil
}

// Listen records a phrase and returns the top transcription alternative.
func (g *Google) Listen(ctx context.Context, w Window) (string, error) {
	samples, audioCfg, err := g.rec.Record(ctx, w)
	if err != nil {
		return "", err
	}

	req := &speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:          "LINEAR16",
			SampleRateHertz:   int64(audioCfg.SampleRate),
			AudioChannelCount: int64(audioCfg.Channels),
			LanguageCode:      g.cfg.Language,
			MaxAlternatives:   1,
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(audioio.SamplesToBytes(samples)),
		},
	}
	if len(g.cfg.PhraseHints) > 0 {
		req.Config.SpeechContexts = []*speech.SpeechContext{{Phrases: g.cfg.PhraseHints}}
	}

	start := time.Now()
	resp, err := g.svc.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &ServiceError{Service: serviceGoogle, Err: err}
	}

	var text string
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			text += " " + result.Alternatives[0].Transcript
		}
	}

	text = Normalize(text)
	if text == "" {
		return "", ErrUnintelligible
	}
	g.logger.Debug("recognized", "text", text, "latency_ms", time.Since(start).Milliseconds())
	return text, nil
}

// Calibrate adjusts the recorder's speech threshold to ambient noise.
func (g *Google) Calibrate(ctx context.Context, d time.Duration) error {
	return g.rec.Calibrate(ctx, d)
}

// Close releases the microphone.
func (g *Google) Close() error {
	return g.rec.Close()
}

var (
	_ Source     = (*Google)(nil)
	_ Calibrator = (*Google)(nil)
)
