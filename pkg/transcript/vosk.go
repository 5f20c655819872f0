package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-guido/pkg/audioio"
)

const (
	serviceVosk = "vosk"

	// voskFrameBytes is the size of each binary frame sent to the server.
	voskFrameBytes = 8000
)

// VoskConfig configures the Vosk websocket recognizer.
type VoskConfig struct {
	// URL of a vosk-server websocket endpoint, e.g. ws://localhost:2700.
	URL string
	// ResultTimeout bounds the wait for the final transcription.
	ResultTimeout time.Duration
}

// Vosk recognizes phrases with an offline vosk-server reached over a websocket.
// Each Listen records one phrase locally and streams it in a fresh session.
type Vosk struct {
	cfg    VoskConfig
	rec    *Recorder
	dialer *websocket.Dialer
	logger *slog.Logger
}

// NewVosk creates a Vosk source recording from src.
func NewVosk(cfg VoskConfig, src audioio.Source, logger *slog.Logger) (*Vosk, error) {
	if cfg.URL == "" {
		return nil, errors.New("transcript: vosk URL required")
	}
	if cfg.ResultTimeout <= 0 {
		cfg.ResultTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Vosk{
		cfg:    cfg,
		rec:    NewRecorder(src, logger),
		dialer: &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		logger: logger.With("component", "transcript.vosk"),
	}, nil
}

type voskMessage struct {
	Text    *string `json:"text"`
	Partial string  `json:"partial"`
}

// Listen records a phrase and returns its transcription.
func (v *Vosk) Listen(ctx context.Context, w Window) (string, error) {
	samples, audioCfg, err := v.rec.Record(ctx, w)
	if err != nil {
		return "", err
	}

	text, err := v.recognize(ctx, audioio.SamplesToBytes(samples), audioCfg.SampleRate)
	if err != nil {
		return "", &ServiceError{Service: serviceVosk, Err: err}
	}

	text = Normalize(text)
	if text == "" {
		return "", ErrUnintelligible
	}
	v.logger.Debug("recognized", "text", text, "samples", len(samples))
	return text, nil
}

func (v *Vosk) recognize(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	conn, _, err := v.dialer.DialContext(ctx, v.cfg.URL, nil)
	if err != nil {
		return "", fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(v.cfg.ResultTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	if err := conn.WriteJSON(map[string]any{"config": map[string]any{"sample_rate": sampleRate}}); err != nil {
		return "", fmt.Errorf("send config: %w", err)
	}

	// Responses are read concurrently so the server never blocks on a full socket.
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		var parts []string
		final := false
		for {
			var msg voskMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if final || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					done <- result{text: strings.Join(parts, " ")}
					return
				}
				done <- result{err: fmt.Errorf("read: %w", err)}
				return
			}
			if msg.Text == nil {
				continue
			}
			final = true
			if *msg.Text != "" {
				parts = append(parts, *msg.Text)
			}
		}
	}()

	for off := 0; off < len(pcm); off += voskFrameBytes {
		end := min(off+voskFrameBytes, len(pcm))
		if err := conn.WriteMessage(websocket.BinaryMessage, pcm[off:end]); err != nil {
			return "", fmt.Errorf("send audio: %w", err)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err != nil {
		return "", fmt.Errorf("send eof: %w", err)
	}

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Calibrate adjusts the recorder's speech threshold to ambient noise.
func (v *Vosk) Calibrate(ctx context.Context, d time.Duration) error {
	return v.rec.Calibrate(ctx, d)
}

// Close releases the microphone.
func (v *Vosk) Close() error {
	return v.rec.Close()
}

var (
	_ Source     = (*Vosk)(nil)
	_ Calibrator = (*Vosk)(nil)
)
