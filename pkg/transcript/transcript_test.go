package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/speech/v1"

	"github.com/teslashibe/go-guido/pkg/audioio"
)

const speechLevel = 3000

func startedSource(t *testing.T) *audioio.MockSource {
	t.Helper()
	src := audioio.NewMockSource(audioio.DefaultConfig(), nil)
	require.NoError(t, src.Start(context.Background()))
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hey guido", Normalize("  Hey   GUIDO \n"))
	assert.Equal(t, "", Normalize(" \t "))
}

func TestServiceErrorUnwraps(t *testing.T) {
	inner := errors.New("connection refused")
	err := error(&ServiceError{Service: "vosk", Err: inner})
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "transcript [vosk]: connection refused", err.Error())
}

func TestQueue(t *testing.T) {
	q := NewQueue(2)
	ctx := context.Background()
	w := Window{Timeout: 20 * time.Millisecond}

	require.NoError(t, q.Offer("  Guido WAKE up "))
	require.NoError(t, q.Offer("   "))
	assert.ErrorIs(t, q.Offer("overflow"), ErrQueueFull)

	text, err := q.Listen(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, "guido wake up", text)

	_, err = q.Listen(ctx, w)
	assert.ErrorIs(t, err, ErrNoSpeech, "blank lines count as silence")

	_, err = q.Listen(ctx, w)
	assert.ErrorIs(t, err, ErrNoSpeech, "timeout")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = q.Listen(cancelled, Window{Timeout: time.Second})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueueReadLines(t *testing.T) {
	q := NewQueue(4)
	require.NoError(t, q.ReadLines(context.Background(), strings.NewReader("hey guido\nwhat time is it\n")))

	w := Window{Timeout: 10 * time.Millisecond}
	first, _ := q.Listen(context.Background(), w)
	second, _ := q.Listen(context.Background(), w)
	assert.Equal(t, "hey guido", first)
	assert.Equal(t, "what time is it", second)
}

func TestRecorderCapturesPhraseUntilPause(t *testing.T) {
	src := startedSource(t)
	src.FeedSilence(3)
	src.FeedTone(5, speechLevel)
	src.FeedSilence(10)

	rec := NewRecorder(src, nil)
	samples, cfg, err := rec.Record(context.Background(), ActiveWindow)
	require.NoError(t, err)

	// five loud chunks plus the 800ms pause that ended the phrase
	assert.Len(t, samples, 13*cfg.BufferSize())
	assert.Equal(t, 2, src.Pending())
}

func TestRecorderStopsAtPhraseLimit(t *testing.T) {
	src := startedSource(t)
	src.FeedTone(60, speechLevel)

	rec := NewRecorder(src, nil)
	samples, cfg, err := rec.Record(context.Background(), Window{Timeout: time.Second, PhraseLimit: 3 * time.Second})
	require.NoError(t, err)
	assert.Len(t, samples, 30*cfg.BufferSize())
}

func TestRecorderNoSpeech(t *testing.T) {
	src := startedSource(t)
	src.FeedSilence(100)

	rec := NewRecorder(src, nil)
	_, _, err := rec.Record(context.Background(), Window{Timeout: time.Second, PhraseLimit: time.Second})
	assert.ErrorIs(t, err, ErrNoSpeech)
	assert.Equal(t, 90, src.Pending())

	// A microphone that delivers nothing is bounded by the wall clock.
	empty := startedSource(t)
	_, _, err = NewRecorder(empty, nil).Record(context.Background(), Window{Timeout: 30 * time.Millisecond, PhraseLimit: 30 * time.Millisecond})
	assert.ErrorIs(t, err, ErrNoSpeech)
}

func TestRecorderStoppedSourceIsServiceError(t *testing.T) {
	src := audioio.NewMockSource(audioio.DefaultConfig(), nil)
	_ = src.Close()

	_, _, err := NewRecorder(src, nil).Record(context.Background(), ActiveWindow)
	var svcErr *ServiceError
	assert.ErrorAs(t, err, &svcErr)
}

func TestRecorderCalibrate(t *testing.T) {
	src := startedSource(t)
	src.FeedTone(10, 1000)

	rec := NewRecorder(src, nil)
	assert.Equal(t, DefaultEnergyThreshold, rec.Threshold())

	require.NoError(t, rec.Calibrate(context.Background(), time.Second))
	ambient := audioio.CalculateRMS([]int16{1000})
	assert.InDelta(t, ambient*3, rec.Threshold(), 1e-9)

	quiet := startedSource(t)
	quiet.FeedSilence(5)
	rec = NewRecorder(quiet, nil)
	require.NoError(t, rec.Calibrate(context.Background(), 500*time.Millisecond))
	assert.Equal(t, minEnergyThreshold, rec.Threshold())
}

func voskServer(t *testing.T, reply string, frames *atomic.Int32) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var cfg struct {
			Config struct {
				SampleRate int `json:"sample_rate"`
			} `json:"config"`
		}
		if err := conn.ReadJSON(&cfg); err != nil || cfg.Config.SampleRate != 16000 {
			t.Errorf("bad config message: %+v %v", cfg, err)
			return
		}

		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.BinaryMessage {
				frames.Add(1)
				_ = conn.WriteJSON(map[string]string{"partial": "hey"})
				continue
			}
			if strings.Contains(string(data), "eof") {
				_ = conn.WriteJSON(map[string]string{"text": reply})
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestVoskListen(t *testing.T) {
	var frames atomic.Int32
	url := voskServer(t, "Hey Guido", &frames)

	src := startedSource(t)
	src.FeedTone(5, speechLevel)
	src.FeedSilence(8)

	v, err := NewVosk(VoskConfig{URL: url}, src, nil)
	require.NoError(t, err)

	text, err := v.Listen(context.Background(), DormantWindow)
	require.NoError(t, err)
	assert.Equal(t, "hey guido", text)

	// 13 chunks of 3200 bytes in 8000 byte frames
	assert.Equal(t, int32(6), frames.Load())
}

func TestVoskUnintelligible(t *testing.T) {
	var frames atomic.Int32
	url := voskServer(t, "", &frames)

	src := startedSource(t)
	src.FeedTone(3, speechLevel)
	src.FeedSilence(8)

	v, _ := NewVosk(VoskConfig{URL: url}, src, nil)
	_, err := v.Listen(context.Background(), ActiveWindow)
	assert.ErrorIs(t, err, ErrUnintelligible)
}

func TestVoskUnreachable(t *testing.T) {
	src := startedSource(t)
	src.FeedTone(3, speechLevel)
	src.FeedSilence(8)

	v, _ := NewVosk(VoskConfig{URL: "ws://127.0.0.1:1"}, src, nil)
	_, err := v.Listen(context.Background(), ActiveWindow)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "vosk", svcErr.Service)

	_, err = NewVosk(VoskConfig{}, src, nil)
	assert.Error(t, err)
}

func googleServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech:recognize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req speech.RecognizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Config == nil || req.Config.Encoding != "LINEAR16" || req.Config.SampleRateHertz != 16000 {
			t.Errorf("unexpected recognition config %+v", req.Config)
		}
		if req.Audio == nil || req.Audio.Content == "" {
			t.Error("missing audio content")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogle(t *testing.T, srv *httptest.Server, src audioio.Source) *Google {
	t.Helper()
	g, err := newGoogle(context.Background(), GoogleConfig{PhraseHints: []string{"guido"}}, src, nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return g
}

func TestGoogleListen(t *testing.T) {
	srv := googleServer(t, http.StatusOK,
		`{"results":[{"alternatives":[{"transcript":"Bring me the Wrench","confidence":0.92}]}]}`)

	src := startedSource(t)
	src.FeedTone(4, speechLevel)
	src.FeedSilence(8)

	text, err := newTestGoogle(t, srv, src).Listen(context.Background(), ActiveWindow)
	require.NoError(t, err)
	assert.Equal(t, "bring me the wrench", text)
}

func TestGoogleNoResults(t *testing.T) {
	srv := googleServer(t, http.StatusOK, `{}`)

	src := startedSource(t)
	src.FeedTone(4, speechLevel)
	src.FeedSilence(8)

	_, err := newTestGoogle(t, srv, src).Listen(context.Background(), ActiveWindow)
	assert.ErrorIs(t, err, ErrUnintelligible)
}

func TestGoogleAPIError(t *testing.T) {
	srv := googleServer(t, http.StatusForbidden, `{"error":{"code":403,"message":"denied"}}`)

	src := startedSource(t)
	src.FeedTone(4, speechLevel)
	src.FeedSilence(8)

	_, err := newTestGoogle(t, srv, src).Listen(context.Background(), ActiveWindow)
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "google", svcErr.Service)
}

func TestMockScript(t *testing.T) {
	m := NewMock(Result{Text: "Hey Guido"}, Result{Err: ErrUnintelligible})
	ctx := context.Background()

	text, err := m.Listen(ctx, DormantWindow)
	require.NoError(t, err)
	assert.Equal(t, "hey guido", text)

	_, err = m.Listen(ctx, ActiveWindow)
	assert.ErrorIs(t, err, ErrUnintelligible)

	select {
	case <-m.Drained():
	default:
		t.Fatal("script should be drained")
	}

	go m.Say("what time is it")
	text, err = m.Listen(ctx, ActiveWindow)
	require.NoError(t, err)
	assert.Equal(t, "what time is it", text)

	assert.Equal(t, []Window{DormantWindow, ActiveWindow, ActiveWindow}, m.Windows())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.Listen(cancelled, ActiveWindow)
	assert.ErrorIs(t, err, context.Canceled)
}
