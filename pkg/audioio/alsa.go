package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
)

// alsaArgs builds the shared arecord/aplay arguments for raw PCM16 streams.
func alsaArgs(cfg Config) []string {
	device := cfg.Device
	if device == "" {
		device = "default"
	}
	return []string{
		"-q",
		"-D", device,
		"-f", "S16_LE",
		"-r", strconv.Itoa(cfg.SampleRate),
		"-c", strconv.Itoa(cfg.Channels),
		"-t", "raw",
	}
}

// ALSASource captures audio by streaming raw PCM from arecord.
type ALSASource struct {
	cfg     Config
	logger  *slog.Logger
	command string

	mu      sync.Mutex
	running bool
	closed  bool
	chunks  chan AudioChunk
	cancel  context.CancelFunc
	done    chan struct{}

	overruns atomic.Int64
}

func newALSASource(cfg Config, logger *slog.Logger) (*ALSASource, error) {
	path, err := exec.LookPath("arecord")
	if err != nil {
		return nil, fmt.Errorf("arecord not found (install alsa-utils): %w", err)
	}
	return &ALSASource{
		cfg:     cfg,
		logger:  logger.With("component", "audio.alsa.source"),
		command: path,
	}, nil
}

// Start launches arecord and begins delivering chunks.
func (s *ALSASource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, s.command, alsaArgs(s.cfg)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("arecord stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start arecord: %w", err)
	}

	s.running = true
	s.cancel = cancel
	s.chunks = make(chan AudioChunk, 32)
	s.done = make(chan struct{})

	go s.captureLoop(cmd, stdout, s.chunks, s.done)

	s.logger.Info("capture started", "device", s.cfg.Device, "sample_rate", s.cfg.SampleRate)
	return nil
}

func (s *ALSASource) captureLoop(cmd *exec.Cmd, stdout io.Reader, chunks chan<- AudioChunk, done chan<- struct{}) {
	defer close(done)
	defer close(chunks)

	buf := make([]byte, s.cfg.BufferBytes())
	for {
		if _, err := io.ReadFull(stdout, buf); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Debug("capture read ended", "error", err)
			}
			break
		}
		chunk := NewChunk(buf, s.cfg.SampleRate, s.cfg.Channels)
		select {
		case chunks <- chunk:
		default:
			s.overruns.Add(1)
		}
	}

	if err := cmd.Wait(); err != nil {
		s.logger.Debug("arecord exited", "error", err)
	}
}

// Stop terminates arecord and waits for the capture loop to finish.
func (s *ALSASource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.logger.Info("capture stopped", "overruns", s.overruns.Load())
	return nil
}

// Read returns the next captured chunk.
func (s *ALSASource) Read(ctx context.Context) (AudioChunk, error) {
	s.mu.Lock()
	chunks := s.chunks
	s.mu.Unlock()

	if chunks == nil {
		return AudioChunk{}, io.EOF
	}

	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case chunk, ok := <-chunks:
		if !ok {
			return AudioChunk{}, io.EOF
		}
		return chunk, nil
	}
}

// Config returns the audio configuration.
func (s *ALSASource) Config() Config { return s.cfg }

// Name returns "alsa".
func (s *ALSASource) Name() string { return "alsa" }

// Close stops capture. The source cannot be restarted.
func (s *ALSASource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Stop()
}

var _ Source = (*ALSASource)(nil)

// ALSASink plays audio by piping raw PCM into aplay. The aplay process is
// started lazily on the first Write and exits on Flush once the queued audio
// has been played.
type ALSASink struct {
	cfg     Config
	logger  *slog.Logger
	command string

	mu     sync.Mutex
	closed bool
	cmd    *exec.Cmd
	stdin  io.WriteCloser
}

func newALSASink(cfg Config, logger *slog.Logger) (*ALSASink, error) {
	path, err := exec.LookPath("aplay")
	if err != nil {
		return nil, fmt.Errorf("aplay not found (install alsa-utils): %w", err)
	}
	return &ALSASink{
		cfg:     cfg,
		logger:  logger.With("component", "audio.alsa.sink"),
		command: path,
	}, nil
}

// Start opens the playback process.
func (s *ALSASink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx)
}

func (s *ALSASink) startLocked(ctx context.Context) error {
	if s.closed {
		return io.ErrClosedPipe
	}
	if s.cmd != nil {
		return nil
	}

	cmd := exec.CommandContext(ctx, s.command, alsaArgs(s.cfg)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("aplay stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start aplay: %w", err)
	}
	s.cmd = cmd
	s.stdin = stdin
	return nil
}

// Write sends a chunk to aplay, resampling it to the device rate if needed.
func (s *ALSASink) Write(ctx context.Context, chunk AudioChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.startLocked(ctx); err != nil {
		return err
	}
	chunk = ResampleChunk(chunk, s.cfg.SampleRate)
	if _, err := s.stdin.Write(chunk.Bytes()); err != nil {
		return fmt.Errorf("write to aplay: %w", err)
	}
	return nil
}

// Flush closes aplay's input and waits for playback to complete.
func (s *ALSASink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishLocked(ctx)
}

func (s *ALSASink) finishLocked(ctx context.Context) error {
	if s.cmd == nil {
		return nil
	}
	cmd := s.cmd
	s.cmd = nil
	_ = s.stdin.Close()

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	select {
	case err := <-waitErr:
		if err != nil {
			return fmt.Errorf("aplay: %w", err)
		}
		return nil
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-waitErr
		return ctx.Err()
	}
}

// Stop ends any playback in progress.
func (s *ALSASink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil {
		return nil
	}
	_ = s.cmd.Process.Kill()
	_ = s.stdin.Close()
	_ = s.cmd.Wait()
	s.cmd = nil
	return nil
}

// Config returns the audio configuration.
func (s *ALSASink) Config() Config { return s.cfg }

// Name returns "alsa".
func (s *ALSASink) Name() string { return "alsa" }

// Close stops playback. The sink cannot be reused.
func (s *ALSASink) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

var _ Sink = (*ALSASink)(nil)
