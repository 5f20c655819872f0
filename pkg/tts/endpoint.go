package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/teslashibe/go-guido/internal/httpc"
)

// endpoint is the HTTP plumbing shared by the hosted providers.
type endpoint struct {
	provider string
	cfg      Config
	client   *http.Client
	logger   *slog.Logger
	auth     func(*http.Request)
	detail   func(body []byte) (code, message string)
}

func newEndpoint(provider string, cfg Config, auth func(*http.Request), detail func([]byte) (string, string)) endpoint {
	return endpoint{
		provider: provider,
		cfg:      cfg,
		client:   httpc.NewClient(cfg.Timeout),
		logger:   cfg.Logger.With("component", "tts."+provider),
		auth:     auth,
		detail:   detail,
	}
}

// post sends payload as JSON to path and returns the raw response body.
func (e endpoint) post(ctx context.Context, path string, payload any, accept string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, wrap(e.provider, fmt.Errorf("marshal payload: %w", err))
	}
	resp, err := httpc.DoWithRetry(ctx, e.client, e.cfg.Retry, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		e.auth(req)
		req.Header.Set("Content-Type", "application/json")
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		return req, nil
	})
	if err != nil {
		return nil, wrap(e.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(e.provider, resp, e.detail)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrap(e.provider, fmt.Errorf("read response: %w", err))
	}
	return data, nil
}

// probe issues an authenticated GET and expects 200.
func (e endpoint) probe(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.BaseURL+path, nil)
	if err != nil {
		return wrap(e.provider, err)
	}
	e.auth(req)
	resp, err := e.client.Do(req)
	if err != nil {
		return wrap(e.provider, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readAPIError(e.provider, resp, e.detail)
	}
	return nil
}

// Close releases idle connections.
func (e endpoint) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
