package robot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-guido/internal/httpc"
)

// HTTPActuator drives the robot daemon's HTTP API.
type HTTPActuator struct {
	baseURL string
	client  *http.Client
	retry   httpc.Retry
	logger  *slog.Logger
}

// NewHTTPActuator creates an actuator for the daemon at baseURL,
// e.g. http://192.168.68.80:8000.
func NewHTTPActuator(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPActuator {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPActuator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  httpc.NewClient(timeout),
		retry:   httpc.Retry{Attempts: 2, Delay: 250 * time.Millisecond},
		logger:  logger.With("component", "robot.http"),
	}
}

// DeliverTool asks the arm to fetch name and present it to the user.
func (a *HTTPActuator) DeliverTool(ctx context.Context, name string) error {
	if name == "" {
		return ErrNoTool
	}
	return a.post(ctx, "deliver", name, "/api/tools/deliver", map[string]string{"tool": name})
}

// OrganizeTools asks the arm to sort the bench.
func (a *HTTPActuator) OrganizeTools(ctx context.Context) error {
	return a.post(ctx, "organize", "", "/api/tools/organize", map[string]string{"strategy": "by_class"})
}

// Status returns the daemon state string, e.g. "running".
func (a *HTTPActuator) Status(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/daemon/status", nil)
	if err != nil {
		return "", err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("daemon status request failed: %w", err)
	}
	defer resp.Body.Close()

	var status struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", fmt.Errorf("failed to decode daemon status: %w", err)
	}
	return status.State, nil
}

func (a *HTTPActuator) post(ctx context.Context, action, tool, path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return &ActuationError{Action: action, Tool: tool, Err: err}
	}

	resp, err := httpc.DoWithRetry(ctx, a.client, a.retry, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return &ActuationError{Action: action, Tool: tool, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return &ActuationError{Action: action, Tool: tool, Status: resp.StatusCode}
	}

	a.logger.Info("action accepted", "action", action, "tool", tool)
	return nil
}

var _ Actuator = (*HTTPActuator)(nil)
