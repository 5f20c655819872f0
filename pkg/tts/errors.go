package tts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/teslashibe/go-guido/internal/httpc"
)

var (
	ErrNoAPIKey    = errors.New("tts: missing API key")
	ErrNoVoice     = errors.New("tts: missing voice")
	ErrEmptyText   = errors.New("tts: nothing to say")
	ErrNoProviders = errors.New("tts: no providers configured")
)

// APIError is a non-200 reply from a speech API.
type APIError struct {
	Provider string
	Status   int
	Code     string
	Message  string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("tts: %s replied %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("tts: %s replied %d (%s): %s", e.Provider, e.Status, e.Code, e.Message)
}

// Unauthorized reports a rejected API key.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return httpc.Retryable(e.Status)
}

// readAPIError builds an APIError from resp. detail extracts the provider's
// code and message from a JSON body; the raw body is the message otherwise.
func readAPIError(provider string, resp *http.Response, detail func(body []byte) (code, message string)) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Provider: provider, Status: resp.StatusCode, Message: string(body)}
	if code, message := detail(body); message != "" {
		apiErr.Code, apiErr.Message = code, message
	}
	return apiErr
}

// openAIDetail decodes {"error":{"message","code"}}.
func openAIDetail(body []byte) (string, string) {
	var r struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &r) != nil {
		return "", ""
	}
	return r.Error.Code, r.Error.Message
}

// elevenLabsDetail decodes {"detail":{"status","message"}}.
func elevenLabsDetail(body []byte) (string, string) {
	var r struct {
		Detail struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"detail"`
	}
	if json.Unmarshal(body, &r) != nil {
		return "", ""
	}
	return r.Detail.Status, r.Detail.Message
}

// providerError attaches the provider name to a transport or encoding failure.
type providerError struct {
	provider string
	err      error
}

func (e *providerError) Error() string { return "tts: " + e.provider + ": " + e.err.Error() }

func (e *providerError) Unwrap() error { return e.err }

func wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &providerError{provider: provider, err: err}
}
