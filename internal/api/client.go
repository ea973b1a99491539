package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const healthTimeout = 3 * time.Second

// Client issues authenticated requests against the backend and normalizes
// every outcome into a Result. It never returns a Go error: transport
// failures, auth rejections, and HTTP errors all come back as tagged
// results so callers can branch explicitly.
type Client struct {
	baseURL string
	http    *http.Client
	token   func() string
}

// Result is the tagged outcome of a backend call.
type Result struct {
	Success      bool
	StatusCode   int
	Data         json.RawMessage
	Error        string
	Unauthorized bool
}

// Retriable reports whether the failure was an availability problem
// (transport error or server fault) rather than an answer, i.e. whether the
// caller should fall back to the local store.
func (r Result) Retriable() bool {
	if r.Success || r.Unauthorized {
		return false
	}
	return r.StatusCode == 0 || r.StatusCode >= 500
}

// Decode unmarshals the success payload into v.
func (r Result) Decode(v any) error {
	if len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// NewClient creates a backend client. token supplies the current bearer
// token and may return "" when no session exists.
func NewClient(baseURL string, token func() string) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL: baseURL,
		// Ordinary data requests carry no client timeout; only the
		// liveness probe is bounded.
		http:  &http.Client{},
		token: token,
	}
}

// Do performs an HTTP request against the configured backend. body, when
// non-nil, is JSON-encoded.
func (c *Client) Do(ctx context.Context, method, endpoint string, body any) Result {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return Result{Error: fmt.Sprintf("failed to encode request body: %v", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return Result{Error: err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug().Str("endpoint", endpoint).Err(err).Msg("backend request failed")
		return Result{Error: err.Error()}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{StatusCode: resp.StatusCode, Error: err.Error()}
	}

	data := normalizeBody(text)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Result{StatusCode: resp.StatusCode, Error: "Unauthorized", Unauthorized: true}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{
			StatusCode: resp.StatusCode,
			Data:       data,
			Error:      errorMessage(data, resp.StatusCode),
		}
	}

	return Result{Success: true, StatusCode: resp.StatusCode, Data: data}
}

// Get is shorthand for a body-less GET.
func (c *Client) Get(ctx context.Context, endpoint string) Result {
	return c.Do(ctx, http.MethodGet, endpoint, nil)
}

// Post is shorthand for a JSON POST.
func (c *Client) Post(ctx context.Context, endpoint string, body any) Result {
	return c.Do(ctx, http.MethodPost, endpoint, body)
}

// Healthy probes the backend's /health endpoint with a short timeout. It is
// called once at startup; the answer fixes remote vs local-fallback mode
// for the life of the process.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// normalizeBody returns the body as JSON, wrapping non-JSON text as a
// message object the way every consumer expects.
func normalizeBody(text []byte) json.RawMessage {
	if len(text) == 0 {
		return json.RawMessage(`{}`)
	}
	if json.Valid(text) {
		return json.RawMessage(text)
	}
	wrapped, err := json.Marshal(map[string]string{"message": string(text)})
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return wrapped
}

func errorMessage(data json.RawMessage, status int) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}
