// Package api is the typed client for the BigTime remote API.
//
// Every endpoint wrapper returns an explicit Result describing what the
// server said (ok, created, not found, conflict, invalid, server error)
// plus a Go error reserved for transport-level failures (network, timeout,
// malformed body). Callers branch on the Result instead of inspecting
// error text.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// envelope is the standard response wrapper the server puts around every
// JSON body: {"success": bool, "data": {...}, "error": "..."}.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Transport handles low-level HTTP and bearer-token authentication.
type Transport struct {
	BaseURL    string
	AuthToken  string
	UserAgent  string
	HTTPClient *http.Client
}

// NewTransport creates a transport with base URL, auth token, and the
// per-call timeout applied to every request.
func NewTransport(baseURL, token string, timeout time.Duration) *Transport {
	return &Transport{
		BaseURL:    baseURL,
		AuthToken:  token,
		UserAgent:  "BigTime-Client/1.0",
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (t *Transport) buildURL(path string, query url.Values) string {
	u, err := url.Parse(t.BaseURL + path)
	if err != nil {
		return t.BaseURL + path
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// reply is a decoded server response: status code plus envelope.
type reply struct {
	StatusCode int
	Body       envelope
}

// do sends one JSON request and decodes the envelope. A nil error means
// the server answered; the status code may still be a failure.
func (t *Transport) do(ctx context.Context, method, path string, query url.Values, payload any) (*reply, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.buildURL(path, query), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", t.UserAgent)
	if t.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.AuthToken)
	}

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	r := &reply{StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read body: %w", method, path, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &r.Body); err != nil {
			// Non-JSON error pages (proxies, load balancers) still map to
			// an outcome by status code; keep a trimmed excerpt as message.
			r.Body.Error = trim(string(raw), 200)
		}
	}
	return r, nil
}

// decodeData unmarshals the envelope's data field into out.
func (r *reply) decodeData(out any) error {
	if len(r.Body.Data) == 0 {
		return fmt.Errorf("response has no data")
	}
	if err := json.Unmarshal(r.Body.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func trim(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
