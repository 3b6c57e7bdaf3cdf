package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Client groups the endpoint wrappers behind one transport.
type Client struct {
	Transport *Transport
	Employees *EmployeeEndpoint
	Logs      *LogEndpoint
}

// NewClient initializes the API client for a server base URL.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	t := NewTransport(baseURL, token, timeout)
	return &Client{
		Transport: t,
		Employees: &EmployeeEndpoint{transport: t},
		Logs:      &LogEndpoint{transport: t},
	}
}

// Health probes the unauthenticated liveness endpoint. The timeout is
// deliberately short so a dead server cannot stall the caller.
func (c *Client) Health(ctx context.Context, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	r, err := c.Transport.do(ctx, http.MethodGet, "/health", nil, nil)
	return err == nil && r.StatusCode == http.StatusOK
}

// ServerTime fetches the server's wall clock.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	r, err := c.Transport.do(ctx, http.MethodGet, "/api/v1/time", nil, nil)
	if err != nil {
		return time.Time{}, err
	}
	if r.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("time endpoint returned %d", r.StatusCode)
	}
	var data struct {
		ServerTime time.Time `json:"server_time"`
	}
	if err := r.decodeData(&data); err != nil {
		return time.Time{}, err
	}
	return data.ServerTime, nil
}
