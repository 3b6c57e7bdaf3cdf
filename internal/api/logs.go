package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// LogEndpoint wraps /api/v1/logs.
type LogEndpoint struct {
	transport *Transport
}

// CreateLogRequest is the body for a log creation. ClientID makes the call
// idempotent: the server returns the existing record for a repeated ClientID
// instead of creating a duplicate.
type CreateLogRequest struct {
	ClientID string     `json:"client_id"`
	Badge    string     `json:"badge"`
	ClockIn  time.Time  `json:"clock_in"`
	ClockOut *time.Time `json:"clock_out,omitempty"`
	DeviceID string     `json:"device_id,omitempty"`
	DeviceTS *time.Time `json:"device_ts,omitempty"`
}

// UpdateLogRequest sets the clock-out on an existing server log.
type UpdateLogRequest struct {
	ClientID string     `json:"client_id,omitempty"`
	ClockOut time.Time  `json:"clock_out"`
	DeviceID string     `json:"device_id,omitempty"`
	DeviceTS *time.Time `json:"device_ts,omitempty"`
}

// Log is the server's wire representation of a time log.
type Log struct {
	ID        int64      `json:"id"`
	ClientID  string     `json:"client_id"`
	Badge     string     `json:"badge"`
	ClockIn   time.Time  `json:"clock_in"`
	ClockOut  *time.Time `json:"clock_out,omitempty"`
	DeviceID  string     `json:"device_id,omitempty"`
	DeviceTS  *time.Time `json:"device_ts,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Create POSTs a new log. On OK or Created the returned LogResult carries
// the server-assigned id.
func (e *LogEndpoint) Create(ctx context.Context, req *CreateLogRequest) (LogResult, error) {
	r, err := e.transport.do(ctx, http.MethodPost, "/api/v1/logs", nil, req)
	if err != nil {
		return LogResult{}, err
	}
	return e.logResult(r)
}

// Update PUTs a clock-out onto the server log with the given remote id.
func (e *LogEndpoint) Update(ctx context.Context, remoteID int64, req *UpdateLogRequest) (LogResult, error) {
	r, err := e.transport.do(ctx, http.MethodPut,
		"/api/v1/logs/"+strconv.FormatInt(remoteID, 10), nil, req)
	if err != nil {
		return LogResult{}, err
	}
	return e.logResult(r)
}

// Delete removes the server log with the given remote id. NotFound means
// the log is already gone, which callers treat as success.
func (e *LogEndpoint) Delete(ctx context.Context, remoteID int64) (Result, error) {
	r, err := e.transport.do(ctx, http.MethodDelete,
		"/api/v1/logs/"+strconv.FormatInt(remoteID, 10), nil, nil)
	if err != nil {
		return Result{}, err
	}
	return r.result(), nil
}

// ListFilter narrows a log listing. Zero values mean no constraint.
type ListFilter struct {
	Badge string
	Start time.Time
	End   time.Time
}

// List fetches server logs, optionally filtered by badge and time range.
func (e *LogEndpoint) List(ctx context.Context, filter ListFilter) ([]Log, error) {
	var query url.Values
	if filter.Badge != "" || !filter.Start.IsZero() || !filter.End.IsZero() {
		query = url.Values{}
		if filter.Badge != "" {
			query.Set("badge", filter.Badge)
		}
		if !filter.Start.IsZero() {
			query.Set("start", filter.Start.UTC().Format(time.RFC3339))
		}
		if !filter.End.IsZero() {
			query.Set("end", filter.End.UTC().Format(time.RFC3339))
		}
	}

	r, err := e.transport.do(ctx, http.MethodGet, "/api/v1/logs", query, nil)
	if err != nil {
		return nil, err
	}
	if r.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("log list returned %d: %s", r.StatusCode, r.Body.Error)
	}
	var data struct {
		Logs []Log `json:"logs"`
	}
	if err := r.decodeData(&data); err != nil {
		return nil, err
	}
	return data.Logs, nil
}

// logResult builds a LogResult, extracting data.id when the call applied.
func (e *LogEndpoint) logResult(r *reply) (LogResult, error) {
	res := LogResult{Result: r.result()}
	if !res.Outcome.Applied() {
		return res, nil
	}
	var data struct {
		ID int64 `json:"id"`
	}
	if err := r.decodeData(&data); err != nil {
		return res, fmt.Errorf("server accepted log but returned no id: %w", err)
	}
	res.RemoteID = data.ID
	return res, nil
}
