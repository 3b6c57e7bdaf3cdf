package api

import "net/http"

// Outcome classifies a server response so the sync engine can branch
// deterministically. Transport failures never produce an Outcome; they
// surface as Go errors from the endpoint call.
type Outcome int

const (
	// OK: request applied (HTTP 200).
	OK Outcome = iota
	// Created: resource created (HTTP 201).
	Created
	// NotFound: target absent (HTTP 404). Benign for deletes; triggers the
	// create-then-update fallback for log updates.
	NotFound
	// Conflict: semantic conflict (HTTP 409), a duplicate employee or a
	// badge that already has an open log.
	Conflict
	// Invalid: any other 4xx; the request itself is bad and retrying the
	// same payload cannot succeed.
	Invalid
	// ServerError: 5xx; worth a bounded retry.
	ServerError
)

// String returns a short name for logging.
func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Created:
		return "created"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Invalid:
		return "invalid"
	case ServerError:
		return "server_error"
	}
	return "unknown"
}

// Applied reports whether the server accepted the request (200 or 201).
func (o Outcome) Applied() bool {
	return o == OK || o == Created
}

// Result is the server's verdict on one call.
type Result struct {
	Outcome    Outcome
	StatusCode int
	// Message carries the server's error text for logging only; engine
	// decisions are made on Outcome alone.
	Message string
}

// LogResult extends Result with the server-assigned log id returned by
// create/update calls.
type LogResult struct {
	Result
	RemoteID int64
}

func classify(status int) Outcome {
	switch {
	case status == http.StatusOK:
		return OK
	case status == http.StatusCreated:
		return Created
	case status == http.StatusNotFound:
		return NotFound
	case status == http.StatusConflict:
		return Conflict
	case status >= 500:
		return ServerError
	default:
		return Invalid
	}
}

func (r *reply) result() Result {
	return Result{
		Outcome:    classify(r.StatusCode),
		StatusCode: r.StatusCode,
		Message:    r.Body.Error,
	}
}
