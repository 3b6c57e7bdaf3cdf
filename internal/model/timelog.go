package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SyncState describes how a TimeLog relates to its server-side counterpart.
type SyncState string

const (
	// StateSynced means the server has accepted this row and RemoteID is set.
	StateSynced SyncState = "synced"
	// StatePending means a local create or edit has not reached the server yet.
	StatePending SyncState = "pending"
	// StateFailed means the server rejected this row with a non-retryable
	// error; a manual retry reset is needed before it is pushed again.
	StateFailed SyncState = "failed"
)

// ErrInvalidTransition is returned when a sync-state change violates the
// state machine documented in the package comment.
var ErrInvalidTransition = errors.New("invalid sync state transition")

// Valid reports whether s is one of the three known states.
func (s SyncState) Valid() bool {
	switch s {
	case StateSynced, StatePending, StateFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to the target state is allowed.
// A state may always transition to itself.
func (s SyncState) CanTransition(to SyncState) bool {
	if s == to {
		return true
	}
	switch s {
	case StatePending:
		return to == StateSynced || to == StateFailed
	case StateFailed:
		return to == StatePending
	case StateSynced:
		return to == StatePending || to == StateFailed
	}
	return false
}

// Transition validates and returns the target state.
func (s SyncState) Transition(to SyncState) (SyncState, error) {
	if !to.Valid() {
		return s, fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, to)
	}
	if !s.CanTransition(to) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
	}
	return to, nil
}

// TimeLog is a single shift: a clock-in and, once the shift ends, a
// clock-out. Sync metadata rides along with the row.
type TimeLog struct {
	// ID is the local, store-assigned primary key.
	ID int64 `json:"id"`

	// ClientID is a UUID generated at local creation time. It is the
	// idempotency key for server-side creation: retrying a create with the
	// same ClientID returns the existing server record instead of a
	// duplicate.
	ClientID string `json:"client_id"`

	// RemoteID is the server-assigned primary key, nil until the server
	// accepts the log.
	RemoteID *int64 `json:"remote_id,omitempty"`

	Badge    string     `json:"badge"`
	ClockIn  time.Time  `json:"clock_in"`
	ClockOut *time.Time `json:"clock_out,omitempty"` // nil => shift open

	// DeviceID identifies which client device recorded the shift; DeviceTS
	// is the device wall-clock at recording time, kept for auditing.
	DeviceID string     `json:"device_id,omitempty"`
	DeviceTS *time.Time `json:"device_ts,omitempty"`

	SyncState SyncState `json:"sync_state"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Open reports whether the shift is still in progress.
func (l *TimeLog) Open() bool {
	return l.ClockOut == nil
}

// Validate checks the fields a log must carry before it can be pushed to
// the server. A log failing this check is marked failed and never retried.
func (l *TimeLog) Validate() error {
	if l.Badge == "" {
		return fmt.Errorf("badge is required")
	}
	if l.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if _, err := uuid.Parse(l.ClientID); err != nil {
		return fmt.Errorf("client_id is not a valid UUID: %w", err)
	}
	if l.ClockIn.IsZero() {
		return fmt.Errorf("clock_in is required")
	}
	if l.ClockOut != nil && l.ClockOut.Before(l.ClockIn) {
		return fmt.Errorf("clock_out %s precedes clock_in %s",
			l.ClockOut.Format(time.RFC3339), l.ClockIn.Format(time.RFC3339))
	}
	return nil
}

// NewClientID returns a fresh idempotency key for a locally created log.
func NewClientID() string {
	return uuid.NewString()
}
