package model

import "time"

// SyncStatus is a transient snapshot of the sync machinery, recomputed
// after every engine invocation and handed to observers. It is the only
// sync feedback the presentation layer sees; individual errors stay in the
// logs.
type SyncStatus struct {
	Online      bool       `json:"is_online"`
	Syncing     bool       `json:"is_syncing"`
	LastSync    *time.Time `json:"last_sync,omitempty"`
	PendingLogs int        `json:"pending_logs"`
	FailedLogs  int        `json:"failed_logs"`

	// PendingChanges counts ledger entries still awaiting replay,
	// including employee mutations that have no log row to carry a state.
	PendingChanges int    `json:"pending_changes"`
	ServerURL      string `json:"server_url,omitempty"`
}
