// Package model defines the core data types shared by the local store, the
// sync engines, and the companion server.
//
// # Overview
//
// Three persistent entities make up the offline-first data model:
//
//   - Employee: keyed by badge (a stable, human-readable identifier).
//   - TimeLog: a clock-in/clock-out pair with sync metadata. A log with a
//     nil ClockOut is an "open" shift. Every locally created log carries a
//     client-generated UUID (ClientID) used as the idempotency key for
//     server creation; the server-assigned primary key lands in RemoteID
//     once the push is accepted.
//   - ChangeRecord: one row per pending local mutation awaiting propagation
//     to the server, unique per (type, entity id). A second write to the
//     same key overwrites the payload so only the latest mutation replays.
//
// # Sync state machine
//
// TimeLog.SyncState moves through a small validated state machine:
//
//	pending -> synced   (push accepted)
//	pending -> failed   (non-retryable rejection)
//	failed  -> pending  (manual retry reset)
//	synced  -> pending  (local edit invalidates sync)
//	any     -> failed
//	any     -> itself   (idempotent no-op)
//
// Every other transition is rejected with ErrInvalidTransition. All state
// mutation goes through the store's MarkSynced/MarkFailed/ResetToPending
// helpers, which enforce the table above.
package model
