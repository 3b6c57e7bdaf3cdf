// Package sync moves data between the local store and the remote server.
//
// The outbound pass drains the change ledger in dependency order; the
// inbound pass pulls the server's employees and logs and merges them
// without creating echo entries in the ledger. Both passes tolerate a dead
// server: network failures leave local state untouched so the next pass
// can pick up where this one stopped.
package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/bigtime/bigtime/internal/api"
	"github.com/bigtime/bigtime/internal/model"
	"github.com/bigtime/bigtime/internal/store"
)

const (
	lastSyncKey     = "last_sync"
	lastFullSyncKey = "last_full_sync"
)

// Engine runs outbound and inbound sync passes against one server.
type Engine struct {
	db       *store.DB
	client   *api.Client
	log      *slog.Logger
	deviceID string

	// sleep is swapped out in tests so retry backoff does not stall them.
	sleep func(time.Duration)

	notifier notifier
}

// NewEngine wires an engine to its store and API client.
func NewEngine(db *store.DB, client *api.Client, deviceID string, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		db:       db,
		client:   client,
		log:      log.With("component", "sync"),
		deviceID: deviceID,
		sleep:    time.Sleep,
	}
}

// Subscribe registers a listener for engine events.
func (e *Engine) Subscribe(l Listener) {
	e.notifier.subscribe(l)
}

// Online probes the server's health endpoint with a short timeout.
func (e *Engine) Online(ctx context.Context, timeout time.Duration) bool {
	return e.client.Health(ctx, timeout)
}

// Status assembles a point-in-time view of sync health. Syncing is left
// false; the scheduler overlays its own lock state.
func (e *Engine) Status(ctx context.Context) (model.SyncStatus, error) {
	s := model.SyncStatus{ServerURL: e.client.Transport.BaseURL}

	pending, failed, err := e.db.CountByState(ctx)
	if err != nil {
		return s, err
	}
	s.PendingLogs = pending
	s.FailedLogs = failed

	if s.PendingChanges, err = e.db.CountPendingChanges(ctx); err != nil {
		return s, err
	}

	if raw, err := e.db.GetSetting(ctx, lastSyncKey, ""); err == nil && raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			s.LastSync = &ts
		}
	}
	return s, nil
}

// recordSyncTime stamps a completed pass and notifies listeners.
func (e *Engine) recordSyncTime(ctx context.Context) {
	ts := time.Now().UTC().Format(time.RFC3339)
	if err := e.db.SetSetting(ctx, lastSyncKey, ts); err != nil {
		e.log.Warn("failed to record sync time", "error", err)
	}
	e.PublishStatus(ctx, true)
}

// PublishStatus recomputes status and fans it out to listeners.
func (e *Engine) PublishStatus(ctx context.Context, online bool) {
	s, err := e.Status(ctx)
	if err != nil {
		e.log.Warn("failed to compute sync status", "error", err)
		return
	}
	s.Online = online
	e.notifier.statusChanged(s)
}

// RetryFailed moves every FAILED log back to PENDING so the next outbound
// pass pushes it again.
func (e *Engine) RetryFailed(ctx context.Context) (int, error) {
	n, err := e.db.ResetFailedToPending(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.log.Info("reset failed logs for retry", "count", n)
	}
	return n, nil
}

// CompleteFullSync runs the bookkeeping for a clean full sync: the ledger
// is drained wholesale and the full-sync timestamp recorded.
func (e *Engine) CompleteFullSync(ctx context.Context) error {
	if err := e.db.ClearAllChanges(ctx); err != nil {
		return err
	}
	ts := time.Now().UTC().Format(time.RFC3339)
	if err := e.db.SetSetting(ctx, lastFullSyncKey, ts); err != nil {
		e.log.Warn("failed to record full sync time", "error", err)
	}
	return nil
}

// Repair backfills sync identity on rows predating the sync columns.
func (e *Engine) Repair(ctx context.Context) (int, error) {
	n, err := e.db.RepairSyncIdentity(ctx, e.deviceID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.log.Info("repaired logs missing sync identity", "count", n)
	}
	return n, nil
}
