package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bigtime/bigtime/internal/api"
	"github.com/bigtime/bigtime/internal/model"
	"github.com/bigtime/bigtime/internal/store"
)

// SyncInbound pulls the server's full employee and log collections and
// merges them into the local store. Server-sourced writes never touch the
// ledger, so nothing pulled here echoes back out. The returned bool
// reports whether both pulls completed; the error is reserved for local
// store failures.
func (e *Engine) SyncInbound(ctx context.Context) (bool, error) {
	changes, err := e.db.PendingChanges(ctx)
	if err != nil {
		return false, err
	}
	pendingEmployeeDeletes := map[string]bool{}
	pendingLogDeletes := map[string]bool{}
	for _, c := range changes {
		switch c.Type {
		case model.ChangeEmployeeDelete:
			pendingEmployeeDeletes[c.EntityID] = true
		case model.ChangeLogDelete:
			pendingLogDeletes[c.EntityID] = true
		}
	}

	// Listeners hear about failed passes too. A non-nil err means the
	// server answered and the local merge failed, so online stays true.
	ok, err := e.pullEmployees(ctx, pendingEmployeeDeletes)
	if err != nil || !ok {
		e.PublishStatus(ctx, err != nil)
		return ok, err
	}
	ok, err = e.pullLogs(ctx, pendingLogDeletes)
	if err != nil || !ok {
		e.PublishStatus(ctx, err != nil)
		return ok, err
	}
	e.recordSyncTime(ctx)
	return true, nil
}

func (e *Engine) pullEmployees(ctx context.Context, pendingDeletes map[string]bool) (bool, error) {
	employees, err := e.client.Employees.List(ctx)
	if err != nil {
		e.log.Warn("failed to pull employees", "error", err)
		return false, nil
	}

	changed := false
	for i := range employees {
		remote := &employees[i]
		if pendingDeletes[remote.Badge] {
			// Deleted locally; reinserting it here would resurrect a row
			// the next outbound pass is about to delete server-side.
			e.log.Debug("skipping employee with pending local delete", "badge", remote.Badge)
			continue
		}
		remote.ID = 0 // local ids are store-assigned
		if err := e.db.UpsertEmployeeNoTrack(ctx, remote); err != nil {
			return false, fmt.Errorf("merge employee %s: %w", remote.Badge, err)
		}
		changed = true
	}

	if changed {
		e.notifier.employeesSynced()
	}
	e.log.Info("pulled employees", "count", len(employees))
	return true, nil
}

func (e *Engine) pullLogs(ctx context.Context, pendingDeletes map[string]bool) (bool, error) {
	logs, err := e.client.Logs.List(ctx, api.ListFilter{})
	if err != nil {
		e.log.Warn("failed to pull logs", "error", err)
		return false, nil
	}

	for _, remote := range logs {
		if pendingDeletes[strconv.FormatInt(remote.ID, 10)] {
			e.log.Debug("skipping log with pending local delete", "remote_id", remote.ID)
			continue
		}
		if err := e.mergeLog(ctx, remote); err != nil {
			return false, fmt.Errorf("merge log %d: %w", remote.ID, err)
		}
	}
	e.log.Info("pulled logs", "count", len(logs))
	return true, nil
}

// mergeLog applies one server log locally. Rows are matched by client id;
// clock_in is never overwritten once a local row exists, and clock_out only
// moves when the server's copy is strictly newer (last writer wins).
func (e *Engine) mergeLog(ctx context.Context, remote api.Log) error {
	local, err := e.db.GetLogByClientID(ctx, remote.ClientID)
	if errors.Is(err, store.ErrNotFound) {
		l := &model.TimeLog{
			ClientID:  remote.ClientID,
			Badge:     remote.Badge,
			ClockIn:   remote.ClockIn,
			ClockOut:  remote.ClockOut,
			DeviceID:  remote.DeviceID,
			DeviceTS:  remote.DeviceTS,
			UpdatedAt: remote.UpdatedAt,
		}
		return e.db.InsertLogSynced(ctx, l, remote.ID)
	}
	if err != nil {
		return err
	}

	if remote.UpdatedAt.After(local.UpdatedAt) {
		if err := e.db.UpdateClockOutNoTrack(ctx, local.ID, remote.ClockOut, remote.UpdatedAt); err != nil {
			return err
		}
	}

	// Adopt the server's id. Failed rows keep their state so the failure
	// stays visible until someone retries it.
	if local.SyncState == model.StateFailed {
		if local.RemoteID == nil || *local.RemoteID != remote.ID {
			return e.db.SetRemoteID(ctx, local.ID, remote.ID)
		}
		return nil
	}
	if local.SyncState != model.StateSynced || local.RemoteID == nil || *local.RemoteID != remote.ID {
		return e.db.MarkSynced(ctx, local.ID, remote.ID)
	}
	return nil
}
