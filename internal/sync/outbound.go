package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bigtime/bigtime/internal/api"
	"github.com/bigtime/bigtime/internal/model"
	"github.com/bigtime/bigtime/internal/store"
)

// serverErrorRetries is how many extra attempts a 5xx gets, with sleeps of
// 1s, 2s, 3s between them.
const serverErrorRetries = 3

// SyncOutbound drains the change ledger in dependency order: log deletes,
// employee deletes, employee updates, employee creates, log updates, log
// creates. Entries the server confirms (or that can never succeed) are
// cleared. One entity failing never aborts the batch: deferred entries
// (network trouble, exhausted 5xx retries) stay in the ledger for the next
// pass. The returned bool reports whether every entry was confirmed; the
// error is reserved for local store failures.
func (e *Engine) SyncOutbound(ctx context.Context) (bool, error) {
	changes, err := e.db.PendingChanges(ctx)
	if err != nil {
		return false, err
	}
	if len(changes) == 0 {
		e.PublishStatus(ctx, true)
		return true, nil
	}
	model.SortForReplay(changes)

	e.log.Info("pushing local changes", "count", len(changes))
	allOK := true
	for _, c := range changes {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		ok, err := e.pushChange(ctx, c)
		if err != nil {
			return false, fmt.Errorf("push %s %s: %w", c.Type, c.EntityID, err)
		}
		if !ok {
			allOK = false
		}
	}
	if allOK {
		e.recordSyncTime(ctx)
	} else {
		e.PublishStatus(ctx, true)
	}
	return allOK, nil
}

func (e *Engine) pushChange(ctx context.Context, c model.ChangeRecord) (bool, error) {
	switch c.Type {
	case model.ChangeEmployeeCreate:
		return e.pushEmployeeCreate(ctx, c.EntityID)
	case model.ChangeEmployeeUpdate:
		return e.pushEmployeeUpdate(ctx, c.EntityID)
	case model.ChangeEmployeeDelete:
		return e.pushEmployeeDelete(ctx, c.EntityID)
	case model.ChangeLogCreate:
		return e.pushLogCreate(ctx, c.EntityID)
	case model.ChangeLogUpdate:
		return e.pushLogUpdate(ctx, c.EntityID)
	case model.ChangeLogDelete:
		return e.pushLogDelete(ctx, c.EntityID)
	}
	e.log.Warn("dropping ledger entry with unknown type", "type", c.Type, "entity", c.EntityID)
	return true, e.db.ClearChange(ctx, c.Type, c.EntityID)
}

func (e *Engine) pushEmployeeCreate(ctx context.Context, badge string) (bool, error) {
	emp, err := e.db.GetEmployeeByBadge(ctx, badge)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted locally since the change was recorded.
		return true, e.db.ClearChange(ctx, model.ChangeEmployeeCreate, badge)
	}
	if err != nil {
		return false, err
	}

	res, netErr := e.withRetry(ctx, "create employee "+badge, func() (api.Result, error) {
		return e.client.Employees.Create(ctx, emp)
	})
	if netErr != nil {
		return e.deferEntity(ctx, "create employee "+badge, netErr)
	}
	switch res.Outcome {
	case api.OK, api.Created, api.Conflict:
		// Conflict means the badge already exists server-side, which is
		// what this change wanted.
		return true, e.db.ClearChange(ctx, model.ChangeEmployeeCreate, badge)
	case api.ServerError:
		return false, nil
	}
	e.log.Warn("server rejected employee create",
		"badge", badge, "status", res.StatusCode, "message", res.Message)
	return true, e.db.ClearChange(ctx, model.ChangeEmployeeCreate, badge)
}

func (e *Engine) pushEmployeeUpdate(ctx context.Context, badge string) (bool, error) {
	emp, err := e.db.GetEmployeeByBadge(ctx, badge)
	if errors.Is(err, store.ErrNotFound) {
		return true, e.db.ClearChange(ctx, model.ChangeEmployeeUpdate, badge)
	}
	if err != nil {
		return false, err
	}

	res, netErr := e.withRetry(ctx, "update employee "+badge, func() (api.Result, error) {
		return e.client.Employees.Update(ctx, badge, emp)
	})
	if netErr != nil {
		return e.deferEntity(ctx, "update employee "+badge, netErr)
	}
	switch res.Outcome {
	case api.OK, api.Created:
		return true, e.db.ClearChange(ctx, model.ChangeEmployeeUpdate, badge)
	case api.NotFound:
		// The server never saw this employee; push the full record instead.
		created, netErr := e.withRetry(ctx, "create employee "+badge, func() (api.Result, error) {
			return e.client.Employees.Create(ctx, emp)
		})
		if netErr != nil {
			return e.deferEntity(ctx, "create employee "+badge, netErr)
		}
		if created.Outcome == api.ServerError {
			return false, nil
		}
		if !created.Outcome.Applied() && created.Outcome != api.Conflict {
			e.log.Warn("server rejected employee create fallback",
				"badge", badge, "status", created.StatusCode, "message", created.Message)
		}
		return true, e.db.ClearChange(ctx, model.ChangeEmployeeUpdate, badge)
	case api.ServerError:
		return false, nil
	}
	e.log.Warn("server rejected employee update",
		"badge", badge, "status", res.StatusCode, "message", res.Message)
	return true, e.db.ClearChange(ctx, model.ChangeEmployeeUpdate, badge)
}

func (e *Engine) pushEmployeeDelete(ctx context.Context, badge string) (bool, error) {
	res, netErr := e.withRetry(ctx, "delete employee "+badge, func() (api.Result, error) {
		return e.client.Employees.Delete(ctx, badge)
	})
	if netErr != nil {
		return e.deferEntity(ctx, "delete employee "+badge, netErr)
	}
	switch res.Outcome {
	case api.OK, api.Created, api.NotFound:
		// Already absent server-side counts as deleted.
		return true, e.db.ClearChange(ctx, model.ChangeEmployeeDelete, badge)
	case api.ServerError:
		return false, nil
	}
	e.log.Warn("server rejected employee delete",
		"badge", badge, "status", res.StatusCode, "message", res.Message)
	return true, e.db.ClearChange(ctx, model.ChangeEmployeeDelete, badge)
}

func (e *Engine) pushLogCreate(ctx context.Context, entityID string) (bool, error) {
	id, err := strconv.ParseInt(entityID, 10, 64)
	if err != nil {
		e.log.Warn("dropping log_create with non-numeric entity id", "entity", entityID)
		return true, e.db.ClearChange(ctx, model.ChangeLogCreate, entityID)
	}
	l, err := e.db.GetLogByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return true, e.db.ClearChange(ctx, model.ChangeLogCreate, entityID)
	}
	if err != nil {
		return false, err
	}
	if l.SyncState == model.StateSynced {
		return true, e.db.ClearChange(ctx, model.ChangeLogCreate, entityID)
	}
	if err := l.Validate(); err != nil {
		e.log.Warn("log failed validation, marking failed", "id", id, "error", err)
		if err := e.db.MarkFailed(ctx, id); err != nil {
			return false, err
		}
		return true, e.db.ClearChange(ctx, model.ChangeLogCreate, entityID)
	}

	res, netErr := e.withLogRetry(ctx, fmt.Sprintf("create log %d", id), func() (api.LogResult, error) {
		return e.client.Logs.Create(ctx, createRequest(l))
	})
	if netErr != nil {
		return e.deferEntity(ctx, fmt.Sprintf("create log %d", id), netErr)
	}
	switch res.Outcome {
	case api.OK, api.Created:
		if err := e.db.MarkSynced(ctx, id, res.RemoteID); err != nil {
			return false, err
		}
		return true, e.db.ClearChange(ctx, model.ChangeLogCreate, entityID)
	case api.Conflict:
		if err := e.resolveOpenLogConflict(ctx, l); err != nil {
			return false, err
		}
		return true, e.db.ClearChange(ctx, model.ChangeLogCreate, entityID)
	case api.ServerError:
		return false, nil
	}
	e.log.Warn("server rejected log create, marking failed",
		"id", id, "status", res.StatusCode, "message", res.Message)
	if err := e.db.MarkFailed(ctx, id); err != nil {
		return false, err
	}
	return true, e.db.ClearChange(ctx, model.ChangeLogCreate, entityID)
}

func (e *Engine) pushLogUpdate(ctx context.Context, entityID string) (bool, error) {
	id, err := strconv.ParseInt(entityID, 10, 64)
	if err != nil {
		e.log.Warn("dropping log_update with non-numeric entity id", "entity", entityID)
		return true, e.db.ClearChange(ctx, model.ChangeLogUpdate, entityID)
	}
	l, err := e.db.GetLogByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return true, e.db.ClearChange(ctx, model.ChangeLogUpdate, entityID)
	}
	if err != nil {
		return false, err
	}
	if err := l.Validate(); err != nil {
		e.log.Warn("log failed validation, marking failed", "id", id, "error", err)
		if err := e.db.MarkFailed(ctx, id); err != nil {
			return false, err
		}
		return true, e.db.ClearChange(ctx, model.ChangeLogUpdate, entityID)
	}

	// Without a stored remote id, ask the server whether it already knows
	// this log by client id before falling back to create-then-update.
	if l.RemoteID == nil {
		remoteID, found, netErr := e.lookupRemoteID(ctx, l)
		if netErr != nil {
			return e.deferEntity(ctx, fmt.Sprintf("lookup log %d", id), netErr)
		}
		if found {
			if err := e.db.SetRemoteID(ctx, id, remoteID); err != nil {
				return false, err
			}
			l.RemoteID = &remoteID
		}
	}
	if l.RemoteID == nil {
		ok, err := e.createThenUpdate(ctx, l)
		if err != nil || !ok {
			return ok, err
		}
		return true, e.db.ClearChange(ctx, model.ChangeLogUpdate, entityID)
	}

	res, netErr := e.withLogRetry(ctx, fmt.Sprintf("update log %d", id), func() (api.LogResult, error) {
		return e.client.Logs.Update(ctx, *l.RemoteID, updateRequest(l))
	})
	if netErr != nil {
		return e.deferEntity(ctx, fmt.Sprintf("update log %d", id), netErr)
	}
	switch res.Outcome {
	case api.OK, api.Created:
		if err := e.db.MarkSynced(ctx, id, *l.RemoteID); err != nil {
			return false, err
		}
		return true, e.db.ClearChange(ctx, model.ChangeLogUpdate, entityID)
	case api.NotFound:
		// The server lost the row; recreate it.
		ok, err := e.createThenUpdate(ctx, l)
		if err != nil || !ok {
			return ok, err
		}
		return true, e.db.ClearChange(ctx, model.ChangeLogUpdate, entityID)
	case api.ServerError:
		return false, nil
	}
	e.log.Warn("server rejected log update, marking failed",
		"id", id, "status", res.StatusCode, "message", res.Message)
	if err := e.db.MarkFailed(ctx, id); err != nil {
		return false, err
	}
	return true, e.db.ClearChange(ctx, model.ChangeLogUpdate, entityID)
}

// lookupRemoteID searches the server's logs for the badge for one matching
// this log's client id.
func (e *Engine) lookupRemoteID(ctx context.Context, l *model.TimeLog) (int64, bool, error) {
	logs, err := e.client.Logs.List(ctx, api.ListFilter{Badge: l.Badge})
	if err != nil {
		return 0, false, err
	}
	for _, remote := range logs {
		if remote.ClientID == l.ClientID {
			return remote.ID, true, nil
		}
	}
	return 0, false, nil
}

// createThenUpdate recreates a log server-side, then lands the clock-out.
// Creation is idempotent by client id, so a server that actually has the
// row just hands back its id. Returns false with a nil error when the
// server deferred the attempt.
func (e *Engine) createThenUpdate(ctx context.Context, l *model.TimeLog) (bool, error) {
	created, netErr := e.withLogRetry(ctx, fmt.Sprintf("recreate log %d", l.ID), func() (api.LogResult, error) {
		return e.client.Logs.Create(ctx, createRequest(l))
	})
	if netErr != nil {
		return e.deferEntity(ctx, fmt.Sprintf("recreate log %d", l.ID), netErr)
	}
	switch created.Outcome {
	case api.OK, api.Created:
	case api.Conflict:
		return true, e.resolveOpenLogConflict(ctx, l)
	case api.ServerError:
		return false, nil
	default:
		e.log.Warn("server rejected log recreate, marking failed",
			"id", l.ID, "status", created.StatusCode, "message", created.Message)
		return true, e.db.MarkFailed(ctx, l.ID)
	}

	if err := e.db.SetRemoteID(ctx, l.ID, created.RemoteID); err != nil {
		return false, err
	}
	if l.ClockOut != nil {
		updated, netErr := e.withLogRetry(ctx, fmt.Sprintf("update log %d", l.ID), func() (api.LogResult, error) {
			return e.client.Logs.Update(ctx, created.RemoteID, updateRequest(l))
		})
		if netErr != nil {
			return e.deferEntity(ctx, fmt.Sprintf("update log %d", l.ID), netErr)
		}
		if updated.Outcome == api.ServerError {
			return false, nil
		}
		if !updated.Outcome.Applied() {
			e.log.Warn("server rejected clock-out after recreate, marking failed",
				"id", l.ID, "status", updated.StatusCode, "message", updated.Message)
			return true, e.db.MarkFailed(ctx, l.ID)
		}
	}
	return true, e.db.MarkSynced(ctx, l.ID, created.RemoteID)
}

func (e *Engine) pushLogDelete(ctx context.Context, entityID string) (bool, error) {
	id, err := strconv.ParseInt(entityID, 10, 64)
	if err != nil {
		e.log.Warn("dropping log_delete with non-numeric entity id", "entity", entityID)
		return true, e.db.ClearChange(ctx, model.ChangeLogDelete, entityID)
	}

	res, netErr := e.withRetry(ctx, fmt.Sprintf("delete log %d", id), func() (api.Result, error) {
		return e.client.Logs.Delete(ctx, id)
	})
	if netErr != nil {
		return e.deferEntity(ctx, fmt.Sprintf("delete log %d", id), netErr)
	}
	switch res.Outcome {
	case api.OK, api.Created, api.NotFound:
		// A 404 covers logs the server never saw: their ledger key is the
		// local id, which the server cannot know.
		return true, e.db.ClearChange(ctx, model.ChangeLogDelete, entityID)
	case api.ServerError:
		return false, nil
	}
	e.log.Warn("server rejected log delete",
		"id", id, "status", res.StatusCode, "message", res.Message)
	return true, e.db.ClearChange(ctx, model.ChangeLogDelete, entityID)
}

// deferEntity logs a transport failure and leaves the entity's ledger
// entry untouched. A canceled context still aborts the batch.
func (e *Engine) deferEntity(ctx context.Context, what string, netErr error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.log.Warn("network error, deferring", "call", what, "error", netErr)
	return false, nil
}

// withRetry re-issues a call while the server answers 5xx, sleeping 1s, 2s,
// then 3s between attempts. Transport errors abort immediately.
func (e *Engine) withRetry(ctx context.Context, what string, call func() (api.Result, error)) (api.Result, error) {
	res, err := call()
	if err != nil {
		return res, err
	}
	for attempt := 1; res.Outcome == api.ServerError && attempt <= serverErrorRetries; attempt++ {
		e.log.Warn("server error, retrying",
			"call", what, "status", res.StatusCode, "attempt", attempt)
		e.sleep(time.Duration(attempt) * time.Second)
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if res, err = call(); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (e *Engine) withLogRetry(ctx context.Context, what string, call func() (api.LogResult, error)) (api.LogResult, error) {
	res, err := call()
	if err != nil {
		return res, err
	}
	for attempt := 1; res.Outcome == api.ServerError && attempt <= serverErrorRetries; attempt++ {
		e.log.Warn("server error, retrying",
			"call", what, "status", res.StatusCode, "attempt", attempt)
		e.sleep(time.Duration(attempt) * time.Second)
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if res, err = call(); err != nil {
			return res, err
		}
	}
	return res, nil
}

func createRequest(l *model.TimeLog) *api.CreateLogRequest {
	return &api.CreateLogRequest{
		ClientID: l.ClientID,
		Badge:    l.Badge,
		ClockIn:  l.ClockIn,
		ClockOut: l.ClockOut,
		DeviceID: l.DeviceID,
		DeviceTS: l.DeviceTS,
	}
}

func updateRequest(l *model.TimeLog) *api.UpdateLogRequest {
	req := &api.UpdateLogRequest{
		ClientID: l.ClientID,
		DeviceID: l.DeviceID,
		DeviceTS: l.DeviceTS,
	}
	if l.ClockOut != nil {
		req.ClockOut = *l.ClockOut
	}
	return req
}
