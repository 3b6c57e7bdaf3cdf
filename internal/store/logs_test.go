package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bigtime/bigtime/internal/model"
)

func clockIn(t *testing.T, db *DB, badge string) *model.TimeLog {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	l := &model.TimeLog{
		Badge:    badge,
		ClockIn:  now,
		DeviceID: "bigtime-test-0000",
		DeviceTS: &now,
	}
	if err := db.InsertLog(context.Background(), l); err != nil {
		t.Fatalf("InsertLog(%s): %v", badge, err)
	}
	return l
}

func TestInsertLogAssignsIdentity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	addEmployee(t, db, "100", "Worker")
	l := clockIn(t, db, "100")

	if l.ClientID == "" {
		t.Error("InsertLog left client_id empty")
	}
	if l.SyncState != model.StatePending {
		t.Errorf("new log state = %s, want pending", l.SyncState)
	}

	got, err := db.GetLogByClientID(ctx, l.ClientID)
	if err != nil {
		t.Fatalf("GetLogByClientID: %v", err)
	}
	if got.ID != l.ID || got.Badge != "100" {
		t.Errorf("lookup mismatch: %+v", got)
	}

	if !changeKeys(t, db)["log_create:1"] {
		t.Error("clock-in did not record a log_create")
	}
}

func TestSecondOpenShiftRejected(t *testing.T) {
	db := newTestDB(t)

	addEmployee(t, db, "100", "Worker")
	clockIn(t, db, "100")

	now := time.Now().UTC()
	err := db.InsertLog(context.Background(), &model.TimeLog{Badge: "100", ClockIn: now})
	if !errors.Is(err, ErrOpenShift) {
		t.Errorf("second clock-in: got %v, want ErrOpenShift", err)
	}
}

func TestCloseOpenLog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	addEmployee(t, db, "100", "Worker")
	l := clockIn(t, db, "100")

	out := l.ClockIn.Add(8 * time.Hour)
	closed, err := db.CloseOpenLog(ctx, "100", out)
	if err != nil {
		t.Fatalf("CloseOpenLog: %v", err)
	}
	if closed.ClockOut == nil || !closed.ClockOut.Equal(out) {
		t.Errorf("clock_out = %v, want %v", closed.ClockOut, out)
	}
	if closed.SyncState != model.StatePending {
		t.Errorf("closed log state = %s, want pending", closed.SyncState)
	}

	if _, err := db.OpenLog(ctx, "100"); !errors.Is(err, ErrNotFound) {
		t.Errorf("OpenLog after close: %v, want ErrNotFound", err)
	}

	// Closing before opening is nonsense.
	l2 := clockIn(t, db, "100")
	if _, err := db.CloseOpenLog(ctx, "100", l2.ClockIn.Add(-time.Hour)); err == nil {
		t.Error("accepted clock_out before clock_in")
	}
}

func TestStateTransitionsEnforced(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	addEmployee(t, db, "100", "Worker")
	l := clockIn(t, db, "100")

	if err := db.MarkSynced(ctx, l.ID, 42); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	got, _ := db.GetLogByID(ctx, l.ID)
	if got.SyncState != model.StateSynced || got.RemoteID == nil || *got.RemoteID != 42 {
		t.Errorf("after MarkSynced: %+v", got)
	}

	// SYNCED -> PENDING is not reachable via ResetToPending's intent, but
	// the transition itself is legal (local edits reopen the row). FAILED
	// -> SYNCED must be rejected.
	if err := db.MarkFailed(ctx, l.ID); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := db.MarkSynced(ctx, l.ID, 43); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("failed->synced: got %v, want ErrInvalidTransition", err)
	}

	if err := db.ResetToPending(ctx, l.ID); err != nil {
		t.Fatalf("ResetToPending: %v", err)
	}
	got, _ = db.GetLogByID(ctx, l.ID)
	if got.SyncState != model.StatePending {
		t.Errorf("after reset: %s", got.SyncState)
	}
}

func TestResetFailedToPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	addEmployee(t, db, "100", "Worker")
	addEmployee(t, db, "101", "Other")
	l1 := clockIn(t, db, "100")
	l2 := clockIn(t, db, "101")

	if err := db.MarkFailed(ctx, l1.ID); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkFailed(ctx, l2.ID); err != nil {
		t.Fatal(err)
	}

	n, err := db.ResetFailedToPending(ctx)
	if err != nil {
		t.Fatalf("ResetFailedToPending: %v", err)
	}
	if n != 2 {
		t.Errorf("reset %d rows, want 2", n)
	}
	pending, failed, err := db.CountByState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pending != 2 || failed != 0 {
		t.Errorf("pending=%d failed=%d after reset", pending, failed)
	}
}

func TestUpdateLogTimesReopensRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	addEmployee(t, db, "100", "Worker")
	l := clockIn(t, db, "100")
	if err := db.MarkSynced(ctx, l.ID, 42); err != nil {
		t.Fatal(err)
	}

	in := l.ClockIn.Add(-time.Hour)
	out := in.Add(9 * time.Hour)
	if err := db.UpdateLogTimes(ctx, l.ID, in, &out); err != nil {
		t.Fatalf("UpdateLogTimes: %v", err)
	}

	got, err := db.GetLogByID(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.ClockIn.Equal(in) || got.ClockOut == nil || !got.ClockOut.Equal(out) {
		t.Errorf("times not applied: in=%v out=%v", got.ClockIn, got.ClockOut)
	}
	if got.SyncState != model.StatePending {
		t.Errorf("edited log state = %s, want pending", got.SyncState)
	}
	if !changeKeys(t, db)["log_update:1"] {
		t.Error("edit did not record a log_update")
	}

	if err := db.UpdateLogTimes(ctx, 999, in, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("edit of missing log: got %v, want ErrNotFound", err)
	}
}

func TestDeleteLogKeyedByRemoteID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	addEmployee(t, db, "100", "Worker")
	l := clockIn(t, db, "100")
	if err := db.MarkSynced(ctx, l.ID, 9001); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteLog(ctx, l.ID); err != nil {
		t.Fatalf("DeleteLog: %v", err)
	}
	if _, err := db.GetLogByID(ctx, l.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted log still readable: %v", err)
	}
	if !changeKeys(t, db)["log_delete:9001"] {
		t.Errorf("delete not keyed by remote id: %v", changeKeys(t, db))
	}

	// A row the server never saw is keyed by its local id; the server 404s
	// on it, which counts as success.
	l2 := clockIn(t, db, "100")
	if err := db.DeleteLog(ctx, l2.ID); err != nil {
		t.Fatalf("DeleteLog unsynced: %v", err)
	}
	if !changeKeys(t, db)["log_delete:2"] {
		t.Errorf("unsynced delete not keyed by local id: %v", changeKeys(t, db))
	}

	if err := db.DeleteLog(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete of missing log: got %v, want ErrNotFound", err)
	}
}

func TestRepairSyncIdentity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	addEmployee(t, db, "100", "Worker")
	// Simulate a row created before the sync columns existed.
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO logs (client_id, badge, clock_in, sync_state, created_at, updated_at)
		VALUES ('', '100', ?, 'pending', ?, ?)
	`, now(), now(), now())
	if err != nil {
		t.Fatalf("raw insert: %v", err)
	}

	n, err := db.RepairSyncIdentity(ctx, "bigtime-host-1234")
	if err != nil {
		t.Fatalf("RepairSyncIdentity: %v", err)
	}
	if n != 1 {
		t.Fatalf("repaired %d rows, want 1", n)
	}

	logs, err := db.PendingLogs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].ClientID == "" || logs[0].DeviceID != "bigtime-host-1234" {
		t.Errorf("repair left %+v", logs[0])
	}
}

func TestInsertLogAuthoritativeIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	addEmployee(t, db, "100", "Worker")
	now := time.Now().UTC().Truncate(time.Second)

	l := &model.TimeLog{ClientID: model.NewClientID(), Badge: "100", ClockIn: now}
	existing, err := db.InsertLogAuthoritative(ctx, l)
	if err != nil {
		t.Fatalf("InsertLogAuthoritative: %v", err)
	}
	if existing {
		t.Error("first insert reported existing")
	}
	if l.SyncState != model.StateSynced {
		t.Errorf("authoritative row state = %s, want synced", l.SyncState)
	}

	repeat := &model.TimeLog{ClientID: l.ClientID, Badge: "100", ClockIn: now}
	existing, err = db.InsertLogAuthoritative(ctx, repeat)
	if err != nil {
		t.Fatalf("repeat insert: %v", err)
	}
	if !existing || repeat.ID != l.ID {
		t.Errorf("repeat: existing=%v id=%d, want existing id %d", existing, repeat.ID, l.ID)
	}

	// A different client clocking the same badge in hits the open-shift
	// guard, not idempotency.
	other := &model.TimeLog{ClientID: model.NewClientID(), Badge: "100", ClockIn: now}
	if _, err := db.InsertLogAuthoritative(ctx, other); !errors.Is(err, ErrOpenShift) {
		t.Errorf("conflicting open shift: got %v, want ErrOpenShift", err)
	}

	if n, _ := db.CountPendingChanges(ctx); n != 0 {
		t.Errorf("authoritative inserts touched the ledger: %d entries", n)
	}
}

func TestListLogsFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	addEmployee(t, db, "100", "Worker")
	addEmployee(t, db, "101", "Other")

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i, badge := range []string{"100", "101", "100"} {
		in := base.AddDate(0, 0, i)
		out := in.Add(8 * time.Hour)
		l := &model.TimeLog{Badge: badge, ClockIn: in, ClockOut: &out}
		if err := db.InsertLog(ctx, l); err != nil {
			t.Fatalf("InsertLog: %v", err)
		}
	}

	logs, err := db.ListLogs(ctx, LogFilter{Badge: "100"})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Errorf("badge filter: %d logs, want 2", len(logs))
	}

	logs, err = db.ListLogs(ctx, LogFilter{Start: base.AddDate(0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Errorf("start filter: %d logs, want 2", len(logs))
	}

	logs, err = db.ListLogs(ctx, LogFilter{Badge: "100", End: base.Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Errorf("combined filter: %d logs, want 1", len(logs))
	}
}
