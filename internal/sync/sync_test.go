package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/bigtime/bigtime/internal/api"
	"github.com/bigtime/bigtime/internal/model"
	"github.com/bigtime/bigtime/internal/server"
	"github.com/bigtime/bigtime/internal/store"
)

const testAPIKey = "test-key"

func newTestDB(t *testing.T, name string) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return db
}

// harness wires a client engine to a real server instance backed by its
// own store, the same pairing production runs.
type harness struct {
	engine   *Engine
	client   *store.DB
	serverDB *store.DB
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clientDB := newTestDB(t, "client.db")
	serverDB := newTestDB(t, "server.db")

	srv := httptest.NewServer(server.New(serverDB, testAPIKey, nil).Router())
	t.Cleanup(srv.Close)

	apiClient := api.NewClient(srv.URL, testAPIKey, 5*time.Second)
	eng := NewEngine(clientDB, apiClient, "bigtime-test-0000", nil)
	eng.sleep = func(time.Duration) {}
	return &harness{engine: eng, client: clientDB, serverDB: serverDB}
}

// stubEngine points an engine at an arbitrary handler for failure-mode
// tests the real server cannot produce.
func stubEngine(t *testing.T, handler http.Handler) (*Engine, *store.DB) {
	t.Helper()
	clientDB := newTestDB(t, "client.db")
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	apiClient := api.NewClient(srv.URL, testAPIKey, 5*time.Second)
	eng := NewEngine(clientDB, apiClient, "bigtime-test-0000", nil)
	eng.sleep = func(time.Duration) {}
	return eng, clientDB
}

func addEmployee(t *testing.T, db *store.DB, badge, name string) {
	t.Helper()
	e := &model.Employee{Badge: badge, Name: name, Period: model.PayHourly, Rate: 20}
	if err := db.InsertEmployee(context.Background(), e); err != nil {
		t.Fatalf("InsertEmployee(%s): %v", badge, err)
	}
}

func clockIn(t *testing.T, db *store.DB, badge string) *model.TimeLog {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	l := &model.TimeLog{Badge: badge, ClockIn: now, DeviceID: "bigtime-test-0000", DeviceTS: &now}
	if err := db.InsertLog(context.Background(), l); err != nil {
		t.Fatalf("InsertLog(%s): %v", badge, err)
	}
	return l
}

func ledgerSize(t *testing.T, db *store.DB) int {
	t.Helper()
	n, err := db.CountPendingChanges(context.Background())
	if err != nil {
		t.Fatalf("CountPendingChanges: %v", err)
	}
	return n
}

func TestPushEmployeeAndLog(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	addEmployee(t, h.client, "100", "Ada")
	l := clockIn(t, h.client, "100")

	ok, err := h.engine.SyncOutbound(ctx)
	if err != nil {
		t.Fatalf("SyncOutbound: %v", err)
	}
	if !ok {
		t.Fatal("outbound reported incomplete")
	}
	if n := ledgerSize(t, h.client); n != 0 {
		t.Errorf("ledger not drained: %d entries", n)
	}

	got, err := h.client.GetLogByID(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SyncState != model.StateSynced || got.RemoteID == nil {
		t.Errorf("log after push: state=%s remote=%v", got.SyncState, got.RemoteID)
	}

	// Server side got both rows.
	if _, err := h.serverDB.GetEmployeeByBadge(ctx, "100"); err != nil {
		t.Errorf("employee missing server-side: %v", err)
	}
	serverLogs, err := h.serverDB.ListLogs(ctx, store.LogFilter{Badge: "100"})
	if err != nil {
		t.Fatal(err)
	}
	if len(serverLogs) != 1 {
		t.Errorf("server has %d logs, want 1", len(serverLogs))
	}
}

func TestIdempotentPush(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	addEmployee(t, h.client, "100", "Ada")
	l := clockIn(t, h.client, "100")

	if ok, err := h.engine.SyncOutbound(ctx); err != nil || !ok {
		t.Fatalf("first push: ok=%v err=%v", ok, err)
	}
	first, err := h.client.GetLogByID(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a lost response: the row drops back to pending and the
	// create replays against a server that already has it.
	if err := h.client.MarkFailed(ctx, l.ID); err != nil {
		t.Fatal(err)
	}
	if err := h.client.ResetToPending(ctx, l.ID); err != nil {
		t.Fatal(err)
	}
	if err := h.client.TrackChange(ctx, model.ChangeLogCreate, "1", ""); err != nil {
		t.Fatal(err)
	}
	if ok, err := h.engine.SyncOutbound(ctx); err != nil || !ok {
		t.Fatalf("second push: ok=%v err=%v", ok, err)
	}

	second, err := h.client.GetLogByID(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *second.RemoteID != *first.RemoteID {
		t.Errorf("remote id moved: %d -> %d", *first.RemoteID, *second.RemoteID)
	}
	serverLogs, err := h.serverDB.ListLogs(ctx, store.LogFilter{Badge: "100"})
	if err != nil {
		t.Fatal(err)
	}
	if len(serverLogs) != 1 {
		t.Errorf("duplicate server rows after replay: %d", len(serverLogs))
	}
}

func TestClockOutReachesServer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	addEmployee(t, h.client, "100", "Ada")
	l := clockIn(t, h.client, "100")
	if ok, _ := h.engine.SyncOutbound(ctx); !ok {
		t.Fatal("push failed")
	}

	out := l.ClockIn.Add(4 * time.Hour)
	if _, err := h.client.CloseOpenLog(ctx, "100", out); err != nil {
		t.Fatal(err)
	}
	if ok, err := h.engine.SyncOutbound(ctx); err != nil || !ok {
		t.Fatalf("push clock-out: ok=%v err=%v", ok, err)
	}

	serverLogs, err := h.serverDB.ListLogs(ctx, store.LogFilter{Badge: "100"})
	if err != nil {
		t.Fatal(err)
	}
	if len(serverLogs) != 1 || serverLogs[0].ClockOut == nil || !serverLogs[0].ClockOut.Equal(out) {
		t.Errorf("server clock_out = %+v, want %v", serverLogs[0].ClockOut, out)
	}
}

func TestLogUpdateWithoutRemoteIDFallsBackToCreate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	addEmployee(t, h.client, "100", "Ada")
	l := clockIn(t, h.client, "100")
	// Close before the create was ever pushed; the ledger now carries both
	// a log_create and a log_update for the same row.
	out := l.ClockIn.Add(time.Hour)
	if _, err := h.client.CloseOpenLog(ctx, "100", out); err != nil {
		t.Fatal(err)
	}

	if ok, err := h.engine.SyncOutbound(ctx); err != nil || !ok {
		t.Fatalf("SyncOutbound: ok=%v err=%v", ok, err)
	}
	got, err := h.client.GetLogByID(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SyncState != model.StateSynced || got.RemoteID == nil {
		t.Errorf("after fallback: state=%s remote=%v", got.SyncState, got.RemoteID)
	}
	serverLogs, err := h.serverDB.ListLogs(ctx, store.LogFilter{Badge: "100"})
	if err != nil {
		t.Fatal(err)
	}
	if len(serverLogs) != 1 || serverLogs[0].ClockOut == nil {
		t.Errorf("server logs after fallback: %+v", serverLogs)
	}
}

func TestDeletePrecedence(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	addEmployee(t, h.client, "100", "Ada")
	l1 := clockIn(t, h.client, "100")
	if _, err := h.client.CloseOpenLog(ctx, "100", l1.ClockIn.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	clockIn(t, h.client, "100")
	if ok, _ := h.engine.SyncOutbound(ctx); !ok {
		t.Fatal("initial push failed")
	}

	// Delete locally; replay must remove the server's logs before the
	// employee regardless of ledger insertion order.
	if err := h.client.DeleteEmployee(ctx, "100"); err != nil {
		t.Fatal(err)
	}
	if ok, err := h.engine.SyncOutbound(ctx); err != nil || !ok {
		t.Fatalf("delete push: ok=%v err=%v", ok, err)
	}

	if _, err := h.serverDB.GetEmployeeByBadge(ctx, "100"); err == nil {
		t.Error("employee survived server-side")
	}
	serverLogs, err := h.serverDB.ListLogs(ctx, store.LogFilter{Badge: "100"})
	if err != nil {
		t.Fatal(err)
	}
	if len(serverLogs) != 0 {
		t.Errorf("server logs survived: %d", len(serverLogs))
	}
	if n := ledgerSize(t, h.client); n != 0 {
		t.Errorf("ledger not drained after delete: %d", n)
	}
}

func TestConflictDifferentClientID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	addEmployee(t, h.client, "100", "Ada")
	if ok, _ := h.engine.SyncOutbound(ctx); !ok {
		t.Fatal("employee push failed")
	}

	// Another device already clocked this badge in server-side.
	otherIn := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	other := &model.TimeLog{ClientID: model.NewClientID(), Badge: "100", ClockIn: otherIn}
	if _, err := h.serverDB.InsertLogAuthoritative(ctx, other); err != nil {
		t.Fatal(err)
	}

	l := clockIn(t, h.client, "100")
	if ok, err := h.engine.SyncOutbound(ctx); err != nil || !ok {
		t.Fatalf("conflict push: ok=%v err=%v", ok, err)
	}

	got, err := h.client.GetLogByID(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SyncState != model.StateFailed {
		t.Errorf("losing clock-in state = %s, want failed", got.SyncState)
	}
	if n := ledgerSize(t, h.client); n != 0 {
		t.Errorf("conflict left ledger entries: %d", n)
	}
	serverLogs, err := h.serverDB.ListLogs(ctx, store.LogFilter{Badge: "100"})
	if err != nil {
		t.Fatal(err)
	}
	if len(serverLogs) != 1 {
		t.Errorf("conflict created a duplicate: %d server logs", len(serverLogs))
	}
}

func TestConflictSameClientID(t *testing.T) {
	// The real server answers a repeated client id with 200, so the 409
	// same-id case (response lost mid-flight, server state racing) needs a
	// stub that always conflicts but lists our own log as the open one.
	clientID := ""
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/logs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "already clocked in"})
	})
	mux.HandleFunc("GET /api/v1/logs", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{"logs": []map[string]any{{
				"id":         777,
				"client_id":  clientID,
				"badge":      "100",
				"clock_in":   time.Now().UTC().Format(time.RFC3339),
				"updated_at": time.Now().UTC().Format(time.RFC3339),
			}}},
		})
	})
	eng, clientDB := stubEngine(t, mux)
	ctx := context.Background()

	addEmployee(t, clientDB, "100", "Ada")
	// Drop the employee_create so only the log goes out.
	if err := clientDB.ClearChange(ctx, model.ChangeEmployeeCreate, "100"); err != nil {
		t.Fatal(err)
	}
	l := clockIn(t, clientDB, "100")
	clientID = l.ClientID

	if ok, err := eng.SyncOutbound(ctx); err != nil || !ok {
		t.Fatalf("SyncOutbound: ok=%v err=%v", ok, err)
	}
	got, err := clientDB.GetLogByID(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SyncState != model.StateSynced || got.RemoteID == nil || *got.RemoteID != 777 {
		t.Errorf("same-id conflict: state=%s remote=%v, want synced/777", got.SyncState, got.RemoteID)
	}
}

func TestServerErrorLeavesPending(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/logs", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "boom"})
	})
	eng, clientDB := stubEngine(t, mux)
	ctx := context.Background()

	addEmployee(t, clientDB, "100", "Ada")
	if err := clientDB.ClearChange(ctx, model.ChangeEmployeeCreate, "100"); err != nil {
		t.Fatal(err)
	}
	l := clockIn(t, clientDB, "100")

	ok, err := eng.SyncOutbound(ctx)
	if err != nil {
		t.Fatalf("SyncOutbound: %v", err)
	}
	if ok {
		t.Error("outbound reported complete despite 5xx")
	}
	if attempts != 1+3 {
		t.Errorf("made %d attempts, want 4 (initial + 3 retries)", attempts)
	}

	got, err := clientDB.GetLogByID(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SyncState != model.StatePending {
		t.Errorf("state after 5xx = %s, want pending", got.SyncState)
	}
	if n := ledgerSize(t, clientDB); n != 1 {
		t.Errorf("ledger entry count = %d, want 1 (left for next pass)", n)
	}
}

func TestBadRequestMarksFailed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/logs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "bad payload"})
	})
	eng, clientDB := stubEngine(t, mux)
	ctx := context.Background()

	addEmployee(t, clientDB, "100", "Ada")
	if err := clientDB.ClearChange(ctx, model.ChangeEmployeeCreate, "100"); err != nil {
		t.Fatal(err)
	}
	l := clockIn(t, clientDB, "100")

	ok, err := eng.SyncOutbound(ctx)
	if err != nil || !ok {
		t.Fatalf("SyncOutbound: ok=%v err=%v", ok, err)
	}
	got, err := clientDB.GetLogByID(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SyncState != model.StateFailed {
		t.Errorf("state after 400 = %s, want failed", got.SyncState)
	}
	if n := ledgerSize(t, clientDB); n != 0 {
		t.Errorf("non-retryable entry not cleared: %d", n)
	}
}

func TestNetworkErrorLeavesLedgerUntouched(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing listens here anymore

	clientDB := newTestDB(t, "client.db")
	eng := NewEngine(clientDB, api.NewClient(url, testAPIKey, time.Second), "bigtime-test-0000", nil)
	eng.sleep = func(time.Duration) {}
	ctx := context.Background()

	addEmployee(t, clientDB, "100", "Ada")
	clockIn(t, clientDB, "100")
	before := ledgerSize(t, clientDB)

	ok, err := eng.SyncOutbound(ctx)
	if err != nil {
		t.Fatalf("SyncOutbound: %v", err)
	}
	if ok {
		t.Error("outbound reported complete with no server")
	}
	if after := ledgerSize(t, clientDB); after != before {
		t.Errorf("ledger changed offline: %d -> %d", before, after)
	}
}

func TestInboundPullsEmployeesAndLogs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Seed the server directly.
	serverEmp := &model.Employee{Badge: "200", Name: "Server Sue", Period: model.PayMonthly, Rate: 4000}
	if err := h.serverDB.InsertEmployeeNoTrack(ctx, serverEmp); err != nil {
		t.Fatal(err)
	}
	in := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	out := in.Add(time.Hour)
	serverLog := &model.TimeLog{ClientID: model.NewClientID(), Badge: "200", ClockIn: in, ClockOut: &out}
	if _, err := h.serverDB.InsertLogAuthoritative(ctx, serverLog); err != nil {
		t.Fatal(err)
	}

	ok, err := h.engine.SyncInbound(ctx)
	if err != nil || !ok {
		t.Fatalf("SyncInbound: ok=%v err=%v", ok, err)
	}

	emp, err := h.client.GetEmployeeByBadge(ctx, "200")
	if err != nil {
		t.Fatalf("pulled employee missing: %v", err)
	}
	if emp.Name != "Server Sue" || emp.Period != model.PayMonthly || emp.Rate != 4000 {
		t.Errorf("round-trip mismatch: %+v", emp)
	}

	got, err := h.client.GetLogByClientID(ctx, serverLog.ClientID)
	if err != nil {
		t.Fatalf("pulled log missing: %v", err)
	}
	if got.SyncState != model.StateSynced || got.RemoteID == nil || *got.RemoteID != serverLog.ID {
		t.Errorf("pulled log: state=%s remote=%v", got.SyncState, got.RemoteID)
	}
	if !got.ClockIn.Equal(in) || got.ClockOut == nil || !got.ClockOut.Equal(out) {
		t.Errorf("pulled log times: in=%v out=%v", got.ClockIn, got.ClockOut)
	}
	// Server-sourced rows must not echo back out.
	if n := ledgerSize(t, h.client); n != 0 {
		t.Errorf("inbound pull created %d ledger entries", n)
	}
}

func TestNoResurrection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	addEmployee(t, h.client, "100", "Ada")
	if ok, _ := h.engine.SyncOutbound(ctx); !ok {
		t.Fatal("push failed")
	}

	// Delete locally but do not push; the server still lists the badge.
	if err := h.client.DeleteEmployee(ctx, "100"); err != nil {
		t.Fatal(err)
	}
	if ok, err := h.engine.SyncInbound(ctx); err != nil || !ok {
		t.Fatalf("SyncInbound: ok=%v err=%v", ok, err)
	}

	if _, err := h.client.GetEmployeeByBadge(ctx, "100"); err == nil {
		t.Error("pending delete was resurrected by the pull")
	}
}

func TestInboundLastWriterWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	addEmployee(t, h.client, "100", "Ada")
	l := clockIn(t, h.client, "100")
	if ok, _ := h.engine.SyncOutbound(ctx); !ok {
		t.Fatal("push failed")
	}

	// The server closes the shift (kiosk on another device).
	remote, err := h.client.GetLogByID(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	out := l.ClockIn.Add(3 * time.Hour)
	if err := h.serverDB.UpdateClockOutNoTrack(ctx, *remote.RemoteID, &out,
		time.Now().UTC().Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	if ok, err := h.engine.SyncInbound(ctx); err != nil || !ok {
		t.Fatalf("SyncInbound: ok=%v err=%v", ok, err)
	}
	got, err := h.client.GetLogByID(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ClockOut == nil || !got.ClockOut.Equal(out) {
		t.Errorf("newer server clock_out not applied: %v", got.ClockOut)
	}

	// An older server copy must not clobber the local row.
	older := out.Add(-2 * time.Hour)
	if err := h.serverDB.UpdateClockOutNoTrack(ctx, *remote.RemoteID, &older,
		time.Now().UTC().Add(-24*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if ok, err := h.engine.SyncInbound(ctx); err != nil || !ok {
		t.Fatalf("second SyncInbound: ok=%v err=%v", ok, err)
	}
	got, err = h.client.GetLogByID(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ClockOut == nil || !got.ClockOut.Equal(out) {
		t.Errorf("stale server clock_out clobbered local row: %v", got.ClockOut)
	}
}

func TestRetryFailedThenPush(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	addEmployee(t, h.client, "100", "Ada")
	l := clockIn(t, h.client, "100")
	if err := h.client.MarkFailed(ctx, l.ID); err != nil {
		t.Fatal(err)
	}

	n, err := h.engine.RetryFailed(ctx)
	if err != nil || n != 1 {
		t.Fatalf("RetryFailed: n=%d err=%v", n, err)
	}
	if ok, err := h.engine.SyncOutbound(ctx); err != nil || !ok {
		t.Fatalf("push after retry: ok=%v err=%v", ok, err)
	}
	got, err := h.client.GetLogByID(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SyncState != model.StateSynced {
		t.Errorf("state after retry+push = %s, want synced", got.SyncState)
	}
}

func TestStatusCounts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	addEmployee(t, h.client, "100", "Ada")
	addEmployee(t, h.client, "101", "Bob")
	l := clockIn(t, h.client, "100")
	clockIn(t, h.client, "101")
	if err := h.client.MarkFailed(ctx, l.ID); err != nil {
		t.Fatal(err)
	}

	s, err := h.engine.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if s.PendingLogs != 1 || s.FailedLogs != 1 {
		t.Errorf("pending=%d failed=%d, want 1/1", s.PendingLogs, s.FailedLogs)
	}
	if s.PendingChanges != 4 {
		t.Errorf("pending changes = %d, want 4", s.PendingChanges)
	}
	if s.LastSync != nil {
		t.Errorf("last sync before any sync: %v", s.LastSync)
	}
}

func TestStatusChangedEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	events := &recordingListener{}
	h.engine.Subscribe(events)

	addEmployee(t, h.client, "100", "Ada")
	if ok, _ := h.engine.SyncOutbound(ctx); !ok {
		t.Fatal("push failed")
	}
	if len(events.statuses) == 0 {
		t.Fatal("no StatusChanged events fired")
	}
	last := events.statuses[len(events.statuses)-1]
	if last.PendingChanges != 0 || last.LastSync == nil {
		t.Errorf("final status: %+v", last)
	}

	if ok, _ := h.engine.SyncInbound(ctx); !ok {
		t.Fatal("pull failed")
	}
	if !events.employeesSynced {
		t.Error("EmployeesSynced not fired by inbound pull")
	}
}

func TestInboundFailurePublishesStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing listens here anymore

	clientDB := newTestDB(t, "client.db")
	eng := NewEngine(clientDB, api.NewClient(url, testAPIKey, time.Second), "bigtime-test-0000", nil)
	events := &recordingListener{}
	eng.Subscribe(events)

	ok, err := eng.SyncInbound(context.Background())
	if err != nil {
		t.Fatalf("SyncInbound: %v", err)
	}
	if ok {
		t.Fatal("pull reported complete with no server")
	}
	if len(events.statuses) == 0 {
		t.Fatal("failed pull published no status")
	}
	if events.statuses[len(events.statuses)-1].Online {
		t.Error("unreachable server reported online")
	}
}

type recordingListener struct {
	statuses        []model.SyncStatus
	employeesSynced bool
}

func (r *recordingListener) StatusChanged(s model.SyncStatus) { r.statuses = append(r.statuses, s) }
func (r *recordingListener) EmployeesSynced()                 { r.employeesSynced = true }
