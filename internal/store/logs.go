package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bigtime/bigtime/internal/model"
)

const logColumns = `id, client_id, remote_id, badge, clock_in, clock_out,
	device_id, device_ts, sync_state, created_at, updated_at`

// InsertLog stores a locally created log (a clock-in) in PENDING state and
// records a log_create in the ledger. At most one open log may exist per
// badge; a second clock-in returns ErrOpenShift.
func (db *DB) InsertLog(ctx context.Context, l *model.TimeLog) error {
	if l.ClientID == "" {
		l.ClientID = model.NewClientID()
	}
	l.SyncState = model.StatePending
	if err := l.Validate(); err != nil {
		return fmt.Errorf("invalid log: %w", err)
	}

	if l.Open() {
		if _, err := db.OpenLog(ctx, l.Badge); err == nil {
			return fmt.Errorf("badge %s: %w", l.Badge, ErrOpenShift)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
	}

	ts := now()
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO logs (client_id, remote_id, badge, clock_in, clock_out,
			device_id, device_ts, sync_state, created_at, updated_at)
		VALUES (?, NULL, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ClientID, l.Badge, l.ClockIn.UTC().Format(time.RFC3339),
		timeToNullString(l.ClockOut), l.DeviceID, timeToNullString(l.DeviceTS),
		model.StatePending, ts, ts)
	if err != nil {
		return fmt.Errorf("failed to insert log for %s: %w", l.Badge, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted log id: %w", err)
	}
	l.ID = id
	l.CreatedAt = parseTime(ts)
	l.UpdatedAt = l.CreatedAt

	return db.TrackChange(ctx, model.ChangeLogCreate, strconv.FormatInt(id, 10), "")
}

// InsertLogSynced stores a log that arrived from the server: pre-marked
// SYNCED with its remote id, and no ledger entry so it never echoes back.
func (db *DB) InsertLogSynced(ctx context.Context, l *model.TimeLog, remoteID int64) error {
	if l.ClientID == "" {
		l.ClientID = model.NewClientID()
	}
	ts := now()
	createdAt := ts
	if !l.CreatedAt.IsZero() {
		createdAt = l.CreatedAt.UTC().Format(time.RFC3339)
	}
	updatedAt := ts
	if !l.UpdatedAt.IsZero() {
		updatedAt = l.UpdatedAt.UTC().Format(time.RFC3339)
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO logs (client_id, remote_id, badge, clock_in, clock_out,
			device_id, device_ts, sync_state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ClientID, remoteID, l.Badge, l.ClockIn.UTC().Format(time.RFC3339),
		timeToNullString(l.ClockOut), l.DeviceID, timeToNullString(l.DeviceTS),
		model.StateSynced, createdAt, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert server log for %s: %w", l.Badge, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		l.ID = id
	}
	l.RemoteID = &remoteID
	l.SyncState = model.StateSynced
	return nil
}

// InsertLogAuthoritative stores a log on the authoritative side of a sync
// pair: pre-marked SYNCED, no remote id, no ledger entry. The row id is
// the identity clients will refer to. A second open shift for the badge
// returns ErrOpenShift; a repeated client id returns the existing row
// unchanged so creation stays idempotent.
func (db *DB) InsertLogAuthoritative(ctx context.Context, l *model.TimeLog) (existing bool, err error) {
	if l.ClientID != "" {
		prior, err := db.GetLogByClientID(ctx, l.ClientID)
		if err == nil {
			*l = *prior
			return true, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return false, err
		}
	} else {
		l.ClientID = model.NewClientID()
	}

	if l.Open() {
		if _, err := db.OpenLog(ctx, l.Badge); err == nil {
			return false, fmt.Errorf("badge %s: %w", l.Badge, ErrOpenShift)
		} else if !errors.Is(err, ErrNotFound) {
			return false, err
		}
	}

	ts := now()
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO logs (client_id, remote_id, badge, clock_in, clock_out,
			device_id, device_ts, sync_state, created_at, updated_at)
		VALUES (?, NULL, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ClientID, l.Badge, l.ClockIn.UTC().Format(time.RFC3339),
		timeToNullString(l.ClockOut), l.DeviceID, timeToNullString(l.DeviceTS),
		model.StateSynced, ts, ts)
	if err != nil {
		return false, fmt.Errorf("failed to insert log for %s: %w", l.Badge, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to read inserted log id: %w", err)
	}
	l.ID = id
	l.SyncState = model.StateSynced
	l.CreatedAt = parseTime(ts)
	l.UpdatedAt = l.CreatedAt
	return false, nil
}

// GetLogByID returns the log with the given local id, or ErrNotFound.
func (db *DB) GetLogByID(ctx context.Context, id int64) (*model.TimeLog, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+logColumns+" FROM logs WHERE id = ?", id)
	return db.scanOneLog(row, fmt.Sprintf("log %d", id))
}

// GetLogByClientID returns the log with the given client id, or ErrNotFound.
func (db *DB) GetLogByClientID(ctx context.Context, clientID string) (*model.TimeLog, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+logColumns+" FROM logs WHERE client_id = ?", clientID)
	return db.scanOneLog(row, "log with client_id "+clientID)
}

// OpenLog returns the badge's open log (nil clock_out), or ErrNotFound.
func (db *DB) OpenLog(ctx context.Context, badge string) (*model.TimeLog, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+logColumns+` FROM logs
		WHERE badge = ? AND clock_out IS NULL
		ORDER BY clock_in DESC LIMIT 1`, badge)
	return db.scanOneLog(row, "open log for "+badge)
}

// LogFilter narrows ListLogs results. Zero values mean "no filter".
type LogFilter struct {
	Badge string
	Start time.Time
	End   time.Time
}

// ListLogs returns logs matching the filter, newest clock-in first.
func (db *DB) ListLogs(ctx context.Context, f LogFilter) ([]*model.TimeLog, error) {
	query := "SELECT " + logColumns + " FROM logs"
	var conditions []string
	var args []any

	if f.Badge != "" {
		conditions = append(conditions, "badge = ?")
		args = append(args, f.Badge)
	}
	if !f.Start.IsZero() {
		conditions = append(conditions, "clock_in >= ?")
		args = append(args, f.Start.UTC().Format(time.RFC3339))
	}
	if !f.End.IsZero() {
		conditions = append(conditions, "clock_in <= ?")
		args = append(args, f.End.UTC().Format(time.RFC3339))
	}
	for i, c := range conditions {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY clock_in DESC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	defer rows.Close()
	return scanLogs(rows)
}

// PendingLogs returns all logs awaiting push, oldest first.
func (db *DB) PendingLogs(ctx context.Context) ([]*model.TimeLog, error) {
	return db.logsByState(ctx, model.StatePending)
}

// FailedLogs returns all logs in FAILED state, oldest first.
func (db *DB) FailedLogs(ctx context.Context) ([]*model.TimeLog, error) {
	return db.logsByState(ctx, model.StateFailed)
}

func (db *DB) logsByState(ctx context.Context, state model.SyncState) ([]*model.TimeLog, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT "+logColumns+` FROM logs
		WHERE sync_state = ? ORDER BY created_at`, state)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s logs: %w", state, err)
	}
	defer rows.Close()
	return scanLogs(rows)
}

// CountByState returns how many logs sit in PENDING and FAILED.
func (db *DB) CountByState(ctx context.Context) (pending, failed int, err error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT sync_state, COUNT(*) FROM logs GROUP BY sync_state")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count logs by state: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var state model.SyncState
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return 0, 0, fmt.Errorf("failed to scan state count: %w", err)
		}
		switch state {
		case model.StatePending:
			pending = n
		case model.StateFailed:
			failed = n
		}
	}
	return pending, failed, rows.Err()
}

// CloseOpenLog sets the clock-out time on the badge's open log, moves it to
// PENDING (a local edit invalidates any previous sync), and records a
// log_update in the ledger. Returns the closed log.
func (db *DB) CloseOpenLog(ctx context.Context, badge string, clockOut time.Time) (*model.TimeLog, error) {
	open, err := db.OpenLog(ctx, badge)
	if err != nil {
		return nil, err
	}
	if clockOut.Before(open.ClockIn) {
		return nil, fmt.Errorf("clock_out %s precedes clock_in %s",
			clockOut.Format(time.RFC3339), open.ClockIn.Format(time.RFC3339))
	}

	next, err := open.SyncState.Transition(model.StatePending)
	if err != nil {
		return nil, err
	}

	_, err = db.conn.ExecContext(ctx, `
		UPDATE logs SET clock_out = ?, sync_state = ?, updated_at = ? WHERE id = ?
	`, clockOut.UTC().Format(time.RFC3339), next, now(), open.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to close log %d: %w", open.ID, err)
	}

	if err := db.TrackChange(ctx, model.ChangeLogUpdate,
		strconv.FormatInt(open.ID, 10), ""); err != nil {
		return nil, err
	}
	return db.GetLogByID(ctx, open.ID)
}

// UpdateLogTimes edits a log's clock-in/clock-out (payroll corrections),
// moves it to PENDING, and records a log_update.
func (db *DB) UpdateLogTimes(ctx context.Context, id int64, clockIn time.Time, clockOut *time.Time) error {
	l, err := db.GetLogByID(ctx, id)
	if err != nil {
		return err
	}
	next, err := l.SyncState.Transition(model.StatePending)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `
		UPDATE logs SET clock_in = ?, clock_out = ?, sync_state = ?, updated_at = ?
		WHERE id = ?
	`, clockIn.UTC().Format(time.RFC3339), timeToNullString(clockOut), next, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update log %d: %w", id, err)
	}
	return db.TrackChange(ctx, model.ChangeLogUpdate, strconv.FormatInt(id, 10), "")
}

// UpdateClockOutNoTrack applies a server-sourced clock-out without ledger
// bookkeeping. The remote updated_at is preserved so last-writer-wins
// comparisons stay stable.
func (db *DB) UpdateClockOutNoTrack(ctx context.Context, id int64, clockOut *time.Time, updatedAt time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE logs SET clock_out = ?, updated_at = ? WHERE id = ?
	`, timeToNullString(clockOut), updatedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to apply server clock_out to log %d: %w", id, err)
	}
	return nil
}

// MarkSynced records that the server accepted the log: stores the remote id
// and moves the row to SYNCED. The transition is validated.
func (db *DB) MarkSynced(ctx context.Context, id, remoteID int64) error {
	l, err := db.GetLogByID(ctx, id)
	if err != nil {
		return err
	}
	next, err := l.SyncState.Transition(model.StateSynced)
	if err != nil {
		return fmt.Errorf("log %d: %w", id, err)
	}
	_, err = db.conn.ExecContext(ctx, `
		UPDATE logs SET remote_id = ?, sync_state = ?, updated_at = ? WHERE id = ?
	`, remoteID, next, now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark log %d synced: %w", id, err)
	}
	return nil
}

// MarkFailed moves the log to FAILED. Valid from any state.
func (db *DB) MarkFailed(ctx context.Context, id int64) error {
	return db.transitionLog(ctx, id, model.StateFailed)
}

// ResetToPending moves a FAILED log back to PENDING for retry.
func (db *DB) ResetToPending(ctx context.Context, id int64) error {
	return db.transitionLog(ctx, id, model.StatePending)
}

func (db *DB) transitionLog(ctx context.Context, id int64, to model.SyncState) error {
	l, err := db.GetLogByID(ctx, id)
	if err != nil {
		return err
	}
	next, err := l.SyncState.Transition(to)
	if err != nil {
		return fmt.Errorf("log %d: %w", id, err)
	}
	_, err = db.conn.ExecContext(ctx,
		"UPDATE logs SET sync_state = ?, updated_at = ? WHERE id = ?", next, now(), id)
	if err != nil {
		return fmt.Errorf("failed to set log %d state to %s: %w", id, to, err)
	}
	return nil
}

// ResetFailedToPending moves every FAILED log back to PENDING and returns
// how many rows changed. FAILED -> PENDING is always a legal transition, so
// this skips the per-row read.
func (db *DB) ResetFailedToPending(ctx context.Context) (int, error) {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE logs SET sync_state = ?, updated_at = ? WHERE sync_state = ?
	`, model.StatePending, now(), model.StateFailed)
	if err != nil {
		return 0, fmt.Errorf("failed to reset failed logs: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// SetRemoteID stores the server id for a log without changing sync state.
// Used mid-way through the create-then-update fallback, where the row stays
// PENDING until the closing update also lands.
func (db *DB) SetRemoteID(ctx context.Context, id, remoteID int64) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE logs SET remote_id = ? WHERE id = ?", remoteID, id)
	if err != nil {
		return fmt.Errorf("failed to set remote id on log %d: %w", id, err)
	}
	return nil
}

// RepairSyncIdentity backfills client_id/device_id on PENDING or FAILED
// logs that are missing them (rows from before the sync columns existed)
// and resets them to PENDING so they can push. Returns the repaired count.
func (db *DB) RepairSyncIdentity(ctx context.Context, deviceID string) (int, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, client_id, device_id FROM logs
		WHERE sync_state IN (?, ?)
		  AND (client_id IS NULL OR client_id = '' OR device_id IS NULL OR device_id = '')
		ORDER BY created_at
	`, model.StatePending, model.StateFailed)
	if err != nil {
		return 0, fmt.Errorf("failed to find logs needing repair: %w", err)
	}
	type repair struct {
		id       int64
		clientID string
		deviceID string
	}
	var repairs []repair
	for rows.Next() {
		var r repair
		var clientID, devID sql.NullString
		if err := rows.Scan(&r.id, &clientID, &devID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan repair row: %w", err)
		}
		r.clientID = clientID.String
		if r.clientID == "" {
			r.clientID = model.NewClientID()
		}
		r.deviceID = devID.String
		if r.deviceID == "" {
			r.deviceID = deviceID
		}
		repairs = append(repairs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating repair rows: %w", err)
	}

	for _, r := range repairs {
		_, err := db.conn.ExecContext(ctx, `
			UPDATE logs SET client_id = ?, device_id = ?, sync_state = ?, updated_at = ?
			WHERE id = ?
		`, r.clientID, r.deviceID, model.StatePending, now(), r.id)
		if err != nil {
			return 0, fmt.Errorf("failed to repair log %d: %w", r.id, err)
		}
	}
	return len(repairs), nil
}

// DeleteLog removes a log row and records a log_delete keyed by the remote
// id when the server knows the row, the local id otherwise.
func (db *DB) DeleteLog(ctx context.Context, id int64) error {
	l, err := db.GetLogByID(ctx, id)
	if err != nil {
		return err
	}
	entityID := strconv.FormatInt(l.ID, 10)
	if l.RemoteID != nil {
		entityID = strconv.FormatInt(*l.RemoteID, 10)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM logs WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete log %d: %w", id, err)
	}
	if err := trackChangeTx(ctx, tx, model.ChangeLogDelete, entityID, ""); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit log delete: %w", err)
	}
	return nil
}

// DeleteLogNoTrack removes a log row without ledger bookkeeping (server
// side, or discarding a locally resolved duplicate).
func (db *DB) DeleteLogNoTrack(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM logs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete log %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("log %d: %w", id, ErrNotFound)
	}
	return nil
}

func (db *DB) scanOneLog(row rowScanner, what string) (*model.TimeLog, error) {
	l, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	return l, nil
}

func scanLog(row rowScanner) (*model.TimeLog, error) {
	var l model.TimeLog
	var clientID, deviceID, clockOut, deviceTS sql.NullString
	var remoteID sql.NullInt64
	var clockIn, createdAt, updatedAt string

	err := row.Scan(&l.ID, &clientID, &remoteID, &l.Badge, &clockIn, &clockOut,
		&deviceID, &deviceTS, &l.SyncState, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	l.ClientID = clientID.String
	if remoteID.Valid {
		l.RemoteID = &remoteID.Int64
	}
	l.ClockIn = parseTime(clockIn)
	l.ClockOut = nullStringToTime(clockOut)
	l.DeviceID = deviceID.String
	l.DeviceTS = nullStringToTime(deviceTS)
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)
	return &l, nil
}

func scanLogs(rows *sql.Rows) ([]*model.TimeLog, error) {
	var logs []*model.TimeLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logs: %w", err)
	}
	return logs, nil
}
