package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/bigtime/bigtime/internal/model"
)

const employeeColumns = `id, name, badge, phone_number, pin, department,
	date_of_birth, hire_date, deactivated, ssn, period, rate`

// InsertEmployee stores a new employee and records an employee_create in
// the ledger so the row propagates to the server.
func (db *DB) InsertEmployee(ctx context.Context, e *model.Employee) error {
	return db.insertEmployee(ctx, e, true)
}

// InsertEmployeeNoTrack stores a new employee without touching the ledger.
// Used for rows arriving from the server, which must not echo back out.
func (db *DB) InsertEmployeeNoTrack(ctx context.Context, e *model.Employee) error {
	return db.insertEmployee(ctx, e, false)
}

func (db *DB) insertEmployee(ctx context.Context, e *model.Employee, track bool) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid employee: %w", err)
	}
	if e.Period == "" {
		e.Period = model.PayHourly
	}

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO employees (name, badge, phone_number, pin, department,
			date_of_birth, hire_date, deactivated, ssn, period, rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Name, e.Badge, e.PhoneNumber, e.PIN, e.Department,
		e.DateOfBirth, e.HireDate, e.Deactivated, e.SSN, e.Period, e.Rate)
	if err != nil {
		return fmt.Errorf("failed to insert employee %s: %w", e.Badge, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}

	if track {
		if err := db.TrackChange(ctx, model.ChangeEmployeeCreate, e.Badge, ""); err != nil {
			return err
		}
	}
	return nil
}

// GetEmployeeByBadge returns the employee with the given badge, or
// ErrNotFound.
func (db *DB) GetEmployeeByBadge(ctx context.Context, badge string) (*model.Employee, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE badge = ?", badge)
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee %s: %w", badge, err)
	}
	return e, nil
}

// ListEmployees returns all employees ordered by badge.
func (db *DB) ListEmployees(ctx context.Context) ([]*model.Employee, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+employeeColumns+" FROM employees ORDER BY badge")
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []*model.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employees: %w", err)
	}
	return employees, nil
}

// UpdateEmployee replaces the mutable fields of the employee with the given
// badge and records an employee_update in the ledger.
func (db *DB) UpdateEmployee(ctx context.Context, e *model.Employee) error {
	if err := db.updateEmployee(ctx, e); err != nil {
		return err
	}
	return db.TrackChange(ctx, model.ChangeEmployeeUpdate, e.Badge, "")
}

// UpsertEmployeeNoTrack inserts or updates an employee from server data
// without recording a ledger entry.
func (db *DB) UpsertEmployeeNoTrack(ctx context.Context, e *model.Employee) error {
	_, err := db.GetEmployeeByBadge(ctx, e.Badge)
	if errors.Is(err, ErrNotFound) {
		return db.InsertEmployeeNoTrack(ctx, e)
	}
	if err != nil {
		return err
	}
	return db.updateEmployee(ctx, e)
}

func (db *DB) updateEmployee(ctx context.Context, e *model.Employee) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid employee: %w", err)
	}
	res, err := db.conn.ExecContext(ctx, `
		UPDATE employees
		SET name = ?, phone_number = ?, pin = ?, department = ?,
			date_of_birth = ?, hire_date = ?, deactivated = ?, ssn = ?,
			period = ?, rate = ?
		WHERE badge = ?
	`, e.Name, e.PhoneNumber, e.PIN, e.Department,
		e.DateOfBirth, e.HireDate, e.Deactivated, e.SSN,
		e.Period, e.Rate, e.Badge)
	if err != nil {
		return fmt.Errorf("failed to update employee %s: %w", e.Badge, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("employee %s: %w", e.Badge, ErrNotFound)
	}
	return nil
}

// RenameBadge atomically moves an employee and every one of their logs to a
// new badge, then records an employee_update for propagation. Rolls back on
// any failure.
func (db *DB) RenameBadge(ctx context.Context, oldBadge, newBadge string) error {
	if newBadge == "" {
		return fmt.Errorf("new badge is required")
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE employees SET badge = ? WHERE badge = ?", newBadge, oldBadge)
	if err != nil {
		return fmt.Errorf("failed to rename badge %s: %w", oldBadge, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("employee %s: %w", oldBadge, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE logs SET badge = ?, updated_at = ? WHERE badge = ?",
		newBadge, now(), oldBadge); err != nil {
		return fmt.Errorf("failed to move logs to badge %s: %w", newBadge, err)
	}

	if err := trackChangeTx(ctx, tx, model.ChangeEmployeeUpdate, newBadge, ""); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit badge rename: %w", err)
	}
	return nil
}

// DeleteEmployee removes an employee and all their logs in one transaction.
// Each log deletion is recorded in the ledger before the employee deletion
// so the log deletes replay ahead of the employee delete even for records
// created in the same instant.
func (db *DB) DeleteEmployee(ctx context.Context, badge string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Collect log ids first: deletions are keyed by remote id when the
	// server knows the row, local id otherwise (the server 404s on those,
	// which counts as success).
	rows, err := tx.QueryContext(ctx,
		"SELECT id, remote_id FROM logs WHERE badge = ?", badge)
	if err != nil {
		return fmt.Errorf("failed to collect logs for %s: %w", badge, err)
	}
	type logKey struct {
		id       int64
		remoteID sql.NullInt64
	}
	var keys []logKey
	for rows.Next() {
		var k logKey
		if err := rows.Scan(&k.id, &k.remoteID); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan log id: %w", err)
		}
		keys = append(keys, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating logs: %w", err)
	}

	for _, k := range keys {
		entityID := strconv.FormatInt(k.id, 10)
		if k.remoteID.Valid {
			entityID = strconv.FormatInt(k.remoteID.Int64, 10)
		}
		if err := trackChangeTx(ctx, tx, model.ChangeLogDelete, entityID, ""); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM logs WHERE badge = ?", badge); err != nil {
		return fmt.Errorf("failed to delete logs for %s: %w", badge, err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM employees WHERE badge = ?", badge)
	if err != nil {
		return fmt.Errorf("failed to delete employee %s: %w", badge, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("employee %s: %w", badge, ErrNotFound)
	}

	if err := trackChangeTx(ctx, tx, model.ChangeEmployeeDelete, badge, ""); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit employee delete: %w", err)
	}
	return nil
}

// DeleteEmployeeNoTrack removes an employee row only, without ledger
// bookkeeping. Used by the companion server, where the row is
// authoritative and has nothing to propagate.
func (db *DB) DeleteEmployeeNoTrack(ctx context.Context, badge string) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM employees WHERE badge = ?", badge)
	if err != nil {
		return fmt.Errorf("failed to delete employee %s: %w", badge, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("employee %s: %w", badge, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*model.Employee, error) {
	var e model.Employee
	var phone, pin, department, dob, hire, ssn sql.NullString
	err := row.Scan(&e.ID, &e.Name, &e.Badge, &phone, &pin, &department,
		&dob, &hire, &e.Deactivated, &ssn, &e.Period, &e.Rate)
	if err != nil {
		return nil, err
	}
	e.PhoneNumber = phone.String
	e.PIN = pin.String
	e.Department = department.String
	e.DateOfBirth = dob.String
	e.HireDate = hire.String
	e.SSN = ssn.String
	return &e, nil
}
