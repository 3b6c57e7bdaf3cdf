package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bigtime/bigtime/internal/model"
)

// The sync-changes ledger records every local mutation awaiting
// propagation. Entries are unique per (change_type, entity_id): recording
// the same key twice overwrites the payload and refreshes created_at, so
// only the latest mutation per key replays.

// TrackChange upserts a ledger entry.
func (db *DB) TrackChange(ctx context.Context, typ model.ChangeType, entityID, data string) error {
	rec := model.ChangeRecord{Type: typ, EntityID: entityID, Data: data}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid change: %w", err)
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sync_changes (change_type, entity_id, change_data, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(change_type, entity_id) DO UPDATE SET
			change_data = excluded.change_data,
			created_at = excluded.created_at
	`, typ, entityID, nullIfEmpty(data), now())
	if err != nil {
		return fmt.Errorf("failed to track %s for %s: %w", typ, entityID, err)
	}
	return nil
}

// trackChangeTx is TrackChange inside an existing transaction.
func trackChangeTx(ctx context.Context, tx *sql.Tx, typ model.ChangeType, entityID, data string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sync_changes (change_type, entity_id, change_data, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(change_type, entity_id) DO UPDATE SET
			change_data = excluded.change_data,
			created_at = excluded.created_at
	`, typ, entityID, nullIfEmpty(data), now())
	if err != nil {
		return fmt.Errorf("failed to track %s for %s: %w", typ, entityID, err)
	}
	return nil
}

// PendingChanges returns every ledger entry ordered by creation time.
// Replay ordering across buckets is the outbound engine's concern.
func (db *DB) PendingChanges(ctx context.Context) ([]model.ChangeRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT change_type, entity_id, change_data, created_at
		FROM sync_changes ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending changes: %w", err)
	}
	defer rows.Close()

	var changes []model.ChangeRecord
	for rows.Next() {
		var c model.ChangeRecord
		var data sql.NullString
		var createdAt string
		if err := rows.Scan(&c.Type, &c.EntityID, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		c.Data = data.String
		c.CreatedAt = parseTime(createdAt)
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating changes: %w", err)
	}
	return changes, nil
}

// CountPendingChanges returns the ledger size.
func (db *DB) CountPendingChanges(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_changes").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending changes: %w", err)
	}
	return n, nil
}

// ClearChange removes one ledger entry after the server confirmed it.
func (db *DB) ClearChange(ctx context.Context, typ model.ChangeType, entityID string) error {
	_, err := db.conn.ExecContext(ctx,
		"DELETE FROM sync_changes WHERE change_type = ? AND entity_id = ?", typ, entityID)
	if err != nil {
		return fmt.Errorf("failed to clear %s for %s: %w", typ, entityID, err)
	}
	return nil
}

// ClearAllChanges drains the ledger wholesale after a successful full sync.
func (db *DB) ClearAllChanges(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM sync_changes"); err != nil {
		return fmt.Errorf("failed to clear ledger: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
