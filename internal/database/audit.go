package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/studio-torajirou/kanrigamen/internal/models"
)

// InsertAudit records one staff mutation. The timestamp comes from the
// caller so service tests can pin it.
func (db *DB) InsertAudit(ctx context.Context, entry *models.AuditEntry) error {
	result, err := db.db.ExecContext(ctx,
		`INSERT INTO audit_log (action, target_id, actor, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.Action, entry.TargetID, entry.Actor, entry.Detail, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit entry id: %w", err)
	}
	entry.ID = id
	return nil
}

func (db *DB) RecentAudit(ctx context.Context, limit int) ([]*models.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, action, target_id, actor, detail, created_at
         FROM audit_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	return scanAuditRows(rows)
}

func (db *DB) AuditByTarget(ctx context.Context, targetID string) ([]*models.AuditEntry, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, action, target_id, actor, detail, created_at
         FROM audit_log WHERE target_id = ? ORDER BY created_at DESC, id DESC`, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log by target: %w", err)
	}
	defer rows.Close()

	return scanAuditRows(rows)
}

func scanAuditRows(rows *sql.Rows) ([]*models.AuditEntry, error) {
	var entries []*models.AuditEntry
	for rows.Next() {
		entry := &models.AuditEntry{}
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.TargetID, &entry.Actor, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}
	return entries, nil
}
