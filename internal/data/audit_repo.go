package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
)

// AuditRepo appends to the activity log.
type AuditRepo struct {
	DB    *sql.DB
	clock TimeProvider
}

// NewAuditRepo creates an AuditRepo.
func NewAuditRepo(db *sql.DB, clock TimeProvider) *AuditRepo {
	if clock == nil {
		clock = &RealTimeProvider{}
	}
	return &AuditRepo{DB: db, clock: clock}
}

// Record writes one activity log entry on behalf of entry.Actor.
func (r *AuditRepo) Record(ctx context.Context, entry model.AuditEntry) error {
	if entry.Action == "" {
		return fmt.Errorf("audit action is required")
	}
	if entry.Actor.UserID <= 0 {
		return fmt.Errorf("audit actor is required for %s", entry.Action)
	}
	subjects, err := json.Marshal(entry.Subjects)
	if err != nil {
		return fmt.Errorf("encode audit subjects: %w", err)
	}
	details, err := entry.DetailsJSON()
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.clock.Now()
	}
	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO activity_log (action, user_id, subjects, details, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, string(entry.Action), entry.Actor.UserID, subjects, details, createdAt.UTC()); err != nil {
		return dbErr("record audit entry", err)
	}
	return nil
}

// ListByAction returns the most recent entries for an action.
func (r *AuditRepo) ListByAction(ctx context.Context, action model.AuditAction, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, action, user_id, subjects, details, created_at
		FROM activity_log WHERE action = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, string(action), limit)
	if err != nil {
		return nil, dbErr("list audit entries", err)
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var (
			e                 model.AuditEntry
			subjects, details []byte
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.Actor.UserID, &subjects, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if err := json.Unmarshal(subjects, &e.Subjects); err != nil {
			return nil, fmt.Errorf("decode audit subjects: %w", err)
		}
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("decode audit details: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ core.AuditLogger = (*AuditRepo)(nil)
