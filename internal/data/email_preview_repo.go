package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
)

// EmailPreviewRepo stores messages captured in preview mode.
type EmailPreviewRepo struct {
	DB    *sql.DB
	clock TimeProvider
}

// NewEmailPreviewRepo creates an EmailPreviewRepo.
func NewEmailPreviewRepo(db *sql.DB, clock TimeProvider) *EmailPreviewRepo {
	if clock == nil {
		clock = &RealTimeProvider{}
	}
	return &EmailPreviewRepo{DB: db, clock: clock}
}

// Insert stores a preview and fills in its id and creation time.
func (r *EmailPreviewRepo) Insert(ctx context.Context, p *model.EmailPreview) error {
	if p == nil {
		return errors.New("email preview is required")
	}
	if p.Topic == "" {
		return errors.New("email preview topic is required")
	}
	p.CreatedAt = r.clock.Now().UTC()
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO email_previews (topic, recipient, from_email, subject, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, p.Topic, p.Recipient, p.FromEmail, p.Subject, p.Body, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return dbErr("insert email preview", err)
	}
	return nil
}

// ListByTopic returns the previews of a topic in insertion order.
func (r *EmailPreviewRepo) ListByTopic(ctx context.Context, topic string) ([]*model.EmailPreview, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, topic, recipient, from_email, subject, body, created_at
		FROM email_previews WHERE topic = $1
		ORDER BY id
	`, topic)
	if err != nil {
		return nil, dbErr("list email previews", err)
	}
	defer rows.Close()

	var out []*model.EmailPreview
	for rows.Next() {
		var p model.EmailPreview
		if err := rows.Scan(&p.ID, &p.Topic, &p.Recipient, &p.FromEmail, &p.Subject, &p.Body, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan email preview: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

var _ core.EmailPreviewRepository = (*EmailPreviewRepo)(nil)
