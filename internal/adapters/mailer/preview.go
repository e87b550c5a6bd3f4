package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
)

// PreviewStore captures messages as email previews, one row per recipient.
type PreviewStore struct {
	repo core.EmailPreviewRepository
}

var _ core.PreviewMailer = (*PreviewStore)(nil)

// NewPreviewStore creates a PreviewStore.
func NewPreviewStore(repo core.EmailPreviewRepository) *PreviewStore {
	return &PreviewStore{repo: repo}
}

// PreviewSend stores msg under topic.
func (s *PreviewStore) PreviewSend(ctx context.Context, topic string, msg model.Message) error {
	if topic == "" {
		return errors.New("preview topic is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	for _, to := range msg.To {
		if err := s.repo.Insert(ctx, &model.EmailPreview{
			Topic:     topic,
			Recipient: to,
			FromEmail: msg.From,
			Subject:   msg.Subject,
			Body:      msg.Body,
		}); err != nil {
			return fmt.Errorf("store preview for %s: %w", to, err)
		}
	}
	return nil
}

// List returns the previews captured under topic.
func (s *PreviewStore) List(ctx context.Context, topic string) ([]*model.EmailPreview, error) {
	return s.repo.ListByTopic(ctx, topic)
}
