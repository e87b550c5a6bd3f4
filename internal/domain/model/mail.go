package model

import (
	"errors"
	"strings"
	"time"
)

// Message is an outbound email.
type Message struct {
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	From    string   `json:"from"`
	To      []string `json:"to"`
}

// Validate checks the message has a sender and at least one recipient.
func (m Message) Validate() error {
	if strings.TrimSpace(m.From) == "" {
		return errors.New("sender is required")
	}
	if len(m.To) == 0 {
		return errors.New("at least one recipient is required")
	}
	for _, to := range m.To {
		if strings.TrimSpace(to) == "" {
			return errors.New("recipient must not be empty")
		}
	}
	return nil
}

// EmailPreview is a rendered message captured instead of sent.
type EmailPreview struct {
	ID        int64     `json:"id"         db:"id"`
	Topic     string    `json:"topic"      db:"topic"`
	Recipient string    `json:"recipient"  db:"recipient"`
	FromEmail string    `json:"from_email" db:"from_email"`
	Subject   string    `json:"subject"    db:"subject"`
	Body      string    `json:"body"       db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NotifyTemplate is the operator-supplied subject and body for author emails.
type NotifyTemplate struct {
	Subject string `json:"subject" validate:"required"`
	Text    string `json:"text"    validate:"required"`
}
