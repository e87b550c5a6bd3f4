package model

import (
	"encoding/json"
	"time"
)

// AuditAction names an audited catalog change.
type AuditAction string

const (
	// AuditBulkValidationUpdated records a compatibility bump after a passing validation.
	AuditBulkValidationUpdated AuditAction = "BULK_VALIDATION_UPDATED"
	// AuditBulkValidationEmailed records an author being told about a failed validation.
	AuditBulkValidationEmailed AuditAction = "BULK_VALIDATION_EMAILED"
)

// Actor identifies who performed an audited change. Background tasks carry it
// explicitly in their payloads.
type Actor struct {
	UserID int64  `json:"user_id" validate:"omitempty,gt=0"`
	Name   string `json:"name,omitempty"`
}

// AuditSubject is an entity an audit entry refers to.
type AuditSubject struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
}

// AuditEntry is one row of the activity log.
type AuditEntry struct {
	ID        int64             `json:"id,omitempty"`
	Action    AuditAction       `json:"action"`
	Actor     Actor             `json:"actor"`
	Subjects  []AuditSubject    `json:"subjects"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// DetailsJSON encodes the entry details for storage.
func (e AuditEntry) DetailsJSON() ([]byte, error) {
	if len(e.Details) == 0 {
		return []byte(`{}`), nil
	}
	return json.Marshal(e.Details)
}

// AddonSubject references an add-on.
func AddonSubject(id int64) AuditSubject { return AuditSubject{Kind: "addon", ID: id} }

// VersionSubject references an add-on version.
func VersionSubject(id int64) AuditSubject { return AuditSubject{Kind: "version", ID: id} }
