package models

import (
	"encoding/json"
	"time"
)

// AuditAction constants represent lifecycle actions recorded in the trail.
const (
	AuditActionCreate   = "CREATE"
	AuditActionUpdate   = "UPDATE"
	AuditActionDelete   = "DELETE"
	AuditActionSubmit   = "SUBMIT"
	AuditActionApprove  = "APPROVE"
	AuditActionReject   = "REJECT"
	AuditActionPublish  = "PUBLISH"
	AuditActionRollback = "ROLLBACK"
)

// AuditLogEntry is one append-only record of a manual lifecycle action.
// Entries are never updated or deleted individually; they only disappear
// when their manual is destroyed.
type AuditLogEntry struct {
	ID        string          `db:"id" json:"id"`
	ManualID  string          `db:"manual_id" json:"manual_id"`
	VersionID *string         `db:"version_id" json:"version_id,omitempty"`
	Action    string          `db:"action" json:"action"`
	ActorID   string          `db:"actor_id" json:"actor_id"`
	Details   json.RawMessage `db:"details" json:"details,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
