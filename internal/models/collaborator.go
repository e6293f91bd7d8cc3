package models

import "time"

// CollaboratorRole is an explicit per-manual grant beyond the caller's
// organisation role.
type CollaboratorRole string

const (
	CollaboratorEditor CollaboratorRole = "EDITOR"
	CollaboratorViewer CollaboratorRole = "VIEWER"
)

// ManualCollaborator grants one user access to one manual. Unique per
// (manual, user); the manual's creator never needs a grant.
type ManualCollaborator struct {
	ID        string           `db:"id" json:"id"`
	ManualID  string           `db:"manual_id" json:"manual_id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Role      CollaboratorRole `db:"role" json:"role"`
	AddedBy   string           `db:"added_by" json:"added_by"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
