package models

import "time"

// ManualStatus tracks a manual through its review lifecycle.
type ManualStatus string

const (
	ManualStatusDraft     ManualStatus = "DRAFT"
	ManualStatusSubmitted ManualStatus = "SUBMITTED"
	ManualStatusApproved  ManualStatus = "APPROVED"
	ManualStatusRejected  ManualStatus = "REJECTED"
	ManualStatusPublished ManualStatus = "PUBLISHED"
)

// Manual is a versioned documentation record.
type Manual struct {
	ID                 string       `db:"id" json:"id"`
	Title              string       `db:"title" json:"title"`
	Slug               string       `db:"slug" json:"slug"`
	Department         string       `db:"department" json:"department"`
	CategoryID         *string      `db:"category_id" json:"category_id,omitempty"`
	Status             ManualStatus `db:"status" json:"status"`
	CreatedBy          string       `db:"created_by" json:"created_by"`
	CurrentVersionID   *string      `db:"current_version_id" json:"current_version_id,omitempty"`
	PublishedVersionID *string      `db:"published_version_id" json:"published_version_id,omitempty"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updated_at"`

	// Loaded alongside the row, not columns of the manuals table.
	Collaborators []ManualCollaborator `db:"-" json:"collaborators,omitempty"`
	Tags          []Tag                `db:"-" json:"tags,omitempty"`
}

// ManualFilter captures listing criteria.
type ManualFilter struct {
	Status     []ManualStatus
	Department string
	CategoryID string
	TagID      string
	Search     string
	Page       int
	PageSize   int

	// Visibility scoping for non-privileged callers: when ViewerID is set,
	// only manuals the viewer owns, collaborates on, or that are publicly
	// readable (APPROVED/PUBLISHED) are returned.
	ViewerID string
}
