package models

import "time"

// ManualVersion is an immutable snapshot of a manual's content. Edits never
// modify an existing version; they create the next one.
type ManualVersion struct {
	ID            string    `db:"id" json:"id"`
	ManualID      string    `db:"manual_id" json:"manual_id"`
	VersionNumber int       `db:"version_number" json:"version_number"`
	Changelog     string    `db:"changelog" json:"changelog"`
	CreatedBy     string    `db:"created_by" json:"created_by"`
	IsPublished   bool      `db:"is_published" json:"is_published"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`

	Blocks []ContentBlock `db:"-" json:"blocks,omitempty"`
}
