package models

import "time"

// ReviewStatus is the lifecycle of a review request. PENDING is the only
// non-terminal state.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "PENDING"
	ReviewStatusApproved ReviewStatus = "APPROVED"
	ReviewStatusRejected ReviewStatus = "REJECTED"
)

// ReviewRequest ties an approval decision to one manual version. Decided
// requests are never mutated again.
type ReviewRequest struct {
	ID          string       `db:"id" json:"id"`
	ManualID    string       `db:"manual_id" json:"manual_id"`
	VersionID   string       `db:"version_id" json:"version_id"`
	SubmittedBy string       `db:"submitted_by" json:"submitted_by"`
	ReviewerID  *string      `db:"reviewer_id" json:"reviewer_id,omitempty"`
	Status      ReviewStatus `db:"status" json:"status"`
	Feedback    string       `db:"feedback" json:"feedback"`
	SubmittedAt time.Time    `db:"submitted_at" json:"submitted_at"`
	DecidedAt   *time.Time   `db:"decided_at" json:"decided_at,omitempty"`
}

// ReviewFilter captures listing criteria for review requests.
type ReviewFilter struct {
	Status      []ReviewStatus
	ManualID    string
	SubmittedBy string
	Limit       int
	Offset      int
}
