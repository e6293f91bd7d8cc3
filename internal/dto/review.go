package dto

import "github.com/manualhub/manual-api/internal/models"

// RejectReviewRequest carries mandatory reviewer feedback.
type RejectReviewRequest struct {
	Feedback string `json:"feedback" validate:"required"`
}

// ReviewQuery mirrors supported review listing filters.
type ReviewQuery struct {
	Status   []models.ReviewStatus
	ManualID string
	Limit    int
	Offset   int
}
