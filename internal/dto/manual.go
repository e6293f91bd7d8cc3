package dto

import "github.com/manualhub/manual-api/internal/models"

// CreateManualRequest payload for creating a manual. The first empty version
// is created alongside it.
type CreateManualRequest struct {
	Title      string   `json:"title" validate:"required,max=300"`
	Department string   `json:"department" validate:"max=200"`
	CategoryID string   `json:"categoryId" validate:"omitempty,uuid"`
	TagIDs     []string `json:"tagIds" validate:"omitempty,dive,uuid"`
}

// UpdateManualRequest updates manual metadata only; content changes go
// through version creation.
type UpdateManualRequest struct {
	Title      *string  `json:"title" validate:"omitempty,max=300"`
	Department *string  `json:"department" validate:"omitempty,max=200"`
	CategoryID *string  `json:"categoryId" validate:"omitempty,uuid"`
	TagIDs     []string `json:"tagIds" validate:"omitempty,dive,uuid"`
}

// RollbackRequest re-points the manual at an earlier version.
type RollbackRequest struct {
	VersionNumber int `json:"versionNumber" validate:"required,min=1"`
}

// ManualQuery mirrors the supported listing filters.
type ManualQuery struct {
	Status     []models.ManualStatus
	Department string
	CategoryID string
	TagID      string
	Search     string
	Page       int
	PageSize   int
}
