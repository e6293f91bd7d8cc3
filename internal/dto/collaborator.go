package dto

// AddCollaboratorRequest grants a user EDITOR or VIEWER access to a manual.
type AddCollaboratorRequest struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=EDITOR VIEWER"`
}
