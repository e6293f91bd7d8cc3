package service

import "github.com/manualhub/manual-api/internal/models"

// Capabilities is the resolved permission set for one (user, manual) pair.
type Capabilities struct {
	CanView   bool `json:"can_view"`
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanReview bool `json:"can_review"`
}

var reviewerRoles = map[models.UserRole]struct{}{
	models.RoleSupervisor:   {},
	models.RoleManager:      {},
	models.RoleChiefManager: {},
	models.RoleAdmin:        {},
}

var privilegedEditorRoles = map[models.UserRole]struct{}{
	models.RoleAdmin:        {},
	models.RoleManager:      {},
	models.RoleChiefManager: {},
}

// ResolvePermissions is the single source of truth for access decisions.
// It is pure: the same user, role, and manual (including its loaded
// collaborator grants) always yield the same capability set. Every mutating
// operation consults it rather than re-deriving role logic.
func ResolvePermissions(userID string, role models.UserRole, manual *models.Manual) Capabilities {
	caps := Capabilities{}
	if manual == nil || userID == "" {
		return caps
	}

	if manual.CreatedBy == userID {
		caps.CanView = true
		caps.CanEdit = true
		if manual.Status == models.ManualStatusDraft || manual.Status == models.ManualStatusRejected {
			caps.CanDelete = true
		}
	}

	if _, ok := privilegedEditorRoles[role]; ok {
		caps.CanView = true
		caps.CanEdit = true
	}
	if _, ok := reviewerRoles[role]; ok {
		caps.CanReview = true
	}

	for _, grant := range manual.Collaborators {
		if grant.UserID != userID {
			continue
		}
		caps.CanView = true
		if grant.Role == models.CollaboratorEditor {
			caps.CanEdit = true
		}
	}

	if manual.Status == models.ManualStatusApproved || manual.Status == models.ManualStatusPublished {
		caps.CanView = true
	}

	// a capability to edit or review implies reading
	if caps.CanEdit || caps.CanReview {
		caps.CanView = true
	}

	return caps
}
