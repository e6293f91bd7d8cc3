package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/manualhub/manual-api/internal/dto"
	"github.com/manualhub/manual-api/internal/models"
	"github.com/manualhub/manual-api/internal/repository"
	appErrors "github.com/manualhub/manual-api/pkg/errors"
)

func newCollaboratorService(collaborators *mockCollaboratorStore, manuals *mockManualStore, audit *mockAuditStore) *CollaboratorService {
	return NewCollaboratorService(collaborators, manuals, audit, validator.New(), zap.NewNop())
}

func TestCollaboratorServiceAdd(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	collaborators := &mockCollaboratorStore{}
	audit := &mockAuditStore{}
	svc := newCollaboratorService(collaborators, manuals, audit)

	grant, err := svc.Add(context.Background(), "guide", dto.AddCollaboratorRequest{UserID: "helper", Role: "EDITOR"}, claimsFor("owner", models.RoleUser))
	require.NoError(t, err)

	assert.Equal(t, models.CollaboratorEditor, grant.Role)
	assert.Equal(t, "owner", grant.AddedBy)
	assert.NotEmpty(t, audit.entries)
}

func TestCollaboratorServiceAddDuplicateConflicts(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	collaborators := &mockCollaboratorStore{addErr: repository.ErrDuplicate}
	svc := newCollaboratorService(collaborators, manuals, &mockAuditStore{})

	_, err := svc.Add(context.Background(), "guide", dto.AddCollaboratorRequest{UserID: "helper", Role: "VIEWER"}, claimsFor("owner", models.RoleUser))
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestCollaboratorServiceAddRejectsOwnerSelfGrant(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	svc := newCollaboratorService(&mockCollaboratorStore{}, manuals, &mockAuditStore{})

	_, err := svc.Add(context.Background(), "guide", dto.AddCollaboratorRequest{UserID: "owner", Role: "EDITOR"}, claimsFor("owner", models.RoleUser))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestCollaboratorServiceAddRejectsUnknownRole(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	svc := newCollaboratorService(&mockCollaboratorStore{}, manuals, &mockAuditStore{})

	_, err := svc.Add(context.Background(), "guide", dto.AddCollaboratorRequest{UserID: "helper", Role: "OWNER"}, claimsFor("owner", models.RoleUser))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCollaboratorServiceManageRequiresOwnerOrPrivileged(t *testing.T) {
	manual := draftManual("guide", "owner")
	manual.Collaborators = []models.ManualCollaborator{{ManualID: manual.ID, UserID: "editor", Role: models.CollaboratorEditor}}
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	svc := newCollaboratorService(&mockCollaboratorStore{}, manuals, &mockAuditStore{})

	_, err := svc.Add(context.Background(), "guide", dto.AddCollaboratorRequest{UserID: "helper", Role: "VIEWER"}, claimsFor("editor", models.RoleUser))
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)

	_, err = svc.Add(context.Background(), "guide", dto.AddCollaboratorRequest{UserID: "helper", Role: "VIEWER"}, claimsFor("admin", models.RoleAdmin))
	assert.NoError(t, err)
}

func TestCollaboratorServiceRemove(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	collaborators := &mockCollaboratorStore{grants: []models.ManualCollaborator{{ManualID: manual.ID, UserID: "helper", Role: models.CollaboratorViewer}}}
	svc := newCollaboratorService(collaborators, manuals, &mockAuditStore{})

	require.NoError(t, svc.Remove(context.Background(), "guide", "helper", claimsFor("owner", models.RoleUser)))
	assert.Contains(t, collaborators.removed, "helper")

	err := svc.Remove(context.Background(), "guide", "helper", claimsFor("owner", models.RoleUser))
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestCollaboratorServiceList(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	collaborators := &mockCollaboratorStore{grants: []models.ManualCollaborator{{ManualID: manual.ID, UserID: "helper", Role: models.CollaboratorViewer}}}
	svc := newCollaboratorService(collaborators, manuals, &mockAuditStore{})

	grants, err := svc.List(context.Background(), "guide", claimsFor("owner", models.RoleUser))
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "helper", grants[0].UserID)
}
