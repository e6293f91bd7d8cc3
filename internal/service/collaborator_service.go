package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/manualhub/manual-api/internal/dto"
	"github.com/manualhub/manual-api/internal/models"
	"github.com/manualhub/manual-api/internal/repository"
	appErrors "github.com/manualhub/manual-api/pkg/errors"
)

// CollaboratorService manages per-manual access grants.
type CollaboratorService struct {
	collaborators collaboratorStore
	manuals       manualStore
	audit         auditStore
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewCollaboratorService constructs the service.
func NewCollaboratorService(collaborators collaboratorStore, manuals manualStore, audit auditStore, validate *validator.Validate, logger *zap.Logger) *CollaboratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollaboratorService{
		collaborators: collaborators,
		manuals:       manuals,
		audit:         audit,
		validator:     validate,
		logger:        logger,
	}
}

// List returns the manual's collaborator grants.
func (s *CollaboratorService) List(ctx context.Context, slug string, actor *models.Claims) ([]models.ManualCollaborator, error) {
	manual, err := s.authorizeView(ctx, slug, actor)
	if err != nil {
		return nil, err
	}
	grants, err := s.collaborators.ListByManual(ctx, manual.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list collaborators")
	}
	return grants, nil
}

// Add grants a user access to the manual. Only the owner or a privileged
// role may manage grants.
func (s *CollaboratorService) Add(ctx context.Context, slug string, req dto.AddCollaboratorRequest, actor *models.Claims) (*models.ManualCollaborator, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	manual, err := s.authorizeManage(ctx, slug, actor)
	if err != nil {
		return nil, err
	}
	if req.UserID == manual.CreatedBy {
		return nil, appErrors.Clone(appErrors.ErrValidation, "the owner already has full access")
	}

	grant := &models.ManualCollaborator{
		ManualID: manual.ID,
		UserID:   req.UserID,
		Role:     models.CollaboratorRole(req.Role),
		AddedBy:  actor.UserID,
	}
	if err := s.collaborators.Add(ctx, grant); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "user is already a collaborator")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add collaborator")
	}

	s.emitAudit(ctx, manual, actor.UserID, map[string]interface{}{
		"collaborator": req.UserID,
		"role":         req.Role,
		"granted":      true,
	})
	return grant, nil
}

// Remove revokes a grant.
func (s *CollaboratorService) Remove(ctx context.Context, slug, userID string, actor *models.Claims) error {
	manual, err := s.authorizeManage(ctx, slug, actor)
	if err != nil {
		return err
	}
	if err := s.collaborators.Remove(ctx, manual.ID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "collaborator not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove collaborator")
	}

	s.emitAudit(ctx, manual, actor.UserID, map[string]interface{}{
		"collaborator": userID,
		"granted":      false,
	})
	return nil
}

func (s *CollaboratorService) authorizeView(ctx context.Context, slug string, actor *models.Claims) (*models.Manual, error) {
	manual, err := s.getManual(ctx, slug, actor)
	if err != nil {
		return nil, err
	}
	if !ResolvePermissions(actor.UserID, actor.Role, manual).CanView {
		return nil, appErrors.ErrForbidden
	}
	return manual, nil
}

func (s *CollaboratorService) authorizeManage(ctx context.Context, slug string, actor *models.Claims) (*models.Manual, error) {
	manual, err := s.getManual(ctx, slug, actor)
	if err != nil {
		return nil, err
	}
	if manual.CreatedBy == actor.UserID {
		return manual, nil
	}
	if _, ok := privilegedEditorRoles[actor.Role]; ok {
		return manual, nil
	}
	return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner may manage collaborators")
}

func (s *CollaboratorService) getManual(ctx context.Context, slug string, actor *models.Claims) (*models.Manual, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	manual, err := s.manuals.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load manual")
	}
	return manual, nil
}

func (s *CollaboratorService) emitAudit(ctx context.Context, manual *models.Manual, actorID string, details map[string]interface{}) {
	raw, err := json.Marshal(details)
	if err != nil {
		raw = json.RawMessage(`{}`)
	}
	entry := &models.AuditLogEntry{
		ManualID: manual.ID,
		Action:   models.AuditActionUpdate,
		ActorID:  actorID,
		Details:  raw,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", zap.String("manual_id", manual.ID), zap.Error(err))
	}
}
