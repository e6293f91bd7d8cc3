package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/manualhub/manual-api/internal/dto"
	"github.com/manualhub/manual-api/internal/models"
	"github.com/manualhub/manual-api/internal/repository"
	appErrors "github.com/manualhub/manual-api/pkg/errors"
)

// ManualService orchestrates the manual lifecycle: creation, metadata
// updates, review submission, publication, rollback, and deletion.
type ManualService struct {
	manuals   manualStore
	versions  versionStore
	reviews   reviewStore
	audit     auditStore
	cache     previewCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewManualService constructs the service.
func NewManualService(manuals manualStore, versions versionStore, reviews reviewStore, audit auditStore, cache previewCache, validate *validator.Validate, logger *zap.Logger) *ManualService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ManualService{
		manuals:   manuals,
		versions:  versions,
		reviews:   reviews,
		audit:     audit,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// Create opens a new manual in DRAFT with an empty version 1.
func (s *ManualService) Create(ctx context.Context, req dto.CreateManualRequest, actor *models.Claims) (*models.Manual, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	slug := slugify(req.Title)
	if slug == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title must contain at least one alphanumeric character")
	}
	exists, err := s.manuals.SlugExists(ctx, slug)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slug")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("slug %q is already in use", slug))
	}

	manual := &models.Manual{
		Title:      req.Title,
		Slug:       slug,
		Department: req.Department,
		Status:     models.ManualStatusDraft,
		CreatedBy:  actor.UserID,
	}
	if req.CategoryID != "" {
		manual.CategoryID = &req.CategoryID
	}
	version := &models.ManualVersion{CreatedBy: actor.UserID}
	if err := s.manuals.Create(ctx, manual, version); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("slug %q is already in use", slug))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create manual")
	}

	if len(req.TagIDs) > 0 {
		if err := s.manuals.ReplaceTags(ctx, manual.ID, req.TagIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach tags")
		}
	}

	s.emitAudit(ctx, manual.ID, &version.ID, models.AuditActionCreate, actor.UserID, map[string]interface{}{"title": manual.Title})
	return manual, nil
}

// List returns manuals visible to the actor. Privileged roles see
// everything; everyone else sees owned, collaborating, and publicly
// readable manuals.
func (s *ManualService) List(ctx context.Context, query dto.ManualQuery, actor *models.Claims) ([]models.Manual, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter := models.ManualFilter{
		Status:     query.Status,
		Department: query.Department,
		CategoryID: query.CategoryID,
		TagID:      query.TagID,
		Search:     query.Search,
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	if _, privileged := privilegedEditorRoles[actor.Role]; !privileged {
		filter.ViewerID = actor.UserID
	}

	manuals, total, err := s.manuals.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list manuals")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return manuals, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns one manual if the actor may view it.
func (s *ManualService) Get(ctx context.Context, slug string, actor *models.Claims) (*models.Manual, Capabilities, error) {
	manual, caps, err := s.authorize(ctx, slug, actor, func(c Capabilities) bool { return c.CanView })
	if err != nil {
		return nil, Capabilities{}, err
	}
	return manual, caps, nil
}

// Update changes manual metadata. Content edits go through version creation.
func (s *ManualService) Update(ctx context.Context, slug string, req dto.UpdateManualRequest, actor *models.Claims) (*models.Manual, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	manual, _, err := s.authorize(ctx, slug, actor, func(c Capabilities) bool { return c.CanEdit })
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		manual.Title = *req.Title
	}
	if req.Department != nil {
		manual.Department = *req.Department
	}
	if req.CategoryID != nil {
		if *req.CategoryID == "" {
			manual.CategoryID = nil
		} else {
			manual.CategoryID = req.CategoryID
		}
	}
	if err := s.manuals.UpdateMeta(ctx, manual); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update manual")
	}
	if req.TagIDs != nil {
		if err := s.manuals.ReplaceTags(ctx, manual.ID, req.TagIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tags")
		}
	}

	s.emitAudit(ctx, manual.ID, manual.CurrentVersionID, models.AuditActionUpdate, actor.UserID, map[string]interface{}{"metadata": true})
	return manual, nil
}

// Delete destroys the manual and everything it owns.
func (s *ManualService) Delete(ctx context.Context, slug string, actor *models.Claims) error {
	manual, _, err := s.authorize(ctx, slug, actor, func(c Capabilities) bool { return c.CanDelete })
	if err != nil {
		return err
	}
	if err := s.manuals.Delete(ctx, manual.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete manual")
	}
	s.invalidatePreviews(ctx, manual.ID)
	// the audit trail cascades away with the manual; keep a trace in the log
	s.logger.Info("manual deleted",
		zap.String("manual_id", manual.ID),
		zap.String("slug", manual.Slug),
		zap.String("actor", actor.UserID))
	return nil
}

// Submit files the manual's current version for review.
func (s *ManualService) Submit(ctx context.Context, slug string, actor *models.Claims) (*models.ReviewRequest, error) {
	manual, err := s.getManual(ctx, slug)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if manual.CreatedBy != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner may submit for review")
	}
	if manual.CurrentVersionID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "manual has no current version")
	}
	pending, err := s.reviews.HasPendingForVersion(ctx, *manual.CurrentVersionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending reviews")
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a pending review already exists for this version")
	}
	if manual.Status != models.ManualStatusDraft && manual.Status != models.ManualStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "manual is not in a submittable state")
	}

	review := &models.ReviewRequest{
		ManualID:    manual.ID,
		VersionID:   *manual.CurrentVersionID,
		SubmittedBy: actor.UserID,
		Status:      models.ReviewStatusPending,
	}
	// Create marks the manual SUBMITTED inside its transaction; a concurrent
	// submit loses on the pending-review unique index.
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a pending review already exists for this version")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create review request")
	}

	s.emitAudit(ctx, manual.ID, manual.CurrentVersionID, models.AuditActionSubmit, actor.UserID, nil)
	return review, nil
}

// Publish marks an approved version as the published one. Approval does not
// publish implicitly; this is a separate, separately authorised action.
func (s *ManualService) Publish(ctx context.Context, slug string, versionNumber int, actor *models.Claims) (*models.Manual, error) {
	manual, _, err := s.authorize(ctx, slug, actor, func(c Capabilities) bool { return c.CanReview })
	if err != nil {
		return nil, err
	}

	var version *models.ManualVersion
	if versionNumber > 0 {
		version, err = s.versions.GetByNumber(ctx, manual.ID, versionNumber)
	} else if manual.CurrentVersionID != nil {
		version, err = s.versions.GetByID(ctx, *manual.CurrentVersionID)
	} else {
		return nil, appErrors.Clone(appErrors.ErrValidation, "manual has no current version")
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "version not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load version")
	}

	approved, err := s.reviews.HasApprovedForVersion(ctx, version.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check approval")
	}
	if !approved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "version has not been approved")
	}

	if err := s.manuals.PublishVersion(ctx, manual.ID, version.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "version not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish version")
	}
	s.invalidatePreviews(ctx, manual.ID)

	s.emitAudit(ctx, manual.ID, &version.ID, models.AuditActionPublish, actor.UserID, map[string]interface{}{"version_number": version.VersionNumber})
	return s.getManual(ctx, slug)
}

// Rollback re-points the manual at an earlier version. Later versions are
// kept; history is never destroyed.
func (s *ManualService) Rollback(ctx context.Context, slug string, versionNumber int, actor *models.Claims) (*models.Manual, error) {
	manual, _, err := s.authorize(ctx, slug, actor, func(c Capabilities) bool { return c.CanEdit })
	if err != nil {
		return nil, err
	}

	version, err := s.versions.GetByNumber(ctx, manual.ID, versionNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "version not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load version")
	}

	if err := s.manuals.SetCurrentVersion(ctx, manual.ID, version.ID, models.ManualStatusDraft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to roll back")
	}
	s.invalidatePreviews(ctx, manual.ID)

	s.emitAudit(ctx, manual.ID, &version.ID, models.AuditActionRollback, actor.UserID, map[string]interface{}{"version_number": version.VersionNumber})
	return s.getManual(ctx, slug)
}

// AuditTrail returns the manual's action history.
func (s *ManualService) AuditTrail(ctx context.Context, slug string, actor *models.Claims) ([]models.AuditLogEntry, error) {
	manual, _, err := s.authorize(ctx, slug, actor, func(c Capabilities) bool { return c.CanView })
	if err != nil {
		return nil, err
	}
	entries, err := s.audit.ListByManual(ctx, manual.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit entries")
	}
	return entries, nil
}

func (s *ManualService) getManual(ctx context.Context, slug string) (*models.Manual, error) {
	manual, err := s.manuals.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load manual")
	}
	return manual, nil
}

func (s *ManualService) authorize(ctx context.Context, slug string, actor *models.Claims, allowed func(Capabilities) bool) (*models.Manual, Capabilities, error) {
	if actor == nil {
		return nil, Capabilities{}, appErrors.ErrUnauthorized
	}
	manual, err := s.getManual(ctx, slug)
	if err != nil {
		return nil, Capabilities{}, err
	}
	caps := ResolvePermissions(actor.UserID, actor.Role, manual)
	if !allowed(caps) {
		return nil, Capabilities{}, appErrors.ErrForbidden
	}
	return manual, caps, nil
}

func (s *ManualService) invalidatePreviews(ctx context.Context, manualID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, previewCachePattern(manualID)); err != nil {
		s.logger.Warn("preview cache invalidation failed", zap.String("manual_id", manualID), zap.Error(err))
	}
}

func (s *ManualService) emitAudit(ctx context.Context, manualID string, versionID *string, action, actorID string, details map[string]interface{}) {
	entry := &models.AuditLogEntry{
		ManualID:  manualID,
		VersionID: versionID,
		Action:    action,
		ActorID:   actorID,
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = raw
		}
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", zap.String("manual_id", manualID), zap.String("action", action), zap.Error(err))
	}
}

func previewCacheKey(manualID string, versionNumber int) string {
	return fmt.Sprintf("manual:%s:version:%d:preview", manualID, versionNumber)
}

func previewCachePattern(manualID string) string {
	return fmt.Sprintf("manual:%s:version:*", manualID)
}
