package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/manualhub/manual-api/internal/dto"
	"github.com/manualhub/manual-api/internal/models"
	appErrors "github.com/manualhub/manual-api/pkg/errors"
)

// ReviewService decides review requests. Submission lives on ManualService;
// this side covers the reviewer's half of the workflow.
type ReviewService struct {
	reviews   reviewStore
	audit     auditStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReviewService constructs the service.
func NewReviewService(reviews reviewStore, audit auditStore, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{
		reviews:   reviews,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// List returns review requests. Reviewer roles see the full queue; everyone
// else only sees requests they submitted.
func (s *ReviewService) List(ctx context.Context, query dto.ReviewQuery, actor *models.Claims) ([]models.ReviewRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.ReviewFilter{
		Status:   query.Status,
		ManualID: query.ManualID,
		Limit:    query.Limit,
		Offset:   query.Offset,
	}
	if _, ok := reviewerRoles[actor.Role]; !ok {
		filter.SubmittedBy = actor.UserID
	}
	reviews, err := s.reviews.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	return reviews, nil
}

// Get returns one review request visible to the actor.
func (s *ReviewService) Get(ctx context.Context, id string, actor *models.Claims) (*models.ReviewRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	if _, ok := reviewerRoles[actor.Role]; !ok && review.SubmittedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return review, nil
}

// Approve records an approval decision. Only pending requests can be
// decided; a concurrent decision loses and surfaces as a conflict.
func (s *ReviewService) Approve(ctx context.Context, id, feedback string, actor *models.Claims) (*models.ReviewRequest, error) {
	return s.decide(ctx, id, models.ReviewStatusApproved, feedback, actor)
}

// Reject records a rejection. Feedback is mandatory so the author knows
// what to fix.
func (s *ReviewService) Reject(ctx context.Context, id string, req dto.RejectReviewRequest, actor *models.Claims) (*models.ReviewRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "feedback is required when rejecting")
	}
	return s.decide(ctx, id, models.ReviewStatusRejected, req.Feedback, actor)
}

func (s *ReviewService) decide(ctx context.Context, id string, status models.ReviewStatus, feedback string, actor *models.Claims) (*models.ReviewRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if _, ok := reviewerRoles[actor.Role]; !ok {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not review")
	}

	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	if review.SubmittedBy == actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submitters may not review their own request")
	}

	manualStatus := models.ManualStatusApproved
	action := models.AuditActionApprove
	if status == models.ReviewStatusRejected {
		manualStatus = models.ManualStatusRejected
		action = models.AuditActionReject
	}

	// Decide flips both the review and the manual inside one transaction.
	decidedAt := time.Now().UTC()
	if err := s.reviews.Decide(ctx, id, status, actor.UserID, feedback, decidedAt, review.ManualID, manualStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "review has already been decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decide review")
	}

	s.emitAudit(ctx, review, action, actor.UserID, feedback, decidedAt)

	review.Status = status
	review.ReviewerID = &actor.UserID
	review.Feedback = feedback
	review.DecidedAt = &decidedAt
	return review, nil
}

func (s *ReviewService) emitAudit(ctx context.Context, review *models.ReviewRequest, action, actorID, feedback string, decidedAt time.Time) {
	details := map[string]interface{}{"review_id": review.ID, "decided_at": decidedAt}
	if feedback != "" {
		details["feedback"] = feedback
	}
	raw, err := json.Marshal(details)
	if err != nil {
		raw = json.RawMessage(`{}`)
	}
	versionID := review.VersionID
	entry := &models.AuditLogEntry{
		ManualID:  review.ManualID,
		VersionID: &versionID,
		Action:    action,
		ActorID:   actorID,
		Details:   raw,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", zap.String("manual_id", review.ManualID), zap.String("action", action), zap.Error(err))
	}
}
