package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/manualhub/manual-api/internal/models"
)

// ReviewRepository persists review requests.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs the repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `id, manual_id, version_id, submitted_by, reviewer_id, status, feedback, submitted_at, decided_at`

// Create inserts a PENDING review request and marks the manual SUBMITTED in
// one transaction, after verifying no other PENDING request exists for the
// version. The partial unique index on (version_id) WHERE status = 'PENDING'
// backstops the check under concurrency.
func (r *ReviewRepository) Create(ctx context.Context, review *models.ReviewRequest) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var pending bool
	if err = tx.GetContext(ctx, &pending,
		`SELECT EXISTS(SELECT 1 FROM review_requests WHERE version_id = $1 AND status = 'PENDING')`,
		review.VersionID); err != nil {
		return fmt.Errorf("check pending review: %w", err)
	}
	if pending {
		err = ErrDuplicate
		return err
	}

	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	if review.Status == "" {
		review.Status = models.ReviewStatusPending
	}
	if review.SubmittedAt.IsZero() {
		review.SubmittedAt = time.Now().UTC()
	}

	const query = `INSERT INTO review_requests
	(id, manual_id, version_id, submitted_by, reviewer_id, status, feedback, submitted_at, decided_at)
	VALUES (:id, :manual_id, :version_id, :submitted_by, :reviewer_id, :status, :feedback, :submitted_at, :decided_at)`
	if _, err = tx.NamedExecContext(ctx, query, review); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicate
			return err
		}
		return fmt.Errorf("insert review: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE manuals SET status = $1, updated_at = $2 WHERE id = $3`,
		models.ManualStatusSubmitted, time.Now().UTC(), review.ManualID); err != nil {
		return fmt.Errorf("mark manual submitted: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit review tx: %w", err)
	}
	return nil
}

// HasPendingForVersion reports whether an undecided review request exists for
// the version.
func (r *ReviewRepository) HasPendingForVersion(ctx context.Context, versionID string) (bool, error) {
	var pending bool
	if err := r.db.GetContext(ctx, &pending,
		`SELECT EXISTS(SELECT 1 FROM review_requests WHERE version_id = $1 AND status = 'PENDING')`,
		versionID); err != nil {
		return false, fmt.Errorf("check pending review: %w", err)
	}
	return pending, nil
}

// GetByID fetches a review request.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*models.ReviewRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM review_requests WHERE id = $1`, reviewColumns)
	var review models.ReviewRequest
	if err := r.db.GetContext(ctx, &review, query, id); err != nil {
		return nil, err
	}
	return &review, nil
}

// List returns review requests matching the filter, newest first.
func (r *ReviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewRequest, error) {
	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 2)

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ManualID != "" {
		args = append(args, filter.ManualID)
		conditions = append(conditions, fmt.Sprintf("manual_id = $%d", len(args)))
	}
	if filter.SubmittedBy != "" {
		args = append(args, filter.SubmittedBy)
		conditions = append(conditions, fmt.Sprintf("submitted_by = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM review_requests`, reviewColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY submitted_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	var reviews []models.ReviewRequest
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// Decide moves a PENDING review to its terminal state and updates the
// manual's status in the same transaction, so a decided review is never left
// next to an undecided manual. The guard on status makes the transition
// race-free; zero affected rows means the review was already decided (or
// never existed).
func (r *ReviewRepository) Decide(ctx context.Context, id string, status models.ReviewStatus, reviewerID, feedback string, decidedAt time.Time, manualID string, manualStatus models.ManualStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin decide tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE review_requests SET status = $1, reviewer_id = $2, feedback = $3, decided_at = $4
		WHERE id = $5 AND status = 'PENDING'`,
		status, reviewerID, feedback, decidedAt, id)
	if err != nil {
		return fmt.Errorf("decide review: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check decide rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE manuals SET status = $1, updated_at = $2 WHERE id = $3`,
		manualStatus, decidedAt, manualID); err != nil {
		return fmt.Errorf("update manual status: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit decide tx: %w", err)
	}
	return nil
}

// HasApprovedForVersion reports whether the version ever passed review.
func (r *ReviewRepository) HasApprovedForVersion(ctx context.Context, versionID string) (bool, error) {
	var approved bool
	if err := r.db.GetContext(ctx, &approved,
		`SELECT EXISTS(SELECT 1 FROM review_requests WHERE version_id = $1 AND status = 'APPROVED')`,
		versionID); err != nil {
		return false, fmt.Errorf("check approved review: %w", err)
	}
	return approved, nil
}
