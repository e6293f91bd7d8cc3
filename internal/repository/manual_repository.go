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

// ManualRepository persists manual records and their associations.
type ManualRepository struct {
	db *sqlx.DB
}

// NewManualRepository constructs the repository.
func NewManualRepository(db *sqlx.DB) *ManualRepository {
	return &ManualRepository{db: db}
}

const manualColumns = `id, title, slug, department, category_id, status, created_by,
       current_version_id, published_version_id, created_at, updated_at`

// Create inserts the manual together with its empty version 1 in one
// transaction, so a failed version insert never leaves a versionless manual.
func (r *ManualRepository) Create(ctx context.Context, manual *models.Manual, initial *models.ManualVersion) error {
	if manual.ID == "" {
		manual.ID = uuid.NewString()
	}
	if manual.Status == "" {
		manual.Status = models.ManualStatusDraft
	}
	now := time.Now().UTC()
	if manual.CreatedAt.IsZero() {
		manual.CreatedAt = now
	}
	manual.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO manuals
	(id, title, slug, department, category_id, status, created_by, current_version_id, published_version_id, created_at, updated_at)
	VALUES (:id, :title, :slug, :department, :category_id, :status, :created_by, :current_version_id, :published_version_id, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, manual); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicate
			return err
		}
		return fmt.Errorf("create manual: %w", err)
	}

	initial.ID = uuid.NewString()
	initial.ManualID = manual.ID
	initial.VersionNumber = 1
	initial.CreatedAt = now
	initial.UpdatedAt = now
	const insertVersion = `INSERT INTO manual_versions
	(id, manual_id, version_number, changelog, created_by, is_published, created_at, updated_at)
	VALUES (:id, :manual_id, :version_number, :changelog, :created_by, :is_published, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertVersion, initial); err != nil {
		return fmt.Errorf("create initial version: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE manuals SET current_version_id = $1 WHERE id = $2`,
		initial.ID, manual.ID); err != nil {
		return fmt.Errorf("point current version: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create tx: %w", err)
	}
	manual.CurrentVersionID = &initial.ID
	return nil
}

// GetBySlug fetches one manual with its collaborators and tags loaded.
func (r *ManualRepository) GetBySlug(ctx context.Context, slug string) (*models.Manual, error) {
	query := fmt.Sprintf(`SELECT %s FROM manuals WHERE slug = $1`, manualColumns)
	var manual models.Manual
	if err := r.db.GetContext(ctx, &manual, query, slug); err != nil {
		return nil, err
	}
	if err := r.loadAssociations(ctx, &manual); err != nil {
		return nil, err
	}
	return &manual, nil
}

// GetByID fetches one manual with its collaborators and tags loaded.
func (r *ManualRepository) GetByID(ctx context.Context, id string) (*models.Manual, error) {
	query := fmt.Sprintf(`SELECT %s FROM manuals WHERE id = $1`, manualColumns)
	var manual models.Manual
	if err := r.db.GetContext(ctx, &manual, query, id); err != nil {
		return nil, err
	}
	if err := r.loadAssociations(ctx, &manual); err != nil {
		return nil, err
	}
	return &manual, nil
}

func (r *ManualRepository) loadAssociations(ctx context.Context, manual *models.Manual) error {
	const grantsQuery = `SELECT id, manual_id, user_id, role, added_by, created_at
	FROM manual_collaborators WHERE manual_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &manual.Collaborators, grantsQuery, manual.ID); err != nil {
		return fmt.Errorf("load collaborators: %w", err)
	}
	const tagsQuery = `SELECT t.id, t.name, t.slug, t.created_at, t.updated_at
	FROM tags t JOIN manual_tags mt ON mt.tag_id = t.id WHERE mt.manual_id = $1 ORDER BY t.name`
	if err := r.db.SelectContext(ctx, &manual.Tags, tagsQuery, manual.ID); err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	return nil
}

// SlugExists reports whether a manual already claims the slug.
func (r *ManualRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM manuals WHERE slug = $1)`, slug); err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

// List returns manuals matching the filter plus the unpaginated total.
func (r *ManualRepository) List(ctx context.Context, filter models.ManualFilter) ([]models.Manual, int, error) {
	args := make([]interface{}, 0, 8)
	conditions := make([]string, 0, 6)

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("m.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("m.department = $%d", len(args)))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("m.category_id = $%d", len(args)))
	}
	if filter.TagID != "" {
		args = append(args, filter.TagID)
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM manual_tags mt WHERE mt.manual_id = m.id AND mt.tag_id = $%d)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("m.title ILIKE $%d", len(args)))
	}
	if filter.ViewerID != "" {
		args = append(args, filter.ViewerID)
		idx := len(args)
		conditions = append(conditions, fmt.Sprintf(
			`(m.status IN ('APPROVED','PUBLISHED') OR m.created_by = $%d
			OR EXISTS (SELECT 1 FROM manual_collaborators mc WHERE mc.manual_id = m.id AND mc.user_id = $%d))`, idx, idx))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM manuals m" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count manuals: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := fmt.Sprintf(`SELECT m.id, m.title, m.slug, m.department, m.category_id, m.status, m.created_by,
       m.current_version_id, m.published_version_id, m.created_at, m.updated_at
	FROM manuals m%s ORDER BY m.updated_at DESC, m.title LIMIT %d OFFSET %d`,
		where, pageSize, (page-1)*pageSize)

	var manuals []models.Manual
	if err := r.db.SelectContext(ctx, &manuals, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list manuals: %w", err)
	}
	return manuals, total, nil
}

// UpdateMeta persists metadata columns. Content changes never go through
// this path.
func (r *ManualRepository) UpdateMeta(ctx context.Context, manual *models.Manual) error {
	manual.UpdatedAt = time.Now().UTC()
	const query = `UPDATE manuals SET title = :title, department = :department,
	category_id = :category_id, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, manual)
	if err != nil {
		return fmt.Errorf("update manual: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check manual update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetCurrentVersion re-points the working version and status in one
// statement (used by rollback).
func (r *ManualRepository) SetCurrentVersion(ctx context.Context, manualID, versionID string, status models.ManualStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE manuals SET current_version_id = $1, status = $2, updated_at = $3 WHERE id = $4`,
		versionID, status, time.Now().UTC(), manualID)
	if err != nil {
		return fmt.Errorf("set current version: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check current version rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PublishVersion marks exactly one version published and flips the manual to
// PUBLISHED, all in one transaction.
func (r *ManualRepository) PublishVersion(ctx context.Context, manualID, versionID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin publish tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx,
		`UPDATE manual_versions SET is_published = FALSE, updated_at = $1 WHERE manual_id = $2 AND is_published = TRUE`,
		now, manualID); err != nil {
		return fmt.Errorf("unset published version: %w", err)
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx,
		`UPDATE manual_versions SET is_published = TRUE, updated_at = $1 WHERE id = $2 AND manual_id = $3`,
		now, versionID, manualID)
	if err != nil {
		return fmt.Errorf("set published version: %w", err)
	}
	var rows int64
	if rows, err = result.RowsAffected(); err != nil {
		return fmt.Errorf("check publish rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE manuals SET status = $1, published_version_id = $2, updated_at = $3 WHERE id = $4`,
		models.ManualStatusPublished, versionID, now, manualID); err != nil {
		return fmt.Errorf("mark manual published: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit publish tx: %w", err)
	}
	return nil
}

// ReplaceTags swaps the manual's tag set inside one transaction.
func (r *ManualRepository) ReplaceTags(ctx context.Context, manualID string, tagIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tags tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM manual_tags WHERE manual_id = $1`, manualID); err != nil {
		return fmt.Errorf("clear manual tags: %w", err)
	}
	for _, tagID := range tagIDs {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO manual_tags (manual_id, tag_id) VALUES ($1, $2)`, manualID, tagID); err != nil {
			return fmt.Errorf("attach tag %s: %w", tagID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tags tx: %w", err)
	}
	return nil
}

// Delete destroys the manual and every dependent row in one transaction.
func (r *ManualRepository) Delete(ctx context.Context, manualID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// break the version pointers before dependent rows go away
	if _, err = tx.ExecContext(ctx,
		`UPDATE manuals SET current_version_id = NULL, published_version_id = NULL WHERE id = $1`, manualID); err != nil {
		return fmt.Errorf("detach version pointers: %w", err)
	}

	statements := []string{
		`DELETE FROM audit_logs WHERE manual_id = $1`,
		`DELETE FROM review_requests WHERE manual_id = $1`,
		`DELETE FROM content_blocks WHERE version_id IN (SELECT id FROM manual_versions WHERE manual_id = $1)`,
		`DELETE FROM manual_versions WHERE manual_id = $1`,
		`DELETE FROM manual_collaborators WHERE manual_id = $1`,
		`DELETE FROM manual_tags WHERE manual_id = $1`,
	}
	for _, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt, manualID); err != nil {
			return fmt.Errorf("cascade delete: %w", err)
		}
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx, `DELETE FROM manuals WHERE id = $1`, manualID)
	if err != nil {
		return fmt.Errorf("delete manual: %w", err)
	}
	var rows int64
	if rows, err = result.RowsAffected(); err != nil {
		return fmt.Errorf("check delete rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}
