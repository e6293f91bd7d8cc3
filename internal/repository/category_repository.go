package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/manualhub/manual-api/internal/models"
)

// CategoryRepository persists categories and tags.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository constructs the repository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// CreateCategory inserts a category.
func (r *CategoryRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now
	const query = `INSERT INTO categories (id, name, slug, created_at, updated_at)
	VALUES (:id, :name, :slug, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// GetCategory fetches one category.
func (r *CategoryRepository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	if err := r.db.GetContext(ctx, &category,
		`SELECT id, name, slug, created_at, updated_at FROM categories WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &category, nil
}

// ListCategories returns every category by name.
func (r *CategoryRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories,
		`SELECT id, name, slug, created_at, updated_at FROM categories ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory renames a category.
func (r *CategoryRepository) UpdateCategory(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	result, err := r.db.NamedExecContext(ctx,
		`UPDATE categories SET name = :name, slug = :slug, updated_at = :updated_at WHERE id = :id`, category)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update category: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check category rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteCategory removes a category, detaching any manuals pointing at it.
func (r *CategoryRepository) DeleteCategory(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin category delete tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE manuals SET category_id = NULL WHERE category_id = $1`, id); err != nil {
		return fmt.Errorf("detach category: %w", err)
	}
	var result sql.Result
	result, err = tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	var rows int64
	if rows, err = result.RowsAffected(); err != nil {
		return fmt.Errorf("check category delete rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit category delete tx: %w", err)
	}
	return nil
}

// CreateTag inserts a tag.
func (r *CategoryRepository) CreateTag(ctx context.Context, tag *models.Tag) error {
	if tag.ID == "" {
		tag.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tag.CreatedAt = now
	tag.UpdatedAt = now
	const query = `INSERT INTO tags (id, name, slug, created_at, updated_at)
	VALUES (:id, :name, :slug, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tag); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create tag: %w", err)
	}
	return nil
}

// GetTag fetches one tag.
func (r *CategoryRepository) GetTag(ctx context.Context, id string) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.GetContext(ctx, &tag,
		`SELECT id, name, slug, created_at, updated_at FROM tags WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &tag, nil
}

// ListTags returns every tag by name.
func (r *CategoryRepository) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := r.db.SelectContext(ctx, &tags,
		`SELECT id, name, slug, created_at, updated_at FROM tags ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// UpdateTag renames a tag.
func (r *CategoryRepository) UpdateTag(ctx context.Context, tag *models.Tag) error {
	tag.UpdatedAt = time.Now().UTC()
	result, err := r.db.NamedExecContext(ctx,
		`UPDATE tags SET name = :name, slug = :slug, updated_at = :updated_at WHERE id = :id`, tag)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update tag: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check tag rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteTag removes a tag and its manual associations.
func (r *CategoryRepository) DeleteTag(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tag delete tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM manual_tags WHERE tag_id = $1`, id); err != nil {
		return fmt.Errorf("detach tag: %w", err)
	}
	var result sql.Result
	result, err = tx.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	var rows int64
	if rows, err = result.RowsAffected(); err != nil {
		return fmt.Errorf("check tag delete rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tag delete tx: %w", err)
	}
	return nil
}
