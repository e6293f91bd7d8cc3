package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/manualhub/manual-api/internal/models"
)

// VersionRepository persists immutable version snapshots and their blocks.
type VersionRepository struct {
	db *sqlx.DB
}

// NewVersionRepository constructs the repository.
func NewVersionRepository(db *sqlx.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

const versionColumns = `id, manual_id, version_number, changelog, created_by, is_published, created_at, updated_at`

// CreateSnapshot allocates the next version number, writes the version and
// its full block batch, and re-points the manual's current version, all
// inside one transaction. The unique (manual_id, version_number) constraint
// turns a concurrent allocation race into ErrDuplicate.
func (r *VersionRepository) CreateSnapshot(ctx context.Context, version *models.ManualVersion, blocks []models.ContentBlock) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var next int
	if err = tx.GetContext(ctx, &next,
		`SELECT COALESCE(MAX(version_number), 0) + 1 FROM manual_versions WHERE manual_id = $1`,
		version.ManualID); err != nil {
		return fmt.Errorf("allocate version number: %w", err)
	}
	version.VersionNumber = next

	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	version.CreatedAt = now
	version.UpdatedAt = now

	const insertVersion = `INSERT INTO manual_versions
	(id, manual_id, version_number, changelog, created_by, is_published, created_at, updated_at)
	VALUES (:id, :manual_id, :version_number, :changelog, :created_by, :is_published, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertVersion, version); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicate
			return err
		}
		return fmt.Errorf("insert version: %w", err)
	}

	const insertBlock = `INSERT INTO content_blocks
	(id, version_id, block_order, type, data, created_at, updated_at)
	VALUES (:id, :version_id, :block_order, :type, :data, :created_at, :updated_at)`
	for i := range blocks {
		if blocks[i].ID == "" {
			blocks[i].ID = uuid.NewString()
		}
		blocks[i].VersionID = version.ID
		blocks[i].CreatedAt = now
		blocks[i].UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, insertBlock, &blocks[i]); err != nil {
			return fmt.Errorf("insert block %d: %w", i, err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE manuals SET current_version_id = $1, updated_at = $2 WHERE id = $3`,
		version.ID, now, version.ManualID); err != nil {
		return fmt.Errorf("point current version: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot tx: %w", err)
	}
	version.Blocks = blocks
	return nil
}

// GetByID fetches one version without its blocks.
func (r *VersionRepository) GetByID(ctx context.Context, id string) (*models.ManualVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM manual_versions WHERE id = $1`, versionColumns)
	var version models.ManualVersion
	if err := r.db.GetContext(ctx, &version, query, id); err != nil {
		return nil, err
	}
	return &version, nil
}

// GetByNumber fetches one version of a manual by its number.
func (r *VersionRepository) GetByNumber(ctx context.Context, manualID string, number int) (*models.ManualVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM manual_versions WHERE manual_id = $1 AND version_number = $2`, versionColumns)
	var version models.ManualVersion
	if err := r.db.GetContext(ctx, &version, query, manualID, number); err != nil {
		return nil, err
	}
	return &version, nil
}

// ListByManual returns all versions of a manual, newest first, without blocks.
func (r *VersionRepository) ListByManual(ctx context.Context, manualID string) ([]models.ManualVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM manual_versions WHERE manual_id = $1 ORDER BY version_number DESC`, versionColumns)
	var versions []models.ManualVersion
	if err := r.db.SelectContext(ctx, &versions, query, manualID); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

// ListBlocks returns a version's blocks in display order.
func (r *VersionRepository) ListBlocks(ctx context.Context, versionID string) ([]models.ContentBlock, error) {
	const query = `SELECT id, version_id, block_order, type, data, created_at, updated_at
	FROM content_blocks WHERE version_id = $1 ORDER BY block_order`
	var blocks []models.ContentBlock
	if err := r.db.SelectContext(ctx, &blocks, query, versionID); err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	return blocks, nil
}
