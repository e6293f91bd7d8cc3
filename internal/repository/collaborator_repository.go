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

// CollaboratorRepository persists per-manual access grants.
type CollaboratorRepository struct {
	db *sqlx.DB
}

// NewCollaboratorRepository constructs the repository.
func NewCollaboratorRepository(db *sqlx.DB) *CollaboratorRepository {
	return &CollaboratorRepository{db: db}
}

// ListByManual returns all grants on a manual.
func (r *CollaboratorRepository) ListByManual(ctx context.Context, manualID string) ([]models.ManualCollaborator, error) {
	const query = `SELECT id, manual_id, user_id, role, added_by, created_at
	FROM manual_collaborators WHERE manual_id = $1 ORDER BY created_at`
	var grants []models.ManualCollaborator
	if err := r.db.SelectContext(ctx, &grants, query, manualID); err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	return grants, nil
}

// Add inserts a grant. The unique (manual_id, user_id) constraint turns a
// repeated grant into ErrDuplicate instead of a silent second row.
func (r *CollaboratorRepository) Add(ctx context.Context, grant *models.ManualCollaborator) error {
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO manual_collaborators (id, manual_id, user_id, role, added_by, created_at)
	VALUES (:id, :manual_id, :user_id, :role, :added_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grant); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("add collaborator: %w", err)
	}
	return nil
}

// Remove deletes one user's grant on a manual.
func (r *CollaboratorRepository) Remove(ctx context.Context, manualID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM manual_collaborators WHERE manual_id = $1 AND user_id = $2`, manualID, userID)
	if err != nil {
		return fmt.Errorf("remove collaborator: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check remove rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
