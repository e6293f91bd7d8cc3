package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/manualhub/manual-api/internal/models"
)

// AuditRepository appends to and reads the lifecycle trail. There is no
// update or single-entry delete path: the trail only disappears with its
// manual's cascade delete.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append records one lifecycle action.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if len(entry.Details) == 0 {
		entry.Details = []byte("{}")
	}
	const query = `INSERT INTO audit_logs (id, manual_id, version_id, action, actor_id, details, created_at)
	VALUES (:id, :manual_id, :version_id, :action, :actor_id, :details, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByManual returns a manual's trail, newest first.
func (r *AuditRepository) ListByManual(ctx context.Context, manualID string) ([]models.AuditLogEntry, error) {
	const query = `SELECT id, manual_id, version_id, action, actor_id, details, created_at
	FROM audit_logs WHERE manual_id = $1 ORDER BY created_at DESC`
	var entries []models.AuditLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, manualID); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
