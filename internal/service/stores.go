package service

import (
	"context"
	"time"

	"github.com/manualhub/manual-api/internal/models"
)

// Store interfaces are satisfied by internal/repository; tests substitute
// in-memory stubs.

type manualStore interface {
	Create(ctx context.Context, manual *models.Manual, initial *models.ManualVersion) error
	GetBySlug(ctx context.Context, slug string) (*models.Manual, error)
	GetByID(ctx context.Context, id string) (*models.Manual, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter models.ManualFilter) ([]models.Manual, int, error)
	UpdateMeta(ctx context.Context, manual *models.Manual) error
	SetCurrentVersion(ctx context.Context, manualID, versionID string, status models.ManualStatus) error
	PublishVersion(ctx context.Context, manualID, versionID string) error
	ReplaceTags(ctx context.Context, manualID string, tagIDs []string) error
	Delete(ctx context.Context, manualID string) error
}

type versionStore interface {
	CreateSnapshot(ctx context.Context, version *models.ManualVersion, blocks []models.ContentBlock) error
	GetByID(ctx context.Context, id string) (*models.ManualVersion, error)
	GetByNumber(ctx context.Context, manualID string, number int) (*models.ManualVersion, error)
	ListByManual(ctx context.Context, manualID string) ([]models.ManualVersion, error)
	ListBlocks(ctx context.Context, versionID string) ([]models.ContentBlock, error)
}

type reviewStore interface {
	Create(ctx context.Context, review *models.ReviewRequest) error
	GetByID(ctx context.Context, id string) (*models.ReviewRequest, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewRequest, error)
	Decide(ctx context.Context, id string, status models.ReviewStatus, reviewerID, feedback string, decidedAt time.Time, manualID string, manualStatus models.ManualStatus) error
	HasApprovedForVersion(ctx context.Context, versionID string) (bool, error)
	HasPendingForVersion(ctx context.Context, versionID string) (bool, error)
}

type collaboratorStore interface {
	ListByManual(ctx context.Context, manualID string) ([]models.ManualCollaborator, error)
	Add(ctx context.Context, grant *models.ManualCollaborator) error
	Remove(ctx context.Context, manualID, userID string) error
}

type auditStore interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	ListByManual(ctx context.Context, manualID string) ([]models.AuditLogEntry, error)
}

// metricsRecorder is satisfied by MetricsService; a nil recorder disables
// observation.
type metricsRecorder interface {
	RecordCacheOperation(hit bool)
	ObserveDBQuery(label string, duration time.Duration)
}

type previewCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type categoryStore interface {
	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id string) error
	CreateTag(ctx context.Context, tag *models.Tag) error
	GetTag(ctx context.Context, id string) (*models.Tag, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	UpdateTag(ctx context.Context, tag *models.Tag) error
	DeleteTag(ctx context.Context, id string) error
}
