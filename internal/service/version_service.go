package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/manualhub/manual-api/internal/blocks"
	"github.com/manualhub/manual-api/internal/dto"
	"github.com/manualhub/manual-api/internal/models"
	"github.com/manualhub/manual-api/internal/repository"
	appErrors "github.com/manualhub/manual-api/pkg/errors"
	"github.com/manualhub/manual-api/pkg/export"
)

// VersionService manages immutable version snapshots and their rendered
// previews and exports.
type VersionService struct {
	manuals   manualStore
	versions  versionStore
	audit     auditStore
	cache     previewCache
	cacheTTL  time.Duration
	metrics   metricsRecorder
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVersionService constructs the service. cacheTTL <= 0 disables preview
// caching even when a cache is wired; a nil metrics recorder disables
// observation.
func NewVersionService(manuals manualStore, versions versionStore, audit auditStore, cache previewCache, cacheTTL time.Duration, metrics metricsRecorder, validate *validator.Validate, logger *zap.Logger) *VersionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VersionService{
		manuals:   manuals,
		versions:  versions,
		audit:     audit,
		cache:     cache,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// List returns every version of the manual, newest first.
func (s *VersionService) List(ctx context.Context, slug string, actor *models.Claims) ([]models.ManualVersion, error) {
	manual, err := s.authorizeView(ctx, slug, actor)
	if err != nil {
		return nil, err
	}
	versions, err := s.versions.ListByManual(ctx, manual.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list versions")
	}
	return versions, nil
}

// Get returns one version with its blocks loaded.
func (s *VersionService) Get(ctx context.Context, slug string, versionNumber int, actor *models.Claims) (*models.ManualVersion, error) {
	manual, err := s.authorizeView(ctx, slug, actor)
	if err != nil {
		return nil, err
	}
	return s.loadVersion(ctx, manual.ID, versionNumber)
}

// Create persists the submitted block list as the manual's next version.
// The snapshot is all-or-nothing: any invalid block rejects the whole
// request and nothing is written.
func (s *VersionService) Create(ctx context.Context, slug string, req dto.CreateVersionRequest, actor *models.Claims) (*models.ManualVersion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	manual, err := s.authorizeEdit(ctx, slug, actor)
	if err != nil {
		return nil, err
	}

	contentBlocks, err := s.buildBlocks(req.Blocks)
	if err != nil {
		return nil, err
	}

	version := &models.ManualVersion{
		ManualID:  manual.ID,
		Changelog: req.Changelog,
		CreatedBy: actor.UserID,
	}
	if err := s.versions.CreateSnapshot(ctx, version, contentBlocks); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a concurrent version was created, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create version")
	}
	s.invalidatePreviews(ctx, manual.ID)

	s.emitAudit(ctx, manual.ID, &version.ID, actor.UserID, map[string]interface{}{
		"version_number": version.VersionNumber,
		"block_count":    len(contentBlocks),
	})
	return version, nil
}

// Preview resolves every block to its effective variant and decoded payload.
// Published versions are immutable, so their previews are cached.
func (s *VersionService) Preview(ctx context.Context, slug string, versionNumber int, actor *models.Claims) (*dto.VersionPreview, error) {
	manual, err := s.authorizeView(ctx, slug, actor)
	if err != nil {
		return nil, err
	}

	cacheKey := previewCacheKey(manual.ID, versionNumber)
	if s.cacheEnabled() {
		var cached dto.VersionPreview
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.recordCacheOperation(true)
			return &cached, nil
		}
		s.recordCacheOperation(false)
	}

	start := time.Now()
	version, err := s.loadVersion(ctx, manual.ID, versionNumber)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("load_version_snapshot", time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	preview := &dto.VersionPreview{
		ManualID:      manual.ID,
		ManualTitle:   manual.Title,
		VersionID:     version.ID,
		VersionNumber: version.VersionNumber,
		Changelog:     version.Changelog,
		IsPublished:   version.IsPublished,
		Blocks:        make([]dto.PreviewBlock, 0, len(version.Blocks)),
	}
	for _, b := range version.Blocks {
		resolved, payload, err := blocks.Decode(blocks.Type(b.Type), b.Data)
		if err != nil {
			s.logger.Warn("undecodable block in stored version",
				zap.String("version_id", version.ID),
				zap.String("block_id", b.ID),
				zap.Error(err))
			continue
		}
		preview.Blocks = append(preview.Blocks, dto.PreviewBlock{
			ID:    b.ID,
			Order: b.Order,
			Type:  string(resolved),
			Data:  payload,
		})
	}

	if s.cacheEnabled() && version.IsPublished {
		if err := s.cache.Set(ctx, cacheKey, preview, s.cacheTTL); err != nil {
			s.logger.Warn("preview cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return preview, nil
}

// ExportFormat selects the rendering of a version export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// Export renders one version as a downloadable document.
func (s *VersionService) Export(ctx context.Context, slug string, versionNumber int, format ExportFormat, actor *models.Claims) ([]byte, string, error) {
	preview, err := s.Preview(ctx, slug, versionNumber, actor)
	if err != nil {
		return nil, "", err
	}

	switch format {
	case ExportFormatCSV:
		data, err := s.csv.Render(previewDataset(preview))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return data, "text/csv", nil
	case ExportFormatPDF:
		subtitle := fmt.Sprintf("Version %d", preview.VersionNumber)
		if preview.Changelog != "" {
			subtitle += " - " + preview.Changelog
		}
		data, err := s.pdf.RenderDocument(preview.ManualTitle, subtitle, previewSections(preview))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return data, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *VersionService) buildBlocks(payloads []dto.BlockPayload) ([]models.ContentBlock, error) {
	contentBlocks := make([]models.ContentBlock, 0, len(payloads))
	for i, payload := range payloads {
		blockType := blocks.Type(payload.Type)
		if !blockType.IsValid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("block %d: unknown type %q", i, payload.Type))
		}
		data := payload.Data
		if len(data) == 0 {
			data = blocks.DefaultData(blockType)
		}
		if _, err := blocks.DecodeData(blockType, data); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("block %d: %v", i, err))
		}
		contentBlocks = append(contentBlocks, models.ContentBlock{
			Order: i,
			Type:  string(blockType),
			Data:  data,
		})
	}
	return contentBlocks, nil
}

func (s *VersionService) loadVersion(ctx context.Context, manualID string, versionNumber int) (*models.ManualVersion, error) {
	version, err := s.versions.GetByNumber(ctx, manualID, versionNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "version not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load version")
	}
	if version.Blocks == nil {
		version.Blocks, err = s.versions.ListBlocks(ctx, version.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blocks")
		}
	}
	return version, nil
}

func (s *VersionService) authorizeView(ctx context.Context, slug string, actor *models.Claims) (*models.Manual, error) {
	return s.authorize(ctx, slug, actor, func(c Capabilities) bool { return c.CanView })
}

func (s *VersionService) authorizeEdit(ctx context.Context, slug string, actor *models.Claims) (*models.Manual, error) {
	return s.authorize(ctx, slug, actor, func(c Capabilities) bool { return c.CanEdit })
}

func (s *VersionService) authorize(ctx context.Context, slug string, actor *models.Claims, allowed func(Capabilities) bool) (*models.Manual, error) {
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
	if !allowed(ResolvePermissions(actor.UserID, actor.Role, manual)) {
		return nil, appErrors.ErrForbidden
	}
	return manual, nil
}

func (s *VersionService) cacheEnabled() bool {
	return s.cache != nil && s.cacheTTL > 0
}

func (s *VersionService) recordCacheOperation(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit)
	}
}

func (s *VersionService) invalidatePreviews(ctx context.Context, manualID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, previewCachePattern(manualID)); err != nil {
		s.logger.Warn("preview cache invalidation failed", zap.String("manual_id", manualID), zap.Error(err))
	}
}

func (s *VersionService) emitAudit(ctx context.Context, manualID string, versionID *string, actorID string, details map[string]interface{}) {
	entry := &models.AuditLogEntry{
		ManualID:  manualID,
		VersionID: versionID,
		Action:    models.AuditActionUpdate,
		ActorID:   actorID,
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = raw
		}
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", zap.String("manual_id", manualID), zap.Error(err))
	}
}

func previewDataset(preview *dto.VersionPreview) export.Dataset {
	dataset := export.Dataset{Headers: []string{"order", "type", "content"}}
	for _, b := range preview.Blocks {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"order":   strconv.Itoa(b.Order),
			"type":    b.Type,
			"content": blockSummary(b),
		})
	}
	return dataset
}

func previewSections(preview *dto.VersionPreview) []export.DocumentSection {
	sections := make([]export.DocumentSection, 0, len(preview.Blocks))
	for _, b := range preview.Blocks {
		sections = append(sections, blockSection(b))
	}
	return sections
}

// blockSection flattens one block into a heading and a plain-text body.
// Cached previews arrive with generic map payloads, so the payload is
// re-decoded through the schema rather than type-switched directly.
func blockSection(b dto.PreviewBlock) export.DocumentSection {
	raw, err := json.Marshal(b.Data)
	if err != nil {
		return export.DocumentSection{}
	}
	decoded, err := blocks.DecodeData(blocks.Type(b.Type), raw)
	if err != nil {
		return export.DocumentSection{}
	}

	switch payload := decoded.(type) {
	case blocks.TextData:
		return export.DocumentSection{Heading: payload.Title, Body: payload.Text}
	case blocks.ImageData:
		body := payload.Src
		if payload.Caption != "" {
			body += "\n" + payload.Caption
		}
		return export.DocumentSection{Heading: "Image", Body: body}
	case blocks.ListData:
		return export.DocumentSection{Heading: payload.Title, Body: "- " + strings.Join(payload.Items, "\n- ")}
	case blocks.ChecklistData:
		return export.DocumentSection{Heading: payload.Title, Body: "[ ] " + strings.Join(payload.Items, "\n[ ] ")}
	case blocks.TableData:
		return export.DocumentSection{Heading: payload.Title, Body: payload.CSVData}
	case blocks.VideoData:
		body := payload.URL
		if payload.Description != "" {
			body += "\n" + payload.Description
		}
		return export.DocumentSection{Heading: payload.Title, Body: body}
	case blocks.CodeData:
		heading := payload.Title
		if heading == "" {
			heading = payload.Language
		}
		return export.DocumentSection{Heading: heading, Body: payload.Code}
	case blocks.QuoteData:
		body := payload.Quote
		if payload.Author != "" {
			body += "\n- " + payload.Author
		}
		return export.DocumentSection{Heading: "Quote", Body: body}
	case blocks.DiagramData:
		return export.DocumentSection{Heading: payload.Title, Body: payload.Data}
	case blocks.TabsData:
		var body strings.Builder
		for _, tab := range payload.Tabs {
			body.WriteString(tab.Title)
			body.WriteString("\n")
			body.WriteString(tab.Content)
			body.WriteString("\n")
		}
		return export.DocumentSection{Heading: "Tabs", Body: body.String()}
	default:
		return export.DocumentSection{}
	}
}

func blockSummary(b dto.PreviewBlock) string {
	section := blockSection(b)
	if section.Heading != "" && section.Body != "" {
		return section.Heading + ": " + section.Body
	}
	if section.Heading != "" {
		return section.Heading
	}
	return section.Body
}
