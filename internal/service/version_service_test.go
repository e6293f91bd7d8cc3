package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/manualhub/manual-api/internal/blocks"
	"github.com/manualhub/manual-api/internal/dto"
	"github.com/manualhub/manual-api/internal/models"
	appErrors "github.com/manualhub/manual-api/pkg/errors"
)

func newVersionService(manuals *mockManualStore, versions *mockVersionStore, audit *mockAuditStore, cache *mockPreviewCache) *VersionService {
	return NewVersionService(manuals, versions, audit, cache, 15*time.Minute, nil, validator.New(), zap.NewNop())
}

func textBlockPayload(title, text string) dto.BlockPayload {
	raw, _ := json.Marshal(blocks.TextData{Title: title, Text: text})
	return dto.BlockPayload{Type: string(blocks.TypeText), Data: raw}
}

func TestVersionServiceCreateSnapshot(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	versions := &mockVersionStore{}
	audit := &mockAuditStore{}
	cache := &mockPreviewCache{store: map[string][]byte{"manual:manual-guide:version:1:preview": []byte(`{}`)}}
	svc := newVersionService(manuals, versions, audit, cache)

	req := dto.CreateVersionRequest{
		Changelog: "initial content",
		Blocks: []dto.BlockPayload{
			textBlockPayload("Intro", "welcome"),
			{Type: string(blocks.TypeDivider)},
		},
	}
	version, err := svc.Create(context.Background(), "guide", req, claimsFor("owner", models.RoleUser))
	require.NoError(t, err)

	assert.Equal(t, 1, version.VersionNumber)
	require.Len(t, version.Blocks, 2)
	assert.Equal(t, 0, version.Blocks[0].Order)
	assert.Equal(t, 1, version.Blocks[1].Order)
	assert.Equal(t, string(blocks.TypeDivider), version.Blocks[1].Type)
	assert.NotEmpty(t, version.Blocks[1].Data)
	assert.NotEmpty(t, cache.patterns)
	assert.Contains(t, audit.actions(), models.AuditActionUpdate)
}

func TestVersionServiceCreateRejectsUnknownBlockType(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	versions := &mockVersionStore{}
	svc := newVersionService(manuals, versions, &mockAuditStore{}, &mockPreviewCache{})

	req := dto.CreateVersionRequest{Blocks: []dto.BlockPayload{{Type: "MARQUEE"}}}
	_, err := svc.Create(context.Background(), "guide", req, claimsFor("owner", models.RoleUser))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Empty(t, versions.snapshots)
}

func TestVersionServiceCreateRejectsMistypedPayload(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	versions := &mockVersionStore{}
	svc := newVersionService(manuals, versions, &mockAuditStore{}, &mockPreviewCache{})

	req := dto.CreateVersionRequest{Blocks: []dto.BlockPayload{
		textBlockPayload("ok", "fine"),
		{Type: string(blocks.TypeList), Data: json.RawMessage(`{"items": "not-a-list"}`)},
	}}
	_, err := svc.Create(context.Background(), "guide", req, claimsFor("owner", models.RoleUser))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Empty(t, versions.snapshots, "invalid snapshot must write nothing")
}

func TestVersionServiceCreateRequiresEditor(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	svc := newVersionService(manuals, &mockVersionStore{}, &mockAuditStore{}, &mockPreviewCache{})

	_, err := svc.Create(context.Background(), "guide", dto.CreateVersionRequest{}, claimsFor("stranger", models.RoleUser))
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
}

func TestVersionServiceViewerCollaboratorCannotCreate(t *testing.T) {
	manual := draftManual("guide", "owner")
	manual.Collaborators = []models.ManualCollaborator{{ManualID: manual.ID, UserID: "viewer", Role: models.CollaboratorViewer}}
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	svc := newVersionService(manuals, &mockVersionStore{}, &mockAuditStore{}, &mockPreviewCache{})

	_, err := svc.Create(context.Background(), "guide", dto.CreateVersionRequest{}, claimsFor("viewer", models.RoleUser))
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)

	_, listErr := svc.List(context.Background(), "guide", claimsFor("viewer", models.RoleUser))
	assert.NoError(t, listErr)
}

func TestVersionServicePreviewResolvesLegacyTypes(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	versions := &mockVersionStore{}
	versions.add(&models.ManualVersion{
		ID:            "v-1",
		ManualID:      manual.ID,
		VersionNumber: 1,
		Blocks: []models.ContentBlock{
			{ID: "b1", Order: 0, Type: string(blocks.TypeText), Data: json.RawMessage(`{"title":"Clip","text":"","originalType":"VIDEO","url":"https://example.com/v"}`)},
			{ID: "b2", Order: 1, Type: string(blocks.TypeText), Data: json.RawMessage(`{"title":"Plain","text":"body"}`)},
		},
	})
	svc := newVersionService(manuals, versions, &mockAuditStore{}, &mockPreviewCache{})

	preview, err := svc.Preview(context.Background(), "guide", 1, claimsFor("owner", models.RoleUser))
	require.NoError(t, err)
	require.Len(t, preview.Blocks, 2)
	assert.Equal(t, string(blocks.TypeVideo), preview.Blocks[0].Type)
	assert.Equal(t, string(blocks.TypeText), preview.Blocks[1].Type)
}

func TestVersionServicePreviewCachesPublishedVersions(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	versions := &mockVersionStore{}
	versions.add(&models.ManualVersion{ID: "v-1", ManualID: manual.ID, VersionNumber: 1, IsPublished: true})
	cache := &mockPreviewCache{}
	svc := newVersionService(manuals, versions, &mockAuditStore{}, cache)

	_, err := svc.Preview(context.Background(), "guide", 1, claimsFor("owner", models.RoleUser))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	cached, err := svc.Preview(context.Background(), "guide", 1, claimsFor("owner", models.RoleUser))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets, "second read must come from cache")
	assert.Equal(t, 1, cached.VersionNumber)
}

func TestVersionServicePreviewReportsCacheAndQueryMetrics(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	versions := &mockVersionStore{}
	versions.add(&models.ManualVersion{ID: "v-1", ManualID: manual.ID, VersionNumber: 1, IsPublished: true})
	metrics := &mockMetricsRecorder{}
	svc := NewVersionService(manuals, versions, &mockAuditStore{}, &mockPreviewCache{}, 15*time.Minute, metrics, validator.New(), zap.NewNop())

	_, err := svc.Preview(context.Background(), "guide", 1, claimsFor("owner", models.RoleUser))
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.cacheMisses)
	assert.Contains(t, metrics.dbLabels, "load_version_snapshot")

	_, err = svc.Preview(context.Background(), "guide", 1, claimsFor("owner", models.RoleUser))
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.cacheHits, "second read should be served from cache")
	assert.Len(t, metrics.dbLabels, 1)
}

func TestVersionServicePreviewSkipsCacheForDrafts(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	versions := &mockVersionStore{}
	versions.add(&models.ManualVersion{ID: "v-1", ManualID: manual.ID, VersionNumber: 1, IsPublished: false})
	cache := &mockPreviewCache{}
	svc := newVersionService(manuals, versions, &mockAuditStore{}, cache)

	_, err := svc.Preview(context.Background(), "guide", 1, claimsFor("owner", models.RoleUser))
	require.NoError(t, err)
	assert.Zero(t, cache.sets)
}

func TestVersionServiceGetUnknownNumber(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	svc := newVersionService(manuals, &mockVersionStore{}, &mockAuditStore{}, &mockPreviewCache{})

	_, err := svc.Get(context.Background(), "guide", 9, claimsFor("owner", models.RoleUser))
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestVersionServiceExportCSV(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	versions := &mockVersionStore{}
	versions.add(&models.ManualVersion{
		ID:            "v-1",
		ManualID:      manual.ID,
		VersionNumber: 1,
		Blocks: []models.ContentBlock{
			{ID: "b1", Order: 0, Type: string(blocks.TypeText), Data: json.RawMessage(`{"title":"Intro","text":"welcome"}`)},
		},
	})
	svc := newVersionService(manuals, versions, &mockAuditStore{}, &mockPreviewCache{})

	data, contentType, err := svc.Export(context.Background(), "guide", 1, ExportFormatCSV, claimsFor("owner", models.RoleUser))
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(data), "Intro")
}

func TestVersionServiceExportPDF(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	versions := &mockVersionStore{}
	versions.add(&models.ManualVersion{ID: "v-1", ManualID: manual.ID, VersionNumber: 1})
	svc := newVersionService(manuals, versions, &mockAuditStore{}, &mockPreviewCache{})

	data, contentType, err := svc.Export(context.Background(), "guide", 1, ExportFormatPDF, claimsFor("owner", models.RoleUser))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.NotEmpty(t, data)
}

func TestVersionServiceExportRejectsUnknownFormat(t *testing.T) {
	manual := draftManual("guide", "owner")
	manuals := &mockManualStore{manuals: map[string]*models.Manual{"guide": manual}}
	versions := &mockVersionStore{}
	versions.add(&models.ManualVersion{ID: "v-1", ManualID: manual.ID, VersionNumber: 1})
	svc := newVersionService(manuals, versions, &mockAuditStore{}, &mockPreviewCache{})

	_, _, err := svc.Export(context.Background(), "guide", 1, ExportFormat("xml"), claimsFor("owner", models.RoleUser))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}
