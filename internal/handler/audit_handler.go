package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/manualhub/manual-api/internal/models"
	"github.com/manualhub/manual-api/internal/service"
	appErrors "github.com/manualhub/manual-api/pkg/errors"
	"github.com/manualhub/manual-api/pkg/export"
	"github.com/manualhub/manual-api/pkg/response"
)

// AuditHandler exposes the per-manual audit trail.
type AuditHandler struct {
	manuals *service.ManualService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(manuals *service.ManualService) *AuditHandler {
	return &AuditHandler{manuals: manuals, csv: export.NewCSVExporter(), pdf: export.NewPDFExporter()}
}

// List godoc
// @Summary List the manual's audit trail, newest first
// @Tags Audit
// @Produce json
// @Param slug path string true "Manual slug"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals/{slug}/audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	entries, err := h.manuals.AuditTrail(c.Request.Context(), c.Param("slug"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Export godoc
// @Summary Export the audit trail as CSV or a tabular PDF
// @Tags Audit
// @Produce text/csv,application/pdf
// @Param slug path string true "Manual slug"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {string} string "export content"
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals/{slug}/audit/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	slug := c.Param("slug")
	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	if format != "csv" && format != "pdf" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}

	entries, err := h.manuals.AuditTrail(c.Request.Context(), slug, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	var (
		data        []byte
		contentType string
	)
	if format == "pdf" {
		data, err = h.pdf.Render(auditDataset(entries), fmt.Sprintf("Audit trail: %s", slug))
		contentType = "application/pdf"
	} else {
		data, err = h.csv.Render(auditDataset(entries))
		contentType = "text/csv"
	}
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
		return
	}

	filename := fmt.Sprintf("%s-audit-%s.%s", slug, time.Now().UTC().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

func auditDataset(entries []models.AuditLogEntry) export.Dataset {
	dataset := export.Dataset{Headers: []string{"timestamp", "action", "actor", "version_id", "details"}}
	for _, entry := range entries {
		versionID := ""
		if entry.VersionID != nil {
			versionID = *entry.VersionID
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"timestamp":  entry.CreatedAt.UTC().Format(time.RFC3339),
			"action":     entry.Action,
			"actor":      entry.ActorID,
			"version_id": versionID,
			"details":    string(entry.Details),
		})
	}
	return dataset
}
