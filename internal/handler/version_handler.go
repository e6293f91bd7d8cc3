package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/manualhub/manual-api/internal/dto"
	"github.com/manualhub/manual-api/internal/service"
	appErrors "github.com/manualhub/manual-api/pkg/errors"
	"github.com/manualhub/manual-api/pkg/response"
)

// VersionHandler exposes version snapshot endpoints.
type VersionHandler struct {
	versions *service.VersionService
}

// NewVersionHandler constructs VersionHandler.
func NewVersionHandler(versions *service.VersionService) *VersionHandler {
	return &VersionHandler{versions: versions}
}

// List godoc
// @Summary List versions of a manual, newest first
// @Tags Versions
// @Produce json
// @Param slug path string true "Manual slug"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals/{slug}/versions [get]
func (h *VersionHandler) List(c *gin.Context) {
	versions, err := h.versions.List(c.Request.Context(), c.Param("slug"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, versions, nil)
}

// Create godoc
// @Summary Snapshot the submitted block list as the next version
// @Tags Versions
// @Accept json
// @Produce json
// @Param slug path string true "Manual slug"
// @Param payload body dto.CreateVersionRequest true "Snapshot payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals/{slug}/versions [post]
func (h *VersionHandler) Create(c *gin.Context) {
	var req dto.CreateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	version, err := h.versions.Create(c.Request.Context(), c.Param("slug"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, version)
}

// Get godoc
// @Summary Get one version with its blocks
// @Tags Versions
// @Produce json
// @Param slug path string true "Manual slug"
// @Param number path int true "Version number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals/{slug}/versions/{number} [get]
func (h *VersionHandler) Get(c *gin.Context) {
	number, err := versionNumber(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	version, err := h.versions.Get(c.Request.Context(), c.Param("slug"), number, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, version, nil)
}

// Preview godoc
// @Summary Render a version with every block resolved to its effective type
// @Tags Versions
// @Produce json
// @Param slug path string true "Manual slug"
// @Param number path int true "Version number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals/{slug}/versions/{number}/preview [get]
func (h *VersionHandler) Preview(c *gin.Context) {
	number, err := versionNumber(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	preview, err := h.versions.Preview(c.Request.Context(), c.Param("slug"), number, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Export godoc
// @Summary Download a version as CSV or PDF
// @Tags Versions
// @Produce text/csv
// @Produce application/pdf
// @Param slug path string true "Manual slug"
// @Param number path int true "Version number"
// @Param format query string false "csv or pdf" default(pdf)
// @Success 200 {string} string "Document content"
// @Security BearerAuth
// @Router /manuals/{slug}/versions/{number}/export [get]
func (h *VersionHandler) Export(c *gin.Context) {
	number, err := versionNumber(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	slug := c.Param("slug")
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "pdf")))

	data, contentType, err := h.versions.Export(c.Request.Context(), slug, number, format, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("%s-v%d.%s", slug, number, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

func versionNumber(c *gin.Context) (int, error) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 1 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "version number must be a positive integer")
	}
	return number, nil
}
