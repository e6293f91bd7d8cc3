package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/manualhub/manual-api/internal/dto"
	"github.com/manualhub/manual-api/internal/models"
	"github.com/manualhub/manual-api/internal/service"
	appErrors "github.com/manualhub/manual-api/pkg/errors"
	"github.com/manualhub/manual-api/pkg/response"
)

// ManualHandler exposes manual lifecycle endpoints.
type ManualHandler struct {
	manuals *service.ManualService
}

// NewManualHandler constructs ManualHandler.
func NewManualHandler(manuals *service.ManualService) *ManualHandler {
	return &ManualHandler{manuals: manuals}
}

// List godoc
// @Summary List manuals visible to the caller
// @Tags Manuals
// @Produce json
// @Param status query string false "Comma separated status filter"
// @Param department query string false "Filter by department"
// @Param categoryId query string false "Filter by category"
// @Param tagId query string false "Filter by tag"
// @Param search query string false "Title search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals [get]
func (h *ManualHandler) List(c *gin.Context) {
	var query dto.ManualQuery
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			query.Status = append(query.Status, models.ManualStatus(strings.ToUpper(raw)))
		}
	}
	query.Department = c.Query("department")
	query.CategoryID = c.Query("categoryId")
	query.TagID = c.Query("tagId")
	query.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		query.PageSize = size
	}

	manuals, pagination, err := h.manuals.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, manuals, pagination)
}

// Create godoc
// @Summary Create a manual with an empty first version
// @Tags Manuals
// @Accept json
// @Produce json
// @Param payload body dto.CreateManualRequest true "Manual payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals [post]
func (h *ManualHandler) Create(c *gin.Context) {
	var req dto.CreateManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	manual, err := h.manuals.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, manual)
}

// Get godoc
// @Summary Get one manual by slug
// @Tags Manuals
// @Produce json
// @Param slug path string true "Manual slug"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals/{slug} [get]
func (h *ManualHandler) Get(c *gin.Context) {
	manual, caps, err := h.manuals.Get(c.Request.Context(), c.Param("slug"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, manual, nil, map[string]interface{}{"permissions": caps})
}

// Update godoc
// @Summary Update manual metadata
// @Tags Manuals
// @Accept json
// @Produce json
// @Param slug path string true "Manual slug"
// @Param payload body dto.UpdateManualRequest true "Metadata payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals/{slug} [patch]
func (h *ManualHandler) Update(c *gin.Context) {
	var req dto.UpdateManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	manual, err := h.manuals.Update(c.Request.Context(), c.Param("slug"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, manual, nil)
}

// Delete godoc
// @Summary Delete a manual and all of its versions
// @Tags Manuals
// @Produce json
// @Param slug path string true "Manual slug"
// @Success 204 "No Content"
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals/{slug} [delete]
func (h *ManualHandler) Delete(c *gin.Context) {
	if err := h.manuals.Delete(c.Request.Context(), c.Param("slug"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit godoc
// @Summary Submit the current version for review
// @Tags Manuals
// @Produce json
// @Param slug path string true "Manual slug"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals/{slug}/submit [post]
func (h *ManualHandler) Submit(c *gin.Context) {
	review, err := h.manuals.Submit(c.Request.Context(), c.Param("slug"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review)
}

// Publish godoc
// @Summary Publish an approved version
// @Tags Manuals
// @Produce json
// @Param slug path string true "Manual slug"
// @Param version query int false "Version number, defaults to the current version"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals/{slug}/publish [post]
func (h *ManualHandler) Publish(c *gin.Context) {
	versionNumber, _ := strconv.Atoi(c.Query("version"))
	manual, err := h.manuals.Publish(c.Request.Context(), c.Param("slug"), versionNumber, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, manual, nil)
}

// Rollback godoc
// @Summary Roll the manual back to an earlier version
// @Tags Manuals
// @Accept json
// @Produce json
// @Param slug path string true "Manual slug"
// @Param payload body dto.RollbackRequest true "Target version"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals/{slug}/rollback [post]
func (h *ManualHandler) Rollback(c *gin.Context) {
	var req dto.RollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	manual, err := h.manuals.Rollback(c.Request.Context(), c.Param("slug"), req.VersionNumber, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, manual, nil)
}
