package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manualhub/manual-api/internal/dto"
	"github.com/manualhub/manual-api/internal/service"
	appErrors "github.com/manualhub/manual-api/pkg/errors"
	"github.com/manualhub/manual-api/pkg/response"
)

// CategoryHandler exposes taxonomy endpoints for categories and tags.
type CategoryHandler struct {
	categories *service.CategoryService
}

// NewCategoryHandler constructs CategoryHandler.
func NewCategoryHandler(categories *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// ListCategories godoc
// @Summary List categories
// @Tags Taxonomy
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /categories [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.categories.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// CreateCategory godoc
// @Summary Create a category
// @Tags Taxonomy
// @Accept json
// @Produce json
// @Param payload body dto.UpsertCategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req dto.UpsertCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	category, err := h.categories.CreateCategory(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// UpdateCategory godoc
// @Summary Rename a category
// @Tags Taxonomy
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param payload body dto.UpsertCategoryRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	var req dto.UpsertCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	category, err := h.categories.UpdateCategory(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// DeleteCategory godoc
// @Summary Delete a category, detaching its manuals
// @Tags Taxonomy
// @Produce json
// @Param id path string true "Category ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	if err := h.categories.DeleteCategory(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListTags godoc
// @Summary List tags
// @Tags Taxonomy
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /tags [get]
func (h *CategoryHandler) ListTags(c *gin.Context) {
	tags, err := h.categories.ListTags(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tags, nil)
}

// CreateTag godoc
// @Summary Create a tag
// @Tags Taxonomy
// @Accept json
// @Produce json
// @Param payload body dto.UpsertTagRequest true "Tag payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /tags [post]
func (h *CategoryHandler) CreateTag(c *gin.Context) {
	var req dto.UpsertTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tag, err := h.categories.CreateTag(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tag)
}

// UpdateTag godoc
// @Summary Rename a tag
// @Tags Taxonomy
// @Accept json
// @Produce json
// @Param id path string true "Tag ID"
// @Param payload body dto.UpsertTagRequest true "Tag payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /tags/{id} [put]
func (h *CategoryHandler) UpdateTag(c *gin.Context) {
	var req dto.UpsertTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tag, err := h.categories.UpdateTag(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tag, nil)
}

// DeleteTag godoc
// @Summary Delete a tag and its manual associations
// @Tags Taxonomy
// @Produce json
// @Param id path string true "Tag ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /tags/{id} [delete]
func (h *CategoryHandler) DeleteTag(c *gin.Context) {
	if err := h.categories.DeleteTag(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
