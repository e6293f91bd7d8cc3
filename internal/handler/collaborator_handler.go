package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manualhub/manual-api/internal/dto"
	"github.com/manualhub/manual-api/internal/service"
	appErrors "github.com/manualhub/manual-api/pkg/errors"
	"github.com/manualhub/manual-api/pkg/response"
)

// CollaboratorHandler exposes per-manual access grants.
type CollaboratorHandler struct {
	collaborators *service.CollaboratorService
}

// NewCollaboratorHandler constructs CollaboratorHandler.
func NewCollaboratorHandler(collaborators *service.CollaboratorService) *CollaboratorHandler {
	return &CollaboratorHandler{collaborators: collaborators}
}

// List godoc
// @Summary List collaborators of a manual
// @Tags Collaborators
// @Produce json
// @Param slug path string true "Manual slug"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals/{slug}/collaborators [get]
func (h *CollaboratorHandler) List(c *gin.Context) {
	grants, err := h.collaborators.List(c.Request.Context(), c.Param("slug"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grants, nil)
}

// Add godoc
// @Summary Grant a user access to a manual
// @Tags Collaborators
// @Accept json
// @Produce json
// @Param slug path string true "Manual slug"
// @Param payload body dto.AddCollaboratorRequest true "Grant payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals/{slug}/collaborators [post]
func (h *CollaboratorHandler) Add(c *gin.Context) {
	var req dto.AddCollaboratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	grant, err := h.collaborators.Add(c.Request.Context(), c.Param("slug"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grant)
}

// Remove godoc
// @Summary Revoke a collaborator grant
// @Tags Collaborators
// @Produce json
// @Param slug path string true "Manual slug"
// @Param userId path string true "User ID"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /manuals/{slug}/collaborators/{userId} [delete]
func (h *CollaboratorHandler) Remove(c *gin.Context) {
	if err := h.collaborators.Remove(c.Request.Context(), c.Param("slug"), c.Param("userId"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
