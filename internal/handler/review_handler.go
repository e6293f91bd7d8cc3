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

// ReviewHandler exposes the reviewer workflow.
type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler constructs ReviewHandler.
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// List godoc
// @Summary List review requests
// @Tags Reviews
// @Produce json
// @Param status query string false "Comma separated status filter"
// @Param manualId query string false "Filter by manual"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews [get]
func (h *ReviewHandler) List(c *gin.Context) {
	var query dto.ReviewQuery
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			query.Status = append(query.Status, models.ReviewStatus(strings.ToUpper(raw)))
		}
	}
	query.ManualID = c.Query("manualId")
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		query.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		query.Offset = offset
	}

	reviews, err := h.reviews.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, nil)
}

// Get godoc
// @Summary Get one review request
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews/{id} [get]
func (h *ReviewHandler) Get(c *gin.Context) {
	review, err := h.reviews.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, review, nil)
}

// Approve godoc
// @Summary Approve a pending review
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews/{id}/approve [post]
func (h *ReviewHandler) Approve(c *gin.Context) {
	var payload struct {
		Feedback string `json:"feedback"`
	}
	// approval feedback is optional; a missing body is fine
	_ = c.ShouldBindJSON(&payload)

	review, err := h.reviews.Approve(c.Request.Context(), c.Param("id"), payload.Feedback, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, review, nil)
}

// Reject godoc
// @Summary Reject a pending review with feedback
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param payload body dto.RejectReviewRequest true "Feedback payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews/{id}/reject [post]
func (h *ReviewHandler) Reject(c *gin.Context) {
	var req dto.RejectReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "feedback is required"))
		return
	}
	review, err := h.reviews.Reject(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, review, nil)
}
