package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gymslot-api/internal/dto"
	"github.com/noah-isme/gymslot-api/internal/models"
	"github.com/noah-isme/gymslot-api/pkg/response"
)

type feedbackService interface {
	Submit(ctx context.Context, claims *models.JWTClaims, req dto.SubmitFeedbackRequest) (*models.Feedback, error)
	ListAll(ctx context.Context, status string) ([]models.Feedback, error)
	UpdateStatus(ctx context.Context, actorID, id string, req dto.UpdateFeedbackStatusRequest) (*models.Feedback, error)
}

// FeedbackHandler serves the feedback form and its admin review.
type FeedbackHandler struct {
	service feedbackService
}

// NewFeedbackHandler constructs the handler.
func NewFeedbackHandler(service feedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

// Submit godoc
// @Summary Submit feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Param payload body dto.SubmitFeedbackRequest true "Feedback"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /feedback [post]
func (h *FeedbackHandler) Submit(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.SubmitFeedbackRequest
	if !bindJSON(c, &req, "invalid feedback payload") {
		return
	}
	feedback, err := h.service.Submit(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, feedback)
}

// List godoc
// @Summary List feedback
// @Tags Admin
// @Produce json
// @Param status query string false "new, reviewed or resolved"
// @Success 200 {object} response.Envelope
// @Router /admin/feedback [get]
func (h *FeedbackHandler) List(c *gin.Context) {
	items, err := h.service.ListAll(c.Request.Context(), strings.TrimSpace(c.Query("status")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// UpdateStatus godoc
// @Summary Change feedback status
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Feedback ID"
// @Param payload body dto.UpdateFeedbackStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/feedback/{id}/status [put]
func (h *FeedbackHandler) UpdateStatus(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.UpdateFeedbackStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	feedback, err := h.service.UpdateStatus(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feedback, nil)
}
