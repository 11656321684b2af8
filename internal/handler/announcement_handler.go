package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gymslot-api/internal/dto"
	"github.com/noah-isme/gymslot-api/internal/models"
	"github.com/noah-isme/gymslot-api/pkg/response"
)

type announcementService interface {
	ListAll(ctx context.Context) ([]models.Announcement, error)
	ListActive(ctx context.Context) ([]models.Announcement, error)
	Get(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, actorID string, req dto.CreateAnnouncementRequest) (*models.Announcement, error)
	Update(ctx context.Context, actorID, id string, req dto.UpdateAnnouncementRequest) (*models.Announcement, error)
	Delete(ctx context.Context, actorID, id string) error
}

// AnnouncementHandler exposes announcement endpoints.
type AnnouncementHandler struct {
	service announcementService
}

// NewAnnouncementHandler constructs the handler.
func NewAnnouncementHandler(service announcementService) *AnnouncementHandler {
	return &AnnouncementHandler{service: service}
}

// Active godoc
// @Summary Visible announcements
// @Tags Announcements
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *AnnouncementHandler) Active(c *gin.Context) {
	items, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// List godoc
// @Summary All announcements
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	items, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get announcement
// @Tags Admin
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/announcements/{id} [get]
func (h *AnnouncementHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Publish an announcement
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.CreateAnnouncementRequest true "Announcement"
// @Success 201 {object} response.Envelope
// @Router /admin/announcements [post]
func (h *AnnouncementHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.CreateAnnouncementRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	item, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update an announcement
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Announcement ID"
// @Param payload body dto.UpdateAnnouncementRequest true "Announcement"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/announcements/{id} [put]
func (h *AnnouncementHandler) Update(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.UpdateAnnouncementRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	item, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete an announcement
// @Tags Admin
// @Param id path string true "Announcement ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/announcements/{id} [delete]
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
