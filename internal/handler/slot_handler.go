package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gymslot-api/internal/dto"
	"github.com/noah-isme/gymslot-api/internal/middleware"
	"github.com/noah-isme/gymslot-api/internal/models"
	appErrors "github.com/noah-isme/gymslot-api/pkg/errors"
	"github.com/noah-isme/gymslot-api/pkg/response"
)

type slotService interface {
	Week(ctx context.Context, anchor string) (*dto.WeekCalendar, bool, error)
	ListSlots(ctx context.Context, dates []models.Date) ([]models.Slot, error)
	EnsureSlotsExist(ctx context.Context, actorID string, req dto.MaterializeSlotsRequest) (*dto.MaterializeSlotsResult, error)
	SetBlocked(ctx context.Context, actorID, id string, blocked bool) (*models.Slot, error)
	ToggleBlocked(ctx context.Context, actorID, id string) (*models.Slot, error)
	ToggleBlockedByCell(ctx context.Context, actorID string, req dto.ToggleCellRequest) (*models.Slot, error)
	SetCapacity(ctx context.Context, actorID, id string, req dto.UpdateSlotCapacityRequest) (*models.Slot, error)
}

// SlotHandler serves the calendar and the admin slot registry endpoints.
type SlotHandler struct {
	service slotService
}

// NewSlotHandler constructs the handler.
func NewSlotHandler(service slotService) *SlotHandler {
	return &SlotHandler{service: service}
}

// Week godoc
// @Summary Weekly calendar
// @Description Monday-based week containing date (today when omitted) with live occupancy per slot.
// @Tags Slots
// @Produce json
// @Param date query string false "Any date of the week (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calendar/week [get]
func (h *SlotHandler) Week(c *gin.Context) {
	week, hit, err := h.service.Week(c.Request.Context(), strings.TrimSpace(c.Query("date")))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	respondWithMeta(c, http.StatusOK, week)
}

// List godoc
// @Summary List slots of dates
// @Tags Slots
// @Produce json
// @Param date query []string true "Dates (YYYY-MM-DD), repeatable or comma separated"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	var dates []models.Date
	for _, raw := range c.QueryArray("date") {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			d, err := models.ParseDate(part)
			if err != nil {
				response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
				return
			}
			dates = append(dates, d)
		}
	}
	if len(dates) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "at least one date is required"))
		return
	}
	slots, err := h.service.ListSlots(c.Request.Context(), dates)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Materialize godoc
// @Summary Ensure slots exist for a date range
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.MaterializeSlotsRequest true "Date range"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/slots/materialize [post]
func (h *SlotHandler) Materialize(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.MaterializeSlotsRequest
	if !bindJSON(c, &req, "invalid materialize payload") {
		return
	}
	result, err := h.service.EnsureSlotsExist(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SetBlocked godoc
// @Summary Block or unblock a slot
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body dto.SetBlockedRequest true "Blocked flag"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/slots/{id}/blocked [put]
func (h *SlotHandler) SetBlocked(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.SetBlockedRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	if req.Blocked == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "blocked is required"))
		return
	}
	slot, err := h.service.SetBlocked(c.Request.Context(), claims.UserID, c.Param("id"), *req.Blocked)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Toggle godoc
// @Summary Toggle a slot's blocked flag
// @Tags Admin
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/slots/{id}/toggle [post]
func (h *SlotHandler) Toggle(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	slot, err := h.service.ToggleBlocked(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// ToggleCell godoc
// @Summary Toggle the slot at a calendar cell
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.ToggleCellRequest true "Date and time slot"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/slots/toggle [post]
func (h *SlotHandler) ToggleCell(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.ToggleCellRequest
	if !bindJSON(c, &req, "invalid toggle payload") {
		return
	}
	slot, err := h.service.ToggleBlockedByCell(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// SetCapacity godoc
// @Summary Change a slot's capacity
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body dto.UpdateSlotCapacityRequest true "Capacity"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/slots/{id}/capacity [put]
func (h *SlotHandler) SetCapacity(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.UpdateSlotCapacityRequest
	if !bindJSON(c, &req, "invalid capacity payload") {
		return
	}
	slot, err := h.service.SetCapacity(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}
