package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gymslot-api/internal/dto"
	"github.com/noah-isme/gymslot-api/internal/models"
	"github.com/noah-isme/gymslot-api/internal/service"
	appErrors "github.com/noah-isme/gymslot-api/pkg/errors"
	"github.com/noah-isme/gymslot-api/pkg/response"
)

type bookingService interface {
	CreateBooking(ctx context.Context, userID string, req dto.CreateBookingRequest) (*models.Booking, error)
	SlotState(ctx context.Context, rawDate, timeSlot string) (*dto.SlotState, error)
	CancelBooking(ctx context.Context, bookingID, userID string) (*models.Booking, error)
	GetBookingCountsForSlots(ctx context.Context, req dto.BookingCountsRequest) (map[string]int, error)
	ListUserBookings(ctx context.Context, userID string) (*models.UserBookings, error)
	AdminListBookingsForSlot(ctx context.Context, slotID string) (*models.SlotRoster, error)
	AdminListBookingsForDate(ctx context.Context, rawDate string) (*dto.DayRoster, error)
	AdminListAllBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error)
}

type rosterExporter interface {
	ExportDayRoster(ctx context.Context, rawDate, format string) (*service.ExportFile, error)
	ExportSlotRoster(ctx context.Context, slotID, format string) (*service.ExportFile, error)
}

// BookingHandler serves member booking endpoints and the admin rosters.
type BookingHandler struct {
	service  bookingService
	exporter rosterExporter
}

// NewBookingHandler constructs the handler. exporter may be nil, which disables export routes.
func NewBookingHandler(service bookingService, exporter rosterExporter) *BookingHandler {
	return &BookingHandler{service: service, exporter: exporter}
}

// Create godoc
// @Summary Book a slot
// @Description Admits the caller into the slot at date and time slot. On SLOT_FULL, SLOT_BLOCKED
// @Description and duplicate errors the current slot state is returned in meta.slot.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.CreateBookingRequest true "Date and time slot"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.CreateBookingRequest
	if !bindJSON(c, &req, "invalid booking payload") {
		return
	}
	booking, err := h.service.CreateBooking(c.Request.Context(), claims.UserID, req)
	if err != nil {
		if appErrors.IsAdmissionFailure(err) && !errors.Is(err, appErrors.ErrSlotNotFound) {
			if state, stateErr := h.service.SlotState(c.Request.Context(), req.Date, req.TimeSlot); stateErr == nil {
				response.Error(c, err, map[string]interface{}{"slot": state})
				return
			}
		}
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// Cancel godoc
// @Summary Cancel one of the caller's bookings
// @Description Cancelling an already cancelled booking returns it unchanged.
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	booking, err := h.service.CancelBooking(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Mine godoc
// @Summary The caller's bookings
// @Description Active bookings split into upcoming and past, plus cancelled history.
// @Tags Bookings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bookings/me [get]
func (h *BookingHandler) Mine(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	view, err := h.service.ListUserBookings(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Counts godoc
// @Summary Active booking counts for slots
// @Description Every requested id is present in the result, 0 when it has no bookings.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.BookingCountsRequest true "Slot IDs"
// @Success 200 {object} response.Envelope
// @Router /slots/counts [post]
func (h *BookingHandler) Counts(c *gin.Context) {
	var req dto.BookingCountsRequest
	if !bindJSON(c, &req, "invalid counts payload") {
		return
	}
	counts, err := h.service.GetBookingCountsForSlots(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}

// State godoc
// @Summary Current state of one slot
// @Tags Bookings
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param time_slot query string true "Time slot label"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /slots/state [get]
func (h *BookingHandler) State(c *gin.Context) {
	state, err := h.service.SlotState(c.Request.Context(), c.Query("date"), c.Query("time_slot"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// SlotRoster godoc
// @Summary Users booked on a slot
// @Tags Admin
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/slots/{id}/bookings [get]
func (h *BookingHandler) SlotRoster(c *gin.Context) {
	roster, err := h.service.AdminListBookingsForSlot(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// DayRoster godoc
// @Summary Users booked on a date, grouped by slot
// @Tags Admin
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /admin/bookings/day/{date} [get]
func (h *BookingHandler) DayRoster(c *gin.Context) {
	roster, err := h.service.AdminListBookingsForDate(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// List godoc
// @Summary Search bookings
// @Tags Admin
// @Produce json
// @Param user_id query string false "User ID"
// @Param slot_id query string false "Slot ID"
// @Param date query string false "Booking date (YYYY-MM-DD)"
// @Param status query string false "active or cancelled"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	filter := models.BookingFilter{
		UserID:   strings.TrimSpace(c.Query("user_id")),
		SlotID:   strings.TrimSpace(c.Query("slot_id")),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
			return
		}
		filter.Date = &d
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.BookingStatus(strings.ToLower(raw))
		if status != models.BookingStatusActive && status != models.BookingStatusCancelled {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be active or cancelled"))
			return
		}
		filter.Status = &status
	}
	bookings, pagination, err := h.service.AdminListAllBookings(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// ExportDay godoc
// @Summary Download the roster of a date
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /admin/bookings/day/{date}/export [get]
func (h *BookingHandler) ExportDay(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	file, err := h.exporter.ExportDayRoster(c.Request.Context(), c.Param("date"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// ExportSlot godoc
// @Summary Download the roster of a slot
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Slot ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /admin/slots/{id}/bookings/export [get]
func (h *BookingHandler) ExportSlot(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	file, err := h.exporter.ExportSlotRoster(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}
