package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gymslot-api/internal/dto"
	"github.com/noah-isme/gymslot-api/internal/models"
	appErrors "github.com/noah-isme/gymslot-api/pkg/errors"
)

type fakeSlotService struct {
	cacheHit    bool
	lastAnchor  string
	lastDates   []models.Date
	lastActor   string
	lastBlocked *bool
	toggled     []string
}

func (f *fakeSlotService) Week(ctx context.Context, anchor string) (*dto.WeekCalendar, bool, error) {
	f.lastAnchor = anchor
	if anchor == "bad" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	start := models.MustParseDate("2025-09-01")
	return &dto.WeekCalendar{WeekStart: start, Dates: []models.Date{start}, TimeSlots: models.TimeSlotCatalog(), Slots: []models.SlotAvailability{}}, f.cacheHit, nil
}

func (f *fakeSlotService) ListSlots(ctx context.Context, dates []models.Date) ([]models.Slot, error) {
	f.lastDates = dates
	return []models.Slot{}, nil
}

func (f *fakeSlotService) EnsureSlotsExist(ctx context.Context, actorID string, req dto.MaterializeSlotsRequest) (*dto.MaterializeSlotsResult, error) {
	f.lastActor = actorID
	from, err := models.ParseDate(req.From)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	to, err := models.ParseDate(req.To)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return &dto.MaterializeSlotsResult{From: from, To: to, Created: 14}, nil
}

func (f *fakeSlotService) SetBlocked(ctx context.Context, actorID, id string, blocked bool) (*models.Slot, error) {
	f.lastActor = actorID
	f.lastBlocked = &blocked
	return &models.Slot{ID: id, IsBlocked: blocked}, nil
}

func (f *fakeSlotService) ToggleBlocked(ctx context.Context, actorID, id string) (*models.Slot, error) {
	f.toggled = append(f.toggled, id)
	if id == "missing" {
		return nil, appErrors.ErrSlotNotFound
	}
	return &models.Slot{ID: id, IsBlocked: true}, nil
}

func (f *fakeSlotService) ToggleBlockedByCell(ctx context.Context, actorID string, req dto.ToggleCellRequest) (*models.Slot, error) {
	f.toggled = append(f.toggled, req.Date+"|"+req.TimeSlot)
	return &models.Slot{ID: "slot-cell", TimeSlot: req.TimeSlot, IsBlocked: true}, nil
}

func (f *fakeSlotService) SetCapacity(ctx context.Context, actorID, id string, req dto.UpdateSlotCapacityRequest) (*models.Slot, error) {
	if req.Capacity < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "capacity must be at least 1")
	}
	return &models.Slot{ID: id, Capacity: req.Capacity}, nil
}

func slotEngine(claims *models.JWTClaims, svc *fakeSlotService) http.Handler {
	h := NewSlotHandler(svc)
	r := newTestEngine(claims)
	r.GET("/calendar/week", h.Week)
	r.GET("/slots", h.List)
	r.POST("/admin/slots/materialize", h.Materialize)
	r.POST("/admin/slots/toggle", h.ToggleCell)
	r.POST("/admin/slots/:id/toggle", h.Toggle)
	r.PUT("/admin/slots/:id/blocked", h.SetBlocked)
	r.PUT("/admin/slots/:id/capacity", h.SetCapacity)
	return r
}

func TestSlotWeekReportsCacheHit(t *testing.T) {
	svc := &fakeSlotService{cacheHit: true}
	w := performRequest(slotEngine(memberClaims, svc), jsonRequest(http.MethodGet, "/calendar/week?date=2025-09-03", ""))

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Equal(t, "2025-09-03", svc.lastAnchor)
	var week dto.WeekCalendar
	require.NoError(t, json.Unmarshal(env.Data, &week))
	assert.Equal(t, "2025-09-01", week.WeekStart.String())
	assert.Equal(t, models.TimeSlotCatalog(), week.TimeSlots)

	w = performRequest(slotEngine(memberClaims, svc), jsonRequest(http.MethodGet, "/calendar/week?date=bad", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSlotListParsesDates(t *testing.T) {
	svc := &fakeSlotService{}
	r := slotEngine(memberClaims, svc)

	w := performRequest(r, jsonRequest(http.MethodGet, "/slots?date=2025-09-01,2025-09-02&date=2025-09-05", ""))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.lastDates, 3)
	assert.Equal(t, "2025-09-05", svc.lastDates[2].String())

	w = performRequest(r, jsonRequest(http.MethodGet, "/slots", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, jsonRequest(http.MethodGet, "/slots?date=2025-13-01", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSlotMaterialize(t *testing.T) {
	svc := &fakeSlotService{}
	w := performRequest(slotEngine(adminClaims, svc), jsonRequest(http.MethodPost, "/admin/slots/materialize", `{"from":"2025-09-01","to":"2025-09-02"}`))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", svc.lastActor)
	var result dto.MaterializeSlotsResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &result))
	assert.Equal(t, int64(14), result.Created)
}

func TestSlotBlockingEndpoints(t *testing.T) {
	svc := &fakeSlotService{}
	r := slotEngine(adminClaims, svc)

	w := performRequest(r, jsonRequest(http.MethodPut, "/admin/slots/slot-1/blocked", `{"blocked":false}`))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastBlocked)
	assert.False(t, *svc.lastBlocked)

	w = performRequest(r, jsonRequest(http.MethodPut, "/admin/slots/slot-1/blocked", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, jsonRequest(http.MethodPost, "/admin/slots/slot-1/toggle", ""))
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, jsonRequest(http.MethodPost, "/admin/slots/missing/toggle", ""))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(r, jsonRequest(http.MethodPost, "/admin/slots/toggle", `{"date":"2025-09-01","time_slot":"5:00 - 6:00 AM"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"slot-1", "missing", "2025-09-01|5:00 - 6:00 AM"}, svc.toggled)
}

func TestSlotSetCapacity(t *testing.T) {
	r := slotEngine(adminClaims, &fakeSlotService{})

	w := performRequest(r, jsonRequest(http.MethodPut, "/admin/slots/slot-1/capacity", `{"capacity":12}`))
	require.Equal(t, http.StatusOK, w.Code)
	var slot models.Slot
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &slot))
	assert.Equal(t, 12, slot.Capacity)

	w = performRequest(r, jsonRequest(http.MethodPut, "/admin/slots/slot-1/capacity", `{"capacity":0}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSlotAdminEndpointsRequireSession(t *testing.T) {
	w := performRequest(slotEngine(nil, &fakeSlotService{}), jsonRequest(http.MethodPost, "/admin/slots/slot-1/toggle", ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
