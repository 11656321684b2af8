package dto

import "github.com/noah-isme/gymslot-api/internal/models"

// MaterializeSlotsRequest asks the registry to ensure every catalog slot exists for a date range.
type MaterializeSlotsRequest struct {
	From     string `json:"from" validate:"required"`
	To       string `json:"to" validate:"required"`
	Capacity *int   `json:"capacity" validate:"omitempty,min=1,max=1000"`
}

// MaterializeSlotsResult reports how many slots were newly created.
type MaterializeSlotsResult struct {
	From    models.Date `json:"from"`
	To      models.Date `json:"to"`
	Created int64       `json:"created"`
}

// SetBlockedRequest sets the blocked flag explicitly.
type SetBlockedRequest struct {
	Blocked *bool `json:"blocked" validate:"required"`
}

// UpdateSlotCapacityRequest changes a slot's capacity.
type UpdateSlotCapacityRequest struct {
	Capacity int `json:"capacity" validate:"required,min=1,max=1000"`
}

// ToggleCellRequest toggles the slot addressed by date and time slot.
type ToggleCellRequest struct {
	Date     string `json:"date" validate:"required"`
	TimeSlot string `json:"time_slot" validate:"required"`
}

// WeekCalendar is the Monday-based weekly grid shown to members and admins.
type WeekCalendar struct {
	WeekStart models.Date               `json:"week_start"`
	Dates     []models.Date             `json:"dates"`
	TimeSlots []string                  `json:"time_slots"`
	Slots     []models.SlotAvailability `json:"slots"`
}
