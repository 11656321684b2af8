package dto

import "github.com/noah-isme/gymslot-api/internal/models"

// CreateBookingRequest books the slot at date and time slot for the caller.
type CreateBookingRequest struct {
	Date     string `json:"date" validate:"required"`
	TimeSlot string `json:"time_slot" validate:"required"`
}

// BookingCountsRequest asks for active booking counts of many slots at once.
type BookingCountsRequest struct {
	SlotIDs []string `json:"slot_ids" validate:"required,max=500,dive,required"`
}

// SlotState is returned alongside admission failures so clients can resynchronise.
type SlotState struct {
	SlotID      string      `json:"slot_id"`
	Date        models.Date `json:"date"`
	TimeSlot    string      `json:"time_slot"`
	Capacity    int         `json:"capacity"`
	IsBlocked   bool        `json:"is_blocked"`
	BookedCount int         `json:"booked_count"`
}

// DayRoster lists every slot of one date with the users booked on it.
type DayRoster struct {
	Date  models.Date         `json:"date"`
	Slots []models.SlotRoster `json:"slots"`
}
