package models

import "time"

// DefaultSlotCapacity applies when materializing slots without an explicit capacity.
const DefaultSlotCapacity = 30

// Slot is a bookable (date, time slot) cell.
type Slot struct {
	ID        string    `db:"id" json:"id"`
	Date      Date      `db:"date" json:"date"`
	TimeSlot  string    `db:"time_slot" json:"time_slot"`
	Capacity  int       `db:"capacity" json:"capacity"`
	IsBlocked bool      `db:"is_blocked" json:"is_blocked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SlotAvailability is a slot with its live occupancy.
type SlotAvailability struct {
	Slot
	BookedCount int  `db:"booked_count" json:"booked_count"`
	Available   int  `db:"-" json:"available"`
	IsFull      bool `db:"-" json:"is_full"`
}

// Fill derives Available and IsFull from BookedCount and Capacity.
func (s *SlotAvailability) Fill() {
	s.Available = s.Capacity - s.BookedCount
	if s.Available < 0 {
		s.Available = 0
	}
	s.IsFull = s.Available == 0
}

// SlotCell addresses a slot by its natural key.
type SlotCell struct {
	Date     Date   `json:"date"`
	TimeSlot string `json:"time_slot"`
}
