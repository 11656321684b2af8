package models

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is a user's claim on one seat of a slot.
type Booking struct {
	ID          string        `db:"id" json:"id"`
	UserID      string        `db:"user_id" json:"user_id"`
	SlotID      string        `db:"slot_id" json:"slot_id"`
	BookingDate Date          `db:"booking_date" json:"booking_date"`
	Status      BookingStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	CancelledAt *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`

	Slot *Slot        `db:"-" json:"slot,omitempty"`
	User *UserProfile `db:"-" json:"user,omitempty"`
}

// IsActive reports whether the booking still holds a seat.
func (b *Booking) IsActive() bool {
	return b != nil && b.Status == BookingStatusActive
}

// BookingFilter narrows admin booking listings.
type BookingFilter struct {
	UserID   string
	SlotID   string
	Date     *Date
	Status   *BookingStatus
	Page     int
	PageSize int
}

// UserBookings groups a user's bookings the way the "my bookings" view presents them.
type UserBookings struct {
	Upcoming  []Booking `json:"upcoming"`
	Past      []Booking `json:"past"`
	Cancelled []Booking `json:"cancelled"`
}

// SlotRoster lists the users holding an active booking on one slot.
type SlotRoster struct {
	Slot     Slot      `json:"slot"`
	Bookings []Booking `json:"bookings"`
}
