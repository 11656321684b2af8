package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/gymslot-api/internal/models"
	"github.com/noah-isme/gymslot-api/internal/repository"
	appErrors "github.com/noah-isme/gymslot-api/pkg/errors"
)

// memoryLedger holds slots and bookings in memory. WithSlotLock serialises admissions on a single
// mutex, which is stricter than the per-slot row lock but gives the same guarantees.
type memoryLedger struct {
	mu       sync.Mutex
	slots    map[string]*models.Slot
	bookings []*models.Booking
	users    map[string]models.UserProfile
	failWith error

	countQueries [][]string
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{slots: map[string]*models.Slot{}, users: map[string]models.UserProfile{}}
}

func (l *memoryLedger) addSlot(date, label string, capacity int) *models.Slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot := &models.Slot{ID: uuid.NewString(), Date: models.MustParseDate(date), TimeSlot: label, Capacity: capacity}
	l.slots[slot.ID] = slot
	return slot
}

func (l *memoryLedger) activeCount(slotID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.countLocked(slotID)
}

func (l *memoryLedger) countLocked(slotID string) int {
	n := 0
	for _, b := range l.bookings {
		if b.SlotID == slotID && b.Status == models.BookingStatusActive {
			n++
		}
	}
	return n
}

func (l *memoryLedger) cellLocked(date models.Date, label string) *models.Slot {
	for _, s := range l.slots {
		if s.Date.Equal(date) && s.TimeSlot == label {
			return s
		}
	}
	return nil
}

func (l *memoryLedger) WithSlotLock(ctx context.Context, userID string, date models.Date, timeSlot string, fn func(ctx context.Context, tx repository.AdmissionTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return l.failWith
	}
	slot := l.cellLocked(date, timeSlot)
	if slot == nil {
		return sql.ErrNoRows
	}
	tx := &memoryTx{ledger: l, slot: *slot}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	l.bookings = append(l.bookings, tx.pending...)
	return nil
}

type memoryTx struct {
	ledger  *memoryLedger
	slot    models.Slot
	pending []*models.Booking
}

func (t *memoryTx) Slot() models.Slot { return t.slot }

func (t *memoryTx) CountActive(ctx context.Context) (int, error) {
	return t.ledger.countLocked(t.slot.ID), nil
}

func (t *memoryTx) HasActiveOnDate(ctx context.Context, userID string) (bool, error) {
	for _, b := range t.ledger.bookings {
		if b.UserID == userID && b.BookingDate.Equal(t.slot.Date) && b.Status == models.BookingStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) HasActiveForSlot(ctx context.Context, userID string) (bool, error) {
	for _, b := range t.ledger.bookings {
		if b.UserID == userID && b.SlotID == t.slot.ID && b.Status == models.BookingStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) Insert(ctx context.Context, booking *models.Booking) error {
	booking.ID = uuid.NewString()
	booking.SlotID = t.slot.ID
	booking.BookingDate = t.slot.Date
	booking.Status = models.BookingStatusActive
	stored := *booking
	t.pending = append(t.pending, &stored)
	return nil
}

func (l *memoryLedger) CountActiveBySlots(ctx context.Context, slotIDs []string) (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return nil, l.failWith
	}
	l.countQueries = append(l.countQueries, append([]string(nil), slotIDs...))
	counts := map[string]int{}
	for _, id := range slotIDs {
		if n := l.countLocked(id); n > 0 {
			counts[id] = n
		}
	}
	return counts, nil
}

func (l *memoryLedger) Cancel(ctx context.Context, id, userID string, at time.Time) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.bookings {
		if b.ID == id && b.UserID == userID && b.Status == models.BookingStatusActive {
			b.Status = models.BookingStatusCancelled
			b.CancelledAt = &at
			out := *b
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (l *memoryLedger) FindForUser(ctx context.Context, id, userID string) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.bookings {
		if b.ID == id && b.UserID == userID {
			out := l.detailLocked(*b)
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (l *memoryLedger) ListByUser(ctx context.Context, userID string, catalog []string) ([]models.Booking, error) {
	return l.filter(func(b *models.Booking) bool { return b.UserID == userID }, true), nil
}

func (l *memoryLedger) ActiveBySlot(ctx context.Context, slotID string) ([]models.Booking, error) {
	return l.filter(func(b *models.Booking) bool {
		return b.SlotID == slotID && b.Status == models.BookingStatusActive
	}, false), nil
}

func (l *memoryLedger) ActiveByDate(ctx context.Context, date models.Date, catalog []string) ([]models.Booking, error) {
	return l.filter(func(b *models.Booking) bool {
		return b.BookingDate.Equal(date) && b.Status == models.BookingStatusActive
	}, false), nil
}

func (l *memoryLedger) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	all := l.filter(func(b *models.Booking) bool {
		return filter.Status == nil || b.Status == *filter.Status
	}, true)
	return all, len(all), nil
}

func (l *memoryLedger) filter(keep func(b *models.Booking) bool, newestDateFirst bool) []models.Booking {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Booking
	for _, b := range l.bookings {
		if keep(b) {
			out = append(out, l.detailLocked(*b))
		}
	}
	if newestDateFirst {
		sort.SliceStable(out, func(i, j int) bool { return out[i].BookingDate.After(out[j].BookingDate) })
	}
	return out
}

func (l *memoryLedger) detailLocked(b models.Booking) models.Booking {
	if slot, ok := l.slots[b.SlotID]; ok {
		s := *slot
		b.Slot = &s
	}
	if profile, ok := l.users[b.UserID]; ok {
		p := profile
		b.User = &p
	}
	return b
}

// Slot reads.

func (l *memoryLedger) GetByID(ctx context.Context, id string) (*models.Slot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *slot
	return &out, nil
}

func (l *memoryLedger) ListByDates(ctx context.Context, dates []models.Date, catalog []string) ([]models.Slot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Slot
	for _, d := range dates {
		for _, label := range catalog {
			if slot := l.cellLocked(d, label); slot != nil {
				out = append(out, *slot)
			}
		}
	}
	return out, nil
}

func (l *memoryLedger) AvailabilityByCell(ctx context.Context, date models.Date, timeSlot string) (*models.SlotAvailability, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot := l.cellLocked(date, timeSlot)
	if slot == nil {
		return nil, sql.ErrNoRows
	}
	row := &models.SlotAvailability{Slot: *slot, BookedCount: l.countLocked(slot.ID)}
	row.Fill()
	return row, nil
}

// stubRegistry stands in for SlotService where the booking service needs it.
type stubRegistry struct {
	ledger      *memoryLedger
	today       models.Date
	mu          sync.Mutex
	invalidated []string
}

func (r *stubRegistry) ToggleBlocked(ctx context.Context, actorID, id string) (*models.Slot, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	slot, ok := r.ledger.slots[id]
	if !ok {
		return nil, appErrors.ErrSlotNotFound
	}
	slot.IsBlocked = !slot.IsBlocked
	out := *slot
	return &out, nil
}

func (r *stubRegistry) InvalidateWeek(ctx context.Context, date models.Date) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, date.WeekStart().String())
}

func (r *stubRegistry) Today() models.Date {
	return r.today
}
