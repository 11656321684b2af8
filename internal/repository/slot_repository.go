package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/gymslot-api/internal/models"
)

const slotColumns = `id, date, time_slot, capacity, is_blocked, created_at, updated_at`

// SlotRepository persists the slot registry.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository creates a new instance of SlotRepository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// EnsureRange inserts every (date, time slot) pair of the range that does not exist yet and
// returns how many rows were created. Existing slots keep their capacity and blocked flag.
func (r *SlotRepository) EnsureRange(ctx context.Context, from, to models.Date, timeSlots []string, capacity int) (int64, error) {
	const query = `INSERT INTO slots (date, time_slot, capacity, is_blocked, created_at, updated_at)
SELECT d::date, t.label, $3, FALSE, NOW(), NOW()
FROM generate_series($1::date, $2::date, INTERVAL '1 day') AS d
CROSS JOIN UNNEST($4::text[]) AS t(label)
ON CONFLICT (date, time_slot) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, from, to, capacity, pq.Array(timeSlots))
	if err != nil {
		return 0, fmt.Errorf("ensure slots: %w", err)
	}
	created, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ensure slots rows affected: %w", err)
	}
	return created, nil
}

// ListByDates returns the slots of the given dates ordered by date then catalog position.
func (r *SlotRepository) ListByDates(ctx context.Context, dates []models.Date, catalog []string) ([]models.Slot, error) {
	if len(dates) == 0 {
		return []models.Slot{}, nil
	}
	query := `SELECT ` + slotColumns + ` FROM slots WHERE date = ANY($1::date[]) ORDER BY date, array_position($2::text[], time_slot), time_slot`
	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query, pq.Array(dateStrings(dates)), pq.Array(catalog)); err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// GetByID returns a slot by identifier.
func (r *SlotRepository) GetByID(ctx context.Context, id string) (*models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`
	var slot models.Slot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return &slot, nil
}

// GetByCell returns the slot addressed by its natural key.
func (r *SlotRepository) GetByCell(ctx context.Context, date models.Date, timeSlot string) (*models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE date = $1 AND time_slot = $2`
	var slot models.Slot
	if err := r.db.GetContext(ctx, &slot, query, date, timeSlot); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get slot by cell: %w", err)
	}
	return &slot, nil
}

// SetBlocked sets the blocked flag and returns the updated slot.
func (r *SlotRepository) SetBlocked(ctx context.Context, id string, blocked bool) (*models.Slot, error) {
	query := `UPDATE slots SET is_blocked = $2, updated_at = $3 WHERE id = $1 RETURNING ` + slotColumns
	return r.updateReturning(ctx, "set slot blocked", query, id, blocked, time.Now().UTC())
}

// Toggle flips the blocked flag in a single statement so concurrent toggles never lose an update.
func (r *SlotRepository) Toggle(ctx context.Context, id string) (*models.Slot, error) {
	query := `UPDATE slots SET is_blocked = NOT is_blocked, updated_at = $2 WHERE id = $1 RETURNING ` + slotColumns
	return r.updateReturning(ctx, "toggle slot", query, id, time.Now().UTC())
}

// ToggleByCell flips the blocked flag of the slot addressed by date and time slot.
func (r *SlotRepository) ToggleByCell(ctx context.Context, date models.Date, timeSlot string) (*models.Slot, error) {
	query := `UPDATE slots SET is_blocked = NOT is_blocked, updated_at = $3 WHERE date = $1 AND time_slot = $2 RETURNING ` + slotColumns
	return r.updateReturning(ctx, "toggle slot by cell", query, date, timeSlot, time.Now().UTC())
}

// SetCapacity changes a slot's capacity.
func (r *SlotRepository) SetCapacity(ctx context.Context, id string, capacity int) (*models.Slot, error) {
	query := `UPDATE slots SET capacity = $2, updated_at = $3 WHERE id = $1 RETURNING ` + slotColumns
	return r.updateReturning(ctx, "set slot capacity", query, id, capacity, time.Now().UTC())
}

// Availability returns the slots between from and to, inclusive, with their active booking counts.
func (r *SlotRepository) Availability(ctx context.Context, from, to models.Date, catalog []string) ([]models.SlotAvailability, error) {
	const query = `SELECT s.id, s.date, s.time_slot, s.capacity, s.is_blocked, s.created_at, s.updated_at,
COUNT(b.id) AS booked_count
FROM slots s
LEFT JOIN bookings b ON b.slot_id = s.id AND b.status = 'active'
WHERE s.date BETWEEN $1 AND $2
GROUP BY s.id
ORDER BY s.date, array_position($3::text[], s.time_slot), s.time_slot`
	var rows []models.SlotAvailability
	if err := r.db.SelectContext(ctx, &rows, query, from, to, pq.Array(catalog)); err != nil {
		return nil, fmt.Errorf("slot availability: %w", err)
	}
	for i := range rows {
		rows[i].Fill()
	}
	return rows, nil
}

// AvailabilityByCell returns one slot with its active booking count.
func (r *SlotRepository) AvailabilityByCell(ctx context.Context, date models.Date, timeSlot string) (*models.SlotAvailability, error) {
	const query = `SELECT s.id, s.date, s.time_slot, s.capacity, s.is_blocked, s.created_at, s.updated_at,
(SELECT COUNT(*) FROM bookings b WHERE b.slot_id = s.id AND b.status = 'active') AS booked_count
FROM slots s WHERE s.date = $1 AND s.time_slot = $2`
	var row models.SlotAvailability
	if err := r.db.GetContext(ctx, &row, query, date, timeSlot); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("slot availability by cell: %w", err)
	}
	row.Fill()
	return &row, nil
}

func (r *SlotRepository) updateReturning(ctx context.Context, op, query string, args ...interface{}) (*models.Slot, error) {
	var slot models.Slot
	if err := r.db.GetContext(ctx, &slot, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &slot, nil
}

func dateStrings(dates []models.Date) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out
}
