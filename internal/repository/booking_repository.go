package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/gymslot-api/internal/models"
	"github.com/noah-isme/gymslot-api/pkg/database"
	appErrors "github.com/noah-isme/gymslot-api/pkg/errors"
)

// Partial unique indexes backing the per-day and per-slot booking invariants.
const (
	constraintActiveUserDay  = "bookings_active_user_day_key"
	constraintActiveUserSlot = "bookings_active_user_slot_key"
)

const bookingColumns = `id, user_id, slot_id, booking_date, status, created_at, cancelled_at`

const bookingDetailSelect = `SELECT b.id, b.user_id, b.slot_id, b.booking_date, b.status, b.created_at, b.cancelled_at,
s.time_slot AS slot_time_slot, s.capacity AS slot_capacity, s.is_blocked AS slot_is_blocked,
u.name AS user_name, u.email AS user_email, u.student_id AS user_student_id
FROM bookings b
JOIN slots s ON s.id = b.slot_id
JOIN users u ON u.id = b.user_id`

// AdmissionTx exposes the reads and the insert an admission decision needs while the slot row is locked.
type AdmissionTx interface {
	Slot() models.Slot
	CountActive(ctx context.Context) (int, error)
	HasActiveOnDate(ctx context.Context, userID string) (bool, error)
	HasActiveForSlot(ctx context.Context, userID string) (bool, error)
	Insert(ctx context.Context, booking *models.Booking) error
}

// BookingRepository is the booking ledger.
type BookingRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewBookingRepository creates a new instance of BookingRepository.
func NewBookingRepository(db *sqlx.DB, logger *zap.Logger) *BookingRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingRepository{db: db, logger: logger}
}

// WithSlotLock runs fn inside a transaction holding the row lock of the slot at (date, timeSlot)
// and an advisory lock on (userID, date). The transaction commits only when fn returns nil.
// sql.ErrNoRows is returned when the slot does not exist.
func (r *BookingRepository) WithSlotLock(ctx context.Context, userID string, date models.Date, timeSlot string, fn func(ctx context.Context, tx AdmissionTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin admission tx: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			r.logger.Warn("rollback admission tx", zap.Error(err))
		}
	}()

	var slot models.Slot
	lockSlot := `SELECT ` + slotColumns + ` FROM slots WHERE date = $1 AND time_slot = $2 FOR UPDATE`
	if err := tx.GetContext(ctx, &slot, lockSlot, date, timeSlot); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock slot: %w", err)
	}

	// Slot lock first, then the (user, date) lock. Every admission takes them in this order.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID+"|"+date.String()); err != nil {
		return fmt.Errorf("lock user day: %w", err)
	}

	if err := fn(ctx, &admissionTx{tx: tx, slot: slot}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit admission tx: %w", err)
	}
	return nil
}

type admissionTx struct {
	tx   *sqlx.Tx
	slot models.Slot
}

func (a *admissionTx) Slot() models.Slot {
	return a.slot
}

func (a *admissionTx) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := a.tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM bookings WHERE slot_id = $1 AND status = 'active'`, a.slot.ID); err != nil {
		return 0, fmt.Errorf("count active bookings: %w", err)
	}
	return count, nil
}

func (a *admissionTx) HasActiveOnDate(ctx context.Context, userID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM bookings WHERE user_id = $1 AND booking_date = $2 AND status = 'active')`
	if err := a.tx.GetContext(ctx, &exists, query, userID, a.slot.Date); err != nil {
		return false, fmt.Errorf("check day booking: %w", err)
	}
	return exists, nil
}

func (a *admissionTx) HasActiveForSlot(ctx context.Context, userID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM bookings WHERE user_id = $1 AND slot_id = $2 AND status = 'active')`
	if err := a.tx.GetContext(ctx, &exists, query, userID, a.slot.ID); err != nil {
		return false, fmt.Errorf("check slot booking: %w", err)
	}
	return exists, nil
}

func (a *admissionTx) Insert(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}
	booking.SlotID = a.slot.ID
	booking.BookingDate = a.slot.Date
	booking.Status = models.BookingStatusActive

	const query = `INSERT INTO bookings (id, user_id, slot_id, booking_date, status, created_at) VALUES (:id, :user_id, :slot_id, :booking_date, :status, :created_at)`
	if _, err := a.tx.NamedExecContext(ctx, query, booking); err != nil {
		return mapBookingConflict(err)
	}
	return nil
}

// mapBookingConflict turns a unique-index violation into the matching admission outcome.
func mapBookingConflict(err error) error {
	constraint, ok := database.ConstraintViolation(err, database.UniqueViolation)
	if !ok {
		return fmt.Errorf("insert booking: %w", err)
	}
	switch constraint {
	case constraintActiveUserDay:
		return appErrors.ErrDuplicateDayBooking
	case constraintActiveUserSlot:
		return appErrors.ErrDuplicateSlotBooking
	default:
		return fmt.Errorf("insert booking: %w", err)
	}
}

// CountActiveBySlots returns active booking counts for the given slots. Slots without bookings are absent.
func (r *BookingRepository) CountActiveBySlots(ctx context.Context, slotIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(slotIDs))
	if len(slotIDs) == 0 {
		return counts, nil
	}
	const query = `SELECT slot_id, COUNT(*) AS booked_count FROM bookings WHERE status = 'active' AND slot_id = ANY($1::uuid[]) GROUP BY slot_id`
	var rows []struct {
		SlotID      string `db:"slot_id"`
		BookedCount int    `db:"booked_count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(slotIDs)); err != nil {
		return nil, fmt.Errorf("count bookings by slot: %w", err)
	}
	for _, row := range rows {
		counts[row.SlotID] = row.BookedCount
	}
	return counts, nil
}

// Cancel marks the caller's active booking cancelled. sql.ErrNoRows is returned when no active
// booking with that id belongs to userID.
func (r *BookingRepository) Cancel(ctx context.Context, id, userID string, at time.Time) (*models.Booking, error) {
	query := `UPDATE bookings SET status = 'cancelled', cancelled_at = $3 WHERE id = $1 AND user_id = $2 AND status = 'active' RETURNING ` + bookingColumns
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id, userID, at); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	return &booking, nil
}

// FindForUser returns a booking owned by userID regardless of its status.
func (r *BookingRepository) FindForUser(ctx context.Context, id, userID string) (*models.Booking, error) {
	var row bookingDetailRow
	if err := r.db.GetContext(ctx, &row, bookingDetailSelect+` WHERE b.id = $1 AND b.user_id = $2`, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	booking := row.toModel()
	return &booking, nil
}

// ListByUser returns every booking of a user with its slot, most recent date first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID string, catalog []string) ([]models.Booking, error) {
	query := bookingDetailSelect + ` WHERE b.user_id = $1 ORDER BY b.booking_date DESC, array_position($2::text[], s.time_slot), b.created_at DESC`
	return r.selectDetails(ctx, "list user bookings", query, userID, pq.Array(catalog))
}

// ActiveBySlot returns the roster of a slot, oldest booking first.
func (r *BookingRepository) ActiveBySlot(ctx context.Context, slotID string) ([]models.Booking, error) {
	query := bookingDetailSelect + ` WHERE b.slot_id = $1 AND b.status = 'active' ORDER BY b.created_at ASC`
	return r.selectDetails(ctx, "list slot roster", query, slotID)
}

// ActiveByDate returns the active bookings of a date ordered by slot then booking time.
func (r *BookingRepository) ActiveByDate(ctx context.Context, date models.Date, catalog []string) ([]models.Booking, error) {
	query := bookingDetailSelect + ` WHERE b.booking_date = $1 AND b.status = 'active' ORDER BY array_position($2::text[], s.time_slot), b.created_at ASC`
	return r.selectDetails(ctx, "list day roster", query, date, pq.Array(catalog))
}

// List returns bookings matching filter with the total count.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("b.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.SlotID != "" {
		conditions = append(conditions, fmt.Sprintf("b.slot_id = $%d", len(args)+1))
		args = append(args, filter.SlotID)
	}
	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("b.booking_date = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", len(args)+1))
		args = append(args, string(*filter.Status))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("%s%s ORDER BY b.booking_date DESC, b.created_at DESC LIMIT %d OFFSET %d", bookingDetailSelect, where, pageSize, offset)
	bookings, err := r.selectDetails(ctx, "list bookings", listQuery, args...)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM bookings b"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}
	return bookings, total, nil
}

func (r *BookingRepository) selectDetails(ctx context.Context, op, query string, args ...interface{}) ([]models.Booking, error) {
	var rows []bookingDetailRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	bookings := make([]models.Booking, 0, len(rows))
	for _, row := range rows {
		bookings = append(bookings, row.toModel())
	}
	return bookings, nil
}

type bookingDetailRow struct {
	models.Booking
	SlotTimeSlot  string  `db:"slot_time_slot"`
	SlotCapacity  int     `db:"slot_capacity"`
	SlotIsBlocked bool    `db:"slot_is_blocked"`
	UserName      string  `db:"user_name"`
	UserEmail     string  `db:"user_email"`
	UserStudentID *string `db:"user_student_id"`
}

func (row bookingDetailRow) toModel() models.Booking {
	booking := row.Booking
	booking.Slot = &models.Slot{
		ID:        row.SlotID,
		Date:      row.BookingDate,
		TimeSlot:  row.SlotTimeSlot,
		Capacity:  row.SlotCapacity,
		IsBlocked: row.SlotIsBlocked,
	}
	booking.User = &models.UserProfile{
		Name:      row.UserName,
		Email:     row.UserEmail,
		StudentID: row.UserStudentID,
	}
	return booking
}
