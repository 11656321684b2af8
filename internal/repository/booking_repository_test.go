package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gymslot-api/internal/models"
	appErrors "github.com/noah-isme/gymslot-api/pkg/errors"
)

var bookingDetailColumns = []string{
	"id", "user_id", "slot_id", "booking_date", "status", "created_at", "cancelled_at",
	"slot_time_slot", "slot_capacity", "slot_is_blocked",
	"user_name", "user_email", "user_student_id",
}

func expectSlotLock(mock sqlmock.Sqlmock, slotID string, day models.Date, label string) {
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM slots WHERE date = $1 AND time_slot = $2 FOR UPDATE")).
		WithArgs(day, label).
		WillReturnRows(sqlmock.NewRows(slotRowColumns).AddRow(slotID, day.Time, label, 30, false, now, now))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("u1|" + day.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestWithSlotLockCommitsAdmission(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, nil)

	day := models.MustParseDate("2025-09-01")
	expectSlotLock(mock, "s1", day, "5:00 - 6:00 AM")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings WHERE slot_id = $1 AND status = 'active'")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("user_id = \\$1 AND booking_date = \\$2").
		WithArgs("u1", day).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	var inserted models.Booking
	err := repo.WithSlotLock(context.Background(), "u1", day, "5:00 - 6:00 AM", func(ctx context.Context, tx AdmissionTx) error {
		count, err := tx.CountActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		onDate, err := tx.HasActiveOnDate(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, onDate)
		inserted = models.Booking{UserID: "u1"}
		return tx.Insert(ctx, &inserted)
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", inserted.SlotID)
	assert.Equal(t, models.BookingStatusActive, inserted.Status)
	assert.Equal(t, "2025-09-01", inserted.BookingDate.String())
	assert.NotEmpty(t, inserted.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSlotLockRollsBackOnRejection(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, nil)

	day := models.MustParseDate("2025-09-01")
	expectSlotLock(mock, "s1", day, "5:00 - 6:00 AM")
	mock.ExpectRollback()

	err := repo.WithSlotLock(context.Background(), "u1", day, "5:00 - 6:00 AM", func(ctx context.Context, tx AdmissionTx) error {
		return appErrors.ErrSlotFull
	})
	assert.ErrorIs(t, err, appErrors.ErrSlotFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSlotLockMissingSlot(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, nil)

	day := models.MustParseDate("2025-09-01")
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	called := false
	err := repo.WithSlotLock(context.Background(), "u1", day, "5:00 - 6:00 AM", func(ctx context.Context, tx AdmissionTx) error {
		called = true
		return nil
	})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertMapsUniqueViolations(t *testing.T) {
	cases := map[string]error{
		constraintActiveUserDay:  appErrors.ErrDuplicateDayBooking,
		constraintActiveUserSlot: appErrors.ErrDuplicateSlotBooking,
	}
	for constraint, want := range cases {
		t.Run(constraint, func(t *testing.T) {
			db, mock, cleanup := newMock(t)
			defer cleanup()
			repo := NewBookingRepository(db, nil)

			day := models.MustParseDate("2025-09-01")
			expectSlotLock(mock, "s1", day, "5:00 - 6:00 AM")
			mock.ExpectExec("INSERT INTO bookings").
				WillReturnError(&pq.Error{Code: "23505", Constraint: constraint})
			mock.ExpectRollback()

			err := repo.WithSlotLock(context.Background(), "u1", day, "5:00 - 6:00 AM", func(ctx context.Context, tx AdmissionTx) error {
				return tx.Insert(ctx, &models.Booking{UserID: "u1"})
			})
			assert.ErrorIs(t, err, want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCountActiveBySlots(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("slot_id = ANY($1::uuid[]) GROUP BY slot_id")).
		WillReturnRows(sqlmock.NewRows([]string{"slot_id", "booked_count"}).AddRow("s1", 4))

	counts, err := repo.CountActiveBySlots(context.Background(), []string{"s1", "s2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"s1": 4}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOnlyTouchesActiveOwnedBooking(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, nil)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND user_id = $2 AND status = 'active' RETURNING")).
		WithArgs("b1", "u1", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "slot_id", "booking_date", "status", "created_at", "cancelled_at"}).
			AddRow("b1", "u1", "s1", "2025-09-01", "cancelled", now, now))

	booking, err := repo.Cancel(context.Background(), "b1", "u1", now)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, booking.Status)
	require.NotNil(t, booking.CancelledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveBySlotJoinsProfiles(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, nil)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE b.slot_id = $1 AND b.status = 'active' ORDER BY b.created_at ASC")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(bookingDetailColumns).
			AddRow("b1", "u1", "s1", "2025-09-01", "active", now, nil, "5:00 - 6:00 AM", 30, false, "Ana", "ana@example.com", "S-7"))

	roster, err := repo.ActiveBySlot(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.NotNil(t, roster[0].User)
	assert.Equal(t, "Ana", roster[0].User.Name)
	require.NotNil(t, roster[0].Slot)
	assert.Equal(t, "5:00 - 6:00 AM", roster[0].Slot.TimeSlot)
	assert.Nil(t, roster[0].CancelledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBookingsAppliesFilterAndPaging(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, nil)

	status := models.BookingStatusActive
	mock.ExpectQuery(regexp.QuoteMeta("WHERE b.status = $1 ORDER BY b.booking_date DESC, b.created_at DESC LIMIT 10 OFFSET 10")).
		WithArgs("active").
		WillReturnRows(sqlmock.NewRows(bookingDetailColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings b WHERE b.status = $1")).
		WithArgs("active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	bookings, total, err := repo.List(context.Background(), models.BookingFilter{Status: &status, Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, bookings)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
