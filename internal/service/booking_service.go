package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/gymslot-api/internal/dto"
	"github.com/noah-isme/gymslot-api/internal/models"
	"github.com/noah-isme/gymslot-api/internal/repository"
	appErrors "github.com/noah-isme/gymslot-api/pkg/errors"
)

type bookingLedger interface {
	WithSlotLock(ctx context.Context, userID string, date models.Date, timeSlot string, fn func(ctx context.Context, tx repository.AdmissionTx) error) error
	CountActiveBySlots(ctx context.Context, slotIDs []string) (map[string]int, error)
	Cancel(ctx context.Context, id, userID string, at time.Time) (*models.Booking, error)
	FindForUser(ctx context.Context, id, userID string) (*models.Booking, error)
	ListByUser(ctx context.Context, userID string, catalog []string) ([]models.Booking, error)
	ActiveBySlot(ctx context.Context, slotID string) ([]models.Booking, error)
	ActiveByDate(ctx context.Context, date models.Date, catalog []string) ([]models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
}

type bookingSlotReader interface {
	GetByID(ctx context.Context, id string) (*models.Slot, error)
	ListByDates(ctx context.Context, dates []models.Date, catalog []string) ([]models.Slot, error)
	AvailabilityByCell(ctx context.Context, date models.Date, timeSlot string) (*models.SlotAvailability, error)
}

type slotRegistry interface {
	ToggleBlocked(ctx context.Context, actorID, id string) (*models.Slot, error)
	InvalidateWeek(ctx context.Context, date models.Date)
	Today() models.Date
}

// BookingService is the only writer of the booking ledger.
type BookingService struct {
	ledger    bookingLedger
	slots     bookingSlotReader
	registry  slotRegistry
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBookingService constructs the service. metrics may be nil.
func NewBookingService(ledger bookingLedger, slots bookingSlotReader, registry slotRegistry, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		ledger:    ledger,
		slots:     slots,
		registry:  registry,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateBooking admits userID into the slot at (date, time slot).
//
// The checks run in a fixed order while the slot row is locked: the slot must exist, must not be
// blocked, must have a free seat, the user must hold no active booking on that date, and none on
// that slot. The insert happens in the same transaction, so two requests racing for the last seat
// cannot both succeed.
func (s *BookingService) CreateBooking(ctx context.Context, userID string, req dto.CreateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if !models.IsValidTimeSlot(req.TimeSlot) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown time slot")
	}

	start := time.Now()
	var booking models.Booking
	var slot models.Slot
	err = s.ledger.WithSlotLock(ctx, userID, date, req.TimeSlot, func(ctx context.Context, tx repository.AdmissionTx) error {
		slot = tx.Slot()
		if slot.IsBlocked {
			return appErrors.ErrSlotBlocked
		}
		count, err := tx.CountActive(ctx)
		if err != nil {
			return err
		}
		if count >= slot.Capacity {
			return appErrors.ErrSlotFull
		}
		onDate, err := tx.HasActiveOnDate(ctx, userID)
		if err != nil {
			return err
		}
		if onDate {
			return appErrors.ErrDuplicateDayBooking
		}
		onSlot, err := tx.HasActiveForSlot(ctx, userID)
		if err != nil {
			return err
		}
		if onSlot {
			return appErrors.ErrDuplicateSlotBooking
		}
		booking = models.Booking{UserID: userID, CreatedAt: s.now().UTC()}
		return tx.Insert(ctx, &booking)
	})
	if errors.Is(err, sql.ErrNoRows) {
		err = appErrors.ErrSlotNotFound
	}
	outcome := admissionOutcome(err)
	s.metrics.ObserveAdmission(outcome, time.Since(start))

	if err != nil {
		if appErrors.IsAdmissionFailure(err) {
			s.logger.Debug("booking rejected",
				zap.String("user_id", userID),
				zap.String("date", date.String()),
				zap.String("time_slot", req.TimeSlot),
				zap.String("outcome", outcome),
			)
			return nil, err
		}
		s.logger.Error("booking admission failed",
			zap.String("user_id", userID),
			zap.String("date", date.String()),
			zap.String("time_slot", req.TimeSlot),
			zap.Error(err),
		)
		return nil, appErrors.Upstream(err, "failed to create booking")
	}

	s.registry.InvalidateWeek(ctx, date)
	booking.Slot = &slot
	return &booking, nil
}

// SlotState returns the current occupancy of the slot at (date, time slot). Used to resynchronise
// clients after an admission failure.
func (s *BookingService) SlotState(ctx context.Context, rawDate, timeSlot string) (*dto.SlotState, error) {
	date, err := models.ParseDate(rawDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	row, err := s.slots.AvailabilityByCell(ctx, date, timeSlot)
	if err != nil {
		return nil, slotLookupError(err, "failed to load slot state")
	}
	return &dto.SlotState{
		SlotID:      row.ID,
		Date:        row.Date,
		TimeSlot:    row.TimeSlot,
		Capacity:    row.Capacity,
		IsBlocked:   row.IsBlocked,
		BookedCount: row.BookedCount,
	}, nil
}

// CancelBooking cancels the caller's booking. Cancelling an already cancelled booking returns it
// unchanged. Bookings of other users are reported as not found.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID string) (*models.Booking, error) {
	if !isUUID(bookingID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
	}
	booking, err := s.ledger.Cancel(ctx, bookingID, userID, s.now().UTC())
	if err == nil {
		s.metrics.IncCancellation()
		s.registry.InvalidateWeek(ctx, booking.BookingDate)
		s.logger.Info("booking cancelled", zap.String("booking_id", booking.ID), zap.String("user_id", userID))
		return booking, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Upstream(err, "failed to cancel booking")
	}

	existing, err := s.ledger.FindForUser(ctx, bookingID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Upstream(err, "failed to load booking")
	}
	if existing.Status == models.BookingStatusCancelled {
		return existing, nil
	}
	// Only reachable if the row changed between the two statements.
	return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
}

// GetBookingCountsForSlots returns the active booking count of every requested slot. Every id is
// present in the result, with 0 when it has no bookings or is unknown.
func (s *BookingService) GetBookingCountsForSlots(ctx context.Context, req dto.BookingCountsRequest) (map[string]int, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid counts payload")
	}
	result := make(map[string]int, len(req.SlotIDs))
	// The store reports ids in canonical form; requested spellings are mapped back onto it.
	aliases := make(map[string][]string, len(req.SlotIDs))
	queryable := make([]string, 0, len(req.SlotIDs))
	for _, id := range req.SlotIDs {
		if _, seen := result[id]; seen {
			continue
		}
		result[id] = 0
		parsed, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		canonical := parsed.String()
		if _, ok := aliases[canonical]; !ok {
			queryable = append(queryable, canonical)
		}
		aliases[canonical] = append(aliases[canonical], id)
	}
	if len(queryable) == 0 {
		return result, nil
	}
	counts, err := s.ledger.CountActiveBySlots(ctx, queryable)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to count bookings")
	}
	for id, count := range counts {
		parsed, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		for _, requested := range aliases[parsed.String()] {
			result[requested] = count
		}
	}
	return result, nil
}

// ListUserBookings splits a user's bookings into upcoming and past active ones plus cancelled history.
func (s *BookingService) ListUserBookings(ctx context.Context, userID string) (*models.UserBookings, error) {
	bookings, err := s.ledger.ListByUser(ctx, userID, models.TimeSlotCatalog())
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list bookings")
	}
	today := s.registry.Today()
	view := &models.UserBookings{
		Upcoming:  []models.Booking{},
		Past:      []models.Booking{},
		Cancelled: []models.Booking{},
	}
	for _, b := range bookings {
		switch {
		case b.Status == models.BookingStatusCancelled:
			view.Cancelled = append(view.Cancelled, b)
		case b.BookingDate.Before(today):
			view.Past = append(view.Past, b)
		default:
			view.Upcoming = append(view.Upcoming, b)
		}
	}
	// Upcoming reads soonest first; the ledger returns most recent date first.
	for i, j := 0, len(view.Upcoming)-1; i < j; i, j = i+1, j-1 {
		view.Upcoming[i], view.Upcoming[j] = view.Upcoming[j], view.Upcoming[i]
	}
	return view, nil
}

// AdminToggleSlot flips a slot's blocked flag on behalf of an admin.
func (s *BookingService) AdminToggleSlot(ctx context.Context, actorID, slotID string) (*models.Slot, error) {
	return s.registry.ToggleBlocked(ctx, actorID, slotID)
}

// AdminListBookingsForSlot returns the roster of a slot, oldest booking first.
func (s *BookingService) AdminListBookingsForSlot(ctx context.Context, slotID string) (*models.SlotRoster, error) {
	if !isUUID(slotID) {
		return nil, appErrors.Clone(appErrors.ErrSlotNotFound, "slot not found")
	}
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, slotLookupError(err, "failed to load slot")
	}
	bookings, err := s.ledger.ActiveBySlot(ctx, slotID)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list slot bookings")
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return &models.SlotRoster{Slot: *slot, Bookings: bookings}, nil
}

// AdminListBookingsForDate returns one roster per slot of the date, empty slots included.
func (s *BookingService) AdminListBookingsForDate(ctx context.Context, rawDate string) (*dto.DayRoster, error) {
	date, err := models.ParseDate(rawDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	catalog := models.TimeSlotCatalog()
	slots, err := s.slots.ListByDates(ctx, []models.Date{date}, catalog)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list slots")
	}
	bookings, err := s.ledger.ActiveByDate(ctx, date, catalog)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list day bookings")
	}

	bySlot := make(map[string][]models.Booking, len(slots))
	for _, b := range bookings {
		bySlot[b.SlotID] = append(bySlot[b.SlotID], b)
	}
	roster := &dto.DayRoster{Date: date, Slots: make([]models.SlotRoster, 0, len(slots))}
	for _, slot := range slots {
		entries := bySlot[slot.ID]
		if entries == nil {
			entries = []models.Booking{}
		}
		roster.Slots = append(roster.Slots, models.SlotRoster{Slot: slot, Bookings: entries})
	}
	return roster, nil
}

// AdminListAllBookings returns bookings matching filter with pagination.
func (s *BookingService) AdminListAllBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	if (filter.UserID != "" && !isUUID(filter.UserID)) || (filter.SlotID != "" && !isUUID(filter.SlotID)) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "user_id and slot_id must be UUIDs")
	}
	bookings, total, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Upstream(err, "failed to list bookings")
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func admissionOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeAdmitted
	case errors.Is(err, appErrors.ErrSlotNotFound):
		return OutcomeSlotNotFound
	case errors.Is(err, appErrors.ErrSlotBlocked):
		return OutcomeSlotBlocked
	case errors.Is(err, appErrors.ErrSlotFull):
		return OutcomeSlotFull
	case errors.Is(err, appErrors.ErrDuplicateDayBooking):
		return OutcomeDuplicateDay
	case errors.Is(err, appErrors.ErrDuplicateSlotBooking):
		return OutcomeDuplicateSlot
	default:
		return OutcomeError
	}
}
