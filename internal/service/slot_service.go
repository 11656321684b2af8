package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/gymslot-api/internal/dto"
	"github.com/noah-isme/gymslot-api/internal/models"
	appErrors "github.com/noah-isme/gymslot-api/pkg/errors"
)

const (
	calendarKeyPrefix   = "calendar:week:"
	calendarStampPrefix = "calendar:stamp:"
	defaultAutoDays     = 14
)

type slotRepository interface {
	EnsureRange(ctx context.Context, from, to models.Date, timeSlots []string, capacity int) (int64, error)
	ListByDates(ctx context.Context, dates []models.Date, catalog []string) ([]models.Slot, error)
	GetByID(ctx context.Context, id string) (*models.Slot, error)
	SetBlocked(ctx context.Context, id string, blocked bool) (*models.Slot, error)
	Toggle(ctx context.Context, id string) (*models.Slot, error)
	ToggleByCell(ctx context.Context, date models.Date, timeSlot string) (*models.Slot, error)
	SetCapacity(ctx context.Context, id string, capacity int) (*models.Slot, error)
	Availability(ctx context.Context, from, to models.Date, catalog []string) ([]models.SlotAvailability, error)
}

// SlotServiceConfig tunes the slot registry.
type SlotServiceConfig struct {
	DefaultCapacity     int
	MaxMaterializeDays  int
	AutoMaterialize     bool
	// AutoMaterializeDays bounds week browsing: only weeks up to the one holding
	// today+AutoMaterializeDays-1 are auto-materialized.
	AutoMaterializeDays int
	CalendarTTL         time.Duration
	Location            *time.Location
}

// SlotService is the slot registry: materialization, listing, blocking and the week calendar.
type SlotService struct {
	repo      slotRepository
	cache     *CacheService
	audit     auditLogger
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SlotServiceConfig
	now       func() time.Time
}

// NewSlotService constructs the registry. cache, audit and metrics may be nil.
func NewSlotService(repo slotRepository, cache *CacheService, audit auditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg SlotServiceConfig) *SlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultCapacity <= 0 {
		cfg.DefaultCapacity = models.DefaultSlotCapacity
	}
	if cfg.MaxMaterializeDays <= 0 {
		cfg.MaxMaterializeDays = 62
	}
	if cfg.AutoMaterializeDays <= 0 {
		cfg.AutoMaterializeDays = defaultAutoDays
	}
	if cfg.AutoMaterializeDays > cfg.MaxMaterializeDays {
		cfg.AutoMaterializeDays = cfg.MaxMaterializeDays
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &SlotService{
		repo:      repo,
		cache:     cache,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Today returns the current calendar date in the configured timezone.
func (s *SlotService) Today() models.Date {
	return models.NewDate(s.now().In(s.cfg.Location))
}

// EnsureSlotsExist creates every missing catalog slot between from and to, inclusive.
// Existing slots keep their capacity and blocked state.
func (s *SlotService) EnsureSlotsExist(ctx context.Context, actorID string, req dto.MaterializeSlotsRequest) (*dto.MaterializeSlotsResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid materialize payload")
	}
	from, err := models.ParseDate(req.From)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	to, err := models.ParseDate(req.To)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	capacity := s.cfg.DefaultCapacity
	if req.Capacity != nil {
		capacity = *req.Capacity
	}

	created, err := s.ensureRange(ctx, from, to, capacity)
	if err != nil {
		return nil, err
	}
	if created > 0 {
		s.invalidateRange(ctx, from, to)
	}
	s.logger.Info("slots materialized",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int64("created", created),
	)
	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionSlotMaterialize, "slots", "", map[string]interface{}{
		"from": from.String(), "to": to.String(), "capacity": capacity, "created": created,
	})
	return &dto.MaterializeSlotsResult{From: from, To: to, Created: created}, nil
}

func (s *SlotService) ensureRange(ctx context.Context, from, to models.Date, capacity int) (int64, error) {
	if to.Before(from) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if days := len(models.DateRange(from, to)); days > s.cfg.MaxMaterializeDays {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date range spans %d days, limit is %d", days, s.cfg.MaxMaterializeDays))
	}
	created, err := s.repo.EnsureRange(ctx, from, to, models.TimeSlotCatalog(), capacity)
	if err != nil {
		return 0, appErrors.Upstream(err, "failed to materialize slots")
	}
	return created, nil
}

// MaterializeHorizon ensures slots exist from today through the next days-1 days.
func (s *SlotService) MaterializeHorizon(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	if days > s.cfg.MaxMaterializeDays {
		days = s.cfg.MaxMaterializeDays
	}
	today := s.Today()
	created, err := s.ensureRange(ctx, today, today.AddDays(days-1), s.cfg.DefaultCapacity)
	if err != nil {
		return 0, err
	}
	if created > 0 {
		s.invalidateRange(ctx, today, today.AddDays(days-1))
		s.logger.Info("slot horizon extended", zap.String("from", today.String()), zap.Int("days", days), zap.Int64("created", created))
	}
	return created, nil
}

// ListSlots returns the slots of the given dates, blocked ones included, in catalog order.
func (s *SlotService) ListSlots(ctx context.Context, dates []models.Date) ([]models.Slot, error) {
	slots, err := s.repo.ListByDates(ctx, dates, models.TimeSlotCatalog())
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list slots")
	}
	return slots, nil
}

// SetBlocked sets a slot's blocked flag explicitly.
func (s *SlotService) SetBlocked(ctx context.Context, actorID, id string, blocked bool) (*models.Slot, error) {
	if !isUUID(id) {
		return nil, appErrors.Clone(appErrors.ErrSlotNotFound, "slot not found")
	}
	slot, err := s.repo.SetBlocked(ctx, id, blocked)
	if err != nil {
		return nil, slotLookupError(err, "failed to update slot")
	}
	s.afterBlockChange(ctx, actorID, slot)
	return slot, nil
}

// ToggleBlocked flips a slot's blocked flag atomically.
func (s *SlotService) ToggleBlocked(ctx context.Context, actorID, id string) (*models.Slot, error) {
	if !isUUID(id) {
		return nil, appErrors.Clone(appErrors.ErrSlotNotFound, "slot not found")
	}
	slot, err := s.repo.Toggle(ctx, id)
	if err != nil {
		return nil, slotLookupError(err, "failed to toggle slot")
	}
	s.afterBlockChange(ctx, actorID, slot)
	return slot, nil
}

// ToggleBlockedByCell flips the blocked flag of the slot at (date, time slot).
func (s *SlotService) ToggleBlockedByCell(ctx context.Context, actorID string, req dto.ToggleCellRequest) (*models.Slot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid toggle payload")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if !models.IsValidTimeSlot(req.TimeSlot) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown time slot")
	}
	slot, err := s.repo.ToggleByCell(ctx, date, req.TimeSlot)
	if err != nil {
		return nil, slotLookupError(err, "failed to toggle slot")
	}
	s.afterBlockChange(ctx, actorID, slot)
	return slot, nil
}

// SetCapacity changes a slot's capacity. Existing bookings above the new capacity are kept.
func (s *SlotService) SetCapacity(ctx context.Context, actorID, id string, req dto.UpdateSlotCapacityRequest) (*models.Slot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid capacity payload")
	}
	if !isUUID(id) {
		return nil, appErrors.Clone(appErrors.ErrSlotNotFound, "slot not found")
	}
	slot, err := s.repo.SetCapacity(ctx, id, req.Capacity)
	if err != nil {
		return nil, slotLookupError(err, "failed to update slot capacity")
	}
	s.InvalidateWeek(ctx, slot.Date)
	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionSlotUpdate, "slots", slot.ID, map[string]interface{}{"capacity": slot.Capacity})
	return slot, nil
}

// Week returns the Monday-based week containing anchor (today when empty) with live occupancy.
// The second return value reports whether the payload came from cache.
func (s *SlotService) Week(ctx context.Context, anchor string) (*dto.WeekCalendar, bool, error) {
	day := s.Today()
	if anchor != "" {
		parsed, err := models.ParseDate(anchor)
		if err != nil {
			return nil, false, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		day = parsed
	}
	start := day.WeekStart()
	end := start.AddDays(6)
	key := weekKey(start)

	var cached dto.WeekCalendar
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}
	stamp := s.weekStamp(ctx, start)

	if s.cfg.AutoMaterialize {
		if from, to, ok := s.autoWindow(start, end); ok {
			if _, err := s.ensureRange(ctx, from, to, s.cfg.DefaultCapacity); err != nil {
				return nil, false, err
			}
		}
	}

	slots, err := s.repo.Availability(ctx, start, end, models.TimeSlotCatalog())
	if err != nil {
		return nil, false, appErrors.Upstream(err, "failed to load calendar")
	}
	if slots == nil {
		slots = []models.SlotAvailability{}
	}
	calendar := &dto.WeekCalendar{
		WeekStart: start,
		Dates:     models.DateRange(start, end),
		TimeSlots: models.TimeSlotCatalog(),
		Slots:     slots,
	}
	s.cache.Set(ctx, key, calendar, s.cfg.CalendarTTL)
	// A mutation that landed after the stamp was read may predate this grid; drop it.
	if s.weekStamp(ctx, start) != stamp {
		s.cache.Delete(ctx, key)
	}
	return calendar, false, nil
}

// autoWindow clips a week to the dates browsing may create: the current week through the
// week holding the last day of the auto-materialize horizon.
func (s *SlotService) autoWindow(start, end models.Date) (models.Date, models.Date, bool) {
	today := s.Today()
	if lo := today.WeekStart(); start.Before(lo) {
		start = lo
	}
	if hi := today.AddDays(s.cfg.AutoMaterializeDays - 1).WeekStart().AddDays(6); end.After(hi) {
		end = hi
	}
	return start, end, !end.Before(start)
}

// InvalidateWeek drops the cached calendar of the week containing date.
func (s *SlotService) InvalidateWeek(ctx context.Context, date models.Date) {
	start := date.WeekStart()
	s.touchWeek(ctx, start)
	s.cache.Delete(ctx, weekKey(start))
}

func (s *SlotService) invalidateRange(ctx context.Context, from, to models.Date) {
	for week := from.WeekStart(); !week.After(to); week = week.AddDays(7) {
		s.touchWeek(ctx, week)
	}
	s.cache.Invalidate(ctx, calendarKeyPrefix+"*")
}

// touchWeek rotates the week's stamp. It must run before the cached grid is deleted.
func (s *SlotService) touchWeek(ctx context.Context, start models.Date) {
	s.cache.Set(ctx, calendarStampPrefix+start.String(), uuid.NewString(), 2*s.cfg.CalendarTTL)
}

func (s *SlotService) weekStamp(ctx context.Context, start models.Date) string {
	var stamp string
	if !s.cache.Get(ctx, calendarStampPrefix+start.String(), &stamp) {
		return ""
	}
	return stamp
}

func (s *SlotService) afterBlockChange(ctx context.Context, actorID string, slot *models.Slot) {
	s.InvalidateWeek(ctx, slot.Date)
	s.metrics.IncSlotToggle()
	s.logger.Info("slot blocked flag changed",
		zap.String("slot_id", slot.ID),
		zap.String("date", slot.Date.String()),
		zap.String("time_slot", slot.TimeSlot),
		zap.Bool("blocked", slot.IsBlocked),
	)
	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionSlotToggle, "slots", slot.ID, map[string]interface{}{"is_blocked": slot.IsBlocked})
}

func weekKey(start models.Date) string {
	return calendarKeyPrefix + start.String()
}

func slotLookupError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrSlotNotFound, "slot not found")
	}
	return appErrors.Upstream(err, message)
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
