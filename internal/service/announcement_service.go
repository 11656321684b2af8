package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gymslot-api/internal/dto"
	"github.com/noah-isme/gymslot-api/internal/models"
	appErrors "github.com/noah-isme/gymslot-api/pkg/errors"
)

type announcementRepository interface {
	ListAll(ctx context.Context) ([]models.Announcement, error)
	ListActive(ctx context.Context, now time.Time) ([]models.Announcement, error)
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo      announcementRepository
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{repo: repo, audit: audit, validator: validate, logger: logger, now: time.Now}
}

// ListAll returns every announcement, newest first.
func (s *AnnouncementService) ListAll(ctx context.Context) ([]models.Announcement, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list announcements")
	}
	if rows == nil {
		rows = []models.Announcement{}
	}
	return rows, nil
}

// ListActive returns announcements visible now, newest first.
func (s *AnnouncementService) ListActive(ctx context.Context) ([]models.Announcement, error) {
	rows, err := s.repo.ListActive(ctx, s.now().UTC())
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list announcements")
	}
	if rows == nil {
		rows = []models.Announcement{}
	}
	return rows, nil
}

// Get returns an announcement by id.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	if !isUUID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}
	ann, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Upstream(err, "failed to get announcement")
	}
	return ann, nil
}

// Create registers a new announcement.
func (s *AnnouncementService) Create(ctx context.Context, actorID string, req dto.CreateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	announcement := &models.Announcement{
		Title:     req.Title,
		Content:   req.Content,
		ExpiresAt: req.ExpiresAt,
		IsActive:  active,
	}
	if actorID != "" {
		announcement.CreatedBy = &actorID
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Upstream(err, "failed to create announcement")
	}
	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionAnnouncementCreate, "announcements", announcement.ID, map[string]interface{}{"title": announcement.Title})
	return announcement, nil
}

// Update replaces the mutable fields of an announcement.
func (s *AnnouncementService) Update(ctx context.Context, actorID, id string, req dto.UpdateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.Title = req.Title
	existing.Content = req.Content
	existing.ExpiresAt = req.ExpiresAt
	existing.IsActive = req.IsActive
	if err := s.repo.Update(ctx, existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Upstream(err, "failed to update announcement")
	}
	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionAnnouncementUpdate, "announcements", existing.ID, map[string]interface{}{
		"title": existing.Title, "is_active": existing.IsActive,
	})
	return existing, nil
}

// Delete removes an announcement by id.
func (s *AnnouncementService) Delete(ctx context.Context, actorID, id string) error {
	if !isUUID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Upstream(err, "failed to delete announcement")
	}
	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionAnnouncementDelete, "announcements", id, nil)
	return nil
}
