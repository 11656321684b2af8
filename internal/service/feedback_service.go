package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gymslot-api/internal/dto"
	"github.com/noah-isme/gymslot-api/internal/models"
	appErrors "github.com/noah-isme/gymslot-api/pkg/errors"
)

type feedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	List(ctx context.Context, status *models.FeedbackStatus) ([]models.Feedback, error)
	UpdateStatus(ctx context.Context, id string, status models.FeedbackStatus) (*models.Feedback, error)
}

// FeedbackService handles the feedback log.
type FeedbackService struct {
	repo      feedbackRepository
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeedbackService constructs the service.
func NewFeedbackService(repo feedbackRepository, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// Submit records feedback from the session user. Name and email fall back to the session's
// and are stored as given, not joined later.
func (s *FeedbackService) Submit(ctx context.Context, claims *models.JWTClaims, req dto.SubmitFeedbackRequest) (*models.Feedback, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}
	name := req.Name
	if name == "" {
		name = claims.Name
	}
	email := req.Email
	if email == "" {
		email = claims.Email
	}
	feedback := &models.Feedback{
		UserID:  claims.UserID,
		Name:    name,
		Email:   email,
		Subject: req.Subject,
		Message: req.Message,
		Rating:  req.Rating,
		Status:  models.FeedbackStatusNew,
	}
	if err := s.repo.Create(ctx, feedback); err != nil {
		return nil, appErrors.Upstream(err, "failed to submit feedback")
	}
	return feedback, nil
}

// ListAll returns feedback newest first. An empty status lists every entry.
func (s *FeedbackService) ListAll(ctx context.Context, status string) ([]models.Feedback, error) {
	var filter *models.FeedbackStatus
	if status != "" {
		st := models.FeedbackStatus(strings.ToLower(status))
		if !st.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of new, reviewed, resolved")
		}
		filter = &st
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list feedback")
	}
	if items == nil {
		items = []models.Feedback{}
	}
	return items, nil
}

// UpdateStatus moves feedback to any of the three statuses.
func (s *FeedbackService) UpdateStatus(ctx context.Context, actorID, id string, req dto.UpdateFeedbackStatusRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !isUUID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "feedback not found")
	}
	feedback, err := s.repo.UpdateStatus(ctx, id, models.FeedbackStatus(req.Status))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "feedback not found")
		}
		return nil, appErrors.Upstream(err, "failed to update feedback")
	}
	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionFeedbackStatus, "feedback", feedback.ID, map[string]interface{}{"status": feedback.Status})
	return feedback, nil
}
