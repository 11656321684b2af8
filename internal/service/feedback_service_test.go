package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/gymslot-api/internal/dto"
	"github.com/noah-isme/gymslot-api/internal/models"
	appErrors "github.com/noah-isme/gymslot-api/pkg/errors"
)

type fakeFeedbackRepo struct {
	items      []*models.Feedback
	listFilter *models.FeedbackStatus
	err        error
}

func (r *fakeFeedbackRepo) Create(ctx context.Context, feedback *models.Feedback) error {
	if r.err != nil {
		return r.err
	}
	feedback.ID = "7b1f3e1c-0a4f-4f0e-9d59-5f3a4c1d2e01"
	r.items = append(r.items, feedback)
	return nil
}

func (r *fakeFeedbackRepo) List(ctx context.Context, status *models.FeedbackStatus) ([]models.Feedback, error) {
	r.listFilter = status
	if r.err != nil {
		return nil, r.err
	}
	var out []models.Feedback
	for _, f := range r.items {
		if status == nil || f.Status == *status {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeFeedbackRepo) UpdateStatus(ctx context.Context, id string, status models.FeedbackStatus) (*models.Feedback, error) {
	for _, f := range r.items {
		if f.ID == id {
			f.Status = status
			return f, nil
		}
	}
	return nil, sql.ErrNoRows
}

func TestFeedbackSubmitDefaultsToSession(t *testing.T) {
	repo := &fakeFeedbackRepo{}
	svc := NewFeedbackService(repo, nil, nil, zap.NewNop())
	claims := &models.JWTClaims{UserID: "u1", Name: "Ana", Email: "ana@example.com"}
	rating := 4

	fb, err := svc.Submit(context.Background(), claims, dto.SubmitFeedbackRequest{Subject: " Lockers ", Message: "Need more lockers", Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, "Ana", fb.Name)
	assert.Equal(t, "ana@example.com", fb.Email)
	assert.Equal(t, "Lockers", fb.Subject)
	assert.Equal(t, models.FeedbackStatusNew, fb.Status)
	assert.Equal(t, "u1", fb.UserID)

	fb, err = svc.Submit(context.Background(), claims, dto.SubmitFeedbackRequest{Name: "Guest", Email: "guest@example.com", Subject: "Hi", Message: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "Guest", fb.Name)
	assert.Equal(t, "guest@example.com", fb.Email)
}

func TestFeedbackSubmitValidation(t *testing.T) {
	svc := NewFeedbackService(&fakeFeedbackRepo{}, nil, nil, zap.NewNop())
	claims := &models.JWTClaims{UserID: "u1"}
	bad := 6

	_, err := svc.Submit(context.Background(), claims, dto.SubmitFeedbackRequest{Subject: "x", Message: "y", Rating: &bad})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Submit(context.Background(), claims, dto.SubmitFeedbackRequest{Message: "no subject"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestFeedbackSubmitRejectsBlankText(t *testing.T) {
	repo := &fakeFeedbackRepo{}
	svc := NewFeedbackService(repo, nil, nil, zap.NewNop())
	claims := &models.JWTClaims{UserID: "u1"}

	_, err := svc.Submit(context.Background(), claims, dto.SubmitFeedbackRequest{Subject: "   ", Message: "Broken treadmill"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Submit(context.Background(), claims, dto.SubmitFeedbackRequest{Subject: "Treadmill", Message: "\n\t "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, repo.items)
}

func TestFeedbackListAll(t *testing.T) {
	repo := &fakeFeedbackRepo{items: []*models.Feedback{
		{ID: "a", Status: models.FeedbackStatusNew},
		{ID: "b", Status: models.FeedbackStatusResolved},
	}}
	svc := NewFeedbackService(repo, nil, nil, zap.NewNop())

	all, err := svc.ListAll(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Nil(t, repo.listFilter)

	resolved, err := svc.ListAll(context.Background(), "RESOLVED")
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "b", resolved[0].ID)

	_, err = svc.ListAll(context.Background(), "archived")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	repo.err = errors.New("timeout")
	_, err = svc.ListAll(context.Background(), "")
	assert.ErrorIs(t, err, appErrors.ErrUpstreamUnavailable)
}

func TestFeedbackUpdateStatusAnyDirection(t *testing.T) {
	id := "7b1f3e1c-0a4f-4f0e-9d59-5f3a4c1d2e01"
	repo := &fakeFeedbackRepo{items: []*models.Feedback{{ID: id, Status: models.FeedbackStatusResolved}}}
	audit := &recordingAudit{}
	svc := NewFeedbackService(repo, audit, nil, zap.NewNop())

	fb, err := svc.UpdateStatus(context.Background(), "admin", id, dto.UpdateFeedbackStatusRequest{Status: "new"})
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackStatusNew, fb.Status)
	assert.Equal(t, []string{models.AuditActionFeedbackStatus}, audit.actions)

	_, err = svc.UpdateStatus(context.Background(), "admin", id, dto.UpdateFeedbackStatusRequest{Status: "done"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.UpdateStatus(context.Background(), "admin", "f47ac10b-58cc-4372-a567-0e02b2c3d479", dto.UpdateFeedbackStatusRequest{Status: "reviewed"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
