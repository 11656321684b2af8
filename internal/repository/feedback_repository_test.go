package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gymslot-api/internal/models"
)

func TestFeedbackCreateDefaultsToNew(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	mock.ExpectExec("INSERT INTO feedback").WillReturnResult(sqlmock.NewResult(1, 1))

	fb := &models.Feedback{UserID: "u1", Name: "Ana", Email: "ana@example.com", Subject: "Hi", Message: "Great gym"}
	require.NoError(t, repo.Create(context.Background(), fb))
	assert.Equal(t, models.FeedbackStatusNew, fb.Status)
	assert.NotEmpty(t, fb.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackListByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "email", "subject", "message", "rating", "status", "created_at", "updated_at", "user_name", "user_email", "user_student_id"}).
		AddRow("f1", "u1", "Ana", "ana@example.com", "Hi", "Msg", 5, "reviewed", now, now, "Ana B", "ana@example.com", nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE f.status = $1 ORDER BY f.created_at DESC")).
		WithArgs("reviewed").
		WillReturnRows(rows)

	status := models.FeedbackStatusReviewed
	items, err := repo.List(context.Background(), &status)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Rating)
	assert.Equal(t, 5, *items[0].Rating)
	require.NotNil(t, items[0].User)
	assert.Equal(t, "Ana B", items[0].User.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackUpdateStatusUnknownID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	mock.ExpectQuery("UPDATE feedback SET status").WithArgs("missing", "resolved", sqlmock.AnyArg()).WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateStatus(context.Background(), "missing", models.FeedbackStatusResolved)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
