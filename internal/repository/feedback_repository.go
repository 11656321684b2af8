package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gymslot-api/internal/models"
)

const feedbackColumns = `id, user_id, name, email, subject, message, rating, status, created_at, updated_at`

// FeedbackRepository persists the feedback log.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository creates the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts a feedback entry.
func (r *FeedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = now
	}
	feedback.UpdatedAt = now
	if feedback.Status == "" {
		feedback.Status = models.FeedbackStatusNew
	}
	query := `INSERT INTO feedback (` + feedbackColumns + `) VALUES (:id, :user_id, :name, :email, :subject, :message, :rating, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, feedback); err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

// List returns feedback newest first, optionally narrowed to one status, joined with the author's profile.
func (r *FeedbackRepository) List(ctx context.Context, status *models.FeedbackStatus) ([]models.Feedback, error) {
	query := `SELECT f.id, f.user_id, f.name, f.email, f.subject, f.message, f.rating, f.status, f.created_at, f.updated_at,
u.name AS user_name, u.email AS user_email, u.student_id AS user_student_id
FROM feedback f
LEFT JOIN users u ON u.id = f.user_id`
	var args []interface{}
	if status != nil {
		query += ` WHERE f.status = $1`
		args = append(args, string(*status))
	}
	query += ` ORDER BY f.created_at DESC`

	var rows []feedbackRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	items := make([]models.Feedback, 0, len(rows))
	for _, row := range rows {
		item := row.Feedback
		if row.UserName != nil {
			item.User = &models.UserProfile{Name: *row.UserName, StudentID: row.UserStudentID}
			if row.UserEmail != nil {
				item.User.Email = *row.UserEmail
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// UpdateStatus sets the status of a feedback entry. sql.ErrNoRows means the id is unknown.
func (r *FeedbackRepository) UpdateStatus(ctx context.Context, id string, status models.FeedbackStatus) (*models.Feedback, error) {
	query := `UPDATE feedback SET status = $2, updated_at = $3 WHERE id = $1 RETURNING ` + feedbackColumns
	var feedback models.Feedback
	if err := r.db.GetContext(ctx, &feedback, query, id, string(status), time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update feedback status: %w", err)
	}
	return &feedback, nil
}

type feedbackRow struct {
	models.Feedback
	UserName      *string `db:"user_name"`
	UserEmail     *string `db:"user_email"`
	UserStudentID *string `db:"user_student_id"`
}
