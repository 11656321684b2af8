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

const announcementColumns = `id, title, content, expires_at, is_active, created_by, created_at, updated_at`

// AnnouncementRepository provides persistence for announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// ListAll returns every announcement, newest first.
func (r *AnnouncementRepository) ListAll(ctx context.Context) ([]models.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements ORDER BY created_at DESC`
	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, query); err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return announcements, nil
}

// ListActive returns announcements that are active and not expired at now, newest first.
func (r *AnnouncementRepository) ListActive(ctx context.Context, now time.Time) ([]models.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements
WHERE is_active = TRUE AND (expires_at IS NULL OR expires_at >= $1)
ORDER BY created_at DESC`
	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, query, now); err != nil {
		return nil, fmt.Errorf("list active announcements: %w", err)
	}
	return announcements, nil
}

// GetByID returns an announcement by identifier.
func (r *AnnouncementRepository) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements WHERE id = $1`
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get announcement: %w", err)
	}
	return &announcement, nil
}

// Create inserts a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if announcement.CreatedAt.IsZero() {
		announcement.CreatedAt = now
	}
	announcement.UpdatedAt = now
	query := `INSERT INTO announcements (` + announcementColumns + `)
VALUES (:id, :title, :content, :expires_at, :is_active, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Update modifies an existing announcement. sql.ErrNoRows means the id is unknown.
func (r *AnnouncementRepository) Update(ctx context.Context, announcement *models.Announcement) error {
	announcement.UpdatedAt = time.Now().UTC()
	query := `UPDATE announcements SET title = :title, content = :content, expires_at = :expires_at, is_active = :is_active, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, announcement)
	if err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return requireAffected(res, "update announcement")
}

// Delete removes an announcement. sql.ErrNoRows means the id is unknown.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM announcements WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return requireAffected(res, "delete announcement")
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
