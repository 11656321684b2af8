package dto

import "time"

// CreateAnnouncementRequest describes the create payload. IsActive defaults to true.
type CreateAnnouncementRequest struct {
	Title     string     `json:"title" validate:"required,max=200"`
	Content   string     `json:"content" validate:"required"`
	ExpiresAt *time.Time `json:"expires_at"`
	IsActive  *bool      `json:"is_active"`
}

// UpdateAnnouncementRequest describes the full update payload.
type UpdateAnnouncementRequest struct {
	Title     string     `json:"title" validate:"required,max=200"`
	Content   string     `json:"content" validate:"required"`
	ExpiresAt *time.Time `json:"expires_at"`
	IsActive  bool       `json:"is_active"`
}
