package models

import "time"

// Announcement is an admin-authored broadcast shown to every user while visible.
type Announcement struct {
	ID        string     `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	Content   string     `db:"content" json:"content"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	CreatedBy *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// VisibleAt reports whether the announcement is shown to users at now.
func (a *Announcement) VisibleAt(now time.Time) bool {
	if a == nil || !a.IsActive {
		return false
	}
	return a.ExpiresAt == nil || !a.ExpiresAt.Before(now)
}
