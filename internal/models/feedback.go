package models

import "time"

// FeedbackStatus is the admin triage state of a feedback entry.
type FeedbackStatus string

const (
	FeedbackStatusNew      FeedbackStatus = "new"
	FeedbackStatusReviewed FeedbackStatus = "reviewed"
	FeedbackStatusResolved FeedbackStatus = "resolved"
)

// Valid reports whether s is a known status.
func (s FeedbackStatus) Valid() bool {
	switch s {
	case FeedbackStatusNew, FeedbackStatusReviewed, FeedbackStatusResolved:
		return true
	}
	return false
}

// Feedback is a user-submitted message. Name and email are captured at submission time.
type Feedback struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"user_id"`
	Name      string         `db:"name" json:"name"`
	Email     string         `db:"email" json:"email"`
	Subject   string         `db:"subject" json:"subject"`
	Message   string         `db:"message" json:"message"`
	Rating    *int           `db:"rating" json:"rating,omitempty"`
	Status    FeedbackStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`

	User *UserProfile `db:"-" json:"user,omitempty"`
}
