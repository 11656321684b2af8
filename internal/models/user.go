package models

import "time"

// User represents an account stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	StudentID    *string   `db:"student_id" json:"student_id,omitempty"`
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Profile returns the display subset joined into bookings and feedback.
func (u *User) Profile() *UserProfile {
	if u == nil {
		return nil
	}
	return &UserProfile{Name: u.Name, Email: u.Email, StudentID: u.StudentID}
}

// UserProfile is the public projection of a user.
type UserProfile struct {
	Name      string  `db:"name" json:"name"`
	Email     string  `db:"email" json:"email"`
	StudentID *string `db:"student_id" json:"student_id,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
