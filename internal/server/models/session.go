package models

import "time"

// Session is a login session row. Rows are never updated.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionUser is an active session joined with its user.
type SessionUser struct {
	SessionID string
	UserID    string
	Username  string
	ExpiresAt time.Time
}
