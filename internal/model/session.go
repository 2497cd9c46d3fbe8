package model

import "time"

// Session binds a bearer token to a user and an expiry. Only the SHA-256
// hash of the token is persisted; the raw token is returned to the client
// once at login and never stored.
type Session struct {
	ID        int64     `json:"id" db:"id"`
	TokenHash string    `json:"-" db:"token_hash"`
	UserID    int64     `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Valid reports whether the session can authenticate a request at time now:
// it must be active and not yet expired.
func (s *Session) Valid(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}
