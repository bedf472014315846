// Package models defines server-side data models persisted in the database.
package models

import "time"

// Identity is a registered account: the login email, its argon2id password
// hash and the lockout bookkeeping consulted by every login attempt.
type Identity struct {
	ID                 string
	Email              string
	PasswordHash       string
	FailedAttemptCount int
	LockedUntil        *time.Time
	LastLoginAt        *time.Time
	CreatedAt          time.Time
}

// IsLocked reports whether the identity is locked at now. A lock whose
// deadline has passed is expired, not active.
func (i *Identity) IsLocked(now time.Time) bool {
	return i.LockedUntil != nil && i.LockedUntil.After(now)
}
