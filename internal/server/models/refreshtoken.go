package models

import "time"

// RefreshToken is the one current refresh token of an identity, stored as a
// SHA-256 hex digest of the signed token.
type RefreshToken struct {
	UserID    string
	TokenHash string
	Expires   time.Time
	CreatedAt time.Time
}
