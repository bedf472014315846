package models

import "time"

// VaultEntry is a stored credential. Blob is the sealed secret in its
// storage form (hex nonce, tag and ciphertext joined by ':'); the plaintext
// never reaches the database.
type VaultEntry struct {
	ID        string
	UserID    string
	Site      string
	Username  string
	Blob      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
