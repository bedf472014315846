// Package refreshtokens declares the server-side repository contract for
// the single current refresh token of each identity.
package refreshtokens

import (
	"context"
	"time"
)

// Repository stores refresh token digests, one row per identity.
type Repository interface {
	// Save makes tokenHash the identity's current refresh token, replacing
	// any previous one.
	Save(ctx context.Context, userID string, tokenHash string, expires time.Time) error

	// Rotate swaps oldHash for newHash only if oldHash is still current.
	// Otherwise it returns common.ErrVersionConflict and changes nothing.
	Rotate(ctx context.Context, userID string, oldHash string, newHash string, expires time.Time) error

	// Delete removes the identity's refresh token. Deleting a non-existent
	// token is not an error.
	Delete(ctx context.Context, userID string) error
}
