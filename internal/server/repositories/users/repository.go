// Package users stores identities and their lockout bookkeeping.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/server/models"
)

type Repository interface {
	// Create inserts a new identity. A taken email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, identity *models.Identity) error
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	// GetByEmailForUpdate reads the identity and row-locks it until the
	// surrounding transaction ends.
	GetByEmailForUpdate(ctx context.Context, email string) (*models.Identity, error)
	GetByID(ctx context.Context, id string) (*models.Identity, error)
	// RecordFailure stores the new failure count and lock deadline (nil clears it).
	RecordFailure(ctx context.Context, id string, failedAttemptCount int, lockedUntil *time.Time) error
	// RecordSuccess resets the counter, clears the lock and stamps the login time.
	RecordSuccess(ctx context.Context, id string, at time.Time) error
	// ResetLockout resets the counter and clears the lock.
	ResetLockout(ctx context.Context, id string) error
}
