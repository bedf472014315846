package entries

import (
	"context"

	"github.com/dmitrijs2005/gophguard/internal/server/models"
)

// Repository stores vault entries. Every read and write is scoped by the
// owning user id; another user's entry behaves as if it did not exist.
type Repository interface {
	Create(ctx context.Context, entry *models.VaultEntry) error
	Get(ctx context.Context, userID, id string) (*models.VaultEntry, error)
	List(ctx context.Context, userID string) ([]*models.VaultEntry, error)
	Update(ctx context.Context, entry *models.VaultEntry) error
	Delete(ctx context.Context, userID, id string) error
}
