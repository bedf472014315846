// Package exports records encrypted vault exports placed in object storage.
package exports

import (
	"context"

	"github.com/dmitrijs2005/gophguard/internal/server/models"
)

type Repository interface {
	// Create stores a pending export record.
	Create(ctx context.Context, export *models.Export) error
	// MarkUploaded flips the export to completed once the object is stored.
	MarkUploaded(ctx context.Context, id string) error
	// ListByUser returns the user's exports, newest first.
	ListByUser(ctx context.Context, userID string) ([]*models.Export, error)
}
