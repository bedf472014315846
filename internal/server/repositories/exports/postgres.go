package exports

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophguard/internal/dbx"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
)

// PostgresRepository implements export bookkeeping over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, export *models.Export) error {
	query := `
		INSERT INTO exports (id, user_id, storage_key, entry_count, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	if export.Status == "" {
		export.Status = models.ExportPending
	}
	err := r.db.QueryRowContext(ctx, query,
		export.ID, export.UserID, export.StorageKey, export.EntryCount, export.Status).Scan(&export.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// MarkUploaded marks export id as completed. Exactly one row must be affected.
func (r *PostgresRepository) MarkUploaded(ctx context.Context, id string) error {
	query := `update exports set status='completed' where id=$1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark uploaded: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Export, error) {
	query := ` SELECT id, user_id, storage_key, entry_count, status, created_at from exports
		WHERE user_id=$1 ORDER BY created_at DESC
		`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select exports: %w", err)
	}
	defer rows.Close()

	var result []*models.Export
	for rows.Next() {
		var item models.Export
		if err := rows.Scan(&item.ID, &item.UserID, &item.StorageKey, &item.EntryCount, &item.Status, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
