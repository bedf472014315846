// Package entries provides PostgreSQL-backed persistence for vault entries.
package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/dbx"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
)

// PostgresRepository implements entry storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts entry and fills its timestamps.
func (r *PostgresRepository) Create(ctx context.Context, entry *models.VaultEntry) error {
	query := `
		INSERT INTO vault_entries (id, user_id, site, username, blob)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, entry.ID, entry.UserID, entry.Site, entry.Username, entry.Blob).
		Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Get returns the entry id owned by userID or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (*models.VaultEntry, error) {
	query := `
		SELECT id, user_id, site, username, blob, created_at, updated_at
		FROM vault_entries
		WHERE id = $1 AND user_id = $2
	`
	var e models.VaultEntry
	err := r.db.QueryRowContext(ctx, query, id, userID).
		Scan(&e.ID, &e.UserID, &e.Site, &e.Username, &e.Blob, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &e, nil
}

// List returns all entries of userID ordered by site.
func (r *PostgresRepository) List(ctx context.Context, userID string) ([]*models.VaultEntry, error) {
	query := ` SELECT id, user_id, site, username, blob, created_at, updated_at from vault_entries
		WHERE user_id=$1 ORDER BY site, username
		`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	var result []*models.VaultEntry
	for rows.Next() {
		var item models.VaultEntry
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.Site, &item.Username, &item.Blob, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update replaces site, username and blob of an entry owned by entry.UserID.
func (r *PostgresRepository) Update(ctx context.Context, entry *models.VaultEntry) error {
	query := `
		UPDATE vault_entries
		SET site = $3, username = $4, blob = $5, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, entry.ID, entry.UserID, entry.Site, entry.Username, entry.Blob).
		Scan(&entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes the entry id owned by userID.
func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM vault_entries WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := dbx.ExpectOneRow(res); err != nil {
		if errors.Is(err, common.ErrVersionConflict) {
			return common.ErrorNotFound
		}
		return err
	}
	return nil
}
