package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/dbx"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const selectIdentity = `SELECT id, email, password_hash, failed_attempt_count, locked_until, last_login_at, created_at FROM users`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, identity *models.Identity) error {

	query :=
		`INSERT INTO users (id, email, password_hash, failed_attempt_count, locked_until)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		identity.ID, identity.Email, identity.PasswordHash, identity.FailedAttemptCount, identity.LockedUntil).
		Scan(&identity.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return r.scanOne(ctx, selectIdentity+` WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByEmailForUpdate(ctx context.Context, email string) (*models.Identity, error) {
	return r.scanOne(ctx, selectIdentity+` WHERE email = $1 FOR UPDATE`, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	return r.scanOne(ctx, selectIdentity+` WHERE id = $1`, id)
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, arg any) (*models.Identity, error) {
	var (
		identity    models.Identity
		lockedUntil sql.NullTime
		lastLogin   sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&identity.ID, &identity.Email, &identity.PasswordHash, &identity.FailedAttemptCount,
		&lockedUntil, &lastLogin, &identity.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if lockedUntil.Valid {
		identity.LockedUntil = &lockedUntil.Time
	}
	if lastLogin.Valid {
		identity.LastLoginAt = &lastLogin.Time
	}
	return &identity, nil
}

func (r *PostgresRepository) RecordFailure(ctx context.Context, id string, failedAttemptCount int, lockedUntil *time.Time) error {
	query :=
		`UPDATE users SET failed_attempt_count = $2, locked_until = $3
		 WHERE id = $1
		 `
	return r.update(ctx, query, id, failedAttemptCount, lockedUntil)
}

func (r *PostgresRepository) RecordSuccess(ctx context.Context, id string, at time.Time) error {
	query :=
		`UPDATE users SET failed_attempt_count = 0, locked_until = NULL, last_login_at = $2
		 WHERE id = $1
		 `
	return r.update(ctx, query, id, at)
}

func (r *PostgresRepository) ResetLockout(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET failed_attempt_count = 0, locked_until = NULL
		 WHERE id = $1
		 `
	return r.update(ctx, query, id)
}

func (r *PostgresRepository) update(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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
