package cli

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophguard/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// dbUnlocker resets lockout state directly in the user store.
type dbUnlocker struct {
	open func() (*sql.DB, error)
}

func newDBUnlocker(dsn string) *dbUnlocker {
	return &dbUnlocker{open: func() (*sql.DB, error) { return sql.Open("pgx", dsn) }}
}

// Unlock accepts a user id or an email address.
func (u *dbUnlocker) Unlock(ctx context.Context, user string) error {
	db, err := u.open()
	if err != nil {
		return err
	}
	defer db.Close()

	users := repomanager.NewPostgresRepositoryManager().Users(db)

	id := user
	if strings.Contains(user, "@") {
		identity, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(user)))
		if err != nil {
			return err
		}
		id = identity.ID
	}

	return users.ResetLockout(ctx, id)
}

func (a *App) unlock(ctx context.Context, args []string) error {
	pos := positional(args)
	if len(pos) != 1 {
		return usageError("unlock <user-id|email>")
	}

	user := pos[0]
	if !strings.Contains(user, "@") {
		if _, err := uuid.Parse(user); err != nil {
			return usageError("unlock <user-id|email>: user id must be a UUID")
		}
	}

	if err := a.unlocker.Unlock(ctx, user); err != nil {
		return fmt.Errorf("unlock %s: %w", user, err)
	}
	fmt.Fprintf(a.out, "User %s unlocked\n", user)
	return nil
}
