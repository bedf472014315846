// Package repomanager vends repositories bound to a database handle, so
// services can run the same repositories inside or outside a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophguard/internal/dbx"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/entries"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/exports"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Entries(db dbx.DBTX) entries.Repository
	Exports(db dbx.DBTX) exports.Repository
}
