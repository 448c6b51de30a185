package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/echolater/internal/dbx"
	"github.com/dmitrijs2005/echolater/internal/server/repositories/ideas"
	"github.com/dmitrijs2005/echolater/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/echolater/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX so services can use
// the same code inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Ideas(db dbx.DBTX) ideas.Repository
}
