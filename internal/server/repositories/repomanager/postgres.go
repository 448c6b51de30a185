// Package repomanager wires the PostgreSQL repositories together and owns the
// schema migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/echolater/internal/dbx"
	"github.com/dmitrijs2005/echolater/internal/server/migrations"
	"github.com/dmitrijs2005/echolater/internal/server/repositories/ideas"
	"github.com/dmitrijs2005/echolater/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/echolater/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// RefreshTokens returns a refreshtokens.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

// Ideas returns an ideas.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Ideas(db dbx.DBTX) ideas.Repository {
	return ideas.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = goose.UpContext

// RunMigrations applies the embedded migrations up to the latest version.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// OpenDB opens dsn through the pgx stdlib driver and pings it.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}
