package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/echolater/internal/client/migrations"
	"github.com/dmitrijs2005/echolater/internal/filex"

	_ "modernc.org/sqlite"
)

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// OpenSessionDB opens (creating if needed) the SQLite file at path and
// brings its schema up to date.
func OpenSessionDB(ctx context.Context, path string) (*sql.DB, error) {
	path, err := filex.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if _, err := filex.EnsureParentDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate session db: %w", err)
	}
	return db, nil
}
