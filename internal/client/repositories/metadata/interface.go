// Package metadata is a small key/value table in the client's local SQLite
// database. The CLI keeps its session (tokens, email) there between runs.
package metadata

import (
	"context"
)

// Repository stores string values by key. Implementations accept *sql.DB or
// *sql.Tx through dbx.DBTX so a whole session can be written atomically.
type Repository interface {
	// Get returns ok=false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set inserts or replaces the value under key.
	Set(ctx context.Context, key string, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Clear empties the table.
	Clear(ctx context.Context) error
}
