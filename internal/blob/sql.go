package blob

import (
	"context"

	"entitystore/internal/infra/blob/postgres"
	"entitystore/internal/infra/blob/sqlite"
)

// NewSQLite constructs a blob.Store on a single table of the sqlite file at path.
func NewSQLite(ctx context.Context, path string) (Store, error) {
	return sqlite.New(ctx, path)
}

// NewPostgres constructs a blob.Store on a single table of the PostgreSQL database at dsn.
func NewPostgres(ctx context.Context, dsn string) (Store, error) {
	return postgres.New(ctx, dsn)
}
