// Package postgres stores blobs in a single BYTEA table on a PostgreSQL server.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"

	"entitystore/internal/blob/core"
	"entitystore/internal/infra/blob/sqltable"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/entitystore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Dialect is the postgres flavour of the blob table.
var Dialect = sqltable.Dialect{
	Driver:      core.DriverPostgres,
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	BlobType:    "BYTEA",
	IntType:     "BIGINT",
}

// New opens a Postgres-backed blob store using the provided DSN (falls back to defaultDSN).
func New(ctx context.Context, dsn string) (*sqltable.Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store, err := sqltable.New(ctx, db, "entity_blobs", Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
