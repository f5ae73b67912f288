// Package sqlite stores blobs in a single table of an embedded sqlite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"entitystore/internal/blob/core"
	"entitystore/internal/infra/blob/sqltable"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Dialect is the sqlite flavour of the blob table.
var Dialect = sqltable.Dialect{
	Driver:      core.DriverSQLite,
	Placeholder: func(int) string { return "?" },
	BlobType:    "BLOB",
	IntType:     "INTEGER",
}

// New opens (creating if needed) the sqlite file at path and ensures the blob table.
func New(ctx context.Context, path string) (*sqltable.Store, error) {
	if path == "" {
		path = "entitystore.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps :memory: databases coherent and serializes writers
	db.SetMaxOpenConns(1)
	store, err := sqltable.New(ctx, db, "blobs", Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
