// Package sqltable implements core.Store on a single database/sql table.
// Dialects supply placeholders and column types; the sqlite and postgres
// drivers wrap it with their own connection setup.
package sqltable

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"entitystore/internal/blob/core"
)

// Dialect captures the SQL differences between supported engines.
type Dialect struct {
	Driver core.Driver
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// BlobType is the column type used for payload bytes.
	BlobType string
	// IntType is the column type used for sizes and timestamps.
	IntType string
}

// Store persists blobs as rows of the configured table.
type Store struct {
	db      *sql.DB
	table   string
	dialect Dialect
}

// New ensures the blob table exists and returns a store bound to it.
func New(ctx context.Context, db *sql.DB, table string, dialect Dialect) (*Store, error) {
	if table == "" {
		table = "blobs"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		blob_key TEXT PRIMARY KEY,
		body %s NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '',
		etag TEXT NOT NULL,
		size %s NOT NULL,
		created_at %s NOT NULL,
		updated_at %s NOT NULL
	)`, table, dialect.BlobType, dialect.IntType, dialect.IntType, dialect.IntType)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create %s table: %w", table, err)
	}
	return &Store{db: db, table: table, dialect: dialect}, nil
}

func (s *Store) Driver() core.Driver { return s.dialect.Driver }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ph(n int) string { return s.dialect.Placeholder(n) }

func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if strings.TrimSpace(key) == "" {
		return core.Info{}, fmt.Errorf("empty key")
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	md := ""
	if len(opts.Metadata) > 0 {
		b, err := json.Marshal(opts.Metadata)
		if err != nil {
			return core.Info{}, fmt.Errorf("encode metadata: %w", err)
		}
		md = string(b)
	}
	sum := sha256.Sum256(body)
	etag := hex.EncodeToString(sum[:])
	now := time.Now().UTC()
	q := fmt.Sprintf(`INSERT INTO %s(blob_key, body, content_type, metadata, etag, size, created_at, updated_at)
		VALUES(%s, %s, %s, %s, %s, %s, %s, %s)
		ON CONFLICT(blob_key) DO UPDATE SET body=excluded.body, content_type=excluded.content_type,
		metadata=excluded.metadata, etag=excluded.etag, size=excluded.size, updated_at=excluded.updated_at`,
		s.table, s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8))
	if _, err := s.db.ExecContext(ctx, q, key, body, opts.ContentType, md, etag, int64(len(body)), now.UnixNano(), now.UnixNano()); err != nil {
		return core.Info{}, fmt.Errorf("upsert %s: %w", key, err)
	}
	return core.Info{Key: key, Size: int64(len(body)), ContentType: opts.ContentType, ETag: etag, Metadata: cloneMetadata(opts.Metadata), LastModified: now}, nil
}

func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	q := fmt.Sprintf(`SELECT body, content_type, metadata, etag, size, updated_at FROM %s WHERE blob_key = %s`, s.table, s.ph(1))
	var body []byte
	info, err := s.scanInfo(key, s.db.QueryRowContext(ctx, q, key), &body)
	if err != nil {
		return core.Info{}, nil, err
	}
	return info, io.NopCloser(bytes.NewReader(body)), nil
}

func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	q := fmt.Sprintf(`SELECT content_type, metadata, etag, size, updated_at FROM %s WHERE blob_key = %s`, s.table, s.ph(1))
	return s.scanInfo(key, s.db.QueryRowContext(ctx, q, key), nil)
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	q := fmt.Sprintf(`DELETE FROM %s WHERE blob_key = %s`, s.table, s.ph(1))
	res, err := s.db.ExecContext(ctx, q, key)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	q := fmt.Sprintf(`SELECT blob_key, content_type, metadata, etag, size, updated_at FROM %s`, s.table)
	var args []any
	if prefix != "" {
		// substr avoids LIKE escaping; keys routinely contain '_'
		q += fmt.Sprintf(` WHERE substr(blob_key, 1, %s) = %s`, s.ph(1), s.ph(2))
		args = append(args, utf8.RuneCountInString(prefix), prefix)
	}
	q += ` ORDER BY blob_key`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer func() { _ = rows.Close() }()
	var infos []core.Info
	for rows.Next() {
		var (
			key, ct, md, etag string
			size, updated     int64
		)
		if err := rows.Scan(&key, &ct, &md, &etag, &size, &updated); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		info, err := buildInfo(key, ct, md, etag, size, updated)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

func (s *Store) scanInfo(key string, row *sql.Row, body *[]byte) (core.Info, error) {
	var (
		ct, md, etag  string
		size, updated int64
	)
	dest := []any{&ct, &md, &etag, &size, &updated}
	if body != nil {
		dest = append([]any{body}, dest...)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Info{}, fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
		}
		return core.Info{}, fmt.Errorf("select %s: %w", key, err)
	}
	return buildInfo(key, ct, md, etag, size, updated)
}

func buildInfo(key, ct, md, etag string, size, updated int64) (core.Info, error) {
	info := core.Info{Key: key, Size: size, ContentType: ct, ETag: etag, LastModified: time.Unix(0, updated).UTC()}
	if md != "" {
		if err := json.Unmarshal([]byte(md), &info.Metadata); err != nil {
			return core.Info{}, fmt.Errorf("decode metadata for %s: %w", key, err)
		}
	}
	return info, nil
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
