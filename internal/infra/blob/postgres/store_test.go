package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
)

type failingPingDriver struct{}

func (failingPingDriver) Open(string) (driver.Conn, error) { return failingPingConn{}, nil }

type failingPingConn struct{}

func (failingPingConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (failingPingConn) Close() error                        { return nil }
func (failingPingConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }
func (failingPingConn) Ping(context.Context) error          { return errors.New("connection refused") }

var stubSeq atomic.Int64

func withSQLOpen(t *testing.T, fn func(driverName, dsn string) (*sql.DB, error)) {
	t.Helper()
	old := sqlOpen
	sqlOpen = fn
	t.Cleanup(func() { sqlOpen = old })
}

func TestNewOpenError(t *testing.T) {
	withSQLOpen(t, func(string, string) (*sql.DB, error) { return nil, errors.New("boom") })
	if _, err := New(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestNewPingError(t *testing.T) {
	var gotDSN string
	withSQLOpen(t, func(driverName, dsn string) (*sql.DB, error) {
		gotDSN = dsn
		name := fmt.Sprintf("failping%d", stubSeq.Add(1))
		sql.Register(name, failingPingDriver{})
		return sql.Open(name, dsn)
	})
	if _, err := New(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
	if gotDSN != defaultDSN {
		t.Fatalf("expected default dsn, got %s", gotDSN)
	}
}

func TestDialectPlaceholders(t *testing.T) {
	if Dialect.Placeholder(1) != "$1" || Dialect.Placeholder(12) != "$12" {
		t.Fatalf("unexpected placeholders")
	}
	if Dialect.BlobType != "BYTEA" {
		t.Fatalf("unexpected blob type %s", Dialect.BlobType)
	}
}
