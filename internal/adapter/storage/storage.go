package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/leporo/sqlf"
	_ "github.com/mattn/go-sqlite3"
	"strings"
)

var (
	ErrInternal      = errors.New("internal storage error")
	ErrUnknownDriver = errors.New("unknown database driver")
)

type Driver string

const (
	SQLite   Driver = "sqlite3"
	Postgres Driver = "pgx"
)

type DBContext interface {
	Begin(ctx context.Context) (DBContext, error)
	Commit() error
	Rollback() error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type DB struct {
	*sql.DB
	Driver Driver
}

// Open connects to the database and configures the query builder dialect for it.
func Open(ctx context.Context, driver Driver, dsn string) (*DB, error) {
	switch driver {
	case Postgres:
		sqlf.SetDialect(sqlf.PostgreSQL)
	case SQLite:
		sqlf.SetDialect(sqlf.NoDialect)
		if !strings.Contains(dsn, "_foreign_keys") {
			dsn += querySep(dsn) + "_foreign_keys=on"
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == SQLite {
		// sqlite allows a single writer, transactions would otherwise fail with SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, Driver: driver}, nil
}

func (d *DB) Commit() error {
	return nil
}

func (d *DB) Rollback() error {
	return nil
}

func (d *DB) Begin(ctx context.Context) (DBContext, error) {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, InternalError(err)
	}
	return &Tx{tx}, nil
}

type Tx struct {
	*sql.Tx
}

func (t *Tx) Begin(ctx context.Context) (DBContext, error) {
	return t, nil
}

func InternalError(err error) error {
	return errors.Join(fmt.Errorf("internal storage error: %w", err), ErrInternal)
}

func querySep(dsn string) string {
	if strings.Contains(dsn, "?") {
		return "&"
	}
	return "?"
}
