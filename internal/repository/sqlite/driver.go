// Package sqlite backs the repositories with a modernc.org/sqlite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/repository"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type conn struct {
	q querier
}

func (c conn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

func (c conn) QueryRow(ctx context.Context, query string, args ...any) repository.Row {
	return row{c.q.QueryRowContext(ctx, query, args...)}
}

func (c conn) Query(ctx context.Context, query string, args ...any) (repository.Rows, error) {
	rs, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	return rows{rs}, nil
}

type row struct{ r *sql.Row }

func (r row) Scan(dest ...any) error { return translate(r.r.Scan(dest...)) }

type rows struct{ *sql.Rows }

func (r rows) Close() { _ = r.Rows.Close() }

type tx struct {
	conn
	tx *sql.Tx
}

func (t tx) Commit(context.Context) error   { return t.tx.Commit() }
func (t tx) Rollback(context.Context) error { return t.tx.Rollback() }

// Driver adapts a *sql.DB to repository.Driver.
type Driver struct {
	conn
	db *sql.DB
}

func NewDriver(db *sql.DB) *Driver {
	return &Driver{conn: conn{q: db}, db: db}
}

func (d *Driver) Begin(ctx context.Context) (repository.Tx, error) {
	t, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return tx{conn: conn{q: t}, tx: t}, nil
}

func (d *Driver) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

func (d *Driver) Close() { _ = d.db.Close() }

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return repository.ErrUniqueViolation
		}
	}
	return err
}
