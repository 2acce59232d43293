// Package postgres backs the repositories with a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/repository"
)

const uniqueViolation = "23505"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type conn struct {
	q querier
}

func (c conn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := c.q.Exec(ctx, rebind(query), args...)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

func (c conn) QueryRow(ctx context.Context, query string, args ...any) repository.Row {
	return row{c.q.QueryRow(ctx, rebind(query), args...)}
}

func (c conn) Query(ctx context.Context, query string, args ...any) (repository.Rows, error) {
	rs, err := c.q.Query(ctx, rebind(query), args...)
	if err != nil {
		return nil, translate(err)
	}
	return rs, nil
}

type row struct{ r pgx.Row }

func (r row) Scan(dest ...any) error { return translate(r.r.Scan(dest...)) }

type tx struct {
	conn
	tx pgx.Tx
}

func (t tx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t tx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// Driver adapts a pgxpool.Pool to repository.Driver.
type Driver struct {
	conn
	pool *pgxpool.Pool
}

func NewDriver(pool *pgxpool.Pool) *Driver {
	return &Driver{conn: conn{q: pool}, pool: pool}
}

func (d *Driver) Begin(ctx context.Context) (repository.Tx, error) {
	t, err := d.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	return tx{conn: conn{q: t}, tx: t}, nil
}

func (d *Driver) Ping(ctx context.Context) error { return d.pool.Ping(ctx) }

func (d *Driver) Close() { d.pool.Close() }

// rebind turns ? placeholders into $1, $2, ...
func rebind(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrUniqueViolation
	}
	return err
}
