package repository

import (
	"context"
	"errors"
)

// ErrUniqueViolation is returned by drivers when an insert or update hits a
// unique index.
var ErrUniqueViolation = errors.New("unique constraint violated")

type Row interface {
	Scan(dest ...any) error
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Querier is the part of a connection the SQL repositories use. Queries are
// written with ? placeholders; drivers rebind them for their dialect. Drivers
// report missing rows as ErrNotFound and unique index hits as
// ErrUniqueViolation.
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Driver interface {
	Querier
	Begin(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	Close()
}
