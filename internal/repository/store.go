package repository

import (
	"context"
	"fmt"
	"time"
)

type sqlStore struct {
	driver  Driver
	timeout time.Duration
	repos
}

// NewStore builds the SQL-backed Store on top of a postgres or sqlite
// driver. timeout bounds every repository call; zero disables it.
func NewStore(driver Driver, timeout time.Duration) Store {
	return &sqlStore{
		driver:  driver,
		timeout: timeout,
		repos:   repos{q: driver, timeout: timeout},
	}
}

func (s *sqlStore) InTx(ctx context.Context, fn func(Repos) error) (err error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.driver.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.Background())
			panic(p)
		}
	}()

	// The transaction context already carries the deadline.
	if err := fn(repos{q: tx}); err != nil {
		if rbErr := tx.Rollback(context.Background()); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.driver.Ping(ctx)
}

func (s *sqlStore) Close() {
	s.driver.Close()
}

type repos struct {
	q       Querier
	timeout time.Duration
}

func (r repos) Users() UserRepository                 { return userRepo{r} }
func (r repos) Verifications() VerificationRepository { return verificationRepo{r} }
func (r repos) Reports() ReportRepository             { return reportRepo{r} }
func (r repos) Items() ItemRepository                 { return itemRepo{r} }

func (r repos) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// inClause renders "(?, ?, ...)" for n values.
func inClause(n int) string {
	b := make([]byte, 0, 3*n+1)
	b = append(b, '(')
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',', ' ')
		}
		b = append(b, '?')
	}
	return string(append(b, ')'))
}
