package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrStatusConflict = errors.New("status changed concurrently")
	ErrDuplicateEmail = errors.New("email already registered")
)

type UserRepository interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	SetVerified(ctx context.Context, id int64, at time.Time) error
	SetPassword(ctx context.Context, id int64, hash []byte, at time.Time) error
	SetUsername(ctx context.Context, id int64, username string, at time.Time) error
}

type VerificationRepository interface {
	// Put stores p, replacing any earlier verification of the same user.
	Put(ctx context.Context, p models.PendingVerification) error
	Get(ctx context.Context, userID int64) (models.PendingVerification, error)
	Delete(ctx context.Context, userID int64) error
	// Consume deletes the verification only if it still carries codeHash,
	// so a code is redeemed at most once. It fails with ErrNotFound otherwise.
	Consume(ctx context.Context, userID int64, codeHash []byte) error
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type ReportRepository interface {
	Create(ctx context.Context, r models.NewReport, at time.Time) (models.Report, error)
	Get(ctx context.Context, id int64) (models.Report, error)
	// List returns every report, or only those in status when it is set.
	List(ctx context.Context, status models.ReportStatus) ([]models.Report, error)
	ListBySubmitter(ctx context.Context, submitterID int64) ([]models.Report, error)
	// Resolve moves a pending report to status. It fails with
	// ErrStatusConflict when the report is no longer pending.
	Resolve(ctx context.Context, id int64, status models.ReportStatus, at time.Time) (models.Report, error)
}

type ItemRepository interface {
	CreateFound(ctx context.Context, item models.NewItem, at time.Time) (models.FoundItem, error)
	CreateLost(ctx context.Context, item models.NewItem, at time.Time) (models.LostItem, error)
	GetFound(ctx context.Context, id int64) (models.FoundItem, error)
	GetLost(ctx context.Context, id int64) (models.LostItem, error)
	ListFound(ctx context.Context, statuses ...models.ItemStatus) ([]models.FoundItem, error)
	ListLost(ctx context.Context, statuses ...models.ItemStatus) ([]models.LostItem, error)
	// Transition writes to only while the row is still in from.
	Transition(ctx context.Context, ref models.ItemRef, from, to models.ItemStatus, at time.Time) error
	// Delete removes the row only while its status is one of statuses.
	Delete(ctx context.Context, ref models.ItemRef, statuses ...models.ItemStatus) error
}

// Repos groups the repositories bound to one connection or transaction.
type Repos interface {
	Users() UserRepository
	Verifications() VerificationRepository
	Reports() ReportRepository
	Items() ItemRepository
}

type Store interface {
	Repos
	// InTx runs fn in one transaction; fn's error rolls everything back.
	InTx(ctx context.Context, fn func(Repos) error) error
	Ping(ctx context.Context) error
	Close()
}
