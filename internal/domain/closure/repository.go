package closure

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fechamento-diario/internal/normalize"
)

// Repository defines closure persistence operations. The date column carries a
// uniqueness constraint; Create surfaces a race on it as ErrClosureAlreadyExists
// so callers can fall back to re-reading the winner's row.
type Repository interface {
	Create(ctx context.Context, c *DailyClosure) error
	GetByID(ctx context.Context, id uuid.UUID) (*DailyClosure, error)
	GetByDate(ctx context.Context, date time.Time) (*DailyClosure, error)
	ListByPeriod(ctx context.Context, from, to time.Time) ([]*DailyClosure, error)
	Update(ctx context.Context, c *DailyClosure) error

	// LockByDate acquires a pessimistic lock on the closure row, serializing
	// concurrent ingests for the same date. Must run inside a transaction.
	LockByDate(ctx context.Context, date time.Time) (*DailyClosure, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrClosureNotFound indicates that no closure exists for the requested date
type ErrClosureNotFound struct {
	Date time.Time
}

func (e ErrClosureNotFound) Error() string {
	return "daily closure not found for date: " + normalize.FormatDateBR(e.Date)
}

// Is matches any ErrClosureNotFound when the target carries a zero date
func (e ErrClosureNotFound) Is(target error) bool {
	t, ok := target.(ErrClosureNotFound)
	if !ok {
		return false
	}
	if t.Date.IsZero() {
		return true
	}
	return e.Date.Equal(t.Date)
}

// ErrClosureAlreadyExists indicates a date-uniqueness violation on create.
// Recovered internally by re-reading; never surfaced to API callers.
type ErrClosureAlreadyExists struct {
	Date time.Time
}

func (e ErrClosureAlreadyExists) Error() string {
	return "daily closure already exists for date: " + normalize.FormatDateBR(e.Date)
}

// Is matches any ErrClosureAlreadyExists when the target carries a zero date
func (e ErrClosureAlreadyExists) Is(target error) bool {
	t, ok := target.(ErrClosureAlreadyExists)
	if !ok {
		return false
	}
	if t.Date.IsZero() {
		return true
	}
	return e.Date.Equal(t.Date)
}
