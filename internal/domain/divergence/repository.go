package divergence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages divergence persistence. Rows are created as a batch
// during an ingest; resolution is the only mutation path afterwards.
type Repository interface {
	CreateBatch(ctx context.Context, divergences []*Divergence) error
	GetByID(ctx context.Context, id uuid.UUID) (*Divergence, error)
	GetByClosureID(ctx context.Context, closureID uuid.UUID) ([]*Divergence, error)
	UpdateResolution(ctx context.Context, d *Divergence) error
	DeleteByClosureID(ctx context.Context, closureID uuid.UUID) error
	WithTx(tx pgx.Tx) Repository
}

// ErrDivergenceNotFound indicates missing divergence
type ErrDivergenceNotFound struct {
	ID uuid.UUID
}

func (e ErrDivergenceNotFound) Error() string {
	return "divergence not found: " + e.ID.String()
}

// Is matches any ErrDivergenceNotFound when the target carries a nil ID
func (e ErrDivergenceNotFound) Is(target error) bool {
	t, ok := target.(ErrDivergenceNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
