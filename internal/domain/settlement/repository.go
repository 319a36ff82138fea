package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages persistence of parsed settlement transactions. Rows are
// only ever written as a batch during an ingest and deleted as a batch when a
// closure is cleared or re-ingested.
type Repository interface {
	CreateBatch(ctx context.Context, transactions []*ExternalTransaction) error
	GetByClosureID(ctx context.Context, closureID uuid.UUID) ([]*ExternalTransaction, error)
	DeleteByClosureID(ctx context.Context, closureID uuid.UUID) error
	WithTx(tx pgx.Tx) Repository
}
