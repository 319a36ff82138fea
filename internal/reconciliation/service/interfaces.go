package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fechamento-diario/internal/domain/closure"
	"github.com/fechamento-diario/internal/domain/divergence"
	"github.com/fechamento-diario/internal/domain/sales"
	"github.com/fechamento-diario/internal/domain/settlement"
)

// ErrEmptySettlementFile indicates an upload from which no valid transaction
// row could be parsed.
var ErrEmptySettlementFile = errors.New("settlement file contains no valid transaction rows")

// TxRunner runs a function inside a database transaction. Satisfied by
// persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// ClosureDetails bundles a closure with its settlement transactions,
// divergences and the day's internal payments for detail views.
type ClosureDetails struct {
	Closure      *closure.DailyClosure             `json:"closure"`
	Transactions []*settlement.ExternalTransaction `json:"transactions"`
	Divergences  []*divergence.Divergence          `json:"divergences"`
	Payments     []*sales.InternalPayment          `json:"payments"`
}

// IngestResult summarizes one settlement ingest.
type IngestResult struct {
	Closure     *closure.DailyClosure    `json:"closure"`
	Divergences []*divergence.Divergence `json:"divergences"`
	TotalRows   int                      `json:"total_rows"`
	SkippedRows int                      `json:"skipped_rows"`
}

// BatchResolutionResult summarizes a batch resolution run.
type BatchResolutionResult struct {
	Resolved int `json:"resolved"`
	NotFound int `json:"not_found"`
	Failed   int `json:"failed"`
}

// ClosureService defines the interface for daily closure operations
type ClosureService interface {
	// GetOrCreateClosure returns the closure for a date, creating a pending one
	// with the day's sales totals when none exists yet
	GetOrCreateClosure(ctx context.Context, date time.Time) (*closure.DailyClosure, error)

	// IngestSettlement parses a settlement upload and reconciles it against the
	// day's internal payments, replacing any previous ingest for the date.
	// Returns ErrEmptySettlementFile when no row of the upload parses and
	// ErrClosureNotFound when the date was never opened
	IngestSettlement(ctx context.Context, date time.Time, fileText string) (*IngestResult, error)

	// GetClosureDetails retrieves a closure with its transactions, divergences
	// and internal payments. Returns ErrClosureNotFound if no closure exists
	// for the date
	GetClosureDetails(ctx context.Context, date time.Time) (*ClosureDetails, error)

	// ListClosures retrieves the closures whose dates fall within [from, to]
	ListClosures(ctx context.Context, from, to time.Time) ([]*closure.DailyClosure, error)

	// ClearClosure deletes a closure's settlement data and divergences and
	// returns it to the pending state with internal totals recomputed from
	// the sales ledger
	ClearClosure(ctx context.Context, date time.Time) error
}

// ResolutionService defines the interface for divergence resolution operations
type ResolutionService interface {
	// ResolveDivergence records a terminal resolution on a single divergence
	ResolveDivergence(ctx context.Context, id uuid.UUID, status divergence.ResolutionStatus, justification string, actor divergence.Actor) (*divergence.Divergence, error)

	// ResolveBatch resolves many divergences concurrently with a shared
	// justification. Unknown IDs are counted, not fatal
	ResolveBatch(ctx context.Context, ids []uuid.UUID, status divergence.ResolutionStatus, justification string, actor divergence.Actor) (*BatchResolutionResult, error)
}
