// Package postgres provides PostgreSQL implementations of the domain
// repositories. All monetary columns are BIGINT cents; dates are DATE columns
// interpreted in the studio's fixed UTC-3 zone.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fechamento-diario/internal/domain/closure"
	"github.com/fechamento-diario/internal/platform/persistence"
)

const uniqueViolationCode = "23505"

// ClosureRepository implements the closure.Repository interface for PostgreSQL
type ClosureRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewClosureRepository creates a new PostgreSQL closure repository.
func NewClosureRepository(logger *slog.Logger, db *persistence.PostgresDB) closure.Repository {
	return &ClosureRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so closure updates commit
// atomically with their settlement and divergence children.
func (r *ClosureRepository) WithTx(tx pgx.Tx) closure.Repository {
	return &ClosureRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const closureColumns = `id, closure_date, status,
		total_cash, total_pix, total_debit, total_credit_single, total_credit_installment,
		acquirer_total_debit, acquirer_total_credit,
		matched_count, divergent_count, not_recorded_count, phantom_count,
		created_at, updated_at`

// Create stores a new daily closure. A concurrent create for the same date
// loses the race on the date uniqueness constraint and gets
// ErrClosureAlreadyExists, which callers recover by re-reading.
func (r *ClosureRepository) Create(ctx context.Context, c *closure.DailyClosure) error {
	query := `
		INSERT INTO daily_closures (` + closureColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.querier.Exec(ctx, query,
		c.ID,
		c.Date,
		c.Status,
		c.TotalCash,
		c.TotalPix,
		c.TotalDebit,
		c.TotalCreditSingle,
		c.TotalCreditInstallment,
		c.AcquirerTotalDebit,
		c.AcquirerTotalCredit,
		c.MatchedCount,
		c.DivergentCount,
		c.NotRecordedCount,
		c.PhantomCount,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return closure.ErrClosureAlreadyExists{Date: c.Date}
		}
		r.logger.Error("Failed to create daily closure", "date", closure.DateKey(c.Date), "error", err)
		return fmt.Errorf("failed to create daily closure: %w", err)
	}

	return nil
}

// GetByID retrieves a closure by its ID
func (r *ClosureRepository) GetByID(ctx context.Context, id uuid.UUID) (*closure.DailyClosure, error) {
	query := `SELECT ` + closureColumns + ` FROM daily_closures WHERE id = $1`

	c, err := r.scanClosure(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, closure.ErrClosureNotFound{}
		}
		r.logger.Error("Failed to get daily closure", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get daily closure: %w", err)
	}

	return c, nil
}

// GetByDate retrieves the closure for a calendar date
func (r *ClosureRepository) GetByDate(ctx context.Context, date time.Time) (*closure.DailyClosure, error) {
	query := `SELECT ` + closureColumns + ` FROM daily_closures WHERE closure_date = $1`

	c, err := r.scanClosure(r.querier.QueryRow(ctx, query, closure.Normalize(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, closure.ErrClosureNotFound{Date: date}
		}
		r.logger.Error("Failed to get daily closure by date", "date", closure.DateKey(date), "error", err)
		return nil, fmt.Errorf("failed to get daily closure by date: %w", err)
	}

	return c, nil
}

// ListByPeriod retrieves closures whose dates fall within [from, to], ordered
// by date ascending.
func (r *ClosureRepository) ListByPeriod(ctx context.Context, from, to time.Time) ([]*closure.DailyClosure, error) {
	query := `
		SELECT ` + closureColumns + `
		FROM daily_closures
		WHERE closure_date >= $1 AND closure_date <= $2
		ORDER BY closure_date ASC
	`

	rows, err := r.querier.Query(ctx, query, closure.Normalize(from), closure.Normalize(to))
	if err != nil {
		r.logger.Error("Failed to list daily closures", "error", err)
		return nil, fmt.Errorf("failed to list daily closures: %w", err)
	}
	defer rows.Close()

	var closures []*closure.DailyClosure
	for rows.Next() {
		c, err := r.scanClosure(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily closure: %w", err)
		}
		closures = append(closures, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily closures: %w", err)
	}

	return closures, nil
}

// Update persists the mutable closure fields: status, totals and counters.
func (r *ClosureRepository) Update(ctx context.Context, c *closure.DailyClosure) error {
	query := `
		UPDATE daily_closures
		SET status = $2,
			total_cash = $3, total_pix = $4, total_debit = $5,
			total_credit_single = $6, total_credit_installment = $7,
			acquirer_total_debit = $8, acquirer_total_credit = $9,
			matched_count = $10, divergent_count = $11,
			not_recorded_count = $12, phantom_count = $13,
			updated_at = $14
		WHERE id = $1
	`

	tag, err := r.querier.Exec(ctx, query,
		c.ID,
		c.Status,
		c.TotalCash,
		c.TotalPix,
		c.TotalDebit,
		c.TotalCreditSingle,
		c.TotalCreditInstallment,
		c.AcquirerTotalDebit,
		c.AcquirerTotalCredit,
		c.MatchedCount,
		c.DivergentCount,
		c.NotRecordedCount,
		c.PhantomCount,
		c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update daily closure", "id", c.ID.String(), "error", err)
		return fmt.Errorf("failed to update daily closure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return closure.ErrClosureNotFound{Date: c.Date}
	}

	return nil
}

// LockByDate reads the closure row FOR UPDATE, serializing concurrent ingests
// for the same date. Only meaningful inside a transaction.
func (r *ClosureRepository) LockByDate(ctx context.Context, date time.Time) (*closure.DailyClosure, error) {
	query := `SELECT ` + closureColumns + ` FROM daily_closures WHERE closure_date = $1 FOR UPDATE`

	c, err := r.scanClosure(r.querier.QueryRow(ctx, query, closure.Normalize(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, closure.ErrClosureNotFound{Date: date}
		}
		r.logger.Error("Failed to lock daily closure", "date", closure.DateKey(date), "error", err)
		return nil, fmt.Errorf("failed to lock daily closure: %w", err)
	}

	return c, nil
}

func (r *ClosureRepository) scanClosure(row pgx.Row) (*closure.DailyClosure, error) {
	var c closure.DailyClosure
	err := row.Scan(
		&c.ID,
		&c.Date,
		&c.Status,
		&c.TotalCash,
		&c.TotalPix,
		&c.TotalDebit,
		&c.TotalCreditSingle,
		&c.TotalCreditInstallment,
		&c.AcquirerTotalDebit,
		&c.AcquirerTotalCredit,
		&c.MatchedCount,
		&c.DivergentCount,
		&c.NotRecordedCount,
		&c.PhantomCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Date = closure.Normalize(c.Date)
	return &c, nil
}
