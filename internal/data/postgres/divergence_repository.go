package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fechamento-diario/internal/domain/divergence"
	"github.com/fechamento-diario/internal/platform/persistence"
)

// DivergenceRepository implements the divergence.Repository interface for PostgreSQL
type DivergenceRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewDivergenceRepository creates a new PostgreSQL divergence repository.
func NewDivergenceRepository(logger *slog.Logger, db *persistence.PostgresDB) divergence.Repository {
	return &DivergenceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *DivergenceRepository) WithTx(tx pgx.Tx) divergence.Repository {
	return &DivergenceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const divergenceColumns = `id, closure_id, kind, reference_code,
		expected_amount, found_amount, description,
		internal_payment_id, external_transaction_id,
		resolution, justification, resolved_by_id, resolved_by, resolved_at,
		created_at`

// CreateBatch inserts all divergences produced by one ingest.
func (r *DivergenceRepository) CreateBatch(ctx context.Context, divergences []*divergence.Divergence) error {
	if len(divergences) == 0 {
		return nil
	}

	query := `
		INSERT INTO divergences (` + divergenceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	for _, d := range divergences {
		_, err := r.querier.Exec(ctx, query,
			d.ID,
			d.ClosureID,
			d.Kind,
			d.ReferenceCode,
			d.ExpectedAmount,
			d.FoundAmount,
			d.Description,
			d.InternalPaymentID,
			d.ExternalTransactionID,
			d.Resolution,
			d.Justification,
			d.ResolvedByID,
			d.ResolvedBy,
			d.ResolvedAt,
			d.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create divergence", "id", d.ID.String(), "error", err)
			return fmt.Errorf("failed to create divergence: %w", err)
		}
	}

	return nil
}

// GetByID retrieves a divergence by its ID
func (r *DivergenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*divergence.Divergence, error) {
	query := `SELECT ` + divergenceColumns + ` FROM divergences WHERE id = $1`

	d, err := r.scanDivergence(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, divergence.ErrDivergenceNotFound{ID: id}
		}
		r.logger.Error("Failed to get divergence", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get divergence: %w", err)
	}

	return d, nil
}

// GetByClosureID retrieves all divergences owned by a closure, oldest first.
func (r *DivergenceRepository) GetByClosureID(ctx context.Context, closureID uuid.UUID) ([]*divergence.Divergence, error) {
	query := `
		SELECT ` + divergenceColumns + `
		FROM divergences
		WHERE closure_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.querier.Query(ctx, query, closureID)
	if err != nil {
		r.logger.Error("Failed to list divergences", "closure_id", closureID.String(), "error", err)
		return nil, fmt.Errorf("failed to list divergences: %w", err)
	}
	defer rows.Close()

	var divergences []*divergence.Divergence
	for rows.Next() {
		d, err := r.scanDivergence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan divergence: %w", err)
		}
		divergences = append(divergences, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating divergences: %w", err)
	}

	return divergences, nil
}

// UpdateResolution persists the resolution fields of a divergence.
func (r *DivergenceRepository) UpdateResolution(ctx context.Context, d *divergence.Divergence) error {
	query := `
		UPDATE divergences
		SET resolution = $2, justification = $3,
			resolved_by_id = $4, resolved_by = $5, resolved_at = $6
		WHERE id = $1
	`

	tag, err := r.querier.Exec(ctx, query,
		d.ID,
		d.Resolution,
		d.Justification,
		d.ResolvedByID,
		d.ResolvedBy,
		d.ResolvedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update divergence resolution", "id", d.ID.String(), "error", err)
		return fmt.Errorf("failed to update divergence resolution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return divergence.ErrDivergenceNotFound{ID: d.ID}
	}

	return nil
}

// DeleteByClosureID removes all divergences owned by a closure, used when a
// closure is cleared or its settlement re-ingested.
func (r *DivergenceRepository) DeleteByClosureID(ctx context.Context, closureID uuid.UUID) error {
	query := `DELETE FROM divergences WHERE closure_id = $1`

	_, err := r.querier.Exec(ctx, query, closureID)
	if err != nil {
		r.logger.Error("Failed to delete divergences", "closure_id", closureID.String(), "error", err)
		return fmt.Errorf("failed to delete divergences: %w", err)
	}

	return nil
}

func (r *DivergenceRepository) scanDivergence(row pgx.Row) (*divergence.Divergence, error) {
	var d divergence.Divergence
	err := row.Scan(
		&d.ID,
		&d.ClosureID,
		&d.Kind,
		&d.ReferenceCode,
		&d.ExpectedAmount,
		&d.FoundAmount,
		&d.Description,
		&d.InternalPaymentID,
		&d.ExternalTransactionID,
		&d.Resolution,
		&d.Justification,
		&d.ResolvedByID,
		&d.ResolvedBy,
		&d.ResolvedAt,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
