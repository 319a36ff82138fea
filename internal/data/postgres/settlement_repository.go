package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fechamento-diario/internal/domain/settlement"
	"github.com/fechamento-diario/internal/platform/persistence"
)

// SettlementRepository implements the settlement.Repository interface for PostgreSQL
type SettlementRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewSettlementRepository creates a new PostgreSQL settlement repository.
func NewSettlementRepository(logger *slog.Logger, db *persistence.PostgresDB) settlement.Repository {
	return &SettlementRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *SettlementRepository) WithTx(tx pgx.Tx) settlement.Repository {
	return &SettlementRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const settlementColumns = `id, closure_id, occurred_at, status,
		gross_amount, updated_amount, net_amount,
		modality, sale_kind, installments, card_brand,
		mdr_rate, mdr_amount, reference_code,
		authorization_code, terminal_id, card_number, acquirer_tx_id,
		created_at`

// CreateBatch inserts all transactions parsed from one settlement upload.
func (r *SettlementRepository) CreateBatch(ctx context.Context, transactions []*settlement.ExternalTransaction) error {
	if len(transactions) == 0 {
		return nil
	}

	query := `
		INSERT INTO settlement_transactions (` + settlementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	for _, t := range transactions {
		_, err := r.querier.Exec(ctx, query,
			t.ID,
			t.ClosureID,
			t.OccurredAt,
			t.Status,
			t.GrossAmount,
			t.UpdatedAmount,
			t.NetAmount,
			t.Modality,
			t.SaleKind,
			t.Installments,
			t.CardBrand,
			t.MDRRate,
			t.MDRAmount,
			t.ReferenceCode,
			t.Authorization,
			t.TerminalID,
			t.CardNumber,
			t.AcquirerTxID,
			t.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create settlement transaction", "id", t.ID.String(), "error", err)
			return fmt.Errorf("failed to create settlement transaction: %w", err)
		}
	}

	return nil
}

// GetByClosureID retrieves all settlement transactions owned by a closure.
func (r *SettlementRepository) GetByClosureID(ctx context.Context, closureID uuid.UUID) ([]*settlement.ExternalTransaction, error) {
	query := `
		SELECT ` + settlementColumns + `
		FROM settlement_transactions
		WHERE closure_id = $1
		ORDER BY occurred_at ASC, id ASC
	`

	rows, err := r.querier.Query(ctx, query, closureID)
	if err != nil {
		r.logger.Error("Failed to list settlement transactions", "closure_id", closureID.String(), "error", err)
		return nil, fmt.Errorf("failed to list settlement transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*settlement.ExternalTransaction
	for rows.Next() {
		var t settlement.ExternalTransaction
		err := rows.Scan(
			&t.ID,
			&t.ClosureID,
			&t.OccurredAt,
			&t.Status,
			&t.GrossAmount,
			&t.UpdatedAmount,
			&t.NetAmount,
			&t.Modality,
			&t.SaleKind,
			&t.Installments,
			&t.CardBrand,
			&t.MDRRate,
			&t.MDRAmount,
			&t.ReferenceCode,
			&t.Authorization,
			&t.TerminalID,
			&t.CardNumber,
			&t.AcquirerTxID,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement transaction: %w", err)
		}
		transactions = append(transactions, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settlement transactions: %w", err)
	}

	return transactions, nil
}

// DeleteByClosureID removes all settlement transactions owned by a closure.
func (r *SettlementRepository) DeleteByClosureID(ctx context.Context, closureID uuid.UUID) error {
	query := `DELETE FROM settlement_transactions WHERE closure_id = $1`

	_, err := r.querier.Exec(ctx, query, closureID)
	if err != nil {
		r.logger.Error("Failed to delete settlement transactions", "closure_id", closureID.String(), "error", err)
		return fmt.Errorf("failed to delete settlement transactions: %w", err)
	}

	return nil
}
