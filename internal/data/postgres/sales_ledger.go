package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fechamento-diario/internal/domain/closure"
	"github.com/fechamento-diario/internal/domain/sales"
	"github.com/fechamento-diario/internal/platform/persistence"
)

// SalesLedger is the read-only adapter over the sales subsystem's tables.
// Reconciliation never writes through it.
type SalesLedger struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSalesLedger creates a read-only sales ledger backed by PostgreSQL.
func NewSalesLedger(logger *slog.Logger, db *persistence.PostgresDB) sales.Ledger {
	return &SalesLedger{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetPaymentsWithReference returns the day's payment legs that carry an
// acquirer reference code, the population the matching engine works on.
func (l *SalesLedger) GetPaymentsWithReference(ctx context.Context, date time.Time) ([]*sales.InternalPayment, error) {
	query := `
		SELECT sp.id, sp.sale_id, s.sale_date, sp.amount, sp.modality,
			sp.installments, sp.card_brand, sp.reference_code
		FROM sale_payments sp
		JOIN sales s ON s.id = sp.sale_id
		WHERE s.sale_date = $1 AND sp.reference_code <> ''
		ORDER BY sp.created_at ASC, sp.id ASC
	`

	rows, err := l.querier.Query(ctx, query, closure.Normalize(date))
	if err != nil {
		l.logger.Error("Failed to list sale payments", "date", closure.DateKey(date), "error", err)
		return nil, fmt.Errorf("failed to list sale payments: %w", err)
	}
	defer rows.Close()

	var payments []*sales.InternalPayment
	for rows.Next() {
		var p sales.InternalPayment
		err := rows.Scan(
			&p.ID,
			&p.SaleID,
			&p.SaleDate,
			&p.Amount,
			&p.Modality,
			&p.Installments,
			&p.CardBrand,
			&p.ReferenceCode,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale payment: %w", err)
		}
		payments = append(payments, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale payments: %w", err)
	}

	return payments, nil
}

// GetTotalsByMethod sums the day's payment legs by method. Credit legs split
// on installment count: one installment is a single payment, more is
// installment credit.
func (l *SalesLedger) GetTotalsByMethod(ctx context.Context, date time.Time) (sales.Totals, error) {
	query := `
		SELECT
			COALESCE(SUM(sp.amount) FILTER (WHERE sp.modality = 'dinheiro'), 0),
			COALESCE(SUM(sp.amount) FILTER (WHERE sp.modality = 'pix'), 0),
			COALESCE(SUM(sp.amount) FILTER (WHERE sp.modality = 'debito'), 0),
			COALESCE(SUM(sp.amount) FILTER (WHERE sp.modality = 'credito' AND sp.installments <= 1), 0),
			COALESCE(SUM(sp.amount) FILTER (WHERE sp.modality = 'credito' AND sp.installments > 1), 0)
		FROM sale_payments sp
		JOIN sales s ON s.id = sp.sale_id
		WHERE s.sale_date = $1
	`

	var totals sales.Totals
	err := l.querier.QueryRow(ctx, query, closure.Normalize(date)).Scan(
		&totals.Cash,
		&totals.Pix,
		&totals.Debit,
		&totals.CreditSingle,
		&totals.CreditInstallment,
	)
	if err != nil {
		l.logger.Error("Failed to sum sale payments", "date", closure.DateKey(date), "error", err)
		return sales.Totals{}, fmt.Errorf("failed to sum sale payments: %w", err)
	}

	return totals, nil
}
