package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fechamento-diario/internal/domain/audit"
	"github.com/fechamento-diario/internal/domain/closure"
	"github.com/fechamento-diario/internal/domain/divergence"
	"github.com/fechamento-diario/internal/domain/sales"
	"github.com/fechamento-diario/internal/domain/settlement"
	"github.com/fechamento-diario/internal/normalize"
	"github.com/fechamento-diario/internal/reconciliation/matching"
	"github.com/fechamento-diario/internal/reconciliation/parser"
)

// ClosureServiceImpl implements the ClosureService interface
type ClosureServiceImpl struct {
	logger         *slog.Logger
	txRunner       TxRunner
	closureRepo    closure.Repository
	settlementRepo settlement.Repository
	divergenceRepo divergence.Repository
	salesLedger    sales.Ledger
	auditRepo      audit.Repository
	parser         *parser.Parser
	engine         *matching.Engine
	escalator      *Escalator
}

// NewClosureService creates a new closure service
func NewClosureService(
	logger *slog.Logger,
	txRunner TxRunner,
	closureRepo closure.Repository,
	settlementRepo settlement.Repository,
	divergenceRepo divergence.Repository,
	salesLedger sales.Ledger,
	auditRepo audit.Repository,
	settlementParser *parser.Parser,
	engine *matching.Engine,
	escalator *Escalator,
) ClosureService {
	return &ClosureServiceImpl{
		logger:         logger,
		txRunner:       txRunner,
		closureRepo:    closureRepo,
		settlementRepo: settlementRepo,
		divergenceRepo: divergenceRepo,
		salesLedger:    salesLedger,
		auditRepo:      auditRepo,
		parser:         settlementParser,
		engine:         engine,
		escalator:      escalator,
	}
}

// GetOrCreateClosure returns the closure for a date. When none exists it
// creates a pending one seeded with the day's sales totals. A concurrent
// create for the same date is recovered by re-reading the winner's row.
func (s *ClosureServiceImpl) GetOrCreateClosure(ctx context.Context, date time.Time) (*closure.DailyClosure, error) {
	date = closure.Normalize(date)

	existing, err := s.closureRepo.GetByDate(ctx, date)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, closure.ErrClosureNotFound{}) {
		return nil, err
	}

	totals, err := s.salesLedger.GetTotalsByMethod(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sales totals: %w", err)
	}

	c := closure.NewDailyClosure(date, totals)
	if err := s.closureRepo.Create(ctx, c); err != nil {
		if errors.Is(err, closure.ErrClosureAlreadyExists{}) {
			// Lost the race; the winner's row is authoritative
			return s.closureRepo.GetByDate(ctx, date)
		}
		return nil, err
	}

	s.logger.Info("Daily closure created", "date", closure.DateKey(date), "closure_id", c.ID.String())
	s.recordAudit(ctx, audit.NewEvent(closure.DateKey(date), audit.ActionClosureCreated,
		"fechamento criado com status pendente"))

	return c, nil
}

// IngestSettlement parses the upload and reconciles it against the day's
// internal payments inside a single transaction. The closure for the date
// must already exist. Re-ingesting a date replaces the previous settlement
// data and its divergences entirely.
func (s *ClosureServiceImpl) IngestSettlement(ctx context.Context, date time.Time, fileText string) (*IngestResult, error) {
	date = closure.Normalize(date)

	parsed := s.parser.Parse(fileText, date)
	if len(parsed.Transactions) == 0 {
		return nil, fmt.Errorf("%w: %d rows, %d skipped", ErrEmptySettlementFile, parsed.TotalRows, parsed.SkippedRows)
	}

	var (
		reconciled  *closure.DailyClosure
		divergences []*divergence.Divergence
	)

	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		// The row lock serializes concurrent ingests for the same date and
		// surfaces ErrClosureNotFound for dates that were never opened
		locked, err := s.closureRepo.WithTx(tx).LockByDate(ctx, date)
		if err != nil {
			return err
		}

		if err := s.settlementRepo.WithTx(tx).DeleteByClosureID(ctx, locked.ID); err != nil {
			return err
		}
		if err := s.divergenceRepo.WithTx(tx).DeleteByClosureID(ctx, locked.ID); err != nil {
			return err
		}

		for _, t := range parsed.Transactions {
			t.ClosureID = locked.ID
		}
		if err := s.settlementRepo.WithTx(tx).CreateBatch(ctx, parsed.Transactions); err != nil {
			return err
		}

		payments, err := s.salesLedger.GetPaymentsWithReference(ctx, date)
		if err != nil {
			return fmt.Errorf("failed to load internal payments: %w", err)
		}

		result := s.engine.Classify(payments, parsed.Transactions)
		divergences = buildDivergences(locked.ID, result)

		if err := s.divergenceRepo.WithTx(tx).CreateBatch(ctx, divergences); err != nil {
			return err
		}

		acquirerDebit, acquirerCredit := acquirerTotals(parsed.Transactions)
		locked.ApplyReconciliation(acquirerDebit, acquirerCredit,
			len(result.Matched), len(result.Mismatched), len(result.NotRecorded), len(result.Phantom))

		if err := s.closureRepo.WithTx(tx).Update(ctx, locked); err != nil {
			return err
		}

		reconciled = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Settlement ingested",
		"date", closure.DateKey(date),
		"closure_id", reconciled.ID.String(),
		"status", string(reconciled.Status),
		"matched", reconciled.MatchedCount,
		"divergences", len(divergences),
	)

	event := audit.NewEvent(closure.DateKey(date), audit.ActionSettlementIngested,
		fmt.Sprintf("planilha processada: %d linhas, %d ignoradas, %d divergencias",
			parsed.TotalRows, parsed.SkippedRows, len(divergences)))
	event.Metadata = map[string]interface{}{
		"matched_count":      reconciled.MatchedCount,
		"divergent_count":    reconciled.DivergentCount,
		"not_recorded_count": reconciled.NotRecordedCount,
		"phantom_count":      reconciled.PhantomCount,
	}
	s.recordAudit(ctx, event)

	s.escalator.CheckAndNotify(ctx, reconciled, divergences)

	return &IngestResult{
		Closure:     reconciled,
		Divergences: divergences,
		TotalRows:   parsed.TotalRows,
		SkippedRows: parsed.SkippedRows,
	}, nil
}

// GetClosureDetails retrieves a closure with its settlement transactions,
// divergences and the day's internal payments.
func (s *ClosureServiceImpl) GetClosureDetails(ctx context.Context, date time.Time) (*ClosureDetails, error) {
	date = closure.Normalize(date)

	c, err := s.closureRepo.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	transactions, err := s.settlementRepo.GetByClosureID(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	divergences, err := s.divergenceRepo.GetByClosureID(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	payments, err := s.salesLedger.GetPaymentsWithReference(ctx, date)
	if err != nil {
		return nil, err
	}

	return &ClosureDetails{
		Closure:      c,
		Transactions: transactions,
		Divergences:  divergences,
		Payments:     payments,
	}, nil
}

// ListClosures retrieves the closures within [from, to], date ascending.
func (s *ClosureServiceImpl) ListClosures(ctx context.Context, from, to time.Time) ([]*closure.DailyClosure, error) {
	return s.closureRepo.ListByPeriod(ctx, from, to)
}

// ClearClosure deletes the closure's settlement data and divergences and
// returns it to pending. The five internal totals are recomputed from the
// sales ledger rather than left at zero, so a cleared closure is
// indistinguishable from a freshly created one and cannot carry a stale
// totals snapshot into the next ingest.
func (s *ClosureServiceImpl) ClearClosure(ctx context.Context, date time.Time) error {
	date = closure.Normalize(date)

	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		locked, err := s.closureRepo.WithTx(tx).LockByDate(ctx, date)
		if err != nil {
			return err
		}

		if err := s.settlementRepo.WithTx(tx).DeleteByClosureID(ctx, locked.ID); err != nil {
			return err
		}
		if err := s.divergenceRepo.WithTx(tx).DeleteByClosureID(ctx, locked.ID); err != nil {
			return err
		}

		totals, err := s.salesLedger.GetTotalsByMethod(ctx, date)
		if err != nil {
			return fmt.Errorf("failed to compute sales totals: %w", err)
		}

		locked.Reset()
		locked.TotalCash = totals.Cash
		locked.TotalPix = totals.Pix
		locked.TotalDebit = totals.Debit
		locked.TotalCreditSingle = totals.CreditSingle
		locked.TotalCreditInstallment = totals.CreditInstallment

		return s.closureRepo.WithTx(tx).Update(ctx, locked)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Daily closure cleared", "date", closure.DateKey(date))
	s.recordAudit(ctx, audit.NewEvent(closure.DateKey(date), audit.ActionClosureCleared,
		"fechamento limpo: planilha e divergencias removidas"))

	return nil
}

// recordAudit writes an audit event best-effort. A failed write never fails
// the operation that produced it.
func (s *ClosureServiceImpl) recordAudit(ctx context.Context, event *audit.Event) {
	if err := s.auditRepo.Record(ctx, event); err != nil {
		s.logger.Error("Failed to record audit event",
			"closure_date", event.ClosureDate,
			"action", string(event.Action),
			"error", err,
		)
	}
}

// buildDivergences maps the engine's classification buckets to persistent
// divergence rows. An amount failure classifies the row as amount_mismatch
// even when other fields also diverged.
func buildDivergences(closureID uuid.UUID, result matching.Result) []*divergence.Divergence {
	now := time.Now()
	divergences := make([]*divergence.Divergence, 0, len(result.Mismatched)+len(result.NotRecorded)+len(result.Phantom))

	for _, m := range result.Mismatched {
		kind := divergence.KindFieldMismatch
		if m.AmountDiverged {
			kind = divergence.KindAmountMismatch
		}
		expected := m.Internal.Amount
		found := m.External.GrossAmount
		paymentID := m.Internal.ID
		txID := m.External.ID
		divergences = append(divergences, &divergence.Divergence{
			ID:                    uuid.New(),
			ClosureID:             closureID,
			Kind:                  kind,
			ReferenceCode:         m.Internal.ReferenceCode,
			ExpectedAmount:        &expected,
			FoundAmount:           &found,
			Description:           m.Description(),
			InternalPaymentID:     &paymentID,
			ExternalTransactionID: &txID,
			Resolution:            divergence.ResolutionPending,
			CreatedAt:             now,
		})
	}

	for _, t := range result.NotRecorded {
		found := t.GrossAmount
		txID := t.ID
		divergences = append(divergences, &divergence.Divergence{
			ID:                    uuid.New(),
			ClosureID:             closureID,
			Kind:                  divergence.KindNotRecorded,
			ReferenceCode:         t.ReferenceCode,
			FoundAmount:           &found,
			Description:           fmt.Sprintf("Transacao aprovada na planilha sem venda correspondente no sistema (%s)", normalize.FormatCurrencyBRL(t.GrossAmount)),
			ExternalTransactionID: &txID,
			Resolution:            divergence.ResolutionPending,
			CreatedAt:             now,
		})
	}

	for _, p := range result.Phantom {
		expected := p.Amount
		paymentID := p.ID
		divergences = append(divergences, &divergence.Divergence{
			ID:                uuid.New(),
			ClosureID:         closureID,
			Kind:              divergence.KindPhantom,
			ReferenceCode:     p.ReferenceCode,
			ExpectedAmount:    &expected,
			Description:       fmt.Sprintf("Pagamento registrado no sistema sem transacao aprovada na planilha (%s)", normalize.FormatCurrencyBRL(p.Amount)),
			InternalPaymentID: &paymentID,
			Resolution:        divergence.ResolutionPending,
			CreatedAt:         now,
		})
	}

	return divergences
}

// acquirerTotals sums the approved settlement rows by modality.
func acquirerTotals(transactions []*settlement.ExternalTransaction) (debit, credit int64) {
	for _, t := range transactions {
		if !t.IsApproved() {
			continue
		}
		switch normalize.FoldAccents(t.Modality) {
		case "debito":
			debit += t.GrossAmount
		case "credito":
			credit += t.GrossAmount
		}
	}
	return debit, credit
}
