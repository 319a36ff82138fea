package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/fechamento-diario/internal/domain/audit"
	"github.com/fechamento-diario/internal/domain/closure"
	"github.com/fechamento-diario/internal/domain/divergence"
	"github.com/fechamento-diario/internal/domain/sales"
	"github.com/fechamento-diario/internal/domain/settlement"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// MockTxRunner runs the transactional function inline with a nil tx.
type MockTxRunner struct {
	mock.Mock
}

func (m *MockTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(nil)
}

type MockClosureRepository struct {
	mock.Mock
}

func (m *MockClosureRepository) Create(ctx context.Context, c *closure.DailyClosure) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockClosureRepository) GetByID(ctx context.Context, id uuid.UUID) (*closure.DailyClosure, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*closure.DailyClosure), args.Error(1)
}

func (m *MockClosureRepository) GetByDate(ctx context.Context, date time.Time) (*closure.DailyClosure, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*closure.DailyClosure), args.Error(1)
}

func (m *MockClosureRepository) ListByPeriod(ctx context.Context, from, to time.Time) ([]*closure.DailyClosure, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*closure.DailyClosure), args.Error(1)
}

func (m *MockClosureRepository) Update(ctx context.Context, c *closure.DailyClosure) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockClosureRepository) LockByDate(ctx context.Context, date time.Time) (*closure.DailyClosure, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*closure.DailyClosure), args.Error(1)
}

func (m *MockClosureRepository) WithTx(tx pgx.Tx) closure.Repository {
	m.Called(tx)
	return m
}

type MockSettlementRepository struct {
	mock.Mock
}

func (m *MockSettlementRepository) CreateBatch(ctx context.Context, transactions []*settlement.ExternalTransaction) error {
	args := m.Called(ctx, transactions)
	return args.Error(0)
}

func (m *MockSettlementRepository) GetByClosureID(ctx context.Context, closureID uuid.UUID) ([]*settlement.ExternalTransaction, error) {
	args := m.Called(ctx, closureID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*settlement.ExternalTransaction), args.Error(1)
}

func (m *MockSettlementRepository) DeleteByClosureID(ctx context.Context, closureID uuid.UUID) error {
	args := m.Called(ctx, closureID)
	return args.Error(0)
}

func (m *MockSettlementRepository) WithTx(tx pgx.Tx) settlement.Repository {
	m.Called(tx)
	return m
}

type MockDivergenceRepository struct {
	mock.Mock
}

func (m *MockDivergenceRepository) CreateBatch(ctx context.Context, divergences []*divergence.Divergence) error {
	args := m.Called(ctx, divergences)
	return args.Error(0)
}

func (m *MockDivergenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*divergence.Divergence, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*divergence.Divergence), args.Error(1)
}

func (m *MockDivergenceRepository) GetByClosureID(ctx context.Context, closureID uuid.UUID) ([]*divergence.Divergence, error) {
	args := m.Called(ctx, closureID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*divergence.Divergence), args.Error(1)
}

func (m *MockDivergenceRepository) UpdateResolution(ctx context.Context, d *divergence.Divergence) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDivergenceRepository) DeleteByClosureID(ctx context.Context, closureID uuid.UUID) error {
	args := m.Called(ctx, closureID)
	return args.Error(0)
}

func (m *MockDivergenceRepository) WithTx(tx pgx.Tx) divergence.Repository {
	m.Called(tx)
	return m
}

type MockSalesLedger struct {
	mock.Mock
}

func (m *MockSalesLedger) GetPaymentsWithReference(ctx context.Context, date time.Time) ([]*sales.InternalPayment, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*sales.InternalPayment), args.Error(1)
}

func (m *MockSalesLedger) GetTotalsByMethod(ctx context.Context, date time.Time) (sales.Totals, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(sales.Totals), args.Error(1)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Record(ctx context.Context, event *audit.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByClosureDate(ctx context.Context, closureDate string, limit, offset int) ([]*audit.Event, error) {
	args := m.Called(ctx, closureDate, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Event), args.Error(1)
}

type MockAlertNotifier struct {
	mock.Mock
}

func (m *MockAlertNotifier) Notify(ctx context.Context, title, content string) error {
	args := m.Called(ctx, title, content)
	return args.Error(0)
}

func (m *MockAlertNotifier) Close() error {
	args := m.Called()
	return args.Error(0)
}

var (
	_ closure.Repository    = (*MockClosureRepository)(nil)
	_ settlement.Repository = (*MockSettlementRepository)(nil)
	_ divergence.Repository = (*MockDivergenceRepository)(nil)
	_ sales.Ledger          = (*MockSalesLedger)(nil)
	_ audit.Repository      = (*MockAuditRepository)(nil)
	_ TxRunner              = (*MockTxRunner)(nil)
)
