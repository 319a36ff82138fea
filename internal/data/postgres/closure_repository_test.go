package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fechamento-diario/internal/domain/closure"
	"github.com/fechamento-diario/internal/domain/sales"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var closureColumnNames = []string{
	"id", "closure_date", "status",
	"total_cash", "total_pix", "total_debit", "total_credit_single", "total_credit_installment",
	"acquirer_total_debit", "acquirer_total_credit",
	"matched_count", "divergent_count", "not_recorded_count", "phantom_count",
	"created_at", "updated_at",
}

func closureRow(c *closure.DailyClosure) *pgxmock.Rows {
	return pgxmock.NewRows(closureColumnNames).AddRow(
		c.ID, c.Date, c.Status,
		c.TotalCash, c.TotalPix, c.TotalDebit, c.TotalCreditSingle, c.TotalCreditInstallment,
		c.AcquirerTotalDebit, c.AcquirerTotalCredit,
		c.MatchedCount, c.DivergentCount, c.NotRecordedCount, c.PhantomCount,
		c.CreatedAt, c.UpdatedAt,
	)
}

func testClosure(t *testing.T, dateStr string) *closure.DailyClosure {
	t.Helper()
	date, err := closure.ParseDate(dateStr)
	require.NoError(t, err)
	return closure.NewDailyClosure(date, sales.Totals{
		Cash:              50000,
		Pix:               120000,
		Debit:             80000,
		CreditSingle:      200000,
		CreditInstallment: 350000,
	})
}

func TestClosureRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ClosureRepository{querier: mock, logger: logger}
	c := testClosure(t, "2026-03-15")

	query := `INSERT INTO daily_closures`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(c.ID, c.Date, c.Status,
				c.TotalCash, c.TotalPix, c.TotalDebit, c.TotalCreditSingle, c.TotalCreditInstallment,
				c.AcquirerTotalDebit, c.AcquirerTotalCredit,
				c.MatchedCount, c.DivergentCount, c.NotRecordedCount, c.PhantomCount,
				c.CreatedAt, c.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, c)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate date maps to already exists", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "daily_closures_closure_date_key"}
		mock.ExpectExec(query).
			WithArgs(c.ID, c.Date, c.Status,
				c.TotalCash, c.TotalPix, c.TotalDebit, c.TotalCreditSingle, c.TotalCreditInstallment,
				c.AcquirerTotalDebit, c.AcquirerTotalCredit,
				c.MatchedCount, c.DivergentCount, c.NotRecordedCount, c.PhantomCount,
				c.CreatedAt, c.UpdatedAt).
			WillReturnError(pgErr)

		err := repo.Create(ctx, c)
		assert.ErrorIs(t, err, closure.ErrClosureAlreadyExists{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(c.ID, c.Date, c.Status,
				c.TotalCash, c.TotalPix, c.TotalDebit, c.TotalCreditSingle, c.TotalCreditInstallment,
				c.AcquirerTotalDebit, c.AcquirerTotalCredit,
				c.MatchedCount, c.DivergentCount, c.NotRecordedCount, c.PhantomCount,
				c.CreatedAt, c.UpdatedAt).
			WillReturnError(dbErr)

		err := repo.Create(ctx, c)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create daily closure")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClosureRepository_GetByDate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ClosureRepository{querier: mock, logger: logger}
	c := testClosure(t, "2026-03-15")

	query := `SELECT (.+) FROM daily_closures WHERE closure_date = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(c.Date).WillReturnRows(closureRow(c))

		got, err := repo.GetByDate(ctx, c.Date)
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)
		assert.Equal(t, closure.StatusPending, got.Status)
		assert.True(t, got.Date.Equal(c.Date))
		assert.Equal(t, int64(350000), got.TotalCreditInstallment)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(c.Date).WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByDate(ctx, c.Date)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, closure.ErrClosureNotFound{})
		var notFound closure.ErrClosureNotFound
		assert.ErrorAs(t, err, &notFound)
		assert.True(t, notFound.Date.Equal(c.Date))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClosureRepository_LockByDate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ClosureRepository{querier: mock, logger: logger}
	c := testClosure(t, "2026-03-15")

	query := `SELECT (.+) FROM daily_closures WHERE closure_date = \$1 FOR UPDATE`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(c.Date).WillReturnRows(closureRow(c))

		got, err := repo.LockByDate(ctx, c.Date)
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(c.Date).WillReturnError(pgx.ErrNoRows)

		got, err := repo.LockByDate(ctx, c.Date)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, closure.ErrClosureNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClosureRepository_ListByPeriod(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ClosureRepository{querier: mock, logger: logger}
	first := testClosure(t, "2026-03-14")
	second := testClosure(t, "2026-03-15")
	from, _ := closure.ParseDate("2026-03-01")
	to, _ := closure.ParseDate("2026-03-31")

	query := `SELECT (.+) FROM daily_closures\s+WHERE closure_date >= \$1 AND closure_date <= \$2`

	t.Run("success", func(t *testing.T) {
		rows := closureRow(first).AddRow(
			second.ID, second.Date, second.Status,
			second.TotalCash, second.TotalPix, second.TotalDebit, second.TotalCreditSingle, second.TotalCreditInstallment,
			second.AcquirerTotalDebit, second.AcquirerTotalCredit,
			second.MatchedCount, second.DivergentCount, second.NotRecordedCount, second.PhantomCount,
			second.CreatedAt, second.UpdatedAt,
		)
		mock.ExpectQuery(query).WithArgs(from, to).WillReturnRows(rows)

		got, err := repo.ListByPeriod(ctx, from, to)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, first.ID, got[0].ID)
		assert.Equal(t, second.ID, got[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty period", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(from, to).WillReturnRows(pgxmock.NewRows(closureColumnNames))

		got, err := repo.ListByPeriod(ctx, from, to)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClosureRepository_Update(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ClosureRepository{querier: mock, logger: logger}
	c := testClosure(t, "2026-03-15")
	c.ApplyReconciliation(80000, 550000, 10, 1, 0, 0)

	query := `UPDATE daily_closures`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(c.ID, c.Status,
				c.TotalCash, c.TotalPix, c.TotalDebit, c.TotalCreditSingle, c.TotalCreditInstallment,
				c.AcquirerTotalDebit, c.AcquirerTotalCredit,
				c.MatchedCount, c.DivergentCount, c.NotRecordedCount, c.PhantomCount,
				c.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, c)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(c.ID, c.Status,
				c.TotalCash, c.TotalPix, c.TotalDebit, c.TotalCreditSingle, c.TotalCreditInstallment,
				c.AcquirerTotalDebit, c.AcquirerTotalCredit,
				c.MatchedCount, c.DivergentCount, c.NotRecordedCount, c.PhantomCount,
				c.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, c)
		assert.ErrorIs(t, err, closure.ErrClosureNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClosureRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ClosureRepository{querier: mock, logger: logger}
	c := testClosure(t, "2026-03-15")

	query := `SELECT (.+) FROM daily_closures WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(c.ID).WillReturnRows(closureRow(c))

		got, err := repo.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		unknown := uuid.New()
		mock.ExpectQuery(query).WithArgs(unknown).WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByID(ctx, unknown)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, closure.ErrClosureNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
