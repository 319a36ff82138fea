// Package closure owns the per-date reconciliation aggregate: one DailyClosure
// per calendar date, its per-method totals, classification counters and status
// state machine.
package closure

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fechamento-diario/internal/domain/sales"
)

// LocationBRT is the fixed UTC-3 zone every calendar date in the system is
// interpreted in. The studio operates in a single zone; DST is not observed.
var LocationBRT = time.FixedZone("-03", -3*60*60)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ErrInvalidDate indicates a date string that does not parse as YYYY-MM-DD.
var ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")

// Status defines the closure reconciliation states
type Status string

const (
	StatusPending       Status = "pending"
	StatusReconciled    Status = "reconciled"
	StatusHasDivergence Status = "has_divergence"
)

// DailyClosure is the per-date reconciliation record. All monetary fields are
// integer cents; counters mirror the cardinalities of the four classification
// buckets produced by the last ingest.
type DailyClosure struct {
	ID   uuid.UUID `json:"id"`
	Date time.Time `json:"date"` // Midnight in LocationBRT, unique per closure

	Status Status `json:"status"`

	// Internal per-method totals, computed from the sales ledger at creation.
	TotalCash              int64 `json:"total_cash"`
	TotalPix               int64 `json:"total_pix"`
	TotalDebit             int64 `json:"total_debit"`
	TotalCreditSingle      int64 `json:"total_credit_single"`
	TotalCreditInstallment int64 `json:"total_credit_installment"`

	// Acquirer-side totals, computed from approved settlement rows at ingest.
	AcquirerTotalDebit  int64 `json:"acquirer_total_debit"`
	AcquirerTotalCredit int64 `json:"acquirer_total_credit"`

	MatchedCount     int `json:"matched_count"`
	DivergentCount   int `json:"divergent_count"`
	NotRecordedCount int `json:"not_recorded_count"`
	PhantomCount     int `json:"phantom_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDailyClosure creates a pending closure for the given date with the day's
// internal sales totals and zeroed counters.
func NewDailyClosure(date time.Time, totals sales.Totals) *DailyClosure {
	now := time.Now()
	return &DailyClosure{
		ID:                     uuid.New(),
		Date:                   Normalize(date),
		Status:                 StatusPending,
		TotalCash:              totals.Cash,
		TotalPix:               totals.Pix,
		TotalDebit:             totals.Debit,
		TotalCreditSingle:      totals.CreditSingle,
		TotalCreditInstallment: totals.CreditInstallment,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// ApplyReconciliation records the outcome of a settlement ingest: acquirer
// totals, bucket counters and the derived status. A closure with zero
// divergences is reconciled; any divergence moves it to has_divergence.
func (c *DailyClosure) ApplyReconciliation(acquirerDebit, acquirerCredit int64, matched, divergent, notRecorded, phantom int) {
	c.AcquirerTotalDebit = acquirerDebit
	c.AcquirerTotalCredit = acquirerCredit
	c.MatchedCount = matched
	c.DivergentCount = divergent
	c.NotRecordedCount = notRecorded
	c.PhantomCount = phantom

	if divergent+notRecorded+phantom == 0 {
		c.Status = StatusReconciled
	} else {
		c.Status = StatusHasDivergence
	}
	c.UpdatedAt = time.Now()
}

// Reset returns the closure to its initial state: all totals and counters
// zeroed and status pending. Child transactions and divergences are deleted
// separately by the caller.
func (c *DailyClosure) Reset() {
	c.Status = StatusPending
	c.TotalCash = 0
	c.TotalPix = 0
	c.TotalDebit = 0
	c.TotalCreditSingle = 0
	c.TotalCreditInstallment = 0
	c.AcquirerTotalDebit = 0
	c.AcquirerTotalCredit = 0
	c.MatchedCount = 0
	c.DivergentCount = 0
	c.NotRecordedCount = 0
	c.PhantomCount = 0
	c.UpdatedAt = time.Now()
}

// TotalDivergences is the sum of the three divergence buckets.
func (c *DailyClosure) TotalDivergences() int {
	return c.DivergentCount + c.NotRecordedCount + c.PhantomCount
}

// ParseDate parses a YYYY-MM-DD wire date into midnight UTC-3.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, LocationBRT)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// Normalize truncates a time to midnight in the fixed UTC-3 zone, the
// canonical representation of a calendar date.
func Normalize(t time.Time) time.Time {
	local := t.In(LocationBRT)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, LocationBRT)
}

// DateKey renders a date in the wire format, used as the audit-trail key.
func DateKey(t time.Time) string {
	return t.In(LocationBRT).Format(DateLayout)
}
