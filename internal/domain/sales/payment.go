// Package sales exposes the read-only view this service has over the sales
// subsystem: payment legs carrying an acquirer reference code and per-method
// daily totals. The service never writes to these records.
package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InternalPayment is one payment leg of an internal sale. ReferenceCode shares
// the CV/NSU key space with the acquirer settlement export.
type InternalPayment struct {
	ID            uuid.UUID `json:"id"`
	SaleID        uuid.UUID `json:"sale_id"`
	SaleDate      time.Time `json:"sale_date"`
	Amount        int64     `json:"amount"` // Stored in cents/minor units
	Modality      string    `json:"modality"`
	Installments  int       `json:"installments"`
	CardBrand     string    `json:"card_brand"`
	ReferenceCode string    `json:"reference_code"`
}

// Totals aggregates a day's sales by payment method, in cents.
type Totals struct {
	Cash              int64 `json:"cash"`
	Pix               int64 `json:"pix"`
	Debit             int64 `json:"debit"`
	CreditSingle      int64 `json:"credit_single"`
	CreditInstallment int64 `json:"credit_installment"`
}

// Ledger is the sales-subsystem collaborator, keyed by calendar date at day
// granularity (fixed UTC-3).
type Ledger interface {
	// GetPaymentsWithReference returns the day's payment legs that carry a
	// non-empty acquirer reference code.
	GetPaymentsWithReference(ctx context.Context, date time.Time) ([]*InternalPayment, error)

	// GetTotalsByMethod sums the day's payment legs by method.
	GetTotalsByMethod(ctx context.Context, date time.Time) (Totals, error)
}
