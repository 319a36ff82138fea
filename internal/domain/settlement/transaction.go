// Package settlement models the acquirer settlement export: one
// ExternalTransaction per parsed row, immutable once created and owned by the
// daily closure it was uploaded into.
package settlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/fechamento-diario/internal/normalize"
)

// StatusApproved is the folded approval status that makes a transaction
// visible to matching. Every other status is ignored by the engine.
const StatusApproved = "aprovada"

// ExternalTransaction is one row of the acquirer export after parsing.
// Amounts are integer cents.
type ExternalTransaction struct {
	ID             uuid.UUID `json:"id"`
	ClosureID      uuid.UUID `json:"closure_id"`
	OccurredAt     time.Time `json:"occurred_at"`    // Sale date + time, fixed UTC-3
	Status         string    `json:"status"`         // Raw approval status from the export
	GrossAmount    int64     `json:"gross_amount"`   // Original amount, the one matching compares
	UpdatedAmount  int64     `json:"updated_amount"` // Post-adjustment amount reported by the acquirer
	NetAmount      int64     `json:"net_amount"`
	Modality       string    `json:"modality"` // debit/credit, lower-cased by the parser
	SaleKind       string    `json:"sale_kind"`
	Installments   int       `json:"installments"`
	CardBrand      string    `json:"card_brand"`
	MDRRate        float64   `json:"mdr_rate"`
	MDRAmount      int64     `json:"mdr_amount"`
	ReferenceCode  string    `json:"reference_code"` // CV/NSU, the matching key
	Authorization  string    `json:"authorization,omitempty"`
	TerminalID     string    `json:"terminal_id,omitempty"`
	CardNumber     string    `json:"card_number,omitempty"`
	AcquirerTxID   string    `json:"acquirer_tx_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsApproved reports whether the transaction participates in matching.
// The export writes the status with inconsistent casing and accents.
func (t *ExternalTransaction) IsApproved() bool {
	return normalize.FoldAccents(t.Status) == StatusApproved
}

// SaleDateBR returns the transaction date formatted DD/MM/YYYY, the form used
// for field comparison and divergence descriptions.
func (t *ExternalTransaction) SaleDateBR() string {
	return normalize.FormatDateBR(t.OccurredAt)
}
