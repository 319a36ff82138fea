// Package divergence models a single reconciliation discrepancy and its
// resolution workflow: pending until an operator approves, corrects or ignores
// it with a justification.
package divergence

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MinJustificationLength is the minimum number of characters a resolution
// justification must carry.
const MinJustificationLength = 10

// Common errors
var (
	ErrJustificationTooShort   = errors.New("justification must have at least 10 characters")
	ErrInvalidResolutionStatus = errors.New("resolution status must be approved, corrected or ignored")
	ErrEmptyDivergenceList     = errors.New("divergence id list cannot be empty")
)

// Kind classifies what the matching engine found
type Kind string

const (
	KindAmountMismatch Kind = "amount_mismatch" // Same reference, amounts differ beyond tolerance
	KindFieldMismatch  Kind = "field_mismatch"  // Same reference, non-amount fields differ
	KindNotRecorded    Kind = "not_recorded"    // Approved externally, absent internally
	KindPhantom        Kind = "phantom"         // Present internally, not found/approved externally
)

// ResolutionStatus defines the resolution workflow states
type ResolutionStatus string

const (
	ResolutionPending   ResolutionStatus = "pending"
	ResolutionApproved  ResolutionStatus = "approved"
	ResolutionCorrected ResolutionStatus = "corrected"
	ResolutionIgnored   ResolutionStatus = "ignored"
)

// Actor identifies who resolved a divergence.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Divergence is one discrepancy found during matching, owned by a daily
// closure. ExpectedAmount/FoundAmount are nullable depending on the kind:
// phantom rows have no found amount, not-recorded rows no expected amount.
type Divergence struct {
	ID            uuid.UUID `json:"id"`
	ClosureID     uuid.UUID `json:"closure_id"`
	Kind          Kind      `json:"kind"`
	ReferenceCode string    `json:"reference_code"`

	ExpectedAmount *int64 `json:"expected_amount,omitempty"` // Internal/system side, cents
	FoundAmount    *int64 `json:"found_amount,omitempty"`    // Acquirer side, cents

	// Description enumerates every mismatched field in human-readable form.
	Description string `json:"description"`

	InternalPaymentID     *uuid.UUID `json:"internal_payment_id,omitempty"`
	ExternalTransactionID *uuid.UUID `json:"external_transaction_id,omitempty"`

	Resolution    ResolutionStatus `json:"resolution"`
	Justification string           `json:"justification,omitempty"`
	ResolvedByID  string           `json:"resolved_by_id,omitempty"`
	ResolvedBy    string           `json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time       `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Resolve records a terminal resolution on the divergence. Re-resolving
// overwrites the previous resolution; no history is kept beyond the single
// terminal state.
func (d *Divergence) Resolve(status ResolutionStatus, justification string, actor Actor) error {
	switch status {
	case ResolutionApproved, ResolutionCorrected, ResolutionIgnored:
	default:
		return ErrInvalidResolutionStatus
	}
	// Rune count, not bytes: accented Portuguese text must not get a pass
	// from its multi-byte encoding
	if utf8.RuneCountInString(justification) < MinJustificationLength {
		return ErrJustificationTooShort
	}

	now := time.Now()
	d.Resolution = status
	d.Justification = justification
	d.ResolvedByID = actor.ID
	d.ResolvedBy = actor.Name
	d.ResolvedAt = &now
	return nil
}

// DifferenceValue is the absolute monetary weight of the divergence, used by
// the escalation threshold: |expected-found| when both sides exist, otherwise
// whichever side does.
func (d *Divergence) DifferenceValue() int64 {
	switch {
	case d.ExpectedAmount != nil && d.FoundAmount != nil:
		diff := *d.ExpectedAmount - *d.FoundAmount
		if diff < 0 {
			diff = -diff
		}
		return diff
	case d.FoundAmount != nil:
		return abs(*d.FoundAmount)
	case d.ExpectedAmount != nil:
		return abs(*d.ExpectedAmount)
	default:
		return 0
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
