// Package matching implements the four-way classification of a day's internal
// payments against the parsed acquirer settlement: matched, field-mismatch,
// not-recorded and phantom. The engine is pure and stateless; it performs no
// I/O and operates over two already-fetched collections.
package matching

import (
	"fmt"
	"strings"

	"github.com/fechamento-diario/internal/domain/sales"
	"github.com/fechamento-diario/internal/domain/settlement"
	"github.com/fechamento-diario/internal/normalize"
)

// DefaultAmountTolerance absorbs rounding noise between the system and the
// acquirer: amounts within 1 cent of each other count as equal.
const DefaultAmountTolerance = 1

// Pair is an internal payment matched to its approved settlement record.
type Pair struct {
	Internal *sales.InternalPayment
	External *settlement.ExternalTransaction
}

// Mismatch is a reference-code match whose compared fields diverge. Fields
// holds one formatted segment per failed check, in comparison order.
type Mismatch struct {
	Internal *sales.InternalPayment
	External *settlement.ExternalTransaction
	Fields   []string

	// AmountDiverged marks that the amount check is among the failures,
	// which classifies the divergence as an amount mismatch.
	AmountDiverged bool
}

// Description joins the failed checks into the human-readable divergence text.
func (m *Mismatch) Description() string {
	return strings.Join(m.Fields, "; ")
}

// Result holds the four disjoint classification buckets. Every internal
// payment with a non-empty reference code lands in exactly one of Matched,
// Mismatched or Phantom; every approved external transaction with a non-empty
// reference code in exactly one of Matched, Mismatched or NotRecorded.
type Result struct {
	Matched     []Pair
	Mismatched  []*Mismatch
	NotRecorded []*settlement.ExternalTransaction
	Phantom     []*sales.InternalPayment
}

// Engine classifies payments against settlement records.
type Engine struct {
	amountTolerance int64
}

// NewEngine creates a matching engine. A non-positive tolerance falls back to
// the default of 1 cent.
func NewEngine(amountToleranceCents int64) *Engine {
	if amountToleranceCents <= 0 {
		amountToleranceCents = DefaultAmountTolerance
	}
	return &Engine{amountTolerance: amountToleranceCents}
}

// Classify partitions the two collections.
//
// Only external transactions whose approval status folds to "aprovada"
// participate: declined or cancelled rows can neither satisfy a match nor
// produce a not-recorded divergence. Records without a reference code are
// invisible to classification entirely. Duplicate reference codes on either
// side are resolved last-write-wins when building the lookups.
func (e *Engine) Classify(payments []*sales.InternalPayment, transactions []*settlement.ExternalTransaction) Result {
	approvedByRef := make(map[string]*settlement.ExternalTransaction)
	for _, t := range transactions {
		if t.ReferenceCode == "" || !t.IsApproved() {
			continue
		}
		approvedByRef[t.ReferenceCode] = t
	}

	paymentRefs := make(map[string]struct{}, len(payments))
	for _, p := range payments {
		if p.ReferenceCode != "" {
			paymentRefs[p.ReferenceCode] = struct{}{}
		}
	}

	var result Result

	for _, p := range payments {
		if p.ReferenceCode == "" {
			continue
		}

		t, ok := approvedByRef[p.ReferenceCode]
		if !ok {
			result.Phantom = append(result.Phantom, p)
			continue
		}

		if mismatch := e.compare(p, t); mismatch != nil {
			result.Mismatched = append(result.Mismatched, mismatch)
		} else {
			result.Matched = append(result.Matched, Pair{Internal: p, External: t})
		}
	}

	for _, t := range transactions {
		if t.ReferenceCode == "" || !t.IsApproved() {
			continue
		}
		if _, ok := paymentRefs[t.ReferenceCode]; !ok {
			result.NotRecorded = append(result.NotRecorded, t)
		}
	}

	return result
}

// AmountsEqual reports whether two amounts in cents are equal within the
// engine's tolerance. Symmetric by construction.
func (e *Engine) AmountsEqual(a, b int64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= e.amountTolerance
}

// compare checks the fields of a reference-code match. Approval status was
// validated by the filter and the reference code is the join key, so neither
// is re-compared here. Returns nil when every check passes.
func (e *Engine) compare(p *sales.InternalPayment, t *settlement.ExternalTransaction) *Mismatch {
	m := &Mismatch{Internal: p, External: t}

	systemDate := normalize.FormatDateBR(p.SaleDate)
	sheetDate := t.SaleDateBR()
	if systemDate != sheetDate {
		m.Fields = append(m.Fields, fieldDiff("Data", systemDate, sheetDate))
	}

	if !e.AmountsEqual(p.Amount, t.GrossAmount) {
		m.AmountDiverged = true
		m.Fields = append(m.Fields, fieldDiff("Valor",
			normalize.FormatCurrencyBRL(p.Amount),
			normalize.FormatCurrencyBRL(t.GrossAmount)))
	}

	if normalize.FoldAccents(p.Modality) != normalize.FoldAccents(t.Modality) {
		m.Fields = append(m.Fields, fieldDiff("Modalidade", p.Modality, t.Modality))
	}

	if installmentsOrDefault(p.Installments) != installmentsOrDefault(t.Installments) {
		m.Fields = append(m.Fields, fieldDiff("Parcelas",
			fmt.Sprintf("%d", installmentsOrDefault(p.Installments)),
			fmt.Sprintf("%d", installmentsOrDefault(t.Installments))))
	}

	if normalize.FoldAccents(strings.TrimSpace(p.CardBrand)) != normalize.FoldAccents(strings.TrimSpace(t.CardBrand)) {
		m.Fields = append(m.Fields, fieldDiff("Bandeira", p.CardBrand, t.CardBrand))
	}

	if len(m.Fields) == 0 {
		return nil
	}
	return m
}

func fieldDiff(field, system, sheet string) string {
	return fmt.Sprintf("%s: Sistema=%s, Planilha=%s", field, system, sheet)
}

func installmentsOrDefault(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
