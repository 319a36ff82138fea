package matching

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fechamento-diario/internal/domain/closure"
	"github.com/fechamento-diario/internal/domain/sales"
	"github.com/fechamento-diario/internal/domain/settlement"
)

var testDate = time.Date(2025, time.March, 7, 0, 0, 0, 0, closure.LocationBRT)

func newPayment(ref string, amount int64) *sales.InternalPayment {
	return &sales.InternalPayment{
		ID:            uuid.New(),
		SaleID:        uuid.New(),
		SaleDate:      testDate,
		Amount:        amount,
		Modality:      "crédito",
		Installments:  1,
		CardBrand:     "Visa",
		ReferenceCode: ref,
	}
}

func newTransaction(ref string, amount int64) *settlement.ExternalTransaction {
	return &settlement.ExternalTransaction{
		ID:            uuid.New(),
		OccurredAt:    testDate.Add(14 * time.Hour),
		Status:        "Aprovada",
		GrossAmount:   amount,
		Modality:      "credito",
		Installments:  1,
		CardBrand:     "VISA",
		ReferenceCode: ref,
	}
}

func TestEngine_AmountsEqual(t *testing.T) {
	e := NewEngine(DefaultAmountTolerance)

	tests := []struct {
		name  string
		a, b  int64
		equal bool
	}{
		{"exact", 35000, 35000, true},
		{"one cent above", 35000, 35001, true},
		{"one cent below", 35001, 35000, true},
		{"two cents apart", 35000, 35002, false},
		{"two cents apart reversed", 35002, 35000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, e.AmountsEqual(tt.a, tt.b))
			assert.Equal(t, tt.equal, e.AmountsEqual(tt.b, tt.a), "tolerance must be symmetric")
		})
	}
}

func TestEngine_Classify_Matched(t *testing.T) {
	e := NewEngine(DefaultAmountTolerance)

	result := e.Classify(
		[]*sales.InternalPayment{newPayment("CV001", 35000)},
		[]*settlement.ExternalTransaction{newTransaction("CV001", 35001)},
	)

	require.Len(t, result.Matched, 1)
	assert.Empty(t, result.Mismatched)
	assert.Empty(t, result.NotRecorded)
	assert.Empty(t, result.Phantom)
	assert.Equal(t, "CV001", result.Matched[0].Internal.ReferenceCode)
}

func TestEngine_Classify_FourWayPartition(t *testing.T) {
	e := NewEngine(DefaultAmountTolerance)

	payments := []*sales.InternalPayment{
		newPayment("CV001", 35000), // matched
		newPayment("CV002", 20000), // amount mismatch
		newPayment("CV003", 10000), // phantom: no external row
		newPayment("CV005", 5000),  // phantom: external row not approved
		newPayment("", 99999),      // no reference code, invisible
	}

	declined := newTransaction("CV005", 5000)
	declined.Status = "negada"

	transactions := []*settlement.ExternalTransaction{
		newTransaction("CV001", 35000),
		newTransaction("CV002", 25000),
		newTransaction("CV004", 15000), // not recorded
		declined,
	}

	result := e.Classify(payments, transactions)

	assert.Len(t, result.Matched, 1)
	assert.Len(t, result.Mismatched, 1)
	assert.Len(t, result.Phantom, 2)
	assert.Len(t, result.NotRecorded, 1)

	// Every keyed internal payment appears in exactly one bucket.
	total := len(result.Matched) + len(result.Mismatched) + len(result.Phantom)
	assert.Equal(t, 4, total)

	assert.Equal(t, "CV004", result.NotRecorded[0].ReferenceCode)
}

func TestEngine_Classify_ApprovalFilter(t *testing.T) {
	e := NewEngine(DefaultAmountTolerance)

	// A declined external transaction can neither match nor become
	// a not-recorded divergence.
	declined := newTransaction("CV010", 5000)
	declined.Status = "Negada"

	result := e.Classify(nil, []*settlement.ExternalTransaction{declined})

	assert.Empty(t, result.Matched)
	assert.Empty(t, result.NotRecorded)
}

func TestEngine_Classify_ApprovalStatusFolding(t *testing.T) {
	e := NewEngine(DefaultAmountTolerance)

	approved := newTransaction("CV011", 5000)
	approved.Status = "APROVADA"

	result := e.Classify([]*sales.InternalPayment{newPayment("CV011", 5000)}, []*settlement.ExternalTransaction{approved})

	assert.Len(t, result.Matched, 1)
}

func TestEngine_Classify_FieldMismatchDescription(t *testing.T) {
	e := NewEngine(DefaultAmountTolerance)

	p := newPayment("CV020", 35000)
	p.CardBrand = "Visa"

	tx := newTransaction("CV020", 40000)
	tx.CardBrand = "Mastercard"
	tx.Installments = 3

	result := e.Classify([]*sales.InternalPayment{p}, []*settlement.ExternalTransaction{tx})

	require.Len(t, result.Mismatched, 1)
	m := result.Mismatched[0]

	assert.True(t, m.AmountDiverged)
	assert.Len(t, m.Fields, 3)
	assert.Contains(t, m.Description(), "Valor: Sistema=R$ 350,00, Planilha=R$ 400,00")
	assert.Contains(t, m.Description(), "Parcelas: Sistema=1, Planilha=3")
	assert.Contains(t, m.Description(), "Bandeira: Sistema=Visa, Planilha=Mastercard")
}

func TestEngine_Classify_DateMismatch(t *testing.T) {
	e := NewEngine(DefaultAmountTolerance)

	tx := newTransaction("CV021", 35000)
	tx.OccurredAt = testDate.AddDate(0, 0, 1)

	result := e.Classify([]*sales.InternalPayment{newPayment("CV021", 35000)}, []*settlement.ExternalTransaction{tx})

	require.Len(t, result.Mismatched, 1)
	assert.False(t, result.Mismatched[0].AmountDiverged)
	assert.Contains(t, result.Mismatched[0].Description(), "Data: Sistema=07/03/2025, Planilha=08/03/2025")
}

func TestEngine_Classify_ModalityAndBrandFolding(t *testing.T) {
	e := NewEngine(DefaultAmountTolerance)

	p := newPayment("CV022", 35000)
	p.Modality = "Crédito"
	p.CardBrand = " VISA "

	tx := newTransaction("CV022", 35000)
	tx.Modality = "credito"
	tx.CardBrand = "visa"

	result := e.Classify([]*sales.InternalPayment{p}, []*settlement.ExternalTransaction{tx})

	assert.Len(t, result.Matched, 1, "accent/case/space differences must not diverge")
}

func TestEngine_Classify_InstallmentDefault(t *testing.T) {
	e := NewEngine(DefaultAmountTolerance)

	p := newPayment("CV023", 35000)
	p.Installments = 0 // absent, defaults to 1

	tx := newTransaction("CV023", 35000)
	tx.Installments = 1

	result := e.Classify([]*sales.InternalPayment{p}, []*settlement.ExternalTransaction{tx})

	assert.Len(t, result.Matched, 1)
}

func TestEngine_Classify_DuplicateReferenceLastWriteWins(t *testing.T) {
	e := NewEngine(DefaultAmountTolerance)

	first := newTransaction("CV030", 10000)
	second := newTransaction("CV030", 20000)

	result := e.Classify(
		[]*sales.InternalPayment{newPayment("CV030", 20000)},
		[]*settlement.ExternalTransaction{first, second},
	)

	require.Len(t, result.Matched, 1)
	assert.Equal(t, second.ID, result.Matched[0].External.ID)
}

func TestEngine_Classify_EmptyInputs(t *testing.T) {
	e := NewEngine(DefaultAmountTolerance)

	result := e.Classify(nil, nil)

	assert.Empty(t, result.Matched)
	assert.Empty(t, result.Mismatched)
	assert.Empty(t, result.NotRecorded)
	assert.Empty(t, result.Phantom)
}
