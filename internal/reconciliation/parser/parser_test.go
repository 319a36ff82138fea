package parser

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fechamento-diario/internal/domain/closure"
)

const header = "Data;Hora;Status;Valor Original;Valor Atualizado;Modalidade;Tipo;Parcelas;Bandeira;Taxa MDR;Valor MDR;Valor Liquido;CV/NSU;Autorizacao;Terminal;Cartao;TID;Lote"

var targetDate = time.Date(2025, time.March, 7, 0, 0, 0, 0, closure.LocationBRT)

func newTestParser() *Parser {
	return NewParser(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

// row builds a well-formed 18-column data row with the given overrides.
func row(overrides map[int]string) string {
	fields := []string{
		"07/03/2025",  // sale date
		"14:35:12",    // time
		"Aprovada",    // status
		"R$ 350,00",   // original amount
		"R$ 350,00",   // updated amount
		"Crédito",     // modality
		"À vista",     // sale kind
		"1",           // installments
		"Visa",        // card brand
		"2,5",         // MDR rate
		"R$ 8,75",     // MDR amount
		"R$ 341,25",   // net amount
		"CV123456",    // reference code
		"AUTH01",      // authorization
		"TERM9",       // terminal
		"516292...04", // card number
		"TX0001",      // acquirer tx id
		"L77",         // batch
	}
	for i, v := range overrides {
		fields[i] = v
	}
	return strings.Join(fields, ";")
}

func TestParser_Parse_WellFormedRow(t *testing.T) {
	p := newTestParser()

	result := p.Parse(header+"\n"+row(nil), targetDate)

	require.Len(t, result.Transactions, 1)
	assert.Equal(t, 1, result.TotalRows)
	assert.Equal(t, 0, result.SkippedRows)

	tx := result.Transactions[0]
	assert.Equal(t, "Aprovada", tx.Status)
	assert.Equal(t, int64(35000), tx.GrossAmount)
	assert.Equal(t, int64(35000), tx.UpdatedAmount)
	assert.Equal(t, int64(34125), tx.NetAmount)
	assert.Equal(t, "crédito", tx.Modality)
	assert.Equal(t, 1, tx.Installments)
	assert.Equal(t, "Visa", tx.CardBrand)
	assert.Equal(t, 2.5, tx.MDRRate)
	assert.Equal(t, int64(875), tx.MDRAmount)
	assert.Equal(t, "CV123456", tx.ReferenceCode)
	assert.Equal(t, "AUTH01", tx.Authorization)

	assert.Equal(t, "07/03/2025", tx.SaleDateBR())
	assert.Equal(t, 14, tx.OccurredAt.Hour())
	assert.Equal(t, 35, tx.OccurredAt.Minute())
	assert.True(t, tx.IsApproved())
}

func TestParser_Parse_RowLevelResilience(t *testing.T) {
	p := newTestParser()

	// Ten well-formed rows and two malformed ones: the file parses to exactly
	// ten transactions and never fails.
	var lines []string
	lines = append(lines, header)
	for i := 0; i < 10; i++ {
		lines = append(lines, row(map[int]string{12: fmt.Sprintf("CV%06d", i)}))
	}
	lines = append(lines, row(map[int]string{0: "2025-03-07"})) // wrong date format
	lines = append(lines, "too;few;columns")                    // <18 columns

	result := p.Parse(strings.Join(lines, "\n"), targetDate)

	assert.Len(t, result.Transactions, 10)
	assert.Equal(t, 12, result.TotalRows)
	assert.Equal(t, 2, result.SkippedRows)
}

func TestParser_Parse_SkipConditions(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"missing sale date", row(map[int]string{0: ""})},
		{"missing time", row(map[int]string{1: ""})},
		{"missing reference code", row(map[int]string{12: ""})},
		{"missing original amount", row(map[int]string{3: ""})},
		{"date without leading zeros", row(map[int]string{0: "7/3/2025"})},
		{"invalid calendar date", row(map[int]string{0: "32/13/2025"})},
		{"unparseable time", row(map[int]string{1: "later"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestParser()
			result := p.Parse(header+"\n"+tt.line, targetDate)
			assert.Empty(t, result.Transactions)
			assert.Equal(t, 1, result.SkippedRows)
		})
	}
}

func TestParser_Parse_InstallmentsDefault(t *testing.T) {
	p := newTestParser()

	result := p.Parse(header+"\n"+row(map[int]string{7: "abc"}), targetDate)

	require.Len(t, result.Transactions, 1)
	assert.Equal(t, 1, result.Transactions[0].Installments)
}

func TestParser_Parse_TimeWithoutSeconds(t *testing.T) {
	p := newTestParser()

	result := p.Parse(header+"\n"+row(map[int]string{1: "09:05"}), targetDate)

	require.Len(t, result.Transactions, 1)
	assert.Equal(t, 9, result.Transactions[0].OccurredAt.Hour())
}

func TestParser_Parse_BOMAndBlankLines(t *testing.T) {
	p := newTestParser()

	text := "\uFEFF" + header + "\r\n" + row(nil) + "\r\n\r\n"
	result := p.Parse(text, targetDate)

	assert.Len(t, result.Transactions, 1)
	assert.Equal(t, 0, result.SkippedRows)
}

func TestParser_Parse_OrderPreserved(t *testing.T) {
	p := newTestParser()

	text := strings.Join([]string{
		header,
		row(map[int]string{12: "CV000001"}),
		row(map[int]string{12: "CV000002"}),
		row(map[int]string{12: "CV000003"}),
	}, "\n")

	result := p.Parse(text, targetDate)

	require.Len(t, result.Transactions, 3)
	assert.Equal(t, "CV000001", result.Transactions[0].ReferenceCode)
	assert.Equal(t, "CV000002", result.Transactions[1].ReferenceCode)
	assert.Equal(t, "CV000003", result.Transactions[2].ReferenceCode)
}

func TestParser_Parse_EmptyFile(t *testing.T) {
	p := newTestParser()

	result := p.Parse("", targetDate)

	assert.Empty(t, result.Transactions)
	assert.Equal(t, 0, result.TotalRows)
}
