// Package parser turns the acquirer's semicolon-delimited settlement export
// into normalized settlement transactions.
//
// The format is positional: the first line is a header that is logged but
// never used to locate columns, and every data row must carry at least 18
// semicolon-separated fields. Parsing is lenient: any row-level defect drops
// that row with a warning and never aborts the file.
package parser

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fechamento-diario/internal/domain/closure"
	"github.com/fechamento-diario/internal/domain/settlement"
	"github.com/fechamento-diario/internal/normalize"
)

// Column positions in the acquirer export. The header row names them
// differently across acquirer versions, so position is the contract.
const (
	colSaleDate = iota
	colSaleTime
	colStatus
	colOriginalAmount
	colUpdatedAmount
	colModality
	colSaleKind
	colInstallments
	colCardBrand
	colMDRRate
	colMDRAmount
	colNetAmount
	colReferenceCode
	colAuthorization
	colTerminalID
	colCardNumber
	colAcquirerTxID
	colBatchNumber
)

// minFieldCount is the minimum number of columns a row must carry.
const minFieldCount = 18

var saleDatePattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// Result carries the parsed transactions in file order plus row-level
// diagnostics. SkippedRows counts the data rows dropped as malformed.
type Result struct {
	Transactions []*settlement.ExternalTransaction
	TotalRows    int
	SkippedRows  int
}

// Parser parses settlement export files.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a settlement file parser
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse reads the raw export text for the given target date. Row order is
// preserved in the output; a malformed row is skipped with a warning, never
// failing the whole parse.
func (p *Parser) Parse(fileText string, targetDate time.Time) Result {
	fileText = strings.TrimPrefix(fileText, "\uFEFF") // Exports from Windows tooling carry a BOM

	lines := strings.Split(fileText, "\n")
	result := Result{}

	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if i == 0 {
			p.logger.Debug("Settlement file header", "header", line, "target_date", closure.DateKey(targetDate))
			continue
		}

		result.TotalRows++

		tx, ok := p.parseRow(line, i+1)
		if !ok {
			result.SkippedRows++
			continue
		}
		result.Transactions = append(result.Transactions, tx)
	}

	p.logger.Info("Settlement file parsed",
		"target_date", closure.DateKey(targetDate),
		"rows", result.TotalRows,
		"parsed", len(result.Transactions),
		"skipped", result.SkippedRows,
	)

	return result
}

// parseRow parses a single data row. Returns false when the row must be
// skipped.
func (p *Parser) parseRow(line string, lineNumber int) (*settlement.ExternalTransaction, bool) {
	fields := strings.Split(line, ";")
	if len(fields) < minFieldCount {
		p.logger.Warn("Skipping settlement row with too few fields",
			"line", lineNumber, "fields", len(fields))
		return nil, false
	}

	saleDate := strings.TrimSpace(fields[colSaleDate])
	saleTime := strings.TrimSpace(fields[colSaleTime])
	originalAmount := strings.TrimSpace(fields[colOriginalAmount])
	referenceCode := strings.TrimSpace(fields[colReferenceCode])

	if saleDate == "" || saleTime == "" || referenceCode == "" || originalAmount == "" {
		p.logger.Warn("Skipping settlement row with missing required fields", "line", lineNumber)
		return nil, false
	}

	if !saleDatePattern.MatchString(saleDate) {
		p.logger.Warn("Skipping settlement row with invalid sale date",
			"line", lineNumber, "sale_date", saleDate)
		return nil, false
	}

	occurredAt, err := composeDateTime(saleDate, saleTime)
	if err != nil {
		p.logger.Warn("Skipping settlement row with invalid date/time",
			"line", lineNumber, "sale_date", saleDate, "sale_time", saleTime)
		return nil, false
	}

	installments, err := strconv.Atoi(strings.TrimSpace(fields[colInstallments]))
	if err != nil || installments <= 0 {
		installments = 1
	}

	return &settlement.ExternalTransaction{
		ID:            uuid.New(),
		OccurredAt:    occurredAt,
		Status:        strings.TrimSpace(fields[colStatus]),
		GrossAmount:   normalize.ToCents(originalAmount),
		UpdatedAmount: normalize.ToCents(fields[colUpdatedAmount]),
		NetAmount:     normalize.ToCents(fields[colNetAmount]),
		Modality:      strings.ToLower(strings.TrimSpace(fields[colModality])),
		SaleKind:      strings.TrimSpace(fields[colSaleKind]),
		Installments:  installments,
		CardBrand:     strings.TrimSpace(fields[colCardBrand]),
		MDRRate:       parseRate(fields[colMDRRate]),
		MDRAmount:     normalize.ToCents(fields[colMDRAmount]),
		ReferenceCode: referenceCode,
		Authorization: strings.TrimSpace(fields[colAuthorization]),
		TerminalID:    strings.TrimSpace(fields[colTerminalID]),
		CardNumber:    strings.TrimSpace(fields[colCardNumber]),
		AcquirerTxID:  strings.TrimSpace(fields[colAcquirerTxID]),
		CreatedAt:     time.Now(),
	}, true
}

// composeDateTime builds the transaction instant from the date and time
// columns, in the fixed UTC-3 zone. The export writes times with or without
// seconds.
func composeDateTime(saleDate, saleTime string) (time.Time, error) {
	t, err := time.ParseInLocation("02/01/2006 15:04:05", saleDate+" "+saleTime, closure.LocationBRT)
	if err == nil {
		return t, nil
	}
	return time.ParseInLocation("02/01/2006 15:04", saleDate+" "+saleTime, closure.LocationBRT)
}

// parseRate parses the MDR percentage, which uses a comma decimal separator.
// Malformed rates normalize to 0.
func parseRate(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	s = strings.Replace(s, ",", ".", 1)
	rate, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return rate
}
