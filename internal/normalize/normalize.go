// Package normalize provides pure helpers shared by the settlement parser and
// the matching engine: currency-string to integer-cents conversion, accent
// folding for Portuguese field comparison, and BRL/date formatting.
//
// Every function is total over malformed input: invalid numeric strings
// normalize to 0 and folding never fails.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ToCents converts a Brazilian-formatted currency string into an integer
// number of cents. The comma is the decimal separator; currency symbols,
// spaces and thousand separators are stripped. Malformed input returns 0.
//
//	ToCents("R$ 1.234,56") == 123456
//	ToCents("350,00")      == 35000
//	ToCents("garbage")     == 0
func ToCents(s string) int64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0
	}

	// A single comma is the decimal separator. More than one comma means the
	// value is malformed and normalizes to zero.
	if strings.Count(cleaned, ",") > 1 {
		return 0
	}
	cleaned = strings.Replace(cleaned, ",", ".", 1)

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}

	return int64(math.Round(value * 100))
}

// FoldAccents lowers the string, maps accented characters to their ASCII base
// form and removes internal spaces. Used to compare modality and card brand
// values that arrive with inconsistent casing and diacritics: "Crédito à vista"
// and "credito A VISTA" both fold to "creditoavista".
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	return strings.ReplaceAll(folded, " ", "")
}

// FormatCurrencyBRL renders integer cents as a Brazilian currency string with
// dot thousand separators and comma decimals: 123456 -> "R$ 1.234,56".
func FormatCurrencyBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	whole := cents / 100
	frac := cents % 100

	digits := strconv.FormatInt(whole, 10)
	var grouped strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(d)
	}

	return fmt.Sprintf("%sR$ %s,%02d", sign, grouped.String(), frac)
}

// FormatDateBR renders a time as DD/MM/YYYY, the format used by the acquirer
// export and by divergence descriptions.
func FormatDateBR(t time.Time) string {
	return t.Format("02/01/2006")
}
