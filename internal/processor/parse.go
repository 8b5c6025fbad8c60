package processor

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateFormats are tried in order; day-first formats come before month-first,
// so ambiguous inputs like 03/04/2023 resolve day-first.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

var (
	nonDigitRe      = regexp.MustCompile(`[^0-9]`)
	parenRe         = regexp.MustCompile(`\(.*\)`)
	amountCharRe    = regexp.MustCompile(`[^0-9.,-]`)
	digitsAndSignRe = regexp.MustCompile(`[^0-9-]`)
)

// parseDate tries the known formats, then falls back to interpreting exactly
// eight remaining digits as YYYYMMDD. Unparseable input is not an error; the
// second return is false.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	digits := nonDigitRe.ReplaceAllString(s, "")
	if len(digits) == 8 {
		if t, err := time.Parse("20060102", digits); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAmount normalizes currency strings to an exact decimal. Parenthesized
// input marks a negative value; separator handling follows the usual report
// conventions (dot wins as the decimal point when both are present, a lone
// comma is a decimal separator only when 1-2 digits follow it).
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}

	negative := parenRe.MatchString(s)
	cleaned := amountCharRe.ReplaceAllString(s, "")

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")
	switch {
	case hasComma && hasDot:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case hasComma:
		lastComma := strings.LastIndex(cleaned, ",")
		fractional := cleaned[lastComma+1:]
		if len(fractional) >= 1 && len(fractional) <= 2 {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	val, err := decimal.NewFromString(cleaned)
	if err != nil {
		// Last resort: digits and sign only.
		digits := digitsAndSignRe.ReplaceAllString(cleaned, "")
		val, err = decimal.NewFromString(digits)
		if err != nil {
			return decimal.Decimal{}, false
		}
	}
	if negative {
		val = val.Neg()
	}
	return val, true
}
