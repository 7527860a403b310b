package normalize

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	apperrors "finlink/internal/errors"
)

// ParseAmount parses a locale-ambiguous amount string into a decimal.
// Both "." and "," appear as thousands separators and as decimal marks in
// the wild; the rightmost occurrence of either is taken as the decimal
// mark and every other separator is stripped. A lone comma counts as a
// decimal mark, so "1,5" parses as 1.5, while "1.234.567,89" parses as
// 1234567.89. Currency symbols and whitespace are removed first; a leading
// minus sign is preserved.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrInvalidInput, "empty amount")
	}

	neg := false
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			neg = true
		case r == '+', unicode.IsSpace(r):
			// ignore
		default:
			// currency symbols and letters are noise
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount has no digits: " + raw)
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	decimalIdx := lastDot
	if lastComma > lastDot {
		decimalIdx = lastComma
	}

	var norm strings.Builder
	for i, r := range cleaned {
		switch {
		case r >= '0' && r <= '9':
			norm.WriteRune(r)
		case i == decimalIdx:
			norm.WriteRune('.')
		}
	}

	d, err := decimal.NewFromString(norm.String())
	if err != nil {
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrInvalidInput, "unparseable amount: " + raw)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}
