package normalize

import (
	"strings"
	"time"

	apperrors "finlink/internal/errors"
)

// isoLayouts are tried before any declared format so that a source that
// claims one layout but actually emits ISO dates still parses correctly.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// commonLayouts are fallbacks tried after the declared format.
var commonLayouts = []string{
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
	"2006.01.02",
	"20060102",
}

// LayoutFromPattern converts a dd/MM/yyyy-style format pattern to a Go
// reference layout. Unknown runes pass through unchanged.
func LayoutFromPattern(pattern string) string {
	r := strings.NewReplacer(
		"yyyy", "2006",
		"yy", "06",
		"MM", "01",
		"dd", "02",
		"HH", "15",
		"mm", "04",
		"ss", "05",
	)
	return r.Replace(pattern)
}

// ParseDate parses a date string, trying ISO layouts first, then the
// declared source pattern, then common ambiguous layouts. The result is
// pinned to local noon so that date-only values survive timezone
// conversion without shifting a calendar day.
func ParseDate(raw string, pattern string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "empty date")
	}

	layouts := make([]string, 0, len(isoLayouts)+1+len(commonLayouts))
	layouts = append(layouts, isoLayouts...)
	if pattern != "" {
		layouts = append(layouts, LayoutFromPattern(pattern))
	}
	layouts = append(layouts, commonLayouts...)

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return atLocalNoon(t), nil
		}
	}
	return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "unparseable date: " + raw)
}

// ParseDateOr behaves like ParseDate but returns fallback instead of an
// error when every layout fails.
func ParseDateOr(raw string, pattern string, fallback time.Time) time.Time {
	t, err := ParseDate(raw, pattern)
	if err != nil {
		return fallback
	}
	return t
}

// atLocalNoon reconstructs the parsed date at 12:00 local time.
func atLocalNoon(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.Local)
}
