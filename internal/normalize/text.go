package normalize

import (
	"strings"
	"unicode"
)

// Text lowercases a description, replaces punctuation with spaces and
// collapses runs of whitespace. Both sides of any textual comparison in
// the engine go through this first.
func Text(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// MatchesKeyword reports whether a normalized description matches a
// keyword. Multi-word keywords require every word to be present somewhere
// in the description; single-word keywords match as a substring.
func MatchesKeyword(normalizedDesc, keyword string) bool {
	kw := Text(keyword)
	if kw == "" || normalizedDesc == "" {
		return false
	}
	words := strings.Fields(kw)
	if len(words) > 1 {
		for _, w := range words {
			if !strings.Contains(normalizedDesc, w) {
				return false
			}
		}
		return true
	}
	return strings.Contains(normalizedDesc, kw)
}
