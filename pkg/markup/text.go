package markup

import (
	"strings"
	"unicode/utf8"
)

// CleanTitle collapses line breaks and runs of whitespace into single spaces.
func CleanTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateBytes returns the longest valid UTF-8 prefix of s that is at most
// max bytes long. At most 4 trailing bytes are given up to reach a rune
// boundary; if that is not enough the result is empty.
func TruncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 0 {
		return ""
	}
	cut := s[:max]
	for i := 0; i < 4 && i < len(cut); i++ {
		if p := cut[:len(cut)-i]; utf8.ValidString(p) {
			return p
		}
	}
	return ""
}

// TruncRunes returns s truncated to at most n runes, with "…" appended when cut.
func TruncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + "…"
		}
		count++
	}
	return s
}
