package util

import (
	"strings"
	"unicode"
)

// SanitizeText cleans text pulled out of PDFs before it is chunked and
// stored: invalid UTF-8, NUL and other control runes are dropped, soft
// hyphens removed, and runs of spaces or tabs collapsed. Line breaks stay.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToValidUTF8(s, "")
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteRune(r)
			space = false
		case r == ' ' || r == '\t' || r == '\r' || r == '\u00a0':
			if !space {
				b.WriteByte(' ')
				space = true
			}
		case r == '\u00ad' || unicode.IsControl(r):
		default:
			b.WriteRune(r)
			space = false
		}
	}
	return strings.TrimSpace(b.String())
}
