// Package core holds the domain types shared by the whole pipeline:
// transactions, month buckets, the P&L line enumeration and the text and
// currency normalizers used for matching and parsing.
package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText canonicalizes a free-text token for case- and
// accent-insensitive comparison: trimmed, lowercased, with diacritical
// marks stripped via NFKD decomposition.
//
// Examples:
//
//	NormalizeText("  São Paulo ")  -> "sao paulo"
//	NormalizeText("TÉCNICO")       -> "tecnico"
//	NormalizeText("")              -> ""
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
