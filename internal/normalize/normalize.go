// Package normalize derives comparison keys for user-supplied strings.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Key returns the uniqueness key for s: trimmed, NFKC-composed and
// case-folded. Two strings that a user would read as the same name share a key.
//
//	Key("  Hardware ")  -> "hardware"
//	Key("ＨＡＲＤＷＡＲＥ") -> "hardware"
//	Key("Straße")       -> "strasse"
func Key(s string) string {
	s = sanitizeString(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	// A Caser keeps state, so each call gets its own.
	return cases.Fold().String(norm.NFKC.String(s))
}

// Email returns the uniqueness key for an email address.
func Email(s string) string {
	return Key(s)
}

// Equal reports whether a and b normalize to the same key.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}

// sanitizeString removes null bytes, which break JSON and some drivers.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
}
