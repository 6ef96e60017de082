package scorer

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases s, percent-decodes it, folds diacritics and replaces
// every rune outside [a-z0-9], whitespace, '-' and '/' with a space.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	if dec, err := url.PathUnescape(s); err == nil {
		s = dec
	}
	s = fold(s)

	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '/':
			return r
		case unicode.IsSpace(r):
			return r
		}
		return ' '
	}, s)
}

// fold strips combining marks so "café" compares equal to "cafe".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// nameKey is the form of an entity name compared against candidate text.
func nameKey(name string) string {
	return fold(strings.ToLower(name))
}
