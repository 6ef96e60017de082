package scorer

import "github.com/pmezard/go-difflib/difflib"

// Similarity returns the Ratcliff/Obershelp ratio 2*M/T of a and b, compared
// rune by rune. Two empty strings are identical.
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(runeSeq(a), runeSeq(b)).Ratio()
}

// runeSeq splits s into one-rune strings for the matcher.
func runeSeq(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
