package pivot

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldLabel normalizes a cell for case- and accent-insensitive comparison:
// "  Escludì " and "ESCLUDI" fold to the same string.
func foldLabel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

func equalFold(a, b string) bool {
	return foldLabel(a) == foldLabel(b)
}

func containsFold(s, substr string) bool {
	return strings.Contains(foldLabel(s), foldLabel(substr))
}

func cell(row []string, i int) (string, bool) {
	if i < 0 || i >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[i]), true
}
