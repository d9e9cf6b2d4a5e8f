package recommender

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText performs Unicode normalization, trims whitespace and collapses runs of
// spaces. Product names go through it before they are used as vocabulary keys.
func NormalizeText(text string) string {
	normed := norm.NFKC.String(text)
	normed = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, normed)
	return strings.Join(strings.Fields(normed), " ")
}

// headerKey folds a CSV header cell for case-insensitive matching.
func headerKey(cell string) string {
	return strings.ToLower(NormalizeText(cleanCell(cell)))
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}
