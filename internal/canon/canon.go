// Package canon maps raw text records to canonical keys used as record identity.
package canon

import (
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// nonWordRegex matches runs of anything that is not a letter, a number or an underscore.
var nonWordRegex = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Key returns the canonical form of text: compatibility-normalised, case-folded,
// with all non-word characters removed. Key is idempotent.
func Key(text string) string {
	text = norm.NFKC.String(text)
	// Casers carry state, so one is built per call instead of shared across goroutines.
	text = cases.Fold().String(text)
	text = nonWordRegex.ReplaceAllString(text, "")
	return norm.NFKC.String(text)
}

// Keys canonicalises every record, preserving order.
func Keys(records []string) []string {
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = Key(r)
	}
	return keys
}
