// internal/engine/matching/normalize.go
package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "for": {},
	"with": {}, "in": {}, "on": {}, "to": {}, "by": {}, "per": {}, "x": {},
	"incl": {}, "including": {}, "new": {}, "qty": {}, "approx": {},
}

// unit words carry no identity; two vendors may quote the same item per pack or per piece
var unitWords = map[string]struct{}{
	"each": {}, "ea": {}, "pc": {}, "pcs": {}, "piece": {}, "pieces": {},
	"unit": {}, "units": {}, "pack": {}, "pk": {}, "case": {}, "cs": {},
	"box": {}, "boxes": {}, "carton": {}, "ctn": {}, "ct": {}, "count": {},
	"dozen": {}, "dz": {}, "pair": {}, "set": {}, "bag": {}, "bundle": {},
}

// Tokens returns the significant tokens of a description in their
// original order: NFKC folded, lower-cased, punctuation removed, with
// stopwords, unit words and bare numbers dropped.
func Tokens(description string) []string {
	s := strings.ToLower(norm.NFKC.String(description))
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := stopwords[f]; ok {
			continue
		}
		if _, ok := unitWords[f]; ok {
			continue
		}
		if isNumber(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Normalize is Tokens joined by single spaces.
func Normalize(description string) string {
	return strings.Join(Tokens(description), " ")
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
