// Package textnorm normalizes free text from listings and niche keywords so
// that the vocabulary builder and the lexical matcher compare like with like.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips diacritical marks ("Reparación" -> "reparacion").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Text folds s and replaces every run of non-alphanumeric runes with a single
// space. The result is padded with one space on each side so that callers can
// look for whole words with " word ".
func Text(s string) string {
	folded := Fold(s)

	var b strings.Builder
	b.Grow(len(folded) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

// Words returns the folded alphanumeric words of s in order.
func Words(s string) []string {
	return strings.Fields(Text(s))
}

// Term folds a configured term (exclusion word, negative keyword) into the
// same shape Text produces, without the padding.
func Term(s string) string {
	return strings.TrimSpace(Text(s))
}
