// Package greek extracts and normalizes Koine Greek tokens from raw text.
package greek

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Maximal runs from the Greek and Greek Extended blocks; everything else
// acts as a separator.
var tokenRun = regexp.MustCompile(`[\x{0370}-\x{03FF}\x{1F00}-\x{1FFF}]+`)

var markStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripDiacritics decomposes s to base+combining-mark form and drops the
// combining marks, so accented and unaccented spellings compare equal.
func StripDiacritics(s string) string {
	out, _, err := transform.String(markStripper, s)
	if err != nil {
		return s
	}
	return out
}

// Tokenize extracts Greek token runs from text in input order, lowercased.
// When stripMarks is set each token also has its diacritics removed.
// Single-character tokens are kept; particles matter.
func Tokenize(text string, stripMarks bool) []string {
	if text == "" {
		return nil
	}
	runs := tokenRun.FindAllString(text, -1)
	tokens := make([]string, 0, len(runs))
	for _, r := range runs {
		t := strings.ToLower(r)
		if stripMarks {
			t = StripDiacritics(t)
		}
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// NormalKey returns the canonical comparison form of a word: lowercased
// with diacritics stripped. Two spellings of the same word share a key.
func NormalKey(word string) string {
	return StripDiacritics(strings.ToLower(word))
}

// ContainsDigit reports whether any rune of the token is a digit. Tokens
// with digits are versification artifacts, not vocabulary.
func ContainsDigit(token string) bool {
	for _, r := range token {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
