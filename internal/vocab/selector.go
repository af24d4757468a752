// Package vocab ranks frequency results and seeds vocabulary cards with
// novel high-value tokens.
package vocab

import (
	"sort"

	"github.com/example/koinebot/internal/corpus"
	"github.com/example/koinebot/internal/greek"
)

// Select ranks frequency entries by count descending and returns up to
// limit candidate tokens. Count ties keep first-seen corpus order, so the
// output is deterministic. Tokens containing digits are skipped, as is any
// token whose normalized form appears in excludeKeys. A limit <= 0 means
// no cap.
func Select(freq *corpus.Frequencies, excludeKeys map[string]struct{}, limit int) []string {
	entries := freq.Entries()
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Count > entries[j].Count })

	var selected []string
	for _, e := range entries {
		if greek.ContainsDigit(e.Token) {
			continue
		}
		if _, known := excludeKeys[greek.NormalKey(e.Token)]; known {
			continue
		}
		selected = append(selected, e.Token)
		if limit > 0 && len(selected) >= limit {
			break
		}
	}
	return selected
}

// ExcludeKeys builds the normalized exclusion set from the words a user
// already has cards for, so candidate selection is novelty-aware even when
// stored spellings differ in case or diacritics.
func ExcludeKeys(words []string) map[string]struct{} {
	keys := make(map[string]struct{}, len(words))
	for _, w := range words {
		keys[greek.NormalKey(w)] = struct{}{}
	}
	return keys
}
