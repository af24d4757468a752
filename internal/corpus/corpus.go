// Package corpus loads the Greek verse corpus and computes scoped token
// frequencies over it.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/example/koinebot/internal/greek"
	"github.com/example/koinebot/pkg/models"
)

// Scope restricts analysis to part of the corpus. Zero fields mean no
// filter: an empty Book covers every book, a zero Chapter every chapter.
type Scope struct {
	Book    string
	Chapter int
}

func (s Scope) matches(v models.Verse) bool {
	if s.Book != "" && v.Book != s.Book {
		return false
	}
	if s.Chapter != 0 && v.Chapter != s.Chapter {
		return false
	}
	return true
}

// Entry is one token with its occurrence count.
type Entry struct {
	Token string
	Count int
}

// Frequencies holds token counts and remembers first-seen order, which
// ranking uses to break count ties deterministically.
type Frequencies struct {
	counts map[string]int
	order  []string
}

// Count returns the occurrence count for token, zero if absent.
func (f *Frequencies) Count(token string) int {
	return f.counts[token]
}

// Len is the number of distinct tokens.
func (f *Frequencies) Len() int {
	return len(f.order)
}

// Entries returns all tokens with counts in first-seen order.
func (f *Frequencies) Entries() []Entry {
	entries := make([]Entry, len(f.order))
	for i, tok := range f.order {
		entries[i] = Entry{Token: tok, Count: f.counts[tok]}
	}
	return entries
}

// Frequency tokenizes every verse matching the scope and counts token
// occurrences. A scope matching nothing yields empty counts, not an error;
// callers treat that as "no data".
func Frequency(verses []models.Verse, scope Scope, normalize bool) *Frequencies {
	f := &Frequencies{counts: make(map[string]int)}
	for _, v := range verses {
		if !scope.matches(v) {
			continue
		}
		for _, tok := range greek.Tokenize(v.Text, normalize) {
			if _, seen := f.counts[tok]; !seen {
				f.order = append(f.order, tok)
			}
			f.counts[tok]++
		}
	}
	return f
}

// Load reads a JSON verse corpus from path. A missing file is not an
// error; it loads as an empty corpus.
func Load(path string) ([]models.Verse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("corpus: reading %s: %w", path, err)
	}
	var verses []models.Verse
	if err := json.Unmarshal(data, &verses); err != nil {
		return nil, fmt.Errorf("corpus: parsing %s: %w", path, err)
	}
	return verses, nil
}

// Verses returns the verses of ref present in the corpus, ordered by
// verse number.
func Verses(verses []models.Verse, ref *Ref) []models.Verse {
	want := make(map[int]bool, len(ref.Verses))
	for _, v := range ref.Verses {
		want[v] = true
	}
	var out []models.Verse
	for _, v := range verses {
		if v.Book == ref.Book && v.Chapter == ref.Chapter && want[v.Verse] {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Verse < out[j].Verse })
	return out
}
