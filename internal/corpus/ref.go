package corpus

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Ref is a resolved human verse reference.
type Ref struct {
	Book    string
	Chapter int
	Verses  []int
}

// ParseRef parses references like "John 1:1-3,5" into a canonical book,
// chapter and sorted, deduplicated verse list.
func ParseRef(ref string) (*Ref, error) {
	parts := strings.Fields(strings.TrimSpace(ref))
	if len(parts) < 2 {
		return nil, fmt.Errorf("corpus: reference %q needs a book and chapter:verses", ref)
	}

	book, ok := CanonicalBook(strings.Join(parts[:len(parts)-1], " "))
	if !ok {
		return nil, fmt.Errorf("corpus: unknown book in reference %q", ref)
	}

	cv := parts[len(parts)-1]
	chapterStr, versesStr, found := strings.Cut(cv, ":")
	if !found {
		return nil, fmt.Errorf("corpus: reference %q is missing chapter:verses", ref)
	}
	chapter, err := strconv.Atoi(chapterStr)
	if err != nil {
		return nil, fmt.Errorf("corpus: bad chapter in reference %q", ref)
	}

	seen := make(map[int]bool)
	var verses []int
	for _, seg := range strings.Split(versesStr, ",") {
		lo, hi, isRange := strings.Cut(seg, "-")
		if isRange {
			a, errA := strconv.Atoi(lo)
			b, errB := strconv.Atoi(hi)
			if errA != nil || errB != nil {
				continue
			}
			if a > b {
				a, b = b, a
			}
			for v := a; v <= b; v++ {
				if !seen[v] {
					seen[v] = true
					verses = append(verses, v)
				}
			}
			continue
		}
		v, err := strconv.Atoi(seg)
		if err != nil {
			continue
		}
		if !seen[v] {
			seen[v] = true
			verses = append(verses, v)
		}
	}
	if len(verses) == 0 {
		return nil, fmt.Errorf("corpus: no verses in reference %q", ref)
	}
	sort.Ints(verses)

	return &Ref{Book: book, Chapter: chapter, Verses: verses}, nil
}
