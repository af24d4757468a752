package vocab

import (
	"context"
	"fmt"

	"github.com/example/koinebot/internal/corpus"
	"github.com/example/koinebot/pkg/models"
)

// CardStore is the slice of card persistence the generator needs.
type CardStore interface {
	Words(ctx context.Context, userID string) ([]string, error)
	Upsert(ctx context.Context, card *models.VocabularyCard) error
}

// Generator seeds vocabulary cards from corpus frequency.
type Generator struct {
	cards CardStore
}

// NewGenerator creates a generator backed by the given card store.
func NewGenerator(cards CardStore) *Generator {
	return &Generator{cards: cards}
}

// Generate selects up to limit novel high-frequency tokens for the scope
// and creates a card with the initial scheduling state for each. It
// returns the words inserted, in rank order.
func (g *Generator) Generate(ctx context.Context, userID string, verses []models.Verse, scope corpus.Scope, normalize bool, limit int) ([]string, error) {
	freq := corpus.Frequency(verses, scope, normalize)

	words, err := g.cards.Words(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("vocab: listing existing words: %w", err)
	}

	selected := Select(freq, ExcludeKeys(words), limit)
	for _, w := range selected {
		if err := g.cards.Upsert(ctx, models.NewVocabularyCard(userID, w)); err != nil {
			return nil, fmt.Errorf("vocab: inserting card for %q: %w", w, err)
		}
	}
	return selected, nil
}
