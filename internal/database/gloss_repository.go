package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// GlossRepository handles database operations for the gloss cache
type GlossRepository struct{}

// NewGlossRepository creates a new repository instance
func NewGlossRepository() *GlossRepository {
	return &GlossRepository{}
}

// Get returns the cached glosses for word, or (nil, nil) on a miss.
func (r *GlossRepository) Get(ctx context.Context, word string) ([]string, error) {
	var raw string
	err := DB.GetContext(ctx, &raw, "SELECT glosses FROM gloss_cache WHERE word = $1", word)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get glosses: %w", err)
	}

	var glosses []string
	if err := json.Unmarshal([]byte(raw), &glosses); err != nil {
		return nil, fmt.Errorf("failed to decode glosses for %q: %w", word, err)
	}
	return glosses, nil
}

// Put stores or refreshes the glosses for word.
func (r *GlossRepository) Put(ctx context.Context, word string, glosses []string) error {
	data, err := json.Marshal(glosses)
	if err != nil {
		return fmt.Errorf("failed to encode glosses for %q: %w", word, err)
	}

	_, err = DB.ExecContext(ctx, `
		INSERT INTO gloss_cache (word, glosses, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (word) DO UPDATE SET
			glosses = EXCLUDED.glosses,
			updated_at = EXCLUDED.updated_at
	`, word, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert glosses for %q: %w", word, err)
	}
	return nil
}
