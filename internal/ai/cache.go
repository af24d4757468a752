package ai

import (
	"context"
	"log"

	"github.com/example/koinebot/internal/greek"
	"github.com/example/koinebot/internal/quiz"
	"github.com/example/koinebot/pkg/models"
)

// GlossCache persists oracle gloss lookups. Keys are normalized word
// forms, so accented and unaccented spellings share an entry.
type GlossCache interface {
	// Get returns cached glosses or (nil, nil) on a miss.
	Get(ctx context.Context, word string) ([]string, error)
	Put(ctx context.Context, word string, glosses []string) error
}

// CachedOracle consults the gloss cache before the live oracle and writes
// fresh answers back. Verdicts pass straight through; they depend on the
// user's answer and cannot be cached.
type CachedOracle struct {
	oracle quiz.Oracle
	cache  GlossCache
}

// NewCachedOracle wraps oracle with the given cache.
func NewCachedOracle(oracle quiz.Oracle, cache GlossCache) *CachedOracle {
	return &CachedOracle{oracle: oracle, cache: cache}
}

// Glosses serves from the cache when possible. Cache errors fall through
// to the live oracle; cache writes are best-effort.
func (c *CachedOracle) Glosses(ctx context.Context, token string) ([]string, error) {
	key := greek.NormalKey(token)
	cached, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Printf("ai: gloss cache read for %q failed: %v", token, err)
	} else if len(cached) > 0 {
		return cached, nil
	}

	glosses, err := c.oracle.Glosses(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(glosses) > 0 {
		if err := c.cache.Put(ctx, key, glosses); err != nil {
			log.Printf("ai: gloss cache write for %q failed: %v", token, err)
		}
	}
	return glosses, nil
}

// Verdict delegates to the live oracle.
func (c *CachedOracle) Verdict(ctx context.Context, token string, glosses []string, answer string) (models.Verdict, string, error) {
	return c.oracle.Verdict(ctx, token, glosses, answer)
}
