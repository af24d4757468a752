package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/koinebot/pkg/models"
)

// CardRepository handles database operations for vocabulary cards
type CardRepository struct{}

// NewCardRepository creates a new repository instance
func NewCardRepository() *CardRepository {
	return &CardRepository{}
}

// Get returns the card for (user, word), or (nil, nil) when absent.
func (r *CardRepository) Get(ctx context.Context, userID, word string) (*models.VocabularyCard, error) {
	var card models.VocabularyCard
	err := DB.GetContext(ctx, &card,
		"SELECT * FROM vocabulary_progress WHERE user_id = $1 AND vocab_word = $2",
		userID, word)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

// Upsert creates or replaces the card keyed by (user, word).
func (r *CardRepository) Upsert(ctx context.Context, card *models.VocabularyCard) error {
	now := time.Now().UTC()
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	card.UpdatedAt = now

	_, err := DB.ExecContext(ctx, `
		INSERT INTO vocabulary_progress (
			user_id, vocab_word, times_reviewed, mastery_score, last_reviewed,
			ease_factor, interval_days, next_review_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, vocab_word) DO UPDATE SET
			times_reviewed = EXCLUDED.times_reviewed,
			mastery_score = EXCLUDED.mastery_score,
			last_reviewed = EXCLUDED.last_reviewed,
			ease_factor = EXCLUDED.ease_factor,
			interval_days = EXCLUDED.interval_days,
			next_review_date = EXCLUDED.next_review_date,
			updated_at = EXCLUDED.updated_at
	`,
		card.UserID, card.Word, card.TimesReviewed, card.MasteryScore, card.LastReviewed,
		card.EaseFactor, card.IntervalDays, card.NextReviewDate, card.CreatedAt, card.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert card: %w", err)
	}
	return nil
}

// Due returns cards due for review: next review date missing or at/before
// now, nulls first, then ascending date. A limit <= 0 means no limit.
func (r *CardRepository) Due(ctx context.Context, userID string, now time.Time, limit int) ([]models.VocabularyCard, error) {
	query := `
		SELECT * FROM vocabulary_progress
		WHERE user_id = $1 AND (next_review_date IS NULL OR next_review_date <= $2)
		ORDER BY (next_review_date IS NULL) DESC, next_review_date ASC, vocab_word ASC
	`
	args := []interface{}{userID, now}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	var cards []models.VocabularyCard
	if err := DB.SelectContext(ctx, &cards, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get due cards: %w", err)
	}
	return cards, nil
}

// Words lists the words the user has cards for.
func (r *CardRepository) Words(ctx context.Context, userID string) ([]string, error) {
	var words []string
	err := DB.SelectContext(ctx, &words,
		"SELECT vocab_word FROM vocabulary_progress WHERE user_id = $1 ORDER BY vocab_word",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list words: %w", err)
	}
	return words, nil
}

// List returns the user's cards ordered by mastery descending, for
// progress views. A limit <= 0 means no limit.
func (r *CardRepository) List(ctx context.Context, userID string, limit int) ([]models.VocabularyCard, error) {
	query := `
		SELECT * FROM vocabulary_progress
		WHERE user_id = $1
		ORDER BY mastery_score DESC, vocab_word ASC
	`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	var cards []models.VocabularyCard
	if err := DB.SelectContext(ctx, &cards, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, nil
}

// DueSummary counts a user's due cards.
type DueSummary struct {
	UserID string `db:"user_id"`
	Count  int    `db:"due_count"`
}

// UsersWithDue returns, per user, how many cards are due at now.
func (r *CardRepository) UsersWithDue(ctx context.Context, now time.Time) ([]DueSummary, error) {
	var summaries []DueSummary
	err := DB.SelectContext(ctx, &summaries, `
		SELECT user_id, COUNT(*) AS due_count FROM vocabulary_progress
		WHERE next_review_date IS NULL OR next_review_date <= $1
		GROUP BY user_id
		ORDER BY user_id
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count due cards: %w", err)
	}
	return summaries, nil
}
