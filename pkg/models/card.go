package models

import "time"

// DefaultEaseFactor is the SM-2 starting ease for a card that has never
// been reviewed.
const DefaultEaseFactor = 2.5

// VocabularyCard tracks a user's progress with a single Greek token using
// the SM-2 algorithm. Identity is (UserID, Word).
type VocabularyCard struct {
	UserID         string     `json:"user_id" db:"user_id"`
	Word           string     `json:"vocab_word" db:"vocab_word"`
	TimesReviewed  int        `json:"times_reviewed" db:"times_reviewed"`
	MasteryScore   float64    `json:"mastery_score" db:"mastery_score"`
	LastReviewed   *time.Time `json:"last_reviewed" db:"last_reviewed"`
	EaseFactor     float64    `json:"ease_factor" db:"ease_factor"`
	IntervalDays   float64    `json:"interval_days" db:"interval_days"`
	NextReviewDate *time.Time `json:"next_review_date" db:"next_review_date"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// NewVocabularyCard returns a card in the initial scheduling state:
// never reviewed, zero mastery, default ease, no review dates.
func NewVocabularyCard(userID, word string) *VocabularyCard {
	return &VocabularyCard{
		UserID:     userID,
		Word:       word,
		EaseFactor: DefaultEaseFactor,
	}
}
