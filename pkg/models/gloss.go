package models

import "time"

// GlossEntry is a cached set of English glosses for a Greek token.
type GlossEntry struct {
	Word      string    `json:"word" db:"word"`
	Glosses   []string  `json:"glosses"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
