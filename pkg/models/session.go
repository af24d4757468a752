package models

import "time"

// QuizMode selects how a session's question queue is built.
type QuizMode string

const (
	// ModeGlobal quizzes the highest-frequency tokens of the whole corpus.
	ModeGlobal QuizMode = "global"
	// ModeBook restricts frequency analysis to one book.
	ModeBook QuizMode = "book"
	// ModeChapter restricts frequency analysis to one book and chapter.
	ModeChapter QuizMode = "chapter"
	// ModeDue quizzes stored cards whose next review date has passed.
	ModeDue QuizMode = "due"
	// ModeCustom quizzes a caller-supplied word list.
	ModeCustom QuizMode = "custom"
)

// SessionState identifies where a session is in its lifecycle.
type SessionState string

const (
	StateInactive         SessionState = "inactive"
	StateAwaitingQuestion SessionState = "awaiting_question"
	StateAwaitingAnswer   SessionState = "awaiting_answer"
)

// Question is the token currently awaiting an answer, with the glosses the
// oracle considers acceptable.
type Question struct {
	Token   string   `json:"token"`
	Glosses []string `json:"glosses"`
}

// QuizSession is a user's quiz, one per user. The queue is FIFO; Total is
// fixed at creation and Asked never exceeds it. Ended sessions keep their
// final counters with Active=false.
type QuizSession struct {
	UserID    string    `json:"user_id"`
	Active    bool      `json:"active"`
	Mode      QuizMode  `json:"mode"`
	Book      string    `json:"book,omitempty"`
	Chapter   int       `json:"chapter,omitempty"`
	Normalize bool      `json:"normalize"`
	Queue     []string  `json:"queue"`
	Asked     int       `json:"asked"`
	Correct   int       `json:"correct"`
	Total     int       `json:"total"`
	Current   *Question `json:"current,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State derives the lifecycle state from the session fields.
func (s *QuizSession) State() SessionState {
	switch {
	case s == nil || !s.Active:
		return StateInactive
	case s.Current != nil:
		return StateAwaitingAnswer
	default:
		return StateAwaitingQuestion
	}
}

// Remaining is the number of queued tokens not yet served.
func (s *QuizSession) Remaining() int {
	if s == nil {
		return 0
	}
	return len(s.Queue)
}
