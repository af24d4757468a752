package quiz

import "errors"

// Sentinel errors for the quiz package. Validation errors are surfaced to
// the caller unchanged; check with errors.Is.
var (
	ErrMissingScope      = errors.New("quiz: mode requires a book or chapter scope")
	ErrEmptyScope        = errors.New("quiz: no candidate words in scope")
	ErrNoActiveSession   = errors.New("quiz: no active session")
	ErrNoCurrentQuestion = errors.New("quiz: no current question")
)
