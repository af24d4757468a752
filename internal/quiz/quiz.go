// Package quiz drives per-user vocabulary quiz sessions: building the
// question queue, serving questions, grading answers through the oracle
// and feeding results into the spaced-repetition scheduler.
package quiz

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/example/koinebot/internal/corpus"
	"github.com/example/koinebot/internal/greek"
	"github.com/example/koinebot/internal/spaced_repetition"
	"github.com/example/koinebot/internal/vocab"
	"github.com/example/koinebot/pkg/models"
)

// DefaultCount is the queue length used when the caller does not ask for
// a specific number of questions.
const DefaultCount = 10

// PlaceholderGloss stands in when the oracle yields no usable glosses, so
// grading can proceed instead of stalling the session.
const PlaceholderGloss = "unknown"

// CardStore persists vocabulary cards keyed by (user, word).
type CardStore interface {
	// Get returns the card or (nil, nil) when absent.
	Get(ctx context.Context, userID, word string) (*models.VocabularyCard, error)
	Upsert(ctx context.Context, card *models.VocabularyCard) error
	// Due returns cards with no next review date or one at/before now,
	// nulls first then ascending date. A limit <= 0 means no limit.
	Due(ctx context.Context, userID string, now time.Time, limit int) ([]models.VocabularyCard, error)
	Words(ctx context.Context, userID string) ([]string, error)
}

// SessionStore persists whole quiz sessions keyed by user.
type SessionStore interface {
	// Get returns the session or (nil, nil) when the user has none.
	Get(ctx context.Context, userID string) (*models.QuizSession, error)
	Save(ctx context.Context, session *models.QuizSession) error
}

// Oracle supplies candidate glosses for a token and grades answers
// against them. Implementations must bound their own latency; the manager
// recovers from any error with a degraded fallback.
type Oracle interface {
	Glosses(ctx context.Context, token string) ([]string, error)
	Verdict(ctx context.Context, token string, glosses []string, answer string) (models.Verdict, string, error)
}

// Manager runs quiz sessions. Operations for one user are serialized by a
// per-user mutex so racing requests cannot overwrite each other's
// read-modify-write of the stored session.
type Manager struct {
	sessions SessionStore
	cards    CardStore
	oracle   Oracle
	verses   []models.Verse
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a manager over the given stores, oracle and verse corpus.
func New(sessions SessionStore, cards CardStore, oracle Oracle, verses []models.Verse) *Manager {
	return &Manager{
		sessions: sessions,
		cards:    cards,
		oracle:   oracle,
		verses:   verses,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

// StartOptions configures a new session.
type StartOptions struct {
	Mode    models.QuizMode
	Book    string // required for book and chapter modes
	Chapter int    // required for chapter mode
	// Count caps the queue length. Zero means DefaultCount for the
	// frequency and due modes; a custom word list is only capped when a
	// count was given.
	Count     int
	Normalize bool
	Words     []string // custom mode only
}

// Start builds the question queue for the requested mode and replaces any
// existing session for the user. It fails with ErrMissingScope when the
// mode needs a book or chapter that was not given, and with ErrEmptyScope
// when the scope yields no candidates.
func (m *Manager) Start(ctx context.Context, userID string, opts StartOptions) (*models.QuizSession, error) {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	queue, err := m.buildQueue(ctx, userID, &opts)
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		return nil, fmt.Errorf("%w (mode %s)", ErrEmptyScope, opts.Mode)
	}

	session := &models.QuizSession{
		UserID:    userID,
		Active:    true,
		Mode:      opts.Mode,
		Book:      opts.Book,
		Chapter:   opts.Chapter,
		Normalize: opts.Normalize,
		Queue:     queue,
		Total:     len(queue),
		UpdatedAt: m.now(),
	}
	if err := m.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("quiz: saving session: %w", err)
	}
	return session, nil
}

func (m *Manager) buildQueue(ctx context.Context, userID string, opts *StartOptions) ([]string, error) {
	switch opts.Mode {
	case models.ModeChapter:
		if opts.Book == "" || opts.Chapter == 0 {
			return nil, fmt.Errorf("%w: chapter mode needs a book and chapter", ErrMissingScope)
		}
	case models.ModeBook:
		if opts.Book == "" {
			return nil, fmt.Errorf("%w: book mode needs a book", ErrMissingScope)
		}
	}

	if opts.Book != "" && (opts.Mode == models.ModeBook || opts.Mode == models.ModeChapter) {
		book, ok := corpus.CanonicalBook(opts.Book)
		if !ok {
			return nil, fmt.Errorf("%w: unknown book %q", ErrMissingScope, opts.Book)
		}
		opts.Book = book
	}

	count := opts.Count
	if count <= 0 {
		count = DefaultCount
	}

	switch opts.Mode {
	case models.ModeGlobal, models.ModeBook, models.ModeChapter:
		scope := corpus.Scope{Book: opts.Book, Chapter: opts.Chapter}
		if opts.Mode == models.ModeGlobal {
			scope = corpus.Scope{}
		}
		freq := corpus.Frequency(m.verses, scope, opts.Normalize)
		return vocab.Select(freq, nil, count), nil

	case models.ModeDue:
		cards, err := m.cards.Due(ctx, userID, m.now(), count)
		if err != nil {
			return nil, fmt.Errorf("quiz: loading due cards: %w", err)
		}
		queue := make([]string, 0, len(cards))
		for _, c := range cards {
			queue = append(queue, c.Word)
		}
		return queue, nil

	case models.ModeCustom:
		// The whole list plays unless the caller asked for a cap.
		seen := make(map[string]bool)
		var queue []string
		for _, w := range opts.Words {
			if w == "" {
				continue
			}
			key := greek.NormalKey(w)
			if seen[key] {
				continue
			}
			seen[key] = true
			queue = append(queue, w)
			if opts.Count > 0 && len(queue) >= opts.Count {
				break
			}
		}
		return queue, nil

	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrMissingScope, opts.Mode)
	}
}

// NextResult is the outcome of advancing the session.
type NextResult struct {
	// Done is set when the queue is exhausted; the caller should End.
	Done bool
	// Question is the token to ask, nil when Done.
	Question *models.Question
	// Degraded is set when the oracle failed and a placeholder gloss is
	// in use.
	Degraded bool
}

// Next serves the next question. If a question is already pending it is
// re-served unchanged; the queue only advances after Grade. An exhausted
// queue returns Done without consuming state.
func (m *Manager) Next(ctx context.Context, userID string) (*NextResult, error) {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	session, err := m.sessions.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("quiz: loading session: %w", err)
	}
	if session == nil || !session.Active {
		return nil, ErrNoActiveSession
	}
	if session.Current != nil {
		return &NextResult{Question: session.Current}, nil
	}
	if len(session.Queue) == 0 {
		return &NextResult{Done: true}, nil
	}

	token := session.Queue[0]
	session.Queue = session.Queue[1:]

	degraded := false
	glosses, err := m.oracle.Glosses(ctx, token)
	if err != nil {
		log.Printf("quiz: gloss lookup for %q failed: %v", token, err)
		glosses = nil
		degraded = true
	}
	glosses = cleanGlosses(glosses)
	if len(glosses) == 0 {
		glosses = []string{PlaceholderGloss}
	}

	session.Current = &models.Question{Token: token, Glosses: glosses}
	session.UpdatedAt = m.now()
	if err := m.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("quiz: saving session: %w", err)
	}
	return &NextResult{Question: session.Current, Degraded: degraded}, nil
}

// GradeResult is the outcome of grading one answer.
type GradeResult struct {
	Verdict     models.Verdict
	Explanation string
	Quality     spaced_repetition.Quality
	Asked       int
	Correct     int
	Remaining   int
	// Degraded is set when the oracle failed and the answer was counted
	// incorrect by fallback rather than judged.
	Degraded bool
}

// Grade judges the pending answer, updates the session counters and runs
// the scheduler on the corresponding card, creating it with defaults if
// absent. Oracle failures degrade to an incorrect verdict with the
// Degraded flag set; they never abort the session.
func (m *Manager) Grade(ctx context.Context, userID, answer string) (*GradeResult, error) {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	session, err := m.sessions.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("quiz: loading session: %w", err)
	}
	if session == nil || !session.Active {
		return nil, ErrNoActiveSession
	}
	if session.Current == nil {
		return nil, ErrNoCurrentQuestion
	}

	token := session.Current.Token
	degraded := false
	verdict, explanation, err := m.oracle.Verdict(ctx, token, session.Current.Glosses, strings.TrimSpace(answer))
	if err != nil {
		log.Printf("quiz: grading %q failed: %v", token, err)
		verdict = models.VerdictIncorrect
		explanation = "grading was unavailable; the answer was counted incorrect"
		degraded = true
	}
	// Canonicalize once so the counter and the quality mapping agree even
	// when an oracle returns a cased or padded verdict.
	verdict = models.Verdict(strings.ToLower(strings.TrimSpace(string(verdict))))

	session.Asked++
	if verdict == models.VerdictCorrect {
		session.Correct++
	}

	quality := spaced_repetition.QualityFromVerdict(verdict)
	if err := m.reviewCard(ctx, userID, token, quality); err != nil {
		return nil, err
	}

	session.Current = nil
	session.UpdatedAt = m.now()
	if err := m.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("quiz: saving session: %w", err)
	}

	return &GradeResult{
		Verdict:     verdict,
		Explanation: explanation,
		Quality:     quality,
		Asked:       session.Asked,
		Correct:     session.Correct,
		Remaining:   len(session.Queue),
		Degraded:    degraded,
	}, nil
}

func (m *Manager) reviewCard(ctx context.Context, userID, word string, quality spaced_repetition.Quality) error {
	card, err := m.cards.Get(ctx, userID, word)
	if err != nil {
		return fmt.Errorf("quiz: loading card for %q: %w", word, err)
	}
	if card == nil {
		card = models.NewVocabularyCard(userID, word)
	}

	now := m.now()
	result := spaced_repetition.Review(quality, spaced_repetition.State{
		EaseFactor:    card.EaseFactor,
		IntervalDays:  card.IntervalDays,
		TimesReviewed: card.TimesReviewed,
	}, now)

	card.EaseFactor = result.EaseFactor
	card.IntervalDays = result.IntervalDays
	card.TimesReviewed = result.TimesReviewed
	card.MasteryScore = spaced_repetition.Mastery(result.EaseFactor, result.IntervalDays)
	card.LastReviewed = &now
	next := result.NextReviewDate
	card.NextReviewDate = &next

	if err := m.cards.Upsert(ctx, card); err != nil {
		return fmt.Errorf("quiz: saving card for %q: %w", word, err)
	}
	return nil
}

// Summary reports a session's final counters.
type Summary struct {
	Asked   int
	Correct int
	Total   int
}

// End deactivates the session and returns its counters. It is idempotent
// and callable from any state, including mid-question; a user with no
// session on record gets a zero summary.
func (m *Manager) End(ctx context.Context, userID string) (*Summary, error) {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	session, err := m.sessions.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("quiz: loading session: %w", err)
	}
	if session == nil {
		return &Summary{}, nil
	}

	summary := &Summary{Asked: session.Asked, Correct: session.Correct, Total: session.Total}
	if session.Active {
		session.Active = false
		session.Current = nil
		session.UpdatedAt = m.now()
		if err := m.sessions.Save(ctx, session); err != nil {
			return nil, fmt.Errorf("quiz: saving session: %w", err)
		}
	}
	return summary, nil
}

func cleanGlosses(glosses []string) []string {
	out := glosses[:0]
	for _, g := range glosses {
		g = strings.ToLower(strings.TrimSpace(g))
		if g != "" {
			out = append(out, g)
		}
	}
	return out
}
