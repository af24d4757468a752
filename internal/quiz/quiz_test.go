package quiz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/example/koinebot/internal/spaced_repetition"
	"github.com/example/koinebot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type memSessionStore struct {
	sessions map[string]*models.QuizSession
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]*models.QuizSession)}
}

func (s *memSessionStore) Get(ctx context.Context, userID string) (*models.QuizSession, error) {
	session, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	copied := *session
	if session.Current != nil {
		q := *session.Current
		copied.Current = &q
	}
	copied.Queue = append([]string(nil), session.Queue...)
	return &copied, nil
}

func (s *memSessionStore) Save(ctx context.Context, session *models.QuizSession) error {
	copied := *session
	s.sessions[session.UserID] = &copied
	return nil
}

type memCardStore struct {
	cards map[string]*models.VocabularyCard
}

func newMemCardStore() *memCardStore {
	return &memCardStore{cards: make(map[string]*models.VocabularyCard)}
}

func (s *memCardStore) key(userID, word string) string { return userID + "/" + word }

func (s *memCardStore) Get(ctx context.Context, userID, word string) (*models.VocabularyCard, error) {
	card, ok := s.cards[s.key(userID, word)]
	if !ok {
		return nil, nil
	}
	copied := *card
	return &copied, nil
}

func (s *memCardStore) Upsert(ctx context.Context, card *models.VocabularyCard) error {
	copied := *card
	s.cards[s.key(card.UserID, card.Word)] = &copied
	return nil
}

func (s *memCardStore) Due(ctx context.Context, userID string, now time.Time, limit int) ([]models.VocabularyCard, error) {
	var due []models.VocabularyCard
	for _, card := range s.cards {
		if card.UserID != userID {
			continue
		}
		if card.NextReviewDate == nil || !card.NextReviewDate.After(now) {
			due = append(due, *card)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if (a.NextReviewDate == nil) != (b.NextReviewDate == nil) {
			return a.NextReviewDate == nil
		}
		if a.NextReviewDate != nil && !a.NextReviewDate.Equal(*b.NextReviewDate) {
			return a.NextReviewDate.Before(*b.NextReviewDate)
		}
		return a.Word < b.Word
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *memCardStore) Words(ctx context.Context, userID string) ([]string, error) {
	var words []string
	for _, card := range s.cards {
		if card.UserID == userID {
			words = append(words, card.Word)
		}
	}
	sort.Strings(words)
	return words, nil
}

type fakeOracle struct {
	glosses     map[string][]string
	verdict     models.Verdict
	explanation string
	glossErr    error
	verdictErr  error
}

func (o *fakeOracle) Glosses(ctx context.Context, token string) ([]string, error) {
	if o.glossErr != nil {
		return nil, o.glossErr
	}
	return o.glosses[token], nil
}

func (o *fakeOracle) Verdict(ctx context.Context, token string, glosses []string, answer string) (models.Verdict, string, error) {
	if o.verdictErr != nil {
		return "", "", o.verdictErr
	}
	return o.verdict, o.explanation, nil
}

func newTestManager(oracle Oracle, verses []models.Verse) (*Manager, *memSessionStore, *memCardStore) {
	sessions := newMemSessionStore()
	cards := newMemCardStore()
	m := New(sessions, cards, oracle, verses)
	m.now = func() time.Time { return testNow }
	return m, sessions, cards
}

var testVerses = []models.Verse{
	{Book: "John", Chapter: 1, Verse: 1, Text: "λόγος λόγος θεός ἀρχή"},
	{Book: "Romans", Chapter: 1, Verse: 1, Text: "Παῦλος δοῦλος"},
}

func TestStartGlobal(t *testing.T) {
	oracle := &fakeOracle{}
	m, _, _ := newTestManager(oracle, testVerses)

	session, err := m.Start(context.Background(), "u1", StartOptions{Mode: models.ModeGlobal, Count: 3, Normalize: true})
	require.NoError(t, err)
	assert.True(t, session.Active)
	assert.Equal(t, 3, session.Total)
	assert.Equal(t, "λογος", session.Queue[0], "highest-frequency token first")
}

func TestStartChapterWithoutChapter(t *testing.T) {
	m, _, _ := newTestManager(&fakeOracle{}, testVerses)

	_, err := m.Start(context.Background(), "u1", StartOptions{Mode: models.ModeChapter, Book: "John"})
	assert.ErrorIs(t, err, ErrMissingScope)
}

func TestStartBookWithoutBook(t *testing.T) {
	m, _, _ := newTestManager(&fakeOracle{}, testVerses)

	_, err := m.Start(context.Background(), "u1", StartOptions{Mode: models.ModeBook})
	assert.ErrorIs(t, err, ErrMissingScope)
}

func TestStartUnknownBook(t *testing.T) {
	m, _, _ := newTestManager(&fakeOracle{}, testVerses)

	_, err := m.Start(context.Background(), "u1", StartOptions{Mode: models.ModeBook, Book: "Narnia"})
	assert.ErrorIs(t, err, ErrMissingScope)
}

func TestStartEmptyScope(t *testing.T) {
	m, _, _ := newTestManager(&fakeOracle{}, testVerses)

	_, err := m.Start(context.Background(), "u1", StartOptions{Mode: models.ModeBook, Book: "Jude"})
	assert.ErrorIs(t, err, ErrEmptyScope)
}

func TestStartCustomDeduplicatesByNormalizedKey(t *testing.T) {
	m, _, _ := newTestManager(&fakeOracle{}, nil)

	session, err := m.Start(context.Background(), "u1", StartOptions{
		Mode:  models.ModeCustom,
		Words: []string{"λόγος", "Λόγος", "θεός", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"λόγος", "θεός"}, session.Queue)
	assert.Equal(t, 2, session.Total)
}

func TestStartCustomWithoutCountTakesWholeList(t *testing.T) {
	m, _, _ := newTestManager(&fakeOracle{}, nil)

	words := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		words = append(words, fmt.Sprintf("λεξις%c", 'α'+rune(i)))
	}
	session, err := m.Start(context.Background(), "u1", StartOptions{Mode: models.ModeCustom, Words: words})
	require.NoError(t, err)
	assert.Equal(t, 12, session.Total)
	assert.Equal(t, words, session.Queue)
}

func TestStartCustomCapsOnlyWhenCountGiven(t *testing.T) {
	m, _, _ := newTestManager(&fakeOracle{}, nil)

	session, err := m.Start(context.Background(), "u1", StartOptions{
		Mode:  models.ModeCustom,
		Count: 2,
		Words: []string{"λόγος", "θεός", "ἀρχή"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"λόγος", "θεός"}, session.Queue)
}

func TestStartGlobalDefaultsCount(t *testing.T) {
	// Eleven distinct tokens in one verse; a start without a count still
	// caps the frequency queue at the default.
	verses := []models.Verse{{Book: "John", Chapter: 1, Verse: 1,
		Text: "ἀρχή λόγος θεός φῶς ζωή κόσμος σάρξ χάρις ἀλήθεια δόξα νόμος"}}
	m, _, _ := newTestManager(&fakeOracle{}, verses)

	session, err := m.Start(context.Background(), "u1", StartOptions{Mode: models.ModeGlobal, Normalize: true})
	require.NoError(t, err)
	assert.Equal(t, DefaultCount, session.Total)
}

func TestStartReplacesExistingSession(t *testing.T) {
	m, _, _ := newTestManager(&fakeOracle{glosses: map[string][]string{"λόγος": {"word"}}}, nil)

	_, err := m.Start(context.Background(), "u1", StartOptions{Mode: models.ModeCustom, Words: []string{"λόγος"}})
	require.NoError(t, err)
	_, err = m.Next(context.Background(), "u1")
	require.NoError(t, err)

	session, err := m.Start(context.Background(), "u1", StartOptions{Mode: models.ModeCustom, Words: []string{"θεός"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"θεός"}, session.Queue)
	assert.Nil(t, session.Current)
	assert.Zero(t, session.Asked)
}

func TestFullCustomSessionLifecycle(t *testing.T) {
	oracle := &fakeOracle{
		glosses: map[string][]string{"λόγος": {"Word", " REASON "}, "θεός": {"god"}},
		verdict: models.VerdictCorrect,
	}
	m, _, cards := newTestManager(oracle, nil)
	ctx := context.Background()

	session, err := m.Start(ctx, "u1", StartOptions{Mode: models.ModeCustom, Words: []string{"λόγος", "θεός"}})
	require.NoError(t, err)
	assert.Equal(t, 2, session.Total)

	// Question 1: glosses are cleaned to lowercase trimmed form.
	next, err := m.Next(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, next.Question)
	assert.Equal(t, "λόγος", next.Question.Token)
	assert.Equal(t, []string{"word", "reason"}, next.Question.Glosses)
	assert.False(t, next.Degraded)

	grade, err := m.Grade(ctx, "u1", "word")
	require.NoError(t, err)
	assert.Equal(t, models.VerdictCorrect, grade.Verdict)
	assert.Equal(t, 1, grade.Asked)
	assert.Equal(t, 1, grade.Correct)
	assert.Equal(t, 1, grade.Remaining)

	// Question 2: wrong answer.
	oracle.verdict = models.VerdictIncorrect
	next, err = m.Next(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "θεός", next.Question.Token)

	grade, err = m.Grade(ctx, "u1", "nope")
	require.NoError(t, err)
	assert.Equal(t, 2, grade.Asked)
	assert.Equal(t, 1, grade.Correct)
	assert.Equal(t, 0, grade.Remaining)

	// Queue exhausted.
	next, err = m.Next(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, next.Done)

	summary, err := m.End(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &Summary{Asked: 2, Correct: 1, Total: 2}, summary)

	// Cards were created and scheduled.
	card, err := cards.Get(ctx, "u1", "λόγος")
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, 1, card.TimesReviewed)
	assert.Equal(t, 1.0, card.IntervalDays)
	assert.Equal(t, testNow.Add(24*time.Hour), *card.NextReviewDate)

	failed, err := cards.Get(ctx, "u1", "θεός")
	require.NoError(t, err)
	require.NotNil(t, failed)
	assert.Equal(t, 0, failed.TimesReviewed)
	assert.Equal(t, 0.0, failed.IntervalDays)
}

func TestNextWithoutSession(t *testing.T) {
	m, _, _ := newTestManager(&fakeOracle{}, nil)

	_, err := m.Next(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestNextReservesPendingQuestion(t *testing.T) {
	oracle := &fakeOracle{glosses: map[string][]string{"λόγος": {"word"}}}
	m, _, _ := newTestManager(oracle, nil)
	ctx := context.Background()

	_, err := m.Start(ctx, "u1", StartOptions{Mode: models.ModeCustom, Words: []string{"λόγος", "θεός"}})
	require.NoError(t, err)

	first, err := m.Next(ctx, "u1")
	require.NoError(t, err)
	second, err := m.Next(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, first.Question.Token, second.Question.Token)

	// The un-graded repeat did not consume the queue.
	grade, err := m.Grade(ctx, "u1", "word")
	require.NoError(t, err)
	assert.Equal(t, 1, grade.Remaining)
}

func TestNextDegradedOracle(t *testing.T) {
	oracle := &fakeOracle{glossErr: errors.New("oracle down")}
	m, _, _ := newTestManager(oracle, nil)
	ctx := context.Background()

	_, err := m.Start(ctx, "u1", StartOptions{Mode: models.ModeCustom, Words: []string{"λόγος"}})
	require.NoError(t, err)

	next, err := m.Next(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, next.Degraded)
	assert.Equal(t, []string{PlaceholderGloss}, next.Question.Glosses)
}

func TestGradeWithoutQuestion(t *testing.T) {
	m, _, _ := newTestManager(&fakeOracle{}, nil)
	ctx := context.Background()

	_, err := m.Start(ctx, "u1", StartOptions{Mode: models.ModeCustom, Words: []string{"λόγος"}})
	require.NoError(t, err)

	_, err = m.Grade(ctx, "u1", "word")
	assert.ErrorIs(t, err, ErrNoCurrentQuestion)
}

func TestGradeWithoutSession(t *testing.T) {
	m, _, _ := newTestManager(&fakeOracle{}, nil)

	_, err := m.Grade(context.Background(), "u1", "word")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestGradeDegradedOracleCountsIncorrect(t *testing.T) {
	oracle := &fakeOracle{
		glosses:    map[string][]string{"λόγος": {"word"}},
		verdictErr: errors.New("oracle down"),
	}
	m, _, cards := newTestManager(oracle, nil)
	ctx := context.Background()

	_, err := m.Start(ctx, "u1", StartOptions{Mode: models.ModeCustom, Words: []string{"λόγος"}})
	require.NoError(t, err)
	_, err = m.Next(ctx, "u1")
	require.NoError(t, err)

	grade, err := m.Grade(ctx, "u1", "word")
	require.NoError(t, err)
	assert.True(t, grade.Degraded)
	assert.Equal(t, models.VerdictIncorrect, grade.Verdict)
	assert.NotEmpty(t, grade.Explanation)
	assert.Equal(t, 1, grade.Asked)
	assert.Equal(t, 0, grade.Correct)

	// The failed review still reset the card's ladder.
	card, err := cards.Get(ctx, "u1", "λόγος")
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, 0, card.TimesReviewed)
}

func TestGradeNormalizesOracleVerdict(t *testing.T) {
	oracle := &fakeOracle{
		glosses: map[string][]string{"λόγος": {"word"}},
		verdict: models.Verdict("  Correct "),
	}
	m, _, _ := newTestManager(oracle, nil)
	ctx := context.Background()

	_, err := m.Start(ctx, "u1", StartOptions{Mode: models.ModeCustom, Words: []string{"λόγος"}})
	require.NoError(t, err)
	_, err = m.Next(ctx, "u1")
	require.NoError(t, err)

	grade, err := m.Grade(ctx, "u1", "word")
	require.NoError(t, err)
	assert.Equal(t, models.VerdictCorrect, grade.Verdict)
	assert.Equal(t, spaced_repetition.QualityPerfect, grade.Quality)
	assert.Equal(t, 1, grade.Correct, "a cased verdict still counts as correct")
}

func TestGradeRepeatedAnswerFails(t *testing.T) {
	oracle := &fakeOracle{glosses: map[string][]string{"λόγος": {"word"}}, verdict: models.VerdictCorrect}
	m, _, _ := newTestManager(oracle, nil)
	ctx := context.Background()

	_, err := m.Start(ctx, "u1", StartOptions{Mode: models.ModeCustom, Words: []string{"λόγος", "θεός"}})
	require.NoError(t, err)
	_, err = m.Next(ctx, "u1")
	require.NoError(t, err)
	_, err = m.Grade(ctx, "u1", "word")
	require.NoError(t, err)

	_, err = m.Grade(ctx, "u1", "word")
	assert.ErrorIs(t, err, ErrNoCurrentQuestion)
}

func TestDueMode(t *testing.T) {
	oracle := &fakeOracle{}
	m, _, cards := newTestManager(oracle, nil)
	ctx := context.Background()

	overdue := testNow.Add(-24 * time.Hour)
	future := testNow.Add(48 * time.Hour)
	cardA := models.NewVocabularyCard("u1", "λογος")
	cardA.NextReviewDate = &overdue
	cardB := models.NewVocabularyCard("u1", "θεος") // never reviewed, due immediately
	cardC := models.NewVocabularyCard("u1", "αρχη")
	cardC.NextReviewDate = &future
	for _, c := range []*models.VocabularyCard{cardA, cardB, cardC} {
		require.NoError(t, cards.Upsert(ctx, c))
	}

	session, err := m.Start(ctx, "u1", StartOptions{Mode: models.ModeDue})
	require.NoError(t, err)
	assert.Equal(t, []string{"θεος", "λογος"}, session.Queue, "never-reviewed cards come first")
}

func TestDueModeEmpty(t *testing.T) {
	m, _, _ := newTestManager(&fakeOracle{}, nil)

	_, err := m.Start(context.Background(), "u1", StartOptions{Mode: models.ModeDue})
	assert.ErrorIs(t, err, ErrEmptyScope)
}

func TestEndIsIdempotent(t *testing.T) {
	oracle := &fakeOracle{glosses: map[string][]string{"λόγος": {"word"}}}
	m, _, _ := newTestManager(oracle, nil)
	ctx := context.Background()

	_, err := m.Start(ctx, "u1", StartOptions{Mode: models.ModeCustom, Words: []string{"λόγος"}})
	require.NoError(t, err)
	_, err = m.Next(ctx, "u1")
	require.NoError(t, err)

	first, err := m.End(ctx, "u1")
	require.NoError(t, err)
	second, err := m.End(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A session ended mid-question no longer serves questions.
	_, err = m.Next(ctx, "u1")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestEndWithNoSession(t *testing.T) {
	m, _, _ := newTestManager(&fakeOracle{}, nil)

	summary, err := m.End(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, &Summary{}, summary)
}
