package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/koinebot/pkg/models"
)

// SessionRepository handles database operations for quiz sessions
type SessionRepository struct{}

// NewSessionRepository creates a new repository instance
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

// sessionRow is the storage shape; queue and current are JSON columns.
type sessionRow struct {
	UserID    string         `db:"user_id"`
	Active    bool           `db:"active"`
	Mode      string         `db:"mode"`
	Book      sql.NullString `db:"book"`
	Chapter   sql.NullInt64  `db:"chapter"`
	Normalize bool           `db:"normalize_tokens"`
	Queue     string         `db:"queue"`
	Asked     int            `db:"asked"`
	Correct   int            `db:"correct"`
	Total     int            `db:"total"`
	Current   sql.NullString `db:"current"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// Get returns the user's session, or (nil, nil) when there is none.
func (r *SessionRepository) Get(ctx context.Context, userID string) (*models.QuizSession, error) {
	var row sessionRow
	err := DB.GetContext(ctx, &row, "SELECT * FROM quiz_sessions WHERE user_id = $1", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session := &models.QuizSession{
		UserID:    row.UserID,
		Active:    row.Active,
		Mode:      models.QuizMode(row.Mode),
		Book:      row.Book.String,
		Chapter:   int(row.Chapter.Int64),
		Normalize: row.Normalize,
		Asked:     row.Asked,
		Correct:   row.Correct,
		Total:     row.Total,
		UpdatedAt: row.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(row.Queue), &session.Queue); err != nil {
		return nil, fmt.Errorf("failed to decode session queue: %w", err)
	}
	if row.Current.Valid && row.Current.String != "" {
		var q models.Question
		if err := json.Unmarshal([]byte(row.Current.String), &q); err != nil {
			return nil, fmt.Errorf("failed to decode current question: %w", err)
		}
		session.Current = &q
	}
	return session, nil
}

// Save replaces the user's whole session record.
func (r *SessionRepository) Save(ctx context.Context, session *models.QuizSession) error {
	queue, err := json.Marshal(session.Queue)
	if err != nil {
		return fmt.Errorf("failed to encode session queue: %w", err)
	}

	var current sql.NullString
	if session.Current != nil {
		data, err := json.Marshal(session.Current)
		if err != nil {
			return fmt.Errorf("failed to encode current question: %w", err)
		}
		current = sql.NullString{String: string(data), Valid: true}
	}

	var book sql.NullString
	if session.Book != "" {
		book = sql.NullString{String: session.Book, Valid: true}
	}
	var chapter sql.NullInt64
	if session.Chapter != 0 {
		chapter = sql.NullInt64{Int64: int64(session.Chapter), Valid: true}
	}

	_, err = DB.ExecContext(ctx, `
		INSERT INTO quiz_sessions (
			user_id, active, mode, book, chapter, normalize_tokens,
			queue, asked, correct, total, current, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			active = EXCLUDED.active,
			mode = EXCLUDED.mode,
			book = EXCLUDED.book,
			chapter = EXCLUDED.chapter,
			normalize_tokens = EXCLUDED.normalize_tokens,
			queue = EXCLUDED.queue,
			asked = EXCLUDED.asked,
			correct = EXCLUDED.correct,
			total = EXCLUDED.total,
			current = EXCLUDED.current,
			updated_at = EXCLUDED.updated_at
	`,
		session.UserID, session.Active, string(session.Mode), book, chapter, session.Normalize,
		string(queue), session.Asked, session.Correct, session.Total, current, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
