package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// Connect establishes a connection to the database. DB_TYPE selects the
// backend: sqlite (default, file under DATA_DIR) or postgres
// (DATABASE_URL).
func Connect() error {
	dbType := strings.ToLower(os.Getenv("DB_TYPE"))
	if dbType == "" {
		dbType = "sqlite"
	}

	var db *sqlx.DB
	var err error
	switch dbType {
	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}
		db, err = sqlx.Connect("postgres", dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}

	case "sqlite":
		dataDir := os.Getenv("DATA_DIR")
		if dataDir == "" {
			dataDir = "data"
		}
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		dbPath := filepath.Join(dataDir, "tutor.db")
		db, err = sqlx.Connect("sqlite3", dbPath)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}

		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

	default:
		return fmt.Errorf("unsupported DB_TYPE %q", dbType)
	}

	DB = db
	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist. The DDL
// sticks to types both sqlite and postgres accept.
func initializeSchema() error {
	_, err := DB.Exec(`
		CREATE TABLE IF NOT EXISTS vocabulary_progress (
			user_id TEXT NOT NULL,
			vocab_word TEXT NOT NULL,
			times_reviewed INTEGER NOT NULL DEFAULT 0,
			mastery_score REAL NOT NULL DEFAULT 0,
			last_reviewed TIMESTAMP,
			ease_factor REAL NOT NULL DEFAULT 2.5,
			interval_days REAL NOT NULL DEFAULT 0,
			next_review_date TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, vocab_word)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create vocabulary_progress table: %w", err)
	}

	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS quiz_sessions (
			user_id TEXT PRIMARY KEY,
			active BOOLEAN NOT NULL DEFAULT false,
			mode TEXT NOT NULL,
			book TEXT,
			chapter INTEGER,
			normalize_tokens BOOLEAN NOT NULL DEFAULT true,
			queue TEXT NOT NULL,
			asked INTEGER NOT NULL DEFAULT 0,
			correct INTEGER NOT NULL DEFAULT 0,
			total INTEGER NOT NULL DEFAULT 0,
			current TEXT,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create quiz_sessions table: %w", err)
	}

	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS gloss_cache (
			word TEXT PRIMARY KEY,
			glosses TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create gloss_cache table: %w", err)
	}

	return nil
}
