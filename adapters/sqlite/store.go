// Package sqlite stores lessons, phrases and catalog data in a SQLite
// database through the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/repositories"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS languages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    tag TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS voices (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    short_name TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL DEFAULT '',
    language_id INTEGER NOT NULL,
    locale TEXT NOT NULL DEFAULT '',
    gender TEXT NOT NULL DEFAULT '',
    FOREIGN KEY(language_id) REFERENCES languages(id)
);
CREATE TABLE IF NOT EXISTS lessons (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    num_phrases INTEGER NOT NULL,
    popularity INTEGER NOT NULL DEFAULT 0,
    original_language_id INTEGER,
    created_at INTEGER NOT NULL,
    FOREIGN KEY(original_language_id) REFERENCES languages(id)
);
CREATE TABLE IF NOT EXISTS phrases (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    lesson_id INTEGER NOT NULL,
    FOREIGN KEY(lesson_id) REFERENCES lessons(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_phrases_lesson ON phrases(lesson_id, id);
CREATE TABLE IF NOT EXISTS translations (
    phrase_id INTEGER NOT NULL,
    language_id INTEGER NOT NULL,
    text TEXT NOT NULL,
    hint TEXT NOT NULL,
    PRIMARY KEY(phrase_id, language_id),
    FOREIGN KEY(phrase_id) REFERENCES phrases(id) ON DELETE CASCADE,
    FOREIGN KEY(language_id) REFERENCES languages(id)
);
CREATE TABLE IF NOT EXISTS access_tokens (
    hash TEXT PRIMARY KEY,
    used INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
`

// DB wraps the SQLite connection pool.
type DB struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string, logger *zap.Logger) (*DB, error) {
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == MemoryPath {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info("SQLite store opened", zap.String("path", path))
	return &DB{db: db, logger: logger}, nil
}

// Store returns the repositories backed by this database.
func (d *DB) Store() repositories.Store {
	return repositories.Store{
		Lessons:      &LessonRepository{db: d.db},
		Phrases:      &PhraseRepository{db: d.db},
		Translations: &TranslationRepository{db: d.db},
		Languages:    &LanguageRepository{db: d.db},
		Voices:       &VoiceRepository{db: d.db},
		Tokens:       &AccessTokenRepository{db: d.db},
	}
}

// Close releases the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

func isUnique(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf(format+": %w", append(args, domain.ErrNotFound)...)
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}
