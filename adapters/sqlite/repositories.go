package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/entities"
	"github.com/satriahrh/lingualoop/domain/repositories"
)

// LessonRepository implements repositories.LessonRepository
type LessonRepository struct{ db *sql.DB }

const lessonColumns = `id, name, description, num_phrases, popularity, original_language_id, created_at`

func scanLesson(row scanner) (*entities.Lesson, error) {
	var (
		l        entities.Lesson
		original sql.NullInt64
		created  int64
	)
	if err := row.Scan(&l.ID, &l.Name, &l.Description, &l.NumPhrases, &l.Popularity, &original, &created); err != nil {
		return nil, err
	}
	if original.Valid {
		l.OriginalLanguageID = &original.Int64
	}
	l.CreatedAt = time.Unix(0, created).UTC()
	return &l, nil
}

func (r *LessonRepository) Create(ctx context.Context, lesson *entities.Lesson) error {
	if err := lesson.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = time.Now().UTC()
	}
	var original sql.NullInt64
	if lesson.OriginalLanguageID != nil {
		original = sql.NullInt64{Int64: *lesson.OriginalLanguageID, Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO lessons(name, description, num_phrases, popularity, original_language_id, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		lesson.Name, lesson.Description, lesson.NumPhrases, lesson.Popularity, original, lesson.CreatedAt.UnixNano())
	if err != nil {
		if isUnique(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateName, lesson.Name)
		}
		return fmt.Errorf("insert lesson: %w", err)
	}
	lesson.ID, err = res.LastInsertId()
	return err
}

func (r *LessonRepository) GetByID(ctx context.Context, id int64) (*entities.Lesson, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = ?`, id)
	l, err := scanLesson(row)
	if err != nil {
		return nil, notFound(err, "lesson %d", id)
	}
	return l, nil
}

func (r *LessonRepository) GetByName(ctx context.Context, name string) (*entities.Lesson, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE name = ?`, name)
	l, err := scanLesson(row)
	if err != nil {
		return nil, notFound(err, "lesson %q", name)
	}
	return l, nil
}

func (r *LessonRepository) List(ctx context.Context) ([]*entities.Lesson, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+lessonColumns+` FROM lessons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var out []*entities.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *LessonRepository) IncrementPopularity(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE lessons SET popularity = popularity + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment popularity: %w", err)
	}
	return expectRow(res, "lesson %d", id)
}

func (r *LessonRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return expectRow(res, "lesson %d", id)
}

func expectRow(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf(format+": %w", append(args, domain.ErrNotFound)...)
	}
	return nil
}

// PhraseRepository implements repositories.PhraseRepository
type PhraseRepository struct{ db *sql.DB }

func (r *PhraseRepository) CreateBatch(ctx context.Context, lessonID int64, n int) ([]*entities.Phrase, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM lessons WHERE id = ?`, lessonID).Scan(&exists); err != nil {
		return nil, notFound(err, "lesson %d", lessonID)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO phrases(lesson_id) VALUES(?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	out := make([]*entities.Phrase, n)
	for i := range out {
		res, err := stmt.ExecContext(ctx, lessonID)
		if err != nil {
			return nil, fmt.Errorf("insert phrase: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		out[i] = &entities.Phrase{ID: id, LessonID: lessonID}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PhraseRepository) ListByLesson(ctx context.Context, lessonID int64) ([]*entities.Phrase, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, lesson_id FROM phrases WHERE lesson_id = ? ORDER BY id`, lessonID)
	if err != nil {
		return nil, fmt.Errorf("list phrases: %w", err)
	}
	defer rows.Close()

	var out []*entities.Phrase
	for rows.Next() {
		var p entities.Phrase
		if err := rows.Scan(&p.ID, &p.LessonID); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// TranslationRepository implements repositories.TranslationRepository
type TranslationRepository struct{ db *sql.DB }

func (r *TranslationRepository) CreateBatch(ctx context.Context, translations []*entities.Translation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO translations(phrase_id, language_id, text, hint) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range translations {
		if _, err := stmt.ExecContext(ctx, t.PhraseID, t.LanguageID, t.Text, t.Hint); err != nil {
			if isUnique(err) {
				return fmt.Errorf("translation of phrase %d into language %d already exists", t.PhraseID, t.LanguageID)
			}
			return fmt.Errorf("insert translation: %w", err)
		}
	}
	return tx.Commit()
}

func (r *TranslationRepository) ListByLessonLanguage(ctx context.Context, lessonID, languageID int64) ([]*entities.Translation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.phrase_id, t.language_id, t.text, t.hint
		 FROM translations t JOIN phrases p ON p.id = t.phrase_id
		 WHERE p.lesson_id = ? AND t.language_id = ?
		 ORDER BY t.phrase_id`, lessonID, languageID)
	if err != nil {
		return nil, fmt.Errorf("list translations: %w", err)
	}
	defer rows.Close()

	var out []*entities.Translation
	for rows.Next() {
		var t entities.Translation
		if err := rows.Scan(&t.PhraseID, &t.LanguageID, &t.Text, &t.Hint); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// LanguageRepository implements repositories.LanguageRepository
type LanguageRepository struct{ db *sql.DB }

func (r *LanguageRepository) Create(ctx context.Context, language *entities.Language) error {
	if err := language.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO languages(name, tag) VALUES(?, ?)`, language.Name, language.Tag)
	if err != nil {
		if isUnique(err) {
			return fmt.Errorf("%w: language %s", domain.ErrDuplicateName, language.Tag)
		}
		return fmt.Errorf("insert language: %w", err)
	}
	language.ID, err = res.LastInsertId()
	return err
}

func (r *LanguageRepository) GetByID(ctx context.Context, id int64) (*entities.Language, error) {
	var l entities.Language
	err := r.db.QueryRowContext(ctx, `SELECT id, name, tag FROM languages WHERE id = ?`, id).Scan(&l.ID, &l.Name, &l.Tag)
	if err != nil {
		return nil, notFound(err, "language %d", id)
	}
	return &l, nil
}

func (r *LanguageRepository) GetByTag(ctx context.Context, tag string) (*entities.Language, error) {
	var l entities.Language
	err := r.db.QueryRowContext(ctx, `SELECT id, name, tag FROM languages WHERE tag = ?`, tag).Scan(&l.ID, &l.Name, &l.Tag)
	if err != nil {
		return nil, notFound(err, "language %q", tag)
	}
	return &l, nil
}

func (r *LanguageRepository) List(ctx context.Context) ([]*entities.Language, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, tag FROM languages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	defer rows.Close()

	var out []*entities.Language
	for rows.Next() {
		var l entities.Language
		if err := rows.Scan(&l.ID, &l.Name, &l.Tag); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// VoiceRepository implements repositories.VoiceRepository
type VoiceRepository struct{ db *sql.DB }

const voiceColumns = `id, short_name, display_name, language_id, locale, gender`

func scanVoice(row scanner) (*entities.Voice, error) {
	var v entities.Voice
	if err := row.Scan(&v.ID, &v.ShortName, &v.DisplayName, &v.LanguageID, &v.Locale, &v.Gender); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VoiceRepository) Create(ctx context.Context, voice *entities.Voice) error {
	if err := voice.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM languages WHERE id = ?`, voice.LanguageID).Scan(&exists); err != nil {
		return notFound(err, "language %d", voice.LanguageID)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO voices(short_name, display_name, language_id, locale, gender) VALUES(?, ?, ?, ?, ?)`,
		voice.ShortName, voice.DisplayName, voice.LanguageID, voice.Locale, voice.Gender)
	if err != nil {
		if isUnique(err) {
			return fmt.Errorf("%w: voice %s", domain.ErrDuplicateName, voice.ShortName)
		}
		return fmt.Errorf("insert voice: %w", err)
	}
	voice.ID, err = res.LastInsertId()
	return err
}

func (r *VoiceRepository) GetByID(ctx context.Context, id int64) (*entities.Voice, error) {
	v, err := scanVoice(r.db.QueryRowContext(ctx, `SELECT `+voiceColumns+` FROM voices WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "voice %d", id)
	}
	return v, nil
}

func (r *VoiceRepository) GetByShortName(ctx context.Context, shortName string) (*entities.Voice, error) {
	v, err := scanVoice(r.db.QueryRowContext(ctx, `SELECT `+voiceColumns+` FROM voices WHERE short_name = ?`, shortName))
	if err != nil {
		return nil, notFound(err, "voice %q", shortName)
	}
	return v, nil
}

func (r *VoiceRepository) List(ctx context.Context) ([]*entities.Voice, error) {
	return r.query(ctx, `SELECT `+voiceColumns+` FROM voices ORDER BY id`)
}

func (r *VoiceRepository) ListByLanguage(ctx context.Context, languageID int64) ([]*entities.Voice, error) {
	return r.query(ctx, `SELECT `+voiceColumns+` FROM voices WHERE language_id = ? ORDER BY id`, languageID)
}

func (r *VoiceRepository) query(ctx context.Context, q string, args ...any) ([]*entities.Voice, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	defer rows.Close()

	var out []*entities.Voice
	for rows.Next() {
		v, err := scanVoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// AccessTokenRepository implements repositories.AccessTokenRepository
type AccessTokenRepository struct{ db *sql.DB }

func (r *AccessTokenRepository) Create(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO access_tokens(hash, used, created_at) VALUES(?, 0, ?)`, hash, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (r *AccessTokenRepository) Status(ctx context.Context, hash string) (entities.TokenStatus, error) {
	var used bool
	err := r.db.QueryRowContext(ctx, `SELECT used FROM access_tokens WHERE hash = ?`, hash).Scan(&used)
	if err == sql.ErrNoRows {
		return entities.TokenStatus{}, nil
	}
	if err != nil {
		return entities.TokenStatus{}, fmt.Errorf("token status: %w", err)
	}
	return entities.TokenStatus{Valid: true, AlreadyUsed: used}, nil
}

func (r *AccessTokenRepository) MarkUsed(ctx context.Context, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE access_tokens SET used = 1 WHERE hash = ? AND used = 0`, hash)
	if err != nil {
		return fmt.Errorf("mark token used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark token used: %w", err)
	}
	if n == 1 {
		return nil
	}
	status, err := r.Status(ctx, hash)
	if err != nil {
		return err
	}
	if !status.Valid {
		return fmt.Errorf("token: %w", domain.ErrNotFound)
	}
	return fmt.Errorf("token: %w", domain.ErrAlreadyUsed)
}

var (
	_ repositories.LessonRepository      = (*LessonRepository)(nil)
	_ repositories.PhraseRepository      = (*PhraseRepository)(nil)
	_ repositories.TranslationRepository = (*TranslationRepository)(nil)
	_ repositories.LanguageRepository    = (*LanguageRepository)(nil)
	_ repositories.VoiceRepository       = (*VoiceRepository)(nil)
	_ repositories.AccessTokenRepository = (*AccessTokenRepository)(nil)
)
