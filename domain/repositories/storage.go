package repositories

import (
	"context"

	"github.com/satriahrh/lingualoop/domain/entities"
)

// LessonRepository defines data access methods for lessons
type LessonRepository interface {
	// Create assigns lesson.ID. Returns domain.ErrDuplicateName when the name is taken.
	Create(ctx context.Context, lesson *entities.Lesson) error
	GetByID(ctx context.Context, id int64) (*entities.Lesson, error)
	GetByName(ctx context.Context, name string) (*entities.Lesson, error)
	List(ctx context.Context) ([]*entities.Lesson, error)
	IncrementPopularity(ctx context.Context, id int64) error
	// Delete removes the lesson with its phrases and their translations.
	Delete(ctx context.Context, id int64) error
}

// PhraseRepository defines data access methods for phrases
type PhraseRepository interface {
	// CreateBatch creates n phrases for the lesson with ascending ids.
	CreateBatch(ctx context.Context, lessonID int64, n int) ([]*entities.Phrase, error)
	// ListByLesson returns the lesson's phrases in creation order.
	ListByLesson(ctx context.Context, lessonID int64) ([]*entities.Phrase, error)
}

// TranslationRepository defines data access methods for translations
type TranslationRepository interface {
	// CreateBatch inserts translations; a (phrase, language) pair may exist only once.
	CreateBatch(ctx context.Context, translations []*entities.Translation) error
	// ListByLessonLanguage returns the translations ordered by phrase id.
	ListByLessonLanguage(ctx context.Context, lessonID, languageID int64) ([]*entities.Translation, error)
}

// LanguageRepository defines data access methods for languages
type LanguageRepository interface {
	Create(ctx context.Context, language *entities.Language) error
	GetByID(ctx context.Context, id int64) (*entities.Language, error)
	GetByTag(ctx context.Context, tag string) (*entities.Language, error)
	List(ctx context.Context) ([]*entities.Language, error)
}

// VoiceRepository defines data access methods for voices
type VoiceRepository interface {
	Create(ctx context.Context, voice *entities.Voice) error
	GetByID(ctx context.Context, id int64) (*entities.Voice, error)
	GetByShortName(ctx context.Context, shortName string) (*entities.Voice, error)
	List(ctx context.Context) ([]*entities.Voice, error)
	ListByLanguage(ctx context.Context, languageID int64) ([]*entities.Voice, error)
}

// AccessTokenRepository stores single-use access tokens by hash
type AccessTokenRepository interface {
	Create(ctx context.Context, hash string) error
	// Status reports Valid=false for unknown hashes.
	Status(ctx context.Context, hash string) (entities.TokenStatus, error)
	// MarkUsed claims an unused token atomically. A token that is already
	// used yields domain.ErrAlreadyUsed, an unknown one domain.ErrNotFound.
	MarkUsed(ctx context.Context, hash string) error
}

// Store bundles the repositories of one storage backend.
type Store struct {
	Lessons      LessonRepository
	Phrases      PhraseRepository
	Translations TranslationRepository
	Languages    LanguageRepository
	Voices       VoiceRepository
	Tokens       AccessTokenRepository
}
