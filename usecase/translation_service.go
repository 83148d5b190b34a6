package usecase

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/entities"
	"github.com/satriahrh/lingualoop/domain/repositories"
)

// LessonPhrases is a lesson loaded with its phrases and their text in the
// lesson's original language, in phrase order.
type LessonPhrases struct {
	Lesson   *entities.Lesson
	Original *entities.Language
	Phrases  []*entities.Phrase
	Texts    []*entities.Translation
}

// PhraseIDs maps 1-based phrase ordinals to phrase ids
func (l *LessonPhrases) PhraseIDs() map[int]int64 {
	ids := make(map[int]int64, len(l.Phrases))
	for i, p := range l.Phrases {
		ids[i+1] = p.ID
	}
	return ids
}

// TranslationService obtains phrase translations, calling the translator only
// for phrases that have no stored translation in the requested language.
type TranslationService struct {
	store      repositories.Store
	translator repositories.Translator
	languages  *LanguageCache
	logger     *zap.Logger
}

// NewTranslationService creates a new translation service
func NewTranslationService(
	store repositories.Store,
	translator repositories.Translator,
	languages *LanguageCache,
	logger *zap.Logger,
) *TranslationService {
	return &TranslationService{
		store:      store,
		translator: translator,
		languages:  languages,
		logger:     logger,
	}
}

// LoadLesson fetches a lesson with its phrases and original-language texts.
// A lesson without an original language, or whose stored counts disagree
// with its phrase count, is rejected before any translation work.
func (s *TranslationService) LoadLesson(ctx context.Context, lessonID int64) (*LessonPhrases, error) {
	lesson, err := s.store.Lessons.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.OriginalLanguageID == nil {
		return nil, fmt.Errorf("%w: lesson %q", domain.ErrMissingOriginalLanguage, lesson.Name)
	}
	original, err := s.languages.GetByID(ctx, *lesson.OriginalLanguageID)
	if err != nil {
		return nil, err
	}

	phrases, err := s.store.Phrases.ListByLesson(ctx, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("list phrases: %w", err)
	}
	if len(phrases) != lesson.NumPhrases {
		return nil, fmt.Errorf("%w: lesson %q has %d phrases, expected %d",
			domain.ErrPhraseCountMismatch, lesson.Name, len(phrases), lesson.NumPhrases)
	}

	texts, err := s.store.Translations.ListByLessonLanguage(ctx, lesson.ID, original.ID)
	if err != nil {
		return nil, fmt.Errorf("list original translations: %w", err)
	}
	if len(texts) != lesson.NumPhrases {
		return nil, fmt.Errorf("%w: lesson %q has %d %s translations, expected %d",
			domain.ErrPhraseCountMismatch, lesson.Name, len(texts), original.Tag, lesson.NumPhrases)
	}

	return &LessonPhrases{Lesson: lesson, Original: original, Phrases: phrases, Texts: texts}, nil
}

// GetOrCreate returns the translations of source into to, ordered by phrase
// id. Stored rows are reused; the remaining phrases are translated from the
// source texts in one batch and persisted. Translating into the source
// language returns source unchanged.
func (s *TranslationService) GetOrCreate(
	ctx context.Context,
	lesson *entities.Lesson,
	source []*entities.Translation,
	from, to *entities.Language,
) ([]*entities.Translation, error) {
	if from.ID == to.ID {
		return source, nil
	}

	existing, err := s.store.Translations.ListByLessonLanguage(ctx, lesson.ID, to.ID)
	if err != nil {
		return nil, fmt.Errorf("list %s translations: %w", to.Tag, err)
	}
	have := make(map[int64]bool, len(existing))
	for _, t := range existing {
		have[t.PhraseID] = true
	}

	var missing []*entities.Translation
	for _, t := range source {
		if !have[t.PhraseID] {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 {
		s.logger.Debug("Translations cached",
			zap.String("lesson", lesson.Name),
			zap.String("language", to.Tag))
		return existing, nil
	}

	texts := make([]string, len(missing))
	for i, t := range missing {
		texts[i] = t.Text
	}
	translated, err := s.translator.TranslateBatch(ctx, texts, from.Tag, to.Tag)
	if err != nil {
		return nil, domain.Cancelled(ctx, err)
	}
	if len(translated) != len(missing) {
		return nil, domain.NewVendorError("translator", "length_mismatch",
			fmt.Errorf("got %d translations for %d phrases", len(translated), len(missing)))
	}

	created := make([]*entities.Translation, len(missing))
	for i, t := range missing {
		created[i] = entities.NewTranslation(t.PhraseID, to.ID, translated[i])
	}
	if err := s.store.Translations.CreateBatch(ctx, created); err != nil {
		return nil, fmt.Errorf("store %s translations: %w", to.Tag, err)
	}

	s.logger.Info("Translations created",
		zap.String("lesson", lesson.Name),
		zap.String("from", from.Tag),
		zap.String("to", to.Tag),
		zap.Int("count", len(created)))

	all := append(existing, created...)
	sort.Slice(all, func(i, j int) bool { return all[i].PhraseID < all[j].PhraseID })
	return all, nil
}
