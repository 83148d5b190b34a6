package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/entities"
	"github.com/satriahrh/lingualoop/domain/repositories"
	"github.com/satriahrh/lingualoop/internal/archive"
	"github.com/satriahrh/lingualoop/internal/parser"
)

// detectionSamples is the number of phrases sent for language detection.
const detectionSamples = 3

// LessonService turns uploaded documents into phrase batches or stored lessons
type LessonService struct {
	store          repositories.Store
	translator     repositories.Translator
	languages      *LanguageCache
	parseDir       string
	phrasesPerFile int
	logger         *zap.Logger
}

// NewLessonService creates a new lesson service
func NewLessonService(
	store repositories.Store,
	translator repositories.Translator,
	languages *LanguageCache,
	parseDir string,
	phrasesPerFile int,
	logger *zap.Logger,
) *LessonService {
	return &LessonService{
		store:          store,
		translator:     translator,
		languages:      languages,
		parseDir:       parseDir,
		phrasesPerFile: phrasesPerFile,
		logger:         logger,
	}
}

// ParseToArchive segments an upload into text files of phrases for review and
// returns the path of the zip holding them.
func (s *LessonService) ParseToArchive(ctx context.Context, r io.ReadSeeker, size int64, filename string) (string, error) {
	result, err := s.segment(r, size)
	if err != nil {
		return "", err
	}
	if err := tooLong(result.TooLong); err != nil {
		return "", err
	}
	if len(result.Phrases) == 0 {
		return "", fmt.Errorf("%w: no phrases found", domain.ErrInvalidFormat)
	}

	base := baseName(filename)
	dir := filepath.Join(s.parseDir, base)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clear %s: %w", dir, err)
	}
	if _, err := archive.WriteTextChunks(dir, base, result.Phrases, s.phrasesPerFile); err != nil {
		return "", err
	}
	zipPath := filepath.Join(s.parseDir, base+".zip")
	if err := archive.ZipDir(dir, zipPath); err != nil {
		return "", err
	}

	s.logger.Info("Upload parsed",
		zap.String("file", filename),
		zap.String("format", string(result.Format)),
		zap.Int("phrases", len(result.Phrases)),
		zap.Int("skipped", result.Skipped))
	return zipPath, nil
}

// CreateLesson segments an upload, detects its language and stores it as a
// lesson with phrases and original-language translations. If any write after
// the lesson row fails, the lesson is deleted again.
func (s *LessonService) CreateLesson(ctx context.Context, r io.ReadSeeker, size int64, name, description string) (*entities.Lesson, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: lesson name is required", domain.ErrInvalidInput)
	}
	if _, err := s.store.Lessons.GetByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: lesson %q", domain.ErrDuplicateName, name)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	result, err := s.segment(r, size)
	if err != nil {
		return nil, err
	}
	if err := tooLong(result.TooLong); err != nil {
		return nil, err
	}
	if len(result.Phrases) == 0 {
		return nil, fmt.Errorf("%w: no phrases found", domain.ErrInvalidFormat)
	}

	tag, err := s.DetectLanguage(ctx, result.Phrases)
	if err != nil {
		return nil, err
	}
	language, err := s.languages.Resolve(ctx, tag)
	if err != nil {
		return nil, err
	}

	lesson := &entities.Lesson{
		Name:               name,
		Description:        strings.TrimSpace(description),
		NumPhrases:         len(result.Phrases),
		OriginalLanguageID: &language.ID,
		CreatedAt:          time.Now().UTC(),
	}
	if err := lesson.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := s.store.Lessons.Create(ctx, lesson); err != nil {
		return nil, err
	}

	if err := s.storePhrases(ctx, lesson, language, result.Phrases); err != nil {
		if derr := s.store.Lessons.Delete(context.WithoutCancel(ctx), lesson.ID); derr != nil {
			s.logger.Error("Failed to remove partial lesson",
				zap.Int64("lessonID", lesson.ID),
				zap.Error(derr))
		}
		return nil, domain.Cancelled(ctx, err)
	}

	s.logger.Info("Lesson created",
		zap.Int64("lessonID", lesson.ID),
		zap.String("name", lesson.Name),
		zap.String("language", language.Tag),
		zap.String("format", string(result.Format)),
		zap.Int("phrases", lesson.NumPhrases))
	return lesson, nil
}

func (s *LessonService) storePhrases(ctx context.Context, lesson *entities.Lesson, language *entities.Language, texts []string) error {
	phrases, err := s.store.Phrases.CreateBatch(ctx, lesson.ID, len(texts))
	if err != nil {
		return fmt.Errorf("create phrases: %w", err)
	}
	translations := make([]*entities.Translation, len(phrases))
	for i, p := range phrases {
		translations[i] = entities.NewTranslation(p.ID, language.ID, texts[i])
	}
	if err := s.store.Translations.CreateBatch(ctx, translations); err != nil {
		return fmt.Errorf("create translations: %w", err)
	}
	return nil
}

// DetectLanguage asks the translator for the language of the first three
// phrases and returns the tag at least two of them agree on. A single phrase
// decides alone.
func (s *LessonService) DetectLanguage(ctx context.Context, phrases []string) (string, error) {
	if len(phrases) == 0 {
		return "", fmt.Errorf("%w: no phrases", domain.ErrLanguageDetectionAmbiguous)
	}
	samples := phrases[:min(detectionSamples, len(phrases))]

	votes := make(map[string]int, len(samples))
	var tags []string
	for _, phrase := range samples {
		tag, err := s.translator.DetectLanguage(ctx, phrase)
		if err != nil {
			return "", domain.Cancelled(ctx, err)
		}
		tag = strings.ToLower(strings.TrimSpace(tag))
		votes[tag]++
		tags = append(tags, tag)
	}

	if len(samples) == 1 && tags[0] != "" {
		return tags[0], nil
	}
	for _, tag := range tags {
		if tag != "" && votes[tag] >= 2 {
			return tag, nil
		}
	}
	return "", fmt.Errorf("%w: detected %v", domain.ErrLanguageDetectionAmbiguous, tags)
}

func (s *LessonService) segment(r io.ReadSeeker, size int64) (*parser.Result, error) {
	if err := parser.CheckSize(size); err != nil {
		return nil, err
	}
	return parser.Parse(r)
}

// tooLong reports every oversized phrase as one error list.
func tooLong(phrases []string) error {
	var errs error
	for _, p := range phrases {
		errs = multierr.Append(errs, fmt.Errorf("%w: %d characters, limit %d: %q",
			domain.ErrPhraseTooLong, utf8.RuneCountInString(p), entities.MaxPhraseLength, p))
	}
	return errs
}

// baseName strips directories and the extension from an uploaded file name.
func baseName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == ".." || base == "/" {
		return "upload"
	}
	return base
}
