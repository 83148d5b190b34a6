// Package memory is an in-process storage backend. Data lives only as long
// as the process.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/entities"
	"github.com/satriahrh/lingualoop/domain/repositories"
)

type translationKey struct {
	phraseID   int64
	languageID int64
}

// db holds every table behind one lock so cascading deletes stay consistent.
type db struct {
	mu sync.RWMutex

	nextID       int64
	lessons      map[int64]*entities.Lesson
	phrases      map[int64]*entities.Phrase
	translations map[translationKey]*entities.Translation
	languages    map[int64]*entities.Language
	voices       map[int64]*entities.Voice
	tokens       map[string]bool // hash -> used
}

func (d *db) id() int64 {
	d.nextID++
	return d.nextID
}

// NewStore creates an empty in-memory store
func NewStore() repositories.Store {
	d := &db{
		lessons:      make(map[int64]*entities.Lesson),
		phrases:      make(map[int64]*entities.Phrase),
		translations: make(map[translationKey]*entities.Translation),
		languages:    make(map[int64]*entities.Language),
		voices:       make(map[int64]*entities.Voice),
		tokens:       make(map[string]bool),
	}
	return repositories.Store{
		Lessons:      &LessonRepository{d},
		Phrases:      &PhraseRepository{d},
		Translations: &TranslationRepository{d},
		Languages:    &LanguageRepository{d},
		Voices:       &VoiceRepository{d},
		Tokens:       &AccessTokenRepository{d},
	}
}

// LessonRepository implements repositories.LessonRepository
type LessonRepository struct{ db *db }

func (r *LessonRepository) Create(ctx context.Context, lesson *entities.Lesson) error {
	if lesson == nil {
		return errors.New("lesson cannot be nil")
	}
	if err := lesson.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, l := range r.db.lessons {
		if l.Name == lesson.Name {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateName, lesson.Name)
		}
	}
	lesson.ID = r.db.id()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = time.Now()
	}
	stored := *lesson
	r.db.lessons[lesson.ID] = &stored
	return nil
}

func (r *LessonRepository) GetByID(ctx context.Context, id int64) (*entities.Lesson, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	l, ok := r.db.lessons[id]
	if !ok {
		return nil, fmt.Errorf("lesson %d: %w", id, domain.ErrNotFound)
	}
	out := *l
	return &out, nil
}

func (r *LessonRepository) GetByName(ctx context.Context, name string) (*entities.Lesson, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, l := range r.db.lessons {
		if l.Name == name {
			out := *l
			return &out, nil
		}
	}
	return nil, fmt.Errorf("lesson %q: %w", name, domain.ErrNotFound)
}

func (r *LessonRepository) List(ctx context.Context) ([]*entities.Lesson, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*entities.Lesson, 0, len(r.db.lessons))
	for _, l := range r.db.lessons {
		c := *l
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *LessonRepository) IncrementPopularity(ctx context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	l, ok := r.db.lessons[id]
	if !ok {
		return fmt.Errorf("lesson %d: %w", id, domain.ErrNotFound)
	}
	l.Popularity++
	return nil
}

func (r *LessonRepository) Delete(ctx context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.lessons[id]; !ok {
		return fmt.Errorf("lesson %d: %w", id, domain.ErrNotFound)
	}
	delete(r.db.lessons, id)
	for pid, p := range r.db.phrases {
		if p.LessonID != id {
			continue
		}
		delete(r.db.phrases, pid)
		for key := range r.db.translations {
			if key.phraseID == pid {
				delete(r.db.translations, key)
			}
		}
	}
	return nil
}

// PhraseRepository implements repositories.PhraseRepository
type PhraseRepository struct{ db *db }

func (r *PhraseRepository) CreateBatch(ctx context.Context, lessonID int64, n int) ([]*entities.Phrase, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.lessons[lessonID]; !ok {
		return nil, fmt.Errorf("lesson %d: %w", lessonID, domain.ErrNotFound)
	}
	out := make([]*entities.Phrase, n)
	for i := range out {
		p := &entities.Phrase{ID: r.db.id(), LessonID: lessonID}
		r.db.phrases[p.ID] = p
		c := *p
		out[i] = &c
	}
	return out, nil
}

func (r *PhraseRepository) ListByLesson(ctx context.Context, lessonID int64) ([]*entities.Phrase, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*entities.Phrase
	for _, p := range r.db.phrases {
		if p.LessonID == lessonID {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// TranslationRepository implements repositories.TranslationRepository
type TranslationRepository struct{ db *db }

func (r *TranslationRepository) CreateBatch(ctx context.Context, translations []*entities.Translation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	seen := make(map[translationKey]bool, len(translations))
	for _, t := range translations {
		key := translationKey{t.PhraseID, t.LanguageID}
		if _, ok := r.db.phrases[t.PhraseID]; !ok {
			return fmt.Errorf("phrase %d: %w", t.PhraseID, domain.ErrNotFound)
		}
		if _, exists := r.db.translations[key]; exists || seen[key] {
			return fmt.Errorf("translation of phrase %d into language %d already exists", t.PhraseID, t.LanguageID)
		}
		seen[key] = true
	}
	for _, t := range translations {
		c := *t
		r.db.translations[translationKey{t.PhraseID, t.LanguageID}] = &c
	}
	return nil
}

func (r *TranslationRepository) ListByLessonLanguage(ctx context.Context, lessonID, languageID int64) ([]*entities.Translation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*entities.Translation
	for key, t := range r.db.translations {
		if key.languageID != languageID {
			continue
		}
		if p, ok := r.db.phrases[key.phraseID]; ok && p.LessonID == lessonID {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhraseID < out[j].PhraseID })
	return out, nil
}

// LanguageRepository implements repositories.LanguageRepository
type LanguageRepository struct{ db *db }

func (r *LanguageRepository) Create(ctx context.Context, language *entities.Language) error {
	if err := language.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, l := range r.db.languages {
		if l.Tag == language.Tag {
			return fmt.Errorf("%w: language %s", domain.ErrDuplicateName, language.Tag)
		}
	}
	language.ID = r.db.id()
	c := *language
	r.db.languages[language.ID] = &c
	return nil
}

func (r *LanguageRepository) GetByID(ctx context.Context, id int64) (*entities.Language, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	l, ok := r.db.languages[id]
	if !ok {
		return nil, fmt.Errorf("language %d: %w", id, domain.ErrNotFound)
	}
	c := *l
	return &c, nil
}

func (r *LanguageRepository) GetByTag(ctx context.Context, tag string) (*entities.Language, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, l := range r.db.languages {
		if l.Tag == tag {
			c := *l
			return &c, nil
		}
	}
	return nil, fmt.Errorf("language %q: %w", tag, domain.ErrNotFound)
}

func (r *LanguageRepository) List(ctx context.Context) ([]*entities.Language, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*entities.Language, 0, len(r.db.languages))
	for _, l := range r.db.languages {
		c := *l
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// VoiceRepository implements repositories.VoiceRepository
type VoiceRepository struct{ db *db }

func (r *VoiceRepository) Create(ctx context.Context, voice *entities.Voice) error {
	if err := voice.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.languages[voice.LanguageID]; !ok {
		return fmt.Errorf("language %d: %w", voice.LanguageID, domain.ErrNotFound)
	}
	for _, v := range r.db.voices {
		if v.ShortName == voice.ShortName {
			return fmt.Errorf("%w: voice %s", domain.ErrDuplicateName, voice.ShortName)
		}
	}
	voice.ID = r.db.id()
	c := *voice
	r.db.voices[voice.ID] = &c
	return nil
}

func (r *VoiceRepository) GetByID(ctx context.Context, id int64) (*entities.Voice, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	v, ok := r.db.voices[id]
	if !ok {
		return nil, fmt.Errorf("voice %d: %w", id, domain.ErrNotFound)
	}
	c := *v
	return &c, nil
}

func (r *VoiceRepository) GetByShortName(ctx context.Context, shortName string) (*entities.Voice, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, v := range r.db.voices {
		if v.ShortName == shortName {
			c := *v
			return &c, nil
		}
	}
	return nil, fmt.Errorf("voice %q: %w", shortName, domain.ErrNotFound)
}

func (r *VoiceRepository) List(ctx context.Context) ([]*entities.Voice, error) {
	return r.filter(func(*entities.Voice) bool { return true }), nil
}

func (r *VoiceRepository) ListByLanguage(ctx context.Context, languageID int64) ([]*entities.Voice, error) {
	return r.filter(func(v *entities.Voice) bool { return v.LanguageID == languageID }), nil
}

func (r *VoiceRepository) filter(keep func(*entities.Voice) bool) []*entities.Voice {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*entities.Voice
	for _, v := range r.db.voices {
		if keep(v) {
			c := *v
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AccessTokenRepository implements repositories.AccessTokenRepository
type AccessTokenRepository struct{ db *db }

func (r *AccessTokenRepository) Create(ctx context.Context, hash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.tokens[hash]; exists {
		return errors.New("token already exists")
	}
	r.db.tokens[hash] = false
	return nil
}

func (r *AccessTokenRepository) Status(ctx context.Context, hash string) (entities.TokenStatus, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	used, ok := r.db.tokens[hash]
	return entities.TokenStatus{Valid: ok, AlreadyUsed: used}, nil
}

func (r *AccessTokenRepository) MarkUsed(ctx context.Context, hash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	used, ok := r.db.tokens[hash]
	if !ok {
		return fmt.Errorf("token: %w", domain.ErrNotFound)
	}
	if used {
		return fmt.Errorf("token: %w", domain.ErrAlreadyUsed)
	}
	r.db.tokens[hash] = true
	return nil
}

var (
	_ repositories.LessonRepository      = (*LessonRepository)(nil)
	_ repositories.PhraseRepository      = (*PhraseRepository)(nil)
	_ repositories.TranslationRepository = (*TranslationRepository)(nil)
	_ repositories.LanguageRepository    = (*LanguageRepository)(nil)
	_ repositories.VoiceRepository       = (*VoiceRepository)(nil)
	_ repositories.AccessTokenRepository = (*AccessTokenRepository)(nil)
)
