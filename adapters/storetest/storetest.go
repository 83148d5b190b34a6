// Package storetest is a conformance suite shared by the storage backends.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/entities"
	"github.com/satriahrh/lingualoop/domain/repositories"
)

// Run exercises every repository of the store returned by newStore. Each
// subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) repositories.Store) {
	t.Run("Lessons", func(t *testing.T) { testLessons(t, newStore(t)) })
	t.Run("PhrasesAndTranslations", func(t *testing.T) { testPhrasesAndTranslations(t, newStore(t)) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, newStore(t)) })
	t.Run("LanguagesAndVoices", func(t *testing.T) { testLanguagesAndVoices(t, newStore(t)) })
	t.Run("Tokens", func(t *testing.T) { testTokens(t, newStore(t)) })
}

func createLanguage(t *testing.T, s repositories.Store, tag string) *entities.Language {
	t.Helper()
	l := &entities.Language{Name: "Language " + tag, Tag: tag}
	if err := s.Languages.Create(context.Background(), l); err != nil {
		t.Fatalf("create language %s: %v", tag, err)
	}
	return l
}

func createLesson(t *testing.T, s repositories.Store, name string, n int) (*entities.Lesson, []*entities.Phrase) {
	t.Helper()
	ctx := context.Background()
	lesson := &entities.Lesson{Name: name, NumPhrases: n}
	if err := s.Lessons.Create(ctx, lesson); err != nil {
		t.Fatalf("create lesson: %v", err)
	}
	phrases, err := s.Phrases.CreateBatch(ctx, lesson.ID, n)
	if err != nil {
		t.Fatalf("create phrases: %v", err)
	}
	return lesson, phrases
}

func testLessons(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	lang := createLanguage(t, s, "en")

	lesson := &entities.Lesson{Name: "Greetings", Description: "hello", NumPhrases: 2, OriginalLanguageID: &lang.ID}
	if err := s.Lessons.Create(ctx, lesson); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if lesson.ID == 0 {
		t.Fatal("Expected lesson ID to be assigned")
	}

	dup := &entities.Lesson{Name: "Greetings", NumPhrases: 1}
	if err := s.Lessons.Create(ctx, dup); !errors.Is(err, domain.ErrDuplicateName) {
		t.Errorf("Expected ErrDuplicateName, got %v", err)
	}

	got, err := s.Lessons.GetByName(ctx, "Greetings")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if got.ID != lesson.ID || got.NumPhrases != 2 || got.OriginalLanguageID == nil || *got.OriginalLanguageID != lang.ID {
		t.Errorf("Unexpected lesson %+v", got)
	}

	if err := s.Lessons.IncrementPopularity(ctx, lesson.ID); err != nil {
		t.Fatalf("IncrementPopularity: %v", err)
	}
	got, err = s.Lessons.GetByID(ctx, lesson.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Popularity != 1 {
		t.Errorf("Expected popularity 1, got %d", got.Popularity)
	}

	if _, err := s.Lessons.GetByID(ctx, lesson.ID+1000); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	list, err := s.Lessons.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 lesson, got %d", len(list))
	}
}

func testPhrasesAndTranslations(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	en := createLanguage(t, s, "en")
	es := createLanguage(t, s, "es")
	lesson, phrases := createLesson(t, s, "Numbers", 3)

	if len(phrases) != 3 {
		t.Fatalf("Expected 3 phrases, got %d", len(phrases))
	}
	for i := 1; i < len(phrases); i++ {
		if phrases[i].ID <= phrases[i-1].ID {
			t.Errorf("Expected ascending phrase ids, got %d after %d", phrases[i].ID, phrases[i-1].ID)
		}
	}

	listed, err := s.Phrases.ListByLesson(ctx, lesson.ID)
	if err != nil {
		t.Fatalf("ListByLesson: %v", err)
	}
	if diff := cmp.Diff(phrases, listed); diff != "" {
		t.Errorf("phrases mismatch (-want +got):\n%s", diff)
	}

	var english, spanish []*entities.Translation
	for i, p := range phrases {
		english = append(english, entities.NewTranslation(p.ID, en.ID, []string{"one", "two", "three"}[i]))
		spanish = append(spanish, entities.NewTranslation(p.ID, es.ID, []string{"uno", "dos", "tres"}[i]))
	}
	// insert out of order to check sorting
	if err := s.Translations.CreateBatch(ctx, []*entities.Translation{english[2], english[0], english[1]}); err != nil {
		t.Fatalf("CreateBatch en: %v", err)
	}
	if err := s.Translations.CreateBatch(ctx, spanish); err != nil {
		t.Fatalf("CreateBatch es: %v", err)
	}
	if err := s.Translations.CreateBatch(ctx, english[:1]); err == nil {
		t.Error("Expected error for duplicate translation")
	}

	got, err := s.Translations.ListByLessonLanguage(ctx, lesson.ID, en.ID)
	if err != nil {
		t.Fatalf("ListByLessonLanguage: %v", err)
	}
	if diff := cmp.Diff(english, got); diff != "" {
		t.Errorf("translations mismatch (-want +got):\n%s", diff)
	}

	none, err := s.Translations.ListByLessonLanguage(ctx, lesson.ID, es.ID+1000)
	if err != nil {
		t.Fatalf("ListByLessonLanguage: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no translations, got %d", len(none))
	}
}

func testDeleteCascades(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	en := createLanguage(t, s, "en")
	lesson, phrases := createLesson(t, s, "Doomed", 2)
	keep, keepPhrases := createLesson(t, s, "Kept", 1)

	var batch []*entities.Translation
	for _, p := range append(phrases, keepPhrases...) {
		batch = append(batch, entities.NewTranslation(p.ID, en.ID, "text"))
	}
	if err := s.Translations.CreateBatch(ctx, batch); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	if err := s.Lessons.Delete(ctx, lesson.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Lessons.GetByID(ctx, lesson.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	left, err := s.Phrases.ListByLesson(ctx, lesson.ID)
	if err != nil {
		t.Fatalf("ListByLesson: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("Expected phrases to be deleted, got %d", len(left))
	}
	kept, err := s.Translations.ListByLessonLanguage(ctx, keep.ID, en.ID)
	if err != nil {
		t.Fatalf("ListByLessonLanguage: %v", err)
	}
	if len(kept) != 1 {
		t.Errorf("Expected other lesson's translation to survive, got %d", len(kept))
	}

	// the name is free again
	createLesson(t, s, "Doomed", 1)
}

func testLanguagesAndVoices(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	en := createLanguage(t, s, "en")
	es := createLanguage(t, s, "es")

	got, err := s.Languages.GetByTag(ctx, "es")
	if err != nil {
		t.Fatalf("GetByTag: %v", err)
	}
	if diff := cmp.Diff(es, got); diff != "" {
		t.Errorf("language mismatch (-want +got):\n%s", diff)
	}
	if _, err := s.Languages.GetByTag(ctx, "xx"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	voices := []*entities.Voice{
		{ShortName: "en-1", DisplayName: "Ann", LanguageID: en.ID, Locale: "en-US", Gender: "female"},
		{ShortName: "es-1", DisplayName: "Pablo", LanguageID: es.ID, Locale: "es-ES", Gender: "male"},
		{ShortName: "es-2", DisplayName: "Lucia", LanguageID: es.ID, Locale: "es-MX", Gender: "female"},
	}
	for _, v := range voices {
		if err := s.Voices.Create(ctx, v); err != nil {
			t.Fatalf("Create voice %s: %v", v.ShortName, err)
		}
	}

	byLang, err := s.Voices.ListByLanguage(ctx, es.ID)
	if err != nil {
		t.Fatalf("ListByLanguage: %v", err)
	}
	if diff := cmp.Diff(voices[1:], byLang); diff != "" {
		t.Errorf("voices mismatch (-want +got):\n%s", diff)
	}

	v, err := s.Voices.GetByShortName(ctx, "en-1")
	if err != nil {
		t.Fatalf("GetByShortName: %v", err)
	}
	if v.ID != voices[0].ID {
		t.Errorf("Expected voice %d, got %d", voices[0].ID, v.ID)
	}
	if _, err := s.Voices.GetByID(ctx, voices[2].ID+1000); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	all, err := s.Voices.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 voices, got %d", len(all))
	}
}

func testTokens(t *testing.T, s repositories.Store) {
	ctx := context.Background()

	status, err := s.Tokens.Status(ctx, "unknown")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Valid {
		t.Error("Expected unknown token to be invalid")
	}

	if err := s.Tokens.Create(ctx, "abc"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	status, _ = s.Tokens.Status(ctx, "abc")
	if !status.Valid || status.AlreadyUsed {
		t.Errorf("Expected valid unused token, got %+v", status)
	}

	if err := s.Tokens.MarkUsed(ctx, "abc"); err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}
	status, _ = s.Tokens.Status(ctx, "abc")
	if !status.Valid || !status.AlreadyUsed {
		t.Errorf("Expected used token, got %+v", status)
	}

	if err := s.Tokens.MarkUsed(ctx, "abc"); !errors.Is(err, domain.ErrAlreadyUsed) {
		t.Errorf("Expected ErrAlreadyUsed on second claim, got %v", err)
	}
	if err := s.Tokens.MarkUsed(ctx, "unknown"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown token, got %v", err)
	}
}
