package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/entities"
	"github.com/satriahrh/lingualoop/domain/repositories"
	"github.com/satriahrh/lingualoop/internal/archive"
)

type failingTranslations struct {
	repositories.TranslationRepository
}

func (failingTranslations) CreateBatch(ctx context.Context, translations []*entities.Translation) error {
	return errors.New("disk full")
}

func TestLessonService_CreateLesson(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.translator.detect = []string{"en", "EN", "fr"}

	lesson := f.createLesson(t, "Travel")
	if lesson.NumPhrases != 4 {
		t.Fatalf("Expected 4 phrases, got %d", lesson.NumPhrases)
	}
	if lesson.OriginalLanguageID == nil || *lesson.OriginalLanguageID != f.en.ID {
		t.Fatalf("Expected original language en, got %v", lesson.OriginalLanguageID)
	}
	if f.translator.detectCalls != 3 {
		t.Errorf("Expected 3 detect calls, got %d", f.translator.detectCalls)
	}

	texts, err := f.store.Translations.ListByLessonLanguage(ctx, lesson.ID, f.en.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var got []string
	for _, tr := range texts {
		got = append(got, tr.Text)
	}
	want := strings.Split(strings.TrimSpace(lessonText), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Stored phrases mismatch (-want +got):\n%s", diff)
	}
	if texts[0].Hint != "____ _______ __ ___ ___" {
		t.Errorf("Unexpected hint %q", texts[0].Hint)
	}
}

func TestLessonService_DuplicateName(t *testing.T) {
	f := newFixture(t)
	f.createLesson(t, "Travel")

	r := strings.NewReader(lessonText)
	_, err := f.lessons.CreateLesson(context.Background(), r, r.Size(), "Travel", "")
	if !errors.Is(err, domain.ErrDuplicateName) {
		t.Errorf("Expected ErrDuplicateName, got %v", err)
	}
}

func TestLessonService_RejectsInvalidUploads(t *testing.T) {
	long := strings.Repeat("a", 30)
	tooLong := strings.Join([]string{long, long, long, long, long}, " ")

	tests := []struct {
		name     string
		text     string
		size     int64
		expected error
	}{
		{"too large", lessonText, 64*1024 + 1, domain.ErrInputTooLarge},
		{"phrase too long", lessonText + tooLong + "\n", 0, domain.ErrPhraseTooLong},
		{"no phrases", "one\ntwo\nthree\nfour\n", 0, domain.ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			r := strings.NewReader(tt.text)
			size := tt.size
			if size == 0 {
				size = r.Size()
			}
			_, err := f.lessons.CreateLesson(context.Background(), r, size, "Upload", "")
			if !errors.Is(err, tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, err)
			}
			if _, err := f.store.Lessons.GetByName(context.Background(), "Upload"); !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("Expected no lesson to be stored, got %v", err)
			}
		})
	}
}

func TestLessonService_TooLongPhrasesAreListed(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("b", 40)
	line := strings.Join([]string{long, long, long, long}, " ")
	text := lessonText + line + "\n" + line + "\n"

	r := strings.NewReader(text)
	_, err := f.lessons.CreateLesson(context.Background(), r, r.Size(), "Upload", "")
	if errs := multierr.Errors(err); len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %d: %v", len(errs), err)
	}
}

func TestLessonService_RollsBackPartialLesson(t *testing.T) {
	f := newFixture(t)
	f.lessons.store.Translations = failingTranslations{f.store.Translations}

	r := strings.NewReader(lessonText)
	if _, err := f.lessons.CreateLesson(context.Background(), r, r.Size(), "Travel", ""); err == nil {
		t.Fatal("Expected error")
	}
	if _, err := f.store.Lessons.GetByName(context.Background(), "Travel"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected lesson to be removed, got %v", err)
	}
}

func TestLessonService_DetectLanguage(t *testing.T) {
	tests := []struct {
		name     string
		detect   []string
		phrases  int
		expected string
		err      error
	}{
		{"majority", []string{"es", "en", "es"}, 3, "es", nil},
		{"all agree", []string{"en"}, 5, "en", nil},
		{"all different", []string{"en", "es", "fr"}, 3, "", domain.ErrLanguageDetectionAmbiguous},
		{"two phrases agree", []string{"fr", "fr"}, 2, "fr", nil},
		{"two phrases differ", []string{"fr", "de"}, 2, "", domain.ErrLanguageDetectionAmbiguous},
		{"single phrase", []string{"de"}, 1, "de", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.translator.detect = tt.detect
			phrases := make([]string, tt.phrases)
			for i := range phrases {
				phrases[i] = "some phrase here"
			}

			got, err := f.lessons.DetectLanguage(context.Background(), phrases)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Expected error %v, got %v", tt.err, err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
			if want := min(tt.phrases, 3); f.translator.detectCalls != want {
				t.Errorf("Expected %d detect calls, got %d", want, f.translator.detectCalls)
			}
		})
	}
}

func TestLessonService_UnsupportedLanguage(t *testing.T) {
	f := newFixture(t)
	f.translator.detect = []string{"ja"}

	r := strings.NewReader(lessonText)
	_, err := f.lessons.CreateLesson(context.Background(), r, r.Size(), "Travel", "")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLessonService_ParseToArchive(t *testing.T) {
	f := newFixture(t)
	r := strings.NewReader(lessonText)

	path, err := f.lessons.ParseToArchive(context.Background(), r, r.Size(), "uploads/Travel.txt")
	if err != nil {
		t.Fatalf("ParseToArchive: %v", err)
	}
	if want := filepath.Join(f.parseDir, "Travel.zip"); path != want {
		t.Errorf("Expected %s, got %s", want, path)
	}

	entries, err := archive.Entries(path)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	want := []string{"Travel-phrases-1.txt", "Travel-phrases-2.txt"}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("Entries mismatch (-want +got):\n%s", diff)
	}
}
