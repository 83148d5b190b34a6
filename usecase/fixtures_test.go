package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/lingualoop/adapters/memory"
	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/entities"
	"github.com/satriahrh/lingualoop/domain/repositories"
	"github.com/satriahrh/lingualoop/internal/audio"
	"github.com/satriahrh/lingualoop/internal/pattern"
)

const lessonText = "Good morning to you all\nWhere is the train station\nI would like some coffee\nThank you very much indeed\n"

type fakeTranslator struct {
	mu             sync.Mutex
	detect         []string
	detectCalls    int
	translateCalls int
	batches        [][]string
	err            error
}

func (f *fakeTranslator) DetectLanguage(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	tag := f.detect[f.detectCalls%len(f.detect)]
	f.detectCalls++
	return tag, nil
}

func (f *fakeTranslator) TranslateBatch(ctx context.Context, texts []string, from, to string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.translateCalls++
	f.batches = append(f.batches, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = "[" + to + "] " + t
	}
	return out, nil
}

type fakeTTS struct {
	mu     sync.Mutex
	calls  int
	failOn string
}

func (f *fakeTTS) SynthesizeToFile(ctx context.Context, req repositories.SynthesisRequest, path string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failOn != "" && strings.Contains(req.Text, f.failOn) {
		return domain.NewVendorError("fake", "quota_exceeded", nil)
	}
	return audio.WritePCM16(path, []byte{0, 0, 1, 0, 2, 0})
}

func (f *fakeTTS) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	store        repositories.Store
	translator   *fakeTranslator
	tts          *fakeTTS
	languages    *LanguageCache
	translations *TranslationService
	speech       *SpeechService
	lessons      *LessonService
	audio        *AudioService
	en, es       *entities.Language
	enVoice      *entities.Voice
	esVoice      *entities.Voice
	baseDir      string
	outputDir    string
	parseDir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	f := &fixture{
		store:      memory.NewStore(),
		translator: &fakeTranslator{detect: []string{"en"}},
		tts:        &fakeTTS{},
		baseDir:    t.TempDir(),
		outputDir:  t.TempDir(),
		parseDir:   t.TempDir(),
	}

	f.en = &entities.Language{Name: "English", Tag: "en"}
	f.es = &entities.Language{Name: "Spanish", Tag: "es-ES"}
	for _, l := range []*entities.Language{f.en, f.es} {
		if err := f.store.Languages.Create(ctx, l); err != nil {
			t.Fatalf("create language: %v", err)
		}
	}
	f.enVoice = &entities.Voice{ShortName: "en-US-Jenny", LanguageID: f.en.ID, Locale: "en-US"}
	f.esVoice = &entities.Voice{ShortName: "es-ES-Alvaro", LanguageID: f.es.ID, Locale: "es-ES"}
	for _, v := range []*entities.Voice{f.enVoice, f.esVoice} {
		if err := f.store.Voices.Create(ctx, v); err != nil {
			t.Fatalf("create voice: %v", err)
		}
	}

	if _, err := audio.GeneratePauses(f.baseDir); err != nil {
		t.Fatalf("GeneratePauses: %v", err)
	}
	patterns, err := pattern.Load(strings.NewReader("patterns:\n  basic: [11, 10, 21, 20, 31, 30, 41, 40, 51, 50]\n"))
	if err != nil {
		t.Fatalf("load patterns: %v", err)
	}

	f.languages = NewLanguageCache(f.store.Languages, 0)
	f.translations = NewTranslationService(f.store, f.translator, f.languages, logger)
	f.speech = NewSpeechService(f.tts, f.baseDir, 4, logger)
	f.lessons = NewLessonService(f.store, f.translator, f.languages, f.parseDir, 2, logger)
	f.audio = NewAudioService(f.store, f.languages, f.translations, f.speech, patterns, f.baseDir, f.outputDir, logger)
	return f
}

// createLesson stores an English lesson made of lessonText.
func (f *fixture) createLesson(t *testing.T, name string) *entities.Lesson {
	t.Helper()
	r := strings.NewReader(lessonText)
	lesson, err := f.lessons.CreateLesson(context.Background(), r, r.Size(), name, "")
	if err != nil {
		t.Fatalf("CreateLesson: %v", err)
	}
	return lesson
}
