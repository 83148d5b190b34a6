package catalog

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/lingualoop/adapters/memory"
	"github.com/satriahrh/lingualoop/domain"
)

const seedYAML = `
languages:
  - name: English
    tag: en
  - name: Spanish
    tag: es
voices:
  - short_name: en-US-JennyNeural
    display_name: Jenny
    language: en
    locale: en-US
    gender: female
  - short_name: es-ES-AlvaroNeural
    language: es
`

func TestLoad(t *testing.T) {
	seed, err := Load(strings.NewReader(seedYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(seed.Languages) != 2 || len(seed.Voices) != 2 {
		t.Fatalf("Expected 2 languages and 2 voices, got %d and %d", len(seed.Languages), len(seed.Voices))
	}
	if seed.Voices[0].Locale != "en-US" {
		t.Errorf("Expected locale en-US, got %q", seed.Voices[0].Locale)
	}
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	_, err := Load(strings.NewReader(`
languages:
  - name: English
voices:
  - language: en
  - short_name: x
`))
	if errs := multierr.Errors(err); len(errs) != 3 {
		t.Errorf("Expected 3 errors, got %d: %v", len(errs), err)
	}
}

func TestApply_IsRepeatable(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	store := memory.NewStore()
	seed, err := Load(strings.NewReader(seedYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	first, err := Apply(ctx, store, seed, logger)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if diff := cmp.Diff(Result{LanguagesCreated: 2, VoicesCreated: 2}, first); diff != "" {
		t.Errorf("First apply mismatch (-want +got):\n%s", diff)
	}

	second, err := Apply(ctx, store, seed, logger)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if diff := cmp.Diff(Result{Existing: 4}, second); diff != "" {
		t.Errorf("Second apply mismatch (-want +got):\n%s", diff)
	}

	voice, err := store.Voices.GetByShortName(ctx, "es-ES-AlvaroNeural")
	if err != nil {
		t.Fatalf("GetByShortName: %v", err)
	}
	es, err := store.Languages.GetByTag(ctx, "es")
	if err != nil {
		t.Fatalf("GetByTag: %v", err)
	}
	if voice.LanguageID != es.ID {
		t.Errorf("Expected voice language %d, got %d", es.ID, voice.LanguageID)
	}
}

func TestApply_UnknownLanguage(t *testing.T) {
	seed := &Seed{Voices: []VoiceSeed{{ShortName: "fr-voice", Language: "fr"}}}
	_, err := Apply(context.Background(), memory.NewStore(), seed, zaptest.NewLogger(t))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestVoicesFromVendor(t *testing.T) {
	got := VoicesFromVendor([]VendorVoice{
		{ID: "v2", Name: "Rachel", Labels: map[string]string{"gender": "Female", "accent": "american"}},
		{ID: "v1", Name: "Adam"},
	}, "en")

	want := []VoiceSeed{
		{ShortName: "v1", DisplayName: "Adam", Language: "en", Locale: "en"},
		{ShortName: "v2", DisplayName: "Rachel", Language: "en", Locale: "en (american)", Gender: "female"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("VoicesFromVendor mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	if err := Write(&buf, &Seed{Voices: got}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	back, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(got, back.Voices); diff != "" {
		t.Errorf("Written seed mismatch (-want +got):\n%s", diff)
	}
}
