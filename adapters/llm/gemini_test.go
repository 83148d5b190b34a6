package llm

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"

	"github.com/satriahrh/lingualoop/domain"
)

type fakeModels struct {
	reply   string
	err     error
	prompts []string
	configs []*genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.prompts = append(f.prompts, contents[0].Parts[0].Text)
	f.configs = append(f.configs, config)
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(f.reply, genai.RoleModel)}},
	}, nil
}

func newTestTranslator(t *testing.T, f *fakeModels) *GeminiTranslator {
	return newGeminiTranslator(f, GeminiConfig{APIKey: "test"}, zaptest.NewLogger(t))
}

func TestGeminiTranslator_TranslateBatch(t *testing.T) {
	f := &fakeModels{reply: `["hola", "adiós"]`}
	tr := newTestTranslator(t, f)

	got, err := tr.TranslateBatch(context.Background(), []string{"hello", "goodbye"}, "en", "es")
	if err != nil {
		t.Fatalf("TranslateBatch: %v", err)
	}
	if diff := cmp.Diff([]string{"hola", "adiós"}, got); diff != "" {
		t.Errorf("translation mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(f.prompts[0], `["hello","goodbye"]`) {
		t.Errorf("Expected prompt to carry the batch, got %q", f.prompts[0])
	}
	if f.configs[0].ResponseMIMEType != "application/json" {
		t.Errorf("Expected JSON response type, got %q", f.configs[0].ResponseMIMEType)
	}
}

func TestGeminiTranslator_LengthMismatch(t *testing.T) {
	tr := newTestTranslator(t, &fakeModels{reply: `["hola"]`})

	_, err := tr.TranslateBatch(context.Background(), []string{"hello", "goodbye"}, "en", "es")
	var vendorErr *domain.VendorError
	if !errors.As(err, &vendorErr) || vendorErr.Reason != "length_mismatch" {
		t.Errorf("Expected length_mismatch vendor error, got %v", err)
	}
}

func TestGeminiTranslator_VendorFailure(t *testing.T) {
	tr := newTestTranslator(t, &fakeModels{err: errors.New("quota exceeded")})

	_, err := tr.TranslateBatch(context.Background(), []string{"hello"}, "en", "es")
	if !errors.Is(err, domain.ErrVendorFailure) {
		t.Errorf("Expected ErrVendorFailure, got %v", err)
	}
}

func TestGeminiTranslator_Cancelled(t *testing.T) {
	tr := newTestTranslator(t, &fakeModels{err: context.Canceled})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.DetectLanguage(ctx, "hello")
	if !errors.Is(err, domain.ErrCancelled) {
		t.Errorf("Expected ErrCancelled, got %v", err)
	}
}

func TestGeminiTranslator_DetectLanguage(t *testing.T) {
	tr := newTestTranslator(t, &fakeModels{reply: " ES.\n"})

	got, err := tr.DetectLanguage(context.Background(), "hola amigo")
	if err != nil {
		t.Fatalf("DetectLanguage: %v", err)
	}
	if got != "es" {
		t.Errorf("Expected es, got %q", got)
	}
}

func TestGeminiTranslator_EmptyBatch(t *testing.T) {
	f := &fakeModels{}
	got, err := newTestTranslator(t, f).TranslateBatch(context.Background(), nil, "en", "es")
	if err != nil || len(got) != 0 {
		t.Errorf("Expected empty result, got %v, %v", got, err)
	}
	if len(f.prompts) != 0 {
		t.Error("Expected no vendor call for empty batch")
	}
}

func TestValidateGeminiConfig(t *testing.T) {
	if err := ValidateGeminiConfig(GeminiConfig{}); err == nil {
		t.Error("Expected error for missing API key")
	}
	if err := ValidateGeminiConfig(GeminiConfig{APIKey: "k", TimeoutSeconds: -1}); err == nil {
		t.Error("Expected error for negative timeout")
	}
}

// TestGeminiTranslator_Integration calls the real API (skipped if GEMINI_API_KEY is not set)
func TestGeminiTranslator_Integration(t *testing.T) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("Skipping Gemini integration test - GEMINI_API_KEY not set")
	}
	ctx := context.Background()
	tr, err := NewGeminiTranslator(ctx, NewGeminiConfigFromEnv(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewGeminiTranslator: %v", err)
	}
	got, err := tr.TranslateBatch(ctx, []string{"Good morning", "Thank you"}, "en", "es")
	if err != nil {
		t.Fatalf("TranslateBatch: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 translations, got %d", len(got))
	}
}
