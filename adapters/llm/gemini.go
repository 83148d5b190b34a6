package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/repositories"
)

const (
	vendorGemini = "gemini"

	defaultModel          = "gemini-2.0-flash"
	defaultTimeoutSeconds = 60
)

// GeminiConfig holds configuration for the Gemini translator
type GeminiConfig struct {
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// NewGeminiConfigFromEnv creates a GeminiConfig from environment variables
func NewGeminiConfigFromEnv() GeminiConfig {
	return GeminiConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
		Model:  os.Getenv("GEMINI_MODEL"),
	}
}

// contentGenerator is the part of *genai.Models the translator uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiTranslator implements repositories.Translator using Google's Gemini API
type GeminiTranslator struct {
	models  contentGenerator
	logger  *zap.Logger
	model   string
	timeout time.Duration
}

// NewGeminiTranslator creates a new Gemini translator
func NewGeminiTranslator(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiTranslator, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGeminiTranslator(client.Models, config, logger), nil
}

func newGeminiTranslator(models contentGenerator, config GeminiConfig, logger *zap.Logger) *GeminiTranslator {
	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}
	timeout := config.TimeoutSeconds
	if timeout == 0 {
		timeout = defaultTimeoutSeconds
	}
	return &GeminiTranslator{
		models:  models,
		logger:  logger,
		model:   model,
		timeout: time.Duration(timeout) * time.Second,
	}
}

// DetectLanguage implements repositories.Translator
func (g *GeminiTranslator) DetectLanguage(ctx context.Context, text string) (string, error) {
	prompt := "Identify the language of the following text. Reply with only its ISO 639-1 code in lowercase.\n\n" + text
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: 8,
	}

	out, err := g.generate(ctx, prompt, config)
	if err != nil {
		return "", err
	}
	tag := strings.ToLower(strings.Trim(strings.TrimSpace(out), ".\"'`"))
	if tag == "" {
		return "", domain.NewVendorError(vendorGemini, "empty_response", nil)
	}
	return tag, nil
}

// TranslateBatch implements repositories.Translator. The whole batch is sent
// in one request as a JSON array and must come back with the same length.
func (g *GeminiTranslator) TranslateBatch(ctx context.Context, texts []string, from, to string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}

	payload, err := json.Marshal(texts)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf(
		"Translate each string of this JSON array from language %q to language %q. "+
			"Return a JSON array with exactly %d strings in the same order. "+
			"Keep each translation short and natural.\n\n%s",
		from, to, len(texts), payload)
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.2),
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	}

	out, err := g.generate(ctx, prompt, config)
	if err != nil {
		return nil, err
	}

	var translated []string
	if err := json.Unmarshal([]byte(out), &translated); err != nil {
		return nil, domain.NewVendorError(vendorGemini, "malformed_response", err)
	}
	if len(translated) != len(texts) {
		return nil, domain.NewVendorError(vendorGemini, "length_mismatch",
			fmt.Errorf("sent %d texts, got %d", len(texts), len(translated)))
	}

	g.logger.Info("Batch translated",
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("count", len(texts)))
	return translated, nil
}

func (g *GeminiTranslator) generate(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	response, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		if ctx.Err() != nil {
			return "", domain.Cancelled(ctx, err)
		}
		g.logger.Error("Failed to generate content", zap.Error(err))
		return "", domain.NewVendorError(vendorGemini, "request_failed", err)
	}
	if response == nil || len(response.Candidates) == 0 {
		return "", domain.NewVendorError(vendorGemini, "no_candidates", nil)
	}
	return response.Text(), nil
}

var _ repositories.Translator = (*GeminiTranslator)(nil)
