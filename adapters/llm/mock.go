package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/lingualoop/domain/repositories"
)

// MockTranslator is an offline translator for development. It reports a
// fixed language and prefixes each text with the target tag.
type MockTranslator struct {
	language string
	logger   *zap.Logger
}

// NewMockTranslator creates a new mock translator
func NewMockTranslator(language string, logger *zap.Logger) *MockTranslator {
	if language == "" {
		language = "en"
	}
	return &MockTranslator{language: language, logger: logger}
}

// DetectLanguage implements repositories.Translator
func (m *MockTranslator) DetectLanguage(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.language, nil
}

// TranslateBatch implements repositories.Translator
func (m *MockTranslator) TranslateBatch(ctx context.Context, texts []string, from, to string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = fmt.Sprintf("[%s] %s", to, t)
	}
	m.logger.Debug("Mock translation", zap.String("from", from), zap.String("to", to), zap.Int("count", len(texts)))
	return out, nil
}

var _ repositories.Translator = (*MockTranslator)(nil)
