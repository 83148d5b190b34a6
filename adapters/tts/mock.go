package tts

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/lingualoop/domain/repositories"
	"github.com/satriahrh/lingualoop/internal/audio"
)

// MockTextToSpeech writes a short silent clip per phrase, for offline
// development.
type MockTextToSpeech struct {
	logger *zap.Logger
}

var _ repositories.TextToSpeech = (*MockTextToSpeech)(nil)

// NewMockTextToSpeech creates a new mock text-to-speech service
func NewMockTextToSpeech(logger *zap.Logger) *MockTextToSpeech {
	return &MockTextToSpeech{logger: logger}
}

// SynthesizeToFile implements repositories.TextToSpeech. The clip lasts one
// second per eight words, at least one second.
func (m *MockTextToSpeech) SynthesizeToFile(ctx context.Context, req repositories.SynthesisRequest, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	seconds := 1 + len(strings.Fields(req.Text))/8
	m.logger.Debug("Mock synthesis",
		zap.String("voice", req.Voice),
		zap.Int("seconds", seconds))
	return audio.WriteSilence(path, seconds)
}
