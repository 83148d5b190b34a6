// Package adapters selects the storage and vendor implementations named by
// the process configuration.
package adapters

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/lingualoop/adapters/llm"
	"github.com/satriahrh/lingualoop/adapters/memory"
	"github.com/satriahrh/lingualoop/adapters/mongo"
	"github.com/satriahrh/lingualoop/adapters/sqlite"
	"github.com/satriahrh/lingualoop/adapters/tts"
	"github.com/satriahrh/lingualoop/domain/repositories"
	"github.com/satriahrh/lingualoop/internal/config"
)

// OpenStore connects the storage backend named by STORE_DRIVER. The returned
// function releases it.
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repositories.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		logger.Warn("Using in-memory store; data is lost on exit")
		return memory.NewStore(), func() {}, nil
	case config.StoreMongo:
		client, err := mongo.NewClient(ctx, mongo.NewConfigFromEnv(), logger)
		if err != nil {
			return repositories.Store{}, nil, err
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			client.Close(ctx)
			return repositories.Store{}, nil, err
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			client.Close(closeCtx)
		}
		return client.Store(), closeFn, nil
	default:
		db, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return repositories.Store{}, nil, err
		}
		closeFn := func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close database", zap.Error(err))
			}
		}
		return db.Store(), closeFn, nil
	}
}

// NewTranslator creates the translator named by TRANSLATOR
func NewTranslator(ctx context.Context, cfg config.Config, logger *zap.Logger) (repositories.Translator, error) {
	if cfg.Translator == config.TranslatorMock {
		return llm.NewMockTranslator(cfg.MockLanguage, logger), nil
	}
	return llm.NewGeminiTranslator(ctx, llm.NewGeminiConfigFromEnv(), logger)
}

// NewSynthesizer creates the speech synthesizer named by SYNTHESIZER
func NewSynthesizer(cfg config.Config, logger *zap.Logger) (repositories.TextToSpeech, error) {
	switch cfg.Synthesizer {
	case config.SynthesizerMock:
		return tts.NewMockTextToSpeech(logger), nil
	case config.SynthesizerExec:
		return tts.NewExecTTS(cfg.ExecTTSCommand, logger)
	default:
		return tts.NewElevenLabsTTS(tts.NewElevenLabsConfigFromEnv(), logger)
	}
}
