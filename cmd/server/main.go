package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/lingualoop/adapters"
	"github.com/satriahrh/lingualoop/internal/api"
	"github.com/satriahrh/lingualoop/internal/auth"
	"github.com/satriahrh/lingualoop/internal/config"
	"github.com/satriahrh/lingualoop/internal/pattern"
	"github.com/satriahrh/lingualoop/usecase"
)

func main() {
	cfg, err := config.NewConfigFromEnv()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Initialize adapters
	store, closeStore, err := adapters.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	translator, err := adapters.NewTranslator(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create translator", zap.Error(err))
	}
	synthesizer, err := adapters.NewSynthesizer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create synthesizer", zap.Error(err))
	}
	patterns, err := pattern.LoadFile(cfg.PatternsFile)
	if err != nil {
		logger.Fatal("Failed to load patterns", zap.Error(err))
	}
	tokens, err := auth.NewTokenService(cfg.TokenSecret, cfg.TokenTTL, store.Tokens)
	if err != nil {
		logger.Fatal("Failed to create token service", zap.Error(err))
	}

	// Initialize usecase services
	languages := usecase.NewLanguageCache(store.Languages, cfg.LanguageCacheTTL)
	translations := usecase.NewTranslationService(store, translator, languages, logger)
	speech := usecase.NewSpeechService(synthesizer, cfg.AudioBaseDir, cfg.SynthesisLimit, logger)
	lessons := usecase.NewLessonService(store, translator, languages, cfg.ParseDir, cfg.PhrasesPerFile, logger)
	audioService := usecase.NewAudioService(store, languages, translations, speech, patterns,
		cfg.AudioBaseDir, cfg.AudioOutputDir, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, api.Services{
		Lessons:   lessons,
		Audio:     audioService,
		Languages: languages,
		Tokens:    tokens,
		Store:     store,
		Patterns:  patterns,
		AdminKey:  cfg.AdminKey,
	}, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreDriver),
		zap.String("translator", cfg.Translator),
		zap.String("synthesizer", cfg.Synthesizer),
		zap.Strings("patterns", patterns.Names()))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
