// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Storage backends
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// Vendors
const (
	TranslatorGemini = "gemini"
	TranslatorMock   = "mock"

	SynthesizerElevenLabs = "elevenlabs"
	SynthesizerExec       = "exec"
	SynthesizerMock       = "mock"
)

// Config is the process configuration
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	AudioBaseDir   string
	AudioOutputDir string
	ParseDir       string
	PatternsFile   string
	PhrasesPerFile int

	StoreDriver string
	SQLitePath  string

	Translator       string
	MockLanguage     string
	Synthesizer      string
	ExecTTSCommand   string
	SynthesisLimit   int
	TokenSecret      string
	TokenTTL         time.Duration
	AdminKey         string
	LanguageCacheTTL time.Duration
}

// NewConfigFromEnv loads .env when present, then reads the environment.
// Unparseable numbers and durations are reported by Validate.
func NewConfigFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var errs error
	cfg := Config{
		Port:           getenv("PORT", "8080"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "json"),
		AudioBaseDir:   getenv("AUDIO_BASE_DIR", "./data/audio"),
		AudioOutputDir: getenv("AUDIO_OUTPUT_DIR", "./data/output"),
		ParseDir:       getenv("PARSE_DIR", filepath.Join(os.TempDir(), "ParseFile")),
		PatternsFile:   os.Getenv("PATTERNS_FILE"),
		StoreDriver:    getenv("STORE_DRIVER", StoreSQLite),
		SQLitePath:     getenv("SQLITE_PATH", "./data/lingualoop.db"),
		Translator:     getenv("TRANSLATOR", TranslatorGemini),
		MockLanguage:   getenv("MOCK_LANGUAGE", "en"),
		Synthesizer:    getenv("SYNTHESIZER", SynthesizerElevenLabs),
		ExecTTSCommand: os.Getenv("EXEC_TTS_COMMAND"),
		TokenSecret:    os.Getenv("TOKEN_SECRET"),
		AdminKey:       os.Getenv("ADMIN_KEY"),
	}

	cfg.PhrasesPerFile, errs = getint("PHRASES_PER_FILE", 100, errs)
	cfg.SynthesisLimit, errs = getint("SYNTHESIS_CONCURRENCY", 8, errs)
	cfg.TokenTTL, errs = getduration("TOKEN_TTL", 7*24*time.Hour, errs)
	cfg.LanguageCacheTTL, errs = getduration("LANGUAGE_CACHE_TTL", 10*time.Minute, errs)
	if errs != nil {
		return cfg, errs
	}
	return cfg, nil
}

// Validate reports every invalid setting
func (c Config) Validate() error {
	var errs error
	if c.Port == "" {
		errs = multierr.Append(errs, errors.New("PORT is required"))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = multierr.Append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}
	if c.AudioBaseDir == "" || c.AudioOutputDir == "" || c.ParseDir == "" {
		errs = multierr.Append(errs, errors.New("AUDIO_BASE_DIR, AUDIO_OUTPUT_DIR and PARSE_DIR are required"))
	}
	if c.PhrasesPerFile < 1 {
		errs = multierr.Append(errs, fmt.Errorf("PHRASES_PER_FILE must be positive, got %d", c.PhrasesPerFile))
	}
	if c.SynthesisLimit < 1 {
		errs = multierr.Append(errs, fmt.Errorf("SYNTHESIS_CONCURRENCY must be positive, got %d", c.SynthesisLimit))
	}
	switch c.StoreDriver {
	case StoreMemory, StoreMongo:
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = multierr.Append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("STORE_DRIVER must be memory, sqlite or mongo, got %q", c.StoreDriver))
	}
	switch c.Translator {
	case TranslatorGemini, TranslatorMock:
	default:
		errs = multierr.Append(errs, fmt.Errorf("TRANSLATOR must be gemini or mock, got %q", c.Translator))
	}
	switch c.Synthesizer {
	case SynthesizerElevenLabs, SynthesizerMock:
	case SynthesizerExec:
		if c.ExecTTSCommand == "" {
			errs = multierr.Append(errs, errors.New("EXEC_TTS_COMMAND is required for the exec synthesizer"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("SYNTHESIZER must be elevenlabs, exec or mock, got %q", c.Synthesizer))
	}
	if c.TokenSecret == "" {
		errs = multierr.Append(errs, errors.New("TOKEN_SECRET is required"))
	}
	if c.LanguageCacheTTL <= 0 {
		errs = multierr.Append(errs, errors.New("LANGUAGE_CACHE_TTL must be positive"))
	}
	return errs
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int, errs error) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
	}
	return n, errs
}

func getduration(key string, fallback time.Duration, errs error) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
	}
	return d, errs
}
