package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/repositories"
	"github.com/satriahrh/lingualoop/internal/audio"
)

const (
	vendorElevenLabs = "elevenlabs"

	defaultAPIBaseURL     = "https://api.elevenlabs.io/v1"
	defaultModelID        = "eleven_multilingual_v2" // Default model ID
	defaultStability      = 0.5                      // Default voice stability
	defaultClarity        = 0.75                     // Default voice clarity/similarity_boost
	defaultTimeoutSeconds = 60

	// raw 16 kHz 16-bit mono, wrapped into WAV locally
	outputFormat = "pcm_16000"
)

// ElevenLabsConfig holds configuration for the ElevenLabsTTS adapter
// Required fields:
// - APIKey: Your Eleven Labs API key
// Optional fields with defaults:
// - APIBaseURL: The base URL for the Eleven Labs API (default: "https://api.elevenlabs.io/v1")
// - ModelID: The model ID to use (default: "eleven_multilingual_v2")
// - Stability: Voice stability value between 0 and 1 (default: 0.5)
// - Clarity: Voice clarity/similarity boost value between 0 and 1 (default: 0.75)
// - TimeoutSeconds: Per-request timeout (default: 60)
type ElevenLabsConfig struct {
	APIKey         string
	APIBaseURL     string
	ModelID        string
	Stability      float64
	Clarity        float64
	TimeoutSeconds int
}

// ElevenLabsTTS implements TextToSpeech interface using Eleven Labs API.
// The voice short name of a request is the Eleven Labs voice id.
type ElevenLabsTTS struct {
	apiKey     string
	apiBaseURL string
	modelID    string
	stability  float64
	clarity    float64
	client     *http.Client
	logger     *zap.Logger
}

// Ensure ElevenLabsTTS implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)

// ElevenLabsVoiceSettings represents voice settings for Eleven Labs API
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// ElevenLabsRequest represents the request payload for Eleven Labs TTS API
type ElevenLabsRequest struct {
	Text                   string                  `json:"text"`
	ModelID                string                  `json:"model_id"`
	LanguageCode           string                  `json:"language_code,omitempty"`
	VoiceSettings          ElevenLabsVoiceSettings `json:"voice_settings"`
	ApplyTextNormalization string                  `json:"apply_text_normalization,omitempty"`
}

type elevenLabsError struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// ElevenLabsVoice is a voice listed by the Eleven Labs account
type ElevenLabsVoice struct {
	VoiceID string            `json:"voice_id"`
	Name    string            `json:"name"`
	Labels  map[string]string `json:"labels"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}

	// Validate stability is in the valid range
	if config.Stability != 0 && (config.Stability < 0 || config.Stability > 1) {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}

	// Validate clarity is in the valid range
	if config.Clarity != 0 && (config.Clarity < 0 || config.Clarity > 1) {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}

	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}

	return nil
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", apiBaseURL))
	}

	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
		logger.Info("Using default model ID", zap.String("modelID", modelID))
	}

	stability := config.Stability
	if stability == 0 {
		stability = defaultStability
	}

	clarity := config.Clarity
	if clarity == 0 {
		clarity = defaultClarity
	}

	timeout := config.TimeoutSeconds
	if timeout == 0 {
		timeout = defaultTimeoutSeconds
	}

	return &ElevenLabsTTS{
		apiKey:     config.APIKey,
		apiBaseURL: strings.TrimSuffix(apiBaseURL, "/"),
		modelID:    modelID,
		stability:  stability,
		clarity:    clarity,
		client:     &http.Client{Timeout: time.Duration(timeout) * time.Second},
		logger:     logger,
	}, nil
}

// SynthesizeToFile implements repositories.TextToSpeech. The clip is written
// to a temporary file first so path only ever holds a complete clip.
func (e *ElevenLabsTTS) SynthesizeToFile(ctx context.Context, req repositories.SynthesisRequest, path string) error {
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("%w: text cannot be empty", domain.ErrInvalidInput)
	}
	if req.Voice == "" {
		return fmt.Errorf("%w: voice is required", domain.ErrInvalidInput)
	}

	pcm, err := e.synthesize(ctx, req)
	if err != nil {
		return err
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := audio.WritePCM16(tmp, pcm); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move clip into place: %w", err)
	}
	return nil
}

func (e *ElevenLabsTTS) synthesize(ctx context.Context, req repositories.SynthesisRequest) ([]byte, error) {
	request := ElevenLabsRequest{
		Text:                   req.Text,
		ModelID:                e.modelID,
		ApplyTextNormalization: "auto",
		VoiceSettings: ElevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			UseSpeakerBoost: true,
		},
	}
	if tag, _, _ := strings.Cut(req.LanguageTag, "-"); tag != "" {
		request.LanguageCode = strings.ToLower(tag)
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s&enable_logging=false",
		e.apiBaseURL, req.Voice, outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "audio/pcm")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.Cancelled(ctx, err)
		}
		return nil, domain.NewVendorError(vendorElevenLabs, "request_failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		e.logger.Error("Eleven Labs API returned error",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("voice", req.Voice),
			zap.String("response", string(errorBody)))
		return nil, domain.NewVendorError(vendorElevenLabs, errorReason(resp.StatusCode, errorBody),
			fmt.Errorf("status %d", resp.StatusCode))
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.Cancelled(ctx, err)
		}
		return nil, domain.NewVendorError(vendorElevenLabs, "read_failed", err)
	}
	if len(pcm) == 0 || len(pcm)%2 != 0 {
		return nil, domain.NewVendorError(vendorElevenLabs, "malformed_audio",
			fmt.Errorf("got %d bytes of pcm", len(pcm)))
	}

	e.logger.Debug("Synthesized phrase",
		zap.String("voice", req.Voice),
		zap.Int("bytes", len(pcm)))
	return pcm, nil
}

// errorReason prefers the status code Eleven Labs puts in the error body.
func errorReason(statusCode int, body []byte) string {
	var apiErr elevenLabsError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Detail.Status != "" {
		return apiErr.Detail.Status
	}
	return "http_" + strconv.Itoa(statusCode)
}

// NewElevenLabsConfigFromEnv creates a new ElevenLabsConfig from environment variables
func NewElevenLabsConfigFromEnv() ElevenLabsConfig {
	config := ElevenLabsConfig{
		APIKey:     os.Getenv("ELEVEN_LABS_API_KEY"),
		APIBaseURL: os.Getenv("ELEVEN_LABS_API_BASE_URL"),
		ModelID:    os.Getenv("ELEVEN_LABS_MODEL_ID"),
	}

	if stabilityStr := os.Getenv("ELEVEN_LABS_STABILITY"); stabilityStr != "" {
		if stability, err := strconv.ParseFloat(stabilityStr, 64); err == nil && stability >= 0 && stability <= 1 {
			config.Stability = stability
		}
	}

	if clarityStr := os.Getenv("ELEVEN_LABS_CLARITY"); clarityStr != "" {
		if clarity, err := strconv.ParseFloat(clarityStr, 64); err == nil && clarity >= 0 && clarity <= 1 {
			config.Clarity = clarity
		}
	}

	if timeoutStr := os.Getenv("ELEVEN_LABS_TIMEOUT_SECONDS"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil && timeout > 0 {
			config.TimeoutSeconds = timeout
		}
	}

	return config
}

// ListVoices retrieves the voices available to the Eleven Labs account
func (e *ElevenLabsTTS) ListVoices(ctx context.Context) ([]ElevenLabsVoice, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.apiBaseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewVendorError(vendorElevenLabs, "request_failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, domain.NewVendorError(vendorElevenLabs, errorReason(resp.StatusCode, errorBody), nil)
	}

	var voicesResponse struct {
		Voices []ElevenLabsVoice `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&voicesResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	e.logger.Info("Retrieved available voices", zap.Int("count", len(voicesResponse.Voices)))
	return voicesResponse.Voices, nil
}
