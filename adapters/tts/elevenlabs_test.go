package tts

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/repositories"
	"github.com/satriahrh/lingualoop/internal/audio"
)

func TestNewElevenLabsTTS(t *testing.T) {
	logger := zaptest.NewLogger(t)

	// Test without API key
	t.Setenv("ELEVEN_LABS_API_KEY", "")
	config := NewElevenLabsConfigFromEnv()
	_, err := NewElevenLabsTTS(config, logger)
	if err == nil {
		t.Error("Expected error when API key is not set")
	}

	// Test with API key
	t.Setenv("ELEVEN_LABS_API_KEY", "test-api-key")
	config = NewElevenLabsConfigFromEnv()
	tts, err := NewElevenLabsTTS(config, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if tts.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", tts.apiKey)
	}
	if tts.modelID != defaultModelID {
		t.Errorf("Expected default model ID '%s', got '%s'", defaultModelID, tts.modelID)
	}
}

func TestValidateElevenLabsConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  ElevenLabsConfig
		wantErr bool
	}{
		{"valid", ElevenLabsConfig{APIKey: "k"}, false},
		{"missing key", ElevenLabsConfig{}, true},
		{"stability out of range", ElevenLabsConfig{APIKey: "k", Stability: 1.5}, true},
		{"clarity out of range", ElevenLabsConfig{APIKey: "k", Clarity: -0.1}, true},
		{"negative timeout", ElevenLabsConfig{APIKey: "k", TimeoutSeconds: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateElevenLabsConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func pcmBytes(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func newTestTTS(t *testing.T, handler http.HandlerFunc) *ElevenLabsTTS {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key", APIBaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewElevenLabsTTS: %v", err)
	}
	return tts
}

func TestElevenLabsTTS_SynthesizeToFile(t *testing.T) {
	var got ElevenLabsRequest
	tts := newTestTTS(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech/voice-123" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != "pcm_16000" {
			t.Errorf("Unexpected output format %s", r.URL.Query().Get("output_format"))
		}
		if r.Header.Get("xi-api-key") != "test-api-key" {
			t.Errorf("Missing API key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write(pcmBytes(10, -10, 300))
	})

	path := filepath.Join(t.TempDir(), "42")
	err := tts.SynthesizeToFile(context.Background(), repositories.SynthesisRequest{
		Text:        "Buenos días",
		Voice:       "voice-123",
		LanguageTag: "es-MX",
	}, path)
	if err != nil {
		t.Fatalf("SynthesizeToFile: %v", err)
	}

	if got.Text != "Buenos días" || got.LanguageCode != "es" {
		t.Errorf("Unexpected request %+v", got)
	}
	samples, err := audio.ReadSamples(path)
	if err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}
	if len(samples) != 3 || samples[1] != -10 {
		t.Errorf("Unexpected samples %v", samples)
	}
}

func TestElevenLabsTTS_VendorError(t *testing.T) {
	tts := newTestTTS(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":{"status":"quota_exceeded","message":"out of credits"}}`))
	})

	path := filepath.Join(t.TempDir(), "1")
	err := tts.SynthesizeToFile(context.Background(), repositories.SynthesisRequest{Text: "hi", Voice: "v"}, path)

	var vendorErr *domain.VendorError
	if !errors.As(err, &vendorErr) {
		t.Fatalf("Expected VendorError, got %v", err)
	}
	if vendorErr.Reason != "quota_exceeded" {
		t.Errorf("Expected reason quota_exceeded, got %s", vendorErr.Reason)
	}
	if !errors.Is(err, domain.ErrVendorFailure) {
		t.Error("Expected error to match ErrVendorFailure")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("Expected no clip to be written")
	}
}

func TestElevenLabsTTS_StatusReason(t *testing.T) {
	tts := newTestTTS(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	err := tts.SynthesizeToFile(context.Background(), repositories.SynthesisRequest{Text: "hi", Voice: "v"}, filepath.Join(t.TempDir(), "1"))

	var vendorErr *domain.VendorError
	if !errors.As(err, &vendorErr) || vendorErr.Reason != "http_502" {
		t.Errorf("Expected http_502 vendor error, got %v", err)
	}
}

func TestElevenLabsTTS_Cancelled(t *testing.T) {
	tts := newTestTTS(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(pcmBytes(1))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tts.SynthesizeToFile(ctx, repositories.SynthesisRequest{Text: "hi", Voice: "v"}, filepath.Join(t.TempDir(), "1"))
	if !errors.Is(err, domain.ErrCancelled) {
		t.Errorf("Expected ErrCancelled, got %v", err)
	}
}

func TestElevenLabsTTS_ListVoices(t *testing.T) {
	tts := newTestTTS(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"voices":[{"voice_id":"abc","name":"Rachel","labels":{"accent":"american"}}]}`))
	})

	voices, err := tts.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 1 || voices[0].VoiceID != "abc" || voices[0].Labels["accent"] != "american" {
		t.Errorf("Unexpected voices %+v", voices)
	}
}

func TestMockTextToSpeech(t *testing.T) {
	path := filepath.Join(t.TempDir(), "7")
	m := NewMockTextToSpeech(zaptest.NewLogger(t))
	if err := m.SynthesizeToFile(context.Background(), repositories.SynthesisRequest{Text: "one two", Voice: "v"}, path); err != nil {
		t.Fatalf("SynthesizeToFile: %v", err)
	}
	samples, err := audio.ReadSamples(path)
	if err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}
	if len(samples) != audio.SampleRate {
		t.Errorf("Expected one second of audio, got %d samples", len(samples))
	}
}
