package repositories

import "context"

// SynthesisRequest describes one phrase to synthesize
type SynthesisRequest struct {
	Text        string `json:"text"`
	Voice       string `json:"voice"`
	LanguageTag string `json:"language_tag"`
}

// TextToSpeech abstracts the external speech synthesis service
type TextToSpeech interface {
	// SynthesizeToFile writes a single-channel 16-bit PCM WAV file to path.
	// Failures reported by the vendor are returned as *domain.VendorError.
	SynthesizeToFile(ctx context.Context, req SynthesisRequest, path string) error
}
