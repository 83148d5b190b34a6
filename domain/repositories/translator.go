package repositories

import "context"

// Translator abstracts the external translation service
type Translator interface {
	// DetectLanguage returns the language tag of text, e.g. "en".
	DetectLanguage(ctx context.Context, text string) (string, error)
	// TranslateBatch translates texts from one tag to another. The result has
	// the same length and order as texts.
	TranslateBatch(ctx context.Context, texts []string, from, to string) ([]string, error)
}
