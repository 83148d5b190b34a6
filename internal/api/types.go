package api

import "time"

// TokenResponse is returned when an access token is issued
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PatternsResponse lists the pattern names a lesson can be rendered with
type PatternsResponse struct {
	Patterns []string `json:"patterns"`
}

// CatalogResponse reports what a catalog update created
type CatalogResponse struct {
	LanguagesCreated int `json:"languages_created"`
	VoicesCreated    int `json:"voices_created"`
	Existing         int `json:"existing"`
}

// ErrorResponse represents an error response. Errors lists every problem when
// more than one was found.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}
