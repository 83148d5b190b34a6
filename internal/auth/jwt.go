// Package auth issues and checks the single-use access tokens that admit an
// audio generation request.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/repositories"
)

const (
	scopeAudio = "audio:generate"

	DefaultTokenTTL = 7 * 24 * time.Hour
)

var (
	ErrTokenInvalid = fmt.Errorf("%w: invalid access token", domain.ErrAccessDenied)
	ErrTokenUsed    = fmt.Errorf("%w: access token already used", domain.ErrAccessDenied)
)

// AccessClaims represents the claims in an access token
type AccessClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenService signs access tokens and tracks their use. Only the SHA-256
// hash of a token is stored.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	tokens repositories.AccessTokenRepository
	now    func() time.Time
}

// NewTokenService creates a token service; a zero ttl selects DefaultTokenTTL
func NewTokenService(secret string, ttl time.Duration, tokens repositories.AccessTokenRepository) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, tokens: tokens, now: time.Now}, nil
}

// HashToken returns the hex SHA-256 of a token string
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Issue signs a new token and records it as unused
func (s *TokenService) Issue(ctx context.Context) (string, *AccessClaims, error) {
	now := s.now()
	claims := &AccessClaims{
		Scope: scopeAudio,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	if err := s.tokens.Create(ctx, HashToken(token)); err != nil {
		return "", nil, fmt.Errorf("store token: %w", err)
	}
	return token, claims, nil
}

// Check validates the signature and expiry of token and that it has not been
// used. It returns the hash to pass to MarkUsed.
func (s *TokenService) Check(ctx context.Context, token string) (string, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.Scope != scopeAudio {
		return "", ErrTokenInvalid
	}

	hash := HashToken(token)
	status, err := s.tokens.Status(ctx, hash)
	if err != nil {
		return "", fmt.Errorf("token status: %w", err)
	}
	if !status.Valid {
		return "", ErrTokenInvalid
	}
	if status.AlreadyUsed {
		return "", ErrTokenUsed
	}
	return hash, nil
}

// MarkUsed consumes the token with the given hash. Of several requests that
// passed Check with the same token only the first to get here succeeds; the
// rest get ErrTokenUsed.
func (s *TokenService) MarkUsed(ctx context.Context, hash string) error {
	err := s.tokens.MarkUsed(ctx, hash)
	switch {
	case errors.Is(err, domain.ErrAlreadyUsed):
		return ErrTokenUsed
	case errors.Is(err, domain.ErrNotFound):
		return ErrTokenInvalid
	}
	return err
}
