package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	"github.com/trashtalkapp/trashtalk-client/internal/id"
)

const (
	tokenIssuer   = "trashtalk-client"
	tokenAudience = "trashtalk-device"

	keyBytesSize = 32 // PASETO v4 local keys are 256 bits
	keyHexSize   = 64
)

// SessionClaims are the claims inside a session token.
type SessionClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`

	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// TokenService mints and verifies v4.local session tokens.
type TokenService struct {
	symmetricKey paseto.V4SymmetricKey
	duration     time.Duration
}

// NewTokenService creates a token service from a 32-byte key.
func NewTokenService(key []byte, duration time.Duration) (*TokenService, error) {
	if len(key) != keyBytesSize {
		return nil, fmt.Errorf("session key must be exactly %d bytes, got %d", keyBytesSize, len(key))
	}
	if duration <= 0 {
		return nil, fmt.Errorf("session duration must be positive, got %s", duration)
	}

	k, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}
	return &TokenService{symmetricKey: k, duration: duration}, nil
}

// Issue creates a session for account.
func (s *TokenService) Issue(account *domain.Account) (*domain.Session, error) {
	now := time.Now()
	sessionID, err := id.Generate("session")
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(account.UID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.duration))
	token.SetJti(sessionID)
	//nolint:errcheck // Set only fails on unmarshalable values
	_ = token.Set("user_id", account.UID)
	//nolint:errcheck // Set only fails on unmarshalable values
	_ = token.Set("email", account.Email)

	return &domain.Session{
		ID:        sessionID,
		UID:       account.UID,
		Token:     token.V4Encrypt(s.symmetricKey, nil),
		CreatedAt: now,
		ExpiresAt: now.Add(s.duration),
	}, nil
}

// Verify decrypts tokenString and checks issuer, audience and expiry.
func (s *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(time.Now()))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims SessionClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	return &claims, nil
}

// Duration returns the configured session lifetime.
func (s *TokenService) Duration() time.Duration {
	return s.duration
}
