// Package token signs and verifies tenant session tokens. Tokens are
// PASETO v4.local: the tenant id travels encrypted inside the cookie, so
// clients can neither read nor forge it.
package token

import (
	"encoding/hex"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"spotify-export-stats/internal/apperr"
)

const (
	tokenIssuer   = "spotify-export-stats"
	tokenAudience = "spotify-export-stats-web"

	// PASETO v4 symmetric keys are 32 bytes, configured as 64 hex chars.
	keyBytesSize = 32
	keyHexSize   = 64
)

// DefaultTokenTTL bounds how long an upload session stays resumable.
const DefaultTokenTTL = 24 * time.Hour

// Signer signs tenant ids into opaque tokens and verifies them back.
type Signer struct {
	key paseto.V4SymmetricKey
	ttl time.Duration
}

// NewSigner creates a Signer from a 64-character hex key.
func NewSigner(keyHex string, ttl time.Duration) (*Signer, error) {
	if len(keyHex) != keyHexSize {
		return nil, fmt.Errorf("session key must be %d hex characters, got %d", keyHexSize, len(keyHex))
	}
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("session key is not valid hex: %w", err)
	}
	key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("creating symmetric key: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Signer{key: key, ttl: ttl}, nil
}

// NewRandomSigner creates a Signer with a freshly generated key. Tokens
// signed with it do not survive a process restart; meant for development
// setups without a configured key.
func NewRandomSigner(ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Signer{key: paseto.NewV4SymmetricKey(), ttl: ttl}
}

// GenerateKeyHex returns a fresh key in the hex format NewSigner accepts.
func GenerateKeyHex() string {
	return paseto.NewV4SymmetricKey().ExportHex()
}

// Sign wraps a tenant id into an encrypted token.
func (s *Signer) Sign(tenantID string) (string, error) {
	now := time.Now()

	t := paseto.NewToken()
	t.SetIssuer(tokenIssuer)
	t.SetAudience(tokenAudience)
	t.SetSubject(tenantID)
	t.SetIssuedAt(now)
	t.SetNotBefore(now)
	t.SetExpiration(now.Add(s.ttl))

	return t.V4Encrypt(s.key, nil), nil
}

// Verify decrypts a token and returns the tenant id it carries. Any
// failure (bad signature, wrong audience, expired) yields
// apperr.ErrInvalidToken with no further detail, so callers treat every
// bad token the same way.
func (s *Signer) Verify(tokenString string) (string, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(time.Now()))

	t, err := parser.ParseV4Local(s.key, tokenString, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalidToken, err)
	}

	subject, err := t.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("%w: missing subject", apperr.ErrInvalidToken)
	}
	return subject, nil
}
