package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// KeyProvider retrieves signing keys for token validation.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider serves a single fixed key, used in tests and for
// locally issued tokens.
type StaticKeyProvider struct {
	key any
}

// NewStaticKeyProvider creates a provider that always returns key.
func NewStaticKeyProvider(key any) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	return p.key, nil
}

// Claims are the verified token claims the service cares about.
type Claims struct {
	Subject string
	Email   string
	Expiry  time.Time
}

// VerifierConfig configures token verification.
type VerifierConfig struct {
	// Issuer is the required iss claim.
	Issuer string

	// Audience is the required aud claim. Empty skips the check.
	Audience string
}

// Verifier validates RS256 bearer tokens.
type Verifier struct {
	config VerifierConfig
	keys   KeyProvider
}

// NewVerifier creates a verifier backed by the given key provider.
func NewVerifier(config VerifierConfig, keys KeyProvider) *Verifier {
	return &Verifier{config: config, keys: keys}
}

// Verify parses and validates a raw token, returning its claims.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	if v == nil || v.keys == nil {
		return nil, ErrNotConfigured
	}
	if raw == "" {
		return nil, ErrMissingCredentials
	}

	keyFunc := func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		return v.keys.GetKey(ctx, kid)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.config.Issuer),
		jwt.WithExpirationRequired(),
	}
	if v.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.config.Audience))
	}

	token, err := jwt.Parse(raw, keyFunc, opts...)
	if err != nil {
		return nil, mapJWTError(err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}

	claims := &Claims{}
	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.Expiry = exp.Time
	}
	return claims, nil
}

// mapJWTError translates library errors into the package's sentinels,
// preserving the original as wrapped context.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %v", ErrInvalidIssuer, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
