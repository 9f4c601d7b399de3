package auth

import "errors"

// Sentinel errors for token verification.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrInvalidSignature   = errors.New("auth: invalid signature")
	ErrInvalidIssuer      = errors.New("auth: invalid issuer")
	ErrKeyNotFound        = errors.New("auth: signing key not found")
	ErrNotConfigured      = errors.New("auth: verifier not configured")
)
