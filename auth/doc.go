// Package auth verifies bearer JWTs on the API surface.
//
// Tokens are validated against keys fetched from a JWKS endpoint; the
// key set is cached with a refresh TTL and refreshes are deduplicated so
// a cold cache cannot stampede the identity provider. Verified claims are
// carried in the request context.
package auth
