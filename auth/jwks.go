package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
)

// JWKSConfig configures the JWKS key provider.
type JWKSConfig struct {
	// URL is the JWKS endpoint URL.
	URL string

	// CacheTTL is how long to cache keys before refreshing.
	// Default: 10 minutes.
	CacheTTL time.Duration

	// HTTPClient is the HTTP client for fetches. Nil means a default
	// client with a 5 second timeout.
	HTTPClient *http.Client
}

// JWKSProvider retrieves RSA signing keys from a JWKS endpoint, caching
// them for the configured TTL. Refreshes are singleflight-deduplicated,
// and on refresh failure the last successfully fetched keys are used so
// a flapping identity provider does not take down token verification.
type JWKSProvider struct {
	config JWKSConfig

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
	lastGood  map[string]*rsa.PublicKey

	group singleflight.Group
}

// NewJWKSProvider creates a provider for the given endpoint.
func NewJWKSProvider(config JWKSConfig) *JWKSProvider {
	if config.CacheTTL <= 0 {
		config.CacheTTL = 10 * time.Minute
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &JWKSProvider{
		config:   config,
		keys:     make(map[string]*rsa.PublicKey),
		lastGood: make(map[string]*rsa.PublicKey),
	}
}

// GetKey returns the key for the given key ID, refreshing the cached set
// if it is stale or does not contain the key. An empty keyID matches any
// single cached key.
func (p *JWKSProvider) GetKey(ctx context.Context, keyID string) (any, error) {
	p.mu.RLock()
	fresh := time.Since(p.fetchedAt) < p.config.CacheTTL
	if fresh {
		if key := lookup(p.keys, keyID); key != nil {
			p.mu.RUnlock()
			return key, nil
		}
	}
	p.mu.RUnlock()

	// One refresh serves every concurrent caller.
	_, err, _ := p.group.Do("refresh", func() (any, error) {
		return nil, p.refresh(ctx)
	})
	if err != nil {
		p.mu.RLock()
		key := lookup(p.keys, keyID)
		if key == nil {
			key = lookup(p.lastGood, keyID)
		}
		p.mu.RUnlock()
		if key != nil {
			return key, nil
		}
		return nil, err
	}

	p.mu.RLock()
	key := lookup(p.keys, keyID)
	p.mu.RUnlock()

	if key == nil {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

func lookup(keys map[string]*rsa.PublicKey, keyID string) *rsa.PublicKey {
	if keyID == "" {
		for _, key := range keys {
			return key
		}
		return nil
	}
	return keys[keyID]
}

func (p *JWKSProvider) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.URL, nil)
	if err != nil {
		return fmt.Errorf("auth: create JWKS request: %w", err)
	}

	resp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth: fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: JWKS endpoint returned status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("auth: decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			continue // skip unusable keys, keep the rest
		}
		keys[k.Kid] = pub
	}

	p.mu.Lock()
	p.keys = keys
	p.fetchedAt = time.Now()
	for kid, key := range keys {
		p.lastGood[kid] = key
	}
	p.mu.Unlock()

	return nil
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func parseRSAKey(k jwk) (*rsa.PublicKey, error) {
	if k.N == "" || k.E == "" {
		return nil, fmt.Errorf("auth: JWK missing modulus or exponent")
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("auth: decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("auth: decode exponent: %w", err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

// Ensure JWKSProvider implements KeyProvider.
var _ KeyProvider = (*JWKSProvider)(nil)
