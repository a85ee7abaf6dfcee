package oidc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// DefaultJWKSTTL is how long fetched key sets are reused
const DefaultJWKSTTL = time.Hour

// maxJWKSBytes caps the JWKS response body
const maxJWKSBytes = 1 << 20

// JWKSCache caches JWKS keys
type JWKSCache struct {
	keys    jwk.Set
	expires time.Time
}

// JWKSManager manages JWKS fetching and caching
type JWKSManager struct {
	cache  map[string]*JWKSCache
	mu     sync.RWMutex
	ttl    time.Duration
	client *http.Client
	now    func() time.Time
}

// JWKSOption configures a JWKSManager
type JWKSOption func(*JWKSManager)

// WithTTL overrides DefaultJWKSTTL
func WithTTL(ttl time.Duration) JWKSOption {
	return func(m *JWKSManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithHTTPClient sets the client used to fetch key sets
func WithHTTPClient(client *http.Client) JWKSOption {
	return func(m *JWKSManager) {
		if client != nil {
			m.client = client
		}
	}
}

// NewJWKSManager creates a new JWKS manager
func NewJWKSManager(opts ...JWKSOption) *JWKSManager {
	m := &JWKSManager{
		cache:  make(map[string]*JWKSCache),
		ttl:    DefaultJWKSTTL,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetJWKS retrieves JWKS for a given JWKS URL, with caching
func (m *JWKSManager) GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	m.mu.RLock()
	cached, exists := m.cache[jwksURL]
	m.mu.RUnlock()

	if exists && m.now().Before(cached.expires) {
		return cached.keys, nil
	}

	keys, err := m.fetchJWKS(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	m.mu.Lock()
	m.cache[jwksURL] = &JWKSCache{
		keys:    keys,
		expires: m.now().Add(m.ttl),
	}
	m.mu.Unlock()

	return keys, nil
}

// Invalidate drops the cached key set for jwksURL so the next lookup refetches it
func (m *JWKSManager) Invalidate(jwksURL string) {
	m.mu.Lock()
	delete(m.cache, jwksURL)
	m.mu.Unlock()
}

func (m *JWKSManager) fetchJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}

	keys, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}

	return keys, nil
}
