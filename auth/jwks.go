// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	// jwksCacheTTL tolerates key rotation overlap without refetching per
	// request.
	jwksCacheTTL = 10 * time.Minute

	// jwksCacheMaxEntries bounds memory; one entry per JWKS URI.
	jwksCacheMaxEntries = 5
)

// JWKSCache fetches and caches the IdP's signing keys, keyed by JWKS URI.
// Concurrent misses for the same URI coalesce into a single outbound fetch,
// and outbound fetches are rate limited so a burst of tokens with unknown
// kids cannot stampede the IdP.
type JWKSCache struct {
	mu      sync.RWMutex
	entries map[string]*jwksEntry
	group   singleflight.Group
	limiter *rate.Limiter
	client  *http.Client
	now     func() time.Time
}

type jwksEntry struct {
	set       jwk.Set
	expiresAt time.Time
}

// NewJWKSCache creates a new JWKS cache with the given HTTP client.
// If client is nil, a client with a 10 second timeout is used.
func NewJWKSCache(client *http.Client) *JWKSCache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWKSCache{
		entries: make(map[string]*jwksEntry),
		limiter: rate.NewLimiter(rate.Every(6*time.Second), 10),
		client:  client,
		now:     time.Now,
	}
}

// Key returns the public key with the given kid from the key set at
// jwksURL, fetching and caching the set as needed. The returned value is
// the raw crypto key (e.g. *rsa.PublicKey) suitable for JWT verification.
func (c *JWKSCache) Key(ctx context.Context, jwksURL, kid string) (any, error) {
	if kid == "" {
		return nil, fmt.Errorf("token header missing kid")
	}

	set, err := c.lookup(ctx, jwksURL)
	if err != nil {
		return nil, err
	}

	key, found := set.LookupKeyID(kid)
	if !found {
		return nil, fmt.Errorf("key ID %s not found in JWKS", kid)
	}

	var rawKey any
	if err := jwk.Export(key, &rawKey); err != nil {
		return nil, fmt.Errorf("failed to export raw key: %w", err)
	}

	return rawKey, nil
}

// lookup returns the cached key set for jwksURL, fetching on miss or
// expiry. Concurrent misses share one fetch via singleflight.
func (c *JWKSCache) lookup(ctx context.Context, jwksURL string) (jwk.Set, error) {
	c.mu.RLock()
	entry, ok := c.entries[jwksURL]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.set, nil
	}

	result, err, _ := c.group.Do(jwksURL, func() (any, error) {
		// Another caller may have populated the entry while this one
		// waited on the flight group.
		c.mu.RLock()
		entry, ok := c.entries[jwksURL]
		c.mu.RUnlock()
		if ok && c.now().Before(entry.expiresAt) {
			return entry.set, nil
		}

		if !c.limiter.Allow() {
			return nil, fmt.Errorf("JWKS fetch rate limit exceeded for %s", jwksURL)
		}

		set, err := c.fetch(ctx, jwksURL)
		if err != nil {
			return nil, err
		}

		c.store(jwksURL, set)
		return set, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(jwk.Set), nil
}

// store inserts a fetched key set, evicting the entry closest to expiry
// when the cache is full.
func (c *JWKSCache) store(jwksURL string, set jwk.Set) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[jwksURL]; !exists && len(c.entries) >= jwksCacheMaxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.expiresAt.Before(oldest) {
				oldestKey = k
				oldest = e.expiresAt
			}
		}
		delete(c.entries, oldestKey)
	}

	c.entries[jwksURL] = &jwksEntry{
		set:       set,
		expiresAt: c.now().Add(jwksCacheTTL),
	}
}

// fetch retrieves and parses the key set at jwksURL.
func (c *JWKSCache) fetch(ctx context.Context, jwksURL string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}

	set, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("JWKS contains no keys")
	}

	return set, nil
}

// Invalidate removes a JWKS entry from the cache, forcing a fresh fetch on
// next use.
func (c *JWKSCache) Invalidate(jwksURL string) {
	c.mu.Lock()
	delete(c.entries, jwksURL)
	c.mu.Unlock()
}
