package services

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"
)

// issuerMetadata is the subset of the issuer's discovery document this
// provider consumes.
type issuerMetadata struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
	EndSessionEndpoint    string `json:"end_session_endpoint"`
}

// issuerEntry is one cached issuer: its metadata and published signing keys.
// Entries are immutable after construction; refresh swaps whole entries.
type issuerEntry struct {
	metadata  issuerMetadata
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// issuerCache is the process-wide, lazily-populated, periodically-refreshed
// issuer map. Readers take the lock only long enough to copy the entry
// pointer, so a concurrent refresh never exposes a partially-built entry.
type issuerCache struct {
	mu      sync.RWMutex
	entries map[string]*issuerEntry

	client *http.Client
	logger *slog.Logger
}

func newIssuerCache(client *http.Client, logger *slog.Logger) *issuerCache {
	return &issuerCache{
		entries: make(map[string]*issuerEntry),
		client:  client,
		logger:  logger,
	}
}

// get returns the cached entry for an instance, fetching it on first use.
func (c *issuerCache) get(ctx context.Context, instanceID, issuerURL string) (*issuerEntry, error) {
	c.mu.RLock()
	entry := c.entries[instanceID]
	c.mu.RUnlock()
	if entry != nil {
		return entry, nil
	}
	return c.refresh(ctx, instanceID, issuerURL)
}

// refresh fetches the discovery document and key set, then swaps the entry in
// atomically. On failure any previous entry is left in place.
func (c *issuerCache) refresh(ctx context.Context, instanceID, issuerURL string) (*issuerEntry, error) {
	metadata, err := c.fetchMetadata(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("issuer metadata fetch failed for %s: %w", instanceID, err)
	}
	keys, err := c.fetchKeys(ctx, metadata.JWKSURI)
	if err != nil {
		return nil, fmt.Errorf("issuer key set fetch failed for %s: %w", instanceID, err)
	}

	entry := &issuerEntry{metadata: *metadata, keys: keys, fetchedAt: time.Now()}
	c.mu.Lock()
	c.entries[instanceID] = entry
	c.mu.Unlock()
	return entry, nil
}

func (c *issuerCache) fetchMetadata(ctx context.Context, issuerURL string) (*issuerMetadata, error) {
	wellKnown := strings.TrimSuffix(issuerURL, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery returned %s", resp.Status)
	}

	var metadata issuerMetadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("invalid discovery document: %w", err)
	}
	if metadata.AuthorizationEndpoint == "" || metadata.TokenEndpoint == "" || metadata.JWKSURI == "" {
		return nil, fmt.Errorf("discovery document missing required endpoints")
	}
	return &metadata, nil
}

// jwksDocument is the issuer's published key set. Only RSA signing keys are
// consumed; other key types are skipped.
type jwksDocument struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Use string `json:"use"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (c *issuerCache) fetchKeys(ctx context.Context, jwksURI string) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks endpoint returned %s", resp.Status)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid key set: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := parseRSAKey(k.N, k.E)
		if err != nil {
			c.logger.Warn("skipping unparseable jwk", slog.String("kid", k.Kid), slog.String("error", err.Error()))
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("key set contains no usable RSA signing keys")
	}
	return keys, nil
}

func parseRSAKey(nB64, eB64 string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 1 {
		return nil, fmt.Errorf("invalid exponent value")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
