package auth

import (
	"sync"
	"time"
)

// safetyBuffer is subtracted from a token's reported expiry when it is cached,
// so a token is replaced before it actually lapses mid-request.
const safetyBuffer = 5 * time.Minute

// TokenCache is a process-wide in-memory token store keyed by
// (clientID, tenantID-or-authority). Entries are never persisted across
// restarts. Concurrent first-time acquisitions for the same key may race; the
// cache is last-writer-wins, which is acceptable because acquisition is
// idempotent.
type TokenCache struct {
	mu      sync.RWMutex
	entries map[string]cachedToken
	now     func() time.Time
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// NewTokenCache creates an empty token cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{
		entries: make(map[string]cachedToken),
		now:     time.Now,
	}
}

func tokenKey(clientID, tenantID string) string {
	return clientID + "|" + tenantID
}

// Get returns a cached token for the key if it has not reached its buffered
// expiry.
func (c *TokenCache) Get(clientID, tenantID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[tokenKey(clientID, tenantID)]
	if !ok || !c.now().Before(entry.expiresAt) {
		return "", false
	}
	return entry.value, true
}

// Put stores a token with its buffered expiry (reported expiry minus the
// safety buffer).
func (c *TokenCache) Put(clientID, tenantID string, tok Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tokenKey(clientID, tenantID)] = cachedToken{
		value:     tok.Value,
		expiresAt: tok.ExpiresAt.Add(-safetyBuffer),
	}
}

// Invalidate clears all cached tokens. Call after a 401 to force reacquisition.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedToken)
}

// CredentialCache stores constructed Credential objects keyed by
// (clientID-or-"default", tenantID-or-"default"). Construction is cached;
// token acquisition through the credential is not.
type CredentialCache struct {
	mu    sync.RWMutex
	creds map[string]Credential
}

// NewCredentialCache creates an empty credential cache.
func NewCredentialCache() *CredentialCache {
	return &CredentialCache{creds: make(map[string]Credential)}
}

func credentialKey(clientID, tenantID string) string {
	if clientID == "" {
		clientID = "default"
	}
	if tenantID == "" {
		tenantID = "default"
	}
	return clientID + "|" + tenantID
}

// GetOrCreate returns the cached credential for the key, constructing and
// storing one via build on first use.
func (c *CredentialCache) GetOrCreate(clientID, tenantID string, build func() (Credential, error)) (Credential, error) {
	key := credentialKey(clientID, tenantID)

	c.mu.RLock()
	cred, ok := c.creds[key]
	c.mu.RUnlock()
	if ok {
		return cred, nil
	}

	cred, err := build()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.creds[key] = cred
	c.mu.Unlock()
	return cred, nil
}
