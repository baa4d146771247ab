package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCacheMiss(t *testing.T) {
	cache := NewTokenCache()

	_, found := cache.Get("client", "tenant")
	assert.False(t, found)
}

func TestTokenCachePutGet(t *testing.T) {
	cache := NewTokenCache()
	cache.Put("client", "tenant", Token{
		Value:     "tok-1",
		ExpiresAt: time.Now().Add(time.Hour),
	})

	value, found := cache.Get("client", "tenant")
	require.True(t, found)
	assert.Equal(t, "tok-1", value)

	// A different tenant is a different key.
	_, found = cache.Get("client", "other-tenant")
	assert.False(t, found)
}

func TestTokenCacheSafetyBuffer(t *testing.T) {
	base := time.Now()
	cache := NewTokenCache()
	cache.now = func() time.Time { return base }

	// Expires in 4 minutes: inside the 5 minute buffer, so never served.
	cache.Put("client", "tenant", Token{
		Value:     "short-lived",
		ExpiresAt: base.Add(4 * time.Minute),
	})
	_, found := cache.Get("client", "tenant")
	assert.False(t, found)

	// Expires in an hour: served until the buffered expiry passes.
	cache.Put("client", "tenant", Token{
		Value:     "long-lived",
		ExpiresAt: base.Add(time.Hour),
	})
	_, found = cache.Get("client", "tenant")
	assert.True(t, found)

	cache.now = func() time.Time { return base.Add(56 * time.Minute) }
	_, found = cache.Get("client", "tenant")
	assert.False(t, found)
}

func TestTokenCacheInvalidate(t *testing.T) {
	cache := NewTokenCache()
	cache.Put("client", "tenant", Token{Value: "tok", ExpiresAt: time.Now().Add(time.Hour)})

	cache.Invalidate()

	_, found := cache.Get("client", "tenant")
	assert.False(t, found)
}

type staticCredential struct {
	token string
}

func (s *staticCredential) GetToken(_ context.Context, _ string) (Token, error) {
	return Token{Value: s.token, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func TestCredentialCacheBuildsOnce(t *testing.T) {
	cache := NewCredentialCache()

	builds := 0
	build := func() (Credential, error) {
		builds++
		return &staticCredential{token: "t"}, nil
	}

	first, err := cache.GetOrCreate("client", "tenant", build)
	require.NoError(t, err)
	second, err := cache.GetOrCreate("client", "tenant", build)
	require.NoError(t, err)

	assert.Same(t, first.(*staticCredential), second.(*staticCredential))
	assert.Equal(t, 1, builds)
}

func TestCredentialCacheDefaultKeys(t *testing.T) {
	cache := NewCredentialCache()

	_, err := cache.GetOrCreate("", "", func() (Credential, error) {
		return &staticCredential{token: "default"}, nil
	})
	require.NoError(t, err)

	// Empty IDs normalize to the same key.
	cred, err := cache.GetOrCreate("", "", func() (Credential, error) {
		return nil, errors.New("should not be called")
	})
	require.NoError(t, err)
	assert.Equal(t, "default", cred.(*staticCredential).token)
}

func TestCredentialCacheBuildError(t *testing.T) {
	cache := NewCredentialCache()

	_, err := cache.GetOrCreate("client", "tenant", func() (Credential, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	// A failed build is not cached.
	cred, err := cache.GetOrCreate("client", "tenant", func() (Credential, error) {
		return &staticCredential{token: "ok"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", cred.(*staticCredential).token)
}
