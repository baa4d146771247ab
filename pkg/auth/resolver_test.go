package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	silentCalls      int
	interactiveCalls int
	silentErr        error
	interactiveErr   error
	token            Token
}

func (f *fakeIdentity) AcquireSilent(_ context.Context, _, _ string, _ []string) (Token, error) {
	f.silentCalls++
	if f.silentErr != nil {
		return Token{}, f.silentErr
	}
	return f.token, nil
}

func (f *fakeIdentity) AcquireInteractive(_ context.Context, _, _ string, _ []string) (Token, error) {
	f.interactiveCalls++
	if f.interactiveErr != nil {
		return Token{}, f.interactiveErr
	}
	return f.token, nil
}

func validToken(value string) Token {
	return Token{Value: value, ExpiresAt: time.Now().Add(time.Hour)}
}

func TestAuthorizationHeaderNone(t *testing.T) {
	r := NewResolver(nil, nil)

	for _, scheme := range []Scheme{SchemeNone, ""} {
		value, ok, err := r.AuthorizationHeader(context.Background(), scheme, Config{})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, value)
	}
}

func TestAuthorizationHeaderBearer(t *testing.T) {
	r := NewResolver(nil, nil)

	value, ok, err := r.AuthorizationHeader(context.Background(), SchemeBearer, Config{Token: "abc123"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Bearer abc123", value)
}

func TestAuthorizationHeaderBearerMissingToken(t *testing.T) {
	r := NewResolver(nil, nil)

	_, _, err := r.AuthorizationHeader(context.Background(), SchemeBearer, Config{})
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "token", confErr.Field)
}

func TestAuthorizationHeaderBasic(t *testing.T) {
	r := NewResolver(nil, nil)

	value, ok, err := r.AuthorizationHeader(context.Background(), SchemeBasic, Config{
		Username: "alice",
		Password: "s3cret",
	})
	require.NoError(t, err)
	assert.True(t, ok)
	// base64("alice:s3cret")
	assert.Equal(t, "Basic YWxpY2U6czNjcmV0", value)
}

func TestAuthorizationHeaderBasicEmptyPassword(t *testing.T) {
	r := NewResolver(nil, nil)

	value, ok, err := r.AuthorizationHeader(context.Background(), SchemeBasic, Config{Username: "alice"})
	require.NoError(t, err)
	assert.True(t, ok)
	// base64("alice:")
	assert.Equal(t, "Basic YWxpY2U6", value)
}

func TestAuthorizationHeaderBasicMissingUsername(t *testing.T) {
	r := NewResolver(nil, nil)

	_, _, err := r.AuthorizationHeader(context.Background(), SchemeBasic, Config{Password: "p"})
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "username", confErr.Field)
}

func TestAuthorizationHeaderUnknownScheme(t *testing.T) {
	r := NewResolver(nil, nil)

	_, _, err := r.AuthorizationHeader(context.Background(), Scheme("kerberos"), Config{})
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
}

func TestInteractiveSilentThenCached(t *testing.T) {
	identity := &fakeIdentity{token: validToken("tok-silent")}
	r := NewResolver(identity, nil)
	cfg := Config{ClientID: "client", TenantID: "tenant", Scopes: []string{"api://x/.default"}}

	value, ok, err := r.AuthorizationHeader(context.Background(), SchemeInteractive, cfg)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Bearer tok-silent", value)
	assert.Equal(t, 1, identity.silentCalls)
	assert.Equal(t, 0, identity.interactiveCalls)

	// Second resolution must come from the cache without touching the provider.
	value, _, err = r.AuthorizationHeader(context.Background(), SchemeInteractive, cfg)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-silent", value)
	assert.Equal(t, 1, identity.silentCalls)
	assert.Equal(t, 0, identity.interactiveCalls)
}

func TestInteractiveFallsBackWhenSilentFails(t *testing.T) {
	identity := &fakeIdentity{
		token:     validToken("tok-interactive"),
		silentErr: errors.New("no account"),
	}
	r := NewResolver(identity, nil)
	cfg := Config{ClientID: "client", Scopes: []string{"scope"}}

	value, ok, err := r.AuthorizationHeader(context.Background(), SchemeMSAL, cfg)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Bearer tok-interactive", value)
	assert.Equal(t, 1, identity.silentCalls)
	assert.Equal(t, 1, identity.interactiveCalls)
}

func TestInteractiveBothAcquisitionsFail(t *testing.T) {
	identity := &fakeIdentity{
		silentErr:      errors.New("no account"),
		interactiveErr: errors.New("user closed the browser"),
	}
	r := NewResolver(identity, nil)

	_, _, err := r.AuthorizationHeader(context.Background(), SchemeInteractive, Config{
		ClientID: "client",
		Scopes:   []string{"scope"},
	})
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, err.Error(), "user closed the browser")
}

func TestInteractiveRequiresScopes(t *testing.T) {
	r := NewResolver(&fakeIdentity{}, nil)

	_, _, err := r.AuthorizationHeader(context.Background(), SchemeInteractive, Config{ClientID: "client"})
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "scopes", confErr.Field)
}

func TestInteractiveClientIDFromEnv(t *testing.T) {
	t.Setenv("AZURE_CLIENT_ID", "env-client")

	identity := &fakeIdentity{token: validToken("tok")}
	r := NewResolver(identity, nil)

	_, ok, err := r.AuthorizationHeader(context.Background(), SchemeInteractive, Config{Scopes: []string{"scope"}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, identity.silentCalls)
}

func TestInteractiveMissingClientID(t *testing.T) {
	t.Setenv("AZURE_CLIENT_ID", "")

	r := NewResolver(&fakeIdentity{}, nil)

	_, _, err := r.AuthorizationHeader(context.Background(), SchemeInteractive, Config{Scopes: []string{"scope"}})
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestInvalidateTokensForcesReacquisition(t *testing.T) {
	identity := &fakeIdentity{token: validToken("tok")}
	r := NewResolver(identity, nil)
	cfg := Config{ClientID: "client", Scopes: []string{"scope"}}

	_, _, err := r.AuthorizationHeader(context.Background(), SchemeInteractive, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, identity.silentCalls)

	r.InvalidateTokens()

	_, _, err = r.AuthorizationHeader(context.Background(), SchemeInteractive, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, identity.silentCalls)
}

func TestAzureIdentityCachesCredential(t *testing.T) {
	built := 0
	factory := func(params CredentialParams) (Credential, error) {
		built++
		assert.Equal(t, "client", params.ClientID)
		return &staticCredential{token: "cred-tok"}, nil
	}
	r := NewResolver(nil, factory)
	cfg := Config{ClientID: "client", TenantID: "tenant", Scopes: []string{"scope"}}

	for i := 0; i < 3; i++ {
		value, ok, err := r.AuthorizationHeader(context.Background(), SchemeAzureIdentity, cfg)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Bearer cred-tok", value)
	}

	assert.Equal(t, 1, built)
}

func TestAzureIdentityRequiresScopes(t *testing.T) {
	r := NewResolver(nil, func(CredentialParams) (Credential, error) {
		return &staticCredential{token: "t"}, nil
	})

	_, _, err := r.AuthorizationHeader(context.Background(), SchemeAzureIdentity, Config{})
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "scopes", confErr.Field)
}

func TestAzureIdentityWithoutFactory(t *testing.T) {
	r := NewResolver(nil, nil)

	_, _, err := r.AuthorizationHeader(context.Background(), SchemeAzureIdentity, Config{Scopes: []string{"scope"}})
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
}
