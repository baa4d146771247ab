package auth

import (
	"context"
	"time"
)

// Token is a credential returned by an identity collaborator.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// IdentityProvider acquires user-delegated tokens. Silent acquisition reuses a
// previously authenticated account; interactive acquisition may open a system
// browser or device-code prompt and is delegated entirely to the implementation.
type IdentityProvider interface {
	AcquireSilent(ctx context.Context, clientID, tenantID string, scopes []string) (Token, error)
	AcquireInteractive(ctx context.Context, clientID, tenantID string, scopes []string) (Token, error)
}

// Credential produces service tokens for a single identity, one scope at a time.
// It mirrors the shape of Azure credential objects without importing their SDK.
type Credential interface {
	GetToken(ctx context.Context, scope string) (Token, error)
}

// CredentialParams selects which credential flavor a factory should build.
// ClientSecret semantics apply when ClientID, ClientSecret and TenantID are all
// set; otherwise a default/managed-identity credential, optionally scoped by
// ManagedIdentityClientID.
type CredentialParams struct {
	ClientID                string
	ClientSecret            string
	TenantID                string
	ManagedIdentityClientID string
}

// CredentialFactory constructs a Credential for the given params.
type CredentialFactory func(params CredentialParams) (Credential, error)
