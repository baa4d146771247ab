package auth

import (
	"context"
	"encoding/base64"
	"os"
)

// Scheme identifies how a request authenticates against its upstream API.
type Scheme string

const (
	SchemeNone          Scheme = "none"
	SchemeBearer        Scheme = "bearer"
	SchemeBasic         Scheme = "basic"
	SchemeInteractive   Scheme = "interactive"
	SchemeMSAL          Scheme = "msal"
	SchemeAzureIdentity Scheme = "azure-identity"
)

// Config carries the scheme-specific fields of a request descriptor. Which
// fields are required depends strictly on the scheme.
type Config struct {
	Token                   string   `json:"token,omitempty"`
	Username                string   `json:"username,omitempty"`
	Password                string   `json:"password,omitempty"`
	ClientID                string   `json:"clientId,omitempty"`
	TenantID                string   `json:"tenantId,omitempty"`
	ClientSecret            string   `json:"clientSecret,omitempty"`
	ManagedIdentityClientID string   `json:"managedIdentityClientId,omitempty"`
	Scopes                  []string `json:"scopes,omitempty"`
}

// Resolver turns a scheme plus config into an Authorization header value. It
// owns the process-wide token and credential caches and never mutates the
// caller's config.
type Resolver struct {
	tokens      *TokenCache
	credentials *CredentialCache
	identity    IdentityProvider
	newCred     CredentialFactory
}

// NewResolver creates a resolver using the given identity collaborators.
// Either collaborator may be nil when its schemes are not used.
func NewResolver(identity IdentityProvider, factory CredentialFactory) *Resolver {
	return &Resolver{
		tokens:      NewTokenCache(),
		credentials: NewCredentialCache(),
		identity:    identity,
		newCred:     factory,
	}
}

// AuthorizationHeader resolves the Authorization header for the scheme.
// ok=false with nil error means no header should be attached (scheme "none").
func (r *Resolver) AuthorizationHeader(ctx context.Context, scheme Scheme, cfg Config) (value string, ok bool, err error) {
	switch scheme {
	case SchemeNone, "":
		return "", false, nil

	case SchemeBearer:
		if cfg.Token == "" {
			return "", false, &ConfigurationError{Field: "token"}
		}
		return "Bearer " + cfg.Token, true, nil

	case SchemeBasic:
		if cfg.Username == "" {
			return "", false, &ConfigurationError{Field: "username"}
		}
		// Empty password is permitted.
		raw := cfg.Username + ":" + cfg.Password
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw)), true, nil

	case SchemeInteractive, SchemeMSAL:
		tok, err := r.interactiveToken(ctx, cfg)
		if err != nil {
			return "", false, err
		}
		return "Bearer " + tok, true, nil

	case SchemeAzureIdentity:
		tok, err := r.azureIdentityToken(ctx, cfg)
		if err != nil {
			return "", false, err
		}
		return "Bearer " + tok, true, nil

	default:
		return "", false, &ConfigurationError{Field: "authType", Reason: "unknown scheme " + string(scheme)}
	}
}

// interactiveToken serves the msal/interactive scheme: cached token first,
// then silent reuse of a previously authenticated account, then a full
// interactive acquisition as the last fallback.
func (r *Resolver) interactiveToken(ctx context.Context, cfg Config) (string, error) {
	if len(cfg.Scopes) == 0 {
		return "", &ConfigurationError{Field: "scopes"}
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = os.Getenv("AZURE_CLIENT_ID")
	}
	if clientID == "" {
		return "", &AuthenticationError{Scheme: string(SchemeMSAL), Err: errNoClientID}
	}

	tenantID := cfg.TenantID
	if tenantID == "" {
		tenantID = "common"
	}

	if tok, found := r.tokens.Get(clientID, tenantID); found {
		return tok, nil
	}

	if r.identity == nil {
		return "", &AuthenticationError{Scheme: string(SchemeMSAL), Err: errNoIdentityProvider}
	}

	tok, err := r.identity.AcquireSilent(ctx, clientID, tenantID, cfg.Scopes)
	if err != nil {
		tok, err = r.identity.AcquireInteractive(ctx, clientID, tenantID, cfg.Scopes)
		if err != nil {
			return "", &AuthenticationError{Scheme: string(SchemeMSAL), Err: err}
		}
	}

	r.tokens.Put(clientID, tenantID, tok)
	return tok.Value, nil
}

// azureIdentityToken serves the azure-identity scheme. Credential construction
// is cached; every call asks the credential for a token using the first scope.
func (r *Resolver) azureIdentityToken(ctx context.Context, cfg Config) (string, error) {
	if len(cfg.Scopes) == 0 {
		return "", &ConfigurationError{Field: "scopes"}
	}
	if r.newCred == nil {
		return "", &AuthenticationError{Scheme: string(SchemeAzureIdentity), Err: errNoCredentialFactory}
	}

	cred, err := r.credentials.GetOrCreate(cfg.ClientID, cfg.TenantID, func() (Credential, error) {
		return r.newCred(CredentialParams{
			ClientID:                cfg.ClientID,
			ClientSecret:            cfg.ClientSecret,
			TenantID:                cfg.TenantID,
			ManagedIdentityClientID: cfg.ManagedIdentityClientID,
		})
	})
	if err != nil {
		return "", &AuthenticationError{Scheme: string(SchemeAzureIdentity), Err: err}
	}

	tok, err := cred.GetToken(ctx, cfg.Scopes[0])
	if err != nil {
		return "", &AuthenticationError{Scheme: string(SchemeAzureIdentity), Err: err}
	}
	return tok.Value, nil
}

// InvalidateTokens clears the token cache, forcing reacquisition on next use.
func (r *Resolver) InvalidateTokens() {
	r.tokens.Invalidate()
}
