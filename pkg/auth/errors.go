package auth

import (
	"errors"
	"fmt"
)

var (
	errNoClientID          = errors.New("no client id resolvable from config or AZURE_CLIENT_ID")
	errNoIdentityProvider  = errors.New("no identity provider configured")
	errNoCredentialFactory = errors.New("no credential factory configured")
)

// ConfigurationError reports a descriptor whose auth config is missing a field
// required by its auth type. It is never retried and surfaces immediately.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("auth configuration error: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("auth configuration error: missing required field %q", e.Field)
}

// AuthenticationError reports a failed credential acquisition. The resolver may
// fall back from silent to interactive acquisition once before returning it;
// the executor never retries it.
type AuthenticationError struct {
	Scheme string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed (%s): %v", e.Scheme, e.Err)
	}
	return fmt.Sprintf("authentication failed (%s)", e.Scheme)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }
