// Package apicall implements the generic authenticated API-calling service:
// a caller submits a request descriptor and receives a uniform result
// envelope, never a raw transport error. Authentication resolution, URL
// building, retry with backoff and error classification all live here.
package apicall

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/toolbridge/toolbridge/pkg/auth"
)

// Descriptor describes one upstream API call. It is caller-owned and treated
// as immutable once submitted to Execute.
type Descriptor struct {
	Endpoint    string            `json:"endpoint"`
	Method      string            `json:"method"`
	Path        string            `json:"path,omitempty"`
	PathParams  map[string]string `json:"pathParams,omitempty"`
	QueryParams map[string]string `json:"queryParams,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        any               `json:"body,omitempty"`
	AuthType    auth.Scheme       `json:"authType,omitempty"`
	AuthConfig  auth.Config       `json:"authConfig,omitempty"`
	TimeoutMs   int               `json:"timeoutMs,omitempty"`
	MaxRetries  *int              `json:"maxRetries,omitempty"`
}

// Result is the uniform success/error envelope returned for every call.
// StatusCode >= 400 always carries Success=false.
type Result struct {
	Success      bool              `json:"success"`
	StatusCode   int               `json:"statusCode,omitempty"`
	Data         any               `json:"data,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	ErrorDetail  any               `json:"errorDetail,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
}

var allowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// ParseDescriptor builds a Descriptor from loosely-typed JSON-shaped data,
// coercing scalar fields tolerantly. It validates only what the executor
// cannot recover from: endpoint presence and a known HTTP method.
func ParseDescriptor(m map[string]any) (*Descriptor, error) {
	d := &Descriptor{
		Endpoint:    cast.ToString(m["endpoint"]),
		Method:      strings.ToUpper(cast.ToString(m["method"])),
		Path:        cast.ToString(m["path"]),
		PathParams:  cast.ToStringMapString(m["pathParams"]),
		QueryParams: cast.ToStringMapString(m["queryParams"]),
		Headers:     cast.ToStringMapString(m["headers"]),
		Body:        m["body"],
		AuthType:    auth.Scheme(cast.ToString(m["authType"])),
		TimeoutMs:   cast.ToInt(m["timeoutMs"]),
	}

	if _, present := m["maxRetries"]; present {
		n := cast.ToInt(m["maxRetries"])
		d.MaxRetries = &n
	}

	if cfg, ok := m["authConfig"].(map[string]any); ok {
		d.AuthConfig = auth.Config{
			Token:                   cast.ToString(cfg["token"]),
			Username:                cast.ToString(cfg["username"]),
			Password:                cast.ToString(cfg["password"]),
			ClientID:                cast.ToString(cfg["clientId"]),
			TenantID:                cast.ToString(cfg["tenantId"]),
			ClientSecret:            cast.ToString(cfg["clientSecret"]),
			ManagedIdentityClientID: cast.ToString(cfg["managedIdentityClientId"]),
			Scopes:                  cast.ToStringSlice(cfg["scopes"]),
		}
	}

	if d.Endpoint == "" {
		return nil, fmt.Errorf("descriptor: endpoint is required")
	}
	if d.Method == "" {
		d.Method = "GET"
	}
	if !allowedMethods[d.Method] {
		return nil, fmt.Errorf("descriptor: unsupported method %q", d.Method)
	}

	return d, nil
}
