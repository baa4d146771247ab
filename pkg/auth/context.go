package auth

import (
	"context"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/toolbridge/toolbridge/pkg/models"
)

// RequestAuth is the default authentication state derived from a stored spec:
// the scheme its document declares and the token stored alongside it. The
// executor falls back to it when a descriptor carries no auth of its own.
type RequestAuth struct {
	Token  string
	Scheme Scheme
}

type contextKey string

const requestAuthKey contextKey = "auth"

// NewRequestAuth derives the default auth state from a spec document and its
// stored row.
func NewRequestAuth(doc *openapi3.T, spec *models.APISpec) *RequestAuth {
	ra := &RequestAuth{}

	_, authType, _ := ExtractAuthSchemeFromSpec(doc)
	ra.Scheme = schemeFromSpecType(authType)

	if spec != nil && spec.APIKeyToken != nil && *spec.APIKeyToken != "" {
		ra.Token = *spec.APIKeyToken
	}

	return ra
}

// schemeFromSpecType maps an OpenAPI security scheme type onto a descriptor
// scheme. apiKey tokens are sent as bearer values for lack of a better match.
func schemeFromSpecType(t string) Scheme {
	switch t {
	case "bearer", "apiKey":
		return SchemeBearer
	case "basic":
		return SchemeBasic
	default:
		return SchemeNone
	}
}

// WithRequestAuth attaches the request auth state to ctx.
func WithRequestAuth(ctx context.Context, ra *RequestAuth) context.Context {
	return context.WithValue(ctx, requestAuthKey, ra)
}

// FromContext retrieves the request auth state from ctx.
func FromContext(ctx context.Context) (*RequestAuth, bool) {
	ra, ok := ctx.Value(requestAuthKey).(*RequestAuth)
	return ra, ok
}

// ExtractAuthSchemeFromSpec reports the first security scheme declared in the
// spec document: its name, its normalized type (apiKey/bearer/basic) and where
// the credential goes ("header:Name" or "query:Name").
func ExtractAuthSchemeFromSpec(doc *openapi3.T) (schemeName, authType, location string) {
	if doc == nil || doc.Components == nil || doc.Components.SecuritySchemes == nil {
		return "", "", ""
	}

	for name, ref := range doc.Components.SecuritySchemes {
		if ref.Value == nil {
			continue
		}
		switch ref.Value.Type {
		case "apiKey":
			loc := "header"
			if ref.Value.In == "query" {
				loc = "query"
			}
			return name, "apiKey", loc + ":" + ref.Value.Name
		case "http":
			switch ref.Value.Scheme {
			case "bearer":
				return name, "bearer", "header:Authorization"
			case "basic":
				return name, "basic", "header:Authorization"
			}
		}
	}
	return "", "", ""
}
