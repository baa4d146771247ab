package apicall

import (
	"net/url"
	"strings"

	"github.com/yosida95/uritemplate/v3"
)

// BuildURL joins a base endpoint, an optional path and query parameters into
// one URL. Exactly one trailing slash is stripped from the endpoint, a leading
// slash is added to the path when missing, and query parameters are
// percent-encoded and appended only when non-empty. Malformed input produces a
// malformed-but-deterministic URL rather than an error.
func BuildURL(endpoint, path string, query map[string]string) string {
	endpoint = strings.TrimSuffix(endpoint, "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	u := endpoint + path
	if len(query) > 0 {
		vals := url.Values{}
		for k, v := range query {
			vals.Set(k, v)
		}
		u += "?" + vals.Encode()
	}
	return u
}

// ExpandPath substitutes path parameters into an RFC 6570 template like
// /pets/{petId}. A path without template expressions, an empty parameter map
// or an unparsable template all return the path unchanged.
func ExpandPath(path string, params map[string]string) string {
	if len(params) == 0 || !strings.Contains(path, "{") {
		return path
	}

	tmpl, err := uritemplate.New(path)
	if err != nil {
		return path
	}

	vals := uritemplate.Values{}
	for k, v := range params {
		vals.Set(k, uritemplate.String(v))
	}

	expanded, err := tmpl.Expand(vals)
	if err != nil {
		return path
	}
	return expanded
}
