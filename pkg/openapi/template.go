package openapi

import "fmt"

// RequestTemplate is a pre-populated, placeholder-filled request descriptor
// derived from one operation. Placeholder values follow the
// "<name (required)>" / "<name>" convention so a caller can see at a glance
// which fields must be filled in before submitting.
type RequestTemplate struct {
	Endpoint    string            `json:"endpoint"`
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	PathParams  map[string]string `json:"pathParams,omitempty"`
	QueryParams map[string]string `json:"queryParams,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        any               `json:"body,omitempty"`
}

// BuildRequestTemplate synthesizes a request template for the operation:
// placeholder entries for every declared parameter and a body example from the
// request body schema, preferring application/json content.
func BuildRequestTemplate(endpoint string, op *Operation) *RequestTemplate {
	tmpl := &RequestTemplate{
		Endpoint: endpoint,
		Method:   op.Method,
		Path:     op.Path,
	}

	for _, p := range op.ParamSpecs() {
		placeholder := fmt.Sprintf("<%s>", p.Name)
		if p.Required {
			placeholder = fmt.Sprintf("<%s (required)>", p.Name)
		}
		switch p.Location {
		case "query":
			if tmpl.QueryParams == nil {
				tmpl.QueryParams = map[string]string{}
			}
			tmpl.QueryParams[p.Name] = placeholder
		case "header":
			if tmpl.Headers == nil {
				tmpl.Headers = map[string]string{}
			}
			tmpl.Headers[p.Name] = placeholder
		case "path":
			if tmpl.PathParams == nil {
				tmpl.PathParams = map[string]string{}
			}
			tmpl.PathParams[p.Name] = placeholder
		}
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if mt := jsonContent(op.RequestBody.Value.Content); mt != nil && mt.Schema != nil {
			if schema := SchemaMap(mt.Schema); schema != nil {
				tmpl.Body = Example(schema)
			}
		}
	}

	return tmpl
}
