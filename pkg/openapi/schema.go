package openapi

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
)

// SchemaMap converts a kin-openapi schema ref into a plain JSON-Schema-shaped
// map. References that could not be dereferenced (circular or external) are
// preserved as {"$ref": "..."} placeholders rather than failing; oneOf, anyOf
// and allOf keep their member lists so the example generator can apply its own
// policy.
func SchemaMap(ref *openapi3.SchemaRef) map[string]any {
	return schemaMap(ref, make(map[*openapi3.Schema]bool))
}

func schemaMap(ref *openapi3.SchemaRef, seen map[*openapi3.Schema]bool) map[string]any {
	if ref == nil {
		return nil
	}
	if ref.Value == nil {
		if ref.Ref != "" {
			return map[string]any{"$ref": ref.Ref}
		}
		return nil
	}

	val := ref.Value
	if seen[val] {
		// Cycle: fall back to the bundled reference instead of inlining.
		return map[string]any{"$ref": ref.Ref}
	}
	seen[val] = true
	defer delete(seen, val)

	node := map[string]any{}

	if len(val.OneOf) > 0 {
		node["oneOf"] = schemaMapList(val.OneOf, seen)
	}
	if len(val.AnyOf) > 0 {
		node["anyOf"] = schemaMapList(val.AnyOf, seen)
	}
	if len(val.AllOf) > 0 {
		node["allOf"] = schemaMapList(val.AllOf, seen)
	}

	if val.Type != nil && len(*val.Type) > 0 {
		node["type"] = (*val.Type)[0]
	}
	if val.Format != "" {
		node["format"] = val.Format
	}
	if val.Description != "" {
		node["description"] = val.Description
	}
	if len(val.Enum) > 0 {
		node["enum"] = val.Enum
	}
	if val.Default != nil {
		node["default"] = val.Default
	}

	if len(val.Properties) > 0 {
		props := map[string]any{}
		for name, sub := range val.Properties {
			if m := schemaMap(sub, seen); m != nil {
				props[name] = m
			}
		}
		node["properties"] = props
		if len(val.Required) > 0 {
			node["required"] = append([]string{}, val.Required...)
		}
	}
	if val.Items != nil {
		if m := schemaMap(val.Items, seen); m != nil {
			node["items"] = m
		}
	}

	if len(node) == 0 {
		return nil
	}
	return node
}

func schemaMapList(refs openapi3.SchemaRefs, seen map[*openapi3.Schema]bool) []any {
	out := make([]any, 0, len(refs))
	for _, ref := range refs {
		if m := schemaMap(ref, seen); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// nodeKind enumerates every shape the example generator dispatches on. An
// explicit unrecognized arm replaces implicit fallthrough.
type nodeKind int

const (
	nodeUnknown nodeKind = iota
	nodeRef
	nodeOneOf
	nodeAnyOf
	nodeAllOf
	nodeObject
	nodeArray
	nodeString
	nodeNumber
	nodeInteger
	nodeBoolean
	nodeNull
)

func kindOf(node map[string]any) nodeKind {
	if node == nil {
		return nodeUnknown
	}
	if _, ok := node["$ref"]; ok {
		return nodeRef
	}
	if list, ok := node["oneOf"].([]any); ok && len(list) > 0 {
		return nodeOneOf
	}
	if list, ok := node["anyOf"].([]any); ok && len(list) > 0 {
		return nodeAnyOf
	}
	if list, ok := node["allOf"].([]any); ok && len(list) > 0 {
		return nodeAllOf
	}
	switch node["type"] {
	case "object":
		return nodeObject
	case "array":
		return nodeArray
	case "string":
		return nodeString
	case "number":
		return nodeNumber
	case "integer":
		return nodeInteger
	case "boolean":
		return nodeBoolean
	case "null":
		return nodeNull
	}
	return nodeUnknown
}

// Example produces a representative JSON value for a JSON-Schema-shaped node.
// It is total: any input yields a value (possibly nil) without error. oneOf
// and anyOf recurse into the first alternative only.
func Example(node map[string]any) any {
	v, _ := exampleValue(node)
	return v
}

func exampleValue(node map[string]any) (any, bool) {
	switch kindOf(node) {
	case nodeRef:
		// Dereferencing is the indexer's job; a surviving $ref becomes a
		// placeholder carrying the reference string.
		return map[string]any{"$ref": node["$ref"]}, true

	case nodeOneOf:
		return exampleFirst(node["oneOf"].([]any))

	case nodeAnyOf:
		return exampleFirst(node["anyOf"].([]any))

	case nodeAllOf:
		merged := map[string]any{}
		for _, member := range node["allOf"].([]any) {
			m, ok := member.(map[string]any)
			if !ok {
				continue
			}
			v, present := exampleValue(m)
			if !present {
				continue
			}
			if obj, ok := v.(map[string]any); ok {
				for k, val := range obj {
					merged[k] = val
				}
			}
		}
		return merged, true

	case nodeObject:
		obj := map[string]any{}
		props, _ := node["properties"].(map[string]any)
		for name, sub := range props {
			m, ok := sub.(map[string]any)
			if !ok {
				continue
			}
			if v, present := exampleValue(m); present {
				obj[name] = v
			}
		}
		return obj, true

	case nodeArray:
		items, ok := node["items"].(map[string]any)
		if !ok {
			return []any{}, true
		}
		v, present := exampleValue(items)
		if !present {
			return []any{}, true
		}
		return []any{v}, true

	case nodeString:
		if v, ok := firstEnum(node); ok {
			return v, true
		}
		return stringExample(node), true

	case nodeNumber:
		if v, ok := firstEnum(node); ok {
			return v, true
		}
		return 0.0, true

	case nodeInteger:
		if v, ok := firstEnum(node); ok {
			return v, true
		}
		return 0, true

	case nodeBoolean:
		return false, true

	case nodeNull:
		return nil, true

	default:
		return nil, false
	}
}

func exampleFirst(list []any) (any, bool) {
	if m, ok := list[0].(map[string]any); ok {
		return exampleValue(m)
	}
	return nil, false
}

func firstEnum(node map[string]any) (any, bool) {
	if list, ok := node["enum"].([]any); ok && len(list) > 0 {
		return list[0], true
	}
	return nil, false
}

func stringExample(node map[string]any) string {
	format, _ := node["format"].(string)
	switch format {
	case "date":
		return "2023-01-01"
	case "date-time":
		return "2023-01-01T00:00:00Z"
	case "email":
		return "user@example.com"
	case "uuid":
		return uuid.Nil.String()
	}
	return "<string value>"
}

// jsonContent picks the media type the template body example is built from,
// preferring application/json (including parameterized variants) and falling
// back to the lexically first JSON-like content type, then the first entry.
func jsonContent(content openapi3.Content) *openapi3.MediaType {
	if len(content) == 0 {
		return nil
	}

	names := make([]string, 0, len(content))
	for name := range content {
		names = append(names, name)
	}
	// Deterministic selection regardless of map order.
	for _, exact := range []string{"application/json", "application/vnd.api+json"} {
		for _, name := range names {
			if baseMediaType(name) == exact {
				return content[name]
			}
		}
	}

	first := names[0]
	for _, name := range names[1:] {
		if name < first {
			first = name
		}
	}
	return content[first]
}

func baseMediaType(name string) string {
	if idx := strings.IndexByte(name, ';'); idx > 0 {
		return strings.TrimSpace(name[:idx])
	}
	return name
}
