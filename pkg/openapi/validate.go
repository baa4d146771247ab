package openapi

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateBody checks a request body against a JSON-Schema-shaped map and
// returns the list of violation messages. nil, nil means the body conforms.
func ValidateBody(schema map[string]any, body any) ([]string, error) {
	if schema == nil {
		return nil, nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("validate body: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return msgs, nil
}

// ValidateBodyForOperation validates a body against the operation's request
// body schema. Operations without a JSON body schema accept anything.
func ValidateBodyForOperation(op *Operation, body any) ([]string, error) {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil, nil
	}
	mt := jsonContent(op.RequestBody.Value.Content)
	if mt == nil || mt.Schema == nil {
		return nil, nil
	}
	return ValidateBody(SchemaMap(mt.Schema), body)
}
