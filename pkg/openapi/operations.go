// Package openapi indexes OpenAPI 3.x documents into a normalized operation
// list and synthesizes request templates from operation schemas.
package openapi

import (
	"errors"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// ErrOperationNotFound is returned when a required operationId filter matches
// no operation in the document.
var ErrOperationNotFound = errors.New("operation not found")

// Operation describes a single path/method pair of an API specification, with
// path-level and operation-level parameters already merged.
type Operation struct {
	OperationID string
	Summary     string
	Description string
	Path        string
	Method      string
	Parameters  openapi3.Parameters
	RequestBody *openapi3.RequestBodyRef
	Responses   *openapi3.Responses
	Tags        []string
	Security    openapi3.SecurityRequirements
}

// ParamSpec is the flattened view of one operation parameter.
type ParamSpec struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Required bool   `json:"required"`
}

// methodOrder fixes the iteration order over a path item's HTTP-method keys.
var methodOrder = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS", "HEAD"}

// ExtractOperations iterates every path entry and every HTTP-method key under
// it, producing one Operation per pair. A path-level "parameters" entry is
// metadata, not an operation; its parameters are merged into each operation
// under that path instead.
func ExtractOperations(doc *openapi3.T) []Operation {
	if doc == nil || doc.Paths == nil {
		return nil
	}

	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for p := range pathMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var ops []Operation
	for _, path := range paths {
		item := pathMap[path]
		if item == nil {
			continue
		}
		for _, method := range methodOrder {
			op := item.GetOperation(method)
			if op == nil {
				continue
			}

			params := make(openapi3.Parameters, 0, len(item.Parameters)+len(op.Parameters))
			params = append(params, item.Parameters...)
			params = append(params, op.Parameters...)

			ops = append(ops, Operation{
				OperationID: op.OperationID,
				Summary:     op.Summary,
				Description: op.Description,
				Path:        path,
				Method:      method,
				Parameters:  params,
				RequestBody: op.RequestBody,
				Responses:   op.Responses,
				Tags:        op.Tags,
				Security:    securityOf(op),
			})
		}
	}
	return ops
}

func securityOf(op *openapi3.Operation) openapi3.SecurityRequirements {
	if op.Security == nil {
		return nil
	}
	return *op.Security
}

// FindOperation returns the operation with the given operationId, or
// ErrOperationNotFound when the id matches nothing.
func FindOperation(ops []Operation, operationID string) (*Operation, error) {
	for i := range ops {
		if ops[i].OperationID == operationID {
			return &ops[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
}

// ParamSpecs flattens the operation's parameters, keeping only the query,
// header and path locations.
func (op *Operation) ParamSpecs() []ParamSpec {
	var specs []ParamSpec
	for _, ref := range op.Parameters {
		if ref == nil || ref.Value == nil {
			continue
		}
		p := ref.Value
		switch p.In {
		case "query", "header", "path":
			specs = append(specs, ParamSpec{Name: p.Name, Location: p.In, Required: p.Required})
		}
	}
	return specs
}
