package openapi

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petstoreDoc = `
openapi: 3.0.3
info:
  title: Petstore
  version: 1.0.0
servers:
  - url: https://petstore.example.com/v1
paths:
  /pets:
    parameters:
      - name: X-Tenant
        in: header
        required: true
        schema:
          type: string
    get:
      operationId: listPets
      summary: List pets
      tags: [pets]
      parameters:
        - name: limit
          in: query
          schema:
            type: integer
      responses:
        "200":
          description: OK
    post:
      operationId: createPet
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [name]
              properties:
                name:
                  type: string
                tag:
                  type: string
                birthday:
                  type: string
                  format: date
      responses:
        "201":
          description: Created
  /pets/{petId}:
    get:
      operationId: getPet
      parameters:
        - name: petId
          in: path
          required: true
          schema:
            type: string
        - name: session
          in: cookie
          schema:
            type: string
      responses:
        "200":
          description: OK
`

func loadDoc(t *testing.T, data string) *openapi3.T {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData([]byte(data))
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	return doc
}

func TestExtractOperations(t *testing.T) {
	doc := loadDoc(t, petstoreDoc)

	ops := ExtractOperations(doc)
	require.Len(t, ops, 3)

	// Paths sort lexically, methods follow the fixed method order.
	assert.Equal(t, "listPets", ops[0].OperationID)
	assert.Equal(t, "GET", ops[0].Method)
	assert.Equal(t, "/pets", ops[0].Path)

	assert.Equal(t, "createPet", ops[1].OperationID)
	assert.Equal(t, "POST", ops[1].Method)

	assert.Equal(t, "getPet", ops[2].OperationID)
	assert.Equal(t, "/pets/{petId}", ops[2].Path)
}

func TestExtractOperationsMergesPathLevelParameters(t *testing.T) {
	doc := loadDoc(t, petstoreDoc)
	ops := ExtractOperations(doc)

	op, err := FindOperation(ops, "listPets")
	require.NoError(t, err)

	specs := op.ParamSpecs()
	require.Len(t, specs, 2)
	// Path-level parameters come first, then the operation's own.
	assert.Equal(t, ParamSpec{Name: "X-Tenant", Location: "header", Required: true}, specs[0])
	assert.Equal(t, ParamSpec{Name: "limit", Location: "query", Required: false}, specs[1])
}

func TestParamSpecsSkipsCookieParameters(t *testing.T) {
	doc := loadDoc(t, petstoreDoc)
	ops := ExtractOperations(doc)

	op, err := FindOperation(ops, "getPet")
	require.NoError(t, err)

	specs := op.ParamSpecs()
	require.Len(t, specs, 1)
	assert.Equal(t, ParamSpec{Name: "petId", Location: "path", Required: true}, specs[0])
}

func TestExtractOperationsNilDoc(t *testing.T) {
	assert.Nil(t, ExtractOperations(nil))
	assert.Nil(t, ExtractOperations(&openapi3.T{}))
}

func TestFindOperation(t *testing.T) {
	doc := loadDoc(t, petstoreDoc)
	ops := ExtractOperations(doc)

	op, err := FindOperation(ops, "createPet")
	require.NoError(t, err)
	assert.Equal(t, "POST", op.Method)

	_, err = FindOperation(ops, "no-such-operation")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOperationNotFound)
	assert.Contains(t, err.Error(), "no-such-operation")
}
