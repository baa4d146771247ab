package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolbridge/toolbridge/pkg/models"
)

const minimalSpec = `
openapi: 3.0.3
info:
  title: Minimal
  version: 1.0.0
paths:
  /ping:
    get:
      operationId: ping
      responses:
        "200":
          description: OK
`

func TestParseSpecContent(t *testing.T) {
	s := NewSpecService(nil)
	spec := models.NewAPISpec("minimal", minimalSpec, "/minimal")

	doc, err := s.parseSpecContent(spec)
	require.NoError(t, err)
	assert.Equal(t, "Minimal", doc.Info.Title)
}

func TestParseSpecContentRejectsGarbage(t *testing.T) {
	s := NewSpecService(nil)
	spec := models.NewAPISpec("broken", "{{{ not a spec", "/broken")

	_, err := s.parseSpecContent(spec)
	assert.Error(t, err)
}

func TestIndexSpec(t *testing.T) {
	s := NewSpecService(nil)
	spec := models.NewAPISpec("minimal", minimalSpec, "/minimal")

	ops, doc, err := s.indexSpec(spec, "spec 'minimal'")
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.Len(t, ops, 1)
	assert.Equal(t, "ping", ops[0].OperationID)
}

func TestIndexSpecRejectsInactive(t *testing.T) {
	s := NewSpecService(nil)
	spec := models.NewAPISpec("minimal", minimalSpec, "/minimal")
	inactive := false
	spec.IsActive = &inactive

	_, _, err := s.indexSpec(spec, "spec 'minimal'")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not active")
}

func TestImportSpecWithoutDatabase(t *testing.T) {
	s := NewSpecService(nil)

	err := s.CreateSpecFromContent("minimal", "/minimal", minimalSpec, "yaml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection not initialized")
}
