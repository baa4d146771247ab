package apicall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolbridge/toolbridge/pkg/auth"
)

func TestParseDescriptor(t *testing.T) {
	d, err := ParseDescriptor(map[string]any{
		"endpoint": "https://api.example.com",
		"method":   "post",
		"path":     "/pets/{petId}",
		"pathParams": map[string]any{
			"petId": "42",
		},
		"queryParams": map[string]any{
			"verbose": "true",
		},
		"headers": map[string]any{
			"X-Custom": "1",
		},
		"body":      map[string]any{"name": "rex"},
		"authType":  "bearer",
		"timeoutMs": 5000,
		"authConfig": map[string]any{
			"token": "abc",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", d.Endpoint)
	assert.Equal(t, "POST", d.Method)
	assert.Equal(t, "/pets/{petId}", d.Path)
	assert.Equal(t, map[string]string{"petId": "42"}, d.PathParams)
	assert.Equal(t, map[string]string{"verbose": "true"}, d.QueryParams)
	assert.Equal(t, map[string]string{"X-Custom": "1"}, d.Headers)
	assert.Equal(t, auth.SchemeBearer, d.AuthType)
	assert.Equal(t, "abc", d.AuthConfig.Token)
	assert.Equal(t, 5000, d.TimeoutMs)
	assert.Nil(t, d.MaxRetries)
}

func TestParseDescriptorDefaultsMethodToGet(t *testing.T) {
	d, err := ParseDescriptor(map[string]any{"endpoint": "https://api.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "GET", d.Method)
}

func TestParseDescriptorRequiresEndpoint(t *testing.T) {
	_, err := ParseDescriptor(map[string]any{"method": "GET"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")
}

func TestParseDescriptorRejectsUnknownMethod(t *testing.T) {
	_, err := ParseDescriptor(map[string]any{
		"endpoint": "https://api.example.com",
		"method":   "TRACE",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRACE")
}

func TestParseDescriptorExplicitZeroRetries(t *testing.T) {
	d, err := ParseDescriptor(map[string]any{
		"endpoint":   "https://api.example.com",
		"maxRetries": 0,
	})
	require.NoError(t, err)
	// Zero is a deliberate choice, distinct from the absent default.
	require.NotNil(t, d.MaxRetries)
	assert.Equal(t, 0, *d.MaxRetries)
}

func TestParseDescriptorNumericCoercion(t *testing.T) {
	// JSON decoding yields float64 for numbers.
	d, err := ParseDescriptor(map[string]any{
		"endpoint":   "https://api.example.com",
		"timeoutMs":  float64(2500),
		"maxRetries": float64(1),
	})
	require.NoError(t, err)
	assert.Equal(t, 2500, d.TimeoutMs)
	require.NotNil(t, d.MaxRetries)
	assert.Equal(t, 1, *d.MaxRetries)
}
