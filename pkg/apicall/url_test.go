package apicall

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		path     string
		query    map[string]string
		want     string
	}{
		{
			name:     "endpoint and path",
			endpoint: "https://api.example.com",
			path:     "/pets",
			want:     "https://api.example.com/pets",
		},
		{
			name:     "trailing slash stripped once",
			endpoint: "https://api.example.com/",
			path:     "/pets",
			want:     "https://api.example.com/pets",
		},
		{
			name:     "leading slash added to path",
			endpoint: "https://api.example.com",
			path:     "pets",
			want:     "https://api.example.com/pets",
		},
		{
			name:     "empty path",
			endpoint: "https://api.example.com",
			path:     "",
			want:     "https://api.example.com",
		},
		{
			name:     "query parameters encoded",
			endpoint: "https://api.example.com",
			path:     "/search",
			query:    map[string]string{"q": "hello world", "limit": "10"},
			want:     "https://api.example.com/search?limit=10&q=hello+world",
		},
		{
			name:     "empty query map appends nothing",
			endpoint: "https://api.example.com",
			path:     "/pets",
			query:    map[string]string{},
			want:     "https://api.example.com/pets",
		},
		{
			name:     "base path on the endpoint is preserved",
			endpoint: "https://api.example.com/v2/",
			path:     "/pets",
			want:     "https://api.example.com/v2/pets",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildURL(tt.endpoint, tt.path, tt.query))
		})
	}
}

func TestExpandPath(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		params map[string]string
		want   string
	}{
		{
			name:   "single parameter",
			path:   "/pets/{petId}",
			params: map[string]string{"petId": "42"},
			want:   "/pets/42",
		},
		{
			name:   "multiple parameters",
			path:   "/stores/{storeId}/orders/{orderId}",
			params: map[string]string{"storeId": "s1", "orderId": "o9"},
			want:   "/stores/s1/orders/o9",
		},
		{
			name:   "value is percent encoded",
			path:   "/files/{name}",
			params: map[string]string{"name": "a b"},
			want:   "/files/a%20b",
		},
		{
			name:   "no params returns path unchanged",
			path:   "/pets/{petId}",
			params: nil,
			want:   "/pets/{petId}",
		},
		{
			name:   "no template expressions returns path unchanged",
			path:   "/pets",
			params: map[string]string{"petId": "42"},
			want:   "/pets",
		},
		{
			name:   "unparsable template returns path unchanged",
			path:   "/pets/{unclosed",
			params: map[string]string{"unclosed": "x"},
			want:   "/pets/{unclosed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.path, tt.params))
		})
	}
}
