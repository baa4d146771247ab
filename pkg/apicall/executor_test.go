package apicall

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolbridge/toolbridge/pkg/auth"
)

// step is one scripted transport outcome: either a response or an error.
type step struct {
	status  int
	body    string
	headers map[string]string
	err     error
}

type scriptedDoer struct {
	steps    []step
	requests []*http.Request
	bodies   []string
}

func (s *scriptedDoer) Do(req *http.Request) (*http.Response, error) {
	s.requests = append(s.requests, req)

	body := ""
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}
	s.bodies = append(s.bodies, body)

	idx := len(s.requests) - 1
	if idx >= len(s.steps) {
		idx = len(s.steps) - 1
	}
	st := s.steps[idx]
	if st.err != nil {
		return nil, st.err
	}

	header := http.Header{}
	for k, v := range st.headers {
		header.Set(k, v)
	}
	return &http.Response{
		StatusCode: st.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(st.body)),
	}, nil
}

func newTestExecutor(doer *scriptedDoer) *Executor {
	e := NewExecutor(doer, auth.NewResolver(nil, nil))
	e.Sleep = func(time.Duration) {}
	e.Jitter = func(int) int { return 0 }
	return e
}

func TestExecuteSuccess(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{
		status:  200,
		body:    `{"id": 7, "name": "rex"}`,
		headers: map[string]string{"Content-Type": "application/json"},
	}}}
	e := newTestExecutor(doer)

	res := e.Execute(context.Background(), &Descriptor{
		Endpoint: "https://api.example.com",
		Method:   "GET",
		Path:     "/pets/7",
	})

	require.True(t, res.Success)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, map[string]any{"id": float64(7), "name": "rex"}, res.Data)
	assert.Equal(t, "application/json", res.Headers["Content-Type"])
	assert.Empty(t, res.ErrorMessage)

	require.Len(t, doer.requests, 1)
	assert.Equal(t, "https://api.example.com/pets/7", doer.requests[0].URL.String())
}

func TestExecuteNonJSONBodyReturnedAsText(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 200, body: "plain text"}}}
	e := newTestExecutor(doer)

	res := e.Execute(context.Background(), &Descriptor{Endpoint: "https://api.example.com", Method: "GET"})

	require.True(t, res.Success)
	assert.Equal(t, "plain text", res.Data)
}

func TestExecuteClientErrorNotRetried(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 404, body: `{"error": "no such pet"}`}}}
	e := newTestExecutor(doer)

	res := e.Execute(context.Background(), &Descriptor{
		Endpoint: "https://api.example.com",
		Method:   "GET",
		Path:     "/pets/404",
	})

	require.False(t, res.Success)
	assert.Equal(t, 404, res.StatusCode)
	assert.Equal(t, "HTTP 404", res.ErrorMessage)
	assert.Equal(t, map[string]any{"error": "no such pet"}, res.ErrorDetail)
	assert.Len(t, doer.requests, 1)
}

func TestExecuteRetriesTransientStatus(t *testing.T) {
	doer := &scriptedDoer{steps: []step{
		{status: 503, body: "unavailable"},
		{status: 503, body: "unavailable"},
		{status: 200, body: `{"ok": true}`},
	}}
	e := newTestExecutor(doer)

	var slept []time.Duration
	e.Sleep = func(d time.Duration) { slept = append(slept, d) }

	res := e.Execute(context.Background(), &Descriptor{Endpoint: "https://api.example.com", Method: "GET"})

	require.True(t, res.Success)
	assert.Equal(t, 200, res.StatusCode)
	assert.Len(t, doer.requests, 3)
	// Zero jitter: pure exponential 1s, 2s.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
}

func TestExecuteRetriesTransportError(t *testing.T) {
	doer := &scriptedDoer{steps: []step{
		{err: errors.New("connection reset")},
		{status: 200, body: "{}"},
	}}
	e := newTestExecutor(doer)

	res := e.Execute(context.Background(), &Descriptor{Endpoint: "https://api.example.com", Method: "GET"})

	require.True(t, res.Success)
	assert.Len(t, doer.requests, 2)
}

func TestExecuteRetryBudgetExhausted(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 503, body: "unavailable"}}}
	e := newTestExecutor(doer)

	retries := 1
	res := e.Execute(context.Background(), &Descriptor{
		Endpoint:   "https://api.example.com",
		Method:     "GET",
		MaxRetries: &retries,
	})

	require.False(t, res.Success)
	assert.Equal(t, 503, res.StatusCode)
	// Initial attempt plus one retry.
	assert.Len(t, doer.requests, 2)
}

func TestExecuteZeroRetriesMeansSingleAttempt(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 503, body: "unavailable"}}}
	e := newTestExecutor(doer)

	retries := 0
	res := e.Execute(context.Background(), &Descriptor{
		Endpoint:   "https://api.example.com",
		Method:     "GET",
		MaxRetries: &retries,
	})

	require.False(t, res.Success)
	assert.Len(t, doer.requests, 1)
}

func TestExecuteNoAuthOmitsAuthorizationHeader(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 200, body: "{}"}}}
	e := newTestExecutor(doer)

	res := e.Execute(context.Background(), &Descriptor{Endpoint: "https://api.example.com", Method: "GET"})

	require.True(t, res.Success)
	_, present := doer.requests[0].Header["Authorization"]
	assert.False(t, present)
}

func TestExecuteBearerAuthHeader(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 200, body: "{}"}}}
	e := newTestExecutor(doer)

	res := e.Execute(context.Background(), &Descriptor{
		Endpoint:   "https://api.example.com",
		Method:     "GET",
		AuthType:   auth.SchemeBearer,
		AuthConfig: auth.Config{Token: "tok-123"},
	})

	require.True(t, res.Success)
	assert.Equal(t, "Bearer tok-123", doer.requests[0].Header.Get("Authorization"))
}

func TestExecuteAuthDefaultFromContext(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 200, body: "{}"}}}
	e := newTestExecutor(doer)

	ctx := auth.WithRequestAuth(context.Background(), &auth.RequestAuth{
		Token:  "stored-secret",
		Scheme: auth.SchemeBearer,
	})
	res := e.Execute(ctx, &Descriptor{Endpoint: "https://api.example.com", Method: "GET"})

	require.True(t, res.Success)
	assert.Equal(t, "Bearer stored-secret", doer.requests[0].Header.Get("Authorization"))
}

func TestExecuteDescriptorAuthWinsOverContext(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 200, body: "{}"}}}
	e := newTestExecutor(doer)

	ctx := auth.WithRequestAuth(context.Background(), &auth.RequestAuth{
		Token:  "stored-secret",
		Scheme: auth.SchemeBearer,
	})
	res := e.Execute(ctx, &Descriptor{
		Endpoint:   "https://api.example.com",
		Method:     "GET",
		AuthType:   auth.SchemeBearer,
		AuthConfig: auth.Config{Token: "explicit"},
	})

	require.True(t, res.Success)
	assert.Equal(t, "Bearer explicit", doer.requests[0].Header.Get("Authorization"))
}

func TestExecuteComputedAuthWinsOverCallerHeader(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 200, body: "{}"}}}
	e := newTestExecutor(doer)

	res := e.Execute(context.Background(), &Descriptor{
		Endpoint:   "https://api.example.com",
		Method:     "GET",
		Headers:    map[string]string{"Authorization": "Bearer stale"},
		AuthType:   auth.SchemeBearer,
		AuthConfig: auth.Config{Token: "fresh"},
	})

	require.True(t, res.Success)
	assert.Equal(t, "Bearer fresh", doer.requests[0].Header.Get("Authorization"))
}

func TestExecuteAuthConfigurationErrorShortCircuits(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 200, body: "{}"}}}
	e := newTestExecutor(doer)

	res := e.Execute(context.Background(), &Descriptor{
		Endpoint: "https://api.example.com",
		Method:   "GET",
		AuthType: auth.SchemeBearer,
	})

	require.False(t, res.Success)
	assert.Equal(t, "configuration error", res.ErrorMessage)
	assert.Zero(t, res.StatusCode)
	// No HTTP attempt is made when the descriptor cannot authenticate.
	assert.Empty(t, doer.requests)
}

func TestExecuteBodySerializedWithContentType(t *testing.T) {
	doer := &scriptedDoer{steps: []step{
		{status: 503, body: "unavailable"},
		{status: 201, body: "{}"},
	}}
	e := newTestExecutor(doer)

	res := e.Execute(context.Background(), &Descriptor{
		Endpoint: "https://api.example.com",
		Method:   "POST",
		Path:     "/pets",
		Body:     map[string]any{"name": "rex"},
	})

	require.True(t, res.Success)
	require.Len(t, doer.requests, 2)
	// Each attempt carries a fresh, complete body.
	assert.Equal(t, `{"name":"rex"}`, doer.bodies[0])
	assert.Equal(t, `{"name":"rex"}`, doer.bodies[1])
	assert.Equal(t, "application/json", doer.requests[0].Header.Get("Content-Type"))
}

func TestExecuteCallerContentTypePreserved(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 200, body: "{}"}}}
	e := newTestExecutor(doer)

	res := e.Execute(context.Background(), &Descriptor{
		Endpoint: "https://api.example.com",
		Method:   "POST",
		Headers:  map[string]string{"Content-Type": "application/vnd.api+json"},
		Body:     map[string]any{"k": "v"},
	})

	require.True(t, res.Success)
	assert.Equal(t, "application/vnd.api+json", doer.requests[0].Header.Get("Content-Type"))
}

func TestExecutePathAndQueryAssembly(t *testing.T) {
	doer := &scriptedDoer{steps: []step{{status: 200, body: "{}"}}}
	e := newTestExecutor(doer)

	res := e.Execute(context.Background(), &Descriptor{
		Endpoint:    "https://api.example.com/",
		Method:      "GET",
		Path:        "/stores/{storeId}/orders",
		PathParams:  map[string]string{"storeId": "s1"},
		QueryParams: map[string]string{"limit": "5"},
	})

	require.True(t, res.Success)
	assert.Equal(t, "https://api.example.com/stores/s1/orders?limit=5", doer.requests[0].URL.String())
}

func TestBackoffCap(t *testing.T) {
	e := newTestExecutor(&scriptedDoer{steps: []step{{status: 200}}})

	assert.Equal(t, time.Second, e.backoff(0))
	assert.Equal(t, 2*time.Second, e.backoff(1))
	assert.Equal(t, 4*time.Second, e.backoff(2))
	assert.Equal(t, 8*time.Second, e.backoff(3))
	// 16s exceeds the cap.
	assert.Equal(t, 10*time.Second, e.backoff(4))
}

func TestBackoffJitterAdded(t *testing.T) {
	e := newTestExecutor(&scriptedDoer{steps: []step{{status: 200}}})
	e.Jitter = func(maxMs int) int { return 250 }

	assert.Equal(t, time.Second+250*time.Millisecond, e.backoff(0))
}
