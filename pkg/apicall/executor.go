package apicall

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/toolbridge/toolbridge/pkg/auth"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	backoffBase       = time.Second
	backoffCap        = 10 * time.Second
	jitterWindowMs    = 1000
)

// Doer is the transport the executor issues requests through. *http.Client
// satisfies it; tests substitute stubs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Executor performs descriptor calls with authentication, per-attempt timeout
// and retry-with-backoff for transient failures. Execute never returns an
// error; every failure is captured in the Result envelope.
type Executor struct {
	Client   Doer
	Resolver *auth.Resolver

	// Sleep and Jitter exist so tests can run the retry loop without real
	// delays. They default to time.Sleep and rand.Intn.
	Sleep  func(d time.Duration)
	Jitter func(maxMs int) int
}

// NewExecutor creates an executor over the given transport and auth resolver.
// A nil client falls back to a plain http.Client.
func NewExecutor(client Doer, resolver *auth.Resolver) *Executor {
	if client == nil {
		client = &http.Client{}
	}
	return &Executor{
		Client:   client,
		Resolver: resolver,
		Sleep:    time.Sleep,
		Jitter:   rand.Intn,
	}
}

// Execute performs the call described by d and returns the result envelope.
// Authentication failures short-circuit before any HTTP attempt. Transient
// failures (no response, timeout, 502/503/504) are retried up to the
// descriptor's retry budget with exponential backoff plus jitter; every other
// failure is returned immediately.
func (e *Executor) Execute(ctx context.Context, d *Descriptor) *Result {
	scheme, cfg := authOf(ctx, d)
	header, hasAuth, err := e.Resolver.AuthorizationHeader(ctx, scheme, cfg)
	if err != nil {
		return authFailure(err)
	}

	fullURL := BuildURL(d.Endpoint, ExpandPath(d.Path, d.PathParams), d.QueryParams)

	var bodyBytes []byte
	if d.Body != nil {
		bodyBytes, err = json.Marshal(d.Body)
		if err != nil {
			return &Result{
				Success:      false,
				ErrorMessage: kindUnknown.message(),
				ErrorDetail:  fmt.Sprintf("marshal request body: %v", err),
			}
		}
	}

	timeout := defaultTimeout
	if d.TimeoutMs > 0 {
		timeout = time.Duration(d.TimeoutMs) * time.Millisecond
	}
	maxRetries := defaultMaxRetries
	if d.MaxRetries != nil && *d.MaxRetries >= 0 {
		maxRetries = *d.MaxRetries
	}

	var last *Result
	for attempt := 0; ; attempt++ {
		res, kind := e.attempt(ctx, d, fullURL, header, hasAuth, bodyBytes, timeout)
		if !kind.transient() || attempt >= maxRetries {
			return res
		}
		last = res
		e.Sleep(e.backoff(attempt))

		if ctx.Err() != nil {
			return last
		}
	}
}

// attempt issues one independent HTTP request and classifies its outcome.
func (e *Executor) attempt(ctx context.Context, d *Descriptor, fullURL, authHeader string, hasAuth bool, body []byte, timeout time.Duration) (*Result, errorKind) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, d.Method, fullURL, reader)
	if err != nil {
		return &Result{
			Success:      false,
			ErrorMessage: kindUnknown.message(),
			ErrorDetail:  err.Error(),
		}, kindUnknown
	}

	for k, v := range d.Headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	// Computed auth always wins over caller-supplied headers.
	if hasAuth {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		kind := classifyTransportError(err)
		return &Result{
			Success:      false,
			ErrorMessage: kind.message(),
			ErrorDetail:  err.Error(),
		}, kind
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		kind := classifyTransportError(readErr)
		return &Result{
			Success:      false,
			StatusCode:   resp.StatusCode,
			ErrorMessage: kind.message(),
			ErrorDetail:  readErr.Error(),
		}, kind
	}

	headers := flattenHeaders(resp.Header)
	data := decodeBody(respBody)

	if kind := classifyStatus(resp.StatusCode); kind != kindNone {
		return &Result{
			Success:      false,
			StatusCode:   resp.StatusCode,
			ErrorMessage: fmt.Sprintf("HTTP %d", resp.StatusCode),
			ErrorDetail:  data,
			Headers:      headers,
		}, kind
	}

	return &Result{
		Success:    true,
		StatusCode: resp.StatusCode,
		Data:       data,
		Headers:    headers,
	}, kindNone
}

// backoff computes the delay before retrying the given zero-based attempt:
// min(1s * 2^attempt + jitter(0..1s), 10s).
func (e *Executor) backoff(attempt int) time.Duration {
	delay := backoffBase << uint(attempt)
	delay += time.Duration(e.Jitter(jitterWindowMs)) * time.Millisecond
	if delay > backoffCap {
		delay = backoffCap
	}
	return delay
}

// authOf picks the auth the call will use: the descriptor's own scheme wins;
// a descriptor without one falls back to the request-scoped default a handler
// attached for the targeted API.
func authOf(ctx context.Context, d *Descriptor) (auth.Scheme, auth.Config) {
	if d.AuthType != "" && d.AuthType != auth.SchemeNone {
		return d.AuthType, d.AuthConfig
	}
	if ra, ok := auth.FromContext(ctx); ok && ra.Token != "" {
		return ra.Scheme, auth.Config{Token: ra.Token}
	}
	return d.AuthType, d.AuthConfig
}

func authFailure(err error) *Result {
	kind := kindAuthentication
	var confErr *auth.ConfigurationError
	if errors.As(err, &confErr) {
		kind = kindConfiguration
	}
	return &Result{
		Success:      false,
		ErrorMessage: kind.message(),
		ErrorDetail:  err.Error(),
	}
}

// decodeBody returns the parsed JSON value when the body is JSON, otherwise
// the raw text, otherwise nil for an empty body.
func decodeBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		return v
	}
	return string(body)
}

func flattenHeaders(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, vals := range h {
		if len(vals) > 0 {
			out[k] = vals[0]
		}
	}
	return out
}
