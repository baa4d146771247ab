package apicall

import (
	"context"
	"errors"
	"net"
)

// errorKind is the closed classification every failure passes through before
// the retry decision. Policy (retry or not) depends only on the kind, never on
// the transport library's error shapes.
type errorKind int

const (
	kindNone errorKind = iota
	kindConfiguration
	kindAuthentication
	kindTimeout
	kindNetwork
	kindHTTPStatus
	kindTransientStatus
	kindUnknown
)

// transient reports whether a failure of this kind is worth retrying.
func (k errorKind) transient() bool {
	switch k {
	case kindTimeout, kindNetwork, kindTransientStatus:
		return true
	}
	return false
}

func (k errorKind) message() string {
	switch k {
	case kindConfiguration:
		return "configuration error"
	case kindAuthentication:
		return "authentication failed"
	case kindTimeout:
		return "request timed out"
	case kindNetwork:
		return "network error"
	case kindHTTPStatus, kindTransientStatus:
		return "HTTP error"
	default:
		return "unknown error"
	}
}

// classifyTransportError maps an error from the HTTP client into a kind. Any
// error here means no usable response was received.
func classifyTransportError(err error) errorKind {
	if err == nil {
		return kindNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return kindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return kindTimeout
		}
		return kindNetwork
	}
	// client.Do wraps everything in *url.Error; treat the remainder as a
	// connection-level failure rather than unknown.
	return kindNetwork
}

// classifyStatus maps a received HTTP status code into a kind.
func classifyStatus(code int) errorKind {
	switch {
	case code < 400:
		return kindNone
	case code == 502 || code == 503 || code == 504:
		return kindTransientStatus
	default:
		return kindHTTPStatus
	}
}
