package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies provider failures so callers can produce actionable
// diagnostics.
type ErrorKind string

const (
	KindAuth       ErrorKind = "auth"
	KindTimeout    ErrorKind = "timeout"
	KindConnection ErrorKind = "connection"
	KindOther      ErrorKind = "other"
)

// Error is the failure type returned by every adapter variant.
type Error struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s (%s): %v", e.Provider, e.Message, e.Kind, e.Err)
	}
	return fmt.Sprintf("provider %s: %s (%s)", e.Provider, e.Message, e.Kind)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds a provider Error with the given kind.
func newError(kind ErrorKind, providerName, message string, cause error) *Error {
	return &Error{Kind: kind, Provider: providerName, Message: message, Err: cause}
}

// classifyTransportError maps a transport-level failure to an Error kind.
func classifyTransportError(providerName string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, providerName, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(KindTimeout, providerName, "request timed out", err)
	}
	return newError(KindConnection, providerName, "connection failed", err)
}

// classifyStatus maps a non-2xx HTTP status to an Error kind.
func classifyStatus(providerName string, status int, body string) *Error {
	message := fmt.Sprintf("unexpected HTTP status %d", status)
	if body != "" {
		message = fmt.Sprintf("%s: %s", message, truncate(body, 200))
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return newError(KindAuth, providerName, message, nil)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return newError(KindTimeout, providerName, message, nil)
	default:
		return newError(KindOther, providerName, message, nil)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
