package client

import (
	"errors"
	"fmt"
)

// ErrorKind classifies gateway failures.
type ErrorKind string

const (
	// KindNetwork is a transport-level failure (connection refused, DNS, timeout).
	KindNetwork ErrorKind = "network"
	// KindHTTP is a non-2xx response from the server.
	KindHTTP ErrorKind = "http"
	// KindParse is a malformed response body.
	KindParse ErrorKind = "parse"
	// KindConfig is a missing or unusable client configuration.
	KindConfig ErrorKind = "config"
)

// Error is the typed failure returned by every gateway operation.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == KindHTTP && e.Status > 0 {
		return fmt.Sprintf("nanochat: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("nanochat: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func kindOf(err error) (ErrorKind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return "", false
}

// IsNetwork reports whether err is a transport-level gateway failure.
func IsNetwork(err error) bool { k, ok := kindOf(err); return ok && k == KindNetwork }

// IsHTTP reports whether err is a structured non-2xx server failure.
func IsHTTP(err error) bool { k, ok := kindOf(err); return ok && k == KindHTTP }

// IsParse reports whether err is a malformed-response failure.
func IsParse(err error) bool { k, ok := kindOf(err); return ok && k == KindParse }
