package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for categorization.
var (
	ErrRequestBuild = errors.New("failed to build request")
	ErrNetwork      = errors.New("no response from backend")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("resource not found")
	ErrServer       = errors.New("backend server error")
	ErrStatus       = errors.New("unexpected response status")
	ErrDecode       = errors.New("malformed response envelope")
	ErrEnvelope     = errors.New("backend reported failure")
)

// StatusError is returned for every non-2xx response.
type StatusError struct {
	Code    int
	Method  string
	Path    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.Code, http.StatusText(e.Code), e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

// Unwrap maps the status code onto its sentinel.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Code == http.StatusForbidden:
		return ErrForbidden
	case e.Code == http.StatusNotFound:
		return ErrNotFound
	case e.Code >= 500:
		return ErrServer
	default:
		return ErrStatus
	}
}

// EnvelopeError is returned when a 2xx response carries success=false.
type EnvelopeError struct {
	Method  string
	Path    string
	Message string
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
}

// Unwrap returns ErrEnvelope.
func (e *EnvelopeError) Unwrap() error { return ErrEnvelope }

// Category maps err to a short label for logs and CLI output.
func Category(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrRequestBuild):
		return "request"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrServer):
		return "server"
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrEnvelope):
		return "envelope"
	default:
		return "unknown"
	}
}

// Message extracts the most useful operator-facing text from err.
func Message(err error) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	var ee *EnvelopeError
	if errors.As(err, &ee) && ee.Message != "" {
		return ee.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
