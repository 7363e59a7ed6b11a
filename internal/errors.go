package internal

import (
	"errors"
	"net/http"
)

// Sentinel errors returned by New and the flow handlers.
var (
	ErrDatastoreRequired    = errors.New("social: connection datastore is required")
	ErrCookieSecretRequired = errors.New("social: cookie secret is required when flash messages are enabled")
	ErrNoProviders          = errors.New("social: no providers configured")
	ErrUnknownProvider      = errors.New("social: unknown provider")
	ErrStateMismatch        = errors.New("social: oauth state mismatch")
	ErrNoSession            = errors.New("social: session manager not configured")
)

// HTTPError is an error with the status code used to render it.
type HTTPError struct {
	// Err is the underlying error, logged but never shown to users.
	Err error

	// Message is the user-facing message.
	Message string

	// RequestID is the request tracking ID, when known.
	RequestID string

	// Code is the HTTP status code.
	Code int
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) StatusCode() int {
	return e.Code
}

func (e *HTTPError) StatusText() string {
	return http.StatusText(e.Code)
}

// HTTPErrorOption configures an HTTPError.
type HTTPErrorOption func(*HTTPError)

// NewHTTPError creates an HTTPError with the given status code and message.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	e := &HTTPError{Code: code, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithError(err error) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Err = err
	}
}

func WithRequestID(id string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.RequestID = id
	}
}

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message, opts...)
}

func ErrMethodNotAllowed(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusMethodNotAllowed, message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message, opts...)
}

// ErrBadGateway reports a failure talking to an identity provider.
func ErrBadGateway(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusBadGateway, message, opts...)
}

func IsHTTPError(err error) bool {
	return AsHTTPError(err) != nil
}

// AsHTTPError extracts the HTTPError from an error chain.
// Returns nil if there is none.
func AsHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return nil
}

// DefaultErrorHandler writes the status text of an HTTPError, or 500 for
// any other error, and logs server-side failures.
func DefaultErrorHandler(c Context, err error) error {
	code := http.StatusInternalServerError
	if httpErr := AsHTTPError(err); httpErr != nil {
		code = httpErr.Code
	}
	if code >= http.StatusInternalServerError {
		c.LogError("social request failed", "error", err, "status", code)
	} else {
		c.LogWarn("social request rejected", "error", err, "status", code)
	}
	return c.String(code, http.StatusText(code))
}
