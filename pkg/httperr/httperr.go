// Package httperr defines errors that carry an HTTP status and convert into JSON error responses.
package httperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"lambda-http/pkg/lambda"
)

// StatusClientClosedRequest is reported when the caller abandons a request before it completes.
const StatusClientClosedRequest = 499

// Error is an error with an HTTP status, optional extra response headers and
// an optional details payload. The cause is kept for logging only.
type Error struct {
	Message string
	Status  int
	Headers http.Header
	Details any
	Cause   error
}

// Option configures an Error.
type Option func(*Error)

// WithCause attaches the underlying error.
func WithCause(err error) Option {
	return func(e *Error) {
		e.Cause = err
	}
}

// WithHeaders merges headers into the error's response headers.
func WithHeaders(h http.Header) Option {
	return func(e *Error) {
		for key, values := range h {
			for _, value := range values {
				e.Headers.Add(key, value)
			}
		}
	}
}

// WithHeader sets a single response header.
func WithHeader(key, value string) Option {
	return func(e *Error) {
		e.Headers.Set(key, value)
	}
}

// WithDetails attaches a free-form details payload.
func WithDetails(details any) Option {
	return func(e *Error) {
		e.Details = details
	}
}

// New creates an Error. Statuses outside [1, 599] become 500.
func New(status int, message string, opts ...Option) *Error {
	if status < 1 || status > 599 {
		status = http.StatusInternalServerError
	}

	e := &Error{
		Message: message,
		Status:  status,
		Headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

type body struct {
	Error payload `json:"error"`
}

type payload struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details any    `json:"details,omitempty"`
}

// MarshalJSON encodes the error as {"error": {"message", "status", "details"?}}.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(body{Error: payload{
		Message: e.Message,
		Status:  e.Status,
		Details: e.Details,
	}})
}

// Response converts the error into a JSON response with the error's status and headers.
func (e *Error) Response() *lambda.Response {
	header := e.Headers.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set("Content-Type", "application/json")

	data, err := json.Marshal(e)
	if err != nil {
		// details could not be encoded; drop them rather than fail
		data, _ = json.Marshal(body{Error: payload{Message: e.Message, Status: e.Status}})
	}
	return lambda.NewResponse(e.Status, data, header)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// StatusOf returns the status carried by err, or 500 if err is not an *Error.
func StatusOf(err error) int {
	if httpErr, ok := As(err); ok {
		return httpErr.Status
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether err carries a 4xx status.
func IsClientError(err error) bool {
	httpErr, ok := As(err)
	return ok && httpErr.Status >= 400 && httpErr.Status < 500
}

// IsServerError reports whether err carries a 5xx status.
func IsServerError(err error) bool {
	httpErr, ok := As(err)
	return ok && httpErr.Status >= 500 && httpErr.Status < 600
}
