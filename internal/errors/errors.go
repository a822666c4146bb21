// Package errors provides the coded error type used across the standup pipeline.
package errors

// Import as perr to avoid shadowing the standard library package.

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies failures so callers can decide whether to abort,
// skip a repository or keep going
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodeInvalidDateExpression is for date input that matches no known form
	ErrorCodeInvalidDateExpression

	// ErrorCodeConfigurationMissing is for runs with neither an organization nor a repository list
	ErrorCodeConfigurationMissing

	// ErrorCodeRepositoryFetchFailed is for per-repository transport or API failures
	ErrorCodeRepositoryFetchFailed

	// ErrorCodeUnsupportedFormat is for render formats outside markdown/text/json
	ErrorCodeUnsupportedFormat

	// ErrorCodeMalformedResponse is for pages that are not a JSON array
	ErrorCodeMalformedResponse

	// ErrorCodeTooManyRequests is for upstream rate limiting
	ErrorCodeTooManyRequests

	// ErrorCodeUnavailable is for transient errors where retry may succeed
	ErrorCodeUnavailable

	// ErrorCodeNotFound is for missing upstream resources
	ErrorCodeNotFound

	// ErrorCodeInvalidArgument is for bad input parameters
	ErrorCodeInvalidArgument
)

var codeNames = map[ErrorCode]string{
	ErrorCodeUnknown:               "unknown",
	ErrorCodeInvalidDateExpression: "invalid_date_expression",
	ErrorCodeConfigurationMissing:  "configuration_missing",
	ErrorCodeRepositoryFetchFailed: "repository_fetch_failed",
	ErrorCodeUnsupportedFormat:     "unsupported_format",
	ErrorCodeMalformedResponse:     "malformed_response",
	ErrorCodeTooManyRequests:       "too_many_requests",
	ErrorCodeUnavailable:           "unavailable",
	ErrorCodeNotFound:              "not_found",
	ErrorCodeInvalidArgument:       "invalid_argument",
}

// String returns the stable snake_case name of the code
func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return codeNames[ErrorCodeUnknown]
}

// HTTPStatusCode turns an ErrorCode into an http status code
func HTTPStatusCode(c ErrorCode) int {
	switch c {
	case ErrorCodeInvalidDateExpression, ErrorCodeUnsupportedFormat, ErrorCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeTooManyRequests:
		return http.StatusTooManyRequests
	case ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	case ErrorCodeRepositoryFetchFailed, ErrorCodeMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is the structured error type with wrapping and metadata
// msg is human facing; code is machine facing; op is an optional operation tag
type Error struct {
	orig error
	msg  string
	code ErrorCode
	op   string
}

// Wire is the JSON-serializable form returned by the HTTP and tool adapters
type Wire struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Op returns the operation label, if set
func (e *Error) Op() string { return e.op }

// WireFrom converts any error into a Wire payload with best-effort mapping
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	return Wire{Code: CodeOf(err).String(), Message: err.Error()}
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// OpOf returns the operation label of the outermost *Error in err's chain
func OpOf(err error) string {
	if e, ok := As(err); ok {
		return e.op
	}
	return ""
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// HTTPStatus returns the mapped HTTP status for any error
func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// WithOp attaches an operation label to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithOp(err error, op string) error {
	if e, ok := As(err); ok {
		c := *e
		c.op = op
		return &c
	}
	return err
}

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}
