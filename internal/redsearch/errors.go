package redsearch

import (
	"errors"
	"fmt"
)

// Kind discriminates the error categories this package can return.
type Kind int

const (
	// KindInternal wraps unexpected failures (e.g. malformed JSON) so callers
	// never see raw low-level error types cross the package boundary.
	KindInternal Kind = iota
	// KindValidation covers invalid arguments and missing credentials,
	// detected before any network activity.
	KindValidation
	// KindConnection covers transport-level failures reaching the upstream.
	KindConnection
	// KindAuthentication covers upstream credential rejection (HTTP 401).
	KindAuthentication
	// KindAPI covers any other non-success HTTP status from the upstream.
	KindAPI
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConnection:
		return "connection"
	case KindAuthentication:
		return "authentication"
	case KindAPI:
		return "api"
	default:
		return "internal"
	}
}

// Error is the single error type produced by this package. Callers can
// branch on Kind, or treat any *Error as a generic client failure.
type Error struct {
	Kind Kind

	// StatusCode and Body are populated for KindAPI and carry the upstream
	// HTTP status and raw response text.
	StatusCode int
	Body       string

	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.Kind == KindAPI {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
	}
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

// ErrorKind reports the Kind of an error produced by this package. The
// second return is false for errors from elsewhere.
func ErrorKind(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return KindInternal, false
}

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, msg: fmt.Sprintf(format, args...)}
}

func connectionError(cause error, msg string) *Error {
	return &Error{Kind: KindConnection, msg: msg, cause: cause}
}

func authenticationError() *Error {
	return &Error{Kind: KindAuthentication, msg: "invalid API key"}
}

func apiError(status int, body string) *Error {
	return &Error{Kind: KindAPI, StatusCode: status, Body: body}
}

func internalError(cause error, msg string) *Error {
	return &Error{Kind: KindInternal, msg: msg, cause: cause}
}
