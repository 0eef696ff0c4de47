package llm

import "errors"

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable reports whether err carries an *Error marked retryable.
func IsRetryable(err error) bool {
	e, ok := AsError(err)
	return ok && e.Retryable
}

// HTTPStatusOf returns the upstream HTTP status recorded on err, or 0.
func HTTPStatusOf(err error) int {
	if e, ok := AsError(err); ok {
		return e.HTTPStatus
	}
	return 0
}
