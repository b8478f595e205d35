package core

import "github.com/pkg/errors"

// FieldError reports a problem with one input field, keyed by the field's
// JSON name as the API returns it.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries the field-level failures of one payload, such as a
// registration form or an assignment creation request.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown flags an integrity fault the process cannot recover from, e.g. a
// lost database connection. The server drains and exits when it sees one.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s *shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err (or its cause) is a shutdown error.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
