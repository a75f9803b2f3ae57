package core

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnauthenticated signals a missing or expired token. Any operation
	// surfacing it is fatal to the session and forces a logout.
	ErrUnauthenticated = errors.New("user not authenticated")

	// ErrFetchTimeout is returned when the initial batched fetch exceeds its bound.
	ErrFetchTimeout = errors.New("request timeout")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ForbiddenError carries the server's detail for a 403; the caller decides
// whether to surface it or degrade (e.g. an empty users collection).
type ForbiddenError struct {
	Detail string
}

func (e *ForbiddenError) Error() string {
	if e.Detail == "" {
		return "permission denied"
	}
	return e.Detail
}

// APIError is the fallback passthrough for any other server error payload.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server error (%d)", e.Status)
	}
	return e.Detail
}

func IsUnauthenticated(err error) bool {
	return errors.Cause(err) == ErrUnauthenticated
}

func IsForbidden(err error) bool {
	_, ok := errors.Cause(err).(*ForbiddenError)
	return ok
}

func IsFetchTimeout(err error) bool {
	return errors.Cause(err) == ErrFetchTimeout
}

// ErrorDetail unwraps the server detail of an error, falling back to its message.
func ErrorDetail(err error) string {
	switch cause := errors.Cause(err).(type) {
	case *ForbiddenError:
		return cause.Detail
	case *APIError:
		return cause.Detail
	}
	return err.Error()
}
