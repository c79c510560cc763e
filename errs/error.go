package errs

import (
	"errors"
	"fmt"
)

// Application error codes. They are mapped to HTTP status codes in ReturnError.
const (
	ECONFLICT     = "conflict"
	EFORBIDDEN    = "forbidden"
	EINTERNAL     = "internal"
	EINVALID      = "invalid"
	ENOTFOUND     = "not_found"
	EUNAUTHORIZED = "unauthorized"
)

// Error represents an application-specific error. Its Message is meant for the
// end user and is returned in the json body of a failed request.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface. Not used by the application otherwise.
func (e *Error) Error() string {
	return fmt.Sprintf("poetryHub error: code=%s message=%s", e.Code, e.Message)
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error.".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// Frequently returned validation errors.
var (
	IdInvalid         = Errorf(EINVALID, "The provided ID is invalid.")
	UserIdValid       = Errorf(EINVALID, "A valid user ID is required.")
	LimitInvalid      = Errorf(EINVALID, "The limit must be greater than 0.")
	RememberTooShort  = Errorf(EINTERNAL, "The remember token must be at least 32 bytes.")
	RememberHashEmpty = Errorf(EINTERNAL, "The remember token hash must not be empty.")
)
