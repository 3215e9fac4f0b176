// Package errors carries coded errors through grandgraph.
//
// A code classifies the failure once, where it happens; the CLI turns it
// into a message and the server into an HTTP status without inspecting
// error strings.
//
//	if err := errors.ValidateEntityID(id); err != nil {
//	    return err // INVALID_INPUT, 400
//	}
//	return errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", url)
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error.
type Code string

const (
	ErrCodeInvalidInput  Code = "INVALID_INPUT"  // bad query, id, flag or config value
	ErrCodeInvalidFormat Code = "INVALID_FORMAT" // malformed NodeBuffer or tile
	ErrCodeNotFound      Code = "NOT_FOUND"      // no fallback stage produced a graph
	ErrCodeNetwork       Code = "NETWORK_ERROR"  // transport failure or non-2xx status
	ErrCodeTimeout       Code = "TIMEOUT"
	ErrCodeUnauthorized  Code = "UNAUTHORIZED"

	// ErrCodeRenderPrecondition means a draw was attempted without a
	// mounted, non-empty surface.
	ErrCodeRenderPrecondition Code = "RENDER_PRECONDITION"

	ErrCodeUnsupported Code = "UNSUPPORTED"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
)

var statusByCode = map[Code]int{
	ErrCodeInvalidInput:  http.StatusBadRequest,
	ErrCodeInvalidFormat: http.StatusBadRequest,
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeUnauthorized:  http.StatusUnauthorized,
	ErrCodeNetwork:       http.StatusBadGateway,
	ErrCodeTimeout:       http.StatusGatewayTimeout,
	ErrCodeUnsupported:   http.StatusNotImplemented,
}

// Error is a coded error. Cause, when set, is reachable via errors.Unwrap.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	s := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap is New with a cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// GetCode returns the code of the outermost *Error in err's chain, or ""
// for uncoded errors.
func GetCode(err error) Code {
	if e := coded(err); e != nil {
		return e.Code
	}
	return ""
}

// Is reports whether err's outermost coded error has code.
func Is(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// UserMessage strips the code and cause from coded errors. Other errors
// are returned verbatim.
func UserMessage(err error) string {
	if e := coded(err); e != nil {
		return e.Message
	}
	return err.Error()
}

func coded(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// HTTPStatus is the status the server answers err with. Uncoded errors
// are 500.
func HTTPStatus(err error) int {
	if status, ok := statusByCode[GetCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
