// Package errors is this service's standardized error system.
//
// It mirrors the chat wire protocol's five failure kinds: an
// unauthenticated caller, a malformed request, a name that does not
// resolve, a disallowed HTTP method, and the soft "warning" outcome
// that the protocol sends with a 200 instead of an error status (see
// internal/handlers, which never routes warnings through this type).
package errors

import (
	"fmt"
	"net/http"
	"time"
)

// Code is a stable, wire-visible error identifier.
type Code string

const (
	Unauthorized     Code = "UNAUTHORIZED"
	BadRequest       Code = "BAD_REQUEST"
	NotFound         Code = "NOT_FOUND"
	MethodNotAllowed Code = "METHOD_NOT_ALLOWED"
	Internal         Code = "INTERNAL_SERVER_ERROR"
)

// statusCodes maps each Code to the HTTP status the wire codec must frame.
var statusCodes = map[Code]int{
	Unauthorized:     http.StatusUnauthorized,
	BadRequest:       http.StatusBadRequest,
	NotFound:         http.StatusNotFound,
	MethodNotAllowed: http.StatusMethodNotAllowed,
	Internal:         http.StatusInternalServerError,
}

// canonicalMessages holds the fixed strings returned for each error
// code, stable across releases so callers may match on them verbatim.
var canonicalMessages = map[Code]string{
	Unauthorized: `Unauthorized. Please name yourself, add "user_name" to request body (not empty)` +
		`and/or enter/check/recheck your Bearer Token in "Authorization" header. If you have not have ` +
		`token yet, get it by POST request to endpoint "get_token"`,
	BadRequest:       "BAD REQUEST",
	NotFound:         "Not found message/user_name/chat",
	MethodNotAllowed: "Not allowed http method",
}

// AppError is a structured application error carrying a status code and
// a stable message, with an optional request id for log correlation.
type AppError struct {
	Code      Code      `json:"error"`
	Message   string    `json:"-"`
	RequestID string    `json:"-"`
	Timestamp time.Time `json:"-"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// StatusCode returns the HTTP status the connection handler must send.
func (e *AppError) StatusCode() int {
	if code, ok := statusCodes[e.Code]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// New builds an AppError using the canonical fixed message for code.
func New(code Code) *AppError {
	return &AppError{
		Code:      code,
		Message:   canonicalMessages[code],
		Timestamp: time.Now(),
	}
}

// WithRequestID attaches a correlation id for structured logging.
func (e *AppError) WithRequestID(id string) *AppError {
	e.RequestID = id
	return e
}

// Wrap converts any error into an AppError, preserving one if given.
func Wrap(err error, code Code) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return &AppError{Code: code, Message: err.Error(), Timestamp: time.Now()}
}

// As reports whether err is an *AppError.
func As(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}
