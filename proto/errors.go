package proto

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error is a service-level error with a stable wire code and an HTTP
// status. Handlers map any error chain back to one of these; unknown
// errors become Internal.
type Error struct {
	Code       string `json:"type"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
}

func (e *Error) Error() string { return e.Message }

var (
	ErrUserNotFound = &Error{Code: "userNotFound", Message: "user with provided credentials not found", HTTPStatus: http.StatusUnauthorized}
	ErrTokenExpired = &Error{Code: "tokenExpired", Message: "token has expired", HTTPStatus: http.StatusUnauthorized}
	ErrUnauthorized = &Error{Code: "unauthorized", Message: "authorization required", HTTPStatus: http.StatusUnauthorized}
)

// CredentialsConflict reports a username or email that is already taken.
func CredentialsConflict(key, value string) *Error {
	return &Error{
		Code:       "credentialsConflict",
		Message:    key + " " + value + " already exists",
		HTTPStatus: http.StatusConflict,
	}
}

// InvalidSetting reports a rejected settings value with a hint for the client.
func InvalidSetting(key, hint string) *Error {
	return &Error{
		Code:       "invalidSetting",
		Message:    "value of setting " + key + " is invalid: " + hint,
		HTTPStatus: http.StatusForbidden,
	}
}

// Internal wraps an unexpected error without leaking its details on the wire.
func Internal(err error) *Error {
	return &Error{
		Code:       "internal",
		Message:    "internal error: " + err.Error(),
		HTTPStatus: http.StatusInternalServerError,
	}
}

// AsError normalises any error chain to a *Error.
func AsError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return Internal(err)
}

// Envelope is the response wrapper: exactly one of Data or Error is set.
type Envelope struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// WriteData writes a success envelope.
func WriteData(w http.ResponseWriter, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		WriteError(w, Internal(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Envelope{Data: raw})
}

// WriteError writes an error envelope with the error's HTTP status.
func WriteError(w http.ResponseWriter, err error) {
	se := AsError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(se.HTTPStatus)
	json.NewEncoder(w).Encode(Envelope{Error: se})
}
