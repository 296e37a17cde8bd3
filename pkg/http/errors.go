package http

import (
	"fmt"
	"net/http"
)

// AppError is the error shape written inside the response envelope.
// Status picks the HTTP code; Err stays server side.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

// WithParam attaches a template parameter for client-side messages.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = map[string]interface{}{}
	}
	e.Params[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func NotFoundError(message string) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", message, http.StatusNotFound)
}

func BadRequestError(message string) *AppError {
	return NewAppError("ERR_BAD_REQUEST", "", message, http.StatusBadRequest)
}

// RequiredError reports a missing request part such as a form file.
func RequiredError(field string) *AppError {
	return NewAppError("ERR_REQUIRED", field, field+" is required", http.StatusBadRequest)
}

// TooLargeError reports a payload over limit bytes.
func TooLargeError(field string, limit int64) *AppError {
	return NewAppError("ERR_TOO_LARGE", field, fmt.Sprintf("%s exceeds %d bytes", field, limit),
		http.StatusRequestEntityTooLarge).WithParam("max", limit)
}

// InvalidRangeError reports a start date after the end date.
func InvalidRangeError(message string) *AppError {
	return NewAppError("ERR_INVALID_RANGE", "start", message, http.StatusBadRequest)
}

// ParseError reports an unreadable client-supplied file.
func ParseError(field, message string) *AppError {
	return NewAppError("ERR_PARSE", field, message, http.StatusBadRequest)
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError("ERR_RATE_LIMITED", "", message, http.StatusTooManyRequests)
}

// BadGatewayError marks an upstream provider failure.
func BadGatewayError(message string) *AppError {
	return NewAppError("ERR_UPSTREAM", "", message, http.StatusBadGateway)
}

func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}
