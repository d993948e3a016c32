package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ServiceName identifies this service in error envelopes.
const ServiceName = "catalog-service"

type ErrorKind string

const (
	KindValidation         ErrorKind = "VALIDATION_ERROR"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindConflict           ErrorKind = "CONFLICT"
	KindServiceUnavailable ErrorKind = "SERVICE_UNAVAILABLE"
	KindInternal           ErrorKind = "INTERNAL_SERVER_ERROR"
)

// Code returns the HTTP-equivalent status of the kind.
func (k ErrorKind) Code() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a caller may retry the failed operation as is.
func (k ErrorKind) Retryable() bool {
	return k == KindServiceUnavailable
}

// Error is the classified failure returned across every operation boundary.
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
	Err     error
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validationf(format string, args ...any) *Error {
	return NewError(KindValidation, fmt.Sprintf(format, args...))
}

func NotFound(resource, identifier string) *Error {
	return NewError(KindNotFound, fmt.Sprintf("%s with ID %s not found", resource, identifier)).
		WithDetails(map[string]any{"resource": resource, "identifier": identifier})
}

func Internal(message string, err error) *Error {
	return NewError(KindInternal, message).Wrap(err)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Code() int { return e.Kind.Code() }

// WithDetails merges details into a copy of e.
func (e *Error) WithDetails(details map[string]any) *Error {
	if len(details) == 0 {
		return e
	}
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	for k, v := range details {
		cp.Details[k] = v
	}
	return &cp
}

// Wrap records the underlying cause on a copy of e.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// AsError classifies err. Errors that are not already classified become
// InternalError with message as their human message.
func AsError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return Internal(message, err)
}

// IsKind reports whether err is a classified error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

type ErrorBody struct {
	Type        ErrorKind      `json:"type"`
	Message     string         `json:"message"`
	Code        int            `json:"code"`
	ServiceName string         `json:"serviceName"`
	Details     map[string]any `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Success   bool      `json:"success"`
	Error     ErrorBody `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Envelope renders e as the structured error envelope.
func (e *Error) Envelope(now time.Time) ErrorEnvelope {
	return ErrorEnvelope{
		Success: false,
		Error: ErrorBody{
			Type:        e.Kind,
			Message:     e.Message,
			Code:        e.Code(),
			ServiceName: ServiceName,
			Details:     e.Details,
		},
		Timestamp: now.UTC(),
	}
}

// Envelope is the success response of every operation.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Warning string `json:"warning,omitempty"`
}

func OK(message string, data any) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}
