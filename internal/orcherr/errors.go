// Package orcherr provides the structured error taxonomy shared by every
// layer of the orchestrator: HTTP handlers, the scheduler, the advancer and
// the task executor all produce or consume *AppError so that a status code
// and a safe external message can always be derived from any error value.
package orcherr

import (
	"fmt"
	"net/http"

	goerrors "github.com/go-faster/errors"
)

// ErrorType classifies an AppError for status-code mapping and log grouping.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeInternal   ErrorType = "internal"
)

var statusByType = map[ErrorType]int{
	ErrorTypeValidation: http.StatusBadRequest,
	ErrorTypeNotFound:   http.StatusNotFound,
	ErrorTypeConflict:   http.StatusBadRequest,
	ErrorTypeDatabase:   http.StatusInternalServerError,
	ErrorTypeNetwork:    http.StatusInternalServerError,
	ErrorTypeTimeout:    http.StatusRequestTimeout,
	ErrorTypeInternal:   http.StatusInternalServerError,
}

// AppError is the one error type every package boundary deals in.
type AppError struct {
	Type       ErrorType
	Message    string
	Details    string
	StatusCode int
	Cause      error
}

func New(t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message, StatusCode: statusByType[t]}
}

func Wrap(cause error, t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message, StatusCode: statusByType[t], Cause: cause}
}

func Wrapf(cause error, t ErrorType, format string, args ...any) *AppError {
	return Wrap(cause, t, fmt.Sprintf(format, args...))
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Cause }

func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithDetailsf(format string, args ...any) *AppError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// NewValidationError builds an ErrorTypeValidation error whose message is
// already safe to return to callers verbatim.
func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message)
}

func NewDatabaseError(op string, cause error) *AppError {
	return Wrapf(cause, ErrorTypeDatabase, "database operation failed: %s", op)
}

func NewNotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource))
}

func NewConflictError(message string) *AppError {
	return New(ErrorTypeConflict, message)
}

func NewTimeoutError(op string) *AppError {
	return New(ErrorTypeTimeout, fmt.Sprintf("operation timed out: %s", op))
}

// IsType reports whether err is an *AppError of the given type.
func IsType(err error, t ErrorType) bool {
	var ae *AppError
	if goerrors.As(err, &ae) {
		return ae.Type == t
	}
	return false
}

// GetType returns err's ErrorType, or ErrorTypeInternal for non-AppError values.
func GetType(err error) ErrorType {
	var ae *AppError
	if goerrors.As(err, &ae) {
		return ae.Type
	}
	return ErrorTypeInternal
}

// GetStatusCode returns the HTTP status to answer the caller with.
func GetStatusCode(err error) int {
	var ae *AppError
	if goerrors.As(err, &ae) {
		return ae.StatusCode
	}
	return http.StatusInternalServerError
}

// ErrorMessages holds the external-safe text for error types whose internal
// Message must never reach a caller.
var ErrorMessages = struct {
	ResourceNotFound string
	OperationTimeout string
	InternalError    string
}{
	ResourceNotFound: "the requested resource could not be found",
	OperationTimeout: "the operation timed out, please retry",
	InternalError:    "an internal error occurred",
}

// SafeErrorMessage returns text that is safe to send to an external caller.
// Validation messages are domain-authored and pass through; everything else
// is mapped to a generic, type-specific message so internals never leak.
func SafeErrorMessage(err error) string {
	var ae *AppError
	if !goerrors.As(err, &ae) {
		return "an unexpected error occurred"
	}

	switch ae.Type {
	case ErrorTypeValidation, ErrorTypeConflict:
		// Both are domain-authored by the caller (NewValidationError,
		// NewConflictError) and meant to reach the caller verbatim — e.g.
		// "flow has no blocked task to unblock" distinguishes an
		// already-unblocked flow from every other 400, which callers rely on.
		return ae.Message
	case ErrorTypeNotFound:
		return ErrorMessages.ResourceNotFound
	case ErrorTypeTimeout:
		return ErrorMessages.OperationTimeout
	default:
		return ErrorMessages.InternalError
	}
}

// LogFields renders err as a structured logging field set.
func LogFields(err error) map[string]any {
	fields := map[string]any{"error": err.Error()}

	var ae *AppError
	if !goerrors.As(err, &ae) {
		return fields
	}

	fields["error_type"] = string(ae.Type)
	fields["status_code"] = ae.StatusCode
	if ae.Details != "" {
		fields["error_details"] = ae.Details
	}
	if ae.Cause != nil {
		fields["underlying_error"] = ae.Cause.Error()
	}
	return fields
}

// Chain returns the first non-nil error among errs, or nil if all are nil.
// It exists for call sites that accumulate several independent checks and
// want to surface only the earliest failure.
func Chain(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
