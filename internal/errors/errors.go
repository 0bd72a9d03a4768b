package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"sheetflow/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of a wrapped AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// GetCode returns the error code if err is or wraps an AppError, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeInvalidTimeZone  = "INVALID_TIME_ZONE"
	CodeInvalidDate      = "INVALID_DATE"
	CodeNoColumns        = "NO_COLUMNS_RESOLVABLE"
	CodeHandlerFailure   = "HANDLER_FAILURE"
	CodeSinkFailure      = "SINK_FAILURE"
	CodeNotFound         = "NOT_FOUND"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeUnsupportedMedia = "UNSUPPORTED_MEDIA"
)

// FromDomain classifies a pipeline error by the domain sentinel it wraps
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	code := CodeInternalError
	switch {
	case stderrors.Is(err, core.ErrInvalidTimeZone):
		code = CodeInvalidTimeZone
	case stderrors.Is(err, core.ErrInvalidDate):
		code = CodeInvalidDate
	case stderrors.Is(err, core.ErrInvalidArgument):
		code = CodeInvalidInput
	case stderrors.Is(err, core.ErrNoColumnsResolvable):
		code = CodeNoColumns
	case stderrors.Is(err, core.ErrHandlerFailure):
		code = CodeHandlerFailure
	case stderrors.Is(err, core.ErrSinkFailure):
		code = CodeSinkFailure
	case stderrors.Is(err, core.ErrSheetNotFound):
		code = CodeNotFound
	}
	return &AppError{Code: code, Message: err.Error(), Cause: err}
}

// HTTPStatus maps an error code to the status an HTTP surface should answer with
func HTTPStatus(code string) int {
	switch code {
	case CodeConfigInvalid, CodeInvalidInput, CodeInvalidTimeZone, CodeInvalidDate, CodeNoColumns:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	case CodeHandlerFailure, CodeSinkFailure, CodeDatabaseError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func UnsupportedMedia(message string) *AppError {
	return New(CodeUnsupportedMedia, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeDatabaseError,
		Message: message,
		Cause:   cause,
	}
}
