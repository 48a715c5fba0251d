package errors

import (
	"fmt"
	"net/http"
	"time"
)

// AppError is the custom error type carried across layers. Handlers map it to
// an HTTP response via its HTTPCode and Code; everything else is logged.
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// General Errors
func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

// Request validation errors
func ErrMissingParameters(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_MISSING_PARAMETERS,
		Message:  message,
	}
}

func ErrInvalidPayload() AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_PAYLOAD,
		Message:  "Request body is not valid JSON",
	}
}

// Configuration errors
func ErrServerNotConfigured(message string) AppError {
	return AppError{
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_SERVER_NOT_CONFIGURED,
		Message:  message,
	}
}

// Call errors
func ErrCallNotFound(callID string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_CALL_NOT_FOUND,
		Message:  "Call not found",
	}.WithDetail("call_id", callID)
}

// Provider errors. ErrProviderFailed keeps the upstream status code so the
// caller sees exactly what the provider returned.
func ErrProviderFailed(status int, err error) AppError {
	httpCode := status
	if httpCode < http.StatusBadRequest {
		httpCode = http.StatusBadGateway
	}
	return AppError{
		Raw:      err,
		HTTPCode: httpCode,
		Code:     ErrorCode_PROVIDER_ERROR,
		Message:  "Call provider returned an error",
	}.WithDetail("upstream_status", fmt.Sprintf("%d", status))
}

func ErrProviderTimeout(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusGatewayTimeout,
		Code:     ErrorCode_PROVIDER_TIMEOUT,
		Message:  "Request to call provider timed out",
	}
}

// Webhook errors
func ErrInvalidSignature() AppError {
	return AppError{
		HTTPCode: http.StatusForbidden,
		Code:     ErrorCode_INVALID_SIGNATURE,
		Message:  "Webhook signature verification failed",
	}
}

// Storage errors
func ErrStorageFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_STORAGE_FAILED,
		Message:  fmt.Sprintf("Storage operation failed: %s", operation),
	}
}

// Summarization errors. Never surfaced to webhook senders; logged only.
func ErrSummaryFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_SUMMARY_FAILED,
		Message:  "Failed to generate call summary",
	}
}
