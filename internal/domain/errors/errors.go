// Package errors defines the application error taxonomy shared by the capture
// engine, the session manager and the enrollment flow.
package errors

import (
	"net/http"

	"voiceid/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code associated with the error
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types
var (
	// Capture-related errors
	ErrDeviceAccess = NewBaseError(
		http.StatusForbidden,
		"DEVICE_ACCESS_DENIED",
		"Microphone access was denied or no capture device is present",
		"",
	)

	ErrEncoderNotReady = NewBaseError(
		http.StatusServiceUnavailable,
		"ENCODER_NOT_READY",
		"The audio encoder has not finished initializing",
		"",
	)

	ErrCaptureBusy = NewBaseError(
		http.StatusConflict,
		"CAPTURE_BUSY",
		"Another capture operation is already in progress",
		"",
	)

	ErrNoRecording = NewBaseError(
		http.StatusConflict,
		"NO_RECORDING",
		"No finished recording is available",
		"",
	)

	ErrUnsupportedAudioFormat = NewBaseError(
		http.StatusBadRequest,
		"UNSUPPORTED_AUDIO_FORMAT",
		"The file is not a supported audio format",
		"",
	)

	// Credential-related errors
	ErrTokenDecode = NewBaseError(
		http.StatusUnauthorized,
		"TOKEN_DECODE_FAILED",
		"The credential is malformed or could not be parsed",
		"",
	)

	ErrTokenExpired = NewBaseError(
		http.StatusUnauthorized,
		"TOKEN_EXPIRED",
		"The credential has expired",
		"",
	)

	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"Incorrect email or password",
		"",
	)

	ErrProfileFetchFailed = NewBaseError(
		http.StatusUnauthorized,
		"PROFILE_FETCH_FAILED",
		"The user profile could not be fetched for the adopted credential",
		"",
	)

	// Submission-related errors
	ErrSubmissionRejected = NewBaseError(
		http.StatusBadGateway,
		"SUBMISSION_REJECTED",
		"The server rejected the submission",
		"",
	)

	ErrBiometricMismatch = NewBaseError(
		http.StatusUnauthorized,
		"BIOMETRIC_MISMATCH",
		"Voice verification failed",
		"",
	)

	ErrSubmissionInFlight = NewBaseError(
		http.StatusConflict,
		"SUBMISSION_IN_FLIGHT",
		"A submission is already in flight",
		"",
	)

	// Validation-related errors
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Input validation failed",
		"",
	)

	ErrBatchBelowMinimum = NewBaseError(
		http.StatusBadRequest,
		"BATCH_BELOW_MINIMUM",
		"Not enough recordings have been collected for submission",
		"",
	)
)
