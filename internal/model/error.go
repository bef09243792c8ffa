package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON          = "INVALID_JSON"
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodePermissionDenied     = "PERMISSION_DENIED"
	ErrCodeDeviceAbsent         = "DEVICE_ABSENT"
	ErrCodeDeviceBusy           = "DEVICE_BUSY"
	ErrCodeCameraFailure        = "CAMERA_FAILURE"
	ErrCodeLookupUnavailable    = "LOOKUP_UNAVAILABLE"
	ErrCodeMalformedState       = "MALFORMED_STATE"
	ErrCodePersistFailed        = "PERSIST_FAILED"
	ErrCodeScanInProgress       = "SCAN_IN_PROGRESS"
	ErrCodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	ErrCodeUnauthorised         = "UNAUTHORIZED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
	// Retryable marks transient failures the user may simply try again.
	Retryable bool
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrProductNotFound   = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrLookupUnavailable = &DomainError{
		Code:      ErrCodeLookupUnavailable,
		Message:   "Error fetching product information. Please try again.",
		Retryable: true,
	}
	ErrMalformedState       = NewDomainError(ErrCodeMalformedState, "Stored inventory could not be decoded")
	ErrPersistFailed        = NewDomainError(ErrCodePersistFailed, "Inventory could not be saved")
	ErrScanInProgress       = NewDomainError(ErrCodeScanInProgress, "A scan is already in progress")
	ErrConfirmationRequired = NewDomainError(ErrCodeConfirmationRequired, "Removal must be confirmed")
)

// CodeOf returns the domain error code carried by err, or ErrCodeInternalError.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternalError
}

// IsRetryable reports whether err wraps a transient domain error.
func IsRetryable(err error) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Retryable
}
