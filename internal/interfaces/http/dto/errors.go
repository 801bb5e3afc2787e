package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeNoQuotes is used when no provider can produce the requested work
	ErrCodeNoQuotes = "ERR_NO_QUOTES"
	// ErrCodeQuoteExpired is used when an expired quote backs an order request
	ErrCodeQuoteExpired = "ERR_QUOTE_EXPIRED"
	// ErrCodeRenditionNotQuotable is used when quoting targets a rendition
	// that is not ready
	ErrCodeRenditionNotQuotable = "ERR_RENDITION_NOT_QUOTABLE"
	// ErrCodePreflightBlocked is used when preflight failures block a submission
	ErrCodePreflightBlocked = "ERR_PREFLIGHT_BLOCKED"
	// ErrCodeSubmissionConflict is used when an order is already being submitted
	ErrCodeSubmissionConflict = "ERR_SUBMISSION_CONFLICT"
	// ErrCodeVendorRejected is used when the print vendor rejects the work
	ErrCodeVendorRejected = "ERR_VENDOR_REJECTED"
	// ErrCodeProviderUnavailable is used when the vendor API cannot be reached
	ErrCodeProviderUnavailable = "ERR_PROVIDER_UNAVAILABLE"
	// ErrCodeWebhookInvalid is used when a webhook delivery fails verification
	ErrCodeWebhookInvalid = "ERR_WEBHOOK_INVALID"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:         http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:         http.StatusUnprocessableEntity,
	ErrCodeNoQuotes:             http.StatusUnprocessableEntity,
	ErrCodeQuoteExpired:         http.StatusUnprocessableEntity,
	ErrCodeRenditionNotQuotable: http.StatusUnprocessableEntity,
	ErrCodePreflightBlocked:     http.StatusUnprocessableEntity,
	ErrCodeVendorRejected:       http.StatusUnprocessableEntity,

	// Submission races -> 409 Conflict
	ErrCodeSubmissionConflict: http.StatusConflict,

	// Vendor outages -> 502 Bad Gateway
	ErrCodeProviderUnavailable: http.StatusBadGateway,

	// Webhook verification -> 400 Bad Request
	ErrCodeWebhookInvalid: http.StatusBadRequest,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"ALREADY_EXISTS":         ErrCodeAlreadyExists,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_STATE":          ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":   ErrCodeConcurrencyConflict,
	"NO_QUOTES":              ErrCodeNoQuotes,
	"PREFLIGHT_BLOCKED":      ErrCodePreflightBlocked,
	"RENDITION_NOT_QUOTABLE": ErrCodeRenditionNotQuotable,
	"UNKNOWN_PROVIDER":       ErrCodeNotFound,
	"VALIDATION_ERROR":       ErrCodeValidation,
	"BAD_REQUEST":            ErrCodeBadRequest,
	"INTERNAL_ERROR":         ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// If the code is already in the API format or unknown, returns it as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
