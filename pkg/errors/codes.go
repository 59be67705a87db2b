package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Aliases for backward compatibility
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeUnauthorized   = ErrCodeUnauthorized
	CodeForbidden      = ErrCodeForbidden
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeRateLimit      = ErrCodeTooManyRequests
	CodeNotImplemented = ErrCodeNotImplemented
	CodeOK             = ErrorCode("OK")
	CodeUnknown        = ErrorCode("UNKNOWN")
)

// Data Source Error Codes
const (
	ErrCodeDataSourceUnavailable ErrorCode = "DATA_001"
	ErrCodeDataSourceQuery       ErrorCode = "DATA_002"
	ErrCodeDataSourceParseError  ErrorCode = "DATA_003"
)

// SOM Pipeline Error Codes
const (
	// ErrCodeEmptyData: no observation survived filtering and assembly.
	ErrCodeEmptyData ErrorCode = "SOM_001"
	// ErrCodeInsufficientMatrix: coverage filtering left zero rows or columns.
	ErrCodeInsufficientMatrix ErrorCode = "SOM_002"
	ErrCodeTrainingFailed     ErrorCode = "SOM_003"
	ErrCodeBudgetExceeded     ErrorCode = "SOM_004"
	ErrCodeInvalidGrid        ErrorCode = "SOM_005"
	ErrCodeUnsupportedMapType ErrorCode = "SOM_006"
	ErrCodeRenderFailed       ErrorCode = "SOM_007"
	ErrCodeExportFailed       ErrorCode = "SOM_008"
)

// Storage & Messaging Error Codes
const (
	ErrCodeStorageError   ErrorCode = "STORE_001"
	ErrCodeObjectNotFound ErrorCode = "STORE_002"
	ErrCodeMessagingError ErrorCode = "STORE_003"
	ErrCodeLockNotHeld    ErrorCode = "STORE_004"
)

// Infrastructure Error Codes (mapped from old names)
const (
	CodeDBConnectionError = ErrCodeDatabaseError
	CodeDatabaseError     = ErrCodeDatabaseError
	CodeDBQueryError      = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
	CodeMessageQueueError = ErrCodeMessagingError
	CodeStorageError      = ErrCodeStorageError
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusInternalServerError,
	ErrCodeFeatureDisabled:    http.StatusForbidden,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeDataSourceUnavailable: http.StatusServiceUnavailable,
	ErrCodeDataSourceQuery:       http.StatusInternalServerError,
	ErrCodeDataSourceParseError:  http.StatusBadGateway,

	// Pipeline outcomes are structured results, not transport failures.
	ErrCodeEmptyData:          http.StatusOK,
	ErrCodeInsufficientMatrix: http.StatusOK,
	ErrCodeTrainingFailed:     http.StatusOK,
	ErrCodeBudgetExceeded:     http.StatusOK,
	ErrCodeInvalidGrid:        http.StatusBadRequest,
	ErrCodeUnsupportedMapType: http.StatusBadRequest,
	ErrCodeRenderFailed:       http.StatusInternalServerError,
	ErrCodeExportFailed:       http.StatusInternalServerError,

	ErrCodeStorageError:   http.StatusInternalServerError,
	ErrCodeObjectNotFound: http.StatusNotFound,
	ErrCodeMessagingError: http.StatusInternalServerError,
	ErrCodeLockNotHeld:    http.StatusConflict,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeDataSourceUnavailable: "data source unavailable",
	ErrCodeDataSourceQuery:       "failed to query observations",
	ErrCodeDataSourceParseError:  "failed to parse observation rows",

	ErrCodeEmptyData:          "no economic data available for analysis",
	ErrCodeInsufficientMatrix: "insufficient data for SOM analysis",
	ErrCodeTrainingFailed:     "failed to train SOM",
	ErrCodeBudgetExceeded:     "training exceeded budget",
	ErrCodeInvalidGrid:        "invalid map size",
	ErrCodeUnsupportedMapType: "unsupported map type",
	ErrCodeRenderFailed:       "failed to render map",
	ErrCodeExportFailed:       "failed to export analysis",

	ErrCodeStorageError:   "object storage error",
	ErrCodeObjectNotFound: "object not found",
	ErrCodeMessagingError: "message queue error",
	ErrCodeLockNotHeld:    "lock not held",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// IsPipelineOutcome reports whether the code is one of the SOM pipeline
// conditions that are reported to callers as a structured error result.
func IsPipelineOutcome(code ErrorCode) bool {
	switch code {
	case ErrCodeEmptyData, ErrCodeInsufficientMatrix, ErrCodeTrainingFailed, ErrCodeBudgetExceeded:
		return true
	}
	return false
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
