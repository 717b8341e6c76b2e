package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string identifier for a specific error condition.
// Codes are "<MODULE>_<NNN>".
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Module returns the prefix before the underscore, e.g. "JOB".
func (c ErrorCode) Module() string {
	if i := strings.IndexByte(string(c), '_'); i > 0 {
		return string(c)[:i]
	}
	return string(c)
}

// Common error codes
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
	ErrCodeMessageQueueError  ErrorCode = "COMMON_015"
	ErrCodeStorageError       ErrorCode = "COMMON_016"
)

// Short aliases
const (
	CodeOK            ErrorCode = "OK"
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeInternal                = ErrCodeInternal
	CodeInvalidParam            = ErrCodeBadRequest
	CodeNotFound                = ErrCodeNotFound
	CodeConflict                = ErrCodeConflict
	CodeDatabaseError           = ErrCodeDatabaseError
	CodeCacheError              = ErrCodeCacheError
)

// Compound module error codes
const (
	ErrCodeCompoundInvalidStructure ErrorCode = "CMP_001"
	ErrCodeCompoundNotFound         ErrorCode = "CMP_002"
	ErrCodeCompoundRelationConflict ErrorCode = "CMP_003"
	ErrCodeCompoundInvalidProps     ErrorCode = "CMP_004"
)

// Job module error codes
const (
	ErrCodeJobNotFound          ErrorCode = "JOB_001"
	ErrCodeJobTransitionInvalid ErrorCode = "JOB_002"
	ErrCodeJobThresholdInvalid  ErrorCode = "JOB_003"
	ErrCodeJobPrimaryConflict   ErrorCode = "JOB_004"
)

// Result module error codes
const (
	ErrCodeResultStoreFailed   ErrorCode = "RES_001"
	ErrCodeResultNotFound      ErrorCode = "RES_002"
	ErrCodeResultArchiveFailed ErrorCode = "RES_003"
)

// Data source error codes
const (
	ErrCodeDataSourceUnavailable ErrorCode = "SRC_001"
	ErrCodeDataSourceRateLimited ErrorCode = "SRC_002"
	ErrCodeDataSourceAuthFailed  ErrorCode = "SRC_003"
	ErrCodeDataSourceParseError  ErrorCode = "SRC_004"
)

// ─────────────────────────────────────────────────────────────────────────────
// Categories
// ─────────────────────────────────────────────────────────────────────────────

// Category groups codes into the failure classes the pipeline reacts to.
type Category string

const (
	CategoryUnknown      Category = "unknown"
	CategoryValidation   Category = "validation"
	CategoryNotFound     Category = "not_found"
	CategoryConflict     Category = "conflict"
	CategoryCollaborator Category = "collaborator"
	CategoryPersistence  Category = "persistence"
	CategoryInternal     Category = "internal"
)

var codeCategory = map[ErrorCode]Category{
	ErrCodeBadRequest:               CategoryValidation,
	ErrCodeValidation:               CategoryValidation,
	ErrCodeCompoundInvalidStructure: CategoryValidation,
	ErrCodeCompoundInvalidProps:     CategoryValidation,
	ErrCodeJobThresholdInvalid:      CategoryValidation,

	ErrCodeNotFound:         CategoryNotFound,
	ErrCodeCompoundNotFound: CategoryNotFound,
	ErrCodeJobNotFound:      CategoryNotFound,
	ErrCodeResultNotFound:   CategoryNotFound,

	ErrCodeConflict:                 CategoryConflict,
	ErrCodeCompoundRelationConflict: CategoryConflict,
	ErrCodeJobTransitionInvalid:     CategoryConflict,
	ErrCodeJobPrimaryConflict:       CategoryConflict,

	ErrCodeExternalService:       CategoryCollaborator,
	ErrCodeTimeout:               CategoryCollaborator,
	ErrCodeDataSourceUnavailable: CategoryCollaborator,
	ErrCodeDataSourceRateLimited: CategoryCollaborator,
	ErrCodeDataSourceAuthFailed:  CategoryCollaborator,
	ErrCodeDataSourceParseError:  CategoryCollaborator,

	ErrCodeDatabaseError:       CategoryPersistence,
	ErrCodeCacheError:          CategoryPersistence,
	ErrCodeMessageQueueError:   CategoryPersistence,
	ErrCodeStorageError:        CategoryPersistence,
	ErrCodeResultStoreFailed:   CategoryPersistence,
	ErrCodeResultArchiveFailed: CategoryPersistence,

	ErrCodeInternal:      CategoryInternal,
	ErrCodeSerialization: CategoryInternal,
}

// CategoryOf returns the category of code, or CategoryUnknown.
func CategoryOf(code ErrorCode) Category {
	if c, ok := codeCategory[code]; ok {
		return c
	}
	return CategoryUnknown
}

// ErrorCodeHTTPStatus maps codes to HTTP status codes.
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
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeMessageQueueError:  http.StatusInternalServerError,
	ErrCodeStorageError:       http.StatusInternalServerError,

	ErrCodeCompoundInvalidStructure: http.StatusBadRequest,
	ErrCodeCompoundNotFound:         http.StatusNotFound,
	ErrCodeCompoundRelationConflict: http.StatusConflict,
	ErrCodeCompoundInvalidProps:     http.StatusBadRequest,

	ErrCodeJobNotFound:          http.StatusNotFound,
	ErrCodeJobTransitionInvalid: http.StatusConflict,
	ErrCodeJobThresholdInvalid:  http.StatusBadRequest,
	ErrCodeJobPrimaryConflict:   http.StatusConflict,

	ErrCodeResultStoreFailed:   http.StatusInternalServerError,
	ErrCodeResultNotFound:      http.StatusNotFound,
	ErrCodeResultArchiveFailed: http.StatusInternalServerError,

	ErrCodeDataSourceUnavailable: http.StatusServiceUnavailable,
	ErrCodeDataSourceRateLimited: http.StatusTooManyRequests,
	ErrCodeDataSourceAuthFailed:  http.StatusBadGateway,
	ErrCodeDataSourceParseError:  http.StatusBadGateway,
}

// ErrorCodeMessage maps codes to default messages.
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
	ErrCodeMessageQueueError:  "message queue error",
	ErrCodeStorageError:       "object storage error",

	ErrCodeCompoundInvalidStructure: "invalid compound structure",
	ErrCodeCompoundNotFound:         "compound not found",
	ErrCodeCompoundRelationConflict: "compound already related to another job",
	ErrCodeCompoundInvalidProps:     "invalid compound properties",

	ErrCodeJobNotFound:          "job not found",
	ErrCodeJobTransitionInvalid: "job status transition rejected",
	ErrCodeJobThresholdInvalid:  "similarity threshold out of range",
	ErrCodeJobPrimaryConflict:   "job already has a primary compound",

	ErrCodeResultStoreFailed:   "failed to store analysis result",
	ErrCodeResultNotFound:      "analysis result not found",
	ErrCodeResultArchiveFailed: "failed to archive analysis result",

	ErrCodeDataSourceUnavailable: "data source unavailable",
	ErrCodeDataSourceRateLimited: "data source rate limited",
	ErrCodeDataSourceAuthFailed:  "data source authentication failed",
	ErrCodeDataSourceParseError:  "data source response could not be parsed",
}

// HTTPStatusForCode returns the HTTP status for code, defaulting to 500.
func HTTPStatusForCode(code ErrorCode) int {
	if s, ok := ErrorCodeHTTPStatus[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for code.
func DefaultMessageForCode(code ErrorCode) string {
	if m, ok := ErrorCodeMessage[code]; ok {
		return m
	}
	return "unknown error"
}

//Personal.AI order the ending
