// Package errors provides structured application errors that map cleanly onto
// HTTP responses.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorCode is a stable, machine readable error identifier returned to clients.
type ErrorCode string

const (
	// Client errors (4xx)
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodeForbidden        ErrorCode = "FORBIDDEN"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeTooManyRequests  ErrorCode = "TOO_MANY_REQUESTS"

	// Server errors (5xx)
	CodeInternal             ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavailable   ErrorCode = "SERVICE_UNAVAILABLE"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Business errors
	CodeQuotaExceeded     ErrorCode = "QUOTA_EXCEEDED"
	CodePremiumRequired   ErrorCode = "PREMIUM_REQUIRED"
	CodeAdminRequired     ErrorCode = "ADMIN_REQUIRED"
	CodeRecipeNotFound    ErrorCode = "RECIPE_NOT_FOUND"
	CodeUserNotFound      ErrorCode = "USER_NOT_FOUND"
	CodeParseFailed       ErrorCode = "PARSE_FAILED"
	CodeInvalidSignature  ErrorCode = "INVALID_SIGNATURE"
	CodeSubscriptionState ErrorCode = "SUBSCRIPTION_STATE"
	CodeNotConfigured     ErrorCode = "NOT_CONFIGURED"
)

// AppError is an error carrying a code, a client facing message and optional
// details. The Cause is never serialized.
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP status for the error code.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeValidationFailed, CodeInvalidSignature, CodeSubscriptionState:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodePremiumRequired, CodeAdminRequired:
		return http.StatusForbidden
	case CodeNotFound, CodeRecipeNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTooManyRequests, CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable, CodeNotConfigured:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithMetadata attaches a key/value pair to the error.
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause records the underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails replaces the details string.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates an application error and captures the caller stack.
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StackTrace: getStackTrace(),
	}
}

func NewBadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, message, "")
}

func NewValidationError(details string) *AppError {
	return NewAppError(CodeValidationFailed, "Validation failed", details)
}

func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "Authentication required"
	}
	return NewAppError(CodeUnauthorized, message, "")
}

func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "Access forbidden"
	}
	return NewAppError(CodeForbidden, message, "")
}

// NewNotFoundError builds "<Resource> not found". An empty resource yields a
// generic message.
func NewNotFoundError(resource string) *AppError {
	message := "Resource not found"
	if resource != "" {
		message = fmt.Sprintf("%s not found", strings.ToUpper(resource[:1])+resource[1:])
	}
	return NewAppError(CodeNotFound, message, "")
}

func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeInternal, message, "")
}

// NewDatabaseError wraps a persistence failure. The message is what clients see.
func NewDatabaseError(operation string, cause error) *AppError {
	return NewAppError(
		CodeDatabaseError,
		"Database error",
		fmt.Sprintf("Failed to %s", operation),
	).WithCause(cause)
}

func NewExternalServiceError(service string, cause error) *AppError {
	return NewAppError(
		CodeExternalServiceError,
		"External service error",
		fmt.Sprintf("Failed to communicate with %s", service),
	).WithCause(cause).WithMetadata("service", service)
}

// Business domain errors

// NewQuotaExceededError reports that a free-tier daily limit has been reached.
func NewQuotaExceededError(message string, limit int) *AppError {
	return NewAppError(CodeQuotaExceeded, message, "Upgrade to premium for unlimited access").
		WithMetadata("limit", limit)
}

func NewPremiumRequiredError(feature string) *AppError {
	return NewAppError(
		CodePremiumRequired,
		"Premium subscription required",
		fmt.Sprintf("%s is available to premium subscribers", feature),
	).WithMetadata("feature", feature)
}

func NewAdminRequiredError() *AppError {
	return NewAppError(CodeAdminRequired, "Admin access required", "")
}

func NewRecipeNotFoundError(recipeID string) *AppError {
	return NewAppError(CodeRecipeNotFound, "Recipe not found", "").
		WithMetadata("recipe_id", recipeID)
}

func NewUserNotFoundError(userID string) *AppError {
	return NewAppError(CodeUserNotFound, "User not found", "").
		WithMetadata("user_id", userID)
}

// NewParseFailedError is returned when a recipe could not be extracted. The
// cause text is surfaced as details so the client can show it.
func NewParseFailedError(cause error) *AppError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return NewAppError(CodeParseFailed, "Failed to parse recipe", details).WithCause(cause)
}

func NewInvalidSignatureError(cause error) *AppError {
	return NewAppError(CodeInvalidSignature, "Invalid signature", "").WithCause(cause)
}

func NewSubscriptionStateError(message string) *AppError {
	return NewAppError(CodeSubscriptionState, message, "")
}

func NewNotConfiguredError(component string) *AppError {
	return NewAppError(CodeNotConfigured, fmt.Sprintf("%s is not configured", component), "")
}

// Wrap converts err into an AppError, keeping existing AppErrors intact.
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == code
	}
	return false
}

// GetCode returns the code carried by err or CodeInternal.
func GetCode(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

func getStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "pkg/errors") {
			builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return builder.String()
}

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// FieldErrors is a list of field failures.
type FieldErrors []FieldError

func (v FieldErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(v))
	for _, fe := range v {
		messages = append(messages, fe.Message)
	}
	return strings.Join(messages, "; ")
}

// NewFieldErrors builds a validation AppError from field failures.
func NewFieldErrors(fields []FieldError) *AppError {
	fe := FieldErrors(fields)
	return NewAppError(CodeValidationFailed, "Validation failed", fe.Error()).
		WithMetadata("fields", fe)
}

// ErrorResponse is the JSON body written for failed requests. Error holds the
// human readable message so existing clients can keep reading `error`.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Code      ErrorCode              `json:"code"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// ToErrorResponse renders err for the client.
func ToErrorResponse(err *AppError, requestID string) ErrorResponse {
	return ErrorResponse{
		Error:     err.Message,
		Code:      err.Code,
		Details:   err.Details,
		Metadata:  err.Metadata,
		RequestID: requestID,
	}
}
