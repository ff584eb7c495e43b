package githubapi

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	statusErrorTemplateConstant             = "%s returned status %d"
	statusErrorWithMessageTemplateConstant  = "%s returned status %d: %s"
)

var (
	// ErrNotFound matches responses for accounts that do not exist or cannot be read (404 and non-rate-limit 403).
	ErrNotFound = errors.New("github resource not found or forbidden")
	// ErrRateLimited matches responses rejected by GitHub rate limiting.
	ErrRateLimited = errors.New("github rate limit exceeded")
	// ErrTokenNotConfigured indicates the client was constructed without a bearer token.
	ErrTokenNotConfigured = errors.New("github token not configured")
)

// OperationName describes a named GitHub REST workflow supported by the client.
type OperationName string

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// StatusError reports a non-success HTTP status returned by GitHub.
type StatusError struct {
	Operation   OperationName
	StatusCode  int
	Message     string
	RateLimited bool
}

// Error describes the unexpected status.
func (statusError StatusError) Error() string {
	if len(statusError.Message) == 0 {
		return fmt.Sprintf(statusErrorTemplateConstant, statusError.Operation, statusError.StatusCode)
	}
	return fmt.Sprintf(statusErrorWithMessageTemplateConstant, statusError.Operation, statusError.StatusCode, statusError.Message)
}

// Is matches ErrNotFound for 404 and non-rate-limit 403 responses and ErrRateLimited for throttled responses.
func (statusError StatusError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return statusError.RateLimited
	case ErrNotFound:
		if statusError.RateLimited {
			return false
		}
		return statusError.StatusCode == http.StatusNotFound || statusError.StatusCode == http.StatusForbidden
	default:
		return false
	}
}

// OperationError wraps execution issues for GitHub REST operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}
