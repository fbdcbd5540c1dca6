package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeNotReady         = "NOT_READY"
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrEmptyMessage        = NewDomainError(ErrCodeValidation, "message cannot be empty")
	ErrInvalidIntent       = NewDomainError(ErrCodeValidation, "invalid intent")
	ErrInvalidFeedbackType = NewDomainError(ErrCodeValidation, "invalid feedback type")
	ErrDimensionMismatch   = NewDomainError(ErrCodeValidation, "embedding dimension mismatch")
)

// Not found errors
var (
	ErrItemNotFound     = NewDomainError(ErrCodeNotFound, "stored item not found")
	ErrPropertyNotFound = NewDomainError(ErrCodeNotFound, "property not found")
	ErrWalletNotFound   = NewDomainError(ErrCodeNotFound, "wallet not found")
	ErrNoMarketData     = NewDomainError(ErrCodeNotFound, "no market data for city")
)

// Readiness and timing errors
var (
	ErrEngineNotReady  = NewDomainError(ErrCodeNotReady, "reasoning engine is still initializing")
	ErrReplyTimeout    = NewDomainError(ErrCodeTimeout, "reply generation exceeded deadline")
	ErrLearnerStopped  = NewDomainError(ErrCodeInvalidOperation, "background learner is not running")
	ErrSnapshotFailure = NewDomainError(ErrCodeInternalError, "vector store snapshot failed")
)
