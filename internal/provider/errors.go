package provider

import (
	"context"
	"errors"
	"fmt"

	dErrors "walletgate/pkg/domain-errors"
)

// ErrorCategory defines the normalized failure taxonomy
type ErrorCategory string

const (
	// ErrorTimeout indicates the provider took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the provider returned invalid/malformed data
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorProviderOutage indicates the provider is unavailable
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorNotFound indicates the requested record doesn't exist
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorRejected is a permanent business refusal; Fields names offending inputs.
	ErrorRejected ErrorCategory = "rejected"

	// ErrorInsufficientFunds is the provider's own balance check failing at initiation.
	ErrorInsufficientFunds ErrorCategory = "insufficient_funds"

	ErrorInternal ErrorCategory = "internal"
)

// ProviderError wraps provider failures with normalized categorization
type ProviderError struct {
	Category   ErrorCategory
	Operation  string
	Message    string
	Fields     []dErrors.FieldError
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.Operation, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.Operation, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

func NewProviderError(category ErrorCategory, operation, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	return &ProviderError{
		Category:   category,
		Operation:  operation,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// Rejected builds a permanent rejection carrying field-level reasons.
func Rejected(operation, message string, fields ...dErrors.FieldError) *ProviderError {
	e := NewProviderError(ErrorRejected, operation, message, nil)
	e.Fields = fields
	return e
}

func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	return ErrorInternal
}

// ToDomain translates a provider failure into the error surfaced to callers.
// Transient failures that survived retries become provider_unavailable; the
// provider's own rejection message is passed through verbatim.
func ToDomain(err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		if errors.Is(err, context.DeadlineExceeded) {
			return dErrors.Wrap(err, dErrors.CodeProviderUnavailable, "provider unavailable, try again")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "provider call failed")
	}
	switch pe.Category {
	case ErrorRejected:
		return &dErrors.Error{Code: dErrors.CodeProviderRejected, Message: pe.Message, Fields: pe.Fields, Err: err}
	case ErrorInsufficientFunds:
		return dErrors.Wrap(err, dErrors.CodeInsufficientFunds, "insufficient funds")
	case ErrorNotFound:
		return dErrors.Wrap(err, dErrors.CodeNotFound, pe.Message)
	case ErrorTimeout, ErrorProviderOutage, ErrorRateLimited:
		return dErrors.Wrap(err, dErrors.CodeProviderUnavailable, "provider unavailable, try again")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "provider call failed")
	}
}
