package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Typed errors below match these with errors.Is.
var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrInsufficientQuantity   = errors.New("insufficient quantity")
	ErrAlreadyProcessed       = errors.New("reallocation request already processed")
	ErrCommitFailed           = errors.New("reallocation commit failed")
	ErrConcurrentModification = errors.New("consumer record was modified concurrently")

	// ErrNegativeAllocation is returned when an allocated quantity would drop below zero
	ErrNegativeAllocation = errors.New("allocated quantity cannot be negative")
)

// ValidationError reports malformed input
type ValidationError struct {
	Message string
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string { return "validation failed: " + e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a missing material, consumer, allocation or request
type NotFoundError struct {
	Resource string
	ID       string
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InsufficientQuantityError reports that the source cannot give up the requested quantity
type InsufficientQuantityError struct {
	MaterialID string
	Consumer   ConsumerRef
	Requested  decimal.Decimal
	Available  decimal.Decimal
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity of %s on %s: requested %s, available %s",
		e.MaterialID, e.Consumer, e.Requested, e.Available)
}

func (e *InsufficientQuantityError) Is(target error) bool { return target == ErrInsufficientQuantity }

// AlreadyProcessedError reports an approval on a request that is no longer pending
type AlreadyProcessedError struct {
	RequestID string
	Status    ReallocationStatus
}

func (e *AlreadyProcessedError) Error() string {
	return fmt.Sprintf("reallocation request %s already processed (status %s)", e.RequestID, e.Status)
}

func (e *AlreadyProcessedError) Is(target error) bool { return target == ErrAlreadyProcessed }

// CommitFailure reports a commit attempt that failed after the source write succeeded.
// The source has been compensated unless CompensationErr is set.
type CommitFailure struct {
	RequestID       string
	Cause           error
	CompensationErr error
}

func (e *CommitFailure) Error() string {
	if e.CompensationErr != nil {
		return fmt.Sprintf("reallocation %s commit failed: %v (compensation failed: %v)",
			e.RequestID, e.Cause, e.CompensationErr)
	}
	return fmt.Sprintf("reallocation %s commit failed: %v", e.RequestID, e.Cause)
}

func (e *CommitFailure) Is(target error) bool { return target == ErrCommitFailed }

func (e *CommitFailure) Unwrap() []error {
	errs := []error{e.Cause}
	if e.CompensationErr != nil {
		errs = append(errs, e.CompensationErr)
	}
	return errs
}

// Compensated reports whether the source write was successfully undone
func (e *CommitFailure) Compensated() bool {
	return e.CompensationErr == nil
}
