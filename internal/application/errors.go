package application

import (
	"context"
	"errors"
	"strconv"

	"github.com/wms-platform/reallocation-service/internal/domain"
	apperrors "github.com/wms-platform/reallocation-service/pkg/errors"
	"github.com/wms-platform/reallocation-service/pkg/resilience"
)

// ToAppError maps engine errors onto API errors. Errors that are already AppErrors pass through.
func ToAppError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	var (
		validationErr   *domain.ValidationError
		notFoundErr     *domain.NotFoundError
		insufficientErr *domain.InsufficientQuantityError
		processedErr    *domain.AlreadyProcessedError
		commitErr       *domain.CommitFailure
	)

	switch {
	case errors.As(err, &commitErr):
		return apperrors.ErrCommitFailed(commitErr.Error()).
			WithDetail("requestId", commitErr.RequestID).
			WithDetail("compensated", strconv.FormatBool(commitErr.Compensated())).
			Wrap(err)
	case errors.As(err, &validationErr):
		return apperrors.ErrValidation(validationErr.Message).Wrap(err)
	case errors.As(err, &notFoundErr):
		return apperrors.ErrNotFoundWithID(notFoundErr.Resource, notFoundErr.ID).Wrap(err)
	case errors.As(err, &insufficientErr):
		return apperrors.ErrInsufficientQuantity(insufficientErr.Error()).
			WithDetail("requested", insufficientErr.Requested.String()).
			WithDetail("available", insufficientErr.Available.String()).
			Wrap(err)
	case errors.As(err, &processedErr):
		return apperrors.ErrAlreadyProcessed(processedErr.Error()).
			WithDetail("status", string(processedErr.Status)).
			Wrap(err)
	case errors.Is(err, domain.ErrConcurrentModification):
		return apperrors.ErrConflict("consumer record was modified concurrently, retry the operation").Wrap(err)
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.ErrServiceUnavailable("consumer store").Wrap(err)
	case errors.Is(err, ErrMaterialLockTimeout), errors.Is(err, context.DeadlineExceeded):
		return apperrors.ErrTimeout("reallocation").Wrap(err)
	default:
		return apperrors.ErrInternal("").Wrap(err)
	}
}

// ErrorCode returns the API error code for err
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	return ToAppError(err).Code
}
