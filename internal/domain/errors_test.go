package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	assert.ErrorIs(t, NewValidationError("bad"), ErrValidation)
	assert.ErrorIs(t, NewNotFoundError("material", "M-1"), ErrNotFound)
	assert.ErrorIs(t, &InsufficientQuantityError{
		MaterialID: "M-1",
		Consumer:   WorkOrder("WO-1"),
		Requested:  decimal.NewFromInt(10),
		Available:  decimal.NewFromInt(5),
	}, ErrInsufficientQuantity)
	assert.ErrorIs(t, &AlreadyProcessedError{RequestID: "R", Status: ReallocationStatusApproved}, ErrAlreadyProcessed)
}

func TestCommitFailure(t *testing.T) {
	cause := errors.New("write failed")
	failure := &CommitFailure{RequestID: "R-1", Cause: cause}

	assert.ErrorIs(t, failure, ErrCommitFailed)
	assert.ErrorIs(t, failure, cause)
	assert.True(t, failure.Compensated())
	assert.Contains(t, failure.Error(), "write failed")

	restore := errors.New("restore failed")
	failure.CompensationErr = restore
	assert.False(t, failure.Compensated())
	assert.ErrorIs(t, failure, restore)
	assert.Contains(t, failure.Error(), "compensation failed")
}

func TestInsufficientQuantityError_Message(t *testing.T) {
	err := &InsufficientQuantityError{
		MaterialID: "M-1",
		Consumer:   InventoryPool(),
		Requested:  decimal.NewFromInt(10),
		Available:  decimal.NewFromInt(5),
	}
	assert.Equal(t, "insufficient quantity of M-1 on inventory-pool: requested 10, available 5", err.Error())
}
