package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/reallocation-service/internal/domain"
	"github.com/wms-platform/reallocation-service/internal/infrastructure/memory"
	"github.com/wms-platform/reallocation-service/internal/infrastructure/resilient"
	"github.com/wms-platform/reallocation-service/pkg/resilience"
)

var errWriteFailed = errors.New("write failed")

func TestRequestReallocation_CreatesPendingRequestWithoutTouchingConsumers(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "20")
	f.seed(t, woB, "10", "0")

	request := f.request(t, woA, woB, "50")

	assert.Equal(t, "req-1", request.ID)
	assert.Equal(t, domain.ReallocationStatusPending, request.Status)
	assert.Equal(t, []domain.AuditAction{domain.AuditActionRequested}, domain.Actions(request.AuditTrail))
	assert.True(t, f.allocated(t, woA).Equal(qty("100")))
	assert.Zero(t, f.consumers.updateCount(woA))
	assert.Equal(t, []string{"wms.reallocation.requested"}, f.publisher.published())

	stored, err := f.coordinator.GetReallocation(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, request.ID, stored.ID)
}

func TestRequestReallocation_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		cmd     RequestReallocationCommand
		wantErr error
	}{
		{
			name:    "more than the source holds",
			cmd:     RequestReallocationCommand{MaterialID: material, From: woA, To: woB, Quantity: qty("150"), RequestedBy: "p"},
			wantErr: domain.ErrInsufficientQuantity,
		},
		{
			name:    "more than the remaining quantity",
			cmd:     RequestReallocationCommand{MaterialID: material, From: woA, To: woB, Quantity: qty("81"), RequestedBy: "p"},
			wantErr: domain.ErrInsufficientQuantity,
		},
		{
			name:    "zero quantity",
			cmd:     RequestReallocationCommand{MaterialID: material, From: woA, To: woB, Quantity: qty("0"), RequestedBy: "p"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "same source and destination",
			cmd:     RequestReallocationCommand{MaterialID: material, From: woA, To: woA, Quantity: qty("1"), RequestedBy: "p"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "missing requester",
			cmd:     RequestReallocationCommand{MaterialID: material, From: woA, To: woB, Quantity: qty("1")},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "unknown source",
			cmd:     RequestReallocationCommand{MaterialID: material, From: woC, To: woB, Quantity: qty("1"), RequestedBy: "p"},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "source does not track the material",
			cmd:     RequestReallocationCommand{MaterialID: "M-2", From: woA, To: woB, Quantity: qty("1"), RequestedBy: "p"},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, woA, "100", "20")
			f.seed(t, woB, "10", "0")

			_, err := f.coordinator.RequestReallocation(context.Background(), tt.cmd)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			history, err := f.coordinator.GetReallocationHistory(context.Background(), GetReallocationHistoryQuery{})
			require.NoError(t, err)
			assert.Empty(t, history, "no request may be stored")
			assert.Empty(t, f.publisher.published())
		})
	}
}

func TestRequestReallocation_MaterialCatalog(t *testing.T) {
	f := newFixture(t, WithMaterialCatalog(memory.NewMaterialCatalog("M-other")))
	f.seed(t, woA, "100", "0")

	_, err := f.coordinator.RequestReallocation(context.Background(), RequestReallocationCommand{
		MaterialID: material, From: woA, To: woB, Quantity: qty("1"), RequestedBy: "p",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApproveReallocation_CommitsTransfer(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "20")
	f.seed(t, woB, "10", "0")
	request := f.request(t, woA, woB, "50")

	approved, err := f.approve(request.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.ReallocationStatusApproved, approved.Status)
	assert.Equal(t, "supervisor", approved.ApprovedBy)
	assert.NotNil(t, approved.CompletedAt)
	assert.True(t, f.allocated(t, woA).Equal(qty("50")))
	assert.True(t, f.allocated(t, woB).Equal(qty("60")))
	assert.Equal(t,
		[]domain.AuditAction{domain.AuditActionRequested, domain.AuditActionApproved, domain.AuditActionCompleted},
		domain.Actions(approved.AuditTrail))
	assert.Equal(t, []string{"wms.reallocation.requested", "wms.reallocation.completed"}, f.publisher.published())

	_, err = f.approve(request.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	stored, err := f.coordinator.GetReallocation(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReallocationStatusApproved, stored.Status)
	assert.Len(t, stored.AuditTrail, 3)
	assert.True(t, f.allocated(t, woA).Equal(qty("50")))
	assert.True(t, f.allocated(t, woB).Equal(qty("60")))
	assert.Equal(t, 1, f.consumers.updateCount(woA))
	assert.Equal(t, 1, f.consumers.updateCount(woB))
	assert.Len(t, f.publisher.published(), 2)
}

func TestApproveReallocation_ConservesTotal(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "12.75", "0.25")
	f.seed(t, domain.InventoryPool(), "3.5", "0")
	before := f.allocated(t, woA).Add(f.allocated(t, domain.InventoryPool()))

	request := f.request(t, woA, domain.InventoryPool(), "7.125")
	_, err := f.approve(request.ID)
	require.NoError(t, err)

	after := f.allocated(t, woA).Add(f.allocated(t, domain.InventoryPool()))
	assert.True(t, before.Equal(after), "before %s, after %s", before, after)
	assert.True(t, f.allocated(t, woA).Equal(qty("5.625")))
}

func TestApproveReallocation_UntrackedDestinationStartsAtZero(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "10", "0")
	f.consumers.Put(domain.NewConsumerRecord(woB))

	request := f.request(t, woA, woB, "4")
	_, err := f.approve(request.ID)
	require.NoError(t, err)

	assert.True(t, f.allocated(t, woB).Equal(qty("4")))
}

func TestApproveReallocation_Reject(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "0")
	f.seed(t, woB, "10", "0")
	request := f.request(t, woA, woB, "50")

	rejected, err := f.coordinator.ApproveReallocation(context.Background(), ApproveReallocationCommand{
		RequestID: request.ID,
		Approved:  false,
		Approver:  "supervisor",
		Notes:     "not this week",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ReallocationStatusRejected, rejected.Status)
	assert.Equal(t, "not this week", rejected.Notes)
	assert.Len(t, rejected.AuditTrail, 2)
	assert.True(t, f.allocated(t, woA).Equal(qty("100")))
	assert.Zero(t, f.consumers.updateCount(woA))
	assert.Zero(t, f.consumers.updateCount(woB))

	_, err = f.approve(request.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	stored, err := f.coordinator.GetReallocation(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReallocationStatusRejected, stored.Status)
	assert.Equal(t, "not this week", stored.Notes)
	assert.Len(t, stored.AuditTrail, 2)
	assert.True(t, f.allocated(t, woA).Equal(qty("100")))
	assert.True(t, f.allocated(t, woB).Equal(qty("10")))
	assert.Zero(t, f.consumers.updateCount(woA))
	assert.Zero(t, f.consumers.updateCount(woB))
	assert.Equal(t, []string{"wms.reallocation.requested", "wms.reallocation.rejected"}, f.publisher.published())
}

func TestApproveReallocation_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.coordinator.ApproveReallocation(context.Background(), ApproveReallocationCommand{Approver: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.coordinator.ApproveReallocation(context.Background(), ApproveReallocationCommand{RequestID: "req-1"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.approve("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApproveReallocation_DestinationDeletedRollsBack(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "20")
	f.seed(t, woB, "10", "0")
	request := f.request(t, woA, woB, "50")

	f.consumers.Delete(woB)

	reverted, err := f.approve(request.ID)
	require.Error(t, err)

	var failure *domain.CommitFailure
	require.ErrorAs(t, err, &failure)
	assert.True(t, failure.Compensated())
	assert.ErrorIs(t, err, domain.ErrCommitFailed)

	require.NotNil(t, reverted)
	assert.Equal(t, domain.ReallocationStatusPending, reverted.Status)
	assert.Equal(t, destinationNotFound, reverted.ErrorMessage)
	assert.Equal(t,
		[]domain.AuditAction{domain.AuditActionRequested, domain.AuditActionRollback},
		domain.Actions(reverted.AuditTrail))
	assert.True(t, f.allocated(t, woA).Equal(qty("100")))

	stored, err := f.coordinator.GetReallocation(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReallocationStatusPending, stored.Status)
	assert.Contains(t, f.publisher.published(), "wms.reallocation.rolled-back")
}

func TestApproveReallocation_RetryAfterRevertSucceeds(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "0")
	f.seed(t, woB, "10", "0")
	request := f.request(t, woA, woB, "30")

	f.consumers.Delete(woB)
	_, err := f.approve(request.ID)
	require.ErrorIs(t, err, domain.ErrCommitFailed)

	f.seed(t, woB, "10", "0")
	approved, err := f.approve(request.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.ReallocationStatusApproved, approved.Status)
	assert.Empty(t, approved.ErrorMessage)
	assert.True(t, f.allocated(t, woA).Equal(qty("70")))
	assert.True(t, f.allocated(t, woB).Equal(qty("40")))
	assert.Equal(t,
		[]domain.AuditAction{
			domain.AuditActionRequested,
			domain.AuditActionRollback,
			domain.AuditActionApproved,
			domain.AuditActionCompleted,
		},
		domain.Actions(approved.AuditTrail))
}

func TestApproveReallocation_DestinationWriteFailureCompensates(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "0")
	f.seed(t, woB, "10", "0")
	request := f.request(t, woA, woB, "25")

	f.consumers.beforeUpdate = func(record *domain.ConsumerRecord) error {
		if record.Consumer.Equal(woB) {
			return errWriteFailed
		}
		return nil
	}

	reverted, err := f.approve(request.ID)
	require.ErrorIs(t, err, errWriteFailed)
	require.ErrorIs(t, err, domain.ErrCommitFailed)

	assert.Equal(t, domain.ReallocationStatusPending, reverted.Status)
	assert.Contains(t, reverted.ErrorMessage, "destination update failed")
	assert.True(t, f.allocated(t, woA).Equal(qty("100")))
	assert.True(t, f.allocated(t, woB).Equal(qty("10")))
	assert.Equal(t, 2, f.consumers.updateCount(woA), "decrement and restore")
}

func TestApproveReallocation_CompensationKeepsConcurrentSourceChange(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "0")
	f.seed(t, woB, "10", "0")
	request := f.request(t, woA, woB, "30")

	f.consumers.beforeUpdate = func(record *domain.ConsumerRecord) error {
		if !record.Consumer.Equal(woB) {
			return nil
		}
		// someone else adds 5 to WO-A between the two saga steps
		current, err := f.consumers.GetByID(context.Background(), woA)
		if err != nil {
			return err
		}
		alloc, _ := current.Allocation(material)
		if err := current.SetAllocatedQuantity(material, alloc.AllocatedQuantity.Add(qty("5"))); err != nil {
			return err
		}
		f.consumers.Put(current)
		return errWriteFailed
	}

	_, err := f.approve(request.ID)
	var failure *domain.CommitFailure
	require.ErrorAs(t, err, &failure)
	assert.True(t, failure.Compensated())

	assert.True(t, f.allocated(t, woA).Equal(qty("105")), "got %s", f.allocated(t, woA))
}

func TestApproveReallocation_CompensationFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "0")
	f.seed(t, woB, "10", "0")
	request := f.request(t, woA, woB, "30")

	f.consumers.beforeUpdate = func(record *domain.ConsumerRecord) error {
		if record.Consumer.Equal(woB) {
			return errWriteFailed
		}
		if f.consumers.updateCount(woA) > 1 {
			return errors.New("source unreachable")
		}
		return nil
	}

	reverted, err := f.approve(request.ID)
	var failure *domain.CommitFailure
	require.ErrorAs(t, err, &failure)
	assert.False(t, failure.Compensated())
	assert.ErrorContains(t, err, "source unreachable")

	assert.Equal(t, domain.ReallocationStatusPending, reverted.Status)
	assert.Contains(t, reverted.ErrorMessage, "compensation failed")
	assert.True(t, f.allocated(t, woA).Equal(qty("70")), "source stays decremented")
}

func TestApproveReallocation_CompensationRetriesTransientError(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "0")
	f.seed(t, woB, "10", "0")
	request := f.request(t, woA, woB, "30")

	f.consumers.beforeUpdate = func(record *domain.ConsumerRecord) error {
		if record.Consumer.Equal(woB) {
			return errWriteFailed
		}
		if f.consumers.updateCount(woA) == 2 {
			return errors.New("connection reset by peer")
		}
		return nil
	}

	_, err := f.approve(request.ID)
	var failure *domain.CommitFailure
	require.ErrorAs(t, err, &failure)
	assert.True(t, failure.Compensated())

	assert.True(t, f.allocated(t, woA).Equal(qty("100")))
	assert.Equal(t, 3, f.consumers.updateCount(woA), "decrement, failed restore, restore")
}

func TestApproveReallocation_RequestSaveRetried(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "0")
	f.seed(t, woB, "10", "0")
	request := f.request(t, woA, woB, "30")

	failed := false
	f.requests.beforeUpdate = func(r *domain.ReallocationRequest) error {
		if r.Status == domain.ReallocationStatusApproved && !failed {
			failed = true
			return errors.New("connection pool cleared")
		}
		return nil
	}

	approved, err := f.approve(request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReallocationStatusApproved, approved.Status)
	assert.Equal(t, 2, f.requests.updateCount())

	stored, err := f.coordinator.GetReallocation(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReallocationStatusApproved, stored.Status)
	assert.True(t, f.allocated(t, woA).Equal(qty("70")))
	assert.True(t, f.allocated(t, woB).Equal(qty("40")))
	assert.Equal(t, 1, f.consumers.updateCount(woA))
	assert.Equal(t, 1, f.consumers.updateCount(woB))
}

func TestApproveReallocation_RequestSaveFailureCompensatesBothWrites(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "0")
	f.seed(t, woB, "10", "0")
	request := f.request(t, woA, woB, "30")

	f.requests.beforeUpdate = func(r *domain.ReallocationRequest) error {
		if r.Status == domain.ReallocationStatusApproved {
			return errors.New("request store unreachable")
		}
		return nil
	}

	reverted, err := f.approve(request.ID)
	var failure *domain.CommitFailure
	require.ErrorAs(t, err, &failure)
	assert.True(t, failure.Compensated())
	assert.ErrorContains(t, err, "failed to save completed request")

	require.NotNil(t, reverted)
	assert.Equal(t, domain.ReallocationStatusPending, reverted.Status)
	assert.Contains(t, reverted.ErrorMessage, "request store unreachable")
	assert.True(t, f.allocated(t, woA).Equal(qty("100")))
	assert.True(t, f.allocated(t, woB).Equal(qty("10")))

	stored, err := f.coordinator.GetReallocation(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReallocationStatusPending, stored.Status)
	assert.Equal(t,
		[]domain.AuditAction{domain.AuditActionRequested, domain.AuditActionRollback},
		domain.Actions(stored.AuditTrail))
	assert.Equal(t, []string{"wms.reallocation.requested", "wms.reallocation.rolled-back"}, f.publisher.published())

	// a later approval moves the quantity exactly once
	f.requests.beforeUpdate = nil
	approved, err := f.approve(request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReallocationStatusApproved, approved.Status)
	assert.True(t, f.allocated(t, woA).Equal(qty("70")))
	assert.True(t, f.allocated(t, woB).Equal(qty("40")))
}

func TestApproveReallocation_RequestSaveFailureUntracksNewDestination(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "10", "0")
	f.consumers.Put(domain.NewConsumerRecord(woB))
	request := f.request(t, woA, woB, "4")

	f.requests.beforeUpdate = func(r *domain.ReallocationRequest) error {
		if r.Status == domain.ReallocationStatusApproved {
			return errors.New("request store unreachable")
		}
		return nil
	}

	_, err := f.approve(request.ID)
	var failure *domain.CommitFailure
	require.ErrorAs(t, err, &failure)
	assert.True(t, failure.Compensated())

	record, err := f.consumers.GetByID(context.Background(), woB)
	require.NoError(t, err)
	_, tracked := record.Allocation(material)
	assert.False(t, tracked)
	assert.True(t, f.allocated(t, woA).Equal(qty("10")))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain error", errors.New("connection reset by peer"), true},
		{"open breaker", resilience.ErrCircuitOpen, true},
		{"version conflict", domain.ErrConcurrentModification, true},
		{"not found", domain.NewNotFoundError("consumer", "WO-A"), false},
		{"validation", domain.NewValidationError("bad"), false},
		{"negative allocation", domain.ErrNegativeAllocation, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}

func TestDefaultSagaRetryConfig_OutlastsBreakerTimeout(t *testing.T) {
	config := DefaultSagaRetryConfig()

	var total time.Duration
	delay := config.InitialDelay
	for i := 1; i < config.MaxAttempts; i++ {
		total += delay
		delay = time.Duration(float64(delay) * config.BackoffFactor)
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}
	assert.Greater(t, total, resilient.DefaultBreakerTimeout)
}

func TestApproveReallocation_SourceVersionConflictLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "0")
	f.seed(t, woB, "10", "0")
	request := f.request(t, woA, woB, "30")

	f.consumers.beforeUpdate = func(record *domain.ConsumerRecord) error {
		if record.Consumer.Equal(woA) {
			return domain.ErrConcurrentModification
		}
		return nil
	}

	_, err := f.approve(request.ID)
	require.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.NotErrorIs(t, err, domain.ErrCommitFailed)

	stored, err := f.coordinator.GetReallocation(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReallocationStatusPending, stored.Status)
	assert.Len(t, stored.AuditTrail, 1)
	assert.True(t, f.allocated(t, woA).Equal(qty("100")))
}

func TestApproveReallocation_RechecksSufficiencyAtCommit(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "0")
	f.seed(t, woB, "10", "0")
	request := f.request(t, woA, woB, "60")

	// the source consumed most of its allocation after the request
	f.seed(t, woA, "100", "70")

	_, err := f.approve(request.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientQuantity)
	assert.True(t, f.allocated(t, woA).Equal(qty("100")))
}

func TestApproveReallocation_SerializesCommitsPerMaterial(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "0")
	f.seed(t, woB, "0", "0")
	f.seed(t, woC, "0", "0")

	first := f.request(t, woA, woB, "60")
	second := f.request(t, woA, woC, "60")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.approve(id)
		}(i, id)
	}
	wg.Wait()

	var succeeded, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientQuantity):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)

	total := f.allocated(t, woA).Add(f.allocated(t, woB)).Add(f.allocated(t, woC))
	assert.True(t, total.Equal(qty("100")))
	assert.True(t, f.allocated(t, woA).Equal(qty("40")))
}

func TestApproveReallocation_ConcurrentDecisionsOnOneRequest(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "0")
	f.seed(t, woB, "0", "0")
	request := f.request(t, woA, woB, "10")

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.approve(request.ID)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	}
	assert.Equal(t, 1, succeeded)
	assert.True(t, f.allocated(t, woA).Equal(qty("90")))
}

func TestApproveReallocation_PublishFailureDoesNotFailCommit(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "0")
	f.seed(t, woB, "0", "0")
	request := f.request(t, woA, woB, "10")

	f.publisher.failErr = errors.New("outbox down")
	approved, err := f.approve(request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReallocationStatusApproved, approved.Status)
	assert.Empty(t, approved.GetDomainEvents())
}

func TestGetReallocationHistory(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woA, "100", "0")
	f.seed(t, woB, "100", "0")
	f.seed(t, woC, "0", "0")

	first := f.request(t, woA, woB, "10")
	f.request(t, woB, woC, "10")
	third := f.request(t, woA, woC, "10")
	_, err := f.approve(third.ID)
	require.NoError(t, err)

	ctx := context.Background()

	all, err := f.coordinator.GetReallocationHistory(ctx, GetReallocationHistoryQuery{MaterialID: material})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, first.ID, all[0].ID)

	involvingA, err := f.coordinator.GetReallocationHistory(ctx, GetReallocationHistoryQuery{ConsumerID: woA.Key()})
	require.NoError(t, err)
	assert.Len(t, involvingA, 2)

	approved, err := f.coordinator.GetReallocationHistory(ctx, GetReallocationHistoryQuery{Status: "approved"})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, third.ID, approved[0].ID)

	none, err := f.coordinator.GetReallocationHistory(ctx, GetReallocationHistoryQuery{MaterialID: "M-9"})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.coordinator.GetReallocationHistory(ctx, GetReallocationHistoryQuery{Status: "lost"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
