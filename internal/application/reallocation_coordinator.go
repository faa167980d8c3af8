package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/reallocation-service/internal/domain"
	"github.com/wms-platform/reallocation-service/pkg/logging"
	"github.com/wms-platform/reallocation-service/pkg/metrics"
	"github.com/wms-platform/reallocation-service/pkg/resilience"
	"github.com/wms-platform/reallocation-service/pkg/tracing"
)

const destinationNotFound = "destination not found"

// Saga write retry. The total backoff of about 6s outlasts the consumer store breaker timeout.
const (
	sagaRetryAttempts     = 6
	sagaRetryInitialDelay = 200 * time.Millisecond
	sagaRetryMaxDelay     = 5 * time.Second
)

// ReallocationCoordinator runs the request, decide, commit-or-compensate saga
type ReallocationCoordinator struct {
	consumers domain.ConsumerStore
	requests  domain.ReallocationStore
	publisher domain.EventPublisher
	catalog   domain.MaterialCatalog
	locker    MaterialLocker
	logger    *logging.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	newID     func() string
	retry     *resilience.RetryConfig
}

// CoordinatorOption configures optional collaborators of the coordinator
type CoordinatorOption func(*ReallocationCoordinator)

// WithMaterialCatalog enables the material existence check on new requests
func WithMaterialCatalog(catalog domain.MaterialCatalog) CoordinatorOption {
	return func(c *ReallocationCoordinator) { c.catalog = catalog }
}

// WithMaterialLocker replaces the in-process material locker
func WithMaterialLocker(locker MaterialLocker) CoordinatorOption {
	return func(c *ReallocationCoordinator) { c.locker = locker }
}

// WithIDGenerator replaces the uuid request id generator
func WithIDGenerator(newID func() string) CoordinatorOption {
	return func(c *ReallocationCoordinator) { c.newID = newID }
}

// WithSagaRetry sets how compensating writes and post-commit request saves are retried
func WithSagaRetry(config *resilience.RetryConfig) CoordinatorOption {
	return func(c *ReallocationCoordinator) { c.retry = config }
}

// DefaultSagaRetryConfig retries transient store errors, including an open breaker
func DefaultSagaRetryConfig() *resilience.RetryConfig {
	return &resilience.RetryConfig{
		MaxAttempts:     sagaRetryAttempts,
		InitialDelay:    sagaRetryInitialDelay,
		MaxDelay:        sagaRetryMaxDelay,
		BackoffFactor:   resilience.DefaultRetryBackoffFactor,
		RetryableErrors: isTransient,
	}
}

// isTransient reports whether a store error may clear up on retry. Domain answers and
// cancellation never do. Anything else, resilience.ErrCircuitOpen included, is retried.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNegativeAllocation),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// NewReallocationCoordinator creates a new ReallocationCoordinator
func NewReallocationCoordinator(
	consumers domain.ConsumerStore,
	requests domain.ReallocationStore,
	publisher domain.EventPublisher,
	logger *logging.Logger,
	m *metrics.Metrics,
	opts ...CoordinatorOption,
) *ReallocationCoordinator {
	c := &ReallocationCoordinator{
		consumers: consumers,
		requests:  requests,
		publisher: publisher,
		locker:    NewLocalMaterialLocker(),
		logger:    logger.WithComponent("reallocation-coordinator"),
		metrics:   m,
		tracer:    otel.Tracer("reallocation-service/application"),
		newID:     func() string { return uuid.New().String() },
		retry:     DefaultSagaRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestReallocation validates and opens a pending request. No consumer is mutated.
func (c *ReallocationCoordinator) RequestReallocation(ctx context.Context, cmd RequestReallocationCommand) (request *domain.ReallocationRequest, err error) {
	ctx, span := c.tracer.Start(ctx, "ReallocationCoordinator.RequestReallocation",
		trace.WithAttributes(tracing.ReallocationSpanAttributes("", cmd.MaterialID)...))
	defer func() { tracing.EndSpan(span, err) }()

	if err := domain.ValidateReallocation(cmd.MaterialID, cmd.From, cmd.To, cmd.Quantity); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cmd.RequestedBy) == "" {
		return nil, domain.NewValidationError("requestedBy is required")
	}

	if c.catalog != nil {
		exists, err := c.catalog.Exists(ctx, cmd.MaterialID)
		if err != nil {
			return nil, fmt.Errorf("failed to check material: %w", err)
		}
		if !exists {
			return nil, domain.NewNotFoundError("material", cmd.MaterialID)
		}
	}

	if _, err := c.movableAllocation(ctx, cmd.MaterialID, cmd.From, cmd.Quantity); err != nil {
		return nil, err
	}

	request, err = domain.NewReallocationRequest(
		c.newID(),
		cmd.MaterialID,
		cmd.From,
		cmd.To,
		cmd.Quantity,
		cmd.Reason,
		cmd.RequestedBy,
	)
	if err != nil {
		return nil, err
	}

	if err := c.requests.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to save reallocation request: %w", err)
	}

	c.publishEvents(ctx, request)
	c.metrics.RecordReallocationRequested()

	c.logger.WithContext(ctx).WithReallocation(request.ID, request.MaterialID).Info("Reallocation requested",
		"from", request.From.Key(),
		"to", request.To.Key(),
		"quantity", request.Quantity.String(),
		"requestedBy", request.RequestedBy,
	)

	return request, nil
}

// ApproveReallocation records the approver's decision. An approval runs the commit saga
// under the material lock. When the destination step fails the source write is compensated
// and the reverted, still pending request is returned together with a *domain.CommitFailure.
func (c *ReallocationCoordinator) ApproveReallocation(ctx context.Context, cmd ApproveReallocationCommand) (request *domain.ReallocationRequest, err error) {
	ctx, span := c.tracer.Start(ctx, "ReallocationCoordinator.ApproveReallocation",
		trace.WithAttributes(
			attribute.String("wms.reallocation_id", cmd.RequestID),
			attribute.Bool("wms.approved", cmd.Approved),
		))
	defer func() { tracing.EndSpan(span, err) }()

	if strings.TrimSpace(cmd.RequestID) == "" {
		return nil, domain.NewValidationError("requestId is required")
	}
	if strings.TrimSpace(cmd.Approver) == "" {
		return nil, domain.NewValidationError("approver is required")
	}

	request, err = c.loadPending(ctx, cmd.RequestID)
	if err != nil {
		return nil, err
	}

	materialID := request.MaterialID
	waitStart := time.Now()
	release, err := c.locker.LockMaterial(ctx, materialID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock material %s: %w", materialID, err)
	}
	defer func() {
		if releaseErr := release(context.WithoutCancel(ctx)); releaseErr != nil {
			c.logger.WithContext(ctx).WithError(releaseErr).Warn("Failed to release material lock",
				"materialId", materialID,
			)
		}
	}()
	c.metrics.ObserveMaterialLockWait(time.Since(waitStart))

	// another approver may have decided while this call waited for the lock
	request, err = c.loadPending(ctx, cmd.RequestID)
	if err != nil {
		return nil, err
	}

	if !cmd.Approved {
		return c.reject(ctx, request, cmd)
	}
	return c.commit(ctx, request, cmd)
}

func (c *ReallocationCoordinator) reject(ctx context.Context, request *domain.ReallocationRequest, cmd ApproveReallocationCommand) (*domain.ReallocationRequest, error) {
	if err := request.Reject(cmd.Approver, cmd.Notes); err != nil {
		return nil, err
	}
	if err := c.requests.Update(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to save rejected request: %w", err)
	}

	c.publishEvents(ctx, request)
	c.metrics.RecordReallocationDecision(string(domain.ReallocationStatusRejected))

	c.logger.WithContext(ctx).WithReallocation(request.ID, request.MaterialID).Info("Reallocation rejected",
		"rejectedBy", cmd.Approver,
	)
	return request, nil
}

// commit moves the quantity from source to destination. Failures before the source write
// leave everything untouched. Failures after it are compensated.
func (c *ReallocationCoordinator) commit(ctx context.Context, request *domain.ReallocationRequest, cmd ApproveReallocationCommand) (*domain.ReallocationRequest, error) {
	started := time.Now()
	log := c.logger.WithContext(ctx).WithReallocation(request.ID, request.MaterialID)
	materialID := request.MaterialID

	source, err := c.consumers.GetByID(ctx, request.From)
	if err != nil {
		return nil, fmt.Errorf("failed to load source consumer: %w", err)
	}
	alloc, err := checkMovable(source, materialID, request.Quantity)
	if err != nil {
		return nil, err
	}

	snapshot := source.Snapshot(materialID)

	decremented := source.Clone()
	if err := decremented.SetAllocatedQuantity(materialID, alloc.AllocatedQuantity.Sub(request.Quantity)); err != nil {
		return nil, err
	}
	stepStart := time.Now()
	updatedSource, err := c.consumers.Update(ctx, decremented)
	log.SagaStep(ctx, request.ID, "decrement-source", time.Since(stepStart), err)
	if err != nil {
		return nil, fmt.Errorf("failed to update source consumer: %w", err)
	}
	undo := []undoStep{{name: "source", written: updatedSource, snapshot: snapshot, delta: request.Quantity}}

	destination, err := c.consumers.GetByID(ctx, request.To)
	if err != nil {
		cause := err
		if errors.Is(err, domain.ErrNotFound) {
			cause = errors.New(destinationNotFound)
		}
		return c.compensate(ctx, request, cmd.Approver, undo, cause)
	}

	// an untracked destination starts from a zero baseline
	destAlloc, _ := destination.Allocation(materialID)
	destSnapshot := destination.Snapshot(materialID)
	incremented := destination.Clone()
	if err := incremented.SetAllocatedQuantity(materialID, destAlloc.AllocatedQuantity.Add(request.Quantity)); err != nil {
		return c.compensate(ctx, request, cmd.Approver, undo, err)
	}
	stepStart = time.Now()
	updatedDestination, err := c.consumers.Update(ctx, incremented)
	log.SagaStep(ctx, request.ID, "increment-destination", time.Since(stepStart), err)
	if err != nil {
		return c.compensate(ctx, request, cmd.Approver, undo,
			fmt.Errorf("destination update failed: %w", err))
	}
	// undo runs in reverse write order
	undo = append([]undoStep{{name: "destination", written: updatedDestination, snapshot: destSnapshot, delta: request.Quantity.Neg()}}, undo...)

	pending := request.Clone()
	if err := request.Complete(cmd.Approver, cmd.Notes); err != nil {
		return c.compensate(ctx, pending, cmd.Approver, undo, err)
	}
	stepStart = time.Now()
	err = c.persist(ctx, request)
	log.SagaStep(ctx, request.ID, "save-request", time.Since(stepStart), err)
	if err != nil {
		return c.compensate(ctx, pending, cmd.Approver, undo,
			fmt.Errorf("failed to save completed request: %w", err))
	}

	c.publishEvents(ctx, request)
	c.metrics.RecordReallocationDecision(string(domain.ReallocationStatusApproved))
	c.metrics.ObserveReallocationCommit(time.Since(started))

	log.Info("Reallocation completed",
		"from", request.From.Key(),
		"to", request.To.Key(),
		"quantity", request.Quantity.String(),
		"approvedBy", cmd.Approver,
	)
	log.Audit(ctx, "reallocation.completed", "reallocation", request.ID, cmd.Approver, map[string]any{
		"materialId": materialID,
		"quantity":   request.Quantity.String(),
	})

	return request, nil
}

// undoStep reverses one consumer write of the commit saga
type undoStep struct {
	name     string
	written  *domain.ConsumerRecord
	snapshot domain.AllocationSnapshot
	delta    decimal.Decimal
}

// compensate undoes the consumer writes in order and reverts the request to pending.
// It stops at the first write it cannot undo.
func (c *ReallocationCoordinator) compensate(
	ctx context.Context,
	request *domain.ReallocationRequest,
	performedBy string,
	steps []undoStep,
	cause error,
) (*domain.ReallocationRequest, error) {
	log := c.logger.WithContext(ctx).WithReallocation(request.ID, request.MaterialID)

	stepStart := time.Now()
	var (
		compErr error
		failed  undoStep
	)
	for _, step := range steps {
		if err := c.undo(ctx, request.MaterialID, step); err != nil {
			compErr, failed = err, step
			break
		}
	}
	log.SagaStep(ctx, request.ID, "compensate", time.Since(stepStart), compErr)

	failure := &domain.CommitFailure{RequestID: request.ID, Cause: cause, CompensationErr: compErr}

	message := cause.Error()
	if compErr != nil {
		message = fmt.Sprintf("%s; compensation failed: %v", message, compErr)
	}

	if err := request.RevertCommit(performedBy, message); err != nil {
		return nil, errors.Join(failure, err)
	}
	if err := c.persist(ctx, request); err != nil {
		return nil, errors.Join(failure, fmt.Errorf("failed to save reverted request: %w", err))
	}

	c.publishEvents(ctx, request)
	c.metrics.RecordReallocationRollback(compErr == nil)

	if compErr != nil {
		log.WithError(compErr).Error("Reallocation compensation failed, consumer allocation needs manual repair",
			"cause", cause.Error(),
			"consumer", failed.snapshot.Consumer.Key(),
			"expectedAllocated", failed.snapshot.Allocation.AllocatedQuantity.String(),
		)
	} else {
		log.Warn("Reallocation rolled back", "cause", cause.Error())
	}

	return request, failure
}

// undo writes a step's snapshot back. After a failed write the record is reloaded: if it
// still holds the value the saga wrote the snapshot is restored, otherwise only the delta is
// applied so concurrent external changes survive. A write that failed ambiguously may have
// landed, so a reload already showing its target value ends the step.
func (c *ReallocationCoordinator) undo(ctx context.Context, materialID string, step undoStep) error {
	// compensation must run even if the caller gave up
	ctx = context.WithoutCancel(ctx)
	current := step.written
	written, _ := step.written.Allocation(materialID)
	var attempted *decimal.Decimal

	return resilience.Retry(ctx, c.retry, func(ctx context.Context) error {
		if current == nil {
			fresh, err := c.consumers.GetByID(ctx, step.snapshot.Consumer)
			if err != nil {
				return fmt.Errorf("failed to reload %s consumer: %w", step.name, err)
			}
			if alloc, _ := fresh.Allocation(materialID); attempted != nil && alloc.AllocatedQuantity.Equal(*attempted) {
				return nil
			}
			current = fresh
		}

		restored := current.Clone()
		alloc, _ := restored.Allocation(materialID)
		target := step.snapshot.Allocation.AllocatedQuantity
		if alloc.AllocatedQuantity.Equal(written.AllocatedQuantity) {
			if err := restored.RestoreAllocation(step.snapshot); err != nil {
				return err
			}
		} else {
			target = alloc.AllocatedQuantity.Add(step.delta)
			if err := restored.SetAllocatedQuantity(materialID, target); err != nil {
				return err
			}
		}

		if _, err := c.consumers.Update(ctx, restored); err != nil {
			current, attempted = nil, nil
			if !errors.Is(err, domain.ErrConcurrentModification) {
				attempted = &target
			}
			return fmt.Errorf("failed to restore %s consumer: %w", step.name, err)
		}
		return nil
	})
}

// persist saves the request after consumer writes, which must not be abandoned with the caller
func (c *ReallocationCoordinator) persist(ctx context.Context, request *domain.ReallocationRequest) error {
	return resilience.Retry(context.WithoutCancel(ctx), c.retry, func(ctx context.Context) error {
		return c.requests.Update(ctx, request)
	})
}

// GetReallocation returns a single request
func (c *ReallocationCoordinator) GetReallocation(ctx context.Context, requestID string) (*domain.ReallocationRequest, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, domain.NewValidationError("requestId is required")
	}
	request, err := c.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reallocation request: %w", err)
	}
	if request == nil {
		return nil, domain.NewNotFoundError("reallocation request", requestID)
	}
	return request, nil
}

// GetReallocationHistory lists requests matching the query, oldest first
func (c *ReallocationCoordinator) GetReallocationHistory(ctx context.Context, query GetReallocationHistoryQuery) ([]*domain.ReallocationRequest, error) {
	filter := domain.ReallocationFilter{MaterialID: strings.TrimSpace(query.MaterialID)}

	if query.ConsumerID != "" {
		consumer, err := domain.ParseConsumerRef(query.ConsumerID)
		if err != nil {
			return nil, err
		}
		filter.Consumer = &consumer
	}
	if query.Status != "" {
		status := domain.ReallocationStatus(query.Status)
		if !status.IsValid() {
			return nil, domain.NewValidationError(fmt.Sprintf("unknown status %q", query.Status))
		}
		filter.Status = status
	}

	requests, err := c.requests.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list reallocation requests: %w", err)
	}

	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].RequestedAt.Before(requests[j].RequestedAt)
	})
	return requests, nil
}

// publishEvents hands pending domain events to the publisher. A publication failure never
// fails the saga step that produced the events. The write is not in the request's
// transaction, so a crash after the request save loses the events.
func (c *ReallocationCoordinator) publishEvents(ctx context.Context, request *domain.ReallocationRequest) {
	events := request.GetDomainEvents()
	if len(events) == 0 || c.publisher == nil {
		request.ClearDomainEvents()
		return
	}
	if err := c.publisher.PublishAll(ctx, events); err != nil {
		c.logger.WithContext(ctx).WithError(err).Error("Failed to publish reallocation events",
			"requestId", request.ID,
			"events", len(events),
		)
	}
	request.ClearDomainEvents()
}

func (c *ReallocationCoordinator) loadPending(ctx context.Context, requestID string) (*domain.ReallocationRequest, error) {
	request, err := c.GetReallocation(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.IsPending() {
		return nil, &domain.AlreadyProcessedError{RequestID: request.ID, Status: request.Status}
	}
	return request, nil
}

// movableAllocation checks that the consumer tracks the material and can give up quantity
func (c *ReallocationCoordinator) movableAllocation(
	ctx context.Context,
	materialID string,
	consumer domain.ConsumerRef,
	quantity decimal.Decimal,
) (domain.ConsumerAllocation, error) {
	record, err := c.consumers.GetByID(ctx, consumer)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ConsumerAllocation{}, err
		}
		return domain.ConsumerAllocation{}, fmt.Errorf("failed to load source consumer: %w", err)
	}

	return checkMovable(record, materialID, quantity)
}

// checkMovable judges sufficiency against the remaining quantity, at request and commit time alike
func checkMovable(record *domain.ConsumerRecord, materialID string, quantity decimal.Decimal) (domain.ConsumerAllocation, error) {
	alloc, ok := record.Allocation(materialID)
	if !ok {
		return domain.ConsumerAllocation{}, domain.NewNotFoundError("allocation", record.Consumer.Key()+"/"+materialID)
	}

	if available := alloc.AvailableToMove(); quantity.GreaterThan(available) {
		return domain.ConsumerAllocation{}, &domain.InsufficientQuantityError{
			MaterialID: materialID,
			Consumer:   record.Consumer,
			Requested:  quantity,
			Available:  available,
		}
	}
	return alloc, nil
}
