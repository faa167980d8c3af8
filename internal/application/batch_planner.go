package application

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/reallocation-service/internal/domain"
	"github.com/wms-platform/reallocation-service/pkg/logging"
	"github.com/wms-platform/reallocation-service/pkg/metrics"
	"github.com/wms-platform/reallocation-service/pkg/tracing"
)

// reallocator is the part of the coordinator the planner drives
type reallocator interface {
	RequestReallocation(ctx context.Context, cmd RequestReallocationCommand) (*domain.ReallocationRequest, error)
	ApproveReallocation(ctx context.Context, cmd ApproveReallocationCommand) (*domain.ReallocationRequest, error)
}

// BatchReallocationPlanner applies an ordered list of actions on one material, one at a time
type BatchReallocationPlanner struct {
	coordinator reallocator
	logger      *logging.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

// NewBatchReallocationPlanner creates a new BatchReallocationPlanner
func NewBatchReallocationPlanner(coordinator reallocator, logger *logging.Logger, m *metrics.Metrics) *BatchReallocationPlanner {
	return &BatchReallocationPlanner{
		coordinator: coordinator,
		logger:      logger.WithComponent("batch-planner"),
		metrics:     m,
		tracer:      otel.Tracer("reallocation-service/application"),
	}
}

// ApplyReallocations runs each action as a request followed by an immediate approval, in the
// given order. It stops at the first failing action. Actions applied before the failure stay
// committed; the remaining ones are reported as not attempted.
func (p *BatchReallocationPlanner) ApplyReallocations(ctx context.Context, cmd ApplyReallocationsCommand) (result *BatchResult, err error) {
	if strings.TrimSpace(cmd.MaterialID) == "" {
		return nil, domain.NewValidationError("materialId is required")
	}
	if len(cmd.Actions) == 0 {
		return nil, domain.NewValidationError("at least one action is required")
	}
	if strings.TrimSpace(cmd.PerformedBy) == "" {
		return nil, domain.NewValidationError("performedBy is required")
	}

	ctx, span := p.tracer.Start(ctx, "BatchReallocationPlanner.ApplyReallocations",
		trace.WithAttributes(tracing.ReallocationSpanAttributes("", cmd.MaterialID)...),
		trace.WithAttributes(attribute.Int("wms.batch_size", len(cmd.Actions))))
	defer func() { tracing.EndSpan(span, err) }()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"materialId": cmd.MaterialID,
		"actions":    len(cmd.Actions),
	})

	result = &BatchResult{
		MaterialID: cmd.MaterialID,
		Actions:    make([]BatchActionResult, len(cmd.Actions)),
	}
	for i, action := range cmd.Actions {
		from, to := resolveEnds(action)
		result.Actions[i] = BatchActionResult{
			Index:    i,
			From:     from.Key(),
			To:       to.Key(),
			Quantity: action.Quantity,
			Priority: action.Priority,
			Status:   BatchActionNotAttempted,
		}
	}

	for i, action := range cmd.Actions {
		var requestID string
		actionErr := ctx.Err()
		if actionErr == nil {
			requestID, actionErr = p.apply(ctx, cmd, i, action)
		}
		entry := &result.Actions[i]
		entry.RequestID = requestID

		if actionErr != nil {
			entry.Status = BatchActionFailed
			entry.Error = actionErr.Error()
			entry.ErrorCode = ErrorCode(actionErr)
			p.metrics.RecordBatchAction(BatchActionFailed)
			log.WithError(actionErr).Warn("Batch stopped at failing action",
				"index", i,
				"requestId", requestID,
			)
			break
		}

		entry.Status = BatchActionSucceeded
		p.metrics.RecordBatchAction(BatchActionSucceeded)
	}

	for _, entry := range result.Actions {
		switch entry.Status {
		case BatchActionSucceeded:
			result.Succeeded++
		case BatchActionFailed:
			result.Failed++
		default:
			result.NotAttempted++
			p.metrics.RecordBatchAction(BatchActionNotAttempted)
		}
	}
	result.Completed = result.Succeeded == len(result.Actions)

	log.Info("Batch reallocation finished",
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"notAttempted", result.NotAttempted,
	)

	return result, nil
}

// apply runs one action and returns the id of the request it created, if any
func (p *BatchReallocationPlanner) apply(ctx context.Context, cmd ApplyReallocationsCommand, index int, action BatchAction) (string, error) {
	from, to := resolveEnds(action)

	request, err := p.coordinator.RequestReallocation(ctx, RequestReallocationCommand{
		MaterialID:  cmd.MaterialID,
		From:        from,
		To:          to,
		Quantity:    action.Quantity,
		Reason:      action.Reason,
		RequestedBy: cmd.PerformedBy,
	})
	if err != nil {
		return "", err
	}

	notes := fmt.Sprintf("batch action %d of %d", index+1, len(cmd.Actions))
	if action.Priority != "" {
		notes += fmt.Sprintf(" (priority %s)", action.Priority)
	}

	if _, err := p.coordinator.ApproveReallocation(ctx, ApproveReallocationCommand{
		RequestID: request.ID,
		Approved:  true,
		Approver:  cmd.PerformedBy,
		Notes:     notes,
	}); err != nil {
		return request.ID, err
	}
	return request.ID, nil
}

func resolveEnds(action BatchAction) (domain.ConsumerRef, domain.ConsumerRef) {
	from, to := domain.InventoryPool(), domain.InventoryPool()
	if action.From != nil && !action.From.IsZero() {
		from = *action.From
	}
	if action.To != nil && !action.To.IsZero() {
		to = *action.To
	}
	return from, to
}
