package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/reallocation-service/internal/domain"
	"github.com/wms-platform/reallocation-service/pkg/logging"
	"github.com/wms-platform/reallocation-service/pkg/tracing"
)

// AllocationQueryService reads current allocations of a material across consumers
type AllocationQueryService struct {
	consumers domain.ConsumerStore
	logger    *logging.Logger
	tracer    trace.Tracer
}

// NewAllocationQueryService creates a new AllocationQueryService
func NewAllocationQueryService(consumers domain.ConsumerStore, logger *logging.Logger) *AllocationQueryService {
	return &AllocationQueryService{
		consumers: consumers,
		logger:    logger.WithComponent("allocation-query"),
		tracer:    otel.Tracer("reallocation-service/application"),
	}
}

// GetConsumerAllocations lists every consumer tracking the material, ordered by consumer key
func (s *AllocationQueryService) GetConsumerAllocations(ctx context.Context, materialID string) (summaries []ConsumerAllocationSummary, err error) {
	if strings.TrimSpace(materialID) == "" {
		return nil, domain.NewValidationError("materialId is required")
	}

	ctx, span := s.tracer.Start(ctx, "AllocationQueryService.GetConsumerAllocations",
		trace.WithAttributes(tracing.ReallocationSpanAttributes("", materialID)...))
	defer func() { tracing.EndSpan(span, err) }()

	records, err := s.consumers.FindByMaterial(ctx, materialID)
	if err != nil {
		return nil, fmt.Errorf("failed to find consumers for material: %w", err)
	}

	summaries = make([]ConsumerAllocationSummary, 0, len(records))
	for _, record := range records {
		alloc, ok := record.Allocation(materialID)
		if !ok {
			continue
		}
		summaries = append(summaries, toAllocationSummary(record.Consumer, alloc))
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Consumer < summaries[j].Consumer
	})

	s.logger.WithContext(ctx).Debug("Consumer allocations loaded",
		"materialId", materialID,
		"consumers", len(summaries),
	)

	return summaries, nil
}
