package application

import "github.com/wms-platform/reallocation-service/internal/domain"

// ToReallocationDTO converts a domain ReallocationRequest to ReallocationDTO
func ToReallocationDTO(r *domain.ReallocationRequest) *ReallocationDTO {
	if r == nil {
		return nil
	}

	trail := make([]AuditEventDTO, 0, len(r.AuditTrail))
	for _, e := range r.AuditTrail {
		trail = append(trail, AuditEventDTO{
			ID:          e.ID,
			Action:      string(e.Action),
			PerformedBy: e.PerformedBy,
			PerformedAt: e.PerformedAt,
			Notes:       e.Notes,
		})
	}

	return &ReallocationDTO{
		ID:           r.ID,
		MaterialID:   r.MaterialID,
		From:         r.From.Key(),
		To:           r.To.Key(),
		Quantity:     r.Quantity,
		Reason:       r.Reason,
		Status:       string(r.Status),
		RequestedBy:  r.RequestedBy,
		RequestedAt:  r.RequestedAt,
		ApprovedBy:   r.ApprovedBy,
		ApprovedAt:   r.ApprovedAt,
		RejectedBy:   r.RejectedBy,
		RejectedAt:   r.RejectedAt,
		CompletedAt:  r.CompletedAt,
		ErrorMessage: r.ErrorMessage,
		Notes:        r.Notes,
		AuditTrail:   trail,
		UpdatedAt:    r.UpdatedAt,
	}
}

// ToReallocationDTOs converts a list of requests
func ToReallocationDTOs(requests []*domain.ReallocationRequest) []ReallocationDTO {
	dtos := make([]ReallocationDTO, 0, len(requests))
	for _, r := range requests {
		dtos = append(dtos, *ToReallocationDTO(r))
	}
	return dtos
}

// toAllocationSummary builds the query view of one consumer's allocation
func toAllocationSummary(consumer domain.ConsumerRef, alloc domain.ConsumerAllocation) ConsumerAllocationSummary {
	remaining := alloc.RemainingQuantity()
	return ConsumerAllocationSummary{
		Consumer:          consumer.Key(),
		ConsumerKind:      string(consumer.Kind),
		ConsumerID:        consumer.ID,
		MaterialID:        alloc.MaterialID,
		AllocatedQuantity: alloc.AllocatedQuantity,
		UsedQuantity:      alloc.UsedQuantity,
		RemainingQuantity: remaining,
		CanReduce:         remaining.IsPositive(),
		CanIncrease:       true,
	}
}
