package mongodb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wms-platform/reallocation-service/internal/domain"
)

// Quantities are stored as Decimal128 so that range queries and aggregations stay exact.

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to convert quantity %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse stored quantity %s: %w", v, err)
	}
	return d, nil
}

type allocationDocument struct {
	MaterialID        string               `bson:"materialId"`
	AllocatedQuantity primitive.Decimal128 `bson:"allocatedQuantity"`
	UsedQuantity      primitive.Decimal128 `bson:"usedQuantity"`
}

type consumerDocument struct {
	Key         string               `bson:"_id"`
	Kind        string               `bson:"kind"`
	ConsumerID  string               `bson:"consumerId,omitempty"`
	Allocations []allocationDocument `bson:"allocations"`
	Version     int64                `bson:"version"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func toAllocationDocuments(allocs []domain.ConsumerAllocation) ([]allocationDocument, error) {
	docs := make([]allocationDocument, 0, len(allocs))
	for _, a := range allocs {
		allocated, err := toDecimal128(a.AllocatedQuantity)
		if err != nil {
			return nil, err
		}
		used, err := toDecimal128(a.UsedQuantity)
		if err != nil {
			return nil, err
		}
		docs = append(docs, allocationDocument{
			MaterialID:        a.MaterialID,
			AllocatedQuantity: allocated,
			UsedQuantity:      used,
		})
	}
	return docs, nil
}

func (d *consumerDocument) toDomain() (*domain.ConsumerRecord, error) {
	record := &domain.ConsumerRecord{
		Consumer:    domain.ConsumerRef{Kind: domain.ConsumerKind(d.Kind), ID: d.ConsumerID},
		Allocations: make([]domain.ConsumerAllocation, 0, len(d.Allocations)),
		Version:     d.Version,
		UpdatedAt:   d.UpdatedAt,
	}
	for _, a := range d.Allocations {
		allocated, err := fromDecimal128(a.AllocatedQuantity)
		if err != nil {
			return nil, err
		}
		used, err := fromDecimal128(a.UsedQuantity)
		if err != nil {
			return nil, err
		}
		record.Allocations = append(record.Allocations, domain.ConsumerAllocation{
			MaterialID:        a.MaterialID,
			AllocatedQuantity: allocated,
			UsedQuantity:      used,
		})
	}
	return record, nil
}

type auditEventDocument struct {
	ID          string    `bson:"id"`
	Action      string    `bson:"action"`
	PerformedBy string    `bson:"performedBy"`
	PerformedAt time.Time `bson:"performedAt"`
	Notes       string    `bson:"notes,omitempty"`
}

type reallocationDocument struct {
	ID           string               `bson:"_id"`
	MaterialID   string               `bson:"materialId"`
	From         string               `bson:"from"`
	To           string               `bson:"to"`
	Quantity     primitive.Decimal128 `bson:"quantity"`
	Reason       string               `bson:"reason,omitempty"`
	RequestedBy  string               `bson:"requestedBy"`
	RequestedAt  time.Time            `bson:"requestedAt"`
	Status       string               `bson:"status"`
	ApprovedBy   string               `bson:"approvedBy,omitempty"`
	ApprovedAt   *time.Time           `bson:"approvedAt,omitempty"`
	RejectedBy   string               `bson:"rejectedBy,omitempty"`
	RejectedAt   *time.Time           `bson:"rejectedAt,omitempty"`
	CompletedAt  *time.Time           `bson:"completedAt,omitempty"`
	ErrorMessage string               `bson:"errorMessage,omitempty"`
	Notes        string               `bson:"notes,omitempty"`
	AuditTrail   []auditEventDocument `bson:"auditTrail"`
	UpdatedAt    time.Time            `bson:"updatedAt"`
}

func toReallocationDocument(r *domain.ReallocationRequest) (*reallocationDocument, error) {
	quantity, err := toDecimal128(r.Quantity)
	if err != nil {
		return nil, err
	}

	trail := make([]auditEventDocument, 0, len(r.AuditTrail))
	for _, e := range r.AuditTrail {
		trail = append(trail, auditEventDocument{
			ID:          e.ID,
			Action:      string(e.Action),
			PerformedBy: e.PerformedBy,
			PerformedAt: e.PerformedAt,
			Notes:       e.Notes,
		})
	}

	return &reallocationDocument{
		ID:           r.ID,
		MaterialID:   r.MaterialID,
		From:         r.From.Key(),
		To:           r.To.Key(),
		Quantity:     quantity,
		Reason:       r.Reason,
		RequestedBy:  r.RequestedBy,
		RequestedAt:  r.RequestedAt,
		Status:       string(r.Status),
		ApprovedBy:   r.ApprovedBy,
		ApprovedAt:   r.ApprovedAt,
		RejectedBy:   r.RejectedBy,
		RejectedAt:   r.RejectedAt,
		CompletedAt:  r.CompletedAt,
		ErrorMessage: r.ErrorMessage,
		Notes:        r.Notes,
		AuditTrail:   trail,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

func (d *reallocationDocument) toDomain() (*domain.ReallocationRequest, error) {
	from, err := domain.ParseConsumerRef(d.From)
	if err != nil {
		return nil, fmt.Errorf("stored request %s has invalid source: %w", d.ID, err)
	}
	to, err := domain.ParseConsumerRef(d.To)
	if err != nil {
		return nil, fmt.Errorf("stored request %s has invalid destination: %w", d.ID, err)
	}
	quantity, err := fromDecimal128(d.Quantity)
	if err != nil {
		return nil, err
	}

	trail := make([]domain.AuditEvent, 0, len(d.AuditTrail))
	for _, e := range d.AuditTrail {
		trail = append(trail, domain.AuditEvent{
			ID:          e.ID,
			Action:      domain.AuditAction(e.Action),
			PerformedBy: e.PerformedBy,
			PerformedAt: e.PerformedAt,
			Notes:       e.Notes,
		})
	}

	return &domain.ReallocationRequest{
		ID:           d.ID,
		MaterialID:   d.MaterialID,
		From:         from,
		To:           to,
		Quantity:     quantity,
		Reason:       d.Reason,
		RequestedBy:  d.RequestedBy,
		RequestedAt:  d.RequestedAt,
		Status:       domain.ReallocationStatus(d.Status),
		ApprovedBy:   d.ApprovedBy,
		ApprovedAt:   d.ApprovedAt,
		RejectedBy:   d.RejectedBy,
		RejectedAt:   d.RejectedAt,
		CompletedAt:  d.CompletedAt,
		ErrorMessage: d.ErrorMessage,
		Notes:        d.Notes,
		AuditTrail:   trail,
		UpdatedAt:    d.UpdatedAt,
		DomainEvents: make([]domain.DomainEvent, 0),
	}, nil
}
