// Package events turns domain events into CloudEvents stored in the outbox.
package events

import (
	"context"
	"fmt"

	"github.com/wms-platform/reallocation-service/internal/domain"
	"github.com/wms-platform/reallocation-service/pkg/cloudevents"
	"github.com/wms-platform/reallocation-service/pkg/kafka"
	"github.com/wms-platform/reallocation-service/pkg/outbox"
)

const aggregateType = "ReallocationRequest"

// OutboxEventPublisher writes domain events to the outbox, from where the outbox
// publisher relays them to Kafka
type OutboxEventPublisher struct {
	repo    outbox.Repository
	factory *cloudevents.EventFactory
	topic   string
}

// NewOutboxEventPublisher creates a new OutboxEventPublisher
func NewOutboxEventPublisher(repo outbox.Repository, factory *cloudevents.EventFactory) *OutboxEventPublisher {
	return &OutboxEventPublisher{
		repo:    repo,
		factory: factory,
		topic:   kafka.Topics.ReallocationEvents,
	}
}

// Publish stores a single event
func (p *OutboxEventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	return p.PublishAll(ctx, []domain.DomainEvent{event})
}

// PublishAll stores the events in one outbox write
func (p *OutboxEventPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(events))
	for _, event := range events {
		cloudEvent, err := p.toCloudEvent(ctx, event)
		if err != nil {
			return err
		}

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(event.AggregateID(), aggregateType, p.topic, cloudEvent)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if err := p.repo.SaveAll(ctx, outboxEvents); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}

func (p *OutboxEventPublisher) toCloudEvent(ctx context.Context, event domain.DomainEvent) (*cloudevents.WMSCloudEvent, error) {
	var materialID string
	switch e := event.(type) {
	case *domain.ReallocationRequestedEvent:
		materialID = e.MaterialID
	case *domain.ReallocationRejectedEvent:
		materialID = e.MaterialID
	case *domain.ReallocationCompletedEvent:
		materialID = e.MaterialID
	case *domain.ReallocationRolledBackEvent:
		materialID = e.MaterialID
	default:
		return nil, fmt.Errorf("unsupported domain event %T", event)
	}

	cloudEvent := p.factory.CreateReallocationEvent(ctx, event.EventType(), event.AggregateID(), materialID, event)
	cloudEvent.Time = event.OccurredAt()
	return cloudEvent, nil
}
