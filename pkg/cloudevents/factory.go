package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/reallocation-service/pkg/logging"
)

// EventFactory creates CloudEvents for one source
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new WMSCloudEvent. The correlation id is taken from the
// context when the HTTP middleware placed one there.
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data any,
) *WMSCloudEvent {
	event := &WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}

	if v, ok := ctx.Value(logging.CorrelationIDKey).(string); ok {
		event.CorrelationID = v
	}

	return event
}

// CreateReallocationEvent creates an event whose subject is the reallocation request
func (f *EventFactory) CreateReallocationEvent(
	ctx context.Context,
	eventType string,
	requestID string,
	materialID string,
	data any,
) *WMSCloudEvent {
	event := f.CreateEvent(ctx, eventType, "reallocation/"+requestID, data)
	event.MaterialID = materialID
	return event
}
