package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/reallocation-service/pkg/cloudevents"
	"github.com/wms-platform/reallocation-service/pkg/logging"
	"github.com/wms-platform/reallocation-service/pkg/metrics"
)

type fakeSink struct {
	mu        sync.Mutex
	published []*cloudevents.WMSCloudEvent
	failTypes map[string]bool
}

func (s *fakeSink) PublishEvent(_ context.Context, _ string, event *cloudevents.WMSCloudEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTypes[event.Type] {
		return errors.New("broker unavailable")
	}
	s.published = append(s.published, event)
	return nil
}

func saveEvent(t *testing.T, repo Repository, aggregateID, eventType string, createdAt time.Time) *OutboxEvent {
	t.Helper()
	factory := cloudevents.NewEventFactory(cloudevents.SourceReallocation)
	ce := factory.CreateReallocationEvent(context.Background(), eventType, aggregateID, "M-1", map[string]string{"requestId": aggregateID})

	event, err := NewOutboxEventFromCloudEvent(aggregateID, "ReallocationRequest", "wms.reallocation.events", ce)
	require.NoError(t, err)
	event.CreatedAt = createdAt
	require.NoError(t, repo.SaveAll(context.Background(), []*OutboxEvent{event}))
	return event
}

func TestPublisher_ProcessOnce(t *testing.T) {
	repo := NewMemoryRepository()
	sink := &fakeSink{failTypes: map[string]bool{cloudevents.ReallocationRolledBack: true}}
	p := NewPublisher(repo, sink, logging.NewNop(), metrics.New(metrics.DefaultConfig("test")), nil)

	base := time.Now().UTC()
	saveEvent(t, repo, "REQ-1", cloudevents.ReallocationRequested, base)
	failing := saveEvent(t, repo, "REQ-1", cloudevents.ReallocationRolledBack, base.Add(time.Second))
	saveEvent(t, repo, "REQ-2", cloudevents.ReallocationCompleted, base.Add(2*time.Second))

	published := p.ProcessOnce(context.Background())
	assert.Equal(t, 2, published)
	require.Len(t, sink.published, 2)
	assert.Equal(t, cloudevents.ReallocationRequested, sink.published[0].Type)
	assert.Equal(t, "M-1", sink.published[0].MaterialID)

	pending, err := repo.FindUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, failing.ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].RetryCount)
	assert.Contains(t, pending[0].LastError, "broker unavailable")

	assert.Equal(t, map[string]int{"published": 2, "failed": 1}, p.Stats())
}

func TestPublisher_StopsRetryingAfterMaxRetries(t *testing.T) {
	repo := NewMemoryRepository()
	sink := &fakeSink{failTypes: map[string]bool{cloudevents.ReallocationRejected: true}}
	p := NewPublisher(repo, sink, logging.NewNop(), nil, nil)

	event := saveEvent(t, repo, "REQ-3", cloudevents.ReallocationRejected, time.Now())
	for i := 0; i < DefaultMaxRetries; i++ {
		p.ProcessOnce(context.Background())
	}

	pending, err := repo.FindUnpublished(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := repo.FindByAggregateID(context.Background(), "REQ-3")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, event.ID, all[0].ID)
	assert.False(t, all[0].IsPublished())
}

func TestPublisher_StartStop(t *testing.T) {
	repo := NewMemoryRepository()
	sink := &fakeSink{}
	p := NewPublisher(repo, sink, logging.NewNop(), nil, &PublisherConfig{PollInterval: 10 * time.Millisecond, BatchSize: 10})

	saveEvent(t, repo, "REQ-4", cloudevents.ReallocationCompleted, time.Now())

	require.NoError(t, p.Start(context.Background()))
	assert.Error(t, p.Start(context.Background()))
	assert.True(t, p.IsRunning())

	assert.Eventually(t, func() bool {
		return p.Stats()["published"] == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, p.Stop())
	assert.False(t, p.IsRunning())
}
