package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/reallocation-service/internal/domain"
	"github.com/wms-platform/reallocation-service/internal/infrastructure/memory"
	"github.com/wms-platform/reallocation-service/pkg/logging"
	"github.com/wms-platform/reallocation-service/pkg/metrics"
)

const material = "M-1"

var (
	woA = domain.WorkOrder("WO-A")
	woB = domain.WorkOrder("WO-B")
	woC = domain.WorkOrder("WO-C")
)

func qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// hookedConsumerStore lets a test fail or interleave consumer writes
type hookedConsumerStore struct {
	*memory.ConsumerStore

	mu           sync.Mutex
	beforeUpdate func(record *domain.ConsumerRecord) error
	updates      map[string]int
}

func (s *hookedConsumerStore) Update(ctx context.Context, record *domain.ConsumerRecord) (*domain.ConsumerRecord, error) {
	s.mu.Lock()
	s.updates[record.Consumer.Key()]++
	hook := s.beforeUpdate
	s.mu.Unlock()

	if hook != nil {
		if err := hook(record); err != nil {
			return nil, err
		}
	}
	return s.ConsumerStore.Update(ctx, record)
}

func (s *hookedConsumerStore) updateCount(consumer domain.ConsumerRef) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates[consumer.Key()]
}

// hookedReallocationStore lets a test fail request saves
type hookedReallocationStore struct {
	*memory.ReallocationStore

	mu           sync.Mutex
	beforeUpdate func(request *domain.ReallocationRequest) error
	updates      int
}

func (s *hookedReallocationStore) Update(ctx context.Context, request *domain.ReallocationRequest) error {
	s.mu.Lock()
	s.updates++
	hook := s.beforeUpdate
	s.mu.Unlock()

	if hook != nil {
		if err := hook(request); err != nil {
			return err
		}
	}
	return s.ReallocationStore.Update(ctx, request)
}

func (s *hookedReallocationStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

// recordingPublisher collects published event types
type recordingPublisher struct {
	mu      sync.Mutex
	types   []string
	failErr error
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	return p.PublishAll(ctx, []domain.DomainEvent{event})
}

func (p *recordingPublisher) PublishAll(_ context.Context, events []domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failErr != nil {
		return p.failErr
	}
	for _, e := range events {
		p.types = append(p.types, e.EventType())
	}
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}

type fixture struct {
	consumers   *hookedConsumerStore
	requests    *hookedReallocationStore
	publisher   *recordingPublisher
	coordinator *ReallocationCoordinator
}

func newFixture(t *testing.T, opts ...CoordinatorOption) *fixture {
	t.Helper()

	f := &fixture{
		consumers: &hookedConsumerStore{
			ConsumerStore: memory.NewConsumerStore(),
			updates:       make(map[string]int),
		},
		requests:  &hookedReallocationStore{ReallocationStore: memory.NewReallocationStore()},
		publisher: &recordingPublisher{},
	}

	var seq int
	var seqMu sync.Mutex
	fast := DefaultSagaRetryConfig()
	fast.MaxAttempts = 3
	fast.InitialDelay = time.Millisecond
	fast.MaxDelay = 5 * time.Millisecond

	base := []CoordinatorOption{
		WithIDGenerator(func() string {
			seqMu.Lock()
			defer seqMu.Unlock()
			seq++
			return fmt.Sprintf("req-%d", seq)
		}),
		WithSagaRetry(fast),
	}

	f.coordinator = NewReallocationCoordinator(
		f.consumers,
		f.requests,
		f.publisher,
		logging.NewNop(),
		metrics.New(metrics.DefaultConfig("test")),
		append(base, opts...)...,
	)
	return f
}

// seed stores a consumer holding allocated/used of the test material
func (f *fixture) seed(t *testing.T, consumer domain.ConsumerRef, allocated, used string) {
	t.Helper()
	record := domain.NewConsumerRecord(consumer)
	require.NoError(t, record.SetAllocatedQuantity(material, qty(allocated)))
	record.Allocations[0].UsedQuantity = qty(used)
	f.consumers.Put(record)
}

func (f *fixture) allocated(t *testing.T, consumer domain.ConsumerRef) decimal.Decimal {
	t.Helper()
	record, err := f.consumers.GetByID(context.Background(), consumer)
	require.NoError(t, err)
	alloc, ok := record.Allocation(material)
	require.True(t, ok, "%s does not track %s", consumer, material)
	return alloc.AllocatedQuantity
}

func (f *fixture) request(t *testing.T, from, to domain.ConsumerRef, quantity string) *domain.ReallocationRequest {
	t.Helper()
	request, err := f.coordinator.RequestReallocation(context.Background(), RequestReallocationCommand{
		MaterialID:  material,
		From:        from,
		To:          to,
		Quantity:    qty(quantity),
		Reason:      "rebalance",
		RequestedBy: "planner",
	})
	require.NoError(t, err)
	return request
}

func (f *fixture) approve(requestID string) (*domain.ReallocationRequest, error) {
	return f.coordinator.ApproveReallocation(context.Background(), ApproveReallocationCommand{
		RequestID: requestID,
		Approved:  true,
		Approver:  "supervisor",
	})
}
