package outbox

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository for local runs and tests
type MemoryRepository struct {
	mu     sync.Mutex
	events map[string]*OutboxEvent
}

// NewMemoryRepository creates an empty in-memory outbox
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{events: make(map[string]*OutboxEvent)}
}

// SaveAll stores copies of the events
func (r *MemoryRepository) SaveAll(_ context.Context, events []*OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range events {
		if _, exists := r.events[e.ID]; exists {
			return fmt.Errorf("outbox event already exists: %s", e.ID)
		}
	}
	for _, e := range events {
		stored := *e
		r.events[e.ID] = &stored
	}
	return nil
}

// FindUnpublished returns unpublished events with retries left, oldest first
func (r *MemoryRepository) FindUnpublished(_ context.Context, limit int) ([]*OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*OutboxEvent, 0)
	for _, e := range r.events {
		if e.ShouldRetry() {
			stored := *e
			result = append(result, &stored)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// MarkPublished marks an event as published
func (r *MemoryRepository) MarkPublished(_ context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[eventID]
	if !ok {
		return fmt.Errorf("event not found: %s", eventID)
	}
	now := time.Now().UTC()
	e.PublishedAt = &now
	return nil
}

// IncrementRetry increments the retry count and updates last error
func (r *MemoryRepository) IncrementRetry(_ context.Context, eventID string, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[eventID]
	if !ok {
		return fmt.Errorf("event not found: %s", eventID)
	}
	e.RetryCount++
	e.LastError = errorMsg
	return nil
}

// FindByAggregateID retrieves all events for a specific aggregate, oldest first
func (r *MemoryRepository) FindByAggregateID(_ context.Context, aggregateID string) ([]*OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*OutboxEvent, 0)
	for _, e := range r.events {
		if e.AggregateID == aggregateID {
			stored := *e
			result = append(result, &stored)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
