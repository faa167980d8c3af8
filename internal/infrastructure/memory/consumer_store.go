// Package memory holds in-process adapters for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wms-platform/reallocation-service/internal/domain"
)

// ConsumerStore keeps consumer records in memory with version compare-and-swap on Update
type ConsumerStore struct {
	mu      sync.RWMutex
	records map[string]*domain.ConsumerRecord
}

// NewConsumerStore creates an empty ConsumerStore
func NewConsumerStore() *ConsumerStore {
	return &ConsumerStore{records: make(map[string]*domain.ConsumerRecord)}
}

// Put inserts or replaces a record unconditionally. Used for seeding.
func (s *ConsumerStore) Put(record *domain.ConsumerRecord) *domain.ConsumerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := record.Clone()
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	s.records[stored.Consumer.Key()] = stored
	return stored.Clone()
}

// Delete removes a consumer record
func (s *ConsumerStore) Delete(consumer domain.ConsumerRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, consumer.Key())
}

// GetByID returns a copy of the consumer's record
func (s *ConsumerStore) GetByID(_ context.Context, consumer domain.ConsumerRef) (*domain.ConsumerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[consumer.Key()]
	if !ok {
		return nil, domain.NewNotFoundError("consumer", consumer.Key())
	}
	return record.Clone(), nil
}

// Update replaces the stored record if its version still matches
func (s *ConsumerStore) Update(_ context.Context, record *domain.ConsumerRecord) (*domain.ConsumerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := record.Consumer.Key()
	current, ok := s.records[key]
	if !ok {
		return nil, domain.NewNotFoundError("consumer", key)
	}
	if current.Version != record.Version {
		return nil, domain.ErrConcurrentModification
	}

	stored := record.Clone()
	stored.Version = current.Version + 1
	stored.UpdatedAt = time.Now().UTC()
	s.records[key] = stored
	return stored.Clone(), nil
}

// FindByMaterial returns every record tracking the material
func (s *ConsumerStore) FindByMaterial(_ context.Context, materialID string) ([]*domain.ConsumerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ConsumerRecord, 0)
	for _, record := range s.records {
		if _, ok := record.Allocation(materialID); ok {
			result = append(result, record.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Consumer.Key() < result[j].Consumer.Key()
	})
	return result, nil
}

// MaterialIDs lists every material tracked by at least one consumer
func (s *ConsumerStore) MaterialIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, record := range s.records {
		for _, alloc := range record.Allocations {
			seen[alloc.MaterialID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
