package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/wms-platform/reallocation-service/internal/domain"
)

// ReallocationStore keeps reallocation requests in memory, in creation order
type ReallocationStore struct {
	mu       sync.RWMutex
	requests map[string]*domain.ReallocationRequest
	order    []string
}

// NewReallocationStore creates an empty ReallocationStore
func NewReallocationStore() *ReallocationStore {
	return &ReallocationStore{requests: make(map[string]*domain.ReallocationRequest)}
}

// Create stores a new request
func (s *ReallocationStore) Create(_ context.Context, request *domain.ReallocationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[request.ID]; exists {
		return fmt.Errorf("reallocation request %s already exists", request.ID)
	}
	s.requests[request.ID] = request.Clone()
	s.order = append(s.order, request.ID)
	return nil
}

// GetByID returns a copy of the request, or nil when it does not exist
func (s *ReallocationStore) GetByID(_ context.Context, id string) (*domain.ReallocationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	request, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	return request.Clone(), nil
}

// Update replaces a stored request
func (s *ReallocationStore) Update(_ context.Context, request *domain.ReallocationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[request.ID]; !ok {
		return domain.NewNotFoundError("reallocation request", request.ID)
	}
	s.requests[request.ID] = request.Clone()
	return nil
}

// List returns the requests matching the filter in creation order
func (s *ReallocationStore) List(_ context.Context, filter domain.ReallocationFilter) ([]*domain.ReallocationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ReallocationRequest, 0)
	for _, id := range s.order {
		request := s.requests[id]
		if filter.Matches(request) {
			result = append(result, request.Clone())
		}
	}
	return result, nil
}
