package domain

import "context"

// ConsumerStore reads and replaces consumer records.
// GetByID reports a missing consumer with a *NotFoundError.
// Update is a whole-record replace guarded by Version: it fails with
// ErrConcurrentModification when the stored version differs from record.Version,
// and returns the stored record with its new version on success.
type ConsumerStore interface {
	GetByID(ctx context.Context, consumer ConsumerRef) (*ConsumerRecord, error)
	Update(ctx context.Context, record *ConsumerRecord) (*ConsumerRecord, error)
	FindByMaterial(ctx context.Context, materialID string) ([]*ConsumerRecord, error)
}

// ReallocationFilter narrows a request listing. Empty fields match everything.
type ReallocationFilter struct {
	MaterialID string
	Consumer   *ConsumerRef
	Status     ReallocationStatus
}

// Matches reports whether a request satisfies the filter
func (f ReallocationFilter) Matches(r *ReallocationRequest) bool {
	if f.MaterialID != "" && r.MaterialID != f.MaterialID {
		return false
	}
	if f.Consumer != nil && !r.Involves(*f.Consumer) {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// ReallocationStore persists reallocation requests. Missing requests are reported as
// (nil, nil) by GetByID, following the repository convention of this service.
type ReallocationStore interface {
	Create(ctx context.Context, request *ReallocationRequest) error
	GetByID(ctx context.Context, id string) (*ReallocationRequest, error)
	Update(ctx context.Context, request *ReallocationRequest) error
	List(ctx context.Context, filter ReallocationFilter) ([]*ReallocationRequest, error)
}

// MaterialCatalog answers whether a material exists
type MaterialCatalog interface {
	Exists(ctx context.Context, materialID string) (bool, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	PublishAll(ctx context.Context, events []DomainEvent) error
}
