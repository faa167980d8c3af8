package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ConsumerKind identifies which kind of entity holds an allocation
type ConsumerKind string

const (
	ConsumerKindWorkOrder     ConsumerKind = "work-order"
	ConsumerKindInventoryPool ConsumerKind = "inventory-pool"
)

// inventoryPoolKey is the storage key of the single inventory pool consumer
const inventoryPoolKey = string(ConsumerKindInventoryPool)

// ConsumerRef references a consuming entity: either a work order or the inventory pool.
// The zero value is an empty reference and is never valid in a reallocation.
type ConsumerRef struct {
	Kind ConsumerKind `json:"kind" bson:"kind"`
	ID   string       `json:"id,omitempty" bson:"id,omitempty"`
}

// WorkOrder returns a reference to the given work order
func WorkOrder(id string) ConsumerRef {
	return ConsumerRef{Kind: ConsumerKindWorkOrder, ID: id}
}

// InventoryPool returns the reference to the unallocated stock pool
func InventoryPool() ConsumerRef {
	return ConsumerRef{Kind: ConsumerKindInventoryPool}
}

// IsZero reports whether the reference is empty
func (r ConsumerRef) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

// IsInventoryPool reports whether the reference points to the inventory pool
func (r ConsumerRef) IsInventoryPool() bool {
	return r.Kind == ConsumerKindInventoryPool
}

// Validate checks the reference is well formed
func (r ConsumerRef) Validate() error {
	switch r.Kind {
	case ConsumerKindWorkOrder:
		if strings.TrimSpace(r.ID) == "" {
			return NewValidationError("work order reference requires an id")
		}
		return nil
	case ConsumerKindInventoryPool:
		if r.ID != "" {
			return NewValidationError("inventory pool reference must not carry an id")
		}
		return nil
	case "":
		return NewValidationError("consumer reference is empty")
	default:
		return NewValidationError(fmt.Sprintf("unknown consumer kind %q", r.Kind))
	}
}

// Equal reports whether both references point to the same consumer
func (r ConsumerRef) Equal(other ConsumerRef) bool {
	return r.Kind == other.Kind && r.ID == other.ID
}

// Key returns the canonical storage key: "work-order:<id>" or "inventory-pool"
func (r ConsumerRef) Key() string {
	if r.IsInventoryPool() {
		return inventoryPoolKey
	}
	return string(r.Kind) + ":" + r.ID
}

// String implements fmt.Stringer
func (r ConsumerRef) String() string {
	return r.Key()
}

// ParseConsumerRef parses a canonical key back into a reference.
// A bare identifier without a kind prefix is read as a work order id.
func ParseConsumerRef(key string) (ConsumerRef, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return ConsumerRef{}, NewValidationError("consumer reference is empty")
	}
	if key == inventoryPoolKey {
		return InventoryPool(), nil
	}

	kind, id, found := strings.Cut(key, ":")
	if !found {
		return WorkOrder(key), nil
	}

	ref := ConsumerRef{Kind: ConsumerKind(kind), ID: id}
	if err := ref.Validate(); err != nil {
		return ConsumerRef{}, err
	}
	return ref, nil
}

// ConsumerAllocation is the quantity of one material assigned to a consumer
type ConsumerAllocation struct {
	MaterialID        string          `json:"materialId"`
	AllocatedQuantity decimal.Decimal `json:"allocatedQuantity"`
	UsedQuantity      decimal.Decimal `json:"usedQuantity"`
}

// RemainingQuantity is the allocated quantity not yet used
func (a ConsumerAllocation) RemainingQuantity() decimal.Decimal {
	return a.AllocatedQuantity.Sub(a.UsedQuantity)
}

// AvailableToMove is the quantity a reallocation may take away from this consumer.
// Quantities already used cannot be moved, so this equals the remaining quantity.
func (a ConsumerAllocation) AvailableToMove() decimal.Decimal {
	remaining := a.RemainingQuantity()
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// ConsumerRecord is the stored state of a consumer with all its material allocations
type ConsumerRecord struct {
	Consumer    ConsumerRef          `json:"consumer"`
	Allocations []ConsumerAllocation `json:"allocations"`
	Version     int64                `json:"version"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// NewConsumerRecord creates an empty record for a consumer
func NewConsumerRecord(consumer ConsumerRef) *ConsumerRecord {
	return &ConsumerRecord{
		Consumer:    consumer,
		Allocations: make([]ConsumerAllocation, 0),
		UpdatedAt:   time.Now().UTC(),
	}
}

// Allocation returns the allocation for a material, if tracked
func (c *ConsumerRecord) Allocation(materialID string) (ConsumerAllocation, bool) {
	for _, alloc := range c.Allocations {
		if alloc.MaterialID == materialID {
			return alloc, true
		}
	}
	return ConsumerAllocation{}, false
}

// SetAllocatedQuantity overwrites the allocated quantity of a material, starting tracking
// with a zero used quantity when the material is new to this consumer.
func (c *ConsumerRecord) SetAllocatedQuantity(materialID string, quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return ErrNegativeAllocation
	}
	for i := range c.Allocations {
		if c.Allocations[i].MaterialID == materialID {
			c.Allocations[i].AllocatedQuantity = quantity
			return nil
		}
	}
	c.Allocations = append(c.Allocations, ConsumerAllocation{
		MaterialID:        materialID,
		AllocatedQuantity: quantity,
		UsedQuantity:      decimal.Zero,
	})
	return nil
}

// RestoreAllocation puts back a snapshot taken before a mutation
func (c *ConsumerRecord) RestoreAllocation(snapshot AllocationSnapshot) error {
	if !snapshot.Tracked {
		for i := range c.Allocations {
			if c.Allocations[i].MaterialID == snapshot.Allocation.MaterialID {
				c.Allocations = append(c.Allocations[:i], c.Allocations[i+1:]...)
				return nil
			}
		}
		return nil
	}
	for i := range c.Allocations {
		if c.Allocations[i].MaterialID == snapshot.Allocation.MaterialID {
			c.Allocations[i] = snapshot.Allocation
			return nil
		}
	}
	c.Allocations = append(c.Allocations, snapshot.Allocation)
	return nil
}

// Clone returns a deep copy of the record
func (c *ConsumerRecord) Clone() *ConsumerRecord {
	clone := *c
	clone.Allocations = make([]ConsumerAllocation, len(c.Allocations))
	copy(clone.Allocations, c.Allocations)
	return &clone
}

// AllocationSnapshot is the immutable value of one allocation captured before a mutation
type AllocationSnapshot struct {
	Consumer   ConsumerRef
	Allocation ConsumerAllocation
	Tracked    bool
	Version    int64
}

// Snapshot captures the current allocation of a material for later compensation
func (c *ConsumerRecord) Snapshot(materialID string) AllocationSnapshot {
	alloc, tracked := c.Allocation(materialID)
	if !tracked {
		alloc = ConsumerAllocation{MaterialID: materialID}
	}
	return AllocationSnapshot{
		Consumer:   c.Consumer,
		Allocation: alloc,
		Tracked:    tracked,
		Version:    c.Version,
	}
}
