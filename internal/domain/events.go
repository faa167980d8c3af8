package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
	AggregateID() string
}

// ReallocationRequestedEvent is published when a reallocation request is created
type ReallocationRequestedEvent struct {
	RequestID   string    `json:"requestId"`
	MaterialID  string    `json:"materialId"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Quantity    string    `json:"quantity"`
	Reason      string    `json:"reason,omitempty"`
	RequestedBy string    `json:"requestedBy"`
	RequestedAt time.Time `json:"requestedAt"`
}

func (e *ReallocationRequestedEvent) EventType() string     { return "wms.reallocation.requested" }
func (e *ReallocationRequestedEvent) OccurredAt() time.Time { return e.RequestedAt }
func (e *ReallocationRequestedEvent) AggregateID() string   { return e.RequestID }

// ReallocationRejectedEvent is published when an approver rejects a request
type ReallocationRejectedEvent struct {
	RequestID  string    `json:"requestId"`
	MaterialID string    `json:"materialId"`
	RejectedBy string    `json:"rejectedBy"`
	Notes      string    `json:"notes,omitempty"`
	RejectedAt time.Time `json:"rejectedAt"`
}

func (e *ReallocationRejectedEvent) EventType() string     { return "wms.reallocation.rejected" }
func (e *ReallocationRejectedEvent) OccurredAt() time.Time { return e.RejectedAt }
func (e *ReallocationRejectedEvent) AggregateID() string   { return e.RequestID }

// ReallocationCompletedEvent is published when both consumer writes succeeded
type ReallocationCompletedEvent struct {
	RequestID   string    `json:"requestId"`
	MaterialID  string    `json:"materialId"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Quantity    string    `json:"quantity"`
	ApprovedBy  string    `json:"approvedBy"`
	CompletedAt time.Time `json:"completedAt"`
}

func (e *ReallocationCompletedEvent) EventType() string     { return "wms.reallocation.completed" }
func (e *ReallocationCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }
func (e *ReallocationCompletedEvent) AggregateID() string   { return e.RequestID }

// ReallocationRolledBackEvent is published when a commit attempt was compensated
type ReallocationRolledBackEvent struct {
	RequestID    string    `json:"requestId"`
	MaterialID   string    `json:"materialId"`
	Cause        string    `json:"cause"`
	RolledBackAt time.Time `json:"rolledBackAt"`
}

func (e *ReallocationRolledBackEvent) EventType() string     { return "wms.reallocation.rolled-back" }
func (e *ReallocationRolledBackEvent) OccurredAt() time.Time { return e.RolledBackAt }
func (e *ReallocationRolledBackEvent) AggregateID() string   { return e.RequestID }
