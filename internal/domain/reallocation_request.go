package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReallocationStatus represents the status of a reallocation request
type ReallocationStatus string

const (
	ReallocationStatusPending  ReallocationStatus = "pending"
	ReallocationStatusApproved ReallocationStatus = "approved"
	ReallocationStatusRejected ReallocationStatus = "rejected"
)

// IsValid reports whether the status is a known one
func (s ReallocationStatus) IsValid() bool {
	switch s {
	case ReallocationStatusPending, ReallocationStatusApproved, ReallocationStatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s ReallocationStatus) IsTerminal() bool {
	return s == ReallocationStatusApproved || s == ReallocationStatusRejected
}

// ReallocationRequest moves a quantity of one material between two consumers.
// It is created pending, changed only through its transition methods and never deleted.
type ReallocationRequest struct {
	ID          string             `json:"id"`
	MaterialID  string             `json:"materialId"`
	From        ConsumerRef        `json:"from"`
	To          ConsumerRef        `json:"to"`
	Quantity    decimal.Decimal    `json:"quantity"`
	Reason      string             `json:"reason"`
	RequestedBy string             `json:"requestedBy"`
	RequestedAt time.Time          `json:"requestedAt"`
	Status      ReallocationStatus `json:"status"`

	ApprovedBy   string     `json:"approvedBy,omitempty"`
	ApprovedAt   *time.Time `json:"approvedAt,omitempty"`
	RejectedBy   string     `json:"rejectedBy,omitempty"`
	RejectedAt   *time.Time `json:"rejectedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	Notes        string     `json:"notes,omitempty"`

	AuditTrail []AuditEvent `json:"auditTrail"`
	UpdatedAt  time.Time    `json:"updatedAt"`

	DomainEvents []DomainEvent `json:"-"`
}

// NewReallocationRequest validates the input and creates a pending request with its
// "requested" audit entry
func NewReallocationRequest(
	id string,
	materialID string,
	from ConsumerRef,
	to ConsumerRef,
	quantity decimal.Decimal,
	reason string,
	requestedBy string,
) (*ReallocationRequest, error) {
	if err := ValidateReallocation(materialID, from, to, quantity); err != nil {
		return nil, err
	}
	if strings.TrimSpace(requestedBy) == "" {
		return nil, NewValidationError("requestedBy is required")
	}

	now := time.Now().UTC()
	r := &ReallocationRequest{
		ID:           id,
		MaterialID:   materialID,
		From:         from,
		To:           to,
		Quantity:     quantity,
		Reason:       reason,
		RequestedBy:  requestedBy,
		RequestedAt:  now,
		Status:       ReallocationStatusPending,
		AuditTrail:   make([]AuditEvent, 0, 3),
		UpdatedAt:    now,
		DomainEvents: make([]DomainEvent, 0),
	}

	defaultAuditRecorder.record(r, AuditActionRequested, requestedBy, reason, now)

	r.AddDomainEvent(&ReallocationRequestedEvent{
		RequestID:   id,
		MaterialID:  materialID,
		From:        from.Key(),
		To:          to.Key(),
		Quantity:    quantity.String(),
		Reason:      reason,
		RequestedBy: requestedBy,
		RequestedAt: now,
	})

	return r, nil
}

// ValidateReallocation checks the shape of a reallocation independently of any stored state
func ValidateReallocation(materialID string, from, to ConsumerRef, quantity decimal.Decimal) error {
	if strings.TrimSpace(materialID) == "" {
		return NewValidationError("materialId is required")
	}
	if err := from.Validate(); err != nil {
		return NewValidationError("from: " + err.(*ValidationError).Message)
	}
	if err := to.Validate(); err != nil {
		return NewValidationError("to: " + err.(*ValidationError).Message)
	}
	if from.Equal(to) {
		return NewValidationError("source and destination must differ")
	}
	if !quantity.IsPositive() {
		return NewValidationError("quantity must be greater than zero")
	}
	return nil
}

// IsPending reports whether the request still awaits a decision
func (r *ReallocationRequest) IsPending() bool {
	return r.Status == ReallocationStatusPending
}

// Involves reports whether the consumer is the source or destination of the request
func (r *ReallocationRequest) Involves(consumer ConsumerRef) bool {
	return r.From.Equal(consumer) || r.To.Equal(consumer)
}

func (r *ReallocationRequest) ensurePending() error {
	if !r.IsPending() {
		return &AlreadyProcessedError{RequestID: r.ID, Status: r.Status}
	}
	return nil
}

// Reject ends the request without touching any consumer
func (r *ReallocationRequest) Reject(rejectedBy, notes string) error {
	if err := r.ensurePending(); err != nil {
		return err
	}

	now := time.Now().UTC()
	r.Status = ReallocationStatusRejected
	r.RejectedBy = rejectedBy
	r.RejectedAt = &now
	r.Notes = notes
	r.UpdatedAt = now

	defaultAuditRecorder.record(r, AuditActionRejected, rejectedBy, notes, now)

	r.AddDomainEvent(&ReallocationRejectedEvent{
		RequestID:  r.ID,
		MaterialID: r.MaterialID,
		RejectedBy: rejectedBy,
		Notes:      notes,
		RejectedAt: now,
	})

	return nil
}

// Complete records a commit in which both consumer writes succeeded
func (r *ReallocationRequest) Complete(approvedBy, notes string) error {
	if err := r.ensurePending(); err != nil {
		return err
	}

	now := time.Now().UTC()
	r.Status = ReallocationStatusApproved
	r.ApprovedBy = approvedBy
	r.ApprovedAt = &now
	r.CompletedAt = &now
	r.ErrorMessage = ""
	r.Notes = notes
	r.UpdatedAt = now

	defaultAuditRecorder.record(r, AuditActionApproved, approvedBy, notes, now)
	defaultAuditRecorder.record(r, AuditActionCompleted, approvedBy, "", now)

	r.AddDomainEvent(&ReallocationCompletedEvent{
		RequestID:   r.ID,
		MaterialID:  r.MaterialID,
		From:        r.From.Key(),
		To:          r.To.Key(),
		Quantity:    r.Quantity.String(),
		ApprovedBy:  approvedBy,
		CompletedAt: now,
	})

	return nil
}

// RevertCommit records a compensated commit attempt. The request goes back to pending
// with the failure cause so it can be retried.
func (r *ReallocationRequest) RevertCommit(performedBy, cause string) error {
	if err := r.ensurePending(); err != nil {
		return err
	}

	now := time.Now().UTC()
	r.Status = ReallocationStatusPending
	r.ErrorMessage = cause
	r.UpdatedAt = now

	defaultAuditRecorder.record(r, AuditActionRollback, performedBy, cause, now)

	r.AddDomainEvent(&ReallocationRolledBackEvent{
		RequestID:    r.ID,
		MaterialID:   r.MaterialID,
		Cause:        cause,
		RolledBackAt: now,
	})

	return nil
}

// Clone returns a deep copy without pending domain events
func (r *ReallocationRequest) Clone() *ReallocationRequest {
	clone := *r
	clone.AuditTrail = make([]AuditEvent, len(r.AuditTrail))
	copy(clone.AuditTrail, r.AuditTrail)
	clone.ApprovedAt = cloneTime(r.ApprovedAt)
	clone.RejectedAt = cloneTime(r.RejectedAt)
	clone.CompletedAt = cloneTime(r.CompletedAt)
	clone.DomainEvents = nil
	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// AddDomainEvent adds a domain event
func (r *ReallocationRequest) AddDomainEvent(event DomainEvent) {
	r.DomainEvents = append(r.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (r *ReallocationRequest) ClearDomainEvents() {
	r.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (r *ReallocationRequest) GetDomainEvents() []DomainEvent {
	return r.DomainEvents
}
