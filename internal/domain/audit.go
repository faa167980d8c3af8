package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction is the kind of step recorded on a reallocation request
type AuditAction string

const (
	AuditActionRequested AuditAction = "requested"
	AuditActionApproved  AuditAction = "approved"
	AuditActionRejected  AuditAction = "rejected"
	AuditActionRollback  AuditAction = "rollback"
	AuditActionCompleted AuditAction = "completed"
)

// AuditEvent is one immutable entry of a request's audit trail
type AuditEvent struct {
	ID          string      `json:"id"`
	Action      AuditAction `json:"action"`
	PerformedBy string      `json:"performedBy"`
	PerformedAt time.Time   `json:"performedAt"`
	Notes       string      `json:"notes,omitempty"`
}

// AuditTrailRecorder appends events to a request's trail. It is only reachable through the
// request's transition methods, so every transition records exactly what it did.
type AuditTrailRecorder struct {
	newID func() string
}

var defaultAuditRecorder = &AuditTrailRecorder{
	newID: func() string { return uuid.New().String() },
}

func (a *AuditTrailRecorder) record(r *ReallocationRequest, action AuditAction, performedBy, notes string, at time.Time) AuditEvent {
	event := AuditEvent{
		ID:          a.newID(),
		Action:      action,
		PerformedBy: performedBy,
		PerformedAt: at,
		Notes:       notes,
	}
	r.AuditTrail = append(r.AuditTrail, event)
	return event
}

// Actions returns the sequence of recorded actions
func Actions(trail []AuditEvent) []AuditAction {
	actions := make([]AuditAction, len(trail))
	for i, e := range trail {
		actions[i] = e.Action
	}
	return actions
}
