package application

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConsumerAllocationSummary is one consumer's holding of a material
type ConsumerAllocationSummary struct {
	Consumer          string          `json:"consumer"`
	ConsumerKind      string          `json:"consumerKind"`
	ConsumerID        string          `json:"consumerId,omitempty"`
	MaterialID        string          `json:"materialId"`
	AllocatedQuantity decimal.Decimal `json:"allocatedQuantity"`
	UsedQuantity      decimal.Decimal `json:"usedQuantity"`
	RemainingQuantity decimal.Decimal `json:"remainingQuantity"`
	CanReduce         bool            `json:"canReduce"`
	CanIncrease       bool            `json:"canIncrease"`
}

// ReallocationDTO represents a reallocation request in responses
type ReallocationDTO struct {
	ID           string          `json:"id"`
	MaterialID   string          `json:"materialId"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	Quantity     decimal.Decimal `json:"quantity"`
	Reason       string          `json:"reason,omitempty"`
	Status       string          `json:"status"`
	RequestedBy  string          `json:"requestedBy"`
	RequestedAt  time.Time       `json:"requestedAt"`
	ApprovedBy   string          `json:"approvedBy,omitempty"`
	ApprovedAt   *time.Time      `json:"approvedAt,omitempty"`
	RejectedBy   string          `json:"rejectedBy,omitempty"`
	RejectedAt   *time.Time      `json:"rejectedAt,omitempty"`
	CompletedAt  *time.Time      `json:"completedAt,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	AuditTrail   []AuditEventDTO `json:"auditTrail"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// AuditEventDTO represents one audit trail entry
type AuditEventDTO struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	PerformedBy string    `json:"performedBy"`
	PerformedAt time.Time `json:"performedAt"`
	Notes       string    `json:"notes,omitempty"`
}

// Batch action outcomes
const (
	BatchActionSucceeded    = "succeeded"
	BatchActionFailed       = "failed"
	BatchActionNotAttempted = "not_attempted"
)

// BatchActionResult reports what happened to one batch action
type BatchActionResult struct {
	Index     int             `json:"index"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Quantity  decimal.Decimal `json:"quantity"`
	Priority  string          `json:"priority,omitempty"`
	Status    string          `json:"status"`
	RequestID string          `json:"requestId,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"errorCode,omitempty"`
}

// BatchResult summarizes a batch run. Completed is true only when every action succeeded.
type BatchResult struct {
	MaterialID   string              `json:"materialId"`
	Actions      []BatchActionResult `json:"actions"`
	Succeeded    int                 `json:"succeeded"`
	Failed       int                 `json:"failed"`
	NotAttempted int                 `json:"notAttempted"`
	Completed    bool                `json:"completed"`
}
