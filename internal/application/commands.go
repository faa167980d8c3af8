package application

import (
	"github.com/shopspring/decimal"

	"github.com/wms-platform/reallocation-service/internal/domain"
)

// RequestReallocationCommand represents the command to open a reallocation request
type RequestReallocationCommand struct {
	MaterialID  string
	From        domain.ConsumerRef
	To          domain.ConsumerRef
	Quantity    decimal.Decimal
	Reason      string
	RequestedBy string
}

// ApproveReallocationCommand represents an approver's decision on a pending request
type ApproveReallocationCommand struct {
	RequestID string
	Approved  bool
	Approver  string
	Notes     string
}

// GetReallocationHistoryQuery filters the request history. ConsumerID accepts any form
// understood by domain.ParseConsumerRef.
type GetReallocationHistoryQuery struct {
	MaterialID string
	ConsumerID string
	Status     string
}

// BatchAction is one step of a batch. A nil end stands for the inventory pool.
type BatchAction struct {
	From     *domain.ConsumerRef
	To       *domain.ConsumerRef
	Quantity decimal.Decimal
	Reason   string
	Priority string
}

// ApplyReallocationsCommand represents the command to apply a batch of actions on one material
type ApplyReallocationsCommand struct {
	MaterialID  string
	Actions     []BatchAction
	PerformedBy string
}
