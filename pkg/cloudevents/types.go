package cloudevents

import (
	"time"
)

// Reallocation event types
const (
	ReallocationRequested  = "wms.reallocation.requested"
	ReallocationRejected   = "wms.reallocation.rejected"
	ReallocationCompleted  = "wms.reallocation.completed"
	ReallocationRolledBack = "wms.reallocation.rolled-back"
)

// SourceReallocation is the CloudEvents source of this service
const SourceReallocation = "/wms/reallocation-service"

// WMSCloudEvent represents a CloudEvents v1.0 compliant event
type WMSCloudEvent struct {
	SpecVersion     string    `json:"specversion"`
	Type            string    `json:"type"`
	Source          string    `json:"source"`
	Subject         string    `json:"subject,omitempty"`
	ID              string    `json:"id"`
	Time            time.Time `json:"time"`
	DataContentType string    `json:"datacontenttype"`
	Data            any       `json:"data"`

	// WMS-specific extensions
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	MaterialID    string `json:"wmsmaterialid,omitempty"`
}

// IsReallocationEvent reports whether the type belongs to the reallocation family
func IsReallocationEvent(eventType string) bool {
	switch eventType {
	case ReallocationRequested, ReallocationRejected, ReallocationCompleted, ReallocationRolledBack:
		return true
	}
	return false
}
