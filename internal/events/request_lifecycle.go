package events

import "time"

const RequestLifecycleTopic = "hr.request.lifecycle.v1"

const (
	EventRequestSubmitted = "request.submitted"
	EventRequestAdvanced  = "request.advanced"
	EventRequestApproved  = "request.approved"
	EventRequestRejected  = "request.rejected"
	EventRequestCancelled = "request.cancelled"
)

// RequestLifecycleEvent is published on every workflow transition. Consumers
// use recipient_id to route notifications; the remaining fields are display
// payload.
type RequestLifecycleEvent struct {
	EventType   string    `json:"event_type"`
	RequestKind string    `json:"request_kind"`
	RequestID   string    `json:"request_id"`
	CompanyID   string    `json:"company_id"`
	RequesterID string    `json:"requester_id"`
	RecipientID string    `json:"recipient_id"`
	Level       int       `json:"level,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
