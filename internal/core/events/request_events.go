package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeRequestCreated   = "request.created"
	EventTypeRequestSubmitted = "request.submitted"
	EventTypeRequestApproved  = "request.approved"
	EventTypeRequestRejected  = "request.rejected"
	EventTypeRequestForwarded = "request.forwarded"
	EventTypeRequestDeleted   = "request.deleted"
)

// RequestEventTypes lists every request lifecycle event in publish order.
var RequestEventTypes = []string{
	EventTypeRequestCreated,
	EventTypeRequestSubmitted,
	EventTypeRequestApproved,
	EventTypeRequestRejected,
	EventTypeRequestForwarded,
	EventTypeRequestDeleted,
}

// IsRequestEventType reports whether t names a request lifecycle event.
func IsRequestEventType(t string) bool {
	for _, known := range RequestEventTypes {
		if known == t {
			return true
		}
	}
	return false
}

// RequestEvent announces a lifecycle change of an approval request.
type RequestEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	ActorID   string `json:"actor_id"`
	Status    string `json:"status"`
	Version   int    `json:"version"`
}

func NewRequestEvent(eventType, requestID, actorID, status string, version int) *RequestEvent {
	return &RequestEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"request_id": requestID,
				"actor_id":   actorID,
				"status":     status,
				"version":    version,
			},
		},
		RequestID: requestID,
		ActorID:   actorID,
		Status:    status,
		Version:   version,
	}
}

// RequestIDOf extracts the request id from a RequestEvent or from a generic
// event whose payload carries a request_id.
func RequestIDOf(event Event) (string, bool) {
	if re, ok := event.(*RequestEvent); ok {
		return re.RequestID, re.RequestID != ""
	}
	if data, ok := event.Payload().(map[string]interface{}); ok {
		if id, ok := data["request_id"].(string); ok && id != "" {
			return id, true
		}
	}
	return "", false
}
