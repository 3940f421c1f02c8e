package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the business occurrence being propagated.
type EventType string

const (
	EventDocumentProcessed  EventType = "document_processed"
	EventDASGenerated       EventType = "das_generated"
	EventObligationDue      EventType = "obligation_due"
	EventSystemNotification EventType = "system_notification"
)

// IsValid reports whether t is one of the known event types.
func (t EventType) IsValid() bool {
	switch t {
	case EventDocumentProcessed, EventDASGenerated, EventObligationDue, EventSystemNotification:
		return true
	}
	return false
}

// EventStatus is the aggregate outcome of a webhook event across all targets.
type EventStatus string

const (
	EventStatusProcessing EventStatus = "processing"
	EventStatusCompleted  EventStatus = "completed"
	EventStatusPartial    EventStatus = "partial"
	EventStatusFailed     EventStatus = "failed"
)

// WebhookEvent is one business occurrence fanned out to N configured targets.
// The payload is immutable once created; only status and the delivery
// counters change, and only at finalization.
type WebhookEvent struct {
	ID                   uuid.UUID              `json:"id"`
	EventType            EventType              `json:"event_type"`
	EmpresaID            *uuid.UUID             `json:"empresa_id,omitempty"` // nil = global event
	Payload              map[string]interface{} `json:"payload"`
	Status               EventStatus            `json:"status"`
	TargetCount          int                    `json:"target_count"`
	SuccessfulDeliveries int                    `json:"successful_deliveries"`
	FailedDeliveries     int                    `json:"failed_deliveries"`
	CreatedAt            time.Time              `json:"created_at"`
	CompletedAt          *time.Time             `json:"completed_at,omitempty"`
}

// Finalize recomputes the aggregate counters and derives the terminal status:
// completed iff every target delivered, failed iff none did, partial otherwise.
func (e *WebhookEvent) Finalize(successful, failed int, at time.Time) {
	e.SuccessfulDeliveries = successful
	e.FailedDeliveries = failed
	e.CompletedAt = &at

	switch {
	case successful == e.TargetCount:
		e.Status = EventStatusCompleted
	case successful == 0:
		e.Status = EventStatusFailed
	default:
		e.Status = EventStatusPartial
	}
}
