package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventWildcard in an endpoint's event list subscribes it to every event type.
const EventWildcard = "*"

// WebhookEndpoint is one registered delivery target. Endpoints scoped to an
// empresa receive that tenant's events plus nothing else; endpoints with a
// nil EmpresaID are global and receive every matching event.
type WebhookEndpoint struct {
	ID        uuid.UUID  `json:"id"`
	URL       string     `json:"url"`
	Events    []string   `json:"events"`
	EmpresaID *uuid.UUID `json:"empresa_id,omitempty"` // nil = global endpoint
	Secret    *string    `json:"-"`                    // signing secret, never serialized
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SubscribesTo reports whether the endpoint's configured event set contains
// the given event type or the wildcard.
func (e *WebhookEndpoint) SubscribesTo(eventType EventType) bool {
	for _, ev := range e.Events {
		if ev == EventWildcard || ev == string(eventType) {
			return true
		}
	}
	return false
}

// MatchesEmpresa reports whether the endpoint should receive an event scoped
// to the given empresa. Global endpoints match everything; tenant endpoints
// match only their own empresa.
func (e *WebhookEndpoint) MatchesEmpresa(empresaID *uuid.UUID) bool {
	if e.EmpresaID == nil {
		return true
	}
	return empresaID != nil && *e.EmpresaID == *empresaID
}
