package ports

import (
	"context"
	"time"

	"contabil-webhook-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// SignatureService computes the tamper-evident payload signature carried in
// the X-Webhook-Signature header.
type SignatureService interface {
	// Sign returns "sha256=" + hex(HMAC-SHA256(secret, payload)).
	// The payload must be the exact bytes transmitted on the wire.
	Sign(secret string, payload []byte) string
	Verify(secret string, payload []byte, signature string) bool
}

// RetryConfig governs the per-target retry loop.
type RetryConfig struct {
	MaxRetries         int
	RetryDelay         time.Duration
	ExponentialBackoff bool
}

// DispatchRequest is the validated input for one fan-out.
type DispatchRequest struct {
	EventType       domain.EventType
	EmpresaID       *uuid.UUID
	Payload         map[string]interface{}
	TargetURLs      []string     // optional: bypasses endpoint resolution
	RetryConfig     *RetryConfig // optional: overrides configured defaults
	SignatureSecret *string      // optional: overrides per-endpoint secrets
	Timeout         time.Duration
}

// DeliverySummary is the per-target outcome returned to the caller.
type DeliverySummary struct {
	TargetURL      string     `json:"target_url"`
	Status         string     `json:"status"`
	Attempts       int        `json:"attempts"`
	ResponseStatus *int       `json:"response_status,omitempty"`
	Error          *string    `json:"error,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}

// DispatchResult aggregates the fan-out outcome.
// successful + failed + pending always equals total_targets.
type DispatchResult struct {
	WebhookID            uuid.UUID          `json:"webhook_id"`
	EventType            domain.EventType   `json:"event_type"`
	Status               domain.EventStatus `json:"status"`
	TotalTargets         int                `json:"total_targets"`
	SuccessfulDeliveries int                `json:"successful_deliveries"`
	FailedDeliveries     int                `json:"failed_deliveries"`
	PendingDeliveries    int                `json:"pending_deliveries"`
	Deliveries           []DeliverySummary  `json:"deliveries"`
	ProcessingTimeMs     int64              `json:"processing_time_ms"`
}

// DispatcherService fans one business event out to its configured targets.
// Delivery is at-least-once per target, bounded by max_retries+1 attempts;
// receivers must deduplicate on (webhook_id, target_url).
type DispatcherService interface {
	Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResult, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*domain.WebhookEvent, []domain.DeliveryAttempt, error)
	ListEvents(ctx context.Context, params EventListParams) ([]domain.WebhookEvent, int64, error)
	GetStats(ctx context.Context, empresaID *uuid.UUID) (*EventStats, error)
}

// EndpointService manages the registered-endpoint configuration table and
// keeps the Redis cache coherent with it.
type EndpointService interface {
	Create(ctx context.Context, req EndpointRequest) (*domain.WebhookEndpoint, error)
	Update(ctx context.Context, id uuid.UUID, req EndpointRequest) (*domain.WebhookEndpoint, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.WebhookEndpoint, error)
	List(ctx context.Context) ([]domain.WebhookEndpoint, error)
}

// EndpointRequest holds validated input for endpoint create/update.
type EndpointRequest struct {
	URL       string
	Events    []string
	EmpresaID *uuid.UUID
	Secret    *string
	Active    bool
}

// TokenService issues and validates the JWT guarding the admin API.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
}
