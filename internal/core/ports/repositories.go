package ports

import (
	"context"
	"time"

	"contabil-webhook-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// EventRepository persists webhook events (webhook_logs table).
// Writes are independent and idempotent on id; the dispatcher treats the
// store as a best-effort audit trail and never blocks delivery on it.
type EventRepository interface {
	Create(ctx context.Context, event *domain.WebhookEvent) error
	Update(ctx context.Context, event *domain.WebhookEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookEvent, error)
	List(ctx context.Context, params EventListParams) ([]domain.WebhookEvent, int64, error)
	GetStats(ctx context.Context, empresaID *uuid.UUID) (*EventStats, error)
}

// EventListParams holds filter + pagination for listing webhook events.
type EventListParams struct {
	EmpresaID *uuid.UUID
	EventType *domain.EventType
	Status    *domain.EventStatus
	Page      int
	PageSize  int
}

// EventStats holds aggregate delivery figures for the stats endpoint.
type EventStats struct {
	TotalEvents          int64
	Completed            int64
	Partial              int64
	Failed               int64
	Processing           int64
	SuccessfulDeliveries int64
	FailedDeliveries     int64
}

// DeliveryRepository persists delivery attempts (webhook_deliveries table).
// One row per (event, target); the row is updated in place as the attempt
// counter accumulates.
type DeliveryRepository interface {
	Create(ctx context.Context, attempt *domain.DeliveryAttempt) error
	Update(ctx context.Context, attempt *domain.DeliveryAttempt) error
	GetByWebhookID(ctx context.Context, webhookID uuid.UUID) ([]domain.DeliveryAttempt, error)
}

// EndpointRepository persists registered delivery targets (webhook_endpoints).
type EndpointRepository interface {
	Create(ctx context.Context, endpoint *domain.WebhookEndpoint) error
	Update(ctx context.Context, endpoint *domain.WebhookEndpoint) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookEndpoint, error)
	ListActive(ctx context.Context) ([]domain.WebhookEndpoint, error)
	List(ctx context.Context) ([]domain.WebhookEndpoint, error)
}

// EndpointCache is the Redis fast path for target resolution. A miss is not
// an error; the dispatcher falls back to the repository.
type EndpointCache interface {
	Get(ctx context.Context) ([]domain.WebhookEndpoint, bool, error)
	Set(ctx context.Context, endpoints []domain.WebhookEndpoint, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}
