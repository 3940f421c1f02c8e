package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"contabil-webhook-gateway/internal/core/domain"
	"contabil-webhook-gateway/internal/core/ports"

	"github.com/google/uuid"
)

// --- In-Memory Event Repo ---

type inMemoryEventRepo struct {
	mu     sync.RWMutex
	events map[uuid.UUID]*domain.WebhookEvent
}

func newInMemoryEventRepo() *inMemoryEventRepo {
	return &inMemoryEventRepo{events: make(map[uuid.UUID]*domain.WebhookEvent)}
}

func (r *inMemoryEventRepo) Create(ctx context.Context, event *domain.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *event
	r.events[event.ID] = &clone
	return nil
}

func (r *inMemoryEventRepo) Update(ctx context.Context, event *domain.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; !ok {
		return fmt.Errorf("event not found")
	}
	clone := *event
	r.events[event.ID] = &clone
	return nil
}

func (r *inMemoryEventRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[id]
	if !ok {
		return nil, nil
	}
	clone := *e
	return &clone, nil
}

func (r *inMemoryEventRepo) List(ctx context.Context, params ports.EventListParams) ([]domain.WebhookEvent, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WebhookEvent
	for _, e := range r.events {
		if params.EmpresaID != nil && (e.EmpresaID == nil || *e.EmpresaID != *params.EmpresaID) {
			continue
		}
		if params.EventType != nil && e.EventType != *params.EventType {
			continue
		}
		if params.Status != nil && e.Status != *params.Status {
			continue
		}
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	total := int64(len(result))

	// Simple pagination
	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.WebhookEvent{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *inMemoryEventRepo) GetStats(ctx context.Context, empresaID *uuid.UUID) (*ports.EventStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &ports.EventStats{}
	for _, e := range r.events {
		if empresaID != nil && (e.EmpresaID == nil || *e.EmpresaID != *empresaID) {
			continue
		}
		stats.TotalEvents++
		switch e.Status {
		case domain.EventStatusCompleted:
			stats.Completed++
		case domain.EventStatusPartial:
			stats.Partial++
		case domain.EventStatusFailed:
			stats.Failed++
		case domain.EventStatusProcessing:
			stats.Processing++
		}
		stats.SuccessfulDeliveries += int64(e.SuccessfulDeliveries)
		stats.FailedDeliveries += int64(e.FailedDeliveries)
	}
	return stats, nil
}

// --- In-Memory Delivery Repo ---

type inMemoryDeliveryRepo struct {
	mu       sync.RWMutex
	attempts map[uuid.UUID]*domain.DeliveryAttempt
}

func newInMemoryDeliveryRepo() *inMemoryDeliveryRepo {
	return &inMemoryDeliveryRepo{attempts: make(map[uuid.UUID]*domain.DeliveryAttempt)}
}

func (r *inMemoryDeliveryRepo) Create(ctx context.Context, attempt *domain.DeliveryAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *attempt
	r.attempts[attempt.ID] = &clone
	return nil
}

func (r *inMemoryDeliveryRepo) Update(ctx context.Context, attempt *domain.DeliveryAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.attempts[attempt.ID]; !ok {
		return fmt.Errorf("delivery attempt not found")
	}
	clone := *attempt
	r.attempts[attempt.ID] = &clone
	return nil
}

func (r *inMemoryDeliveryRepo) GetByWebhookID(ctx context.Context, webhookID uuid.UUID) ([]domain.DeliveryAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.DeliveryAttempt
	for _, a := range r.attempts {
		if a.WebhookID == webhookID {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// --- In-Memory Endpoint Repo ---

type inMemoryEndpointRepo struct {
	mu        sync.RWMutex
	endpoints map[uuid.UUID]*domain.WebhookEndpoint
}

func newInMemoryEndpointRepo() *inMemoryEndpointRepo {
	return &inMemoryEndpointRepo{endpoints: make(map[uuid.UUID]*domain.WebhookEndpoint)}
}

func (r *inMemoryEndpointRepo) Create(ctx context.Context, endpoint *domain.WebhookEndpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *endpoint
	r.endpoints[endpoint.ID] = &clone
	return nil
}

func (r *inMemoryEndpointRepo) Update(ctx context.Context, endpoint *domain.WebhookEndpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.endpoints[endpoint.ID]; !ok {
		return fmt.Errorf("endpoint not found")
	}
	clone := *endpoint
	r.endpoints[endpoint.ID] = &clone
	return nil
}

func (r *inMemoryEndpointRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.endpoints[id]; !ok {
		return fmt.Errorf("endpoint not found")
	}
	delete(r.endpoints, id)
	return nil
}

func (r *inMemoryEndpointRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookEndpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.endpoints[id]
	if !ok {
		return nil, nil
	}
	clone := *e
	return &clone, nil
}

func (r *inMemoryEndpointRepo) ListActive(ctx context.Context) ([]domain.WebhookEndpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WebhookEndpoint
	for _, e := range r.endpoints {
		if e.Active {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *inMemoryEndpointRepo) List(ctx context.Context) ([]domain.WebhookEndpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WebhookEndpoint
	for _, e := range r.endpoints {
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}
