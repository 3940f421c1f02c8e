package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"contabil-webhook-gateway/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// EndpointCache implements ports.EndpointCache using a single Redis key
// holding the serialized active endpoint set.
type EndpointCache struct {
	client *goredis.Client
	key    string
}

// NewEndpointCache creates a new Redis-backed endpoint cache.
func NewEndpointCache(client *goredis.Client) *EndpointCache {
	return &EndpointCache{
		client: client,
		key:    "webhook:endpoints",
	}
}

// cachedEndpoint is the cache serialization of an endpoint. The domain type
// hides the secret from JSON; the cache needs it back, so it gets its own
// encoding.
type cachedEndpoint struct {
	ID        uuid.UUID  `json:"id"`
	URL       string     `json:"url"`
	Events    []string   `json:"events"`
	EmpresaID *uuid.UUID `json:"empresa_id,omitempty"`
	Secret    *string    `json:"secret,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Get retrieves the cached endpoint set. The second return value is false on
// a cache miss; a miss is not an error.
func (c *EndpointCache) Get(ctx context.Context) ([]domain.WebhookEndpoint, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis endpoint cache get: %w", err)
	}

	var cached []cachedEndpoint
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false, fmt.Errorf("redis endpoint cache decode: %w", err)
	}

	endpoints := make([]domain.WebhookEndpoint, 0, len(cached))
	for _, ce := range cached {
		endpoints = append(endpoints, domain.WebhookEndpoint{
			ID:        ce.ID,
			URL:       ce.URL,
			Events:    ce.Events,
			EmpresaID: ce.EmpresaID,
			Secret:    ce.Secret,
			Active:    ce.Active,
			CreatedAt: ce.CreatedAt,
			UpdatedAt: ce.UpdatedAt,
		})
	}
	return endpoints, true, nil
}

// Set stores the endpoint set with a TTL.
func (c *EndpointCache) Set(ctx context.Context, endpoints []domain.WebhookEndpoint, ttl time.Duration) error {
	cached := make([]cachedEndpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		cached = append(cached, cachedEndpoint{
			ID:        ep.ID,
			URL:       ep.URL,
			Events:    ep.Events,
			EmpresaID: ep.EmpresaID,
			Secret:    ep.Secret,
			Active:    ep.Active,
			CreatedAt: ep.CreatedAt,
			UpdatedAt: ep.UpdatedAt,
		})
	}

	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("redis endpoint cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis endpoint cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached endpoint set.
func (c *EndpointCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("redis endpoint cache invalidate: %w", err)
	}
	return nil
}
