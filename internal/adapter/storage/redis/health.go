package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
)

// HealthCheck probes the cache/limiter backend for the deep health endpoint.
// Redis being down degrades the service (cold endpoint lookups, open rate
// limiting) without stopping deliveries; the endpoint reports it anyway.
type HealthCheck struct {
	client *goredis.Client
}

func NewHealthCheck(client *goredis.Client) *HealthCheck {
	return &HealthCheck{client: client}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}

func (h *HealthCheck) Name() string {
	return "redis"
}
