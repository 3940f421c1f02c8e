package postgres

import (
	"context"
	"errors"
	"fmt"

	"contabil-webhook-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EndpointRepo implements ports.EndpointRepository on the webhook_endpoints
// table.
type EndpointRepo struct {
	pool Pool
}

// NewEndpointRepo creates a new EndpointRepo.
func NewEndpointRepo(pool Pool) *EndpointRepo {
	return &EndpointRepo{pool: pool}
}

// Create inserts a new endpoint record.
func (r *EndpointRepo) Create(ctx context.Context, e *domain.WebhookEndpoint) error {
	query := `INSERT INTO webhook_endpoints (id, url, events, empresa_id, secret, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.URL, e.Events, e.EmpresaID, e.Secret, e.Active, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook endpoint: %w", err)
	}
	return nil
}

// Update rewrites an endpoint record.
func (r *EndpointRepo) Update(ctx context.Context, e *domain.WebhookEndpoint) error {
	query := `UPDATE webhook_endpoints
		SET url=$1, events=$2, empresa_id=$3, secret=$4, active=$5, updated_at=$6
		WHERE id=$7`

	_, err := r.pool.Exec(ctx, query,
		e.URL, e.Events, e.EmpresaID, e.Secret, e.Active, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update webhook endpoint: %w", err)
	}
	return nil
}

// Delete removes an endpoint record.
func (r *EndpointRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM webhook_endpoints WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete webhook endpoint: %w", err)
	}
	return nil
}

// GetByID fetches an endpoint by its UUID. Returns (nil, nil) when absent.
func (r *EndpointRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookEndpoint, error) {
	query := `SELECT id, url, events, empresa_id, secret, active, created_at, updated_at
		FROM webhook_endpoints WHERE id = $1`

	e := &domain.WebhookEndpoint{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.URL, &e.Events, &e.EmpresaID, &e.Secret, &e.Active, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook endpoint by id: %w", err)
	}
	return e, nil
}

// ListActive returns every active endpoint.
func (r *EndpointRepo) ListActive(ctx context.Context) ([]domain.WebhookEndpoint, error) {
	return r.list(ctx, `SELECT id, url, events, empresa_id, secret, active, created_at, updated_at
		FROM webhook_endpoints WHERE active ORDER BY created_at`)
}

// List returns every endpoint, active or not.
func (r *EndpointRepo) List(ctx context.Context) ([]domain.WebhookEndpoint, error) {
	return r.list(ctx, `SELECT id, url, events, empresa_id, secret, active, created_at, updated_at
		FROM webhook_endpoints ORDER BY created_at`)
}

func (r *EndpointRepo) list(ctx context.Context, query string) ([]domain.WebhookEndpoint, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list webhook endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []domain.WebhookEndpoint
	for rows.Next() {
		var e domain.WebhookEndpoint
		if err := rows.Scan(
			&e.ID, &e.URL, &e.Events, &e.EmpresaID, &e.Secret, &e.Active, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan webhook endpoint: %w", err)
		}
		endpoints = append(endpoints, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook endpoints: %w", err)
	}
	return endpoints, nil
}
