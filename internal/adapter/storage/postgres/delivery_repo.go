package postgres

import (
	"context"
	"fmt"

	"contabil-webhook-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// DeliveryRepo implements ports.DeliveryRepository on the webhook_deliveries
// table. One row per (webhook_id, target_url); the attempt counter accumulates
// in place.
type DeliveryRepo struct {
	pool Pool
}

// NewDeliveryRepo creates a new DeliveryRepo.
func NewDeliveryRepo(pool Pool) *DeliveryRepo {
	return &DeliveryRepo{pool: pool}
}

// Create inserts the initial pending record for one target.
func (r *DeliveryRepo) Create(ctx context.Context, a *domain.DeliveryAttempt) error {
	query := `INSERT INTO webhook_deliveries (id, webhook_id, target_url, status, attempts, max_retries, last_attempt_at, delivered_at, next_retry_at, response_status, response_body, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.WebhookID, a.TargetURL, a.Status, a.Attempts, a.MaxRetries,
		a.LastAttemptAt, a.DeliveredAt, a.NextRetryAt,
		a.ResponseStatus, a.ResponseBody, a.ErrorMessage,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery attempt: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields after a state transition.
func (r *DeliveryRepo) Update(ctx context.Context, a *domain.DeliveryAttempt) error {
	query := `UPDATE webhook_deliveries
		SET status=$1, attempts=$2, last_attempt_at=$3, delivered_at=$4, next_retry_at=$5, response_status=$6, response_body=$7, error_message=$8, updated_at=$9
		WHERE id=$10`

	_, err := r.pool.Exec(ctx, query,
		a.Status, a.Attempts, a.LastAttemptAt, a.DeliveredAt, a.NextRetryAt,
		a.ResponseStatus, a.ResponseBody, a.ErrorMessage, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update delivery attempt: %w", err)
	}
	return nil
}

// GetByWebhookID returns every delivery record for one event.
func (r *DeliveryRepo) GetByWebhookID(ctx context.Context, webhookID uuid.UUID) ([]domain.DeliveryAttempt, error) {
	query := `SELECT id, webhook_id, target_url, status, attempts, max_retries, last_attempt_at, delivered_at, next_retry_at, response_status, response_body, error_message, created_at, updated_at
		FROM webhook_deliveries WHERE webhook_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, webhookID)
	if err != nil {
		return nil, fmt.Errorf("list delivery attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.DeliveryAttempt
	for rows.Next() {
		var a domain.DeliveryAttempt
		if err := rows.Scan(
			&a.ID, &a.WebhookID, &a.TargetURL, &a.Status, &a.Attempts, &a.MaxRetries,
			&a.LastAttemptAt, &a.DeliveredAt, &a.NextRetryAt,
			&a.ResponseStatus, &a.ResponseBody, &a.ErrorMessage,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan delivery attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery attempts: %w", err)
	}
	return attempts, nil
}
