package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contabil-webhook-gateway/internal/core/domain"
	"contabil-webhook-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EventRepo implements ports.EventRepository on the webhook_logs table.
type EventRepo struct {
	pool Pool
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// Create inserts a new webhook event record.
func (r *EventRepo) Create(ctx context.Context, e *domain.WebhookEvent) error {
	query := `INSERT INTO webhook_logs (id, event_type, empresa_id, payload, status, target_count, successful_deliveries, failed_deliveries, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.EventType, e.EmpresaID, e.Payload, e.Status,
		e.TargetCount, e.SuccessfulDeliveries, e.FailedDeliveries,
		e.CreatedAt, e.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook event: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of an event record.
func (r *EventRepo) Update(ctx context.Context, e *domain.WebhookEvent) error {
	query := `UPDATE webhook_logs
		SET status=$1, successful_deliveries=$2, failed_deliveries=$3, completed_at=$4
		WHERE id=$5`

	_, err := r.pool.Exec(ctx, query,
		e.Status, e.SuccessfulDeliveries, e.FailedDeliveries, e.CompletedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update webhook event: %w", err)
	}
	return nil
}

// GetByID fetches an event by its UUID. Returns (nil, nil) when absent.
func (r *EventRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookEvent, error) {
	query := `SELECT id, event_type, empresa_id, payload, status, target_count, successful_deliveries, failed_deliveries, created_at, completed_at
		FROM webhook_logs WHERE id = $1`

	e := &domain.WebhookEvent{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.EventType, &e.EmpresaID, &e.Payload, &e.Status,
		&e.TargetCount, &e.SuccessfulDeliveries, &e.FailedDeliveries,
		&e.CreatedAt, &e.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook event by id: %w", err)
	}
	return e, nil
}

// List returns a page of events, newest first, with optional filters.
func (r *EventRepo) List(ctx context.Context, params ports.EventListParams) ([]domain.WebhookEvent, int64, error) {
	where, args := buildEventFilter(params)

	var total int64
	countQuery := "SELECT COUNT(*) FROM webhook_logs" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count webhook events: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, event_type, empresa_id, payload, status, target_count, successful_deliveries, failed_deliveries, created_at, completed_at
		FROM webhook_logs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list webhook events: %w", err)
	}
	defer rows.Close()

	var events []domain.WebhookEvent
	for rows.Next() {
		var e domain.WebhookEvent
		if err := rows.Scan(
			&e.ID, &e.EventType, &e.EmpresaID, &e.Payload, &e.Status,
			&e.TargetCount, &e.SuccessfulDeliveries, &e.FailedDeliveries,
			&e.CreatedAt, &e.CompletedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan webhook event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate webhook events: %w", err)
	}
	return events, total, nil
}

func buildEventFilter(params ports.EventListParams) (string, []any) {
	var conds []string
	var args []any

	if params.EmpresaID != nil {
		args = append(args, *params.EmpresaID)
		conds = append(conds, fmt.Sprintf("empresa_id = $%d", len(args)))
	}
	if params.EventType != nil {
		args = append(args, *params.EventType)
		conds = append(conds, fmt.Sprintf("event_type = $%d", len(args)))
	}
	if params.Status != nil {
		args = append(args, *params.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// GetStats aggregates delivery figures, optionally scoped to one empresa.
func (r *EventRepo) GetStats(ctx context.Context, empresaID *uuid.UUID) (*ports.EventStats, error) {
	query := `SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'partial'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COALESCE(SUM(successful_deliveries), 0),
			COALESCE(SUM(failed_deliveries), 0)
		FROM webhook_logs`

	var args []any
	if empresaID != nil {
		query += " WHERE empresa_id = $1"
		args = append(args, *empresaID)
	}

	s := &ports.EventStats{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&s.TotalEvents, &s.Completed, &s.Partial, &s.Failed, &s.Processing,
		&s.SuccessfulDeliveries, &s.FailedDeliveries,
	)
	if err != nil {
		return nil, fmt.Errorf("webhook event stats: %w", err)
	}
	return s, nil
}
