package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the state of one delivery attempt record.
//
// State machine (initial = pending):
//
//	[pending]  ---(2xx)--------------------------------> [delivered]
//	[pending]  ---(non-2xx / transport error, budget left)--> [retrying]
//	[retrying] ---(backoff delay elapsed)--------------> [pending], attempts+1
//	[pending]/[retrying] ---(failure, attempts == max_retries+1)--> [failed]
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusRetrying  DeliveryStatus = "retrying"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// DeliveryAttempt is the unit of work against one target URL for one event.
// One row per (event, target); the same record accumulates the attempt count
// rather than growing a row per try.
type DeliveryAttempt struct {
	ID             uuid.UUID      `json:"id"`
	WebhookID      uuid.UUID      `json:"webhook_id"`
	TargetURL      string         `json:"target_url"`
	Status         DeliveryStatus `json:"status"`
	Attempts       int            `json:"attempts"`
	MaxRetries     int            `json:"max_retries"`
	LastAttemptAt  *time.Time     `json:"last_attempt_at,omitempty"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	NextRetryAt    *time.Time     `json:"next_retry_at,omitempty"`
	ResponseStatus *int           `json:"response_status,omitempty"`
	ResponseBody   *string        `json:"response_body,omitempty"` // truncated for audit
	ErrorMessage   *string        `json:"error_message,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewDeliveryAttempt creates the pending record for one target.
func NewDeliveryAttempt(webhookID uuid.UUID, targetURL string, maxRetries int, now time.Time) *DeliveryAttempt {
	return &DeliveryAttempt{
		ID:         uuid.New(),
		WebhookID:  webhookID,
		TargetURL:  targetURL,
		Status:     DeliveryStatusPending,
		Attempts:   0,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsTerminal reports whether the attempt reached delivered or failed.
func (d *DeliveryAttempt) IsTerminal() bool {
	return d.Status == DeliveryStatusDelivered || d.Status == DeliveryStatusFailed
}

// RetryBudgetLeft reports whether another attempt is allowed.
// Invariant: attempts <= max_retries + 1.
func (d *DeliveryAttempt) RetryBudgetLeft() bool {
	return d.Attempts < d.MaxRetries+1
}

// MarkDelivered records a successful attempt. delivered_at is set only here.
func (d *DeliveryAttempt) MarkDelivered(httpStatus int, body string, at time.Time) {
	d.Status = DeliveryStatusDelivered
	d.Attempts++
	d.ResponseStatus = &httpStatus
	d.ResponseBody = &body
	d.LastAttemptAt = &at
	d.DeliveredAt = &at
	d.NextRetryAt = nil
	d.ErrorMessage = nil
	d.UpdatedAt = at
}

// MarkRetrying records a failed attempt with budget remaining.
// next_retry_at is set only while the attempt is retrying.
func (d *DeliveryAttempt) MarkRetrying(httpStatus *int, body string, errMsg string, nextRetry time.Time, at time.Time) {
	d.Status = DeliveryStatusRetrying
	d.Attempts++
	d.ResponseStatus = httpStatus
	if body != "" {
		d.ResponseBody = &body
	}
	d.ErrorMessage = &errMsg
	d.LastAttemptAt = &at
	d.NextRetryAt = &nextRetry
	d.UpdatedAt = at
}

// Reattempt moves a retrying record back to pending once the backoff elapsed.
func (d *DeliveryAttempt) Reattempt(at time.Time) {
	d.Status = DeliveryStatusPending
	d.NextRetryAt = nil
	d.UpdatedAt = at
}

// MarkFailed records the terminal failure once the retry budget is exhausted,
// or immediately when the target's circuit is open. When consumeAttempt is
// false the attempt counter is left untouched (circuit rejections do not
// spend retry budget).
func (d *DeliveryAttempt) MarkFailed(httpStatus *int, body string, errMsg string, consumeAttempt bool, at time.Time) {
	d.Status = DeliveryStatusFailed
	if consumeAttempt {
		d.Attempts++
	}
	d.ResponseStatus = httpStatus
	if body != "" {
		d.ResponseBody = &body
	}
	d.ErrorMessage = &errMsg
	d.LastAttemptAt = &at
	d.NextRetryAt = nil
	d.UpdatedAt = at
}
