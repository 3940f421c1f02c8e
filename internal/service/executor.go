package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"contabil-webhook-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// Outbound delivery headers.
const (
	HeaderWebhookID        = "X-Webhook-ID"
	HeaderWebhookEvent     = "X-Webhook-Event"
	HeaderWebhookSignature = "X-Webhook-Signature"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TransportError is a network-level delivery failure (timeout, connection
// refused, DNS). Retriable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("delivery transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response from the target. Retriable, identically to
// transport errors; the status is preserved for diagnostics.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("delivery failed with HTTP %d", e.StatusCode)
}

// attemptOutcome is the result of one HTTP try against one target.
type attemptOutcome struct {
	httpStatus *int
	body       string
	err        error // nil iff the target answered 2xx
}

// deliveryExecutor performs one bounded-time signed POST to one target.
type deliveryExecutor struct {
	client    HTTPClient
	sigSvc    ports.SignatureService
	bodyLimit int
	log       zerolog.Logger
}

func newDeliveryExecutor(client HTTPClient, sigSvc ports.SignatureService, bodyLimit int, log zerolog.Logger) *deliveryExecutor {
	if bodyLimit <= 0 {
		bodyLimit = 512
	}
	return &deliveryExecutor{client: client, sigSvc: sigSvc, bodyLimit: bodyLimit, log: log}
}

// send POSTs the pre-marshaled body to targetURL within timeout. The body is
// signed as-is when a secret is present; it is never re-serialized here, so
// the signature always matches the transmitted bytes. A timeout is reported
// as a TransportError and treated like any other failed attempt.
func (x *deliveryExecutor) send(ctx context.Context, targetURL string, body []byte, webhookID string, eventType string, secret *string, timeout time.Duration) attemptOutcome {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return attemptOutcome{err: &TransportError{Err: err}}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderWebhookID, webhookID)
	req.Header.Set(HeaderWebhookEvent, eventType)
	if secret != nil && *secret != "" {
		req.Header.Set(HeaderWebhookSignature, x.sigSvc.Sign(*secret, body))
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return attemptOutcome{err: &TransportError{Err: err}}
	}
	defer resp.Body.Close()

	// Keep a truncated response body for the audit trail.
	limited, readErr := io.ReadAll(io.LimitReader(resp.Body, int64(x.bodyLimit)))
	if readErr != nil {
		x.log.Debug().Err(readErr).Str("target_url", targetURL).Msg("failed to read response body")
	}

	status := resp.StatusCode
	outcome := attemptOutcome{httpStatus: &status, body: string(limited)}
	if status < 200 || status >= 300 {
		outcome.err = &HTTPError{StatusCode: status}
	}
	return outcome
}
