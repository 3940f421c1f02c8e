package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"contabil-webhook-gateway/internal/core/domain"
	"contabil-webhook-gateway/internal/core/ports"
	"contabil-webhook-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// outboundPayload is the wire body POSTed to each target. Marshaled exactly
// once per event; the same bytes are signed and transmitted to every target.
type outboundPayload struct {
	ID        string                 `json:"id"`
	Event     string                 `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	EmpresaID *string                `json:"empresa_id,omitempty"`
}

// DispatcherConfig holds the delivery defaults applied when a dispatch
// request does not override them.
type DispatcherConfig struct {
	DefaultRetry      ports.RetryConfig
	DefaultTimeout    time.Duration
	MinTimeout        time.Duration
	MaxTimeout        time.Duration
	ResponseBodyLimit int
	EndpointCacheTTL  time.Duration
}

// resolvedTarget pairs a URL with the signing secret that applies to it.
type resolvedTarget struct {
	url    string
	secret *string
}

// dispatcherService implements ports.DispatcherService.
type dispatcherService struct {
	endpointRepo  ports.EndpointRepository
	endpointCache ports.EndpointCache // nil = cache disabled
	eventRepo     ports.EventRepository
	deliveryRepo  ports.DeliveryRepository
	breakers      *BreakerRegistry
	executor      *deliveryExecutor
	cfg           DispatcherConfig
	log           zerolog.Logger

	sleep func(time.Duration) // injectable for tests
	now   func() time.Time
}

// NewDispatcherService creates the fan-out dispatcher. The breaker registry
// is owned by the caller and shared across concurrent dispatches.
func NewDispatcherService(
	endpointRepo ports.EndpointRepository,
	endpointCache ports.EndpointCache,
	eventRepo ports.EventRepository,
	deliveryRepo ports.DeliveryRepository,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	breakers *BreakerRegistry,
	cfg DispatcherConfig,
	log zerolog.Logger,
) ports.DispatcherService {
	return &dispatcherService{
		endpointRepo:  endpointRepo,
		endpointCache: endpointCache,
		eventRepo:     eventRepo,
		deliveryRepo:  deliveryRepo,
		breakers:      breakers,
		executor:      newDeliveryExecutor(httpClient, sigSvc, cfg.ResponseBodyLimit, log),
		cfg:           cfg,
		log:           log,
		sleep:         time.Sleep,
		now:           time.Now,
	}
}

// Dispatch fans req out to every resolved target, running each target's
// delivery loop on its own goroutine and joining all before finalizing the
// event. Per-target failures never abort sibling deliveries; only an empty
// target list aborts the dispatch.
func (s *dispatcherService) Dispatch(ctx context.Context, req ports.DispatchRequest) (*ports.DispatchResult, error) {
	started := s.now()

	if !req.EventType.IsValid() {
		return nil, apperror.ErrInvalidEventType(string(req.EventType))
	}

	targets, err := s.resolveTargets(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, apperror.ErrNoTargetsConfigured(string(req.EventType))
	}

	event := &domain.WebhookEvent{
		ID:          uuid.New(),
		EventType:   req.EventType,
		EmpresaID:   req.EmpresaID,
		Payload:     req.Payload,
		Status:      domain.EventStatusProcessing,
		TargetCount: len(targets),
		CreatedAt:   started,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		// Best-effort audit trail: a missing record never blocks delivery.
		s.log.Error().Err(err).Str("webhook_id", event.ID.String()).Msg("failed to persist webhook event")
	}

	body, err := s.marshalPayload(event)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	retry := s.effectiveRetry(req.RetryConfig)
	timeout := s.clampTimeout(req.Timeout)

	// Fan out: per-target loops are independent, no ordering between targets.
	attempts := make([]*domain.DeliveryAttempt, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target resolvedTarget) {
			defer wg.Done()
			attempts[i] = s.runDelivery(ctx, event, target, body, retry, timeout)
		}(i, target)
	}
	wg.Wait()

	successful, failed := 0, 0
	for _, a := range attempts {
		switch a.Status {
		case domain.DeliveryStatusDelivered:
			successful++
		case domain.DeliveryStatusFailed:
			failed++
		}
	}

	event.Finalize(successful, failed, s.now())
	if err := s.eventRepo.Update(ctx, event); err != nil {
		s.log.Error().Err(err).Str("webhook_id", event.ID.String()).Msg("failed to finalize webhook event")
	}

	s.log.Info().
		Str("webhook_id", event.ID.String()).
		Str("event_type", string(event.EventType)).
		Str("status", string(event.Status)).
		Int("targets", event.TargetCount).
		Int("successful", successful).
		Int("failed", failed).
		Msg("webhook dispatch finished")

	return s.buildResult(event, attempts, started), nil
}

// resolveTargets returns the delivery targets for the request. Explicit
// target_urls bypass endpoint resolution entirely.
func (s *dispatcherService) resolveTargets(ctx context.Context, req ports.DispatchRequest) ([]resolvedTarget, error) {
	if len(req.TargetURLs) > 0 {
		targets := make([]resolvedTarget, 0, len(req.TargetURLs))
		for _, url := range req.TargetURLs {
			targets = append(targets, resolvedTarget{url: url, secret: req.SignatureSecret})
		}
		return targets, nil
	}

	endpoints, err := s.loadEndpoints(ctx)
	if err != nil {
		return nil, err
	}

	var targets []resolvedTarget
	for i := range endpoints {
		ep := &endpoints[i]
		if !ep.Active || !ep.SubscribesTo(req.EventType) || !ep.MatchesEmpresa(req.EmpresaID) {
			continue
		}
		secret := ep.Secret
		if req.SignatureSecret != nil {
			secret = req.SignatureSecret
		}
		targets = append(targets, resolvedTarget{url: ep.URL, secret: secret})
	}
	return targets, nil
}

// loadEndpoints reads the active endpoint set, preferring the Redis cache and
// falling back to the repository. A cache failure is logged, never fatal.
func (s *dispatcherService) loadEndpoints(ctx context.Context) ([]domain.WebhookEndpoint, error) {
	if s.endpointCache != nil {
		endpoints, hit, err := s.endpointCache.Get(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("endpoint cache read failed, falling back to database")
		} else if hit {
			return endpoints, nil
		}
	}

	endpoints, err := s.endpointRepo.ListActive(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	if s.endpointCache != nil {
		if err := s.endpointCache.Set(ctx, endpoints, s.cfg.EndpointCacheTTL); err != nil {
			s.log.Warn().Err(err).Msg("endpoint cache write failed")
		}
	}
	return endpoints, nil
}

func (s *dispatcherService) marshalPayload(event *domain.WebhookEvent) ([]byte, error) {
	payload := outboundPayload{
		ID:        event.ID.String(),
		Event:     string(event.EventType),
		Timestamp: event.CreatedAt.UTC().Format(time.RFC3339),
		Data:      event.Payload,
	}
	if event.EmpresaID != nil {
		id := event.EmpresaID.String()
		payload.EmpresaID = &id
	}
	return json.Marshal(payload)
}

func (s *dispatcherService) effectiveRetry(override *ports.RetryConfig) ports.RetryConfig {
	if override == nil {
		return s.cfg.DefaultRetry
	}
	retry := *override
	if retry.MaxRetries < 0 {
		retry.MaxRetries = 0
	}
	if retry.RetryDelay <= 0 {
		retry.RetryDelay = s.cfg.DefaultRetry.RetryDelay
	}
	return retry
}

func (s *dispatcherService) clampTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return s.cfg.DefaultTimeout
	}
	if timeout < s.cfg.MinTimeout {
		return s.cfg.MinTimeout
	}
	if timeout > s.cfg.MaxTimeout {
		return s.cfg.MaxTimeout
	}
	return timeout
}

// runDelivery drives one target's DeliveryAttempt state machine to a terminal
// state. The same persisted row accumulates the attempt count; every
// transition updates it (best effort).
func (s *dispatcherService) runDelivery(ctx context.Context, event *domain.WebhookEvent, target resolvedTarget, body []byte, retry ports.RetryConfig, timeout time.Duration) *domain.DeliveryAttempt {
	attempt := domain.NewDeliveryAttempt(event.ID, target.url, retry.MaxRetries, s.now())
	if err := s.deliveryRepo.Create(ctx, attempt); err != nil {
		s.log.Error().Err(err).Str("target_url", target.url).Msg("failed to persist delivery attempt")
	}

	breaker := s.breakers.Get(target.url)

	for {
		var outcome attemptOutcome
		err := breaker.Execute(func() error {
			outcome = s.executor.send(ctx, target.url, body, event.ID.String(), string(event.EventType), target.secret, timeout)
			return outcome.err
		})

		var openErr *CircuitOpenError
		if errors.As(err, &openErr) {
			// Fail fast without consuming retry budget; a later dispatch
			// retries once the breaker cools down.
			attempt.MarkFailed(nil, "", openErr.Error(), false, s.now())
			s.persistAttempt(ctx, attempt)
			s.log.Warn().
				Str("webhook_id", event.ID.String()).
				Str("target_url", target.url).
				Msg("delivery rejected by open circuit breaker")
			return attempt
		}

		now := s.now()
		if outcome.err == nil {
			attempt.MarkDelivered(*outcome.httpStatus, outcome.body, now)
			s.persistAttempt(ctx, attempt)
			s.log.Info().
				Str("webhook_id", event.ID.String()).
				Str("target_url", target.url).
				Int("attempts", attempt.Attempts).
				Msg("webhook delivered")
			return attempt
		}

		errMsg := outcome.err.Error()
		if attempt.Attempts+1 >= retry.MaxRetries+1 {
			attempt.MarkFailed(outcome.httpStatus, outcome.body, errMsg, true, now)
			s.persistAttempt(ctx, attempt)
			s.log.Warn().
				Str("webhook_id", event.ID.String()).
				Str("target_url", target.url).
				Int("attempts", attempt.Attempts).
				Str("error", errMsg).
				Msg("webhook delivery failed, retry budget exhausted")
			return attempt
		}

		delay := NextDelay(attempt.Attempts+1, retry.RetryDelay, retry.ExponentialBackoff)
		attempt.MarkRetrying(outcome.httpStatus, outcome.body, errMsg, now.Add(delay), now)
		s.persistAttempt(ctx, attempt)

		s.log.Debug().
			Str("webhook_id", event.ID.String()).
			Str("target_url", target.url).
			Int("attempt", attempt.Attempts).
			Dur("backoff", delay).
			Msg("webhook delivery failed, retrying")

		s.sleep(delay)
		attempt.Reattempt(s.now())
		s.persistAttempt(ctx, attempt)
	}
}

func (s *dispatcherService) persistAttempt(ctx context.Context, attempt *domain.DeliveryAttempt) {
	if err := s.deliveryRepo.Update(ctx, attempt); err != nil {
		s.log.Error().Err(err).
			Str("webhook_id", attempt.WebhookID.String()).
			Str("target_url", attempt.TargetURL).
			Msg("failed to persist delivery attempt update")
	}
}

func (s *dispatcherService) buildResult(event *domain.WebhookEvent, attempts []*domain.DeliveryAttempt, started time.Time) *ports.DispatchResult {
	deliveries := make([]ports.DeliverySummary, 0, len(attempts))
	pending := 0
	for _, a := range attempts {
		if !a.IsTerminal() {
			pending++
		}
		deliveries = append(deliveries, ports.DeliverySummary{
			TargetURL:      a.TargetURL,
			Status:         string(a.Status),
			Attempts:       a.Attempts,
			ResponseStatus: a.ResponseStatus,
			Error:          a.ErrorMessage,
			DeliveredAt:    a.DeliveredAt,
		})
	}

	return &ports.DispatchResult{
		WebhookID:            event.ID,
		EventType:            event.EventType,
		Status:               event.Status,
		TotalTargets:         event.TargetCount,
		SuccessfulDeliveries: event.SuccessfulDeliveries,
		FailedDeliveries:     event.FailedDeliveries,
		PendingDeliveries:    pending,
		Deliveries:           deliveries,
		ProcessingTimeMs:     s.now().Sub(started).Milliseconds(),
	}
}

// GetEvent returns one event with its per-target delivery history.
func (s *dispatcherService) GetEvent(ctx context.Context, id uuid.UUID) (*domain.WebhookEvent, []domain.DeliveryAttempt, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, apperror.ErrDatabaseError(err)
	}
	if event == nil {
		return nil, nil, apperror.ErrEventNotFound()
	}

	deliveries, err := s.deliveryRepo.GetByWebhookID(ctx, id)
	if err != nil {
		return nil, nil, apperror.ErrDatabaseError(err)
	}
	return event, deliveries, nil
}

// ListEvents returns a page of recent events.
func (s *dispatcherService) ListEvents(ctx context.Context, params ports.EventListParams) ([]domain.WebhookEvent, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	events, total, err := s.eventRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(err)
	}
	return events, total, nil
}

// GetStats returns aggregate delivery figures, optionally per empresa.
func (s *dispatcherService) GetStats(ctx context.Context, empresaID *uuid.UUID) (*ports.EventStats, error) {
	stats, err := s.eventRepo.GetStats(ctx, empresaID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return stats, nil
}
