package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"contabil-webhook-gateway/internal/core/domain"
	"contabil-webhook-gateway/internal/core/ports"
	"contabil-webhook-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// endpointService implements ports.EndpointService. Every write invalidates
// the Redis endpoint cache so the next dispatch sees the new configuration.
type endpointService struct {
	repo  ports.EndpointRepository
	cache ports.EndpointCache // nil = cache disabled
	log   zerolog.Logger
}

// NewEndpointService creates the endpoint configuration service.
func NewEndpointService(repo ports.EndpointRepository, cache ports.EndpointCache, log zerolog.Logger) ports.EndpointService {
	return &endpointService{repo: repo, cache: cache, log: log}
}

func validateEndpointRequest(req ports.EndpointRequest) error {
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperror.Validation("url must be a valid http(s) URL")
	}
	if len(req.Events) == 0 {
		return apperror.Validation("events must not be empty")
	}
	for _, ev := range req.Events {
		if ev == domain.EventWildcard {
			continue
		}
		if !domain.EventType(ev).IsValid() {
			return apperror.Validation(fmt.Sprintf("unknown event type %q", ev))
		}
	}
	return nil
}

func (s *endpointService) Create(ctx context.Context, req ports.EndpointRequest) (*domain.WebhookEndpoint, error) {
	if err := validateEndpointRequest(req); err != nil {
		return nil, err
	}

	now := time.Now()
	endpoint := &domain.WebhookEndpoint{
		ID:        uuid.New(),
		URL:       req.URL,
		Events:    req.Events,
		EmpresaID: req.EmpresaID,
		Secret:    req.Secret,
		Active:    req.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, endpoint); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	s.invalidateCache(ctx)
	s.log.Info().Str("endpoint_id", endpoint.ID.String()).Str("url", endpoint.URL).Msg("webhook endpoint created")
	return endpoint, nil
}

func (s *endpointService) Update(ctx context.Context, id uuid.UUID, req ports.EndpointRequest) (*domain.WebhookEndpoint, error) {
	if err := validateEndpointRequest(req); err != nil {
		return nil, err
	}

	endpoint, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if endpoint == nil {
		return nil, apperror.ErrEndpointNotFound()
	}

	endpoint.URL = req.URL
	endpoint.Events = req.Events
	endpoint.EmpresaID = req.EmpresaID
	if req.Secret != nil {
		endpoint.Secret = req.Secret
	}
	endpoint.Active = req.Active
	endpoint.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, endpoint); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	s.invalidateCache(ctx)
	s.log.Info().Str("endpoint_id", endpoint.ID.String()).Msg("webhook endpoint updated")
	return endpoint, nil
}

func (s *endpointService) Delete(ctx context.Context, id uuid.UUID) error {
	endpoint, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	if endpoint == nil {
		return apperror.ErrEndpointNotFound()
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return apperror.ErrDatabaseError(err)
	}

	s.invalidateCache(ctx)
	s.log.Info().Str("endpoint_id", id.String()).Msg("webhook endpoint deleted")
	return nil
}

func (s *endpointService) Get(ctx context.Context, id uuid.UUID) (*domain.WebhookEndpoint, error) {
	endpoint, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if endpoint == nil {
		return nil, apperror.ErrEndpointNotFound()
	}
	return endpoint, nil
}

func (s *endpointService) List(ctx context.Context) ([]domain.WebhookEndpoint, error) {
	endpoints, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return endpoints, nil
}

// invalidateCache drops the cached endpoint set after a write. A cache error
// is logged and otherwise ignored; the entry expires on its TTL anyway.
func (s *endpointService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to invalidate endpoint cache")
	}
}
