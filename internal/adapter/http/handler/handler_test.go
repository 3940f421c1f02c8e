package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"contabil-webhook-gateway/internal/adapter/http/dto"
	"contabil-webhook-gateway/internal/core/domain"
	"contabil-webhook-gateway/internal/core/ports"
	"contabil-webhook-gateway/internal/core/ports/mocks"
	"contabil-webhook-gateway/internal/service"
	"contabil-webhook-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func postJSON(t *testing.T, w *httptest.ResponseRecorder, path string, body interface{}) *gin.Context {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	return c
}

func envelopeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response envelope must carry a data object")
	return data
}

// --- Webhook Handler Tests ---

func TestDispatch_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockDispatcherService(ctrl)
	h := NewWebhookHandler(mockSvc)

	webhookID := uuid.New()
	mockSvc.EXPECT().Dispatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ interface{}, req ports.DispatchRequest) (*ports.DispatchResult, error) {
			assert.Equal(t, domain.EventDASGenerated, req.EventType)
			require.NotNil(t, req.RetryConfig)
			assert.Equal(t, 2, req.RetryConfig.MaxRetries)
			assert.Equal(t, 2*time.Second, req.RetryConfig.RetryDelay)
			assert.True(t, req.RetryConfig.ExponentialBackoff)
			assert.Equal(t, 5*time.Second, req.Timeout)
			return &ports.DispatchResult{
				WebhookID:            webhookID,
				EventType:            req.EventType,
				Status:               domain.EventStatusCompleted,
				TotalTargets:         1,
				SuccessfulDeliveries: 1,
			}, nil
		})

	timeoutMs := int64(5000)
	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/webhooks/dispatch", dto.DispatchRequest{
		EventType:   "das_generated",
		Payload:     map[string]interface{}{"das_id": "das-1"},
		RetryConfig: &dto.RetryConfigRequest{MaxRetries: 2, RetryDelayMs: 2000},
		TimeoutMs:   &timeoutMs,
	})

	h.Dispatch(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelopeData(t, w)
	assert.Equal(t, webhookID.String(), data["webhook_id"])
	assert.Equal(t, "completed", data["status"])
}

func TestDispatch_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewWebhookHandler(mocks.NewMockDispatcherService(ctrl))

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/webhooks/dispatch", map[string]interface{}{})

	h.Dispatch(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDispatch_BadEmpresaID(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewWebhookHandler(mocks.NewMockDispatcherService(ctrl))

	bad := "not-a-uuid"
	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/webhooks/dispatch", map[string]interface{}{
		"event_type": "das_generated",
		"payload":    map[string]interface{}{},
		"empresa_id": bad,
	})

	h.Dispatch(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDispatch_NoTargets(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockDispatcherService(ctrl)
	h := NewWebhookHandler(mockSvc)

	mockSvc.EXPECT().Dispatch(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrNoTargetsConfigured("das_generated"))

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/webhooks/dispatch", dto.DispatchRequest{
		EventType: "das_generated",
		Payload:   map[string]interface{}{},
	})

	h.Dispatch(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "WHK_001")
}

func TestGetEvent_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockDispatcherService(ctrl)
	h := NewWebhookHandler(mockSvc)

	id := uuid.New()
	event := &domain.WebhookEvent{
		ID:          id,
		EventType:   domain.EventDocumentProcessed,
		Payload:     map[string]interface{}{"document_id": "doc-1"},
		Status:      domain.EventStatusCompleted,
		TargetCount: 1,
		CreatedAt:   time.Now(),
	}
	deliveredAt := time.Now()
	deliveries := []domain.DeliveryAttempt{{
		WebhookID:   id,
		TargetURL:   "https://erp.example.com.br/hooks",
		Status:      domain.DeliveryStatusDelivered,
		Attempts:    1,
		DeliveredAt: &deliveredAt,
	}}
	mockSvc.EXPECT().GetEvent(gomock.Any(), id).Return(event, deliveries, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/"+id.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.GetEvent(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelopeData(t, w)
	assert.Equal(t, id.String(), data["id"])
	assert.Len(t, data["deliveries"], 1)
}

func TestGetEvent_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockDispatcherService(ctrl)
	h := NewWebhookHandler(mockSvc)

	id := uuid.New()
	mockSvc.EXPECT().GetEvent(gomock.Any(), id).Return(nil, nil, apperror.ErrEventNotFound())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/"+id.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.GetEvent(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetEvent_BadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewWebhookHandler(mocks.NewMockDispatcherService(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	h.GetEvent(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListEvents_Pagination(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockDispatcherService(ctrl)
	h := NewWebhookHandler(mockSvc)

	mockSvc.EXPECT().ListEvents(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ interface{}, params ports.EventListParams) ([]domain.WebhookEvent, int64, error) {
			assert.Equal(t, 2, params.Page)
			assert.Equal(t, 10, params.PageSize)
			require.NotNil(t, params.Status)
			assert.Equal(t, domain.EventStatusPartial, *params.Status)
			return []domain.WebhookEvent{{ID: uuid.New(), CreatedAt: time.Now()}}, 15, nil
		})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/webhooks?page=2&page_size=10&status=partial", nil)

	h.ListEvents(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelopeData(t, w)
	assert.EqualValues(t, 15, data["total"])
	assert.EqualValues(t, 2, data["total_pages"])
}

func TestGetStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockDispatcherService(ctrl)
	h := NewWebhookHandler(mockSvc)

	mockSvc.EXPECT().GetStats(gomock.Any(), nil).Return(&ports.EventStats{
		TotalEvents: 7,
		Completed:   5,
		Partial:     1,
		Failed:      1,
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/stats", nil)

	h.GetStats(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelopeData(t, w)
	assert.EqualValues(t, 7, data["total_events"])
}

// --- Endpoint Handler Tests ---

func TestEndpointCreate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockEndpointService(ctrl)
	h := NewEndpointHandler(mockSvc)

	id := uuid.New()
	secret := "whsec_abc"
	mockSvc.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ interface{}, req ports.EndpointRequest) (*domain.WebhookEndpoint, error) {
			assert.True(t, req.Active, "active defaults to true when omitted")
			return &domain.WebhookEndpoint{
				ID:     id,
				URL:    req.URL,
				Events: req.Events,
				Secret: req.Secret,
				Active: req.Active,
			}, nil
		})

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/endpoints", dto.EndpointRequest{
		URL:    "https://erp.example.com.br/hooks",
		Events: []string{"das_generated"},
		Secret: &secret,
	})

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := envelopeData(t, w)
	assert.Equal(t, id.String(), data["id"])
	assert.Equal(t, true, data["has_secret"])
	assert.NotContains(t, w.Body.String(), secret, "the signing secret must never be echoed")
}

func TestEndpointCreate_InvalidURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewEndpointHandler(mocks.NewMockEndpointService(ctrl))

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/endpoints", map[string]interface{}{
		"url":    "ftp://host/hook",
		"events": []string{"das_generated"},
	})

	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEndpointDelete_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockEndpointService(ctrl)
	h := NewEndpointHandler(mockSvc)

	id := uuid.New()
	mockSvc.EXPECT().Delete(gomock.Any(), id).Return(apperror.ErrEndpointNotFound())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, "/api/v1/endpoints/"+id.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Delete(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "WHK_004")
}

func TestEndpointDelete_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockEndpointService(ctrl)
	h := NewEndpointHandler(mockSvc)

	id := uuid.New()
	mockSvc.EXPECT().Delete(gomock.Any(), id).Return(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, "/api/v1/endpoints/"+id.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
}

// --- Breaker Handler Tests ---

func TestBreakerList(t *testing.T) {
	registry := service.NewBreakerRegistry(service.DefaultBreakerSettings())
	registry.Get("https://erp.example.com.br/hooks")
	h := NewBreakerHandler(registry)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/breakers", nil)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	items := resp["data"].([]interface{})
	require.Len(t, items, 1)
	snap := items[0].(map[string]interface{})
	assert.Equal(t, "https://erp.example.com.br/hooks", snap["name"])
	assert.Equal(t, "CLOSED", snap["state"])
}

func TestBreakerReset(t *testing.T) {
	registry := service.NewBreakerRegistry(service.BreakerSettings{FailureThreshold: 1, ResetTimeout: time.Minute})
	b := registry.Get("https://erp.example.com.br/hooks")
	_ = b.Execute(func() error { return errors.New("down") })
	require.Equal(t, service.BreakerOpen, b.State())

	h := NewBreakerHandler(registry)
	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/breakers/reset", map[string]string{"name": "https://erp.example.com.br/hooks"})

	h.Reset(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.BreakerClosed, b.State())
}

func TestBreakerReset_Unknown(t *testing.T) {
	h := NewBreakerHandler(service.NewBreakerRegistry(service.DefaultBreakerSettings()))

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/breakers/reset", map[string]string{"name": "https://unknown.example.com.br/hook"})

	h.Reset(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "WHK_005")
}

// --- Auth Handler Tests ---

func TestAuthToken_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	h := NewAuthHandler(tokenSvc, "super-secret-api-key")

	expiry := time.Now().Add(24 * time.Hour)
	tokenSvc.EXPECT().Generate("admin").Return("signed-jwt", expiry, nil)

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/auth/token", dto.TokenRequest{APIKey: "super-secret-api-key"})

	h.Token(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelopeData(t, w)
	assert.Equal(t, "signed-jwt", data["token"])
	assert.EqualValues(t, expiry.Unix(), data["expiry"])
}

func TestAuthToken_WrongKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewAuthHandler(mocks.NewMockTokenService(ctrl), "super-secret-api-key")

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/auth/token", dto.TokenRequest{APIKey: "wrong"})

	h.Token(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_002")
}

func TestAuthToken_DisabledWhenUnconfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewAuthHandler(mocks.NewMockTokenService(ctrl), "")

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/api/v1/auth/token", dto.TokenRequest{APIKey: ""})

	// Binding rejects the empty key before the comparison runs.
	h.Token(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Health Handler Tests ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(_ context.Context) error { return s.err }
func (s stubChecker) Name() string                 { return s.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	r := gin.New()
	r.GET("/health", HealthCheck(stubChecker{name: "postgresql"}, stubChecker{name: "redis"}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestHealthCheck_Degraded(t *testing.T) {
	r := gin.New()
	r.GET("/health", HealthCheck(
		stubChecker{name: "postgresql"},
		stubChecker{name: "redis", err: errors.New("connection refused")},
	))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	assert.Contains(t, w.Body.String(), "connection refused")
}

// --- Router Tests ---

func TestRouter_UnauthenticatedRequestsRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate(gomock.Any()).Return(nil, apperror.ErrInvalidToken()).AnyTimes()

	r := SetupRouter(RouterDeps{
		DispatcherSvc: mocks.NewMockDispatcherService(ctrl),
		EndpointSvc:   mocks.NewMockEndpointService(ctrl),
		TokenSvc:      tokenSvc,
		Breakers:      service.NewBreakerRegistry(service.DefaultBreakerSettings()),
		AdminAPIKey:   "key",
		Logger:        zerolog.New(io.Discard),
	})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/webhooks/dispatch"},
		{http.MethodGet, "/api/v1/webhooks"},
		{http.MethodGet, "/api/v1/endpoints"},
		{http.MethodGet, "/api/v1/breakers"},
	}
	for _, p := range paths {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(p.method, p.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", p.method, p.path)
	}
}

func TestRouter_HealthIsPublic(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := SetupRouter(RouterDeps{
		DispatcherSvc: mocks.NewMockDispatcherService(ctrl),
		EndpointSvc:   mocks.NewMockEndpointService(ctrl),
		TokenSvc:      mocks.NewMockTokenService(ctrl),
		Breakers:      service.NewBreakerRegistry(service.DefaultBreakerSettings()),
		Logger:        zerolog.New(io.Discard),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
