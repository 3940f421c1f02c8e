package handler

import (
	"math"
	"strconv"
	"time"

	"contabil-webhook-gateway/internal/adapter/http/dto"
	"contabil-webhook-gateway/internal/core/domain"
	"contabil-webhook-gateway/internal/core/ports"
	"contabil-webhook-gateway/pkg/apperror"
	"contabil-webhook-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WebhookHandler handles dispatch and event query endpoints.
type WebhookHandler struct {
	dispatcherSvc ports.DispatcherService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(dispatcherSvc ports.DispatcherService) *WebhookHandler {
	return &WebhookHandler{dispatcherSvc: dispatcherSvc}
}

// Dispatch handles POST /api/v1/webhooks/dispatch.
func (h *WebhookHandler) Dispatch(c *gin.Context) {
	var req dto.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.TrimStruct(&req)

	svcReq := ports.DispatchRequest{
		EventType:       domain.EventType(req.EventType),
		Payload:         req.Payload,
		TargetURLs:      req.TargetURLs,
		SignatureSecret: req.SignatureSecret,
	}
	if req.EmpresaID != nil {
		id, err := uuid.Parse(*req.EmpresaID)
		if err != nil {
			response.Error(c, apperror.Validation("empresa_id must be a valid UUID"))
			return
		}
		svcReq.EmpresaID = &id
	}
	if req.RetryConfig != nil {
		retry := ports.RetryConfig{
			MaxRetries:         req.RetryConfig.MaxRetries,
			RetryDelay:         time.Duration(req.RetryConfig.RetryDelayMs) * time.Millisecond,
			ExponentialBackoff: true,
		}
		if req.RetryConfig.ExponentialBackoff != nil {
			retry.ExponentialBackoff = *req.RetryConfig.ExponentialBackoff
		}
		svcReq.RetryConfig = &retry
	}
	if req.TimeoutMs != nil {
		svcReq.Timeout = time.Duration(*req.TimeoutMs) * time.Millisecond
	}

	result, err := h.dispatcherSvc.Dispatch(c.Request.Context(), svcReq)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toDispatchResponse(result))
}

// GetEvent handles GET /api/v1/webhooks/:id.
func (h *WebhookHandler) GetEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("id must be a valid UUID"))
		return
	}

	event, deliveries, err := h.dispatcherSvc.GetEvent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := toEventResponse(event, true)
	resp.Deliveries = make([]dto.DeliveryResponse, 0, len(deliveries))
	for i := range deliveries {
		resp.Deliveries = append(resp.Deliveries, toDeliveryResponseFromAttempt(&deliveries[i]))
	}
	response.OK(c, resp)
}

// ListEvents handles GET /api/v1/webhooks.
func (h *WebhookHandler) ListEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	params := ports.EventListParams{Page: page, PageSize: pageSize}
	if s := c.Query("empresa_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.Error(c, apperror.Validation("empresa_id must be a valid UUID"))
			return
		}
		params.EmpresaID = &id
	}
	if s := c.Query("event_type"); s != "" {
		et := domain.EventType(s)
		params.EventType = &et
	}
	if s := c.Query("status"); s != "" {
		status := domain.EventStatus(s)
		params.Status = &status
	}

	events, total, err := h.dispatcherSvc.ListEvents(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		items = append(items, toEventResponse(&events[i], false))
	}

	response.OK(c, dto.EventListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	})
}

// GetStats handles GET /api/v1/webhooks/stats.
func (h *WebhookHandler) GetStats(c *gin.Context) {
	var empresaID *uuid.UUID
	if s := c.Query("empresa_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.Error(c, apperror.Validation("empresa_id must be a valid UUID"))
			return
		}
		empresaID = &id
	}

	stats, err := h.dispatcherSvc.GetStats(c.Request.Context(), empresaID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.StatsResponse{
		TotalEvents:          stats.TotalEvents,
		Completed:            stats.Completed,
		Partial:              stats.Partial,
		Failed:               stats.Failed,
		Processing:           stats.Processing,
		SuccessfulDeliveries: stats.SuccessfulDeliveries,
		FailedDeliveries:     stats.FailedDeliveries,
	})
}

func toDispatchResponse(result *ports.DispatchResult) dto.DispatchResponse {
	deliveries := make([]dto.DeliveryResponse, 0, len(result.Deliveries))
	for _, d := range result.Deliveries {
		dr := dto.DeliveryResponse{
			TargetURL:      d.TargetURL,
			Status:         d.Status,
			Attempts:       d.Attempts,
			ResponseStatus: d.ResponseStatus,
			Error:          d.Error,
		}
		if d.DeliveredAt != nil {
			s := d.DeliveredAt.UTC().Format(time.RFC3339)
			dr.DeliveredAt = &s
		}
		deliveries = append(deliveries, dr)
	}

	return dto.DispatchResponse{
		WebhookID:            result.WebhookID.String(),
		EventType:            string(result.EventType),
		Status:               string(result.Status),
		TotalTargets:         result.TotalTargets,
		SuccessfulDeliveries: result.SuccessfulDeliveries,
		FailedDeliveries:     result.FailedDeliveries,
		PendingDeliveries:    result.PendingDeliveries,
		Deliveries:           deliveries,
		ProcessingTimeMs:     result.ProcessingTimeMs,
	}
}

func toEventResponse(e *domain.WebhookEvent, includePayload bool) dto.EventResponse {
	resp := dto.EventResponse{
		ID:                   e.ID.String(),
		EventType:            string(e.EventType),
		Status:               string(e.Status),
		TargetCount:          e.TargetCount,
		SuccessfulDeliveries: e.SuccessfulDeliveries,
		FailedDeliveries:     e.FailedDeliveries,
		CreatedAt:            e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if includePayload {
		resp.Payload = e.Payload
	}
	if e.EmpresaID != nil {
		s := e.EmpresaID.String()
		resp.EmpresaID = &s
	}
	if e.CompletedAt != nil {
		s := e.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}

func toDeliveryResponseFromAttempt(a *domain.DeliveryAttempt) dto.DeliveryResponse {
	dr := dto.DeliveryResponse{
		TargetURL:      a.TargetURL,
		Status:         string(a.Status),
		Attempts:       a.Attempts,
		ResponseStatus: a.ResponseStatus,
		Error:          a.ErrorMessage,
	}
	if a.DeliveredAt != nil {
		s := a.DeliveredAt.UTC().Format(time.RFC3339)
		dr.DeliveredAt = &s
	}
	return dr
}
