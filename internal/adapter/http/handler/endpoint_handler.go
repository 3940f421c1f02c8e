package handler

import (
	"time"

	"contabil-webhook-gateway/internal/adapter/http/dto"
	"contabil-webhook-gateway/internal/core/domain"
	"contabil-webhook-gateway/internal/core/ports"
	"contabil-webhook-gateway/pkg/apperror"
	"contabil-webhook-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EndpointHandler handles endpoint configuration endpoints.
type EndpointHandler struct {
	endpointSvc ports.EndpointService
}

// NewEndpointHandler creates a new EndpointHandler.
func NewEndpointHandler(endpointSvc ports.EndpointService) *EndpointHandler {
	return &EndpointHandler{endpointSvc: endpointSvc}
}

// Create handles POST /api/v1/endpoints.
func (h *EndpointHandler) Create(c *gin.Context) {
	req, ok := bindEndpointRequest(c)
	if !ok {
		return
	}

	endpoint, err := h.endpointSvc.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toEndpointResponse(endpoint))
}

// Update handles PUT /api/v1/endpoints/:id.
func (h *EndpointHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("id must be a valid UUID"))
		return
	}

	req, ok := bindEndpointRequest(c)
	if !ok {
		return
	}

	endpoint, err := h.endpointSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toEndpointResponse(endpoint))
}

// Delete handles DELETE /api/v1/endpoints/:id.
func (h *EndpointHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("id must be a valid UUID"))
		return
	}

	if err := h.endpointSvc.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get handles GET /api/v1/endpoints/:id.
func (h *EndpointHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("id must be a valid UUID"))
		return
	}

	endpoint, err := h.endpointSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toEndpointResponse(endpoint))
}

// List handles GET /api/v1/endpoints.
func (h *EndpointHandler) List(c *gin.Context) {
	endpoints, err := h.endpointSvc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.EndpointResponse, 0, len(endpoints))
	for i := range endpoints {
		items = append(items, toEndpointResponse(&endpoints[i]))
	}
	response.OK(c, items)
}

func bindEndpointRequest(c *gin.Context) (ports.EndpointRequest, bool) {
	var req dto.EndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return ports.EndpointRequest{}, false
	}
	dto.TrimStruct(&req)

	svcReq := ports.EndpointRequest{
		URL:    req.URL,
		Events: req.Events,
		Secret: req.Secret,
		Active: true,
	}
	if req.Active != nil {
		svcReq.Active = *req.Active
	}
	if req.EmpresaID != nil {
		id, err := uuid.Parse(*req.EmpresaID)
		if err != nil {
			response.Error(c, apperror.Validation("empresa_id must be a valid UUID"))
			return ports.EndpointRequest{}, false
		}
		svcReq.EmpresaID = &id
	}
	return svcReq, true
}

func toEndpointResponse(e *domain.WebhookEndpoint) dto.EndpointResponse {
	resp := dto.EndpointResponse{
		ID:        e.ID.String(),
		URL:       e.URL,
		Events:    e.Events,
		HasSecret: e.Secret != nil && *e.Secret != "",
		Active:    e.Active,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: e.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if e.EmpresaID != nil {
		s := e.EmpresaID.String()
		resp.EmpresaID = &s
	}
	return resp
}
