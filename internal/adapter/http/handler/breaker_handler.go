package handler

import (
	"contabil-webhook-gateway/internal/service"
	"contabil-webhook-gateway/pkg/apperror"
	"contabil-webhook-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// BreakerHandler exposes circuit breaker state for operations.
type BreakerHandler struct {
	registry *service.BreakerRegistry
}

// NewBreakerHandler creates a new BreakerHandler.
func NewBreakerHandler(registry *service.BreakerRegistry) *BreakerHandler {
	return &BreakerHandler{registry: registry}
}

// List handles GET /api/v1/breakers.
func (h *BreakerHandler) List(c *gin.Context) {
	response.OK(c, h.registry.Snapshot())
}

// Reset handles POST /api/v1/breakers/reset. The breaker name (the target
// URL) is taken from the request body to avoid URL-in-path escaping issues.
func (h *BreakerHandler) Reset(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	breaker, ok := h.registry.Lookup(req.Name)
	if !ok {
		response.Error(c, apperror.ErrBreakerNotFound(req.Name))
		return
	}

	breaker.Reset()
	response.OK(c, breaker.Snapshot())
}
