package handler

import (
	"crypto/subtle"
	"net/http"

	"contabil-webhook-gateway/internal/adapter/http/dto"
	"contabil-webhook-gateway/internal/core/ports"
	"contabil-webhook-gateway/pkg/apperror"
	"contabil-webhook-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler exchanges the configured admin API key for a short-lived JWT.
type AuthHandler struct {
	tokenSvc ports.TokenService
	apiKey   string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(tokenSvc ports.TokenService, apiKey string) *AuthHandler {
	return &AuthHandler{tokenSvc: tokenSvc, apiKey: apiKey}
}

// Token handles POST /api/v1/auth/token.
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.TrimStruct(&req)

	if h.apiKey == "" || subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(h.apiKey)) != 1 {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	token, expiry, err := h.tokenSvc.Generate("admin")
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.TokenResponse{
		Token:  token,
		Expiry: expiry.Unix(),
	})
}

// HealthCheck handles GET /health — deep health check verifying all dependencies.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
