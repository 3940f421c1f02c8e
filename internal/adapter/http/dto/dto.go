package dto

// DispatchRequest is the request body for triggering a webhook dispatch.
type DispatchRequest struct {
	EventType       string                 `json:"event_type" binding:"required"`
	EmpresaID       *string                `json:"empresa_id,omitempty" binding:"omitempty,uuid"`
	Payload         map[string]interface{} `json:"payload" binding:"required"`
	TargetURLs      []string               `json:"target_urls,omitempty" binding:"omitempty,dive,safe_url"`
	RetryConfig     *RetryConfigRequest    `json:"retry_config,omitempty"`
	SignatureSecret *string                `json:"signature_secret,omitempty"`
	TimeoutMs       *int64                 `json:"timeout_ms,omitempty" binding:"omitempty,gt=0"`
}

// RetryConfigRequest overrides the configured retry policy for one dispatch.
type RetryConfigRequest struct {
	MaxRetries         int   `json:"max_retries" binding:"gte=0,lte=10"`
	RetryDelayMs       int64 `json:"retry_delay_ms" binding:"gte=0,lte=60000"`
	ExponentialBackoff *bool `json:"exponential_backoff,omitempty"`
}

// DeliveryResponse is the per-target outcome in a dispatch response.
type DeliveryResponse struct {
	TargetURL      string  `json:"target_url"`
	Status         string  `json:"status"`
	Attempts       int     `json:"attempts"`
	ResponseStatus *int    `json:"response_status,omitempty"`
	Error          *string `json:"error,omitempty"`
	DeliveredAt    *string `json:"delivered_at,omitempty"`
}

// DispatchResponse is the response body for a finished dispatch.
type DispatchResponse struct {
	WebhookID            string             `json:"webhook_id"`
	EventType            string             `json:"event_type"`
	Status               string             `json:"status"`
	TotalTargets         int                `json:"total_targets"`
	SuccessfulDeliveries int                `json:"successful_deliveries"`
	FailedDeliveries     int                `json:"failed_deliveries"`
	PendingDeliveries    int                `json:"pending_deliveries"`
	Deliveries           []DeliveryResponse `json:"deliveries"`
	ProcessingTimeMs     int64              `json:"processing_time_ms"`
}

// EventResponse is one webhook event in detail and list views.
type EventResponse struct {
	ID                   string                 `json:"id"`
	EventType            string                 `json:"event_type"`
	EmpresaID            *string                `json:"empresa_id,omitempty"`
	Payload              map[string]interface{} `json:"payload,omitempty"`
	Status               string                 `json:"status"`
	TargetCount          int                    `json:"target_count"`
	SuccessfulDeliveries int                    `json:"successful_deliveries"`
	FailedDeliveries     int                    `json:"failed_deliveries"`
	CreatedAt            string                 `json:"created_at"`
	CompletedAt          *string                `json:"completed_at,omitempty"`
	Deliveries           []DeliveryResponse     `json:"deliveries,omitempty"`
}

// EventListResponse wraps a paginated event list.
type EventListResponse struct {
	Items      []EventResponse `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// StatsResponse is the aggregate delivery figures.
type StatsResponse struct {
	TotalEvents          int64 `json:"total_events"`
	Completed            int64 `json:"completed"`
	Partial              int64 `json:"partial"`
	Failed               int64 `json:"failed"`
	Processing           int64 `json:"processing"`
	SuccessfulDeliveries int64 `json:"successful_deliveries"`
	FailedDeliveries     int64 `json:"failed_deliveries"`
}

// EndpointRequest is the request body for endpoint create/update.
type EndpointRequest struct {
	URL       string   `json:"url" binding:"required,safe_url"`
	Events    []string `json:"events" binding:"required,min=1"`
	EmpresaID *string  `json:"empresa_id,omitempty" binding:"omitempty,uuid"`
	Secret    *string  `json:"secret,omitempty"`
	Active    *bool    `json:"active,omitempty"` // defaults to true
}

// EndpointResponse is one registered endpoint. The signing secret is never
// echoed back.
type EndpointResponse struct {
	ID        string   `json:"id"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
	EmpresaID *string  `json:"empresa_id,omitempty"`
	HasSecret bool     `json:"has_secret"`
	Active    bool     `json:"active"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// TokenRequest is the request body for exchanging the admin API key for a JWT.
type TokenRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

// TokenResponse is the response body for a successful token exchange.
type TokenResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}
