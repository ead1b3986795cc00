package handler

import (
	app "github.com/adhub/backend/internal/application/integration"
	"github.com/adhub/backend/internal/domain/integration"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WebhookHandler handles webhook ingestion and the stored-event management API
type WebhookHandler struct {
	BaseHandler
	service *app.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(service *app.WebhookService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// RegisterRoutes registers webhook routes. The ingest endpoint is public; the
// caller is authenticated by the payload signature, never by a bearer token.
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/:provider/:id", h.Ingest)

	g := rg.Group("/webhook-events")
	{
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.POST("/:id/replay", h.Replay)
		g.DELETE("/:id", h.Delete)
	}

	rg.POST("/webhook-validation", h.Validate)
}

// webhookListQuery holds event list filter query parameters
type webhookListQuery struct {
	IntegrationID string `form:"integration_id" binding:"omitempty,uuid"`
	Provider      string `form:"provider"`
	EventType     string `form:"event_type"`
	Page          int    `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size,default=20" binding:"omitempty,min=1,max=100"`
}

// webhookSignature extracts the delivery signature from the request headers.
// Providers send a bare hex digest in X-Signature or a GitHub-style
// "sha256=<hex>" value in X-Hub-Signature-256. The value is passed through
// untouched; prefix handling belongs to the provider adapter.
func webhookSignature(c *gin.Context) string {
	if sig := c.GetHeader("X-Signature"); sig != "" {
		return sig
	}
	return c.GetHeader("X-Hub-Signature-256")
}

// Ingest godoc
// @ID           ingestWebhook
// @Summary      Receive a provider webhook
// @Description  Verifies the payload signature and records the event. Rejected
// @Description  deliveries leave no trace.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        provider path string true "Provider type"
// @Param        id       path string true "Integration ID"
// @Success      200 {object} APIResponse[app.WebhookEventResponse]
// @Failure      401 {object} ErrorResponse
// @Router       /webhooks/{provider}/{id} [post]
func (h *WebhookHandler) Ingest(c *gin.Context) {
	provider := integration.ProviderType(c.Param("provider"))
	integrationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid integration ID")
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	eventType := c.GetHeader("X-Event-Type")
	if eventType == "" {
		eventType = c.Query("event_type")
	}

	event, err := h.service.Ingest(c.Request.Context(), provider, integrationID,
		eventType, payload, webhookSignature(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app.NewWebhookEventResponse(event, false))
}

// List godoc
// @ID           listWebhookEvents
// @Summary      List stored webhook events
// @Description  Lists the tenant's received events newest first, without payloads
// @Tags         webhooks
// @Produce      json
// @Success      200 {object} APIResponse[[]app.WebhookEventResponse]
// @Router       /webhook-events [get]
func (h *WebhookHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	var query webhookListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := integration.WebhookEventFilter{
		EventType: query.EventType,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if query.IntegrationID != "" {
		id := uuid.MustParse(query.IntegrationID)
		filter.IntegrationID = &id
	}
	if query.Provider != "" {
		provider := integration.ProviderType(query.Provider)
		if !provider.IsValid() {
			h.BadRequest(c, "Unknown provider type")
			return
		}
		filter.Provider = &provider
	}

	events, total, err := h.service.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, app.NewWebhookEventListResponse(events), total, filter.Page, filter.PageSize)
}

// Get godoc
// @ID           getWebhookEvent
// @Summary      Get a stored webhook event
// @Description  Returns one event including its raw payload
// @Tags         webhooks
// @Produce      json
// @Param        id path string true "Event ID"
// @Success      200 {object} APIResponse[app.WebhookEventResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /webhook-events/{id} [get]
func (h *WebhookHandler) Get(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	event, err := h.service.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app.NewWebhookEventResponse(event, true))
}

// replayResult reports whether a replay actually re-ran processing
type replayResult struct {
	Event    *app.WebhookEventResponse `json:"event"`
	Replayed bool                      `json:"replayed"`
}

// Replay godoc
// @ID           replayWebhookEvent
// @Summary      Replay a stored webhook event
// @Description  Re-runs processing for the event. Repeating a replay within
// @Description  the dedup window is a no-op reported as replayed=false.
// @Tags         webhooks
// @Produce      json
// @Param        id path string true "Event ID"
// @Success      200 {object} APIResponse[replayResult]
// @Failure      404 {object} ErrorResponse
// @Router       /webhook-events/{id}/replay [post]
func (h *WebhookHandler) Replay(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	event, replayed, err := h.service.Replay(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, replayResult{
		Event:    app.NewWebhookEventResponse(event, false),
		Replayed: replayed,
	})
}

// Validate godoc
// @ID           validateWebhookSignature
// @Summary      Validate a webhook signature
// @Description  Checks a payload/signature pair against the provider's signing
// @Description  rules without storing anything. Useful while setting up a
// @Description  subscription.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        request body app.ValidateWebhookRequest true "Payload and signature to check"
// @Success      200 {object} APIResponse[app.ValidateWebhookResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /webhook-validation [post]
func (h *WebhookHandler) Validate(c *gin.Context) {
	var req app.ValidateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	valid, err := h.service.ValidateSignature(
		integration.ProviderType(req.Provider), []byte(req.Payload), req.Signature)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app.ValidateWebhookResponse{Valid: valid})
}

// Delete godoc
// @ID           deleteWebhookEvent
// @Summary      Delete a stored webhook event
// @Tags         webhooks
// @Param        id path string true "Event ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /webhook-events/{id} [delete]
func (h *WebhookHandler) Delete(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
