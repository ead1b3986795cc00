package handler

import (
	"net/http"

	app "github.com/adhub/backend/internal/application/integration"
	"github.com/adhub/backend/internal/domain/integration"
	"github.com/adhub/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IntegrationHandler handles integration lifecycle API endpoints
type IntegrationHandler struct {
	BaseHandler
	service *app.IntegrationService
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(service *app.IntegrationService) *IntegrationHandler {
	return &IntegrationHandler{service: service}
}

// RegisterRoutes registers integration routes
func (h *IntegrationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/providers", h.ListProviders)

	g := rg.Group("/integrations")
	{
		g.POST("", h.Create)
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Update)
		g.DELETE("/:id", h.Delete)
		g.POST("/:id/activate", h.Activate)
		g.POST("/:id/deactivate", h.Deactivate)
	}
}

// integrationListQuery holds list filter query parameters
type integrationListQuery struct {
	Provider string `form:"provider"`
	Status   string `form:"status"`
	IsActive *bool  `form:"is_active"`
	Page     int    `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size,default=20" binding:"omitempty,min=1,max=100"`
}

// Create godoc
// @ID           createIntegration
// @Summary      Create an integration
// @Description  Registers a new third-party platform integration for the tenant
// @Tags         integrations
// @Accept       json
// @Produce      json
// @Param        request body app.CreateIntegrationRequest true "Integration to create"
// @Success      201 {object} APIResponse[app.IntegrationResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /integrations [post]
func (h *IntegrationHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	var req app.CreateIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	created, err := h.service.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, app.NewIntegrationResponse(created))
}

// List godoc
// @ID           listIntegrations
// @Summary      List integrations
// @Description  Lists the tenant's integrations with optional provider/status filters
// @Tags         integrations
// @Produce      json
// @Success      200 {object} APIResponse[[]app.IntegrationResponse]
// @Router       /integrations [get]
func (h *IntegrationHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	var query integrationListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := integration.IntegrationFilter{
		Page:     query.Page,
		PageSize: query.PageSize,
		IsActive: query.IsActive,
	}
	if query.Provider != "" {
		provider := integration.ProviderType(query.Provider)
		if !provider.IsValid() {
			h.BadRequest(c, "Unknown provider type")
			return
		}
		filter.Provider = &provider
	}
	if query.Status != "" {
		status := integration.IntegrationStatus(query.Status)
		filter.Status = &status
	}

	items, total, err := h.service.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, app.NewIntegrationListResponse(items), total, filter.Page, filter.PageSize)
}

// providerInfo describes one supported provider type
type providerInfo struct {
	Type        integration.ProviderType `json:"type"`
	DisplayName string                   `json:"display_name"`
}

// ListProviders godoc
// @ID           listIntegrationProviders
// @Summary      List supported provider types
// @Tags         integrations
// @Produce      json
// @Success      200 {object} APIResponse[[]providerInfo]
// @Router       /providers [get]
func (h *IntegrationHandler) ListProviders(c *gin.Context) {
	types := integration.AllProviderTypes()
	out := make([]providerInfo, len(types))
	for n, t := range types {
		out[n] = providerInfo{Type: t, DisplayName: t.DisplayName()}
	}
	h.Success(c, out)
}

// Get godoc
// @ID           getIntegration
// @Summary      Get an integration
// @Tags         integrations
// @Produce      json
// @Param        id path string true "Integration ID"
// @Success      200 {object} APIResponse[app.IntegrationResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /integrations/{id} [get]
func (h *IntegrationHandler) Get(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	found, err := h.service.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app.NewIntegrationResponse(found))
}

// Update godoc
// @ID           updateIntegration
// @Summary      Update an integration
// @Description  Updates mutable integration settings; omitted fields stay unchanged
// @Tags         integrations
// @Accept       json
// @Produce      json
// @Param        id path string true "Integration ID"
// @Param        request body app.UpdateIntegrationRequest true "Fields to update"
// @Success      200 {object} APIResponse[app.IntegrationResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /integrations/{id} [put]
func (h *IntegrationHandler) Update(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	var req app.UpdateIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	updated, err := h.service.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app.NewIntegrationResponse(updated))
}

// Delete godoc
// @ID           deleteIntegration
// @Summary      Delete an integration
// @Description  Revokes any remaining grant at the provider and removes the integration
// @Tags         integrations
// @Param        id path string true "Integration ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /integrations/{id} [delete]
func (h *IntegrationHandler) Delete(c *gin.Context) {
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

// Activate godoc
// @ID           activateIntegration
// @Summary      Activate an integration
// @Tags         integrations
// @Produce      json
// @Param        id path string true "Integration ID"
// @Success      200 {object} APIResponse[app.IntegrationResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /integrations/{id}/activate [post]
func (h *IntegrationHandler) Activate(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	updated, err := h.service.Activate(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app.NewIntegrationResponse(updated))
}

// Deactivate godoc
// @ID           deactivateIntegration
// @Summary      Deactivate an integration
// @Description  Pauses scheduling and webhook acceptance without touching the stored grant
// @Tags         integrations
// @Produce      json
// @Param        id path string true "Integration ID"
// @Success      200 {object} APIResponse[app.IntegrationResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /integrations/{id}/deactivate [post]
func (h *IntegrationHandler) Deactivate(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	updated, err := h.service.Deactivate(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app.NewIntegrationResponse(updated))
}

// tenantAndID pulls the tenant identity and the :id path parameter, writing
// the error response itself when either is missing
func (h *BaseHandler) tenantAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, "Invalid ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, id, true
}
