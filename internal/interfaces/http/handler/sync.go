package handler

import (
	"errors"
	"io"

	app "github.com/adhub/backend/internal/application/integration"
	"github.com/adhub/backend/internal/domain/integration"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SyncHandler handles metric sync API endpoints
type SyncHandler struct {
	BaseHandler
	service *app.SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service *app.SyncService) *SyncHandler {
	return &SyncHandler{service: service}
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	ig := rg.Group("/integrations/:id")
	{
		ig.POST("/sync", h.TriggerSync)
		ig.GET("/sync/running", h.GetRunningJob)
		ig.POST("/test", h.TestConnection)
	}
	sg := rg.Group("/sync")
	{
		sg.GET("/jobs/:id", h.GetJob)
		sg.GET("/history", h.ListHistory)
		sg.GET("/history/:id", h.GetHistory)
	}
}

// syncHistoryQuery holds history list filter query parameters
type syncHistoryQuery struct {
	IntegrationID string `form:"integration_id" binding:"omitempty,uuid"`
	Provider      string `form:"provider"`
	Status        string `form:"status"`
	Page          int    `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size,default=20" binding:"omitempty,min=1,max=100"`
}

// TriggerSync godoc
// @ID           triggerIntegrationSync
// @Summary      Trigger a manual sync
// @Description  Enqueues a sync job for the integration. The request body may
// @Description  narrow the metrics window; an empty body uses the default window.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        id path string true "Integration ID"
// @Param        request body app.TriggerSyncRequest false "Optional window override"
// @Success      202 {object} APIResponse[app.SyncJobResponse]
// @Failure      409 {object} ErrorResponse
// @Router       /integrations/{id}/sync [post]
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	var req app.TriggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BadRequest(c, err.Error())
		return
	}

	job, err := h.service.TriggerManualSync(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, app.NewSyncJobResponse(job))
}

// GetRunningJob godoc
// @ID           getRunningIntegrationSync
// @Summary      Get the in-flight sync job
// @Description  Returns the queued or running job for the integration, if any
// @Tags         sync
// @Produce      json
// @Param        id path string true "Integration ID"
// @Success      200 {object} APIResponse[app.SyncJobResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /integrations/{id}/sync/running [get]
func (h *SyncHandler) GetRunningJob(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	job, err := h.service.GetRunningJob(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app.NewSyncJobResponse(job))
}

// TestConnection godoc
// @ID           testIntegrationConnection
// @Summary      Test provider connectivity
// @Description  Performs a read-only identity call against the provider. A
// @Description  failed probe is a 200 with ok=false, not an error.
// @Tags         sync
// @Produce      json
// @Param        id path string true "Integration ID"
// @Success      200 {object} APIResponse[app.ConnectionTestResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /integrations/{id}/test [post]
func (h *SyncHandler) TestConnection(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	result, err := h.service.TestConnection(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetJob godoc
// @ID           getSyncJob
// @Summary      Get a sync job
// @Tags         sync
// @Produce      json
// @Param        id path string true "Job ID"
// @Success      200 {object} APIResponse[app.SyncJobResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /sync/jobs/{id} [get]
func (h *SyncHandler) GetJob(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	job, err := h.service.GetJob(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app.NewSyncJobResponse(job))
}

// ListHistory godoc
// @ID           listSyncHistory
// @Summary      List sync history
// @Description  Lists the tenant's sync attempts newest first. Snapshots are
// @Description  omitted from list rows; fetch a single record for the data.
// @Tags         sync
// @Produce      json
// @Success      200 {object} APIResponse[[]app.SyncHistoryResponse]
// @Router       /sync/history [get]
func (h *SyncHandler) ListHistory(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	var query syncHistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := integration.SyncHistoryFilter{
		Page:     query.Page,
		PageSize: query.PageSize,
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
	if query.Status != "" {
		status := integration.SyncStatus(query.Status)
		filter.Status = &status
	}

	records, total, err := h.service.ListHistory(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, app.NewSyncHistoryListResponse(records), total, filter.Page, filter.PageSize)
}

// GetHistory godoc
// @ID           getSyncHistory
// @Summary      Get a sync history record
// @Description  Returns one sync attempt including its metrics snapshot
// @Tags         sync
// @Produce      json
// @Param        id path string true "History record ID"
// @Success      200 {object} APIResponse[app.SyncHistoryResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /sync/history/{id} [get]
func (h *SyncHandler) GetHistory(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	record, err := h.service.GetHistory(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app.NewSyncHistoryResponse(record, true))
}
