package handler

import (
	app "github.com/adhub/backend/internal/application/integration"
	"github.com/adhub/backend/internal/domain/integration"
	"github.com/gin-gonic/gin"
)

// NotificationHandler handles integration-health notification API endpoints
type NotificationHandler struct {
	BaseHandler
	service *app.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(service *app.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// RegisterRoutes registers notification routes
func (h *NotificationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/notifications")
	{
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.POST("/:id/resolve", h.Resolve)
	}
}

// notificationListQuery holds notification list filter query parameters
type notificationListQuery struct {
	Status   string `form:"status"`
	Severity string `form:"severity"`
	Page     int    `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size,default=20" binding:"omitempty,min=1,max=100"`
}

// List godoc
// @ID           listNotifications
// @Summary      List notifications
// @Description  Lists the tenant's integration-health notifications newest first
// @Tags         notifications
// @Produce      json
// @Success      200 {object} APIResponse[[]app.NotificationResponse]
// @Router       /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	var query notificationListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := integration.NotificationFilter{
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.Status != "" {
		status := integration.NotificationStatus(query.Status)
		filter.Status = &status
	}
	if query.Severity != "" {
		severity := integration.NotificationSeverity(query.Severity)
		filter.Severity = &severity
	}

	items, total, err := h.service.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, app.NewNotificationListResponse(items), total, filter.Page, filter.PageSize)
}

// Get godoc
// @ID           getNotification
// @Summary      Get a notification
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200 {object} APIResponse[app.NotificationResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /notifications/{id} [get]
func (h *NotificationHandler) Get(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	found, err := h.service.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app.NewNotificationResponse(found))
}

// Resolve godoc
// @ID           resolveNotification
// @Summary      Resolve a notification
// @Description  Marks an open notification as resolved. Resolving an already
// @Description  resolved notification is a no-op.
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200 {object} APIResponse[app.NotificationResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /notifications/{id}/resolve [post]
func (h *NotificationHandler) Resolve(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	resolved, err := h.service.Resolve(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app.NewNotificationResponse(resolved))
}
