package persistence

import (
	"context"
	"errors"

	"github.com/adhub/backend/internal/domain/integration"
	"github.com/adhub/backend/internal/infrastructure/persistence/models"
	"github.com/adhub/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormNotificationRepository implements NotificationRepository using GORM
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

var _ integration.NotificationRepository = (*GormNotificationRepository)(nil)

// Save creates or updates a notification
func (r *GormNotificationRepository) Save(ctx context.Context, notification *integration.Notification) error {
	var model models.NotificationModel
	model.FromDomain(notification)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByID finds a notification by ID within a specific tenant
func (r *GormNotificationRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*integration.Notification, error) {
	var model models.NotificationModel
	if err := r.db.WithContext(ctx).Scopes(tenant.Owned(id, tenantID)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrNotificationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists a tenant's notifications with optional filters, newest first
func (r *GormNotificationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter integration.NotificationFilter) ([]integration.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.NotificationModel{}).Scopes(tenant.Scope(tenantID))

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Severity != nil {
		query = query.Where("severity = ?", *filter.Severity)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	var notificationModels []models.NotificationModel
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&notificationModels).Error; err != nil {
		return nil, 0, err
	}

	notifications := make([]integration.Notification, len(notificationModels))
	for i, model := range notificationModels {
		notifications[i] = *model.ToDomain()
	}
	return notifications, total, nil
}

// FindOpenByCause returns the open notification for an integration and cause.
// The notification engine uses it to deduplicate repeated alerts.
func (r *GormNotificationRepository) FindOpenByCause(ctx context.Context, integrationID uuid.UUID, cause integration.NotificationCause) (*integration.Notification, error) {
	var model models.NotificationModel
	if err := r.db.WithContext(ctx).
		Where("integration_id = ? AND cause = ? AND status = ?",
			integrationID, cause, integration.NotificationStatusOpen).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrNotificationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenByIntegration returns every open notification for an integration
func (r *GormNotificationRepository) FindOpenByIntegration(ctx context.Context, integrationID uuid.UUID) ([]integration.Notification, error) {
	var notificationModels []models.NotificationModel
	if err := r.db.WithContext(ctx).
		Where("integration_id = ? AND status = ?", integrationID, integration.NotificationStatusOpen).
		Order("created_at DESC").
		Find(&notificationModels).Error; err != nil {
		return nil, err
	}

	notifications := make([]integration.Notification, len(notificationModels))
	for i, model := range notificationModels {
		notifications[i] = *model.ToDomain()
	}
	return notifications, nil
}
