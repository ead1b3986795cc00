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

// GormWebhookEventRepository implements WebhookEventRepository using GORM.
// Events are insert-only; Delete is the operator-facing purge.
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

var _ integration.WebhookEventRepository = (*GormWebhookEventRepository)(nil)

// Create appends a received webhook event
func (r *GormWebhookEventRepository) Create(ctx context.Context, event *integration.WebhookEvent) error {
	var model models.WebhookEventModel
	model.FromDomain(event)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByID finds an event by ID within a specific tenant
func (r *GormWebhookEventRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*integration.WebhookEvent, error) {
	var model models.WebhookEventModel
	if err := r.db.WithContext(ctx).Scopes(tenant.Owned(id, tenantID)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrWebhookEventNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists a tenant's webhook events with optional filters, newest first
func (r *GormWebhookEventRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter integration.WebhookEventFilter) ([]integration.WebhookEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.WebhookEventModel{}).Scopes(tenant.Scope(tenantID))

	if filter.IntegrationID != nil {
		query = query.Where("integration_id = ?", *filter.IntegrationID)
	}
	if filter.Provider != nil {
		query = query.Where("provider = ?", *filter.Provider)
	}
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	var eventModels []models.WebhookEventModel
	if err := query.
		Order("received_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&eventModels).Error; err != nil {
		return nil, 0, err
	}

	events := make([]integration.WebhookEvent, len(eventModels))
	for i, model := range eventModels {
		events[i] = *model.ToDomain()
	}
	return events, total, nil
}

// Delete removes an event permanently
func (r *GormWebhookEventRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Scopes(tenant.Owned(id, tenantID)).
		Delete(&models.WebhookEventModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrWebhookEventNotFound
	}
	return nil
}
