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

// GormIntegrationRepository implements IntegrationRepository using GORM
type GormIntegrationRepository struct {
	db *gorm.DB
}

// NewGormIntegrationRepository creates a new GormIntegrationRepository
func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

var _ integration.IntegrationRepository = (*GormIntegrationRepository)(nil)

// FindByID finds an integration by its ID
func (r *GormIntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrIntegrationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds an integration by ID within a specific tenant
func (r *GormIntegrationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*integration.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).Scopes(tenant.Owned(id, tenantID)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrIntegrationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists a tenant's integrations with optional filters and pagination
func (r *GormIntegrationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter integration.IntegrationFilter) ([]integration.Integration, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.IntegrationModel{}).Scopes(tenant.Scope(tenantID))

	if filter.Provider != nil {
		query = query.Where("provider = ?", *filter.Provider)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	var integrationModels []models.IntegrationModel
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&integrationModels).Error; err != nil {
		return nil, 0, err
	}

	integrations := make([]integration.Integration, len(integrationModels))
	for i, model := range integrationModels {
		integrations[i] = *model.ToDomain()
	}
	return integrations, total, nil
}

// FindSyncCandidates returns every active, connected integration across all
// tenants. The scheduler tick filters them further by SyncDue.
func (r *GormIntegrationRepository) FindSyncCandidates(ctx context.Context) ([]integration.Integration, error) {
	var integrationModels []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND status = ?", true, integration.IntegrationStatusConnected).
		Find(&integrationModels).Error; err != nil {
		return nil, err
	}

	integrations := make([]integration.Integration, len(integrationModels))
	for i, model := range integrationModels {
		integrations[i] = *model.ToDomain()
	}
	return integrations, nil
}

// Save creates or updates an integration
func (r *GormIntegrationRepository) Save(ctx context.Context, i *integration.Integration) error {
	var model models.IntegrationModel
	model.FromDomain(i)
	return r.db.WithContext(ctx).Save(&model).Error
}

// Delete removes an integration permanently
func (r *GormIntegrationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.IntegrationModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrIntegrationNotFound
	}
	return nil
}

// normalizePage clamps pagination parameters to sane defaults
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
