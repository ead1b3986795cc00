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

// consecutiveFailureScanLimit caps how far back CountConsecutiveFailures
// scans. Anything past this is long since alerted on.
const consecutiveFailureScanLimit = 50

// GormSyncHistoryRepository implements SyncHistoryRepository using GORM.
// The audit trail is insert-only; there is deliberately no Update method.
type GormSyncHistoryRepository struct {
	db *gorm.DB
}

// NewGormSyncHistoryRepository creates a new GormSyncHistoryRepository
func NewGormSyncHistoryRepository(db *gorm.DB) *GormSyncHistoryRepository {
	return &GormSyncHistoryRepository{db: db}
}

var _ integration.SyncHistoryRepository = (*GormSyncHistoryRepository)(nil)

// Create appends a sync attempt record
func (r *GormSyncHistoryRepository) Create(ctx context.Context, record *integration.SyncHistory) error {
	var model models.SyncHistoryModel
	model.FromDomain(record)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByID finds a history record by ID within a specific tenant
func (r *GormSyncHistoryRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*integration.SyncHistory, error) {
	var model models.SyncHistoryModel
	if err := r.db.WithContext(ctx).Scopes(tenant.Owned(id, tenantID)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSyncHistoryNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists a tenant's sync history with optional filters, newest first
func (r *GormSyncHistoryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter integration.SyncHistoryFilter) ([]integration.SyncHistory, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SyncHistoryModel{}).Scopes(tenant.Scope(tenantID))

	if filter.IntegrationID != nil {
		query = query.Where("integration_id = ?", *filter.IntegrationID)
	}
	if filter.Provider != nil {
		query = query.Where("provider = ?", *filter.Provider)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	var historyModels []models.SyncHistoryModel
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&historyModels).Error; err != nil {
		return nil, 0, err
	}

	records := make([]integration.SyncHistory, len(historyModels))
	for i, model := range historyModels {
		records[i] = *model.ToDomain()
	}
	return records, total, nil
}

// CountConsecutiveFailures returns how many of the integration's most recent
// records are errors, stopping at the first success
func (r *GormSyncHistoryRepository) CountConsecutiveFailures(ctx context.Context, integrationID uuid.UUID) (int, error) {
	var statuses []integration.SyncStatus
	if err := r.db.WithContext(ctx).
		Model(&models.SyncHistoryModel{}).
		Where("integration_id = ?", integrationID).
		Order("created_at DESC").
		Limit(consecutiveFailureScanLimit).
		Pluck("status", &statuses).Error; err != nil {
		return 0, err
	}

	count := 0
	for _, status := range statuses {
		if status != integration.SyncStatusError {
			break
		}
		count++
	}
	return count, nil
}
