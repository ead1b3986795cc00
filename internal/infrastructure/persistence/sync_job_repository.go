package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/adhub/backend/internal/domain/integration"
	"github.com/adhub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// nonTerminalJobStatuses are the statuses that count as "in flight" for the
// single-flight check
var nonTerminalJobStatuses = []integration.SyncJobStatus{
	integration.SyncJobStatusPending,
	integration.SyncJobStatusRunning,
}

// GormSyncJobRepository implements SyncJobRepository using GORM
type GormSyncJobRepository struct {
	db *gorm.DB
}

// NewGormSyncJobRepository creates a new GormSyncJobRepository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

var _ integration.SyncJobRepository = (*GormSyncJobRepository)(nil)

// CreateIfIdle inserts the job only when the integration has no non-terminal
// job. The existence check and the insert run in one transaction with any
// conflicting row locked. Locking cannot serialize two triggers racing over
// zero rows, so the partial unique index on active jobs is the final arbiter;
// the loser's duplicate-key error maps to ErrSyncAlreadyRunning.
func (r *GormSyncJobRepository) CreateIfIdle(ctx context.Context, job *integration.SyncJob) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.SyncJobModel{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("integration_id = ? AND status IN ?", job.IntegrationID, nonTerminalJobStatuses).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return integration.ErrSyncAlreadyRunning
		}

		var model models.SyncJobModel
		model.FromDomain(job)
		if err := tx.Create(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return integration.ErrSyncAlreadyRunning
			}
			return err
		}
		return nil
	})
}

// Update persists job state transitions
func (r *GormSyncJobRepository) Update(ctx context.Context, job *integration.SyncJob) error {
	var model models.SyncJobModel
	model.FromDomain(job)
	result := r.db.WithContext(ctx).Model(&models.SyncJobModel{}).
		Where("id = ?", job.ID).
		Select("status", "error", "started_at", "completed_at").
		Updates(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrSyncJobNotFound
	}
	return nil
}

// FindByID finds a sync job by its ID
func (r *GormSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.SyncJob, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSyncJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindNonTerminalByIntegration returns the in-flight job for an integration
func (r *GormSyncJobRepository) FindNonTerminalByIntegration(ctx context.Context, integrationID uuid.UUID) (*integration.SyncJob, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Where("integration_id = ? AND status IN ?", integrationID, nonTerminalJobStatuses).
		Order("enqueued_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSyncJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ReleaseStale fails RUNNING jobs that started before the deadline and
// PENDING jobs enqueued before it. A crashed worker would otherwise hold the
// single-flight slot forever, and so would a PENDING row orphaned by a
// shutdown before any worker picked it up.
func (r *GormSyncJobRepository) ReleaseStale(ctx context.Context, startedBefore time.Time, reason string) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Where("(status = ? AND started_at < ?) OR (status = ? AND enqueued_at < ?)",
			integration.SyncJobStatusRunning, startedBefore,
			integration.SyncJobStatusPending, startedBefore).
		Updates(map[string]interface{}{
			"status":       integration.SyncJobStatusFailed,
			"error":        reason,
			"completed_at": now,
		})
	return result.RowsAffected, result.Error
}
