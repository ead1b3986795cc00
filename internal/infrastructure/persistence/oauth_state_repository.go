package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/adhub/backend/internal/domain/integration"
	"github.com/adhub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuthStateRepository implements AuthStateRepository using GORM
type GormAuthStateRepository struct {
	db *gorm.DB
}

// NewGormAuthStateRepository creates a new GormAuthStateRepository
func NewGormAuthStateRepository(db *gorm.DB) *GormAuthStateRepository {
	return &GormAuthStateRepository{db: db}
}

var _ integration.AuthStateRepository = (*GormAuthStateRepository)(nil)

// Save persists a pending authorization state
func (r *GormAuthStateRepository) Save(ctx context.Context, state *integration.AuthState) error {
	var model models.AuthStateModel
	model.FromDomain(state)
	return r.db.WithContext(ctx).Save(&model).Error
}

// ConsumeByState atomically loads and consumes a state token. The conditional
// update on consumed_at IS NULL is what makes the state single-use under
// concurrent callbacks: only one transaction wins the row.
func (r *GormAuthStateRepository) ConsumeByState(ctx context.Context, state string) (*integration.AuthState, error) {
	var consumed *integration.AuthState

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		result := tx.Model(&models.AuthStateModel{}).
			Where("state = ? AND consumed_at IS NULL", state).
			Update("consumed_at", now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return integration.ErrInvalidAuthState
		}

		var model models.AuthStateModel
		if err := tx.First(&model, "state = ?", state).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return integration.ErrInvalidAuthState
			}
			return err
		}

		if now.After(model.ExpiresAt) {
			return integration.ErrAuthStateExpired
		}

		consumed = model.ToDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return consumed, nil
}

// DeleteExpired removes states whose expiry is in the past
func (r *GormAuthStateRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&models.AuthStateModel{})
	return result.RowsAffected, result.Error
}
