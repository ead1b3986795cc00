package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/adhub/backend/internal/domain/integration"
	"github.com/adhub/backend/internal/infrastructure/persistence/models"
	"github.com/adhub/backend/internal/infrastructure/vault"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCredentialStore persists encrypted credential records for the vault.
// It only ever sees ciphertext; encryption happens in the vault layer.
type GormCredentialStore struct {
	db *gorm.DB
}

// NewGormCredentialStore creates a new GormCredentialStore
func NewGormCredentialStore(db *gorm.DB) *GormCredentialStore {
	return &GormCredentialStore{db: db}
}

var _ vault.CredentialStore = (*GormCredentialStore)(nil)

// Save creates or updates a credential record
func (r *GormCredentialStore) Save(ctx context.Context, record *vault.CredentialRecord) error {
	var model models.CredentialModel
	model.FromDomain(record)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByRef loads a credential record by its opaque reference
func (r *GormCredentialStore) FindByRef(ctx context.Context, ref uuid.UUID) (*vault.CredentialRecord, error) {
	var model models.CredentialModel
	if err := r.db.WithContext(ctx).First(&model, "ref = ?", ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrCredentialNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Destroy overwrites the ciphertext and marks the record revoked. The row is
// kept so the reference stays resolvable for audit purposes.
func (r *GormCredentialStore) Destroy(ctx context.Context, ref uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.CredentialModel{}).
		Where("ref = ?", ref).
		Updates(map[string]interface{}{
			"ciphertext": "",
			"revoked":    true,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrCredentialNotFound
	}
	return nil
}
