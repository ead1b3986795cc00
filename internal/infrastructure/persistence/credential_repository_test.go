package persistence

import (
	"context"
	"testing"

	"github.com/adhub/backend/internal/domain/integration"
	"github.com/adhub/backend/internal/infrastructure/persistence/models"
	"github.com/adhub/backend/internal/infrastructure/vault"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCredentialTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.CredentialModel{})
	require.NoError(t, err)

	return db
}

func TestGormCredentialStore_SaveAndFind(t *testing.T) {
	db := setupCredentialTestDB(t)
	store := NewGormCredentialStore(db)
	ctx := context.Background()

	record := &vault.CredentialRecord{
		Ref:           uuid.New(),
		TenantID:      uuid.New(),
		IntegrationID: uuid.New(),
		Ciphertext:    "b2c3d4-opaque-ciphertext",
	}
	require.NoError(t, store.Save(ctx, record))

	found, err := store.FindByRef(ctx, record.Ref)
	require.NoError(t, err)
	assert.Equal(t, record.TenantID, found.TenantID)
	assert.Equal(t, record.Ciphertext, found.Ciphertext)
	assert.False(t, found.Revoked)

	_, err = store.FindByRef(ctx, uuid.New())
	assert.ErrorIs(t, err, integration.ErrCredentialNotFound)
}

func TestGormCredentialStore_Destroy(t *testing.T) {
	db := setupCredentialTestDB(t)
	store := NewGormCredentialStore(db)
	ctx := context.Background()

	record := &vault.CredentialRecord{
		Ref:           uuid.New(),
		TenantID:      uuid.New(),
		IntegrationID: uuid.New(),
		Ciphertext:    "b2c3d4-opaque-ciphertext",
	}
	require.NoError(t, store.Save(ctx, record))

	require.NoError(t, store.Destroy(ctx, record.Ref))

	// The row survives for audit but the ciphertext is gone
	found, err := store.FindByRef(ctx, record.Ref)
	require.NoError(t, err)
	assert.True(t, found.Revoked)
	assert.Empty(t, found.Ciphertext)

	assert.ErrorIs(t, store.Destroy(ctx, uuid.New()), integration.ErrCredentialNotFound)
}
