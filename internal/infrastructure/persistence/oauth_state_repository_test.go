package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/adhub/backend/internal/domain/integration"
	"github.com/adhub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAuthStateTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.AuthStateModel{})
	require.NoError(t, err)

	return db
}

func TestGormAuthStateRepository_ConsumeByState(t *testing.T) {
	db := setupAuthStateTestDB(t)
	repo := NewGormAuthStateRepository(db)
	ctx := context.Background()

	t.Run("consumes a pending state once", func(t *testing.T) {
		state := integration.NewAuthState(uuid.New(), uuid.New(), "https://app.example.com/callback")
		require.NoError(t, repo.Save(ctx, state))

		consumed, err := repo.ConsumeByState(ctx, state.State)
		require.NoError(t, err)
		assert.Equal(t, state.IntegrationID, consumed.IntegrationID)
		assert.Equal(t, state.TenantID, consumed.TenantID)
		assert.NotNil(t, consumed.ConsumedAt)

		// Replay of the same state must be rejected
		_, err = repo.ConsumeByState(ctx, state.State)
		assert.ErrorIs(t, err, integration.ErrInvalidAuthState)
	})

	t.Run("rejects unknown state", func(t *testing.T) {
		_, err := repo.ConsumeByState(ctx, "never-issued")
		assert.ErrorIs(t, err, integration.ErrInvalidAuthState)
	})

	t.Run("rejects expired state", func(t *testing.T) {
		state := integration.NewAuthState(uuid.New(), uuid.New(), "https://app.example.com/callback")
		state.ExpiresAt = time.Now().Add(-time.Minute)
		require.NoError(t, repo.Save(ctx, state))

		_, err := repo.ConsumeByState(ctx, state.State)
		assert.ErrorIs(t, err, integration.ErrAuthStateExpired)
	})
}

func TestGormAuthStateRepository_DeleteExpired(t *testing.T) {
	db := setupAuthStateTestDB(t)
	repo := NewGormAuthStateRepository(db)
	ctx := context.Background()

	expired := integration.NewAuthState(uuid.New(), uuid.New(), "https://app.example.com/callback")
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Save(ctx, expired))

	pending := integration.NewAuthState(uuid.New(), uuid.New(), "https://app.example.com/callback")
	require.NoError(t, repo.Save(ctx, pending))

	deleted, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.ConsumeByState(ctx, pending.State)
	assert.NoError(t, err)
}
