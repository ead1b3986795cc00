package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/adhub/backend/internal/domain/integration"
	"github.com/adhub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSyncHistoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.SyncHistoryModel{})
	require.NoError(t, err)

	return db
}

func recordAttempts(t *testing.T, repo *GormSyncHistoryRepository, job *integration.SyncJob, outcomes []integration.SyncStatus) {
	t.Helper()

	ctx := context.Background()
	base := time.Now().Add(-time.Duration(len(outcomes)) * time.Minute)
	for n, outcome := range outcomes {
		var record *integration.SyncHistory
		if outcome == integration.SyncStatusSuccess {
			record = integration.NewSyncSuccess(job, &integration.MetricsSnapshot{Window: job.Window}, 2*time.Second)
		} else {
			record = integration.NewSyncFailure(job, "provider unavailable", time.Second)
		}
		record.CreatedAt = base.Add(time.Duration(n) * time.Minute)
		require.NoError(t, repo.Create(ctx, record))
	}
}

func TestGormSyncHistoryRepository_RoundTrip(t *testing.T) {
	db := setupSyncHistoryTestDB(t)
	repo := NewGormSyncHistoryRepository(db)
	ctx := context.Background()

	job := newTestSyncJob(t)
	snapshot := &integration.MetricsSnapshot{
		Window: job.Window,
		Records: []integration.MetricRecord{
			{
				Date:        time.Now().Truncate(24 * time.Hour),
				CampaignID:  "cmp-1",
				Impressions: 1200,
				Clicks:      80,
				Conversions: 5,
				Spend:       decimal.NewFromFloat(42.50),
				Revenue:     decimal.NewFromFloat(130.00),
				Currency:    "USD",
			},
		},
	}

	record := integration.NewSyncSuccess(job, snapshot, 3*time.Second)
	require.NoError(t, repo.Create(ctx, record))

	found, err := repo.FindByID(ctx, job.TenantID, record.ID)
	require.NoError(t, err)
	assert.Equal(t, integration.SyncStatusSuccess, found.Status)
	require.NotNil(t, found.Snapshot)
	require.Len(t, found.Snapshot.Records, 1)
	assert.Equal(t, "cmp-1", found.Snapshot.Records[0].CampaignID)
	assert.True(t, found.Snapshot.Records[0].Spend.Equal(decimal.NewFromFloat(42.50)))

	_, err = repo.FindByID(ctx, uuid.New(), record.ID)
	assert.ErrorIs(t, err, integration.ErrSyncHistoryNotFound)
}

func TestGormSyncHistoryRepository_FindAllForTenant(t *testing.T) {
	db := setupSyncHistoryTestDB(t)
	repo := NewGormSyncHistoryRepository(db)
	ctx := context.Background()

	job := newTestSyncJob(t)
	recordAttempts(t, repo, job, []integration.SyncStatus{
		integration.SyncStatusSuccess,
		integration.SyncStatusError,
		integration.SyncStatusSuccess,
	})

	t.Run("lists newest first", func(t *testing.T) {
		records, total, err := repo.FindAllForTenant(ctx, job.TenantID, integration.SyncHistoryFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, records, 3)
		assert.True(t, records[0].CreatedAt.After(records[2].CreatedAt))
	})

	t.Run("filters by status", func(t *testing.T) {
		status := integration.SyncStatusError
		records, total, err := repo.FindAllForTenant(ctx, job.TenantID, integration.SyncHistoryFilter{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, records, 1)
		assert.Equal(t, "provider unavailable", records[0].ErrorMessage)
	})

	t.Run("empty for other tenant", func(t *testing.T) {
		_, total, err := repo.FindAllForTenant(ctx, uuid.New(), integration.SyncHistoryFilter{})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func TestGormSyncHistoryRepository_CountConsecutiveFailures(t *testing.T) {
	db := setupSyncHistoryTestDB(t)
	repo := NewGormSyncHistoryRepository(db)
	ctx := context.Background()

	t.Run("counts trailing failures only", func(t *testing.T) {
		job := newTestSyncJob(t)
		recordAttempts(t, repo, job, []integration.SyncStatus{
			integration.SyncStatusError,
			integration.SyncStatusSuccess,
			integration.SyncStatusError,
			integration.SyncStatusError,
		})

		count, err := repo.CountConsecutiveFailures(ctx, job.IntegrationID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("zero after a success", func(t *testing.T) {
		job := newTestSyncJob(t)
		recordAttempts(t, repo, job, []integration.SyncStatus{
			integration.SyncStatusError,
			integration.SyncStatusSuccess,
		})

		count, err := repo.CountConsecutiveFailures(ctx, job.IntegrationID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("zero with no history", func(t *testing.T) {
		count, err := repo.CountConsecutiveFailures(ctx, uuid.New())
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
