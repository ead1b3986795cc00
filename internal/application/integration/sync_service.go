package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adhub/backend/internal/domain/integration"
)

// DefaultManualSyncLookback is the window length of a manual sync when the
// caller does not narrow it
const DefaultManualSyncLookback = 24 * time.Hour

// JobSubmitter hands an accepted sync job to the execution backend. The
// worker pool in infrastructure/scheduler is the production implementation.
type JobSubmitter interface {
	Submit(job *integration.SyncJob) error
}

// SyncService exposes manual sync triggers, connectivity tests and the sync
// audit trail. Scheduled syncs go through the same job repository, so the
// single-flight invariant holds across both paths.
type SyncService struct {
	integrations integration.IntegrationRepository
	jobs         integration.SyncJobRepository
	history      integration.SyncHistoryRepository
	adapters     integration.AdapterRegistry
	tokens       *TokenService
	pool         JobSubmitter
	logger       *zap.Logger
}

// NewSyncService creates a new SyncService
func NewSyncService(
	integrations integration.IntegrationRepository,
	jobs integration.SyncJobRepository,
	history integration.SyncHistoryRepository,
	adapters integration.AdapterRegistry,
	tokens *TokenService,
	pool JobSubmitter,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		integrations: integrations,
		jobs:         jobs,
		history:      history,
		adapters:     adapters,
		tokens:       tokens,
		pool:         pool,
		logger:       logger,
	}
}

// TriggerManualSync enqueues a sync for an integration right now. Returns
// ErrSyncAlreadyRunning when a job is already in flight.
func (s *SyncService) TriggerManualSync(ctx context.Context, tenantID, integrationID uuid.UUID, req TriggerSyncRequest) (*integration.SyncJob, error) {
	i, err := s.integrations.FindByIDForTenant(ctx, tenantID, integrationID)
	if err != nil {
		return nil, err
	}
	if !i.IsActive {
		return nil, integration.ErrIntegrationNotFound
	}
	if i.CredentialRef == nil {
		return nil, integration.ErrNoGrant
	}

	window := integration.DefaultMetricsWindow(time.Now(), DefaultManualSyncLookback)
	if req.WindowFrom != nil && req.WindowTo != nil && req.WindowTo.After(*req.WindowFrom) {
		window = integration.MetricsWindow{From: *req.WindowFrom, To: *req.WindowTo}
	}

	job := integration.NewSyncJob(i, integration.TriggerSourceManual, window)
	if err := s.jobs.CreateIfIdle(ctx, job); err != nil {
		return nil, err
	}

	if err := s.pool.Submit(job); err != nil {
		job.Fail(err.Error())
		if updateErr := s.jobs.Update(ctx, job); updateErr != nil {
			s.logger.Error("Failed to release unsubmittable manual sync job",
				zap.String("job_id", job.ID.String()),
				zap.Error(updateErr),
			)
		}
		return nil, err
	}

	s.logger.Info("Manual sync triggered",
		zap.String("integration_id", integrationID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("job_id", job.ID.String()),
	)
	return job, nil
}

// GetJob returns a sync job scoped to a tenant
func (s *SyncService) GetJob(ctx context.Context, tenantID, jobID uuid.UUID) (*integration.SyncJob, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.TenantID != tenantID {
		return nil, integration.ErrSyncJobNotFound
	}
	return job, nil
}

// GetRunningJob returns the in-flight job for an integration, if any
func (s *SyncService) GetRunningJob(ctx context.Context, tenantID, integrationID uuid.UUID) (*integration.SyncJob, error) {
	if _, err := s.integrations.FindByIDForTenant(ctx, tenantID, integrationID); err != nil {
		return nil, err
	}
	return s.jobs.FindNonTerminalByIntegration(ctx, integrationID)
}

// TestConnection performs a read-only identity call against the provider
// without recording any history
func (s *SyncService) TestConnection(ctx context.Context, tenantID, integrationID uuid.UUID) (*ConnectionTestResponse, error) {
	i, err := s.integrations.FindByIDForTenant(ctx, tenantID, integrationID)
	if err != nil {
		return nil, err
	}

	adapter, err := s.adapters.Get(i.Provider)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.ValidAccessToken(ctx, tenantID, integrationID)
	if err != nil {
		return nil, err
	}

	result, err := adapter.TestConnection(ctx, accessToken, i.Config)
	if err != nil {
		return &ConnectionTestResponse{OK: false, Message: err.Error()}, nil
	}
	return &ConnectionTestResponse{
		OK:          result.OK,
		AccountName: result.AccountName,
		Message:     result.Message,
	}, nil
}

// ListHistory lists a tenant's sync attempts, newest first
func (s *SyncService) ListHistory(ctx context.Context, tenantID uuid.UUID, filter integration.SyncHistoryFilter) ([]integration.SyncHistory, int64, error) {
	return s.history.FindAllForTenant(ctx, tenantID, filter)
}

// GetHistory returns one sync attempt including its snapshot
func (s *SyncService) GetHistory(ctx context.Context, tenantID, id uuid.UUID) (*integration.SyncHistory, error) {
	return s.history.FindByID(ctx, tenantID, id)
}
