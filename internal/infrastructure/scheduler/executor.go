package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adhub/backend/internal/domain/integration"
	"github.com/adhub/backend/internal/domain/shared"
)

// AccessTokenSource yields a valid, non-expired access token for an
// integration, refreshing behind the scenes when needed
type AccessTokenSource interface {
	ValidAccessToken(ctx context.Context, tenantID, integrationID uuid.UUID) (string, error)
}

// MetricsSyncExecutorConfig holds configuration for the executor
type MetricsSyncExecutorConfig struct {
	// RetryAttempts is how many times a transient provider failure is retried
	// within one job before the attempt is recorded as failed
	RetryAttempts uint64
	// RetryInitialInterval is the first backoff delay between retries
	RetryInitialInterval time.Duration
}

// DefaultMetricsSyncExecutorConfig returns default executor configuration
func DefaultMetricsSyncExecutorConfig() MetricsSyncExecutorConfig {
	return MetricsSyncExecutorConfig{
		RetryAttempts:        3,
		RetryInitialInterval: 2 * time.Second,
	}
}

// MetricsSyncExecutor implements SyncExecutor. It walks one job through the
// full pipeline: resolve the integration, obtain a usable token, pull the
// provider window with retries, append the audit record and publish the
// outcome event. Every attempt leaves exactly one history record.
type MetricsSyncExecutor struct {
	config       MetricsSyncExecutorConfig
	integrations integration.IntegrationRepository
	jobs         integration.SyncJobRepository
	history      integration.SyncHistoryRepository
	adapters     integration.AdapterRegistry
	tokens       AccessTokenSource
	publisher    shared.EventPublisher
	logger       *zap.Logger

	// newBackOff builds the retry policy for one job; replaceable in tests
	newBackOff func() backoff.BackOff
}

var _ SyncExecutor = (*MetricsSyncExecutor)(nil)

// NewMetricsSyncExecutor creates a new MetricsSyncExecutor
func NewMetricsSyncExecutor(
	config MetricsSyncExecutorConfig,
	integrations integration.IntegrationRepository,
	jobs integration.SyncJobRepository,
	history integration.SyncHistoryRepository,
	adapters integration.AdapterRegistry,
	tokens AccessTokenSource,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *MetricsSyncExecutor {
	e := &MetricsSyncExecutor{
		config:       config,
		integrations: integrations,
		jobs:         jobs,
		history:      history,
		adapters:     adapters,
		tokens:       tokens,
		publisher:    publisher,
		logger:       logger,
	}
	e.newBackOff = func() backoff.BackOff {
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = config.RetryInitialInterval
		return backoff.WithMaxRetries(policy, config.RetryAttempts)
	}
	return e
}

// Execute runs one sync job end to end
func (e *MetricsSyncExecutor) Execute(ctx context.Context, job *integration.SyncJob) error {
	started := time.Now()

	job.Start()
	if err := e.jobs.Update(ctx, job); err != nil {
		return err
	}

	snapshot, err := e.pull(ctx, job)
	if err != nil {
		return e.recordFailure(ctx, job, err, time.Since(started))
	}
	return e.recordSuccess(ctx, job, snapshot, time.Since(started))
}

// pull resolves the integration and pulls the window, retrying transient
// provider failures with exponential backoff
func (e *MetricsSyncExecutor) pull(ctx context.Context, job *integration.SyncJob) (*integration.MetricsSnapshot, error) {
	i, err := e.integrations.FindByID(ctx, job.IntegrationID)
	if err != nil {
		return nil, err
	}

	adapter, err := e.adapters.Get(i.Provider)
	if err != nil {
		return nil, err
	}

	accessToken, err := e.tokens.ValidAccessToken(ctx, i.TenantID, i.ID)
	if err != nil {
		return nil, err
	}

	req := &integration.PullRequest{
		TenantID:      i.TenantID,
		IntegrationID: i.ID,
		AccessToken:   accessToken,
		Config:        i.Config,
		Window:        job.Window,
	}

	var snapshot *integration.MetricsSnapshot
	operation := func() error {
		result, pullErr := adapter.PullMetrics(ctx, req)
		if pullErr != nil {
			if integration.IsTransientProviderError(pullErr) {
				return pullErr
			}
			return backoff.Permanent(pullErr)
		}
		snapshot = result
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(e.newBackOff(), ctx)); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// recordSuccess appends the audit record, closes the job and advances the
// integration's sync clock
func (e *MetricsSyncExecutor) recordSuccess(ctx context.Context, job *integration.SyncJob, snapshot *integration.MetricsSnapshot, elapsed time.Duration) error {
	record := integration.NewSyncSuccess(job, snapshot, elapsed)
	if err := e.history.Create(ctx, record); err != nil {
		return err
	}

	job.Complete()
	if err := e.jobs.Update(ctx, job); err != nil {
		return err
	}

	if i, err := e.integrations.FindByID(ctx, job.IntegrationID); err == nil {
		i.RecordSuccessfulSync(time.Now())
		if saveErr := e.integrations.Save(ctx, i); saveErr != nil {
			e.logger.Warn("Failed to advance last sync time",
				zap.String("integration_id", i.ID.String()),
				zap.Error(saveErr),
			)
		}
	}

	if err := e.publisher.Publish(ctx, integration.NewSyncCompletedEvent(job, len(snapshot.Records))); err != nil {
		e.logger.Warn("Failed to publish sync completed event",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
	return nil
}

// recordFailure appends the audit record, fails the job and publishes the
// failure event. Cancelled contexts close the job as cancelled instead.
func (e *MetricsSyncExecutor) recordFailure(ctx context.Context, job *integration.SyncJob, cause error, elapsed time.Duration) error {
	if errors.Is(cause, context.DeadlineExceeded) {
		cause = integration.ErrSyncTimeout
	}

	record := integration.NewSyncFailure(job, cause.Error(), elapsed)
	// History writes run on a fresh context: the job context may already be
	// past its deadline at this point.
	recordCtx := context.WithoutCancel(ctx)
	if err := e.history.Create(recordCtx, record); err != nil {
		e.logger.Error("Failed to append sync history record",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}

	if errors.Is(cause, context.Canceled) {
		job.Cancel(cause.Error())
	} else {
		job.Fail(cause.Error())
	}
	if err := e.jobs.Update(recordCtx, job); err != nil {
		return err
	}

	authFailure := errors.Is(cause, integration.ErrReauthorizationRequired) ||
		errors.Is(cause, integration.ErrProviderAuthFailed) ||
		errors.Is(cause, integration.ErrNoGrant)

	if err := e.publisher.Publish(recordCtx, integration.NewSyncFailedEvent(job, cause.Error(), authFailure)); err != nil {
		e.logger.Warn("Failed to publish sync failed event",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
	return cause
}
