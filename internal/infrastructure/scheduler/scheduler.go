package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adhub/backend/internal/domain/integration"
)

// SyncSchedulerConfig holds configuration for the tick scheduler
type SyncSchedulerConfig struct {
	// Enabled indicates if scheduled syncs run at all
	Enabled bool
	// TickInterval is how often due integrations are scanned
	TickInterval time.Duration
	// Lookback is the metrics window length for scheduled pulls
	Lookback time.Duration
	// StaleJobTimeout is the age after which a RUNNING or still-PENDING
	// job is presumed orphaned and released
	StaleJobTimeout time.Duration
}

// DefaultSyncSchedulerConfig returns default scheduler configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		Enabled:         true,
		TickInterval:    time.Minute,
		Lookback:        24 * time.Hour,
		StaleJobTimeout: 30 * time.Minute,
	}
}

// Validate validates the configuration
func (c *SyncSchedulerConfig) Validate() error {
	if c.TickInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.Lookback <= 0 {
		return ErrInvalidConfig
	}
	if c.StaleJobTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// SyncScheduler periodically scans for integrations whose sync frequency has
// elapsed and enqueues one job per due integration. The transactional
// CreateIfIdle in the job repository makes the scan safe to race with manual
// triggers: whoever inserts first wins, the loser is skipped.
type SyncScheduler struct {
	config       SyncSchedulerConfig
	integrations integration.IntegrationRepository
	jobs         integration.SyncJobRepository
	pool         *SyncWorkerPool
	logger       *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncScheduler creates a new SyncScheduler
func NewSyncScheduler(
	config SyncSchedulerConfig,
	integrations integration.IntegrationRepository,
	jobs integration.SyncJobRepository,
	pool *SyncWorkerPool,
	logger *zap.Logger,
) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SyncScheduler{
		config:       config,
		integrations: integrations,
		jobs:         jobs,
		pool:         pool,
		logger:       logger,
	}, nil
}

// Start starts the tick loop
func (s *SyncScheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Sync scheduler disabled by configuration")
		return nil
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Sync scheduler started",
		zap.Duration("tick_interval", s.config.TickInterval),
		zap.Duration("lookback", s.config.Lookback),
	)

	return nil
}

// Stop stops the tick loop
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop ticks until the context is cancelled
func (s *SyncScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduling pass. Exported so a manual pass can be forced in
// tests and admin tooling.
func (s *SyncScheduler) Tick(ctx context.Context) {
	if released, err := s.jobs.ReleaseStale(ctx, time.Now().Add(-s.config.StaleJobTimeout), "worker did not complete in time"); err != nil {
		s.logger.Error("Failed to release stale sync jobs", zap.Error(err))
	} else if released > 0 {
		s.logger.Warn("Released stale sync jobs", zap.Int64("count", released))
	}

	candidates, err := s.integrations.FindSyncCandidates(ctx)
	if err != nil {
		s.logger.Error("Failed to scan sync candidates", zap.Error(err))
		return
	}

	now := time.Now()
	enqueued := 0
	for idx := range candidates {
		i := &candidates[idx]
		if !i.SyncDue(now) {
			continue
		}
		if s.enqueue(ctx, i, now) {
			enqueued++
		}
	}

	if enqueued > 0 {
		s.logger.Info("Scheduled sync jobs",
			zap.Int("enqueued", enqueued),
			zap.Int("candidates", len(candidates)),
		)
	}
}

// enqueue creates and submits one job for a due integration. Returns false
// when the integration already has a job in flight or the queue is full.
func (s *SyncScheduler) enqueue(ctx context.Context, i *integration.Integration, now time.Time) bool {
	window := integration.DefaultMetricsWindow(now, s.config.Lookback)
	job := integration.NewSyncJob(i, integration.TriggerSourceScheduled, window)

	if err := s.jobs.CreateIfIdle(ctx, job); err != nil {
		if errors.Is(err, integration.ErrSyncAlreadyRunning) {
			return false
		}
		s.logger.Error("Failed to create scheduled sync job",
			zap.String("integration_id", i.ID.String()),
			zap.Error(err),
		)
		return false
	}

	if err := s.pool.Submit(job); err != nil {
		// The job row exists but nothing will run it. Release it so the
		// next tick can try again.
		job.Fail(err.Error())
		if updateErr := s.jobs.Update(ctx, job); updateErr != nil {
			s.logger.Error("Failed to release unsubmittable sync job",
				zap.String("job_id", job.ID.String()),
				zap.Error(updateErr),
			)
		}
		s.logger.Warn("Failed to submit scheduled sync job",
			zap.String("integration_id", i.ID.String()),
			zap.Error(err),
		)
		return false
	}
	return true
}
