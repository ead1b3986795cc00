package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adhub/backend/internal/domain/integration"
)

// SyncExecutor runs one sync job end to end: token, pull, history, events
type SyncExecutor interface {
	Execute(ctx context.Context, job *integration.SyncJob) error
}

// SyncWorkerPoolConfig holds configuration for the sync worker pool
type SyncWorkerPoolConfig struct {
	// MaxConcurrentJobs is the number of workers pulling from the queue
	MaxConcurrentJobs int
	// QueueSize is the capacity of the job queue
	QueueSize int
	// JobTimeout is the maximum time a single sync job can run
	JobTimeout time.Duration
}

// DefaultSyncWorkerPoolConfig returns default worker pool configuration
func DefaultSyncWorkerPoolConfig() SyncWorkerPoolConfig {
	return SyncWorkerPoolConfig{
		MaxConcurrentJobs: 5,
		QueueSize:         100,
		JobTimeout:        10 * time.Minute,
	}
}

// Validate validates the configuration
func (c *SyncWorkerPoolConfig) Validate() error {
	if c.MaxConcurrentJobs <= 0 {
		return ErrInvalidConfig
	}
	if c.QueueSize <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// SyncWorkerPool runs sync jobs on a bounded worker pool. The single-flight
// guarantee lives in the job repository; the pool only bounds concurrency
// and enforces the per-job timeout.
type SyncWorkerPool struct {
	config   SyncWorkerPoolConfig
	executor SyncExecutor
	logger   *zap.Logger

	jobs      chan *integration.SyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncWorkerPool creates a new sync worker pool
func NewSyncWorkerPool(config SyncWorkerPoolConfig, executor SyncExecutor, logger *zap.Logger) (*SyncWorkerPool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SyncWorkerPool{
		config:   config,
		executor: executor,
		logger:   logger,
		jobs:     make(chan *integration.SyncJob, config.QueueSize),
	}, nil
}

// Start starts the worker pool
func (p *SyncWorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = true
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.config.MaxConcurrentJobs; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	p.logger.Info("Sync worker pool started",
		zap.Int("workers", p.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", p.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the pool, waiting for in-flight jobs
func (p *SyncWorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	close(p.jobs)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Sync worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("Sync worker pool stop timed out")
		return ctx.Err()
	}
}

// Submit enqueues a job for execution
func (p *SyncWorkerPool) Submit(job *integration.SyncJob) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	p.mu.Unlock()

	select {
	case p.jobs <- job:
		p.logger.Debug("Sync job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", job.TenantID.String()),
			zap.String("provider", string(job.Provider)),
			zap.String("triggered_by", string(job.TriggeredBy)),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// QueueDepth returns the number of jobs waiting in the queue
func (p *SyncWorkerPool) QueueDepth() int {
	return len(p.jobs)
}

// worker processes jobs from the queue
func (p *SyncWorkerPool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	p.logger.Debug("Sync worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Sync worker stopping", zap.Int("worker_id", workerID))
			return
		case job, ok := <-p.jobs:
			if !ok {
				p.logger.Debug("Sync job channel closed", zap.Int("worker_id", workerID))
				return
			}
			p.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job under the configured timeout
func (p *SyncWorkerPool) processJob(ctx context.Context, job *integration.SyncJob, workerID int) {
	p.logger.Info("Processing sync job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("provider", string(job.Provider)),
		zap.Time("window_from", job.Window.From),
		zap.Time("window_to", job.Window.To),
	)

	jobCtx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	defer cancel()

	if err := p.executor.Execute(jobCtx, job); err != nil {
		p.logger.Error("Sync job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", job.TenantID.String()),
			zap.String("provider", string(job.Provider)),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("Sync job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("provider", string(job.Provider)),
	)
}
