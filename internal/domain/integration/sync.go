package integration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Sync Errors
// ---------------------------------------------------------------------------

var (
	ErrSyncAlreadyRunning  = errors.New("integration: a sync is already running for this integration")
	ErrSyncTimeout         = errors.New("integration: sync timed out")
	ErrSyncJobNotFound     = errors.New("integration: sync job not found")
	ErrSyncHistoryNotFound = errors.New("integration: sync history record not found")
)

// ---------------------------------------------------------------------------
// Sync Status / Trigger
// ---------------------------------------------------------------------------

// SyncStatus represents the outcome recorded for one sync attempt
type SyncStatus string

const (
	// SyncStatusPending indicates the attempt is still running
	SyncStatusPending SyncStatus = "PENDING"
	// SyncStatusSuccess indicates the attempt completed
	SyncStatusSuccess SyncStatus = "SUCCESS"
	// SyncStatusError indicates the attempt failed
	SyncStatusError SyncStatus = "ERROR"
)

// IsValid returns true if the status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSuccess, SyncStatusError:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once the attempt can no longer change
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusSuccess || s == SyncStatusError
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// TriggerSource records what caused a sync attempt
type TriggerSource string

const (
	// TriggerSourceScheduled marks syncs enqueued by the tick scheduler
	TriggerSourceScheduled TriggerSource = "SCHEDULED"
	// TriggerSourceManual marks syncs requested through the API
	TriggerSourceManual TriggerSource = "MANUAL"
	// TriggerSourceReplay marks processing passes driven by webhook replay
	TriggerSourceReplay TriggerSource = "REPLAY"
)

// IsValid returns true if the trigger source is valid
func (t TriggerSource) IsValid() bool {
	switch t {
	case TriggerSourceScheduled, TriggerSourceManual, TriggerSourceReplay:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Normalized Metrics
// ---------------------------------------------------------------------------

// MetricsWindow is the half-open time range [From, To) a sync pulls
type MetricsWindow struct {
	From time.Time
	To   time.Time
}

// DefaultMetricsWindow returns the window ending now and starting lookback ago
func DefaultMetricsWindow(now time.Time, lookback time.Duration) MetricsWindow {
	return MetricsWindow{From: now.Add(-lookback), To: now}
}

// MetricRecord is one normalized performance row in the shared schema.
// Every provider adapter maps its wire format into this shape.
type MetricRecord struct {
	// Date is the reporting day the row belongs to
	Date time.Time `json:"date"`
	// CampaignID is the provider-side campaign identifier
	CampaignID string `json:"campaign_id"`
	// CampaignName is the human name of the campaign
	CampaignName string `json:"campaign_name,omitempty"`
	Impressions  int64  `json:"impressions"`
	Clicks       int64  `json:"clicks"`
	Conversions  int64  `json:"conversions"`
	// Spend is the advertising spend in Currency
	Spend decimal.Decimal `json:"spend"`
	// Revenue is attributed revenue in Currency, zero when the provider
	// does not report it
	Revenue  decimal.Decimal `json:"revenue"`
	Currency string          `json:"currency"`
}

// MetricsSnapshot is the normalized payload persisted with a successful sync
type MetricsSnapshot struct {
	Window  MetricsWindow  `json:"window"`
	Records []MetricRecord `json:"records"`
}

// ---------------------------------------------------------------------------
// SyncJob (in-flight registry)
// ---------------------------------------------------------------------------

// SyncJobStatus represents the status of a queued or running sync job
type SyncJobStatus string

const (
	SyncJobStatusPending   SyncJobStatus = "PENDING"
	SyncJobStatusRunning   SyncJobStatus = "RUNNING"
	SyncJobStatusSuccess   SyncJobStatus = "SUCCESS"
	SyncJobStatusFailed    SyncJobStatus = "FAILED"
	SyncJobStatusCancelled SyncJobStatus = "CANCELLED"
)

// IsTerminal returns true once the job will never run again
func (s SyncJobStatus) IsTerminal() bool {
	switch s {
	case SyncJobStatusSuccess, SyncJobStatusFailed, SyncJobStatusCancelled:
		return true
	default:
		return false
	}
}

// SyncJob is one attempt to pull fresh data for an integration. At most one
// non-terminal job may exist per integration at any time; the repository
// enforces this transactionally.
type SyncJob struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	IntegrationID uuid.UUID
	Provider      ProviderType
	TriggeredBy   TriggerSource
	Status        SyncJobStatus
	Window        MetricsWindow
	Error         string
	EnqueuedAt    time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// NewSyncJob creates a pending sync job for an integration
func NewSyncJob(i *Integration, triggeredBy TriggerSource, window MetricsWindow) *SyncJob {
	return &SyncJob{
		ID:            uuid.New(),
		TenantID:      i.TenantID,
		IntegrationID: i.ID,
		Provider:      i.Provider,
		TriggeredBy:   triggeredBy,
		Status:        SyncJobStatusPending,
		Window:        window,
		EnqueuedAt:    time.Now(),
	}
}

// Start marks the job as running
func (j *SyncJob) Start() {
	now := time.Now()
	j.Status = SyncJobStatusRunning
	j.StartedAt = &now
}

// Complete marks the job as successful
func (j *SyncJob) Complete() {
	now := time.Now()
	j.Status = SyncJobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed with a reason
func (j *SyncJob) Fail(reason string) {
	now := time.Now()
	j.Status = SyncJobStatusFailed
	j.Error = reason
	j.CompletedAt = &now
}

// Cancel marks the job as cancelled (e.g. shutdown before it ran)
func (j *SyncJob) Cancel(reason string) {
	now := time.Now()
	j.Status = SyncJobStatusCancelled
	j.Error = reason
	j.CompletedAt = &now
}

// SyncJobRepository persists sync jobs and guards the single-flight invariant
type SyncJobRepository interface {
	// CreateIfIdle inserts the job only when the integration has no
	// non-terminal job. Returns ErrSyncAlreadyRunning otherwise. The check
	// and insert happen in one transaction.
	CreateIfIdle(ctx context.Context, job *SyncJob) error
	Update(ctx context.Context, job *SyncJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*SyncJob, error)
	// FindNonTerminalByIntegration returns the in-flight job for an
	// integration, or ErrSyncJobNotFound when it is idle
	FindNonTerminalByIntegration(ctx context.Context, integrationID uuid.UUID) (*SyncJob, error)
	// ReleaseStale fails RUNNING jobs started before the deadline and
	// PENDING jobs enqueued before it. Keeps a crashed worker or an
	// orphaned queue entry from deadlocking the single-flight invariant.
	ReleaseStale(ctx context.Context, startedBefore time.Time, reason string) (int64, error)
}

// ---------------------------------------------------------------------------
// SyncHistory (immutable audit trail)
// ---------------------------------------------------------------------------

// SyncHistory is the immutable audit record of one sync attempt. A record is
// created once per attempt and never mutated after completion; retries create
// new records.
type SyncHistory struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	IntegrationID uuid.UUID
	JobID         uuid.UUID
	Provider      ProviderType
	TriggeredBy   TriggerSource
	Status        SyncStatus
	// Snapshot holds the normalized payload on success, nil otherwise
	Snapshot *MetricsSnapshot
	// ErrorMessage holds the failure reason on error, empty otherwise
	ErrorMessage string
	// DurationMS is the wall-clock duration of the attempt
	DurationMS int64
	CreatedAt  time.Time
}

// NewSyncSuccess records a successful attempt
func NewSyncSuccess(job *SyncJob, snapshot *MetricsSnapshot, duration time.Duration) *SyncHistory {
	return &SyncHistory{
		ID:            uuid.New(),
		TenantID:      job.TenantID,
		IntegrationID: job.IntegrationID,
		JobID:         job.ID,
		Provider:      job.Provider,
		TriggeredBy:   job.TriggeredBy,
		Status:        SyncStatusSuccess,
		Snapshot:      snapshot,
		DurationMS:    duration.Milliseconds(),
		CreatedAt:     time.Now(),
	}
}

// NewSyncFailure records a failed attempt
func NewSyncFailure(job *SyncJob, reason string, duration time.Duration) *SyncHistory {
	return &SyncHistory{
		ID:            uuid.New(),
		TenantID:      job.TenantID,
		IntegrationID: job.IntegrationID,
		JobID:         job.ID,
		Provider:      job.Provider,
		TriggeredBy:   job.TriggeredBy,
		Status:        SyncStatusError,
		ErrorMessage:  reason,
		DurationMS:    duration.Milliseconds(),
		CreatedAt:     time.Now(),
	}
}

// SyncHistoryFilter holds query options for listing sync history
type SyncHistoryFilter struct {
	IntegrationID *uuid.UUID
	Provider      *ProviderType
	Status        *SyncStatus
	Page          int
	PageSize      int
}

// SyncHistoryRepository persists the immutable sync audit trail.
// Implementations must never update an existing record.
type SyncHistoryRepository interface {
	Create(ctx context.Context, record *SyncHistory) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*SyncHistory, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter SyncHistoryFilter) ([]SyncHistory, int64, error)
	// CountConsecutiveFailures returns how many of the integration's most
	// recent records are errors, stopping at the first success
	CountConsecutiveFailures(ctx context.Context, integrationID uuid.UUID) (int, error)
}
