package integration

import (
	"github.com/google/uuid"

	"github.com/adhub/backend/internal/domain/shared"
)

// Event types published on the in-process event bus. The notification engine
// subscribes to these; nothing else in the context depends on them.
const (
	EventTypeIntegrationConnected = "integration.connected"
	EventTypeIntegrationRevoked   = "integration.revoked"
	EventTypeSyncCompleted        = "integration.sync_completed"
	EventTypeSyncFailed           = "integration.sync_failed"
	EventTypeTokenRefreshed       = "integration.token_refreshed"
	EventTypeTokenRefreshFailed   = "integration.token_refresh_failed"
	EventTypeWebhookProcessed     = "integration.webhook_processed"
)

const aggregateTypeIntegration = "Integration"

// ConnectedEvent fires when an authorization flow completes
type ConnectedEvent struct {
	shared.BaseDomainEvent
	Provider ProviderType `json:"provider"`
}

// NewConnectedEvent creates a ConnectedEvent for an integration
func NewConnectedEvent(i *Integration) *ConnectedEvent {
	return &ConnectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIntegrationConnected, aggregateTypeIntegration, i.ID, i.TenantID),
		Provider:        i.Provider,
	}
}

// RevokedEvent fires when a grant is revoked
type RevokedEvent struct {
	shared.BaseDomainEvent
	Provider ProviderType `json:"provider"`
}

// NewRevokedEvent creates a RevokedEvent for an integration
func NewRevokedEvent(i *Integration) *RevokedEvent {
	return &RevokedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIntegrationRevoked, aggregateTypeIntegration, i.ID, i.TenantID),
		Provider:        i.Provider,
	}
}

// SyncCompletedEvent fires after a successful sync attempt
type SyncCompletedEvent struct {
	shared.BaseDomainEvent
	Provider    ProviderType  `json:"provider"`
	JobID       uuid.UUID     `json:"job_id"`
	TriggeredBy TriggerSource `json:"triggered_by"`
	RecordCount int           `json:"record_count"`
}

// NewSyncCompletedEvent creates a SyncCompletedEvent
func NewSyncCompletedEvent(job *SyncJob, recordCount int) *SyncCompletedEvent {
	return &SyncCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSyncCompleted, aggregateTypeIntegration, job.IntegrationID, job.TenantID),
		Provider:        job.Provider,
		JobID:           job.ID,
		TriggeredBy:     job.TriggeredBy,
		RecordCount:     recordCount,
	}
}

// SyncFailedEvent fires after a failed sync attempt
type SyncFailedEvent struct {
	shared.BaseDomainEvent
	Provider ProviderType `json:"provider"`
	JobID    uuid.UUID    `json:"job_id"`
	Reason   string       `json:"reason"`
	// AuthFailure is true when the failure came from the credential rather
	// than a transient provider problem
	AuthFailure bool `json:"auth_failure"`
}

// NewSyncFailedEvent creates a SyncFailedEvent
func NewSyncFailedEvent(job *SyncJob, reason string, authFailure bool) *SyncFailedEvent {
	return &SyncFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSyncFailed, aggregateTypeIntegration, job.IntegrationID, job.TenantID),
		Provider:        job.Provider,
		JobID:           job.ID,
		Reason:          reason,
		AuthFailure:     authFailure,
	}
}

// TokenRefreshedEvent fires after a successful silent refresh
type TokenRefreshedEvent struct {
	shared.BaseDomainEvent
	Provider ProviderType `json:"provider"`
}

// NewTokenRefreshedEvent creates a TokenRefreshedEvent
func NewTokenRefreshedEvent(i *Integration) *TokenRefreshedEvent {
	return &TokenRefreshedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTokenRefreshed, aggregateTypeIntegration, i.ID, i.TenantID),
		Provider:        i.Provider,
	}
}

// TokenRefreshFailedEvent fires when a silent refresh fails and the
// integration needs re-authorization
type TokenRefreshFailedEvent struct {
	shared.BaseDomainEvent
	Provider ProviderType `json:"provider"`
	Reason   string       `json:"reason"`
}

// NewTokenRefreshFailedEvent creates a TokenRefreshFailedEvent
func NewTokenRefreshFailedEvent(i *Integration, reason string) *TokenRefreshFailedEvent {
	return &TokenRefreshFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTokenRefreshFailed, aggregateTypeIntegration, i.ID, i.TenantID),
		Provider:        i.Provider,
		Reason:          reason,
	}
}

// WebhookProcessedEvent fires after a webhook payload is processed, live or
// via replay
type WebhookProcessedEvent struct {
	shared.BaseDomainEvent
	Provider       ProviderType `json:"provider"`
	WebhookEventID uuid.UUID    `json:"webhook_event_id"`
	EventKind      string       `json:"event_kind"`
	Replayed       bool         `json:"replayed"`
}

// NewWebhookProcessedEvent creates a WebhookProcessedEvent
func NewWebhookProcessedEvent(event *WebhookEvent, replayed bool) *WebhookProcessedEvent {
	return &WebhookProcessedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWebhookProcessed, aggregateTypeIntegration, event.IntegrationID, event.TenantID),
		Provider:        event.Provider,
		WebhookEventID:  event.ID,
		EventKind:       event.EventType,
		Replayed:        replayed,
	}
}
