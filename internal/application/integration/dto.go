package integration

import (
	"encoding/json"
	"time"

	"github.com/adhub/backend/internal/domain/integration"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Integration DTOs
// ---------------------------------------------------------------------------

// CreateIntegrationRequest is the input for creating an integration
type CreateIntegrationRequest struct {
	Provider             integration.ProviderType `json:"provider" binding:"required"`
	Name                 string                   `json:"name" binding:"required,max=255"`
	Config               json.RawMessage          `json:"config,omitempty"`
	SyncFrequencyMinutes int                      `json:"sync_frequency_minutes,omitempty"`
}

// UpdateIntegrationRequest is the input for updating an integration.
// Nil fields are left unchanged.
type UpdateIntegrationRequest struct {
	Name                 *string         `json:"name,omitempty" binding:"omitempty,max=255"`
	Config               json.RawMessage `json:"config,omitempty"`
	SyncFrequencyMinutes *int            `json:"sync_frequency_minutes,omitempty"`
	IsActive             *bool           `json:"is_active,omitempty"`
}

// IntegrationResponse represents an integration in API responses.
// Credential material never appears here; CredentialRef is an opaque handle.
type IntegrationResponse struct {
	ID                   uuid.UUID                     `json:"id"`
	TenantID             uuid.UUID                     `json:"tenant_id"`
	Provider             integration.ProviderType      `json:"provider"`
	ProviderDisplayName  string                        `json:"provider_display_name"`
	Name                 string                        `json:"name"`
	Status               integration.IntegrationStatus `json:"status"`
	IsActive             bool                          `json:"is_active"`
	Connected            bool                          `json:"connected"`
	Config               integration.ProviderConfig    `json:"config,omitempty"`
	SyncFrequencyMinutes int                           `json:"sync_frequency_minutes"`
	LastSyncAt           *time.Time                    `json:"last_sync_at,omitempty"`
	CreatedAt            time.Time                     `json:"created_at"`
	UpdatedAt            time.Time                     `json:"updated_at"`
}

// NewIntegrationResponse converts a domain integration to its API shape
func NewIntegrationResponse(i *integration.Integration) *IntegrationResponse {
	return &IntegrationResponse{
		ID:                   i.ID,
		TenantID:             i.TenantID,
		Provider:             i.Provider,
		ProviderDisplayName:  i.Provider.DisplayName(),
		Name:                 i.Name,
		Status:               i.Status,
		IsActive:             i.IsActive,
		Connected:            i.Status == integration.IntegrationStatusConnected,
		Config:               i.Config,
		SyncFrequencyMinutes: i.SyncFrequencyMinutes,
		LastSyncAt:           i.LastSyncAt,
		CreatedAt:            i.CreatedAt,
		UpdatedAt:            i.UpdatedAt,
	}
}

// NewIntegrationListResponse converts a slice of domain integrations
func NewIntegrationListResponse(items []integration.Integration) []IntegrationResponse {
	out := make([]IntegrationResponse, len(items))
	for n := range items {
		out[n] = *NewIntegrationResponse(&items[n])
	}
	return out
}

// ---------------------------------------------------------------------------
// Authorization DTOs
// ---------------------------------------------------------------------------

// StartAuthorizationRequest is the input for starting an OAuth flow
type StartAuthorizationRequest struct {
	RedirectURI string `json:"redirect_uri" binding:"omitempty,url"`
}

// StartAuthorizationResponse carries the provider consent URL to the caller
type StartAuthorizationResponse struct {
	AuthorizeURL string    `json:"authorize_url"`
	State        string    `json:"state"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// CompleteAuthorizationRequest is the OAuth callback input
type CompleteAuthorizationRequest struct {
	State string `json:"state" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// TokenStatusResponse is the read-only connectivity view of an integration
type TokenStatusResponse struct {
	Phase       integration.TokenPhase `json:"phase"`
	IsConnected bool                   `json:"is_connected"`
	ExpiresAt   *time.Time             `json:"expires_at,omitempty"`
	Scopes      []string               `json:"scopes,omitempty"`
	CanRefresh  bool                   `json:"can_refresh"`
	LastSyncAt  *time.Time             `json:"last_sync_at,omitempty"`
}

// NewTokenStatusResponse converts a domain token status
func NewTokenStatusResponse(s *integration.TokenStatus) *TokenStatusResponse {
	return &TokenStatusResponse{
		Phase:       s.Phase,
		IsConnected: s.IsConnected,
		ExpiresAt:   s.ExpiresAt,
		Scopes:      s.Scopes,
		CanRefresh:  s.CanRefresh,
		LastSyncAt:  s.LastSyncAt,
	}
}

// ---------------------------------------------------------------------------
// Sync DTOs
// ---------------------------------------------------------------------------

// TriggerSyncRequest optionally narrows the metrics window of a manual sync
type TriggerSyncRequest struct {
	WindowFrom *time.Time `json:"window_from,omitempty"`
	WindowTo   *time.Time `json:"window_to,omitempty"`
}

// SyncJobResponse represents a queued or running sync job
type SyncJobResponse struct {
	ID            uuid.UUID                 `json:"id"`
	IntegrationID uuid.UUID                 `json:"integration_id"`
	Provider      integration.ProviderType  `json:"provider"`
	TriggeredBy   integration.TriggerSource `json:"triggered_by"`
	Status        integration.SyncJobStatus `json:"status"`
	WindowFrom    time.Time                 `json:"window_from"`
	WindowTo      time.Time                 `json:"window_to"`
	Error         string                    `json:"error,omitempty"`
	EnqueuedAt    time.Time                 `json:"enqueued_at"`
	StartedAt     *time.Time                `json:"started_at,omitempty"`
	CompletedAt   *time.Time                `json:"completed_at,omitempty"`
}

// NewSyncJobResponse converts a domain sync job
func NewSyncJobResponse(job *integration.SyncJob) *SyncJobResponse {
	return &SyncJobResponse{
		ID:            job.ID,
		IntegrationID: job.IntegrationID,
		Provider:      job.Provider,
		TriggeredBy:   job.TriggeredBy,
		Status:        job.Status,
		WindowFrom:    job.Window.From,
		WindowTo:      job.Window.To,
		Error:         job.Error,
		EnqueuedAt:    job.EnqueuedAt,
		StartedAt:     job.StartedAt,
		CompletedAt:   job.CompletedAt,
	}
}

// SyncHistoryResponse represents one sync attempt in API responses
type SyncHistoryResponse struct {
	ID            uuid.UUID                    `json:"id"`
	IntegrationID uuid.UUID                    `json:"integration_id"`
	JobID         uuid.UUID                    `json:"job_id"`
	Provider      integration.ProviderType     `json:"provider"`
	TriggeredBy   integration.TriggerSource    `json:"triggered_by"`
	Status        integration.SyncStatus       `json:"status"`
	RecordCount   int                          `json:"record_count"`
	Snapshot      *integration.MetricsSnapshot `json:"snapshot,omitempty"`
	ErrorMessage  string                       `json:"error_message,omitempty"`
	DurationMS    int64                        `json:"duration_ms"`
	CreatedAt     time.Time                    `json:"created_at"`
}

// NewSyncHistoryResponse converts a domain history record. Snapshots are
// included only when withSnapshot is set; list views stay light.
func NewSyncHistoryResponse(record *integration.SyncHistory, withSnapshot bool) *SyncHistoryResponse {
	resp := &SyncHistoryResponse{
		ID:            record.ID,
		IntegrationID: record.IntegrationID,
		JobID:         record.JobID,
		Provider:      record.Provider,
		TriggeredBy:   record.TriggeredBy,
		Status:        record.Status,
		ErrorMessage:  record.ErrorMessage,
		DurationMS:    record.DurationMS,
		CreatedAt:     record.CreatedAt,
	}
	if record.Snapshot != nil {
		resp.RecordCount = len(record.Snapshot.Records)
		if withSnapshot {
			resp.Snapshot = record.Snapshot
		}
	}
	return resp
}

// NewSyncHistoryListResponse converts a slice of history records without snapshots
func NewSyncHistoryListResponse(records []integration.SyncHistory) []SyncHistoryResponse {
	out := make([]SyncHistoryResponse, len(records))
	for n := range records {
		out[n] = *NewSyncHistoryResponse(&records[n], false)
	}
	return out
}

// ConnectionTestResponse is the outcome of a connectivity probe
type ConnectionTestResponse struct {
	OK          bool   `json:"ok"`
	AccountName string `json:"account_name,omitempty"`
	Message     string `json:"message,omitempty"`
}

// ---------------------------------------------------------------------------
// Webhook DTOs
// ---------------------------------------------------------------------------

// WebhookEventResponse represents a received webhook event
type WebhookEventResponse struct {
	ID            uuid.UUID                `json:"id"`
	IntegrationID uuid.UUID                `json:"integration_id"`
	Provider      integration.ProviderType `json:"provider"`
	EventType     string                   `json:"event_type"`
	Payload       json.RawMessage          `json:"payload,omitempty"`
	ReceivedAt    time.Time                `json:"received_at"`
}

// NewWebhookEventResponse converts a domain webhook event. Payloads are
// included only when withPayload is set.
func NewWebhookEventResponse(event *integration.WebhookEvent, withPayload bool) *WebhookEventResponse {
	resp := &WebhookEventResponse{
		ID:            event.ID,
		IntegrationID: event.IntegrationID,
		Provider:      event.Provider,
		EventType:     event.EventType,
		ReceivedAt:    event.ReceivedAt,
	}
	if withPayload {
		resp.Payload = json.RawMessage(event.Payload)
	}
	return resp
}

// NewWebhookEventListResponse converts a slice of webhook events without payloads
func NewWebhookEventListResponse(events []integration.WebhookEvent) []WebhookEventResponse {
	out := make([]WebhookEventResponse, len(events))
	for n := range events {
		out[n] = *NewWebhookEventResponse(&events[n], false)
	}
	return out
}

// ValidateWebhookRequest is the input for the signature validation utility
type ValidateWebhookRequest struct {
	Provider  string `json:"provider" binding:"required"`
	Payload   string `json:"payload" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// ValidateWebhookResponse reports whether a signature matches
type ValidateWebhookResponse struct {
	Valid bool `json:"valid"`
}

// ---------------------------------------------------------------------------
// Notification DTOs
// ---------------------------------------------------------------------------

// NotificationResponse represents an integration-health notification
type NotificationResponse struct {
	ID            uuid.UUID                        `json:"id"`
	IntegrationID *uuid.UUID                       `json:"integration_id,omitempty"`
	Provider      integration.ProviderType         `json:"provider"`
	Cause         integration.NotificationCause    `json:"cause"`
	Severity      integration.NotificationSeverity `json:"severity"`
	Status        integration.NotificationStatus   `json:"status"`
	Title         string                           `json:"title"`
	Reason        string                           `json:"reason,omitempty"`
	ActionURL     string                           `json:"action_url,omitempty"`
	CreatedAt     time.Time                        `json:"created_at"`
	ResolvedAt    *time.Time                       `json:"resolved_at,omitempty"`
}

// NewNotificationResponse converts a domain notification
func NewNotificationResponse(n *integration.Notification) *NotificationResponse {
	return &NotificationResponse{
		ID:            n.ID,
		IntegrationID: n.IntegrationID,
		Provider:      n.Provider,
		Cause:         n.Cause,
		Severity:      n.Severity,
		Status:        n.Status,
		Title:         n.Title,
		Reason:        n.Reason,
		ActionURL:     n.ActionURL,
		CreatedAt:     n.CreatedAt,
		ResolvedAt:    n.ResolvedAt,
	}
}

// NewNotificationListResponse converts a slice of notifications
func NewNotificationListResponse(items []integration.Notification) []NotificationResponse {
	out := make([]NotificationResponse, len(items))
	for n := range items {
		out[n] = *NewNotificationResponse(&items[n])
	}
	return out
}
