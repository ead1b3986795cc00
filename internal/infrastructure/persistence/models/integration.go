package models

import (
	"encoding/json"
	"time"

	"github.com/adhub/backend/internal/domain/integration"
	"github.com/adhub/backend/internal/infrastructure/vault"
	"github.com/google/uuid"
)

// IntegrationModel is the persistence model for the Integration domain entity.
type IntegrationModel struct {
	ID                   uuid.UUID                     `gorm:"type:uuid;primary_key"`
	TenantID             uuid.UUID                     `gorm:"type:uuid;not null;index:idx_integration_tenant,priority:1"`
	Provider             integration.ProviderType      `gorm:"type:varchar(20);not null;index:idx_integration_tenant,priority:2"`
	Name                 string                        `gorm:"type:varchar(255);not null"`
	Status               integration.IntegrationStatus `gorm:"type:varchar(20);not null;default:'DISCONNECTED'"`
	IsActive             bool                          `gorm:"not null;default:true;index:idx_integration_active"`
	CredentialRef        *uuid.UUID                    `gorm:"type:uuid"`
	ConfigJSON           string                        `gorm:"type:jsonb;column:config"`
	SyncFrequencyMinutes int                           `gorm:"not null;default:60"`
	LastSyncAt           *time.Time                    `gorm:"index"`
	CreatedAt            time.Time                     `gorm:"not null"`
	UpdatedAt            time.Time                     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IntegrationModel) TableName() string {
	return "integrations"
}

// ToDomain converts the persistence model to a domain Integration entity.
func (m *IntegrationModel) ToDomain() *integration.Integration {
	i := &integration.Integration{
		ID:                   m.ID,
		TenantID:             m.TenantID,
		Provider:             m.Provider,
		Name:                 m.Name,
		Status:               m.Status,
		IsActive:             m.IsActive,
		CredentialRef:        m.CredentialRef,
		SyncFrequencyMinutes: m.SyncFrequencyMinutes,
		LastSyncAt:           m.LastSyncAt,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}

	if m.ConfigJSON != "" && m.ConfigJSON != "null" {
		if cfg, err := integration.DecodeProviderConfig(m.Provider, []byte(m.ConfigJSON)); err == nil {
			i.Config = cfg
		}
	}

	return i
}

// FromDomain populates the persistence model from a domain Integration entity.
func (m *IntegrationModel) FromDomain(i *integration.Integration) {
	m.ID = i.ID
	m.TenantID = i.TenantID
	m.Provider = i.Provider
	m.Name = i.Name
	m.Status = i.Status
	m.IsActive = i.IsActive
	m.CredentialRef = i.CredentialRef
	m.SyncFrequencyMinutes = i.SyncFrequencyMinutes
	m.LastSyncAt = i.LastSyncAt
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt

	if i.Config != nil {
		if raw, err := integration.EncodeProviderConfig(i.Config); err == nil {
			m.ConfigJSON = string(raw)
		}
	} else {
		m.ConfigJSON = "{}"
	}
}

// CredentialModel is the persistence model for encrypted vault records.
// The ciphertext column never holds plaintext token material.
type CredentialModel struct {
	Ref           uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;index:idx_credential_tenant"`
	IntegrationID uuid.UUID `gorm:"type:uuid;not null;index:idx_credential_integration"`
	Ciphertext    string    `gorm:"type:text;not null"`
	Revoked       bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CredentialModel) TableName() string {
	return "integration_credentials"
}

// ToDomain converts the persistence model to a vault CredentialRecord.
func (m *CredentialModel) ToDomain() *vault.CredentialRecord {
	return &vault.CredentialRecord{
		Ref:           m.Ref,
		TenantID:      m.TenantID,
		IntegrationID: m.IntegrationID,
		Ciphertext:    m.Ciphertext,
		Revoked:       m.Revoked,
	}
}

// FromDomain populates the persistence model from a vault CredentialRecord.
func (m *CredentialModel) FromDomain(r *vault.CredentialRecord) {
	m.Ref = r.Ref
	m.TenantID = r.TenantID
	m.IntegrationID = r.IntegrationID
	m.Ciphertext = r.Ciphertext
	m.Revoked = r.Revoked
}

// AuthStateModel is the persistence model for pending OAuth authorization
// states. State is the primary key because consumption looks it up by value.
type AuthStateModel struct {
	State         string     `gorm:"type:varchar(64);primary_key"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null"`
	IntegrationID uuid.UUID  `gorm:"type:uuid;not null;index:idx_auth_state_integration"`
	RedirectURI   string     `gorm:"type:varchar(512);not null"`
	ExpiresAt     time.Time  `gorm:"not null;index"`
	ConsumedAt    *time.Time `gorm:""`
	CreatedAt     time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AuthStateModel) TableName() string {
	return "oauth_auth_states"
}

// ToDomain converts the persistence model to a domain AuthState.
func (m *AuthStateModel) ToDomain() *integration.AuthState {
	return &integration.AuthState{
		State:         m.State,
		TenantID:      m.TenantID,
		IntegrationID: m.IntegrationID,
		RedirectURI:   m.RedirectURI,
		ExpiresAt:     m.ExpiresAt,
		ConsumedAt:    m.ConsumedAt,
		CreatedAt:     m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain AuthState.
func (m *AuthStateModel) FromDomain(s *integration.AuthState) {
	m.State = s.State
	m.TenantID = s.TenantID
	m.IntegrationID = s.IntegrationID
	m.RedirectURI = s.RedirectURI
	m.ExpiresAt = s.ExpiresAt
	m.ConsumedAt = s.ConsumedAt
	m.CreatedAt = s.CreatedAt
}

// SyncJobModel is the persistence model for the in-flight sync registry.
type SyncJobModel struct {
	ID            uuid.UUID                 `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID                 `gorm:"type:uuid;not null;index:idx_sync_job_tenant"`
	IntegrationID uuid.UUID                 `gorm:"type:uuid;not null;index:idx_sync_job_integration"`
	Provider      integration.ProviderType  `gorm:"type:varchar(20);not null"`
	TriggeredBy   integration.TriggerSource `gorm:"type:varchar(20);not null"`
	Status        integration.SyncJobStatus `gorm:"type:varchar(20);not null;index:idx_sync_job_status"`
	WindowFrom    time.Time                 `gorm:"not null"`
	WindowTo      time.Time                 `gorm:"not null"`
	Error         string                    `gorm:"type:text"`
	EnqueuedAt    time.Time                 `gorm:"not null"`
	StartedAt     *time.Time                `gorm:""`
	CompletedAt   *time.Time                `gorm:""`
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the persistence model to a domain SyncJob.
func (m *SyncJobModel) ToDomain() *integration.SyncJob {
	return &integration.SyncJob{
		ID:            m.ID,
		TenantID:      m.TenantID,
		IntegrationID: m.IntegrationID,
		Provider:      m.Provider,
		TriggeredBy:   m.TriggeredBy,
		Status:        m.Status,
		Window:        integration.MetricsWindow{From: m.WindowFrom, To: m.WindowTo},
		Error:         m.Error,
		EnqueuedAt:    m.EnqueuedAt,
		StartedAt:     m.StartedAt,
		CompletedAt:   m.CompletedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncJob.
func (m *SyncJobModel) FromDomain(j *integration.SyncJob) {
	m.ID = j.ID
	m.TenantID = j.TenantID
	m.IntegrationID = j.IntegrationID
	m.Provider = j.Provider
	m.TriggeredBy = j.TriggeredBy
	m.Status = j.Status
	m.WindowFrom = j.Window.From
	m.WindowTo = j.Window.To
	m.Error = j.Error
	m.EnqueuedAt = j.EnqueuedAt
	m.StartedAt = j.StartedAt
	m.CompletedAt = j.CompletedAt
}

// SyncHistoryModel is the persistence model for the immutable sync audit
// trail. Rows are insert-only.
type SyncHistoryModel struct {
	ID            uuid.UUID                 `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID                 `gorm:"type:uuid;not null;index:idx_sync_history_tenant,priority:1"`
	IntegrationID uuid.UUID                 `gorm:"type:uuid;not null;index:idx_sync_history_integration,priority:1"`
	JobID         uuid.UUID                 `gorm:"type:uuid;not null"`
	Provider      integration.ProviderType  `gorm:"type:varchar(20);not null"`
	TriggeredBy   integration.TriggerSource `gorm:"type:varchar(20);not null"`
	Status        integration.SyncStatus    `gorm:"type:varchar(20);not null"`
	SnapshotJSON  string                    `gorm:"type:jsonb;column:snapshot"`
	ErrorMessage  string                    `gorm:"type:text"`
	DurationMS    int64                     `gorm:"not null;default:0"`
	CreatedAt     time.Time                 `gorm:"not null;index:idx_sync_history_integration,priority:2,sort:desc"`
}

// TableName returns the table name for GORM
func (SyncHistoryModel) TableName() string {
	return "sync_history"
}

// ToDomain converts the persistence model to a domain SyncHistory record.
func (m *SyncHistoryModel) ToDomain() *integration.SyncHistory {
	record := &integration.SyncHistory{
		ID:            m.ID,
		TenantID:      m.TenantID,
		IntegrationID: m.IntegrationID,
		JobID:         m.JobID,
		Provider:      m.Provider,
		TriggeredBy:   m.TriggeredBy,
		Status:        m.Status,
		ErrorMessage:  m.ErrorMessage,
		DurationMS:    m.DurationMS,
		CreatedAt:     m.CreatedAt,
	}

	if m.SnapshotJSON != "" && m.SnapshotJSON != "null" {
		var snapshot integration.MetricsSnapshot
		if err := json.Unmarshal([]byte(m.SnapshotJSON), &snapshot); err == nil {
			record.Snapshot = &snapshot
		}
	}

	return record
}

// FromDomain populates the persistence model from a domain SyncHistory record.
func (m *SyncHistoryModel) FromDomain(r *integration.SyncHistory) {
	m.ID = r.ID
	m.TenantID = r.TenantID
	m.IntegrationID = r.IntegrationID
	m.JobID = r.JobID
	m.Provider = r.Provider
	m.TriggeredBy = r.TriggeredBy
	m.Status = r.Status
	m.ErrorMessage = r.ErrorMessage
	m.DurationMS = r.DurationMS
	m.CreatedAt = r.CreatedAt

	if r.Snapshot != nil {
		if jsonBytes, err := json.Marshal(r.Snapshot); err == nil {
			m.SnapshotJSON = string(jsonBytes)
		}
	}
}

// WebhookEventModel is the persistence model for received webhook events.
// Rows are insert-only; deletion is an explicit operator action.
type WebhookEventModel struct {
	ID            uuid.UUID                `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID                `gorm:"type:uuid;not null;index:idx_webhook_event_tenant,priority:1"`
	IntegrationID uuid.UUID                `gorm:"type:uuid;not null;index:idx_webhook_event_integration"`
	Provider      integration.ProviderType `gorm:"type:varchar(20);not null"`
	EventType     string                   `gorm:"type:varchar(100);not null;index:idx_webhook_event_type"`
	Payload       []byte                   `gorm:"type:bytea;not null"`
	Signature     string                   `gorm:"type:varchar(512)"`
	ReceivedAt    time.Time                `gorm:"not null;index:idx_webhook_event_tenant,priority:2,sort:desc"`
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

// ToDomain converts the persistence model to a domain WebhookEvent.
func (m *WebhookEventModel) ToDomain() *integration.WebhookEvent {
	return &integration.WebhookEvent{
		ID:            m.ID,
		TenantID:      m.TenantID,
		IntegrationID: m.IntegrationID,
		Provider:      m.Provider,
		EventType:     m.EventType,
		Payload:       m.Payload,
		Signature:     m.Signature,
		ReceivedAt:    m.ReceivedAt,
	}
}

// FromDomain populates the persistence model from a domain WebhookEvent.
func (m *WebhookEventModel) FromDomain(e *integration.WebhookEvent) {
	m.ID = e.ID
	m.TenantID = e.TenantID
	m.IntegrationID = e.IntegrationID
	m.Provider = e.Provider
	m.EventType = e.EventType
	m.Payload = e.Payload
	m.Signature = e.Signature
	m.ReceivedAt = e.ReceivedAt
}

// NotificationModel is the persistence model for integration-health
// notifications.
type NotificationModel struct {
	ID            uuid.UUID                        `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID                        `gorm:"type:uuid;not null;index:idx_notification_tenant,priority:1"`
	IntegrationID *uuid.UUID                       `gorm:"type:uuid;index:idx_notification_integration"`
	Provider      integration.ProviderType         `gorm:"type:varchar(20);not null"`
	Cause         integration.NotificationCause    `gorm:"type:varchar(40);not null"`
	Severity      integration.NotificationSeverity `gorm:"type:varchar(20);not null"`
	Status        integration.NotificationStatus   `gorm:"type:varchar(20);not null;index:idx_notification_status"`
	Title         string                           `gorm:"type:varchar(255);not null"`
	Reason        string                           `gorm:"type:text"`
	ActionURL     string                           `gorm:"type:varchar(512)"`
	CreatedAt     time.Time                        `gorm:"not null;index:idx_notification_tenant,priority:2,sort:desc"`
	ResolvedAt    *time.Time                       `gorm:""`
}

// TableName returns the table name for GORM
func (NotificationModel) TableName() string {
	return "integration_notifications"
}

// ToDomain converts the persistence model to a domain Notification.
func (m *NotificationModel) ToDomain() *integration.Notification {
	return &integration.Notification{
		ID:            m.ID,
		TenantID:      m.TenantID,
		IntegrationID: m.IntegrationID,
		Provider:      m.Provider,
		Cause:         m.Cause,
		Severity:      m.Severity,
		Status:        m.Status,
		Title:         m.Title,
		Reason:        m.Reason,
		ActionURL:     m.ActionURL,
		CreatedAt:     m.CreatedAt,
		ResolvedAt:    m.ResolvedAt,
	}
}

// FromDomain populates the persistence model from a domain Notification.
func (m *NotificationModel) FromDomain(n *integration.Notification) {
	m.ID = n.ID
	m.TenantID = n.TenantID
	m.IntegrationID = n.IntegrationID
	m.Provider = n.Provider
	m.Cause = n.Cause
	m.Severity = n.Severity
	m.Status = n.Status
	m.Title = n.Title
	m.Reason = n.Reason
	m.ActionURL = n.ActionURL
	m.CreatedAt = n.CreatedAt
	m.ResolvedAt = n.ResolvedAt
}

// AllModels returns every persistence model for migration registration.
func AllModels() []interface{} {
	return []interface{}{
		&IntegrationModel{},
		&CredentialModel{},
		&AuthStateModel{},
		&SyncJobModel{},
		&SyncHistoryModel{},
		&WebhookEventModel{},
		&NotificationModel{},
	}
}
