package integration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Integration Errors
// ---------------------------------------------------------------------------

var (
	ErrIntegrationNotFound      = errors.New("integration: integration not found")
	ErrIntegrationInactive      = errors.New("integration: integration is inactive")
	ErrIntegrationNotConnected  = errors.New("integration: integration is not connected")
	ErrInvalidTenantID          = errors.New("integration: invalid tenant ID")
	ErrInvalidProviderType      = errors.New("integration: invalid provider type")
	ErrInvalidIntegrationName   = errors.New("integration: integration name is required")
	ErrInvalidSyncFrequency     = errors.New("integration: sync frequency must be at least one minute")
	ErrIntegrationHasCredential = errors.New("integration: credential must be revoked before deletion")
)

// ---------------------------------------------------------------------------
// IntegrationStatus
// ---------------------------------------------------------------------------

// IntegrationStatus represents the lifecycle status of an integration
type IntegrationStatus string

const (
	// IntegrationStatusDisconnected indicates no valid grant exists
	IntegrationStatusDisconnected IntegrationStatus = "DISCONNECTED"
	// IntegrationStatusConnecting indicates an authorization flow is in progress
	IntegrationStatusConnecting IntegrationStatus = "CONNECTING"
	// IntegrationStatusConnected indicates a valid grant exists
	IntegrationStatusConnected IntegrationStatus = "CONNECTED"
	// IntegrationStatusError indicates the integration needs attention (e.g. re-authorization)
	IntegrationStatusError IntegrationStatus = "ERROR"
)

// IsValid returns true if the status is valid
func (s IntegrationStatus) IsValid() bool {
	switch s {
	case IntegrationStatusDisconnected, IntegrationStatusConnecting,
		IntegrationStatusConnected, IntegrationStatusError:
		return true
	default:
		return false
	}
}

// String returns the string representation of IntegrationStatus
func (s IntegrationStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Integration Entity
// ---------------------------------------------------------------------------

// Integration represents one configured connection from a tenant to one provider.
// Raw secrets never live on this entity; CredentialRef is an opaque reference
// into the credential vault.
type Integration struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Provider ProviderType
	Name     string

	Status   IntegrationStatus
	IsActive bool

	// CredentialRef points at the vault record holding the OAuth credential.
	// Nil while no grant has been stored.
	CredentialRef *uuid.UUID

	// Config is the typed, non-secret provider configuration
	Config ProviderConfig

	// SyncFrequencyMinutes is how often the scheduler considers this
	// integration due for a sync
	SyncFrequencyMinutes int

	// LastSyncAt is the completion time of the last successful sync
	LastSyncAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultSyncFrequencyMinutes is applied when a caller does not configure one
const DefaultSyncFrequencyMinutes = 60

// NewIntegration creates a new, disconnected integration for a tenant
func NewIntegration(tenantID uuid.UUID, provider ProviderType, name string, cfg ProviderConfig) (*Integration, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !provider.IsValid() {
		return nil, ErrInvalidProviderType
	}
	if name == "" {
		return nil, ErrInvalidIntegrationName
	}
	if cfg != nil {
		if cfg.ProviderType() != provider {
			return nil, ErrUnknownProviderConfig
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	now := time.Now()
	return &Integration{
		ID:                   uuid.New(),
		TenantID:             tenantID,
		Provider:             provider,
		Name:                 name,
		Status:               IntegrationStatusDisconnected,
		IsActive:             true,
		Config:               cfg,
		SyncFrequencyMinutes: DefaultSyncFrequencyMinutes,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// SetSyncFrequency updates the configured sync frequency
func (i *Integration) SetSyncFrequency(minutes int) error {
	if minutes < 1 {
		return ErrInvalidSyncFrequency
	}
	i.SyncFrequencyMinutes = minutes
	i.UpdatedAt = time.Now()
	return nil
}

// BeginAuthorization moves the integration into the CONNECTING state
func (i *Integration) BeginAuthorization() {
	i.Status = IntegrationStatusConnecting
	i.UpdatedAt = time.Now()
}

// MarkConnected records a successful grant
func (i *Integration) MarkConnected(credentialRef uuid.UUID) {
	i.Status = IntegrationStatusConnected
	i.CredentialRef = &credentialRef
	i.UpdatedAt = time.Now()
}

// MarkError moves the integration into the ERROR state.
// Used when a refresh fails or a provider rejects the credential.
func (i *Integration) MarkError() {
	i.Status = IntegrationStatusError
	i.UpdatedAt = time.Now()
}

// MarkDisconnected clears the grant reference after a revoke
func (i *Integration) MarkDisconnected() {
	i.Status = IntegrationStatusDisconnected
	i.CredentialRef = nil
	i.UpdatedAt = time.Now()
}

// Deactivate disables the integration without deleting any history
func (i *Integration) Deactivate() {
	i.IsActive = false
	i.UpdatedAt = time.Now()
}

// Activate re-enables the integration
func (i *Integration) Activate() {
	i.IsActive = true
	i.UpdatedAt = time.Now()
}

// RecordSuccessfulSync updates the last successful sync timestamp
func (i *Integration) RecordSuccessfulSync(at time.Time) {
	i.LastSyncAt = &at
	i.UpdatedAt = time.Now()
}

// SyncDue reports whether a scheduled sync is due at the given time.
// An integration with no successful sync yet is always due.
func (i *Integration) SyncDue(now time.Time) bool {
	if !i.IsActive || i.Status != IntegrationStatusConnected {
		return false
	}
	if i.LastSyncAt == nil {
		return true
	}
	return now.Sub(*i.LastSyncAt) >= time.Duration(i.SyncFrequencyMinutes)*time.Minute
}

// ---------------------------------------------------------------------------
// Repository Port
// ---------------------------------------------------------------------------

// IntegrationFilter holds query options for listing integrations
type IntegrationFilter struct {
	Provider *ProviderType
	Status   *IntegrationStatus
	IsActive *bool
	Page     int
	PageSize int
}

// IntegrationRepository is the persistence port for Integration entities
type IntegrationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Integration, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Integration, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter IntegrationFilter) ([]Integration, int64, error)
	// FindSyncCandidates returns every active, connected integration across
	// all tenants. Used by the scheduler tick.
	FindSyncCandidates(ctx context.Context) ([]Integration, error)
	Save(ctx context.Context, integration *Integration) error
	Delete(ctx context.Context, id uuid.UUID) error
}
