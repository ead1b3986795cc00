package integration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Notification Errors
// ---------------------------------------------------------------------------

var (
	ErrNotificationNotFound = errors.New("integration: notification not found")
)

// ---------------------------------------------------------------------------
// Severity / Status
// ---------------------------------------------------------------------------

// NotificationSeverity grades how urgent a health signal is
type NotificationSeverity string

const (
	NotificationSeverityInfo     NotificationSeverity = "INFO"
	NotificationSeverityWarning  NotificationSeverity = "WARNING"
	NotificationSeverityCritical NotificationSeverity = "CRITICAL"
)

// IsValid returns true if the severity is valid
func (s NotificationSeverity) IsValid() bool {
	switch s {
	case NotificationSeverityInfo, NotificationSeverityWarning, NotificationSeverityCritical:
		return true
	default:
		return false
	}
}

// NotificationStatus tracks whether the underlying condition still holds
type NotificationStatus string

const (
	NotificationStatusOpen     NotificationStatus = "OPEN"
	NotificationStatusResolved NotificationStatus = "RESOLVED"
)

// IsValid returns true if the status is valid
func (s NotificationStatus) IsValid() bool {
	return s == NotificationStatusOpen || s == NotificationStatusResolved
}

// ---------------------------------------------------------------------------
// Notification causes (dedup keys)
// ---------------------------------------------------------------------------

// NotificationCause identifies the underlying condition of a notification.
// While a notification for a cause is open, no duplicate is raised for the
// same integration and cause.
type NotificationCause string

const (
	// CauseReauthorizationRequired fires when a grant can no longer be
	// silently refreshed
	CauseReauthorizationRequired NotificationCause = "REAUTHORIZATION_REQUIRED"
	// CauseRepeatedSyncFailures fires after consecutive failed syncs
	CauseRepeatedSyncFailures NotificationCause = "REPEATED_SYNC_FAILURES"
	// CauseTokenExpiring fires when a token approaches expiry without a
	// refresh token
	CauseTokenExpiring NotificationCause = "TOKEN_EXPIRING"
)

// ---------------------------------------------------------------------------
// Notification Entity
// ---------------------------------------------------------------------------

// Notification is a derived integration-health signal. It is raised by the
// notification engine when a qualifying condition is observed and resolved
// automatically when the condition clears, or manually by an operator.
type Notification struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	IntegrationID *uuid.UUID
	Provider      ProviderType
	Cause         NotificationCause
	Severity      NotificationSeverity
	Status        NotificationStatus
	Title         string
	Reason        string
	// ActionURL optionally points the operator at the fix (e.g. re-auth page)
	ActionURL  string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// NewNotification raises an open notification for an integration
func NewNotification(i *Integration, cause NotificationCause, severity NotificationSeverity, title, reason, actionURL string) *Notification {
	id := i.ID
	return &Notification{
		ID:            uuid.New(),
		TenantID:      i.TenantID,
		IntegrationID: &id,
		Provider:      i.Provider,
		Cause:         cause,
		Severity:      severity,
		Status:        NotificationStatusOpen,
		Title:         title,
		Reason:        reason,
		ActionURL:     actionURL,
		CreatedAt:     time.Now(),
	}
}

// Resolve closes the notification
func (n *Notification) Resolve(at time.Time) {
	if n.Status == NotificationStatusResolved {
		return
	}
	n.Status = NotificationStatusResolved
	n.ResolvedAt = &at
}

// ---------------------------------------------------------------------------
// Repository Port
// ---------------------------------------------------------------------------

// NotificationFilter holds query options for listing notifications
type NotificationFilter struct {
	Status   *NotificationStatus
	Severity *NotificationSeverity
	Page     int
	PageSize int
}

// NotificationRepository persists integration-health notifications
type NotificationRepository interface {
	Save(ctx context.Context, notification *Notification) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Notification, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter NotificationFilter) ([]Notification, int64, error)
	// FindOpenByCause returns the open notification for an integration and
	// cause, or ErrNotificationNotFound
	FindOpenByCause(ctx context.Context, integrationID uuid.UUID, cause NotificationCause) (*Notification, error)
	// FindOpenByIntegration returns every open notification for an integration
	FindOpenByIntegration(ctx context.Context, integrationID uuid.UUID) ([]Notification, error)
}
