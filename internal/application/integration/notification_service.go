package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adhub/backend/internal/domain/integration"
	"github.com/adhub/backend/internal/domain/shared"
)

// consecutiveFailureThreshold is how many sync failures in a row raise a
// REPEATED_SYNC_FAILURES notification
const consecutiveFailureThreshold = 3

// ---------------------------------------------------------------------------
// Notification Engine
// ---------------------------------------------------------------------------

// NotificationEngine derives integration-health notifications from domain
// events on the bus. One open notification exists per integration and cause;
// the engine resolves them automatically when a later event shows the
// condition cleared.
type NotificationEngine struct {
	integrations  integration.IntegrationRepository
	notifications integration.NotificationRepository
	history       integration.SyncHistoryRepository
	logger        *zap.Logger
}

var _ shared.EventHandler = (*NotificationEngine)(nil)

// NewNotificationEngine creates a new NotificationEngine
func NewNotificationEngine(
	integrations integration.IntegrationRepository,
	notifications integration.NotificationRepository,
	history integration.SyncHistoryRepository,
	logger *zap.Logger,
) *NotificationEngine {
	return &NotificationEngine{
		integrations:  integrations,
		notifications: notifications,
		history:       history,
		logger:        logger,
	}
}

// EventTypes returns the event types the engine subscribes to
func (e *NotificationEngine) EventTypes() []string {
	return []string{
		integration.EventTypeSyncCompleted,
		integration.EventTypeSyncFailed,
		integration.EventTypeTokenRefreshed,
		integration.EventTypeTokenRefreshFailed,
		integration.EventTypeIntegrationConnected,
	}
}

// Handle applies the notification rules to a single domain event
func (e *NotificationEngine) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch ev := event.(type) {
	case *integration.SyncFailedEvent:
		return e.onSyncFailed(ctx, ev)
	case *integration.SyncCompletedEvent:
		return e.onSyncCompleted(ctx, ev)
	case *integration.TokenRefreshFailedEvent:
		return e.onTokenRefreshFailed(ctx, ev)
	case *integration.TokenRefreshedEvent:
		return e.resolveAuthCauses(ctx, ev.AggregateID())
	case *integration.ConnectedEvent:
		return e.resolveAuthCauses(ctx, ev.AggregateID())
	default:
		return nil
	}
}

func (e *NotificationEngine) onSyncFailed(ctx context.Context, ev *integration.SyncFailedEvent) error {
	if ev.AuthFailure {
		return e.raise(ctx, ev.AggregateID(),
			integration.CauseReauthorizationRequired,
			integration.NotificationSeverityCritical,
			"Integration needs re-authorization",
			ev.Reason,
		)
	}

	failures, err := e.history.CountConsecutiveFailures(ctx, ev.AggregateID())
	if err != nil {
		return err
	}
	if failures < consecutiveFailureThreshold {
		return nil
	}
	return e.raise(ctx, ev.AggregateID(),
		integration.CauseRepeatedSyncFailures,
		integration.NotificationSeverityWarning,
		fmt.Sprintf("Sync has failed %d times in a row", failures),
		ev.Reason,
	)
}

func (e *NotificationEngine) onSyncCompleted(ctx context.Context, ev *integration.SyncCompletedEvent) error {
	// A successful sync proves the grant and the provider are healthy again,
	// so every open condition for the integration has cleared
	open, err := e.notifications.FindOpenByIntegration(ctx, ev.AggregateID())
	if err != nil {
		return err
	}
	return e.resolveAll(ctx, open)
}

func (e *NotificationEngine) onTokenRefreshFailed(ctx context.Context, ev *integration.TokenRefreshFailedEvent) error {
	return e.raise(ctx, ev.AggregateID(),
		integration.CauseReauthorizationRequired,
		integration.NotificationSeverityCritical,
		"Token refresh failed, re-authorization required",
		ev.Reason,
	)
}

// resolveAuthCauses closes credential-related notifications after a
// successful refresh or a completed authorization flow
func (e *NotificationEngine) resolveAuthCauses(ctx context.Context, integrationID uuid.UUID) error {
	open, err := e.notifications.FindOpenByIntegration(ctx, integrationID)
	if err != nil {
		return err
	}
	authRelated := make([]integration.Notification, 0, len(open))
	for _, n := range open {
		if n.Cause == integration.CauseReauthorizationRequired || n.Cause == integration.CauseTokenExpiring {
			authRelated = append(authRelated, n)
		}
	}
	return e.resolveAll(ctx, authRelated)
}

func (e *NotificationEngine) resolveAll(ctx context.Context, open []integration.Notification) error {
	now := time.Now()
	for i := range open {
		n := open[i]
		n.Resolve(now)
		if err := e.notifications.Save(ctx, &n); err != nil {
			return err
		}
		e.logger.Info("Notification auto-resolved",
			zap.String("notification_id", n.ID.String()),
			zap.String("cause", string(n.Cause)),
		)
	}
	return nil
}

// raise opens a notification unless one with the same cause is already open
// for the integration
func (e *NotificationEngine) raise(ctx context.Context, integrationID uuid.UUID, cause integration.NotificationCause, severity integration.NotificationSeverity, title, reason string) error {
	_, err := e.notifications.FindOpenByCause(ctx, integrationID, cause)
	if err == nil {
		return nil
	}
	if !errors.Is(err, integration.ErrNotificationNotFound) {
		return err
	}

	i, err := e.integrations.FindByID(ctx, integrationID)
	if err != nil {
		return err
	}

	actionURL := ""
	if cause == integration.CauseReauthorizationRequired || cause == integration.CauseTokenExpiring {
		actionURL = fmt.Sprintf("/api/v1/integrations/%s/oauth/start", integrationID)
	}

	n := integration.NewNotification(i, cause, severity, title, reason, actionURL)
	if err := e.notifications.Save(ctx, n); err != nil {
		return err
	}

	e.logger.Warn("Notification raised",
		zap.String("notification_id", n.ID.String()),
		zap.String("integration_id", integrationID.String()),
		zap.String("cause", string(cause)),
		zap.String("severity", string(severity)),
	)
	return nil
}

// ---------------------------------------------------------------------------
// Notification Service
// ---------------------------------------------------------------------------

// NotificationService serves the operator-facing notification operations
type NotificationService struct {
	notifications integration.NotificationRepository
	logger        *zap.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notifications integration.NotificationRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		logger:        logger,
	}
}

// Get returns a single notification
func (s *NotificationService) Get(ctx context.Context, tenantID, id uuid.UUID) (*integration.Notification, error) {
	return s.notifications.FindByID(ctx, tenantID, id)
}

// List lists a tenant's notifications, newest first
func (s *NotificationService) List(ctx context.Context, tenantID uuid.UUID, filter integration.NotificationFilter) ([]integration.Notification, int64, error) {
	return s.notifications.FindAllForTenant(ctx, tenantID, filter)
}

// Resolve closes a notification manually
func (s *NotificationService) Resolve(ctx context.Context, tenantID, id uuid.UUID) (*integration.Notification, error) {
	n, err := s.notifications.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if n.Status == integration.NotificationStatusResolved {
		return n, nil
	}
	n.Resolve(time.Now())
	if err := s.notifications.Save(ctx, n); err != nil {
		return nil, err
	}
	s.logger.Info("Notification resolved by operator",
		zap.String("notification_id", n.ID.String()),
		zap.String("tenant_id", tenantID.String()),
	)
	return n, nil
}
