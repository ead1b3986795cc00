package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adhub/backend/internal/domain/integration"
	"github.com/adhub/backend/internal/domain/shared"
)

// replayDedupTTL is how long a replayed event ID stays marked, bounding
// double-delivery of replays
const replayDedupTTL = 24 * time.Hour

// PayloadArchive is an optional long-term store for raw webhook payloads,
// kept alongside the database copy for audit and offline reprocessing
type PayloadArchive interface {
	Store(ctx context.Context, event *integration.WebhookEvent) error
	Fetch(ctx context.Context, tenantID, eventID uuid.UUID) ([]byte, error)
	Delete(ctx context.Context, tenantID, eventID uuid.UUID) error
}

// WebhookService ingests provider webhook events and serves the replay and
// retention operations on top of them. Ingestion is tenant-routed by the
// integration ID baked into the subscription URL.
type WebhookService struct {
	integrations integration.IntegrationRepository
	events       integration.WebhookEventRepository
	adapters     integration.AdapterRegistry
	idempotency  shared.IdempotencyStore
	publisher    shared.EventPublisher
	archive      PayloadArchive
	logger       *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(
	integrations integration.IntegrationRepository,
	events integration.WebhookEventRepository,
	adapters integration.AdapterRegistry,
	idempotency shared.IdempotencyStore,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		integrations: integrations,
		events:       events,
		adapters:     adapters,
		idempotency:  idempotency,
		publisher:    publisher,
		logger:       logger,
	}
}

// AttachPayloadArchive enables best-effort archiving of raw payloads to
// object storage. Archive failures never fail the delivery.
func (s *WebhookService) AttachPayloadArchive(archive PayloadArchive) {
	s.archive = archive
}

// Ingest validates and records one inbound webhook delivery. Events that
// fail signature verification are rejected without leaving any record.
func (s *WebhookService) Ingest(ctx context.Context, provider integration.ProviderType, integrationID uuid.UUID, eventType string, payload []byte, signature string) (*integration.WebhookEvent, error) {
	if !provider.IsValid() {
		return nil, integration.ErrWebhookUnknownProvider
	}
	if len(payload) == 0 {
		return nil, integration.ErrWebhookEmptyPayload
	}

	i, err := s.integrations.FindByID(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	// The URL names a provider; the integration behind it must match
	if i.Provider != provider || !i.IsActive {
		return nil, integration.ErrIntegrationNotFound
	}

	adapter, err := s.adapters.Get(provider)
	if err != nil {
		return nil, err
	}
	if !adapter.VerifySignature(payload, signature) {
		s.logger.Warn("Webhook signature verification failed",
			zap.String("integration_id", integrationID.String()),
			zap.String("provider", string(provider)),
		)
		return nil, integration.ErrWebhookInvalidSignature
	}

	event, err := integration.NewWebhookEvent(i, eventType, payload, signature)
	if err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	if s.archive != nil {
		if err := s.archive.Store(ctx, event); err != nil {
			s.logger.Warn("Failed to archive webhook payload",
				zap.String("event_id", event.ID.String()),
				zap.Error(err),
			)
		}
	}

	if err := s.publisher.Publish(ctx, integration.NewWebhookProcessedEvent(event, false)); err != nil {
		s.logger.Warn("Failed to publish webhook processed event",
			zap.String("event_id", event.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("Webhook event ingested",
		zap.String("event_id", event.ID.String()),
		zap.String("integration_id", integrationID.String()),
		zap.String("provider", string(provider)),
		zap.String("event_type", eventType),
	)
	return event, nil
}

// ValidateSignature checks a payload/signature pair against a provider's
// signing rules without recording anything. Intended for subscription setup
// debugging.
func (s *WebhookService) ValidateSignature(provider integration.ProviderType, payload []byte, signature string) (bool, error) {
	if !provider.IsValid() {
		return false, integration.ErrWebhookUnknownProvider
	}
	adapter, err := s.adapters.Get(provider)
	if err != nil {
		return false, err
	}
	return adapter.VerifySignature(payload, signature), nil
}

// Replay re-runs the processing side effects of a stored event. Replays are
// idempotent: repeating one within the dedup window is a no-op.
func (s *WebhookService) Replay(ctx context.Context, tenantID, eventID uuid.UUID) (*integration.WebhookEvent, bool, error) {
	event, err := s.events.FindByID(ctx, tenantID, eventID)
	if err != nil {
		return nil, false, err
	}

	fresh, err := s.idempotency.MarkProcessed(ctx, "webhook-replay:"+eventID.String(), replayDedupTTL)
	if err != nil {
		return nil, false, err
	}
	if !fresh {
		s.logger.Debug("Webhook replay suppressed by idempotency window",
			zap.String("event_id", eventID.String()),
		)
		return event, false, nil
	}

	if err := s.publisher.Publish(ctx, integration.NewWebhookProcessedEvent(event, true)); err != nil {
		return nil, false, err
	}

	s.logger.Info("Webhook event replayed",
		zap.String("event_id", eventID.String()),
		zap.String("tenant_id", tenantID.String()),
	)
	return event, true, nil
}

// Get returns one stored event including its raw payload
func (s *WebhookService) Get(ctx context.Context, tenantID, eventID uuid.UUID) (*integration.WebhookEvent, error) {
	return s.events.FindByID(ctx, tenantID, eventID)
}

// List lists a tenant's stored events, newest first
func (s *WebhookService) List(ctx context.Context, tenantID uuid.UUID, filter integration.WebhookEventFilter) ([]integration.WebhookEvent, int64, error) {
	return s.events.FindAllForTenant(ctx, tenantID, filter)
}

// Delete removes a stored event permanently
func (s *WebhookService) Delete(ctx context.Context, tenantID, eventID uuid.UUID) error {
	if err := s.events.Delete(ctx, tenantID, eventID); err != nil {
		return err
	}
	if s.archive != nil {
		if err := s.archive.Delete(ctx, tenantID, eventID); err != nil {
			s.logger.Warn("Failed to delete archived webhook payload",
				zap.String("event_id", eventID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}
