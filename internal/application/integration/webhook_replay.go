package integration

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/adhub/backend/internal/domain/integration"
	"github.com/adhub/backend/internal/domain/shared"
)

// WebhookReplayHandler feeds replayed webhook deliveries back into the sync
// pipeline: a replay enqueues a fresh metrics pull for the integration, so
// re-processing a stored event flows through the same worker-pool path as a
// live sync. Live deliveries are fully recorded at ingest and need no extra
// pass here.
type WebhookReplayHandler struct {
	integrations integration.IntegrationRepository
	jobs         integration.SyncJobRepository
	pool         JobSubmitter
	logger       *zap.Logger
}

var _ shared.EventHandler = (*WebhookReplayHandler)(nil)

// NewWebhookReplayHandler creates a new WebhookReplayHandler
func NewWebhookReplayHandler(
	integrations integration.IntegrationRepository,
	jobs integration.SyncJobRepository,
	pool JobSubmitter,
	logger *zap.Logger,
) *WebhookReplayHandler {
	return &WebhookReplayHandler{
		integrations: integrations,
		jobs:         jobs,
		pool:         pool,
		logger:       logger,
	}
}

// EventTypes returns the event types the handler subscribes to
func (h *WebhookReplayHandler) EventTypes() []string {
	return []string{integration.EventTypeWebhookProcessed}
}

// Handle enqueues a replay-sourced sync for a replayed webhook event
func (h *WebhookReplayHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	ev, ok := event.(*integration.WebhookProcessedEvent)
	if !ok || !ev.Replayed {
		return nil
	}

	i, err := h.integrations.FindByID(ctx, ev.AggregateID())
	if err != nil {
		if errors.Is(err, integration.ErrIntegrationNotFound) {
			return nil
		}
		return err
	}
	if !i.IsActive || i.CredentialRef == nil {
		return nil
	}

	window := integration.DefaultMetricsWindow(time.Now(), DefaultManualSyncLookback)
	job := integration.NewSyncJob(i, integration.TriggerSourceReplay, window)
	if err := h.jobs.CreateIfIdle(ctx, job); err != nil {
		if errors.Is(err, integration.ErrSyncAlreadyRunning) {
			// The in-flight sync will pick up whatever the webhook announced
			h.logger.Debug("Replay sync suppressed by in-flight job",
				zap.String("integration_id", i.ID.String()),
				zap.String("webhook_event_id", ev.WebhookEventID.String()),
			)
			return nil
		}
		return err
	}

	if err := h.pool.Submit(job); err != nil {
		job.Fail(err.Error())
		if updateErr := h.jobs.Update(ctx, job); updateErr != nil {
			h.logger.Error("Failed to release unsubmittable replay sync job",
				zap.String("job_id", job.ID.String()),
				zap.Error(updateErr),
			)
		}
		return err
	}

	h.logger.Info("Replay sync enqueued",
		zap.String("integration_id", i.ID.String()),
		zap.String("webhook_event_id", ev.WebhookEventID.String()),
		zap.String("job_id", job.ID.String()),
	)
	return nil
}
