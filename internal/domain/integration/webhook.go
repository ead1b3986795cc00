package integration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Webhook Errors
// ---------------------------------------------------------------------------

var (
	ErrWebhookEventNotFound    = errors.New("integration: webhook event not found")
	ErrWebhookInvalidSignature = errors.New("integration: invalid webhook signature")
	ErrWebhookUnknownProvider  = errors.New("integration: unknown webhook provider")
	ErrWebhookEmptyPayload     = errors.New("integration: webhook payload is empty")
)

// ---------------------------------------------------------------------------
// WebhookEvent Entity
// ---------------------------------------------------------------------------

// WebhookEvent is the immutable record of one inbound provider callback.
// It is created on ingestion and never mutated; replay re-runs processing
// against the stored payload without touching the original record.
type WebhookEvent struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	IntegrationID uuid.UUID
	Provider      ProviderType
	// EventType is the provider-declared event kind (e.g. "ads.budget_exhausted")
	EventType string
	// Payload is the raw body as received, before any decoding
	Payload []byte
	// Signature is the value of the provider's signature header
	Signature  string
	ReceivedAt time.Time
}

// NewWebhookEvent records an inbound callback for an integration
func NewWebhookEvent(i *Integration, eventType string, payload []byte, signature string) (*WebhookEvent, error) {
	if len(payload) == 0 {
		return nil, ErrWebhookEmptyPayload
	}
	return &WebhookEvent{
		ID:            uuid.New(),
		TenantID:      i.TenantID,
		IntegrationID: i.ID,
		Provider:      i.Provider,
		EventType:     eventType,
		Payload:       payload,
		Signature:     signature,
		ReceivedAt:    time.Now(),
	}, nil
}

// WebhookEventFilter holds query options for listing webhook events
type WebhookEventFilter struct {
	IntegrationID *uuid.UUID
	Provider      *ProviderType
	EventType     string
	Page          int
	PageSize      int
}

// WebhookEventRepository persists webhook events. Implementations must never
// update an existing record; deletion is an explicit operator action.
type WebhookEventRepository interface {
	Create(ctx context.Context, event *WebhookEvent) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*WebhookEvent, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter WebhookEventFilter) ([]WebhookEvent, int64, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
