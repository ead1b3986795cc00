package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	app "github.com/adhub/backend/internal/application/integration"
	"github.com/adhub/backend/internal/domain/integration"
)

// Ensure MemoryPayloadArchive implements PayloadArchive
var _ app.PayloadArchive = (*MemoryPayloadArchive)(nil)

// MemoryPayloadArchive keeps payloads in process memory. It backs local
// development when no object storage is configured; contents are lost on
// restart.
type MemoryPayloadArchive struct {
	mu       sync.RWMutex
	payloads map[string][]byte
}

// NewMemoryPayloadArchive creates an empty in-memory archive
func NewMemoryPayloadArchive() *MemoryPayloadArchive {
	return &MemoryPayloadArchive{
		payloads: make(map[string][]byte),
	}
}

// Store keeps a copy of the event payload
func (m *MemoryPayloadArchive) Store(_ context.Context, event *integration.WebhookEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload := make([]byte, len(event.Payload))
	copy(payload, event.Payload)
	m.payloads[archiveKey(event.TenantID, event.ID)] = payload
	return nil
}

// Fetch returns a stored payload, or ErrWebhookEventNotFound
func (m *MemoryPayloadArchive) Fetch(_ context.Context, tenantID, eventID uuid.UUID) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.payloads[archiveKey(tenantID, eventID)]
	if !ok {
		return nil, integration.ErrWebhookEventNotFound
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// Delete removes a stored payload. Deleting a missing payload is a no-op.
func (m *MemoryPayloadArchive) Delete(_ context.Context, tenantID, eventID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.payloads, archiveKey(tenantID, eventID))
	return nil
}

// Len returns the number of stored payloads
func (m *MemoryPayloadArchive) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payloads)
}
