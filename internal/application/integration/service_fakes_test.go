package integration

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adhub/backend/internal/domain/integration"
	"github.com/adhub/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Repository fakes
// ---------------------------------------------------------------------------

type fakeIntegrationRepo struct {
	mu           sync.Mutex
	integrations map[uuid.UUID]*integration.Integration
	deleted      []uuid.UUID
}

func newFakeIntegrationRepo() *fakeIntegrationRepo {
	return &fakeIntegrationRepo{integrations: make(map[uuid.UUID]*integration.Integration)}
}

func (r *fakeIntegrationRepo) put(i *integration.Integration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *i
	r.integrations[i.ID] = &copied
}

func (r *fakeIntegrationRepo) FindByID(_ context.Context, id uuid.UUID) (*integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.integrations[id]
	if !ok {
		return nil, integration.ErrIntegrationNotFound
	}
	copied := *i
	return &copied, nil
}

func (r *fakeIntegrationRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*integration.Integration, error) {
	i, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if i.TenantID != tenantID {
		return nil, integration.ErrIntegrationNotFound
	}
	return i, nil
}

func (r *fakeIntegrationRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ integration.IntegrationFilter) ([]integration.Integration, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.Integration
	for _, i := range r.integrations {
		if i.TenantID == tenantID {
			out = append(out, *i)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeIntegrationRepo) FindSyncCandidates(_ context.Context) ([]integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.Integration
	for _, i := range r.integrations {
		if i.IsActive && i.Status == integration.IntegrationStatusConnected {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (r *fakeIntegrationRepo) Save(_ context.Context, i *integration.Integration) error {
	r.put(i)
	return nil
}

func (r *fakeIntegrationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.integrations[id]; !ok {
		return integration.ErrIntegrationNotFound
	}
	delete(r.integrations, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type fakeSyncJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*integration.SyncJob
}

func newFakeSyncJobRepo() *fakeSyncJobRepo {
	return &fakeSyncJobRepo{jobs: make(map[uuid.UUID]*integration.SyncJob)}
}

func (r *fakeSyncJobRepo) CreateIfIdle(_ context.Context, job *integration.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.jobs {
		if existing.IntegrationID == job.IntegrationID && !existing.Status.IsTerminal() {
			return integration.ErrSyncAlreadyRunning
		}
	}
	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *fakeSyncJobRepo) Update(_ context.Context, job *integration.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *fakeSyncJobRepo) FindByID(_ context.Context, id uuid.UUID) (*integration.SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, integration.ErrSyncJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (r *fakeSyncJobRepo) FindNonTerminalByIntegration(_ context.Context, integrationID uuid.UUID) (*integration.SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.IntegrationID == integrationID && !job.Status.IsTerminal() {
			copied := *job
			return &copied, nil
		}
	}
	return nil, integration.ErrSyncJobNotFound
}

func (r *fakeSyncJobRepo) ReleaseStale(_ context.Context, startedBefore time.Time, reason string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var released int64
	for _, job := range r.jobs {
		stale := (job.Status == integration.SyncJobStatusRunning && job.StartedAt != nil && job.StartedAt.Before(startedBefore)) ||
			(job.Status == integration.SyncJobStatusPending && job.EnqueuedAt.Before(startedBefore))
		if stale {
			job.Fail(reason)
			released++
		}
	}
	return released, nil
}

type fakeSyncHistoryRepo struct {
	mu                  sync.Mutex
	records             []integration.SyncHistory
	consecutiveFailures map[uuid.UUID]int
}

func newFakeSyncHistoryRepo() *fakeSyncHistoryRepo {
	return &fakeSyncHistoryRepo{consecutiveFailures: make(map[uuid.UUID]int)}
}

func (r *fakeSyncHistoryRepo) Create(_ context.Context, record *integration.SyncHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeSyncHistoryRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*integration.SyncHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID == id && r.records[i].TenantID == tenantID {
			copied := r.records[i]
			return &copied, nil
		}
	}
	return nil, integration.ErrSyncHistoryNotFound
}

func (r *fakeSyncHistoryRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ integration.SyncHistoryFilter) ([]integration.SyncHistory, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.SyncHistory
	for _, record := range r.records {
		if record.TenantID == tenantID {
			out = append(out, record)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeSyncHistoryRepo) CountConsecutiveFailures(_ context.Context, integrationID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.consecutiveFailures[integrationID], nil
}

type fakeAuthStateRepo struct {
	mu     sync.Mutex
	states map[string]*integration.AuthState
}

func newFakeAuthStateRepo() *fakeAuthStateRepo {
	return &fakeAuthStateRepo{states: make(map[string]*integration.AuthState)}
}

func (r *fakeAuthStateRepo) Save(_ context.Context, state *integration.AuthState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *state
	r.states[state.State] = &copied
	return nil
}

func (r *fakeAuthStateRepo) ConsumeByState(_ context.Context, state string) (*integration.AuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.states[state]
	if !ok {
		return nil, integration.ErrInvalidAuthState
	}
	if err := stored.Consume(time.Now()); err != nil {
		return nil, err
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeAuthStateRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for key, state := range r.states {
		if state.ExpiresAt.Before(before) {
			delete(r.states, key)
			removed++
		}
	}
	return removed, nil
}

type fakeWebhookEventRepo struct {
	mu     sync.Mutex
	events map[uuid.UUID]*integration.WebhookEvent
}

func newFakeWebhookEventRepo() *fakeWebhookEventRepo {
	return &fakeWebhookEventRepo{events: make(map[uuid.UUID]*integration.WebhookEvent)}
}

func (r *fakeWebhookEventRepo) Create(_ context.Context, event *integration.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

func (r *fakeWebhookEventRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*integration.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok || event.TenantID != tenantID {
		return nil, integration.ErrWebhookEventNotFound
	}
	copied := *event
	return &copied, nil
}

func (r *fakeWebhookEventRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, filter integration.WebhookEventFilter) ([]integration.WebhookEvent, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.WebhookEvent
	for _, event := range r.events {
		if event.TenantID != tenantID {
			continue
		}
		if filter.IntegrationID != nil && event.IntegrationID != *filter.IntegrationID {
			continue
		}
		if filter.EventType != "" && event.EventType != filter.EventType {
			continue
		}
		out = append(out, *event)
	}
	return out, int64(len(out)), nil
}

func (r *fakeWebhookEventRepo) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok || event.TenantID != tenantID {
		return integration.ErrWebhookEventNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *fakeWebhookEventRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]*integration.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[uuid.UUID]*integration.Notification)}
}

func (r *fakeNotificationRepo) Save(_ context.Context, n *integration.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *n
	r.notifications[n.ID] = &copied
	return nil
}

func (r *fakeNotificationRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*integration.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok || n.TenantID != tenantID {
		return nil, integration.ErrNotificationNotFound
	}
	copied := *n
	return &copied, nil
}

func (r *fakeNotificationRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, filter integration.NotificationFilter) ([]integration.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.Notification
	for _, n := range r.notifications {
		if n.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && n.Status != *filter.Status {
			continue
		}
		if filter.Severity != nil && n.Severity != *filter.Severity {
			continue
		}
		out = append(out, *n)
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotificationRepo) FindOpenByCause(_ context.Context, integrationID uuid.UUID, cause integration.NotificationCause) (*integration.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.IntegrationID != nil && *n.IntegrationID == integrationID &&
			n.Cause == cause && n.Status == integration.NotificationStatusOpen {
			copied := *n
			return &copied, nil
		}
	}
	return nil, integration.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) FindOpenByIntegration(_ context.Context, integrationID uuid.UUID) ([]integration.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.Notification
	for _, n := range r.notifications {
		if n.IntegrationID != nil && *n.IntegrationID == integrationID &&
			n.Status == integration.NotificationStatusOpen {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) open(integrationID uuid.UUID, cause integration.NotificationCause) []integration.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.Notification
	for _, n := range r.notifications {
		if n.IntegrationID != nil && *n.IntegrationID == integrationID &&
			n.Cause == cause && n.Status == integration.NotificationStatusOpen {
			out = append(out, *n)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Vault fake
// ---------------------------------------------------------------------------

type vaultRecord struct {
	tenantID uuid.UUID
	token    integration.OAuthToken
	revoked  bool
}

type fakeVault struct {
	mu      sync.Mutex
	records map[uuid.UUID]*vaultRecord
	stores  int
}

func newFakeVault() *fakeVault {
	return &fakeVault{records: make(map[uuid.UUID]*vaultRecord)}
}

func (v *fakeVault) Store(_ context.Context, tenantID, _ uuid.UUID, token *integration.OAuthToken) (uuid.UUID, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ref := uuid.New()
	v.records[ref] = &vaultRecord{tenantID: tenantID, token: *token}
	v.stores++
	return ref, nil
}

func (v *fakeVault) Fetch(_ context.Context, tenantID uuid.UUID, ref uuid.UUID) (*integration.OAuthToken, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	record, ok := v.records[ref]
	if !ok {
		return nil, integration.ErrCredentialNotFound
	}
	if record.tenantID != tenantID {
		return nil, integration.ErrCredentialAccessDenied
	}
	if record.revoked {
		return nil, integration.ErrCredentialRevoked
	}
	token := record.token
	return &token, nil
}

func (v *fakeVault) Revoke(_ context.Context, tenantID uuid.UUID, ref uuid.UUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	record, ok := v.records[ref]
	if !ok {
		return integration.ErrCredentialNotFound
	}
	if record.tenantID != tenantID {
		return integration.ErrCredentialAccessDenied
	}
	record.revoked = true
	return nil
}

func (v *fakeVault) revokedCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	count := 0
	for _, record := range v.records {
		if record.revoked {
			count++
		}
	}
	return count
}

// ---------------------------------------------------------------------------
// Adapter fake
// ---------------------------------------------------------------------------

type fakeAdapter struct {
	mu       sync.Mutex
	provider integration.ProviderType

	exchangeToken *integration.OAuthToken
	exchangeErr   error
	exchangeCalls int

	refreshToken *integration.OAuthToken
	refreshErr   error
	refreshDelay time.Duration
	refreshCalls int

	revokeCalls int

	testResult *integration.ConnectionTest
	testErr    error

	validSignature string
}

func newFakeAdapter(provider integration.ProviderType) *fakeAdapter {
	return &fakeAdapter{provider: provider}
}

func (a *fakeAdapter) ProviderType() integration.ProviderType { return a.provider }

func (a *fakeAdapter) AuthorizationURL(state, redirectURI string) string {
	return "https://provider.example/oauth/authorize?state=" + state + "&redirect_uri=" + redirectURI
}

func (a *fakeAdapter) ExchangeCode(_ context.Context, _ integration.CodeExchange) (*integration.OAuthToken, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exchangeCalls++
	if a.exchangeErr != nil {
		return nil, a.exchangeErr
	}
	token := *a.exchangeToken
	return &token, nil
}

func (a *fakeAdapter) RefreshToken(_ context.Context, _ string) (*integration.OAuthToken, error) {
	a.mu.Lock()
	a.refreshCalls++
	delay := a.refreshDelay
	refreshErr := a.refreshErr
	var token *integration.OAuthToken
	if a.refreshToken != nil {
		copied := *a.refreshToken
		token = &copied
	}
	a.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if refreshErr != nil {
		return nil, refreshErr
	}
	return token, nil
}

func (a *fakeAdapter) RevokeToken(_ context.Context, _ *integration.OAuthToken) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revokeCalls++
	return nil
}

func (a *fakeAdapter) TestConnection(_ context.Context, _ string, _ integration.ProviderConfig) (*integration.ConnectionTest, error) {
	if a.testErr != nil {
		return nil, a.testErr
	}
	if a.testResult != nil {
		return a.testResult, nil
	}
	return &integration.ConnectionTest{OK: true, AccountName: "Test Account"}, nil
}

func (a *fakeAdapter) PullMetrics(_ context.Context, req *integration.PullRequest) (*integration.MetricsSnapshot, error) {
	return &integration.MetricsSnapshot{Window: req.Window}, nil
}

func (a *fakeAdapter) VerifySignature(_ []byte, signature string) bool {
	return a.validSignature != "" && signature == a.validSignature
}

func (a *fakeAdapter) refreshCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshCalls
}

type fakeRegistry struct {
	adapters map[integration.ProviderType]integration.ProviderAdapter
}

func newFakeRegistry(adapters ...integration.ProviderAdapter) *fakeRegistry {
	r := &fakeRegistry{adapters: make(map[integration.ProviderType]integration.ProviderAdapter)}
	for _, a := range adapters {
		r.adapters[a.ProviderType()] = a
	}
	return r
}

func (r *fakeRegistry) Get(provider integration.ProviderType) (integration.ProviderAdapter, error) {
	a, ok := r.adapters[provider]
	if !ok {
		return nil, integration.ErrAdapterNotRegistered
	}
	return a, nil
}

func (r *fakeRegistry) List() []integration.ProviderAdapter {
	out := make([]integration.ProviderAdapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

// ---------------------------------------------------------------------------
// Event and idempotency fakes
// ---------------------------------------------------------------------------

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) byType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeIdempotencyStore struct {
	mu        sync.Mutex
	processed map[string]struct{}
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{processed: make(map[string]struct{})}
}

func (s *fakeIdempotencyStore) MarkProcessed(_ context.Context, eventID string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processed[eventID]; ok {
		return false, nil
	}
	s.processed[eventID] = struct{}{}
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.processed[eventID]
	return ok, nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }
