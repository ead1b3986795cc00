package integration

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Provider Adapter Errors
// ---------------------------------------------------------------------------

var (
	ErrProviderUnavailable     = errors.New("integration: provider temporarily unavailable")
	ErrProviderRequestFailed   = errors.New("integration: provider request failed")
	ErrProviderInvalidResponse = errors.New("integration: invalid provider response")
	ErrProviderAuthFailed      = errors.New("integration: provider authentication failed")
	ErrProviderRateLimited     = errors.New("integration: provider rate limited")
	ErrAdapterNotRegistered    = errors.New("integration: no adapter registered for provider")
)

// IsTransientProviderError reports whether an adapter error is worth retrying
// inside the same sync job. Auth failures and malformed responses are not.
func IsTransientProviderError(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrProviderRequestFailed) ||
		errors.Is(err, ErrProviderRateLimited)
}

// ---------------------------------------------------------------------------
// Adapter value objects
// ---------------------------------------------------------------------------

// CodeExchange is the input to an authorization-code exchange
type CodeExchange struct {
	Code        string
	RedirectURI string
}

// ConnectionTest is the result of a lightweight read-only identity call
type ConnectionTest struct {
	OK bool
	// AccountName is the provider-side account the credential belongs to
	AccountName string
	Message     string
}

// PullRequest describes one metrics pull against a provider
type PullRequest struct {
	TenantID      uuid.UUID
	IntegrationID uuid.UUID
	// AccessToken is a valid (non-expired) bearer token for the call
	AccessToken string
	Config      ProviderConfig
	Window      MetricsWindow
}

// ---------------------------------------------------------------------------
// ProviderAdapter Port Interface
// ---------------------------------------------------------------------------

// ProviderAdapter is the port interface for one concrete provider. It is
// defined in the domain layer; implementations live in the infrastructure
// layer. The worker pool and token manager depend only on this interface.
type ProviderAdapter interface {
	// ProviderType returns the provider this adapter handles
	ProviderType() ProviderType

	// AuthorizationURL builds the provider consent URL for the given
	// anti-forgery state and redirect URI
	AuthorizationURL(state, redirectURI string) string

	// ExchangeCode trades an authorization code for a token.
	// Returns ErrProviderRejected when the provider refuses the code.
	ExchangeCode(ctx context.Context, exchange CodeExchange) (*OAuthToken, error)

	// RefreshToken trades a refresh token for a fresh access token.
	// Returns ErrReauthorizationRequired when the grant is gone for good.
	RefreshToken(ctx context.Context, refreshToken string) (*OAuthToken, error)

	// RevokeToken best-effort revokes the grant at the provider
	RevokeToken(ctx context.Context, token *OAuthToken) error

	// TestConnection performs a read-only identity call
	TestConnection(ctx context.Context, accessToken string, cfg ProviderConfig) (*ConnectionTest, error)

	// PullMetrics pulls the requested window and maps it into the shared
	// normalized schema
	PullMetrics(ctx context.Context, req *PullRequest) (*MetricsSnapshot, error)

	// VerifySignature checks an inbound webhook payload against the
	// provider's signing rules. Must compare in constant time.
	VerifySignature(payload []byte, signature string) bool
}

// AdapterRegistry resolves the adapter for a provider type
type AdapterRegistry interface {
	// Get returns the adapter for the provider type, or ErrAdapterNotRegistered
	Get(provider ProviderType) (ProviderAdapter, error)
	// List returns all registered adapters
	List() []ProviderAdapter
}
