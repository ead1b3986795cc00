package integration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// OAuth Errors
// ---------------------------------------------------------------------------

var (
	ErrAlreadyConnected        = errors.New("integration: integration is already connected")
	ErrInvalidAuthState        = errors.New("integration: invalid or consumed authorization state")
	ErrAuthStateExpired        = errors.New("integration: authorization state expired")
	ErrProviderRejected        = errors.New("integration: provider rejected the authorization code")
	ErrReauthorizationRequired = errors.New("integration: re-authorization required")
	ErrNoGrant                 = errors.New("integration: no grant exists for this integration")
)

// ---------------------------------------------------------------------------
// Token State
// ---------------------------------------------------------------------------

// TokenPhase represents where an integration's grant is in its lifecycle
type TokenPhase string

const (
	// TokenPhaseNoGrant indicates no authorization has ever completed
	TokenPhaseNoGrant TokenPhase = "NO_GRANT"
	// TokenPhaseAuthorizing indicates an authorization flow is pending
	TokenPhaseAuthorizing TokenPhase = "AUTHORIZING"
	// TokenPhaseActive indicates a usable access token exists
	TokenPhaseActive TokenPhase = "ACTIVE"
	// TokenPhaseExpiring indicates the access token is inside the refresh safety margin
	TokenPhaseExpiring TokenPhase = "EXPIRING"
	// TokenPhaseRevoked indicates the grant was revoked locally (terminal)
	TokenPhaseRevoked TokenPhase = "REVOKED"
	// TokenPhaseInvalid indicates a refresh failed; terminal until re-authorization
	TokenPhaseInvalid TokenPhase = "INVALID"
)

// IsValid returns true if the phase is valid
func (p TokenPhase) IsValid() bool {
	switch p {
	case TokenPhaseNoGrant, TokenPhaseAuthorizing, TokenPhaseActive,
		TokenPhaseExpiring, TokenPhaseRevoked, TokenPhaseInvalid:
		return true
	default:
		return false
	}
}

// String returns the string representation of TokenPhase
func (p TokenPhase) String() string {
	return string(p)
}

// OAuthToken is the secret material held by the credential vault for one
// integration. It never leaves the token manager except as a bare access token.
type OAuthToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// ExpiresWithin reports whether the access token expires inside the given margin
func (t *OAuthToken) ExpiresWithin(margin time.Duration) bool {
	return time.Now().Add(margin).After(t.ExpiresAt)
}

// Expired reports whether the access token is already past its expiry
func (t *OAuthToken) Expired() bool {
	return t.ExpiresWithin(0)
}

// TokenStatus is the read-only connectivity view served to callers
type TokenStatus struct {
	Phase       TokenPhase
	IsConnected bool
	ExpiresAt   *time.Time
	Scopes      []string
	CanRefresh  bool
	LastSyncAt  *time.Time
}

// ---------------------------------------------------------------------------
// Authorization State (anti-forgery, single use)
// ---------------------------------------------------------------------------

// AuthStateTTL bounds how long an authorization attempt may stay open
const AuthStateTTL = 10 * time.Minute

// AuthState is a single-use anti-forgery token binding an authorization
// attempt to its callback. A state row is consumed exactly once; replays fail.
type AuthState struct {
	State         string
	IntegrationID uuid.UUID
	TenantID      uuid.UUID
	RedirectURI   string
	ExpiresAt     time.Time
	ConsumedAt    *time.Time
	CreatedAt     time.Time
}

// NewAuthState creates an authorization state bound to an integration
func NewAuthState(tenantID, integrationID uuid.UUID, redirectURI string) *AuthState {
	now := time.Now()
	return &AuthState{
		State:         uuid.NewString(),
		IntegrationID: integrationID,
		TenantID:      tenantID,
		RedirectURI:   redirectURI,
		ExpiresAt:     now.Add(AuthStateTTL),
		CreatedAt:     now,
	}
}

// Consume marks the state as used. It fails on replay and on expiry;
// expiry is checked first so an expired-then-replayed state reports expiry.
func (s *AuthState) Consume(now time.Time) error {
	if now.After(s.ExpiresAt) {
		return ErrAuthStateExpired
	}
	if s.ConsumedAt != nil {
		return ErrInvalidAuthState
	}
	s.ConsumedAt = &now
	return nil
}

// AuthStateRepository persists authorization states. ConsumeByState must be
// atomic: two concurrent consumers of the same state see exactly one success.
type AuthStateRepository interface {
	Save(ctx context.Context, state *AuthState) error
	// ConsumeByState atomically loads and consumes a state token.
	// Returns ErrInvalidAuthState for unknown or already-consumed states and
	// ErrAuthStateExpired for expired ones.
	ConsumeByState(ctx context.Context, state string) (*AuthState, error)
	// DeleteExpired removes states whose expiry is in the past
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
