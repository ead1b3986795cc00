package integration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/adhub/backend/internal/domain/integration"
	"github.com/adhub/backend/internal/domain/shared"
)

// RefreshMargin is how close to expiry an access token may get before a
// caller-triggered refresh kicks in
const RefreshMargin = 5 * time.Minute

// TokenService owns the OAuth lifecycle of every integration: the
// authorization flow, transparent refresh and revocation. Raw token material
// stays between this service and the vault.
type TokenService struct {
	integrations integration.IntegrationRepository
	states       integration.AuthStateRepository
	vault        integration.CredentialVault
	adapters     integration.AdapterRegistry
	publisher    shared.EventPublisher
	logger       *zap.Logger

	// refreshGroup collapses concurrent refreshes of the same integration
	// into a single provider call
	refreshGroup singleflight.Group
}

// NewTokenService creates a new TokenService
func NewTokenService(
	integrations integration.IntegrationRepository,
	states integration.AuthStateRepository,
	vault integration.CredentialVault,
	adapters integration.AdapterRegistry,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *TokenService {
	return &TokenService{
		integrations: integrations,
		states:       states,
		vault:        vault,
		adapters:     adapters,
		publisher:    publisher,
		logger:       logger,
	}
}

// ---------------------------------------------------------------------------
// Authorization flow
// ---------------------------------------------------------------------------

// StartAuthorization opens an OAuth flow for an integration and returns the
// provider consent URL. The anti-forgery state is single use and expires
// after AuthStateTTL.
func (s *TokenService) StartAuthorization(ctx context.Context, tenantID, integrationID uuid.UUID, redirectURI string) (*StartAuthorizationResponse, error) {
	i, err := s.integrations.FindByIDForTenant(ctx, tenantID, integrationID)
	if err != nil {
		return nil, err
	}
	if i.Status == integration.IntegrationStatusConnected {
		return nil, integration.ErrAlreadyConnected
	}

	adapter, err := s.adapters.Get(i.Provider)
	if err != nil {
		return nil, err
	}

	state := integration.NewAuthState(tenantID, integrationID, redirectURI)
	if err := s.states.Save(ctx, state); err != nil {
		return nil, err
	}

	i.BeginAuthorization()
	if err := s.integrations.Save(ctx, i); err != nil {
		return nil, err
	}

	return &StartAuthorizationResponse{
		AuthorizeURL: adapter.AuthorizationURL(state.State, redirectURI),
		State:        state.State,
		ExpiresAt:    state.ExpiresAt,
	}, nil
}

// CompleteAuthorization finishes an OAuth flow: it consumes the state,
// exchanges the code and stores the resulting token in the vault. A replayed
// or expired state fails without touching the provider.
func (s *TokenService) CompleteAuthorization(ctx context.Context, req CompleteAuthorizationRequest) (*integration.Integration, error) {
	state, err := s.states.ConsumeByState(ctx, req.State)
	if err != nil {
		return nil, err
	}

	i, err := s.integrations.FindByIDForTenant(ctx, state.TenantID, state.IntegrationID)
	if err != nil {
		return nil, err
	}

	adapter, err := s.adapters.Get(i.Provider)
	if err != nil {
		return nil, err
	}

	token, err := adapter.ExchangeCode(ctx, integration.CodeExchange{
		Code:        req.Code,
		RedirectURI: state.RedirectURI,
	})
	if err != nil {
		i.MarkError()
		if saveErr := s.integrations.Save(ctx, i); saveErr != nil {
			s.logger.Warn("Failed to record authorization failure",
				zap.String("integration_id", i.ID.String()),
				zap.Error(saveErr),
			)
		}
		return nil, err
	}

	ref, err := s.vault.Store(ctx, i.TenantID, i.ID, token)
	if err != nil {
		return nil, err
	}

	// A re-authorization replaces the previous grant
	oldRef := i.CredentialRef
	i.MarkConnected(ref)
	if err := s.integrations.Save(ctx, i); err != nil {
		return nil, err
	}
	if oldRef != nil {
		if err := s.vault.Revoke(ctx, i.TenantID, *oldRef); err != nil &&
			!errors.Is(err, integration.ErrCredentialNotFound) {
			s.logger.Warn("Failed to revoke superseded credential",
				zap.String("integration_id", i.ID.String()),
				zap.Error(err),
			)
		}
	}

	if err := s.publisher.Publish(ctx, integration.NewConnectedEvent(i)); err != nil {
		s.logger.Warn("Failed to publish connected event",
			zap.String("integration_id", i.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("Integration authorized",
		zap.String("integration_id", i.ID.String()),
		zap.String("tenant_id", i.TenantID.String()),
		zap.String("provider", string(i.Provider)),
	)
	return i, nil
}

// ---------------------------------------------------------------------------
// Token access and refresh
// ---------------------------------------------------------------------------

// ValidAccessToken returns an access token guaranteed to be outside the
// refresh margin, refreshing it first when needed. Concurrent callers for
// the same integration share one refresh.
func (s *TokenService) ValidAccessToken(ctx context.Context, tenantID, integrationID uuid.UUID) (string, error) {
	i, err := s.integrations.FindByIDForTenant(ctx, tenantID, integrationID)
	if err != nil {
		return "", err
	}
	if i.CredentialRef == nil {
		return "", integration.ErrNoGrant
	}

	token, err := s.vault.Fetch(ctx, tenantID, *i.CredentialRef)
	if err != nil {
		if errors.Is(err, integration.ErrCredentialRevoked) {
			return "", integration.ErrReauthorizationRequired
		}
		return "", err
	}

	if !token.ExpiresWithin(RefreshMargin) {
		return token.AccessToken, nil
	}

	refreshed, err, _ := s.refreshGroup.Do(integrationID.String(), func() (interface{}, error) {
		return s.refresh(ctx, tenantID, integrationID, false)
	})
	if err != nil {
		return "", err
	}
	return refreshed.(*integration.OAuthToken).AccessToken, nil
}

// ForceRefresh refreshes the grant immediately regardless of how far from
// expiry it is, and returns the resulting token status
func (s *TokenService) ForceRefresh(ctx context.Context, tenantID, integrationID uuid.UUID) (*integration.TokenStatus, error) {
	_, err, _ := s.refreshGroup.Do(integrationID.String(), func() (interface{}, error) {
		return s.refresh(ctx, tenantID, integrationID, true)
	})
	if err != nil {
		return nil, err
	}
	return s.Status(ctx, tenantID, integrationID)
}

// refresh performs one refresh round trip and rotates the vault record.
// It re-reads state first: unless forced, a refresh already performed by a
// concurrent caller is not repeated.
func (s *TokenService) refresh(ctx context.Context, tenantID, integrationID uuid.UUID, force bool) (*integration.OAuthToken, error) {
	i, err := s.integrations.FindByIDForTenant(ctx, tenantID, integrationID)
	if err != nil {
		return nil, err
	}
	if i.CredentialRef == nil {
		return nil, integration.ErrNoGrant
	}

	token, err := s.vault.Fetch(ctx, tenantID, *i.CredentialRef)
	if err != nil {
		return nil, err
	}
	if !force && !token.ExpiresWithin(RefreshMargin) {
		return token, nil
	}

	if token.RefreshToken == "" {
		return nil, s.refreshFailed(ctx, i, integration.ErrReauthorizationRequired)
	}

	adapter, err := s.adapters.Get(i.Provider)
	if err != nil {
		return nil, err
	}

	fresh, err := adapter.RefreshToken(ctx, token.RefreshToken)
	if err != nil {
		if errors.Is(err, integration.ErrReauthorizationRequired) || errors.Is(err, integration.ErrProviderAuthFailed) {
			return nil, s.refreshFailed(ctx, i, integration.ErrReauthorizationRequired)
		}
		// Transient failure: keep the stored grant, surface the error
		return nil, err
	}

	// Some providers do not rotate the refresh token; keep the old one then
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = token.RefreshToken
	}

	newRef, err := s.vault.Store(ctx, tenantID, i.ID, fresh)
	if err != nil {
		return nil, err
	}

	oldRef := *i.CredentialRef
	i.MarkConnected(newRef)
	if err := s.integrations.Save(ctx, i); err != nil {
		return nil, err
	}
	if err := s.vault.Revoke(ctx, tenantID, oldRef); err != nil &&
		!errors.Is(err, integration.ErrCredentialNotFound) {
		s.logger.Warn("Failed to revoke rotated credential",
			zap.String("integration_id", i.ID.String()),
			zap.Error(err),
		)
	}

	if err := s.publisher.Publish(ctx, integration.NewTokenRefreshedEvent(i)); err != nil {
		s.logger.Warn("Failed to publish token refreshed event",
			zap.String("integration_id", i.ID.String()),
			zap.Error(err),
		)
	}
	return fresh, nil
}

// refreshFailed records a dead grant and reports re-authorization
func (s *TokenService) refreshFailed(ctx context.Context, i *integration.Integration, cause error) error {
	i.MarkError()
	if err := s.integrations.Save(ctx, i); err != nil {
		s.logger.Error("Failed to record refresh failure",
			zap.String("integration_id", i.ID.String()),
			zap.Error(err),
		)
	}
	if err := s.publisher.Publish(ctx, integration.NewTokenRefreshFailedEvent(i, cause.Error())); err != nil {
		s.logger.Warn("Failed to publish token refresh failed event",
			zap.String("integration_id", i.ID.String()),
			zap.Error(err),
		)
	}
	return cause
}

// ---------------------------------------------------------------------------
// Status and revocation
// ---------------------------------------------------------------------------

// Status derives the read-only connectivity view of an integration. It never
// exposes token material.
func (s *TokenService) Status(ctx context.Context, tenantID, integrationID uuid.UUID) (*integration.TokenStatus, error) {
	i, err := s.integrations.FindByIDForTenant(ctx, tenantID, integrationID)
	if err != nil {
		return nil, err
	}

	status := &integration.TokenStatus{LastSyncAt: i.LastSyncAt}

	if i.CredentialRef == nil {
		if i.Status == integration.IntegrationStatusConnecting {
			status.Phase = integration.TokenPhaseAuthorizing
		} else {
			status.Phase = integration.TokenPhaseNoGrant
		}
		return status, nil
	}

	if i.Status == integration.IntegrationStatusError {
		status.Phase = integration.TokenPhaseInvalid
		return status, nil
	}

	token, err := s.vault.Fetch(ctx, tenantID, *i.CredentialRef)
	if err != nil {
		if errors.Is(err, integration.ErrCredentialRevoked) {
			status.Phase = integration.TokenPhaseRevoked
			return status, nil
		}
		return nil, err
	}

	expiresAt := token.ExpiresAt
	status.ExpiresAt = &expiresAt
	status.Scopes = token.Scopes
	status.CanRefresh = token.RefreshToken != ""
	status.IsConnected = true
	if token.ExpiresWithin(RefreshMargin) {
		status.Phase = integration.TokenPhaseExpiring
	} else {
		status.Phase = integration.TokenPhaseActive
	}
	return status, nil
}

// Revoke disconnects an integration: the provider-side revoke is best
// effort, the local ciphertext destruction always happens
func (s *TokenService) Revoke(ctx context.Context, tenantID, integrationID uuid.UUID) (*integration.Integration, error) {
	i, err := s.integrations.FindByIDForTenant(ctx, tenantID, integrationID)
	if err != nil {
		return nil, err
	}
	if i.CredentialRef == nil {
		return nil, integration.ErrNoGrant
	}

	if token, err := s.vault.Fetch(ctx, tenantID, *i.CredentialRef); err == nil {
		if adapter, adapterErr := s.adapters.Get(i.Provider); adapterErr == nil {
			if revokeErr := adapter.RevokeToken(ctx, token); revokeErr != nil {
				s.logger.Warn("Provider-side token revoke failed",
					zap.String("integration_id", i.ID.String()),
					zap.Error(revokeErr),
				)
			}
		}
	}

	if err := s.vault.Revoke(ctx, tenantID, *i.CredentialRef); err != nil &&
		!errors.Is(err, integration.ErrCredentialNotFound) {
		return nil, err
	}

	i.MarkDisconnected()
	if err := s.integrations.Save(ctx, i); err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, integration.NewRevokedEvent(i)); err != nil {
		s.logger.Warn("Failed to publish revoked event",
			zap.String("integration_id", i.ID.String()),
			zap.Error(err),
		)
	}
	return i, nil
}

// CleanupExpiredStates drops stale authorization states. Called periodically
// from the scheduler tick.
func (s *TokenService) CleanupExpiredStates(ctx context.Context) (int64, error) {
	return s.states.DeleteExpired(ctx, time.Now())
}
