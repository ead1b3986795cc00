package integration

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adhub/backend/internal/domain/integration"
)

// IntegrationService manages the integration registry of a tenant:
// creation, configuration, activation and hard deletion.
type IntegrationService struct {
	integrations integration.IntegrationRepository
	jobs         integration.SyncJobRepository
	vault        integration.CredentialVault
	adapters     integration.AdapterRegistry
	logger       *zap.Logger
}

// NewIntegrationService creates a new IntegrationService
func NewIntegrationService(
	integrations integration.IntegrationRepository,
	jobs integration.SyncJobRepository,
	vault integration.CredentialVault,
	adapters integration.AdapterRegistry,
	logger *zap.Logger,
) *IntegrationService {
	return &IntegrationService{
		integrations: integrations,
		jobs:         jobs,
		vault:        vault,
		adapters:     adapters,
		logger:       logger,
	}
}

// Create registers a new, disconnected integration for a tenant
func (s *IntegrationService) Create(ctx context.Context, tenantID uuid.UUID, req CreateIntegrationRequest) (*integration.Integration, error) {
	// The provider must have an adapter before the integration is usable
	if _, err := s.adapters.Get(req.Provider); err != nil {
		return nil, err
	}

	var cfg integration.ProviderConfig
	if len(req.Config) > 0 {
		decoded, err := integration.DecodeProviderConfig(req.Provider, req.Config)
		if err != nil {
			return nil, err
		}
		if err := decoded.Validate(); err != nil {
			return nil, err
		}
		cfg = decoded
	}

	i, err := integration.NewIntegration(tenantID, req.Provider, req.Name, cfg)
	if err != nil {
		return nil, err
	}

	if req.SyncFrequencyMinutes > 0 {
		if err := i.SetSyncFrequency(req.SyncFrequencyMinutes); err != nil {
			return nil, err
		}
	}

	if err := s.integrations.Save(ctx, i); err != nil {
		return nil, err
	}

	s.logger.Info("Integration created",
		zap.String("integration_id", i.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider", string(i.Provider)),
	)
	return i, nil
}

// Get retrieves an integration within a tenant
func (s *IntegrationService) Get(ctx context.Context, tenantID, id uuid.UUID) (*integration.Integration, error) {
	return s.integrations.FindByIDForTenant(ctx, tenantID, id)
}

// List lists a tenant's integrations
func (s *IntegrationService) List(ctx context.Context, tenantID uuid.UUID, filter integration.IntegrationFilter) ([]integration.Integration, int64, error) {
	return s.integrations.FindAllForTenant(ctx, tenantID, filter)
}

// Update applies partial changes to name, config and sync frequency
func (s *IntegrationService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateIntegrationRequest) (*integration.Integration, error) {
	i, err := s.integrations.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, integration.ErrInvalidIntegrationName
		}
		i.Name = *req.Name
	}

	if len(req.Config) > 0 {
		cfg, err := integration.DecodeProviderConfig(i.Provider, req.Config)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		i.Config = cfg
	}

	if req.SyncFrequencyMinutes != nil {
		if err := i.SetSyncFrequency(*req.SyncFrequencyMinutes); err != nil {
			return nil, err
		}
	}

	if req.IsActive != nil {
		if *req.IsActive {
			i.Activate()
		} else {
			i.Deactivate()
		}
	}

	if err := s.integrations.Save(ctx, i); err != nil {
		return nil, err
	}
	return i, nil
}

// Activate re-enables a deactivated integration
func (s *IntegrationService) Activate(ctx context.Context, tenantID, id uuid.UUID) (*integration.Integration, error) {
	i, err := s.integrations.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	i.Activate()
	if err := s.integrations.Save(ctx, i); err != nil {
		return nil, err
	}
	return i, nil
}

// Deactivate pauses scheduling and webhook acceptance without touching the
// stored grant or any history
func (s *IntegrationService) Deactivate(ctx context.Context, tenantID, id uuid.UUID) (*integration.Integration, error) {
	i, err := s.integrations.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	i.Deactivate()
	if err := s.integrations.Save(ctx, i); err != nil {
		return nil, err
	}
	return i, nil
}

// Delete permanently removes an integration. The provider-side revoke is
// best effort, the local ciphertext destruction is not: the vault record is
// always destroyed before the row goes away.
func (s *IntegrationService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	i, err := s.integrations.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return err
	}

	// A running sync holds references to the integration; refuse until idle
	if _, err := s.jobs.FindNonTerminalByIntegration(ctx, i.ID); err == nil {
		return integration.ErrSyncAlreadyRunning
	} else if !errors.Is(err, integration.ErrSyncJobNotFound) {
		return err
	}

	if i.CredentialRef != nil {
		s.revokeAtProvider(ctx, i)

		if err := s.vault.Revoke(ctx, tenantID, *i.CredentialRef); err != nil &&
			!errors.Is(err, integration.ErrCredentialNotFound) {
			return err
		}
	}

	if err := s.integrations.Delete(ctx, i.ID); err != nil {
		return err
	}

	s.logger.Info("Integration deleted",
		zap.String("integration_id", i.ID.String()),
		zap.String("tenant_id", tenantID.String()),
	)
	return nil
}

// revokeAtProvider tells the provider to drop the grant. Failures are logged
// and swallowed: the provider may already have revoked it.
func (s *IntegrationService) revokeAtProvider(ctx context.Context, i *integration.Integration) {
	adapter, err := s.adapters.Get(i.Provider)
	if err != nil {
		return
	}
	token, err := s.vault.Fetch(ctx, i.TenantID, *i.CredentialRef)
	if err != nil {
		return
	}
	if err := adapter.RevokeToken(ctx, token); err != nil {
		s.logger.Warn("Provider-side token revoke failed",
			zap.String("integration_id", i.ID.String()),
			zap.String("provider", string(i.Provider)),
			zap.Error(err),
		)
	}
}
