package adsplatform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adhub/backend/internal/domain/integration"
)

func TestRegistry(t *testing.T) {
	google, err := NewGoogleAdsAdapter(&GoogleAdsConfig{ClientID: "client", ClientSecret: "secret"})
	require.NoError(t, err)
	zalo, err := NewZaloOAAdapter(&ZaloOAConfig{AppID: "app", AppSecret: "secret"})
	require.NoError(t, err)

	registry := NewRegistry(google, zalo)

	t.Run("get registered adapter", func(t *testing.T) {
		adapter, err := registry.Get(integration.ProviderTypeSearchAds)
		require.NoError(t, err)
		assert.Equal(t, integration.ProviderTypeSearchAds, adapter.ProviderType())
	})

	t.Run("unregistered provider", func(t *testing.T) {
		_, err := registry.Get(integration.ProviderTypeCommerce)
		assert.ErrorIs(t, err, integration.ErrAdapterNotRegistered)
	})

	t.Run("register replaces by provider type", func(t *testing.T) {
		replacement, err := NewGoogleAdsAdapter(&GoogleAdsConfig{ClientID: "other", ClientSecret: "secret"})
		require.NoError(t, err)
		registry.Register(replacement)

		adapter, err := registry.Get(integration.ProviderTypeSearchAds)
		require.NoError(t, err)
		assert.Same(t, replacement, adapter)
	})

	t.Run("list", func(t *testing.T) {
		adapters := registry.List()
		assert.Len(t, adapters, 2)
	})
}
