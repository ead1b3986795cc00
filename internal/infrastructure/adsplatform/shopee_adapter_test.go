package adsplatform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adhub/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestShopeeConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *ShopeeConfig
		wantErr error
	}{
		{
			name:    "valid config",
			config:  &ShopeeConfig{PartnerID: 1000123, PartnerKey: "partner_key"},
			wantErr: nil,
		},
		{
			name:    "missing partner ID",
			config:  &ShopeeConfig{PartnerKey: "partner_key"},
			wantErr: ErrShopeeConfigMissingPartnerID,
		},
		{
			name:    "missing partner key",
			config:  &ShopeeConfig{PartnerID: 1000123},
			wantErr: ErrShopeeConfigMissingPartnerKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, tt.config.APIBaseURL)
				assert.True(t, tt.config.TimeoutSeconds > 0)
			}
		})
	}
}

func TestShopeeConfig_Sign(t *testing.T) {
	config := &ShopeeConfig{PartnerID: 1000123, PartnerKey: "partner_key"}

	// Sign should be deterministic
	sign1 := config.Sign("/api/v2/shop/get_shop_info", 1704067200, "token", "789")
	sign2 := config.Sign("/api/v2/shop/get_shop_info", 1704067200, "token", "789")
	assert.Equal(t, sign1, sign2)
	assert.Len(t, sign1, 64) // SHA256 produces 64 hex characters

	// Any part of the base string changes the signature
	assert.NotEqual(t, sign1, config.Sign("/api/v2/shop/get_shop_info", 1704067201, "token", "789"))
	assert.NotEqual(t, sign1, config.Sign("/api/v2/shop/get_shop_info", 1704067200, "token", "790"))
}

// ---------------------------------------------------------------------------
// Adapter Tests
// ---------------------------------------------------------------------------

func createTestShopeeAdapter(t *testing.T, apiBaseURL string) *ShopeeAdapter {
	t.Helper()
	adapter, err := NewShopeeAdapter(&ShopeeConfig{
		PartnerID:  1000123,
		PartnerKey: "partner_key",
		APIBaseURL: apiBaseURL,
	})
	require.NoError(t, err)
	return adapter
}

func commerceTestConfig() *integration.CommerceConfig {
	return &integration.CommerceConfig{ShopID: "789", Region: "VN"}
}

func TestNewShopeeAdapter(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		adapter := createTestShopeeAdapter(t, "")
		assert.Equal(t, integration.ProviderTypeCommerce, adapter.ProviderType())
	})

	t.Run("invalid config", func(t *testing.T) {
		adapter, err := NewShopeeAdapter(&ShopeeConfig{})
		assert.Error(t, err)
		assert.Nil(t, adapter)
	})
}

func TestShopeeAdapter_AuthorizationURL(t *testing.T) {
	adapter := createTestShopeeAdapter(t, "")
	adapter.now = func() time.Time { return time.Unix(1704067200, 0) }

	u := adapter.AuthorizationURL("state123", "https://app.example.com/callback")
	assert.Contains(t, u, "/api/v2/shop/auth_partner")
	assert.Contains(t, u, "partner_id=1000123")
	assert.Contains(t, u, "timestamp=1704067200")
	// The state rides on the redirect URL
	assert.Contains(t, u, "state%3Dstate123")
	assert.Contains(t, u, "sign="+adapter.config.Sign("/api/v2/shop/auth_partner", 1704067200))
}

func TestShopeeAdapter_ExchangeCode(t *testing.T) {
	t.Run("successful exchange", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v2/auth/token/get", r.URL.Path)
			assert.NotEmpty(t, r.URL.Query().Get("sign"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "auth_code", body["code"])

			json.NewEncoder(w).Encode(shopeeTokenResponse{
				AccessToken:  "access",
				RefreshToken: "refresh",
				ExpireIn:     14400,
			})
		}))
		defer server.Close()

		adapter := createTestShopeeAdapter(t, server.URL)
		token, err := adapter.ExchangeCode(context.Background(), integration.CodeExchange{Code: "auth_code"})
		require.NoError(t, err)
		assert.Equal(t, "access", token.AccessToken)
		assert.Equal(t, "refresh", token.RefreshToken)
		assert.WithinDuration(t, time.Now().Add(4*time.Hour), token.ExpiresAt, time.Minute)
	})

	t.Run("rejected code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(shopeeTokenResponse{
				shopeeResponse: shopeeResponse{Error: "error_auth", Message: "invalid code"},
			})
		}))
		defer server.Close()

		adapter := createTestShopeeAdapter(t, server.URL)
		_, err := adapter.ExchangeCode(context.Background(), integration.CodeExchange{Code: "bad"})
		assert.ErrorIs(t, err, integration.ErrProviderRejected)
	})
}

func TestShopeeAdapter_RefreshToken_GrantGone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(shopeeTokenResponse{
			shopeeResponse: shopeeResponse{Error: "error_auth", Message: "refresh token expired"},
		})
	}))
	defer server.Close()

	adapter := createTestShopeeAdapter(t, server.URL)
	_, err := adapter.RefreshToken(context.Background(), "stale")
	assert.ErrorIs(t, err, integration.ErrReauthorizationRequired)
}

func TestShopeeAdapter_PullMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/ads/get_all_cpc_ads_daily_performance", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "access_token", query.Get("access_token"))
		assert.Equal(t, "789", query.Get("shop_id"))
		assert.NotEmpty(t, query.Get("sign"))

		resp := shopeeAdsPerformanceResponse{}
		resp.Response.CampaignList = []shopeeCampaignPerformance{
			{
				CampaignID:   555,
				CampaignName: "Flash Sale",
				MetricsList: []shopeeDailyPerformance{
					{
						Date:       "02-01-2024",
						Impression: "2000",
						Clicks:     "80",
						Checkout:   "5",
						Expense:    "150000.50",
						BroadGMV:   "1200000",
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	adapter := createTestShopeeAdapter(t, server.URL)
	snapshot, err := adapter.PullMetrics(context.Background(), &integration.PullRequest{
		TenantID:      uuid.New(),
		IntegrationID: uuid.New(),
		AccessToken:   "access_token",
		Config:        commerceTestConfig(),
		Window: integration.MetricsWindow{
			From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)
	require.Len(t, snapshot.Records, 1)

	record := snapshot.Records[0]
	assert.Equal(t, "555", record.CampaignID)
	assert.Equal(t, "Flash Sale", record.CampaignName)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), record.Date)
	assert.Equal(t, int64(2000), record.Impressions)
	assert.Equal(t, int64(80), record.Clicks)
	assert.Equal(t, int64(5), record.Conversions)
	assert.True(t, record.Spend.Equal(decimal.RequireFromString("150000.50")))
	assert.True(t, record.Revenue.Equal(decimal.RequireFromString("1200000")))
	assert.Equal(t, "VND", record.Currency)
}

func TestShopeeAdapter_VerifySignature(t *testing.T) {
	adapter := createTestShopeeAdapter(t, "")
	payload := []byte(`{"shop_id":789,"code":3}`)

	assert.True(t, adapter.VerifySignature(payload, hmacHex("partner_key", payload)))
	assert.False(t, adapter.VerifySignature(payload, hmacHex("wrong_key", payload)))
	assert.False(t, adapter.VerifySignature(payload, ""))
}
