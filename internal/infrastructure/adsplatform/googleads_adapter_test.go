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

func TestGoogleAdsConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *GoogleAdsConfig
		wantErr error
	}{
		{
			name: "valid config",
			config: &GoogleAdsConfig{
				ClientID:     "client",
				ClientSecret: "secret",
			},
			wantErr: nil,
		},
		{
			name:    "missing client ID",
			config:  &GoogleAdsConfig{ClientSecret: "secret"},
			wantErr: ErrGoogleAdsConfigMissingClientID,
		},
		{
			name:    "missing client secret",
			config:  &GoogleAdsConfig{ClientID: "client"},
			wantErr: ErrGoogleAdsConfigMissingClientSecret,
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
				assert.NotEmpty(t, tt.config.TokenURL)
				assert.True(t, tt.config.TimeoutSeconds > 0)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Adapter Tests
// ---------------------------------------------------------------------------

func createTestGoogleAdsAdapter(t *testing.T, apiBaseURL string) *GoogleAdsAdapter {
	t.Helper()
	adapter, err := NewGoogleAdsAdapter(&GoogleAdsConfig{
		ClientID:      "client",
		ClientSecret:  "secret",
		WebhookSecret: "webhook_secret",
		APIBaseURL:    apiBaseURL,
	})
	require.NoError(t, err)
	return adapter
}

func searchAdsTestConfig() *integration.SearchAdsConfig {
	return &integration.SearchAdsConfig{
		CustomerID:     "123-456-7890",
		DeveloperToken: "dev_token",
		ReportCurrency: "EUR",
	}
}

func TestNewGoogleAdsAdapter(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		adapter := createTestGoogleAdsAdapter(t, "")
		assert.Equal(t, integration.ProviderTypeSearchAds, adapter.ProviderType())
	})

	t.Run("invalid config", func(t *testing.T) {
		adapter, err := NewGoogleAdsAdapter(&GoogleAdsConfig{})
		assert.Error(t, err)
		assert.Nil(t, adapter)
	})
}

func TestGoogleAdsAdapter_AuthorizationURL(t *testing.T) {
	adapter := createTestGoogleAdsAdapter(t, "")

	u := adapter.AuthorizationURL("state123", "https://app.example.com/callback")
	assert.Contains(t, u, "state=state123")
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "redirect_uri=https%3A%2F%2Fapp.example.com%2Fcallback")
}

func TestGoogleAdsAdapter_PullMetrics(t *testing.T) {
	t.Run("successful pull", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/customers/1234567890/googleAds:search", r.URL.Path)
			assert.Equal(t, "Bearer access_token", r.Header.Get("Authorization"))
			assert.Equal(t, "dev_token", r.Header.Get("developer-token"))

			var req googleAdsSearchRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Contains(t, req.Query, "BETWEEN '2024-01-01' AND '2024-01-07'")

			resp := googleAdsSearchResponse{
				Results: []googleAdsRow{
					{
						Campaign: googleAdsCampaign{ID: "111", Name: "Brand"},
						Metrics: googleAdsMetrics{
							Impressions:      "1000",
							Clicks:           "50",
							CostMicros:       "1990000",
							Conversions:      3,
							ConversionsValue: 120.5,
						},
						Segments: googleAdsSegments{Date: "2024-01-02"},
					},
				},
			}
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		adapter := createTestGoogleAdsAdapter(t, server.URL)
		snapshot, err := adapter.PullMetrics(context.Background(), &integration.PullRequest{
			TenantID:      uuid.New(),
			IntegrationID: uuid.New(),
			AccessToken:   "access_token",
			Config:        searchAdsTestConfig(),
			Window: integration.MetricsWindow{
				From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
			},
		})
		require.NoError(t, err)
		require.Len(t, snapshot.Records, 1)

		record := snapshot.Records[0]
		assert.Equal(t, "111", record.CampaignID)
		assert.Equal(t, "Brand", record.CampaignName)
		assert.Equal(t, int64(1000), record.Impressions)
		assert.Equal(t, int64(50), record.Clicks)
		assert.Equal(t, int64(3), record.Conversions)
		assert.True(t, record.Spend.Equal(decimal.NewFromFloat(1.99)), "spend %s", record.Spend)
		assert.True(t, record.Revenue.Equal(decimal.NewFromFloat(120.5)))
		assert.Equal(t, "EUR", record.Currency)
	})

	t.Run("auth failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		adapter := createTestGoogleAdsAdapter(t, server.URL)
		_, err := adapter.PullMetrics(context.Background(), &integration.PullRequest{
			AccessToken: "stale",
			Config:      searchAdsTestConfig(),
		})
		assert.ErrorIs(t, err, integration.ErrProviderAuthFailed)
		assert.False(t, integration.IsTransientProviderError(err))
	})

	t.Run("rate limited is transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		adapter := createTestGoogleAdsAdapter(t, server.URL)
		_, err := adapter.PullMetrics(context.Background(), &integration.PullRequest{
			AccessToken: "access_token",
			Config:      searchAdsTestConfig(),
		})
		assert.ErrorIs(t, err, integration.ErrProviderRateLimited)
		assert.True(t, integration.IsTransientProviderError(err))
	})

	t.Run("wrong config type", func(t *testing.T) {
		adapter := createTestGoogleAdsAdapter(t, "")
		_, err := adapter.PullMetrics(context.Background(), &integration.PullRequest{
			Config: &integration.SocialAdsConfig{AdAccountID: "act"},
		})
		assert.ErrorIs(t, err, integration.ErrUnknownProviderConfig)
	})
}

func TestGoogleAdsAdapter_TestConnection(t *testing.T) {
	t.Run("accessible customers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/customers:listAccessibleCustomers", r.URL.Path)
			json.NewEncoder(w).Encode(googleAdsCustomerListResponse{
				ResourceNames: []string{"customers/1234567890"},
			})
		}))
		defer server.Close()

		adapter := createTestGoogleAdsAdapter(t, server.URL)
		result, err := adapter.TestConnection(context.Background(), "access_token", searchAdsTestConfig())
		require.NoError(t, err)
		assert.True(t, result.OK)
		assert.Equal(t, "123-456-7890", result.AccountName)
	})

	t.Run("no accessible customers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(googleAdsCustomerListResponse{})
		}))
		defer server.Close()

		adapter := createTestGoogleAdsAdapter(t, server.URL)
		result, err := adapter.TestConnection(context.Background(), "access_token", searchAdsTestConfig())
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.NotEmpty(t, result.Message)
	})
}

func TestGoogleAdsAdapter_VerifySignature(t *testing.T) {
	adapter := createTestGoogleAdsAdapter(t, "")
	payload := []byte(`{"event":"campaign.budget_exhausted"}`)

	t.Run("valid signature", func(t *testing.T) {
		assert.True(t, adapter.VerifySignature(payload, hmacHex("webhook_secret", payload)))
	})

	t.Run("wrong secret", func(t *testing.T) {
		assert.False(t, adapter.VerifySignature(payload, hmacHex("other_secret", payload)))
	})

	t.Run("tampered payload", func(t *testing.T) {
		signature := hmacHex("webhook_secret", payload)
		assert.False(t, adapter.VerifySignature([]byte(`{"event":"other"}`), signature))
	})

	t.Run("empty signature", func(t *testing.T) {
		assert.False(t, adapter.VerifySignature(payload, ""))
	})
}
