package adsplatform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"

	"github.com/adhub/backend/internal/domain/integration"
)

// microsPerUnit converts Google Ads cost_micros into currency units
const microsPerUnit = 1_000_000

// GoogleAdsAdapter implements the SEARCH_ADS provider against the Google Ads
// reporting API
type GoogleAdsAdapter struct {
	config     *GoogleAdsConfig
	flow       oauthFlow
	httpClient *http.Client
}

// NewGoogleAdsAdapter creates a new Google Ads adapter
func NewGoogleAdsAdapter(config *GoogleAdsConfig) (*GoogleAdsAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &GoogleAdsAdapter{
		config: config,
		flow: oauthFlow{config: oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  config.AuthBaseURL,
				TokenURL: config.TokenURL,
			},
			Scopes: []string{"https://www.googleapis.com/auth/adwords"},
		}},
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// ProviderType returns the provider type this adapter handles
func (a *GoogleAdsAdapter) ProviderType() integration.ProviderType {
	return integration.ProviderTypeSearchAds
}

// ---------------------------------------------------------------------------
// OAuth
// ---------------------------------------------------------------------------

// AuthorizationURL builds the consent URL. Offline access is requested so a
// refresh token comes back with the grant.
func (a *GoogleAdsAdapter) AuthorizationURL(state, redirectURI string) string {
	return a.flow.authorizationURL(state, redirectURI, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades an authorization code for a token
func (a *GoogleAdsAdapter) ExchangeCode(ctx context.Context, exchange integration.CodeExchange) (*integration.OAuthToken, error) {
	return a.flow.exchange(ctx, exchange)
}

// RefreshToken trades a refresh token for a fresh access token
func (a *GoogleAdsAdapter) RefreshToken(ctx context.Context, refreshToken string) (*integration.OAuthToken, error) {
	return a.flow.refresh(ctx, refreshToken)
}

// RevokeToken revokes the grant at Google's revocation endpoint
func (a *GoogleAdsAdapter) RevokeToken(ctx context.Context, token *integration.OAuthToken) error {
	form := url.Values{"token": {token.AccessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("googleads: failed to create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	return mapHTTPStatus(resp.StatusCode)
}

// ---------------------------------------------------------------------------
// Reporting
// ---------------------------------------------------------------------------

// TestConnection lists accessible customers as a read-only identity check
func (a *GoogleAdsAdapter) TestConnection(ctx context.Context, accessToken string, cfg integration.ProviderConfig) (*integration.ConnectionTest, error) {
	searchCfg, err := a.searchAdsConfig(cfg)
	if err != nil {
		return nil, err
	}

	body, err := doRequest(ctx, a.httpClient, apiRequest{
		method: http.MethodGet,
		url:    a.config.APIBaseURL + "/customers:listAccessibleCustomers",
		header: a.apiHeader(accessToken, searchCfg),
	})
	if err != nil {
		return nil, err
	}

	var resp googleAdsCustomerListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderInvalidResponse, err)
	}
	if len(resp.ResourceNames) == 0 {
		return &integration.ConnectionTest{OK: false, Message: "no accessible customers"}, nil
	}
	return &integration.ConnectionTest{
		OK:          true,
		AccountName: searchCfg.CustomerID,
	}, nil
}

// PullMetrics pulls a campaign performance report for the requested window
func (a *GoogleAdsAdapter) PullMetrics(ctx context.Context, req *integration.PullRequest) (*integration.MetricsSnapshot, error) {
	searchCfg, err := a.searchAdsConfig(req.Config)
	if err != nil {
		return nil, err
	}

	currency := searchCfg.ReportCurrency
	if currency == "" {
		currency = "USD"
	}

	customerID := strings.ReplaceAll(searchCfg.CustomerID, "-", "")
	endpoint := fmt.Sprintf("%s/customers/%s/googleAds:search", a.config.APIBaseURL, customerID)
	query := fmt.Sprintf(
		"SELECT campaign.id, campaign.name, segments.date, metrics.impressions, "+
			"metrics.clicks, metrics.conversions, metrics.cost_micros, metrics.conversions_value "+
			"FROM campaign WHERE segments.date BETWEEN '%s' AND '%s'",
		req.Window.From.Format("2006-01-02"),
		req.Window.To.Format("2006-01-02"),
	)

	body, err := doRequest(ctx, a.httpClient, apiRequest{
		method: http.MethodPost,
		url:    endpoint,
		header: a.apiHeader(req.AccessToken, searchCfg),
		body:   googleAdsSearchRequest{Query: query},
	})
	if err != nil {
		return nil, err
	}

	var resp googleAdsSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderInvalidResponse, err)
	}

	snapshot := &integration.MetricsSnapshot{
		Window:  req.Window,
		Records: make([]integration.MetricRecord, 0, len(resp.Results)),
	}
	for _, row := range resp.Results {
		record, err := googleAdsRecord(&row, currency)
		if err != nil {
			return nil, err
		}
		snapshot.Records = append(snapshot.Records, record)
	}
	return snapshot, nil
}

// VerifySignature checks the hex HMAC-SHA256 webhook signature
func (a *GoogleAdsAdapter) VerifySignature(payload []byte, signature string) bool {
	return verifyHMACHex(a.config.WebhookSecret, payload, signature)
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

func (a *GoogleAdsAdapter) searchAdsConfig(cfg integration.ProviderConfig) (*integration.SearchAdsConfig, error) {
	searchCfg, ok := cfg.(*integration.SearchAdsConfig)
	if !ok || searchCfg == nil {
		return nil, integration.ErrUnknownProviderConfig
	}
	return searchCfg, nil
}

func (a *GoogleAdsAdapter) apiHeader(accessToken string, cfg *integration.SearchAdsConfig) http.Header {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+accessToken)
	header.Set("developer-token", cfg.DeveloperToken)
	return header
}

// googleAdsRecord maps one report row into the normalized schema
func googleAdsRecord(row *googleAdsRow, currency string) (integration.MetricRecord, error) {
	date, err := time.Parse("2006-01-02", row.Segments.Date)
	if err != nil {
		return integration.MetricRecord{}, fmt.Errorf("%w: bad segment date %q", integration.ErrProviderInvalidResponse, row.Segments.Date)
	}

	impressions, err := parseAPIInt(row.Metrics.Impressions)
	if err != nil {
		return integration.MetricRecord{}, err
	}
	clicks, err := parseAPIInt(row.Metrics.Clicks)
	if err != nil {
		return integration.MetricRecord{}, err
	}
	costMicros, err := parseAPIInt(row.Metrics.CostMicros)
	if err != nil {
		return integration.MetricRecord{}, err
	}

	return integration.MetricRecord{
		Date:         date,
		CampaignID:   row.Campaign.ID,
		CampaignName: row.Campaign.Name,
		Impressions:  impressions,
		Clicks:       clicks,
		Conversions:  int64(row.Metrics.Conversions),
		Spend:        decimal.NewFromInt(costMicros).Div(decimal.NewFromInt(microsPerUnit)),
		Revenue:      decimal.NewFromFloat(row.Metrics.ConversionsValue),
		Currency:     currency,
	}, nil
}

// parseAPIInt parses the decimal-string int64 encoding the API uses
func parseAPIInt(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad integer %q", integration.ErrProviderInvalidResponse, value)
	}
	return parsed, nil
}

// Ensure GoogleAdsAdapter implements ProviderAdapter interface
var _ integration.ProviderAdapter = (*GoogleAdsAdapter)(nil)
