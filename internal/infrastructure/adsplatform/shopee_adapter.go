package adsplatform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adhub/backend/internal/domain/integration"
)

// Shopee error strings that mean the grant is gone for good
const (
	shopeeErrInvalidToken = "error_auth"
	shopeeErrTokenExpired = "invalid_access_token"
)

// shopeeRegionCurrency maps a shop region to its billing currency
var shopeeRegionCurrency = map[string]string{
	"VN": "VND",
	"SG": "SGD",
	"MY": "MYR",
	"TH": "THB",
	"PH": "PHP",
	"ID": "IDR",
	"TW": "TWD",
	"BR": "BRL",
}

// ShopeeAdapter implements the COMMERCE provider against the Shopee Open
// Platform. Every request carries a partner-key HMAC signature on top of the
// OAuth access token.
type ShopeeAdapter struct {
	config     *ShopeeConfig
	httpClient *http.Client
	// now is swapped in tests to pin request timestamps
	now func() time.Time
}

// NewShopeeAdapter creates a new Shopee adapter
func NewShopeeAdapter(config *ShopeeConfig) (*ShopeeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ShopeeAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		now: time.Now,
	}, nil
}

// ProviderType returns the provider type this adapter handles
func (a *ShopeeAdapter) ProviderType() integration.ProviderType {
	return integration.ProviderTypeCommerce
}

// ---------------------------------------------------------------------------
// OAuth
// ---------------------------------------------------------------------------

// AuthorizationURL builds the shop authorization URL. Shopee has no state
// parameter of its own, so the state rides on the redirect URL and comes back
// with the callback.
func (a *ShopeeAdapter) AuthorizationURL(state, redirectURI string) string {
	const path = "/api/v2/shop/auth_partner"
	timestamp := a.now().Unix()

	separator := "?"
	if strings.Contains(redirectURI, "?") {
		separator = "&"
	}
	redirect := redirectURI + separator + "state=" + url.QueryEscape(state)

	params := url.Values{
		"partner_id": {a.config.PartnerIDString()},
		"timestamp":  {fmt.Sprintf("%d", timestamp)},
		"sign":       {a.config.Sign(path, timestamp)},
		"redirect":   {redirect},
	}
	return a.config.APIBaseURL + path + "?" + params.Encode()
}

// ExchangeCode trades an authorization code for a token
func (a *ShopeeAdapter) ExchangeCode(ctx context.Context, exchange integration.CodeExchange) (*integration.OAuthToken, error) {
	return a.tokenCall(ctx, "/api/v2/auth/token/get", map[string]any{
		"code":       exchange.Code,
		"partner_id": a.config.PartnerID,
	}, integration.ErrProviderRejected)
}

// RefreshToken trades a refresh token for a fresh access token. Shopee
// rotates the refresh token on every call.
func (a *ShopeeAdapter) RefreshToken(ctx context.Context, refreshToken string) (*integration.OAuthToken, error) {
	return a.tokenCall(ctx, "/api/v2/auth/access_token/get", map[string]any{
		"refresh_token": refreshToken,
		"partner_id":    a.config.PartnerID,
	}, integration.ErrReauthorizationRequired)
}

// RevokeToken is a no-op: shop deauthorization happens in the Shopee seller
// console, not through the API
func (a *ShopeeAdapter) RevokeToken(_ context.Context, _ *integration.OAuthToken) error {
	return nil
}

// tokenCall performs one call against the auth endpoints, which need the
// partner signature but no access token
func (a *ShopeeAdapter) tokenCall(ctx context.Context, path string, payload map[string]any, rejected error) (*integration.OAuthToken, error) {
	body, err := doRequest(ctx, a.httpClient, apiRequest{
		method: http.MethodPost,
		url:    a.signedURL(path, nil),
		body:   payload,
	})
	if err != nil {
		if integration.IsTransientProviderError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", rejected, err)
	}

	var resp shopeeTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderInvalidResponse, err)
	}
	if !resp.IsSuccess() || resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: %s - %s", rejected, resp.Error, resp.Message)
	}

	lifetime := defaultTokenLifetime
	if resp.ExpireIn > 0 {
		lifetime = time.Duration(resp.ExpireIn) * time.Second
	}
	return &integration.OAuthToken{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(lifetime),
	}, nil
}

// ---------------------------------------------------------------------------
// Reporting
// ---------------------------------------------------------------------------

// TestConnection reads the shop behind the token
func (a *ShopeeAdapter) TestConnection(ctx context.Context, accessToken string, cfg integration.ProviderConfig) (*integration.ConnectionTest, error) {
	commerceCfg, err := a.commerceConfig(cfg)
	if err != nil {
		return nil, err
	}

	body, err := doRequest(ctx, a.httpClient, apiRequest{
		method: http.MethodGet,
		url:    a.shopURL("/api/v2/shop/get_shop_info", accessToken, commerceCfg.ShopID, nil),
	})
	if err != nil {
		return nil, err
	}

	var resp shopeeShopInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderInvalidResponse, err)
	}
	if !resp.IsSuccess() {
		if isShopeeAuthError(resp.Error) {
			return nil, fmt.Errorf("%w: %s - %s", integration.ErrProviderAuthFailed, resp.Error, resp.Message)
		}
		return &integration.ConnectionTest{OK: false, Message: resp.Message}, nil
	}
	return &integration.ConnectionTest{OK: true, AccountName: resp.ShopName}, nil
}

// PullMetrics pulls the daily ads performance report for the window
func (a *ShopeeAdapter) PullMetrics(ctx context.Context, req *integration.PullRequest) (*integration.MetricsSnapshot, error) {
	commerceCfg, err := a.commerceConfig(req.Config)
	if err != nil {
		return nil, err
	}

	extra := url.Values{
		"start_date": {req.Window.From.Format("02-01-2006")},
		"end_date":   {req.Window.To.Format("02-01-2006")},
	}
	body, err := doRequest(ctx, a.httpClient, apiRequest{
		method: http.MethodGet,
		url:    a.shopURL("/api/v2/ads/get_all_cpc_ads_daily_performance", req.AccessToken, commerceCfg.ShopID, extra),
	})
	if err != nil {
		return nil, err
	}

	var resp shopeeAdsPerformanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderInvalidResponse, err)
	}
	if !resp.IsSuccess() {
		if isShopeeAuthError(resp.Error) {
			return nil, fmt.Errorf("%w: %s - %s", integration.ErrProviderAuthFailed, resp.Error, resp.Message)
		}
		return nil, fmt.Errorf("%w: %s - %s", integration.ErrProviderRequestFailed, resp.Error, resp.Message)
	}

	currency := shopeeRegionCurrency[strings.ToUpper(commerceCfg.Region)]
	if currency == "" {
		currency = "USD"
	}

	snapshot := &integration.MetricsSnapshot{Window: req.Window}
	for _, campaign := range resp.Response.CampaignList {
		for _, day := range campaign.MetricsList {
			record, err := shopeeRecord(&campaign, &day, currency)
			if err != nil {
				return nil, err
			}
			snapshot.Records = append(snapshot.Records, record)
		}
	}
	return snapshot, nil
}

// VerifySignature checks the webhook signature against the partner key
func (a *ShopeeAdapter) VerifySignature(payload []byte, signature string) bool {
	return verifyHMACHex(a.config.PartnerKey, payload, signature)
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

// signedURL builds a partner-signed URL for auth endpoints
func (a *ShopeeAdapter) signedURL(path string, extra url.Values) string {
	timestamp := a.now().Unix()
	params := url.Values{
		"partner_id": {a.config.PartnerIDString()},
		"timestamp":  {fmt.Sprintf("%d", timestamp)},
		"sign":       {a.config.Sign(path, timestamp)},
	}
	for key, values := range extra {
		params[key] = values
	}
	return a.config.APIBaseURL + path + "?" + params.Encode()
}

// shopURL builds a shop-scoped signed URL: the signature base string also
// covers the access token and shop ID
func (a *ShopeeAdapter) shopURL(path, accessToken, shopID string, extra url.Values) string {
	timestamp := a.now().Unix()
	params := url.Values{
		"partner_id":   {a.config.PartnerIDString()},
		"timestamp":    {fmt.Sprintf("%d", timestamp)},
		"access_token": {accessToken},
		"shop_id":      {shopID},
		"sign":         {a.config.Sign(path, timestamp, accessToken, shopID)},
	}
	for key, values := range extra {
		params[key] = values
	}
	return a.config.APIBaseURL + path + "?" + params.Encode()
}

func (a *ShopeeAdapter) commerceConfig(cfg integration.ProviderConfig) (*integration.CommerceConfig, error) {
	commerceCfg, ok := cfg.(*integration.CommerceConfig)
	if !ok || commerceCfg == nil {
		return nil, integration.ErrUnknownProviderConfig
	}
	return commerceCfg, nil
}

func isShopeeAuthError(code string) bool {
	return code == shopeeErrInvalidToken || code == shopeeErrTokenExpired
}

// shopeeRecord maps one campaign day into the normalized schema
func shopeeRecord(campaign *shopeeCampaignPerformance, day *shopeeDailyPerformance, currency string) (integration.MetricRecord, error) {
	date, err := time.Parse("02-01-2006", day.Date)
	if err != nil {
		return integration.MetricRecord{}, fmt.Errorf("%w: bad date %q", integration.ErrProviderInvalidResponse, day.Date)
	}

	impressions, err := parseAPIInt(day.Impression)
	if err != nil {
		return integration.MetricRecord{}, err
	}
	clicks, err := parseAPIInt(day.Clicks)
	if err != nil {
		return integration.MetricRecord{}, err
	}
	conversions, err := parseAPIInt(day.Checkout)
	if err != nil {
		return integration.MetricRecord{}, err
	}
	spend, err := parseAPIDecimal(day.Expense)
	if err != nil {
		return integration.MetricRecord{}, err
	}
	revenue, err := parseAPIDecimal(day.BroadGMV)
	if err != nil {
		return integration.MetricRecord{}, err
	}

	return integration.MetricRecord{
		Date:         date,
		CampaignID:   fmt.Sprintf("%d", campaign.CampaignID),
		CampaignName: campaign.CampaignName,
		Impressions:  impressions,
		Clicks:       clicks,
		Conversions:  conversions,
		Spend:        spend,
		Revenue:      revenue,
		Currency:     currency,
	}, nil
}

// Ensure ShopeeAdapter implements ProviderAdapter interface
var _ integration.ProviderAdapter = (*ShopeeAdapter)(nil)
