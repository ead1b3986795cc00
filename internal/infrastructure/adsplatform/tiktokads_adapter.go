package adsplatform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adhub/backend/internal/domain/integration"
)

// TikTok error codes that mean the grant is gone for good
const (
	tiktokErrTokenInvalid = 40105
	tiktokErrTokenExpired = 40104
)

// TikTokAdsAdapter implements the VIDEO_ADS provider against the TikTok
// Business API
type TikTokAdsAdapter struct {
	config     *TikTokAdsConfig
	httpClient *http.Client
}

// NewTikTokAdsAdapter creates a new TikTok Ads adapter
func NewTikTokAdsAdapter(config *TikTokAdsConfig) (*TikTokAdsAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &TikTokAdsAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// ProviderType returns the provider type this adapter handles
func (a *TikTokAdsAdapter) ProviderType() integration.ProviderType {
	return integration.ProviderTypeVideoAds
}

// ---------------------------------------------------------------------------
// OAuth
// ---------------------------------------------------------------------------

// AuthorizationURL builds the marketing portal consent URL
func (a *TikTokAdsAdapter) AuthorizationURL(state, redirectURI string) string {
	params := url.Values{
		"app_id":       {a.config.AppID},
		"redirect_uri": {redirectURI},
		"state":        {state},
	}
	return a.config.AuthBaseURL + "?" + params.Encode()
}

// ExchangeCode trades an authorization code for a token
func (a *TikTokAdsAdapter) ExchangeCode(ctx context.Context, exchange integration.CodeExchange) (*integration.OAuthToken, error) {
	return a.tokenCall(ctx, "/oauth2/access_token/", map[string]string{
		"app_id":    a.config.AppID,
		"secret":    a.config.AppSecret,
		"auth_code": exchange.Code,
	}, integration.ErrProviderRejected)
}

// RefreshToken trades a refresh token for a fresh access token
func (a *TikTokAdsAdapter) RefreshToken(ctx context.Context, refreshToken string) (*integration.OAuthToken, error) {
	return a.tokenCall(ctx, "/oauth2/refresh_token/", map[string]string{
		"app_id":        a.config.AppID,
		"secret":        a.config.AppSecret,
		"refresh_token": refreshToken,
	}, integration.ErrReauthorizationRequired)
}

// RevokeToken revokes the grant at the provider
func (a *TikTokAdsAdapter) RevokeToken(ctx context.Context, token *integration.OAuthToken) error {
	body, err := doRequest(ctx, a.httpClient, apiRequest{
		method: http.MethodPost,
		url:    a.config.APIBaseURL + "/oauth2/revoke_token/",
		body: map[string]string{
			"app_id":       a.config.AppID,
			"secret":       a.config.AppSecret,
			"access_token": token.AccessToken,
		},
	})
	if err != nil {
		return err
	}

	var resp tiktokResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrProviderInvalidResponse, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: %d - %s", integration.ErrProviderRequestFailed, resp.Code, resp.Message)
	}
	return nil
}

// tokenCall performs one call against the OAuth endpoints, which wrap the
// token in the common envelope instead of using RFC 6749 shapes
func (a *TikTokAdsAdapter) tokenCall(ctx context.Context, path string, payload map[string]string, rejected error) (*integration.OAuthToken, error) {
	body, err := doRequest(ctx, a.httpClient, apiRequest{
		method: http.MethodPost,
		url:    a.config.APIBaseURL + path,
		body:   payload,
	})
	if err != nil {
		if integration.IsTransientProviderError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", rejected, err)
	}

	var resp tiktokTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderInvalidResponse, err)
	}
	if !resp.IsSuccess() || resp.Data.AccessToken == "" {
		return nil, fmt.Errorf("%w: %d - %s", rejected, resp.Code, resp.Message)
	}

	lifetime := defaultTokenLifetime
	if resp.Data.AccessTokenExpireIn > 0 {
		lifetime = time.Duration(resp.Data.AccessTokenExpireIn) * time.Second
	}
	return &integration.OAuthToken{
		AccessToken:  resp.Data.AccessToken,
		RefreshToken: resp.Data.RefreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(lifetime),
		Scopes:       resp.Data.Scope,
	}, nil
}

// ---------------------------------------------------------------------------
// Reporting
// ---------------------------------------------------------------------------

// TestConnection reads the business account behind the token
func (a *TikTokAdsAdapter) TestConnection(ctx context.Context, accessToken string, cfg integration.ProviderConfig) (*integration.ConnectionTest, error) {
	if _, err := a.videoAdsConfig(cfg); err != nil {
		return nil, err
	}

	body, err := doRequest(ctx, a.httpClient, apiRequest{
		method: http.MethodGet,
		url:    a.config.APIBaseURL + "/user/info/",
		header: a.apiHeader(accessToken),
	})
	if err != nil {
		return nil, err
	}

	var resp tiktokUserInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderInvalidResponse, err)
	}
	if !resp.IsSuccess() {
		return &integration.ConnectionTest{OK: false, Message: resp.Message}, nil
	}
	return &integration.ConnectionTest{OK: true, AccountName: resp.Data.DisplayName}, nil
}

// PullMetrics pulls the campaign * day integrated report for the window
func (a *TikTokAdsAdapter) PullMetrics(ctx context.Context, req *integration.PullRequest) (*integration.MetricsSnapshot, error) {
	videoCfg, err := a.videoAdsConfig(req.Config)
	if err != nil {
		return nil, err
	}

	dimensions, _ := json.Marshal([]string{"campaign_id", "stat_time_day"})
	metrics, _ := json.Marshal([]string{
		"campaign_name", "impressions", "clicks", "conversion", "spend", "total_purchase_value", "currency",
	})
	params := url.Values{
		"advertiser_id": {videoCfg.AdvertiserID},
		"report_type":   {"BASIC"},
		"data_level":    {"AUCTION_CAMPAIGN"},
		"dimensions":    {string(dimensions)},
		"metrics":       {string(metrics)},
		"start_date":    {req.Window.From.Format("2006-01-02")},
		"end_date":      {req.Window.To.Format("2006-01-02")},
		"page_size":     {"1000"},
	}

	body, err := doRequest(ctx, a.httpClient, apiRequest{
		method: http.MethodGet,
		url:    a.config.APIBaseURL + "/report/integrated/get/?" + params.Encode(),
		header: a.apiHeader(req.AccessToken),
	})
	if err != nil {
		return nil, err
	}

	var resp tiktokReportResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderInvalidResponse, err)
	}
	if err := a.mapTikTokError(&resp.tiktokResponse); err != nil {
		return nil, err
	}

	snapshot := &integration.MetricsSnapshot{
		Window:  req.Window,
		Records: make([]integration.MetricRecord, 0, len(resp.Data.List)),
	}
	for _, row := range resp.Data.List {
		record, err := tiktokRecord(&row)
		if err != nil {
			return nil, err
		}
		snapshot.Records = append(snapshot.Records, record)
	}
	return snapshot, nil
}

// VerifySignature checks the webhook signature header
func (a *TikTokAdsAdapter) VerifySignature(payload []byte, signature string) bool {
	return verifyHMACHex(a.config.AppSecret, payload, signature)
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

func (a *TikTokAdsAdapter) apiHeader(accessToken string) http.Header {
	header := http.Header{}
	header.Set("Access-Token", accessToken)
	return header
}

func (a *TikTokAdsAdapter) videoAdsConfig(cfg integration.ProviderConfig) (*integration.VideoAdsConfig, error) {
	videoCfg, ok := cfg.(*integration.VideoAdsConfig)
	if !ok || videoCfg == nil {
		return nil, integration.ErrUnknownProviderConfig
	}
	return videoCfg, nil
}

// mapTikTokError classifies an application-level error code
func (a *TikTokAdsAdapter) mapTikTokError(resp *tiktokResponse) error {
	if resp.IsSuccess() {
		return nil
	}
	switch resp.Code {
	case tiktokErrTokenInvalid, tiktokErrTokenExpired:
		return fmt.Errorf("%w: %d - %s", integration.ErrProviderAuthFailed, resp.Code, resp.Message)
	default:
		return fmt.Errorf("%w: %d - %s", integration.ErrProviderRequestFailed, resp.Code, resp.Message)
	}
}

// tiktokRecord maps one report row into the normalized schema
func tiktokRecord(row *tiktokReportRow) (integration.MetricRecord, error) {
	date, err := time.Parse("2006-01-02", row.Dimensions.StatTimeDay)
	if err != nil {
		return integration.MetricRecord{}, fmt.Errorf("%w: bad stat_time_day %q", integration.ErrProviderInvalidResponse, row.Dimensions.StatTimeDay)
	}

	impressions, err := parseAPIInt(row.Metrics.Impressions)
	if err != nil {
		return integration.MetricRecord{}, err
	}
	clicks, err := parseAPIInt(row.Metrics.Clicks)
	if err != nil {
		return integration.MetricRecord{}, err
	}
	conversions, err := parseAPIInt(row.Metrics.Conversion)
	if err != nil {
		return integration.MetricRecord{}, err
	}
	spend, err := parseAPIDecimal(row.Metrics.Spend)
	if err != nil {
		return integration.MetricRecord{}, err
	}
	revenue, err := parseAPIDecimal(row.Metrics.TotalPurchaseValue)
	if err != nil {
		return integration.MetricRecord{}, err
	}

	currency := row.Metrics.Currency
	if currency == "" {
		currency = "USD"
	}
	return integration.MetricRecord{
		Date:         date,
		CampaignID:   row.Dimensions.CampaignID,
		CampaignName: row.Metrics.CampaignName,
		Impressions:  impressions,
		Clicks:       clicks,
		Conversions:  conversions,
		Spend:        spend,
		Revenue:      revenue,
		Currency:     currency,
	}, nil
}

// parseAPIDecimal parses a decimal-string amount, treating empty as zero
func parseAPIDecimal(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: bad amount %q", integration.ErrProviderInvalidResponse, value)
	}
	return parsed, nil
}

// Ensure TikTokAdsAdapter implements ProviderAdapter interface
var _ integration.ProviderAdapter = (*TikTokAdsAdapter)(nil)
