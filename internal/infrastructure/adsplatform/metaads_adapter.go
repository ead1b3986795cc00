package adsplatform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"

	"github.com/adhub/backend/internal/domain/integration"
)

// MetaAdsAdapter implements the SOCIAL_ADS provider against the Meta
// Marketing API. Meta does not issue refresh tokens; the long-lived token
// exchange fills that role, so the exchanged access token doubles as the
// stored refresh token.
type MetaAdsAdapter struct {
	config     *MetaAdsConfig
	flow       oauthFlow
	httpClient *http.Client
}

// NewMetaAdsAdapter creates a new Meta Ads adapter
func NewMetaAdsAdapter(config *MetaAdsConfig) (*MetaAdsAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &MetaAdsAdapter{
		config: config,
		flow: oauthFlow{config: oauth2.Config{
			ClientID:     config.AppID,
			ClientSecret: config.AppSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  config.AuthBaseURL,
				TokenURL: config.TokenURL,
			},
			Scopes: []string{"ads_read", "business_management"},
		}},
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// ProviderType returns the provider type this adapter handles
func (a *MetaAdsAdapter) ProviderType() integration.ProviderType {
	return integration.ProviderTypeSocialAds
}

// ---------------------------------------------------------------------------
// OAuth
// ---------------------------------------------------------------------------

// AuthorizationURL builds the login dialog URL
func (a *MetaAdsAdapter) AuthorizationURL(state, redirectURI string) string {
	return a.flow.authorizationURL(state, redirectURI)
}

// ExchangeCode trades an authorization code for a token. The access token is
// copied into the refresh slot so the long-lived exchange can renew it later.
func (a *MetaAdsAdapter) ExchangeCode(ctx context.Context, exchange integration.CodeExchange) (*integration.OAuthToken, error) {
	token, err := a.flow.exchange(ctx, exchange)
	if err != nil {
		return nil, err
	}
	token.RefreshToken = token.AccessToken
	return token, nil
}

// RefreshToken renews the grant through the fb_exchange_token flow
func (a *MetaAdsAdapter) RefreshToken(ctx context.Context, refreshToken string) (*integration.OAuthToken, error) {
	params := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {a.config.AppID},
		"client_secret":     {a.config.AppSecret},
		"fb_exchange_token": {refreshToken},
	}

	body, err := doRequest(ctx, a.httpClient, apiRequest{
		method: http.MethodGet,
		url:    a.config.TokenURL + "?" + params.Encode(),
	})
	if err != nil {
		if integration.IsTransientProviderError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrReauthorizationRequired, err)
	}

	var resp metaTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderInvalidResponse, err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", integration.ErrReauthorizationRequired)
	}

	lifetime := time.Duration(resp.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}
	return &integration.OAuthToken{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.AccessToken,
		TokenType:    resp.TokenType,
		ExpiresAt:    time.Now().Add(lifetime),
	}, nil
}

// RevokeToken deletes the app permissions of the grant
func (a *MetaAdsAdapter) RevokeToken(ctx context.Context, token *integration.OAuthToken) error {
	endpoint := fmt.Sprintf("%s/%s/me/permissions?access_token=%s",
		a.config.APIBaseURL, a.config.APIVersion, url.QueryEscape(token.AccessToken))
	_, err := doRequest(ctx, a.httpClient, apiRequest{
		method: http.MethodDelete,
		url:    endpoint,
	})
	return err
}

// ---------------------------------------------------------------------------
// Reporting
// ---------------------------------------------------------------------------

// TestConnection reads the token's identity
func (a *MetaAdsAdapter) TestConnection(ctx context.Context, accessToken string, cfg integration.ProviderConfig) (*integration.ConnectionTest, error) {
	if _, err := a.socialAdsConfig(cfg); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s/me?fields=id,name&access_token=%s",
		a.config.APIBaseURL, a.config.APIVersion, url.QueryEscape(accessToken))
	body, err := doRequest(ctx, a.httpClient, apiRequest{
		method: http.MethodGet,
		url:    endpoint,
	})
	if err != nil {
		return nil, err
	}

	var resp metaIdentityResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderInvalidResponse, err)
	}
	return &integration.ConnectionTest{OK: resp.ID != "", AccountName: resp.Name}, nil
}

// PullMetrics pulls daily campaign insights for the requested window
func (a *MetaAdsAdapter) PullMetrics(ctx context.Context, req *integration.PullRequest) (*integration.MetricsSnapshot, error) {
	socialCfg, err := a.socialAdsConfig(req.Config)
	if err != nil {
		return nil, err
	}

	version := socialCfg.APIVersion
	if version == "" {
		version = a.config.APIVersion
	}

	timeRange := fmt.Sprintf(`{"since":"%s","until":"%s"}`,
		req.Window.From.Format("2006-01-02"),
		req.Window.To.Format("2006-01-02"),
	)
	params := url.Values{
		"level":          {"campaign"},
		"time_increment": {"1"},
		"fields":         {"campaign_id,campaign_name,impressions,clicks,spend,account_currency,actions,action_values"},
		"time_range":     {timeRange},
		"access_token":   {req.AccessToken},
	}
	endpoint := fmt.Sprintf("%s/%s/act_%s/insights?%s",
		a.config.APIBaseURL, version, socialCfg.AdAccountID, params.Encode())

	body, err := doRequest(ctx, a.httpClient, apiRequest{
		method: http.MethodGet,
		url:    endpoint,
	})
	if err != nil {
		return nil, err
	}

	var resp metaInsightsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderInvalidResponse, err)
	}

	snapshot := &integration.MetricsSnapshot{
		Window:  req.Window,
		Records: make([]integration.MetricRecord, 0, len(resp.Data)),
	}
	for _, row := range resp.Data {
		record, err := metaRecord(&row)
		if err != nil {
			return nil, err
		}
		snapshot.Records = append(snapshot.Records, record)
	}
	return snapshot, nil
}

// VerifySignature checks the webhook signature. Meta sends
// "sha256=<hex>" in X-Hub-Signature-256; a bare hex digest is accepted too.
func (a *MetaAdsAdapter) VerifySignature(payload []byte, signature string) bool {
	return verifyHMACHex(a.config.AppSecret, payload, signature)
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

func (a *MetaAdsAdapter) socialAdsConfig(cfg integration.ProviderConfig) (*integration.SocialAdsConfig, error) {
	socialCfg, ok := cfg.(*integration.SocialAdsConfig)
	if !ok || socialCfg == nil {
		return nil, integration.ErrUnknownProviderConfig
	}
	return socialCfg, nil
}

// metaRecord maps one insights row into the normalized schema
func metaRecord(row *metaInsightsRow) (integration.MetricRecord, error) {
	date, err := time.Parse("2006-01-02", row.DateStart)
	if err != nil {
		return integration.MetricRecord{}, fmt.Errorf("%w: bad date_start %q", integration.ErrProviderInvalidResponse, row.DateStart)
	}

	impressions, err := parseAPIInt(row.Impressions)
	if err != nil {
		return integration.MetricRecord{}, err
	}
	clicks, err := parseAPIInt(row.Clicks)
	if err != nil {
		return integration.MetricRecord{}, err
	}

	spend := decimal.Zero
	if row.Spend != "" {
		spend, err = decimal.NewFromString(row.Spend)
		if err != nil {
			return integration.MetricRecord{}, fmt.Errorf("%w: bad spend %q", integration.ErrProviderInvalidResponse, row.Spend)
		}
	}

	currency := row.AccountCurrency
	if currency == "" {
		currency = "USD"
	}

	return integration.MetricRecord{
		Date:         date,
		CampaignID:   row.CampaignID,
		CampaignName: row.CampaignName,
		Impressions:  impressions,
		Clicks:       clicks,
		Conversions:  metaActionTotal(row.Actions, "purchase"),
		Spend:        spend,
		Revenue:      metaActionValue(row.ActionValues, "purchase"),
		Currency:     currency,
	}, nil
}

// metaActionTotal sums the count of one action type
func metaActionTotal(actions []metaActionCount, actionType string) int64 {
	var total int64
	for _, action := range actions {
		if action.ActionType != actionType {
			continue
		}
		if parsed, err := strconv.ParseInt(action.Value, 10, 64); err == nil {
			total += parsed
		}
	}
	return total
}

// metaActionValue sums the monetary value of one action type
func metaActionValue(values []metaActionCount, actionType string) decimal.Decimal {
	total := decimal.Zero
	for _, value := range values {
		if value.ActionType != actionType {
			continue
		}
		if parsed, err := decimal.NewFromString(value.Value); err == nil {
			total = total.Add(parsed)
		}
	}
	return total
}

// Ensure MetaAdsAdapter implements ProviderAdapter interface
var _ integration.ProviderAdapter = (*MetaAdsAdapter)(nil)
