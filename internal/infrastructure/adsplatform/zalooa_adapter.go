package adsplatform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adhub/backend/internal/domain/integration"
)

// zaloDateLayout is the dd/MM/yyyy layout OA statistics use
const zaloDateLayout = "02/01/2006"

// zaloMACPrefix is the optional prefix on the X-ZEvent-Signature header
const zaloMACPrefix = "mac="

// Zalo error codes that mean the grant is gone for good
const (
	zaloErrInvalidToken = -216
	zaloErrTokenExpired = -14014
)

// ZaloOAAdapter implements the MESSAGING_OA provider against the Zalo
// Official Account API
type ZaloOAAdapter struct {
	config     *ZaloOAConfig
	httpClient *http.Client
}

// NewZaloOAAdapter creates a new Zalo OA adapter
func NewZaloOAAdapter(config *ZaloOAConfig) (*ZaloOAAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ZaloOAAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// ProviderType returns the provider type this adapter handles
func (a *ZaloOAAdapter) ProviderType() integration.ProviderType {
	return integration.ProviderTypeMessagingOA
}

// ---------------------------------------------------------------------------
// OAuth
// ---------------------------------------------------------------------------

// AuthorizationURL builds the OA permission dialog URL
func (a *ZaloOAAdapter) AuthorizationURL(state, redirectURI string) string {
	params := url.Values{
		"app_id":       {a.config.AppID},
		"redirect_uri": {redirectURI},
		"state":        {state},
	}
	return a.config.AuthBaseURL + "?" + params.Encode()
}

// ExchangeCode trades an authorization code for a token
func (a *ZaloOAAdapter) ExchangeCode(ctx context.Context, exchange integration.CodeExchange) (*integration.OAuthToken, error) {
	form := url.Values{
		"app_id":     {a.config.AppID},
		"code":       {exchange.Code},
		"grant_type": {"authorization_code"},
	}
	return a.tokenCall(ctx, form, integration.ErrProviderRejected)
}

// RefreshToken trades a refresh token for a fresh access token. Zalo rotates
// the refresh token on every call.
func (a *ZaloOAAdapter) RefreshToken(ctx context.Context, refreshToken string) (*integration.OAuthToken, error) {
	form := url.Values{
		"app_id":        {a.config.AppID},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}
	return a.tokenCall(ctx, form, integration.ErrReauthorizationRequired)
}

// RevokeToken is a no-op: Zalo has no revocation endpoint, grants lapse with
// their refresh token
func (a *ZaloOAAdapter) RevokeToken(_ context.Context, _ *integration.OAuthToken) error {
	return nil
}

// tokenCall performs one call against the non-standard token endpoint
func (a *ZaloOAAdapter) tokenCall(ctx context.Context, form url.Values, rejected error) (*integration.OAuthToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("zalooa: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("secret_key", a.config.AppSecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if err := mapHTTPStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var token zaloTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderInvalidResponse, err)
	}
	if token.Error != 0 || token.AccessToken == "" {
		return nil, fmt.Errorf("%w: %d - %s", rejected, token.Error, token.ErrorName)
	}

	lifetime := defaultTokenLifetime
	if seconds, err := token.ExpiresIn.Int64(); err == nil && seconds > 0 {
		lifetime = time.Duration(seconds) * time.Second
	}
	return &integration.OAuthToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(lifetime),
	}, nil
}

// ---------------------------------------------------------------------------
// Reporting
// ---------------------------------------------------------------------------

// TestConnection reads the official account behind the token
func (a *ZaloOAAdapter) TestConnection(ctx context.Context, accessToken string, cfg integration.ProviderConfig) (*integration.ConnectionTest, error) {
	if _, err := a.messagingConfig(cfg); err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("access_token", accessToken)
	body, err := doRequest(ctx, a.httpClient, apiRequest{
		method: http.MethodGet,
		url:    a.config.APIBaseURL + "/v2.0/oa/getoa",
		header: header,
	})
	if err != nil {
		return nil, err
	}

	var resp zaloOAInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderInvalidResponse, err)
	}
	if err := a.mapZaloError(&resp.zaloResponse); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return &integration.ConnectionTest{OK: false, Message: "official account not found"}, nil
	}
	return &integration.ConnectionTest{OK: true, AccountName: resp.Data.Name}, nil
}

// PullMetrics pulls per-template notification statistics for the window.
// Template delivery stats fill the normalized ad-metrics shape: deliveries
// count as impressions and message fees as spend.
func (a *ZaloOAAdapter) PullMetrics(ctx context.Context, req *integration.PullRequest) (*integration.MetricsSnapshot, error) {
	messagingCfg, err := a.messagingConfig(req.Config)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"oa_id":     {messagingCfg.OAID},
		"from_date": {req.Window.From.Format(zaloDateLayout)},
		"to_date":   {req.Window.To.Format(zaloDateLayout)},
	}
	header := http.Header{}
	header.Set("access_token", req.AccessToken)

	body, err := doRequest(ctx, a.httpClient, apiRequest{
		method: http.MethodGet,
		url:    a.config.APIBaseURL + "/v2.0/oa/template/statistics?" + params.Encode(),
		header: header,
	})
	if err != nil {
		return nil, err
	}

	var resp zaloTemplateStatsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderInvalidResponse, err)
	}
	if err := a.mapZaloError(&resp.zaloResponse); err != nil {
		return nil, err
	}

	snapshot := &integration.MetricsSnapshot{
		Window:  req.Window,
		Records: make([]integration.MetricRecord, 0, len(resp.Data)),
	}
	for _, row := range resp.Data {
		record, err := zaloRecord(&row)
		if err != nil {
			return nil, err
		}
		snapshot.Records = append(snapshot.Records, record)
	}
	return snapshot, nil
}

// VerifySignature checks the webhook MAC, with or without the mac= prefix
func (a *ZaloOAAdapter) VerifySignature(payload []byte, signature string) bool {
	return verifyHMACHex(a.config.AppSecret, payload, strings.TrimPrefix(signature, zaloMACPrefix))
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

func (a *ZaloOAAdapter) messagingConfig(cfg integration.ProviderConfig) (*integration.MessagingOAConfig, error) {
	messagingCfg, ok := cfg.(*integration.MessagingOAConfig)
	if !ok || messagingCfg == nil {
		return nil, integration.ErrUnknownProviderConfig
	}
	return messagingCfg, nil
}

// mapZaloError classifies an application-level OA error code
func (a *ZaloOAAdapter) mapZaloError(resp *zaloResponse) error {
	if resp.IsSuccess() {
		return nil
	}
	switch resp.Error {
	case zaloErrInvalidToken, zaloErrTokenExpired:
		return fmt.Errorf("%w: %d - %s", integration.ErrProviderAuthFailed, resp.Error, resp.Message)
	default:
		return fmt.Errorf("%w: %d - %s", integration.ErrProviderRequestFailed, resp.Error, resp.Message)
	}
}

// zaloRecord maps one statistics row into the normalized schema
func zaloRecord(row *zaloTemplateStatRow) (integration.MetricRecord, error) {
	date, err := time.Parse(zaloDateLayout, row.Date)
	if err != nil {
		return integration.MetricRecord{}, fmt.Errorf("%w: bad date %q", integration.ErrProviderInvalidResponse, row.Date)
	}

	spend := decimal.Zero
	if row.ChargedAmount != "" {
		spend, err = decimal.NewFromString(row.ChargedAmount)
		if err != nil {
			return integration.MetricRecord{}, fmt.Errorf("%w: bad charged_amount %q", integration.ErrProviderInvalidResponse, row.ChargedAmount)
		}
	}

	return integration.MetricRecord{
		Date:         date,
		CampaignID:   row.TemplateID,
		CampaignName: row.TemplateName,
		Impressions:  row.Delivered,
		Clicks:       row.Clicked,
		Conversions:  row.Responded,
		Spend:        spend,
		Revenue:      decimal.Zero,
		Currency:     "VND",
	}, nil
}

// Ensure ZaloOAAdapter implements ProviderAdapter interface
var _ integration.ProviderAdapter = (*ZaloOAAdapter)(nil)
