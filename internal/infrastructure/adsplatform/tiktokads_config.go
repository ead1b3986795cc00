package adsplatform

import "errors"

// TikTokAdsConfig holds application-level credentials for the TikTok
// Business API
type TikTokAdsConfig struct {
	// AppID is the app ID from the TikTok for Business console
	AppID string
	// AppSecret is the app secret, also used to sign webhook payloads
	AppSecret string
	// APIBaseURL is the Business API endpoint
	APIBaseURL string
	// AuthBaseURL is the authorization portal endpoint
	AuthBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	tiktokAdsProductionAPIURL = "https://business-api.tiktok.com/open_api/v1.3"
	tiktokAdsAuthURL          = "https://business-api.tiktok.com/portal/auth"
)

var (
	ErrTikTokAdsConfigMissingAppID     = errors.New("tiktokads: app ID is required")
	ErrTikTokAdsConfigMissingAppSecret = errors.New("tiktokads: app secret is required")
)

// Validate validates the configuration and fills endpoint defaults
func (c *TikTokAdsConfig) Validate() error {
	if c.AppID == "" {
		return ErrTikTokAdsConfigMissingAppID
	}
	if c.AppSecret == "" {
		return ErrTikTokAdsConfigMissingAppSecret
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = tiktokAdsProductionAPIURL
	}
	if c.AuthBaseURL == "" {
		c.AuthBaseURL = tiktokAdsAuthURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}
