package adsplatform

import "errors"

// MetaAdsConfig holds application-level credentials for the Meta Marketing API
type MetaAdsConfig struct {
	// AppID is the app ID from the Meta developer console
	AppID string
	// AppSecret is the app secret, also used to sign webhook payloads
	AppSecret string
	// APIBaseURL is the Graph API endpoint
	APIBaseURL string
	// AuthBaseURL is the login dialog endpoint
	AuthBaseURL string
	// TokenURL is the token endpoint
	TokenURL string
	// APIVersion is the Graph API version used when the integration does
	// not pin one
	APIVersion string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	metaAdsProductionAPIURL = "https://graph.facebook.com"
	metaAdsAuthURL          = "https://www.facebook.com/v19.0/dialog/oauth"
	metaAdsTokenURL         = "https://graph.facebook.com/v19.0/oauth/access_token"
	metaAdsDefaultVersion   = "v19.0"
)

var (
	ErrMetaAdsConfigMissingAppID     = errors.New("metaads: app ID is required")
	ErrMetaAdsConfigMissingAppSecret = errors.New("metaads: app secret is required")
)

// Validate validates the configuration and fills endpoint defaults
func (c *MetaAdsConfig) Validate() error {
	if c.AppID == "" {
		return ErrMetaAdsConfigMissingAppID
	}
	if c.AppSecret == "" {
		return ErrMetaAdsConfigMissingAppSecret
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = metaAdsProductionAPIURL
	}
	if c.AuthBaseURL == "" {
		c.AuthBaseURL = metaAdsAuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = metaAdsTokenURL
	}
	if c.APIVersion == "" {
		c.APIVersion = metaAdsDefaultVersion
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}
