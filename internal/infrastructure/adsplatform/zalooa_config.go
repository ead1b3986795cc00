package adsplatform

import "errors"

// ZaloOAConfig holds application-level credentials for the Zalo Official
// Account API. Zalo's token endpoint is not standard OAuth: the app secret
// travels in a secret_key header and expires_in comes back as a string.
type ZaloOAConfig struct {
	// AppID is the app ID from the Zalo developer console
	AppID string
	// AppSecret is the secret_key used for token calls and webhook MACs
	AppSecret string
	// APIBaseURL is the OA Open API endpoint
	APIBaseURL string
	// AuthBaseURL is the OA permission dialog endpoint
	AuthBaseURL string
	// TokenURL is the token endpoint
	TokenURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	zaloOAProductionAPIURL = "https://openapi.zalo.me"
	zaloOAAuthURL          = "https://oauth.zaloapp.com/v4/oa/permission"
	zaloOATokenURL         = "https://oauth.zaloapp.com/v4/oa/access_token"
)

var (
	ErrZaloOAConfigMissingAppID     = errors.New("zalooa: app ID is required")
	ErrZaloOAConfigMissingAppSecret = errors.New("zalooa: app secret is required")
)

// Validate validates the configuration and fills endpoint defaults
func (c *ZaloOAConfig) Validate() error {
	if c.AppID == "" {
		return ErrZaloOAConfigMissingAppID
	}
	if c.AppSecret == "" {
		return ErrZaloOAConfigMissingAppSecret
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = zaloOAProductionAPIURL
	}
	if c.AuthBaseURL == "" {
		c.AuthBaseURL = zaloOAAuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = zaloOATokenURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}
