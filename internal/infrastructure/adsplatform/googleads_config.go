package adsplatform

import "errors"

// GoogleAdsConfig holds application-level credentials for the Google Ads API.
// Per-integration settings (customer ID, developer token) travel on the
// integration's provider config instead.
type GoogleAdsConfig struct {
	// ClientID is the OAuth client ID from the Google Cloud console
	ClientID string
	// ClientSecret is the OAuth client secret
	ClientSecret string
	// WebhookSecret signs inbound webhook payloads
	WebhookSecret string
	// APIBaseURL is the Google Ads API endpoint
	APIBaseURL string
	// AuthBaseURL is the consent screen endpoint
	AuthBaseURL string
	// TokenURL is the token endpoint
	TokenURL string
	// RevokeURL is the token revocation endpoint
	RevokeURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	googleAdsProductionAPIURL = "https://googleads.googleapis.com/v16"
	googleAdsAuthURL          = "https://accounts.google.com/o/oauth2/v2/auth"
	googleAdsTokenURL         = "https://oauth2.googleapis.com/token"
	googleAdsRevokeURL        = "https://oauth2.googleapis.com/revoke"
)

var (
	ErrGoogleAdsConfigMissingClientID     = errors.New("googleads: client ID is required")
	ErrGoogleAdsConfigMissingClientSecret = errors.New("googleads: client secret is required")
)

// Validate validates the configuration and fills endpoint defaults
func (c *GoogleAdsConfig) Validate() error {
	if c.ClientID == "" {
		return ErrGoogleAdsConfigMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrGoogleAdsConfigMissingClientSecret
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = googleAdsProductionAPIURL
	}
	if c.AuthBaseURL == "" {
		c.AuthBaseURL = googleAdsAuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = googleAdsTokenURL
	}
	if c.RevokeURL == "" {
		c.RevokeURL = googleAdsRevokeURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}
