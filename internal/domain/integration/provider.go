package integration

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// ProviderType
// ---------------------------------------------------------------------------

// ProviderType represents the kind of external platform an integration talks to
type ProviderType string

const (
	// ProviderTypeSearchAds represents a search advertising platform (Google Ads style)
	ProviderTypeSearchAds ProviderType = "SEARCH_ADS"
	// ProviderTypeSocialAds represents a social advertising platform (Meta Ads style)
	ProviderTypeSocialAds ProviderType = "SOCIAL_ADS"
	// ProviderTypeMessagingOA represents a messaging official-account platform (Zalo OA style)
	ProviderTypeMessagingOA ProviderType = "MESSAGING_OA"
	// ProviderTypeVideoAds represents a short-video advertising platform (TikTok Ads style)
	ProviderTypeVideoAds ProviderType = "VIDEO_ADS"
	// ProviderTypeCommerce represents a commerce platform (Shopee style)
	ProviderTypeCommerce ProviderType = "COMMERCE"
)

// IsValid returns true if the provider type is valid
func (t ProviderType) IsValid() bool {
	switch t {
	case ProviderTypeSearchAds, ProviderTypeSocialAds, ProviderTypeMessagingOA,
		ProviderTypeVideoAds, ProviderTypeCommerce:
		return true
	default:
		return false
	}
}

// String returns the string representation of ProviderType
func (t ProviderType) String() string {
	return string(t)
}

// DisplayName returns a human-readable name for the provider type
func (t ProviderType) DisplayName() string {
	switch t {
	case ProviderTypeSearchAds:
		return "Search Ads"
	case ProviderTypeSocialAds:
		return "Social Ads"
	case ProviderTypeMessagingOA:
		return "Messaging OA"
	case ProviderTypeVideoAds:
		return "Video Ads"
	case ProviderTypeCommerce:
		return "Commerce"
	default:
		return string(t)
	}
}

// AllProviderTypes returns every supported provider type
func AllProviderTypes() []ProviderType {
	return []ProviderType{
		ProviderTypeSearchAds,
		ProviderTypeSocialAds,
		ProviderTypeMessagingOA,
		ProviderTypeVideoAds,
		ProviderTypeCommerce,
	}
}

// ---------------------------------------------------------------------------
// Provider configuration (tagged union keyed by provider type)
// ---------------------------------------------------------------------------

// ErrUnknownProviderConfig is returned when decoding a config blob for an
// unsupported provider type
var ErrUnknownProviderConfig = errors.New("integration: unknown provider config type")

// ProviderConfig is the non-secret, provider-specific configuration attached
// to an integration. Concrete shapes are decoded at the persistence boundary;
// business logic only ever sees the typed variant.
type ProviderConfig interface {
	// ProviderType returns the provider type this config belongs to
	ProviderType() ProviderType
	// Validate checks the config for required fields
	Validate() error
}

// SearchAdsConfig configures a search-ads integration
type SearchAdsConfig struct {
	CustomerID     string `json:"customer_id"`
	DeveloperToken string `json:"developer_token"`
	ReportCurrency string `json:"report_currency,omitempty"`
}

// ProviderType returns ProviderTypeSearchAds
func (c *SearchAdsConfig) ProviderType() ProviderType { return ProviderTypeSearchAds }

// Validate checks required fields
func (c *SearchAdsConfig) Validate() error {
	if c.CustomerID == "" {
		return errors.New("integration: search ads customer id is required")
	}
	return nil
}

// SocialAdsConfig configures a social-ads integration
type SocialAdsConfig struct {
	AdAccountID string `json:"ad_account_id"`
	PageID      string `json:"page_id,omitempty"`
	APIVersion  string `json:"api_version,omitempty"`
}

// ProviderType returns ProviderTypeSocialAds
func (c *SocialAdsConfig) ProviderType() ProviderType { return ProviderTypeSocialAds }

// Validate checks required fields
func (c *SocialAdsConfig) Validate() error {
	if c.AdAccountID == "" {
		return errors.New("integration: social ads ad account id is required")
	}
	return nil
}

// MessagingOAConfig configures a messaging official-account integration
type MessagingOAConfig struct {
	OAID         string   `json:"oa_id"`
	TemplateIDs  []string `json:"template_ids,omitempty"`
	CallbackCode string   `json:"callback_code,omitempty"`
}

// ProviderType returns ProviderTypeMessagingOA
func (c *MessagingOAConfig) ProviderType() ProviderType { return ProviderTypeMessagingOA }

// Validate checks required fields
func (c *MessagingOAConfig) Validate() error {
	if c.OAID == "" {
		return errors.New("integration: messaging oa id is required")
	}
	return nil
}

// VideoAdsConfig configures a short-video-ads integration
type VideoAdsConfig struct {
	AdvertiserID string `json:"advertiser_id"`
	AppID        string `json:"app_id,omitempty"`
}

// ProviderType returns ProviderTypeVideoAds
func (c *VideoAdsConfig) ProviderType() ProviderType { return ProviderTypeVideoAds }

// Validate checks required fields
func (c *VideoAdsConfig) Validate() error {
	if c.AdvertiserID == "" {
		return errors.New("integration: video ads advertiser id is required")
	}
	return nil
}

// CommerceConfig configures a commerce integration
type CommerceConfig struct {
	ShopID    string `json:"shop_id"`
	Region    string `json:"region,omitempty"`
	PartnerID string `json:"partner_id,omitempty"`
}

// ProviderType returns ProviderTypeCommerce
func (c *CommerceConfig) ProviderType() ProviderType { return ProviderTypeCommerce }

// Validate checks required fields
func (c *CommerceConfig) Validate() error {
	if c.ShopID == "" {
		return errors.New("integration: commerce shop id is required")
	}
	return nil
}

// DecodeProviderConfig decodes a raw JSON config blob into the typed variant
// for the given provider type. An empty blob yields the zero config for the
// type so callers can rely on a non-nil result.
func DecodeProviderConfig(providerType ProviderType, raw []byte) (ProviderConfig, error) {
	var cfg ProviderConfig
	switch providerType {
	case ProviderTypeSearchAds:
		cfg = &SearchAdsConfig{}
	case ProviderTypeSocialAds:
		cfg = &SocialAdsConfig{}
	case ProviderTypeMessagingOA:
		cfg = &MessagingOAConfig{}
	case ProviderTypeVideoAds:
		cfg = &VideoAdsConfig{}
	case ProviderTypeCommerce:
		cfg = &CommerceConfig{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProviderConfig, providerType)
	}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("integration: decode %s config: %w", providerType, err)
	}
	return cfg, nil
}

// EncodeProviderConfig serializes a typed provider config back to JSON
func EncodeProviderConfig(cfg ProviderConfig) ([]byte, error) {
	if cfg == nil {
		return nil, nil
	}
	return json.Marshal(cfg)
}
