package adsplatform

import (
	"errors"
	"fmt"
	"strconv"
)

// ShopeeConfig holds partner-level credentials for the Shopee Open Platform
type ShopeeConfig struct {
	// PartnerID is the numeric open-platform partner ID
	PartnerID int64
	// PartnerKey signs every API request and inbound webhook
	PartnerKey string
	// APIBaseURL is the open-platform endpoint
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const shopeeProductionAPIURL = "https://partner.shopeemobile.com"

var (
	ErrShopeeConfigMissingPartnerID  = errors.New("shopee: partner ID is required")
	ErrShopeeConfigMissingPartnerKey = errors.New("shopee: partner key is required")
)

// Validate validates the configuration and fills endpoint defaults
func (c *ShopeeConfig) Validate() error {
	if c.PartnerID <= 0 {
		return ErrShopeeConfigMissingPartnerID
	}
	if c.PartnerKey == "" {
		return ErrShopeeConfigMissingPartnerKey
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = shopeeProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

// Sign produces the open-platform request signature: a hex HMAC-SHA256 of the
// partner ID, API path, timestamp and any extra parts, keyed by the partner key
func (c *ShopeeConfig) Sign(path string, timestamp int64, extra ...string) string {
	base := strconv.FormatInt(c.PartnerID, 10) + path + strconv.FormatInt(timestamp, 10)
	for _, part := range extra {
		base += part
	}
	return hmacHex(c.PartnerKey, []byte(base))
}

// PartnerIDString returns the partner ID as the query-parameter string
func (c *ShopeeConfig) PartnerIDString() string {
	return fmt.Sprintf("%d", c.PartnerID)
}
