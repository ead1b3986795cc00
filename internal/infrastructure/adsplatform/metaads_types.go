package adsplatform

// ---------------------------------------------------------------------------
// Meta Marketing API wire types
// ---------------------------------------------------------------------------

// metaInsightsResponse is the act_{id}/insights response. Numeric fields come
// back as decimal strings.
type metaInsightsResponse struct {
	Data   []metaInsightsRow `json:"data,omitempty"`
	Paging *metaPaging       `json:"paging,omitempty"`
}

type metaPaging struct {
	Next string `json:"next,omitempty"`
}

// metaInsightsRow is one campaign x day row
type metaInsightsRow struct {
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	// DateStart is the reporting day in YYYY-MM-DD (time_increment=1)
	DateStart       string            `json:"date_start"`
	Impressions     string            `json:"impressions"`
	Clicks          string            `json:"clicks"`
	Spend           string            `json:"spend"`
	AccountCurrency string            `json:"account_currency,omitempty"`
	Actions         []metaActionCount `json:"actions,omitempty"`
	ActionValues    []metaActionCount `json:"action_values,omitempty"`
}

// metaActionCount is one action-type bucket
type metaActionCount struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

// metaIdentityResponse is the /me identity check response
type metaIdentityResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// metaTokenResponse is the fb_exchange_token response
type metaTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
