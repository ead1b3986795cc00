package adsplatform

// shopeeResponse is the common envelope on open-platform responses. A
// non-empty Error string means the call failed.
type shopeeResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// IsSuccess reports whether the API call succeeded
func (r *shopeeResponse) IsSuccess() bool {
	return r.Error == ""
}

type shopeeTokenResponse struct {
	shopeeResponse
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpireIn     int64  `json:"expire_in"`
}

type shopeeShopInfoResponse struct {
	shopeeResponse
	ShopName string `json:"shop_name"`
	Region   string `json:"region"`
	Status   string `json:"status"`
}

type shopeeAdsPerformanceResponse struct {
	shopeeResponse
	Response struct {
		CampaignList []shopeeCampaignPerformance `json:"campaign_list"`
	} `json:"response"`
}

type shopeeCampaignPerformance struct {
	CampaignID   int64                    `json:"campaign_id"`
	CampaignName string                   `json:"campaign_name"`
	MetricsList  []shopeeDailyPerformance `json:"metrics_list"`
}

// shopeeDailyPerformance is one day of ads metrics for a campaign. Amounts
// arrive as decimal strings in the shop currency.
type shopeeDailyPerformance struct {
	Date       string `json:"date"`
	Impression string `json:"impression"`
	Clicks     string `json:"clicks"`
	Checkout   string `json:"checkout"`
	Expense    string `json:"expense"`
	BroadGMV   string `json:"broad_gmv"`
}
