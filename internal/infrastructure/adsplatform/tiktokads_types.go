package adsplatform

import "encoding/json"

// tiktokResponse is the common envelope on every Business API response.
// Code 0 means success; any other code carries the error in Message.
type tiktokResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// IsSuccess reports whether the API call succeeded
func (r *tiktokResponse) IsSuccess() bool {
	return r.Code == 0
}

type tiktokTokenResponse struct {
	tiktokResponse
	Data struct {
		AccessToken          string   `json:"access_token"`
		RefreshToken         string   `json:"refresh_token"`
		AccessTokenExpireIn  int64    `json:"access_token_expire_in"`
		RefreshTokenExpireIn int64    `json:"refresh_token_expire_in"`
		Scope                []string `json:"scope"`
		AdvertiserIDs        []string `json:"advertiser_ids"`
	} `json:"data"`
}

type tiktokUserInfoResponse struct {
	tiktokResponse
	Data struct {
		ID          json.Number `json:"id"`
		DisplayName string      `json:"display_name"`
		Email       string      `json:"email"`
	} `json:"data"`
}

type tiktokReportResponse struct {
	tiktokResponse
	Data struct {
		List     []tiktokReportRow `json:"list"`
		PageInfo struct {
			Page        int `json:"page"`
			TotalNumber int `json:"total_number"`
			TotalPage   int `json:"total_page"`
		} `json:"page_info"`
	} `json:"data"`
}

// tiktokReportRow is one campaign * day cell from the integrated report.
// TikTok returns every metric as a string.
type tiktokReportRow struct {
	Dimensions struct {
		CampaignID  string `json:"campaign_id"`
		StatTimeDay string `json:"stat_time_day"`
	} `json:"dimensions"`
	Metrics struct {
		CampaignName       string `json:"campaign_name"`
		Impressions        string `json:"impressions"`
		Clicks             string `json:"clicks"`
		Conversion         string `json:"conversion"`
		Spend              string `json:"spend"`
		TotalPurchaseValue string `json:"total_purchase_value"`
		Currency           string `json:"currency"`
	} `json:"metrics"`
}
