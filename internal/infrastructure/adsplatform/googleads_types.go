package adsplatform

// ---------------------------------------------------------------------------
// Google Ads API wire types (search stream, flattened)
// ---------------------------------------------------------------------------

// googleAdsSearchRequest is the body of a customers/{id}/googleAds:search call
type googleAdsSearchRequest struct {
	Query string `json:"query"`
}

// googleAdsSearchResponse is the paged search response
type googleAdsSearchResponse struct {
	Results       []googleAdsRow `json:"results,omitempty"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

// googleAdsRow is one row of the report: campaign x date x metrics
type googleAdsRow struct {
	Campaign googleAdsCampaign `json:"campaign"`
	Metrics  googleAdsMetrics  `json:"metrics"`
	Segments googleAdsSegments `json:"segments"`
}

type googleAdsCampaign struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// googleAdsMetrics carries int64 fields as decimal strings, per the API
type googleAdsMetrics struct {
	Impressions string  `json:"impressions"`
	Clicks      string  `json:"clicks"`
	Conversions float64 `json:"conversions"`
	// CostMicros is spend in millionths of the account currency
	CostMicros string `json:"costMicros"`
	// ConversionsValue is attributed revenue in the account currency
	ConversionsValue float64 `json:"conversionsValue"`
}

type googleAdsSegments struct {
	// Date is the reporting day in YYYY-MM-DD
	Date string `json:"date"`
}

// googleAdsCustomerListResponse is the listAccessibleCustomers response
type googleAdsCustomerListResponse struct {
	ResourceNames []string `json:"resourceNames,omitempty"`
}
