package adsplatform

import "encoding/json"

// ---------------------------------------------------------------------------
// Zalo OA API wire types
// ---------------------------------------------------------------------------

// zaloResponse is the base envelope of OA API calls
type zaloResponse struct {
	// Error is the error code (0 for success)
	Error int `json:"error"`
	// Message is the error message
	Message string `json:"message"`
}

// IsSuccess returns true if the response indicates success
func (r *zaloResponse) IsSuccess() bool {
	return r.Error == 0
}

// zaloTokenResponse is the access_token endpoint response. Numeric fields
// come back as strings.
type zaloTokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    json.Number `json:"expires_in"`
	Error        int         `json:"error,omitempty"`
	ErrorName    string      `json:"error_name,omitempty"`
}

// zaloOAInfoResponse is the getoa identity response
type zaloOAInfoResponse struct {
	zaloResponse
	Data *zaloOAInfo `json:"data,omitempty"`
}

type zaloOAInfo struct {
	OAID        json.Number `json:"oa_id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
}

// zaloTemplateStatsResponse is the notification template statistics response
type zaloTemplateStatsResponse struct {
	zaloResponse
	Data []zaloTemplateStatRow `json:"data,omitempty"`
}

// zaloTemplateStatRow is one template x day statistics row
type zaloTemplateStatRow struct {
	TemplateID   string `json:"template_id"`
	TemplateName string `json:"template_name,omitempty"`
	// Date is the reporting day in dd/MM/yyyy
	Date      string `json:"date"`
	Delivered int64  `json:"delivered"`
	Seen      int64  `json:"seen"`
	Clicked   int64  `json:"clicked"`
	Responded int64  `json:"responded"`
	// ChargedAmount is the messaging fee in VND as a decimal string
	ChargedAmount string `json:"charged_amount,omitempty"`
}
