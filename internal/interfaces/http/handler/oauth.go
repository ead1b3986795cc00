package handler

import (
	"errors"
	"io"
	"net/http"

	app "github.com/adhub/backend/internal/application/integration"
	"github.com/adhub/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// OAuthHandler handles the OAuth authorization flow API endpoints
type OAuthHandler struct {
	BaseHandler
	tokens *app.TokenService

	// defaultRedirectURI is used when the caller does not supply one
	defaultRedirectURI string
}

// OAuthHandlerOption is a functional option for OAuthHandler
type OAuthHandlerOption func(*OAuthHandler)

// WithDefaultRedirectURI sets the redirect URI used when a request omits it
func WithDefaultRedirectURI(uri string) OAuthHandlerOption {
	return func(h *OAuthHandler) {
		h.defaultRedirectURI = uri
	}
}

// NewOAuthHandler creates a new OAuthHandler
func NewOAuthHandler(tokens *app.TokenService, opts ...OAuthHandlerOption) *OAuthHandler {
	h := &OAuthHandler{tokens: tokens}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers OAuth flow routes. The callback endpoint is hit by
// the provider redirect and carries no bearer token; it is authenticated by
// the single-use state parameter instead.
func (h *OAuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/integrations/:id")
	{
		g.POST("/oauth/start", h.StartAuthorization)
		g.GET("/oauth/status", h.TokenStatus)
		g.POST("/oauth/refresh", h.RefreshToken)
		g.POST("/oauth/revoke", h.RevokeToken)
	}
	rg.GET("/oauth/callback", h.Callback)
}

// StartAuthorization godoc
// @ID           startIntegrationAuthorization
// @Summary      Start the OAuth consent flow
// @Description  Issues a single-use state and returns the provider consent URL
// @Tags         oauth
// @Accept       json
// @Produce      json
// @Param        id path string true "Integration ID"
// @Param        request body app.StartAuthorizationRequest true "Redirect URI"
// @Success      200 {object} APIResponse[app.StartAuthorizationResponse]
// @Failure      409 {object} ErrorResponse
// @Router       /integrations/{id}/oauth/start [post]
func (h *OAuthHandler) StartAuthorization(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	var req app.StartAuthorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BadRequest(c, err.Error())
		return
	}
	if req.RedirectURI == "" {
		req.RedirectURI = h.defaultRedirectURI
	}
	if req.RedirectURI == "" {
		h.BadRequest(c, "redirect_uri is required")
		return
	}

	resp, err := h.tokens.StartAuthorization(c.Request.Context(), tenantID, id, req.RedirectURI)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Callback godoc
// @ID           completeIntegrationAuthorization
// @Summary      OAuth callback
// @Description  Exchanges the authorization code and stores the resulting grant
// @Tags         oauth
// @Produce      json
// @Param        state query string true "State issued by the authorize step"
// @Param        code  query string true "Authorization code from the provider"
// @Success      200 {object} APIResponse[app.IntegrationResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /oauth/callback [get]
func (h *OAuthHandler) Callback(c *gin.Context) {
	// Providers report consent denial through an error query parameter
	// instead of a code
	if provErr := c.Query("error"); provErr != "" {
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeProviderRejected,
			"Authorization was not granted: "+provErr)
		return
	}

	req := app.CompleteAuthorizationRequest{
		State: c.Query("state"),
		Code:  c.Query("code"),
	}
	if req.State == "" || req.Code == "" {
		h.BadRequest(c, "Both state and code query parameters are required")
		return
	}

	connected, err := h.tokens.CompleteAuthorization(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app.NewIntegrationResponse(connected))
}

// TokenStatus godoc
// @ID           getIntegrationTokenStatus
// @Summary      Get token status
// @Description  Returns the connectivity phase of the integration without
// @Description  exposing any credential material
// @Tags         oauth
// @Produce      json
// @Param        id path string true "Integration ID"
// @Success      200 {object} APIResponse[app.TokenStatusResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /integrations/{id}/oauth/status [get]
func (h *OAuthHandler) TokenStatus(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	status, err := h.tokens.Status(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app.NewTokenStatusResponse(status))
}

// RefreshToken godoc
// @ID           refreshIntegrationToken
// @Summary      Force a token refresh
// @Description  Refreshes the grant immediately regardless of expiry and
// @Description  returns the resulting token status
// @Tags         oauth
// @Produce      json
// @Param        id path string true "Integration ID"
// @Success      200 {object} APIResponse[app.TokenStatusResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /integrations/{id}/oauth/refresh [post]
func (h *OAuthHandler) RefreshToken(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	status, err := h.tokens.ForceRefresh(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app.NewTokenStatusResponse(status))
}

// RevokeToken godoc
// @ID           revokeIntegrationToken
// @Summary      Revoke the stored grant
// @Description  Revokes the token at the provider on a best-effort basis and
// @Description  deletes the stored credential
// @Tags         oauth
// @Produce      json
// @Param        id path string true "Integration ID"
// @Success      200 {object} APIResponse[app.IntegrationResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /integrations/{id}/oauth/revoke [post]
func (h *OAuthHandler) RevokeToken(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	updated, err := h.tokens.Revoke(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app.NewIntegrationResponse(updated))
}
