package adsplatform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/adhub/backend/internal/domain/integration"
)

// defaultTokenLifetime is assumed when a provider omits expires_in
const defaultTokenLifetime = time.Hour

// oauthFlow wraps an oauth2.Config for one provider. The redirect URI varies
// per authorization attempt, so the config is copied before each call.
type oauthFlow struct {
	config oauth2.Config
}

// authorizationURL builds the consent URL for the given state and redirect
func (f *oauthFlow) authorizationURL(state, redirectURI string, extra ...oauth2.AuthCodeOption) string {
	cfg := f.config
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL(state, extra...)
}

// exchange trades an authorization code for a token
func (f *oauthFlow) exchange(ctx context.Context, exchange integration.CodeExchange) (*integration.OAuthToken, error) {
	cfg := f.config
	cfg.RedirectURL = exchange.RedirectURI
	token, err := cfg.Exchange(ctx, exchange.Code)
	if err != nil {
		return nil, mapOAuthError(err, integration.ErrProviderRejected)
	}
	return domainToken(token), nil
}

// refresh trades a refresh token for a fresh access token
func (f *oauthFlow) refresh(ctx context.Context, refreshToken string) (*integration.OAuthToken, error) {
	source := f.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, mapOAuthError(err, integration.ErrReauthorizationRequired)
	}
	fresh := domainToken(token)
	// oauth2 reuses the input refresh token when the provider does not
	// rotate; clear it so the caller decides what to keep
	if fresh.RefreshToken == refreshToken {
		fresh.RefreshToken = ""
	}
	return fresh, nil
}

// domainToken converts an oauth2 token into the vault shape
func domainToken(token *oauth2.Token) *integration.OAuthToken {
	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(defaultTokenLifetime)
	}
	out := &integration.OAuthToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    expiresAt,
	}
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		out.Scopes = strings.FieldsFunc(scope, func(r rune) bool {
			return r == ' ' || r == ','
		})
	}
	return out
}

// mapOAuthError classifies an oauth2 round-trip failure. Definitive provider
// rejections map to rejected; everything else is treated as transient.
func mapOAuthError(err error, rejected error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		switch retrieveErr.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", rejected, retrieveErr.ErrorCode)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: token endpoint", integration.ErrProviderRateLimited)
		}
		return fmt.Errorf("%w: token endpoint HTTP %d", integration.ErrProviderUnavailable, retrieveErr.Response.StatusCode)
	}
	return fmt.Errorf("%w: %v", integration.ErrProviderUnavailable, err)
}
