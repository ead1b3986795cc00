package adsplatform

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/adhub/backend/internal/domain/integration"
)

const (
	// maxResponseSize limits provider response bodies to prevent memory exhaustion
	maxResponseSize = 10 * 1024 * 1024 // 10MB max response

	defaultTimeoutSeconds = 30
)

// apiRequest is one call against a provider HTTP API
type apiRequest struct {
	method string
	url    string
	header http.Header
	body   any
}

// doRequest performs the call and returns the body with provider-level HTTP
// failures mapped onto the domain error taxonomy
func doRequest(ctx context.Context, client *http.Client, req apiRequest) ([]byte, error) {
	var reader io.Reader
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("adsplatform: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, reader)
	if err != nil {
		return nil, fmt.Errorf("adsplatform: failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, values := range req.header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("adsplatform: failed to read response: %w", err)
	}

	if err := mapHTTPStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	return body, nil
}

// mapHTTPStatus classifies a provider HTTP status into the domain taxonomy.
// Auth failures are permanent; rate limits and server errors are transient.
func mapHTTPStatus(status int) error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", integration.ErrProviderAuthFailed, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", integration.ErrProviderRateLimited, status)
	case status >= 500:
		return fmt.Errorf("%w: HTTP %d", integration.ErrProviderUnavailable, status)
	default:
		return fmt.Errorf("%w: HTTP %d", integration.ErrProviderRequestFailed, status)
	}
}

// hmacHex computes the hex HMAC-SHA256 of payload under secret
func hmacHex(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// verifyHMACHex compares a provided hex signature against the expected HMAC
// of the payload in constant time. A "sha256=" prefix, as carried by
// X-Hub-Signature-256 style headers, is tolerated on any provider.
func verifyHMACHex(secret string, payload []byte, signature string) bool {
	signature = strings.TrimPrefix(signature, "sha256=")
	if signature == "" {
		return false
	}
	expected := hmacHex(secret, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
