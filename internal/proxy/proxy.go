// Package proxy holds the token exchange, refresh and revoke collaborators.
// Client secrets only ever live behind a TokenProxy.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/maheshrc27/crosspost/internal/transfer"
)

var (
	ErrProxyFailure       = errors.New("token proxy request failed")
	ErrRefreshUnsupported = errors.New("platform does not support token refresh")
	ErrMissingCredentials = errors.New("platform credentials are not configured")
)

const (
	ExchangePath = "/oauth/token/exchange"
	RefreshPath  = "/oauth/token/refresh"
	RevokePath   = "/oauth/token/revoke"

	maxResponseBytes = 1 << 20
)

type TokenProxy interface {
	Exchange(ctx context.Context, req transfer.ExchangeRequest) (*transfer.TokenResponse, error)
	Refresh(ctx context.Context, req transfer.RefreshRequest) (*transfer.TokenResponse, error)
	Revoke(ctx context.Context, req transfer.RevokeRequest) error
}

// HTTPProxy calls a remote token proxy that holds the client secrets.
type HTTPProxy struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

var _ TokenProxy = (*HTTPProxy)(nil)

func NewHTTPProxy(baseURL, serviceKey string, client *http.Client) *HTTPProxy {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProxy{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: client,
	}
}

func (p *HTTPProxy) Exchange(ctx context.Context, req transfer.ExchangeRequest) (*transfer.TokenResponse, error) {
	return p.tokenCall(ctx, ExchangePath, req)
}

func (p *HTTPProxy) Refresh(ctx context.Context, req transfer.RefreshRequest) (*transfer.TokenResponse, error) {
	return p.tokenCall(ctx, RefreshPath, req)
}

func (p *HTTPProxy) Revoke(ctx context.Context, req transfer.RevokeRequest) error {
	_, err := p.post(ctx, RevokePath, req)
	return err
}

func (p *HTTPProxy) tokenCall(ctx context.Context, path string, payload any) (*transfer.TokenResponse, error) {
	body, err := p.post(ctx, path, payload)
	if err != nil {
		return nil, err
	}

	var token transfer.TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: response has no access token", ErrProxyFailure)
	}
	return &token, nil
}

func (p *HTTPProxy) post(ctx context.Context, path string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.serviceKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProxyFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		var e transfer.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("%w: %s (status code: %d)", ErrProxyFailure, e.Error, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: status code %d", ErrProxyFailure, resp.StatusCode)
	}
	return body, nil
}
