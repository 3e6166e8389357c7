package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const defaultInstagramGraphURL = "https://graph.instagram.com"

// Credentials is the confidential half of a platform app registration.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// OAuth2Proxy is the server-side token proxy. It is the only component that
// sees client secrets.
type OAuth2Proxy struct {
	registry          *platform.Registry
	credentials       map[platform.Platform]Credentials
	httpClient        *http.Client
	instagramGraphURL string
}

var _ TokenProxy = (*OAuth2Proxy)(nil)

type Option func(*OAuth2Proxy)

func WithHTTPClient(client *http.Client) Option {
	return func(p *OAuth2Proxy) {
		p.httpClient = client
	}
}

// WithInstagramGraphURL overrides the graph.instagram.com base used for the
// long-lived token exchange.
func WithInstagramGraphURL(base string) Option {
	return func(p *OAuth2Proxy) {
		p.instagramGraphURL = strings.TrimRight(base, "/")
	}
}

func NewOAuth2Proxy(registry *platform.Registry, credentials map[platform.Platform]Credentials, opts ...Option) *OAuth2Proxy {
	p := &OAuth2Proxy{
		registry:          registry,
		credentials:       credentials,
		httpClient:        &http.Client{Timeout: 10 * time.Second},
		instagramGraphURL: defaultInstagramGraphURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *OAuth2Proxy) oauth2Config(platformName, redirectURI string, refresh bool) (*oauth2.Config, platform.Config, Credentials, error) {
	pl, err := platform.Parse(platformName)
	if err != nil {
		return nil, platform.Config{}, Credentials{}, err
	}
	cfg, err := p.registry.Get(pl)
	if err != nil {
		return nil, platform.Config{}, Credentials{}, err
	}
	creds, ok := p.credentials[pl]
	if !ok || creds.ClientSecret == "" {
		return nil, platform.Config{}, Credentials{}, fmt.Errorf("%w: %s", ErrMissingCredentials, pl)
	}
	if creds.ClientID == "" {
		creds.ClientID = cfg.ClientID
	}

	tokenURL := cfg.TokenURL
	if refresh {
		tokenURL = cfg.RefreshURL
	}

	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthorizationURL,
			TokenURL: tokenURL,
		},
	}, cfg, creds, nil
}

func (p *OAuth2Proxy) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func (p *OAuth2Proxy) Exchange(ctx context.Context, req transfer.ExchangeRequest) (*transfer.TokenResponse, error) {
	if req.Code == "" {
		return nil, fmt.Errorf("%w: code is empty", ErrProxyFailure)
	}

	conf, cfg, creds, err := p.oauth2Config(req.Platform, req.RedirectURI, false)
	if err != nil {
		return nil, err
	}

	var opts []oauth2.AuthCodeOption
	if req.CodeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(req.CodeVerifier))
	}

	token, err := conf.Exchange(p.clientContext(ctx), req.Code, opts...)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrProxyFailure, err)
	}

	switch cfg.Platform {
	case platform.Instagram:
		// Trade the one-hour token for a long-lived one. The long-lived token
		// doubles as the refresh credential for ig_refresh_token.
		long, err := p.instagramToken(ctx, "access_token", url.Values{
			"grant_type":    {"ig_exchange_token"},
			"client_secret": {creds.ClientSecret},
			"access_token":  {token.AccessToken},
		})
		if err != nil {
			return nil, err
		}
		return &transfer.TokenResponse{
			AccessToken:  long.AccessToken,
			RefreshToken: long.AccessToken,
			ExpiresIn:    long.ExpiresIn,
			TokenType:    "Bearer",
			Scope:        strings.Join(cfg.Scopes, ","),
		}, nil
	}

	return toTokenResponse(token), nil
}

func (p *OAuth2Proxy) Refresh(ctx context.Context, req transfer.RefreshRequest) (*transfer.TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token is empty", ErrProxyFailure)
	}

	conf, cfg, _, err := p.oauth2Config(req.Platform, "", true)
	if err != nil {
		return nil, err
	}
	if !cfg.CanRefresh() {
		return nil, fmt.Errorf("%w: %s", ErrRefreshUnsupported, cfg.Platform)
	}

	switch cfg.Platform {
	case platform.Instagram:
		long, err := p.graphToken(ctx, cfg.RefreshURL, url.Values{
			"grant_type":   {"ig_refresh_token"},
			"access_token": {req.RefreshToken},
		})
		if err != nil {
			return nil, err
		}
		return &transfer.TokenResponse{
			AccessToken:  long.AccessToken,
			RefreshToken: long.AccessToken,
			ExpiresIn:    long.ExpiresIn,
			TokenType:    "Bearer",
		}, nil
	}

	token, err := conf.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: req.RefreshToken}).Token()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrProxyFailure, err)
	}
	return toTokenResponse(token), nil
}

// Revoke is a no-op for platforms without a revoke endpoint.
func (p *OAuth2Proxy) Revoke(ctx context.Context, req transfer.RevokeRequest) error {
	_, cfg, creds, err := p.oauth2Config(req.Platform, "", false)
	if err != nil {
		return err
	}
	if cfg.RevokeURL == "" {
		return nil
	}

	form := url.Values{
		"token":           {req.AccessToken},
		"token_type_hint": {"access_token"},
		"client_id":       {creds.ClientID},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(url.QueryEscape(creds.ClientID), url.QueryEscape(creds.ClientSecret))

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProxyFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		return fmt.Errorf("%w: revoke returned %s (status code: %d)", ErrProxyFailure, body, resp.StatusCode)
	}
	return nil
}

func (p *OAuth2Proxy) instagramToken(ctx context.Context, path string, params url.Values) (*transfer.InstagramLongLivedToken, error) {
	return p.graphToken(ctx, p.instagramGraphURL+"/"+path, params)
}

func (p *OAuth2Proxy) graphToken(ctx context.Context, endpoint string, params url.Values) (*transfer.InstagramLongLivedToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrProxyFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var graphErr transfer.GraphErrorResponse
		if json.Unmarshal(body, &graphErr) == nil && graphErr.Error.Message != "" {
			return nil, fmt.Errorf("%w: %s (status code: %d)", ErrProxyFailure, graphErr.Error.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: status code %d", ErrProxyFailure, resp.StatusCode)
	}

	var result transfer.InstagramLongLivedToken
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode long-lived token response: %w", err)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("%w: response has no access token", ErrProxyFailure)
	}
	return &result, nil
}

func toTokenResponse(token *oauth2.Token) *transfer.TokenResponse {
	resp := &transfer.TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
	}
	if !token.Expiry.IsZero() {
		if secs := int64(time.Until(token.Expiry).Round(time.Second).Seconds()); secs > 0 {
			resp.ExpiresIn = secs
		}
	}
	if scope, ok := token.Extra("scope").(string); ok {
		resp.Scope = scope
	}
	return resp
}
