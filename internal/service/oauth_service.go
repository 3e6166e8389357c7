package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/crosspost/internal/authsession"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/pkce"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/proxy"
	"github.com/maheshrc27/crosspost/internal/securestore"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type ConnectState string

const (
	StateIdle                   ConnectState = "idle"
	StateAuthorizationRequested ConnectState = "authorization_requested"
	StateAwaitingCallback       ConnectState = "awaiting_callback"
	StateCodeReceived           ConnectState = "code_received"
	StateTokenExchanged         ConnectState = "token_exchanged"
	StateProfileFetched         ConnectState = "profile_fetched"
	StateConnected              ConnectState = "connected"
	StateFailed                 ConnectState = "failed"
	StateCancelled              ConnectState = "cancelled"
)

// Messages returned in ConnectResult.Error.
const (
	MsgCancelled        = "Authentication cancelled"
	MsgAuthFailed       = "Authentication failed"
	MsgStateMismatch    = "State mismatch"
	MsgNoCode           = "No authorization code received"
	MsgExchangeFailed   = "Failed to exchange code for token"
	MsgProfileFailed    = "Failed to fetch user profile"
	MsgSaveFailed       = "Failed to save connection"
	MsgUnsupported      = "Unsupported platform"
	MsgUnexpected       = "An unexpected error occurred"
	MsgDisconnectFailed = "Failed to disconnect"
)

const maxProfileBytes = 1 << 20

var ErrNoAttempt = errors.New("no pending authorization attempt")

// ConnectResult carries the terminal state of a connect flow. For failures
// FailedAt names the last state reached before the failure.
type ConnectResult struct {
	Success  bool                     `json:"success"`
	Account  *models.ConnectedAccount `json:"account,omitempty"`
	Error    string                   `json:"error,omitempty"`
	State    ConnectState             `json:"state"`
	FailedAt ConnectState             `json:"failed_at,omitempty"`
}

type DisconnectResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func failed(at ConnectState, msg string) *ConnectResult {
	return &ConnectResult{Success: false, Error: msg, State: StateFailed, FailedAt: at}
}

type OAuthService interface {
	Begin(ctx context.Context, userID int64, p platform.Platform) (*models.Attempt, error)
	Complete(ctx context.Context, attempt *models.Attempt, callbackURL string) *ConnectResult
	Authenticate(ctx context.Context, userID int64, p platform.Platform, session authsession.Session) *ConnectResult
	Disconnect(ctx context.Context, userID int64, p platform.Platform) *DisconnectResult
	Accounts(ctx context.Context, userID int64) ([]models.ConnectedAccount, error)
	ClearAll(ctx context.Context, userID int64) error
}

type oauthService struct {
	registry    *platform.Registry
	store       *securestore.Store
	proxy       proxy.TokenProxy
	redirectURI string
	httpClient  *http.Client
	now         func() time.Time
}

func NewOAuthService(registry *platform.Registry, store *securestore.Store, tp proxy.TokenProxy, redirectURI string) OAuthService {
	return &oauthService{
		registry:    registry,
		store:       store,
		proxy:       tp,
		redirectURI: redirectURI,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		now:         time.Now,
	}
}

func (s *oauthService) Begin(ctx context.Context, userID int64, p platform.Platform) (*models.Attempt, error) {
	cfg, err := s.registry.Get(p)
	if err != nil {
		return nil, err
	}

	state, err := pkce.GenerateState()
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("client_id", cfg.ClientID)
	params.Add("redirect_uri", s.redirectURI)
	params.Add("response_type", cfg.ResponseType)
	params.Add("scope", strings.Join(cfg.Scopes, " "))
	params.Add("state", state)

	attempt := &models.Attempt{
		UserID:      userID,
		Platform:    string(p),
		State:       state,
		RedirectURI: s.redirectURI,
		CreatedAt:   s.now(),
	}

	if cfg.UsePKCE {
		verifier, err := pkce.GenerateCodeVerifier()
		if err != nil {
			return nil, err
		}
		attempt.CodeVerifier = verifier
		params.Add("code_challenge", pkce.GenerateCodeChallenge(verifier))
		params.Add("code_challenge_method", pkce.MethodS256)
	}

	attempt.AuthURL = fmt.Sprintf("%s?%s", cfg.AuthorizationURL, params.Encode())
	return attempt, nil
}

func (s *oauthService) Authenticate(ctx context.Context, userID int64, p platform.Platform, session authsession.Session) (result *ConnectResult) {
	defer s.recoverConnect(&result)

	attempt, err := s.Begin(ctx, userID, p)
	if err != nil {
		slog.Info(err.Error())
		if errors.Is(err, platform.ErrUnknownPlatform) {
			return failed(StateIdle, MsgUnsupported)
		}
		return failed(StateIdle, MsgAuthFailed)
	}

	res, err := session.Open(ctx, attempt.AuthURL, attempt.RedirectURI)
	if err != nil {
		slog.Info(err.Error())
		return failed(StateAwaitingCallback, MsgAuthFailed)
	}

	switch res.Type {
	case authsession.ResultSuccess:
		return s.Complete(ctx, attempt, res.URL)
	case authsession.ResultCancel:
		return &ConnectResult{Success: false, Error: MsgCancelled, State: StateCancelled, FailedAt: StateAwaitingCallback}
	default:
		return failed(StateAwaitingCallback, MsgAuthFailed)
	}
}

func (s *oauthService) Complete(ctx context.Context, attempt *models.Attempt, callbackURL string) (result *ConnectResult) {
	defer s.recoverConnect(&result)

	if attempt == nil {
		return failed(StateIdle, MsgAuthFailed)
	}
	// The verifier belongs to this one exchange, whatever its outcome.
	defer func() { attempt.CodeVerifier = "" }()

	u, err := url.Parse(callbackURL)
	if err != nil {
		slog.Info(err.Error())
		return failed(StateCodeReceived, MsgAuthFailed)
	}
	q := u.Query()

	if e := q.Get("error"); e != "" {
		if desc := q.Get("error_description"); desc != "" {
			return failed(StateCodeReceived, desc)
		}
		return failed(StateCodeReceived, e)
	}

	if q.Get("state") != attempt.State {
		slog.Warn("oauth callback state mismatch", "user_id", attempt.UserID, "platform", attempt.Platform)
		return failed(StateCodeReceived, MsgStateMismatch)
	}

	code := q.Get("code")
	if code == "" {
		return failed(StateCodeReceived, MsgNoCode)
	}

	p, err := platform.Parse(attempt.Platform)
	if err != nil {
		return failed(StateCodeReceived, MsgUnsupported)
	}
	cfg, err := s.registry.Get(p)
	if err != nil {
		return failed(StateCodeReceived, MsgUnsupported)
	}

	req := transfer.ExchangeRequest{
		Platform:    string(p),
		Code:        code,
		RedirectURI: attempt.RedirectURI,
	}
	if cfg.UsePKCE {
		req.CodeVerifier = attempt.CodeVerifier
	}
	resp, err := s.proxy.Exchange(ctx, req)
	attempt.CodeVerifier = ""
	if err != nil {
		slog.Info(err.Error())
		return failed(StateCodeReceived, MsgExchangeFailed)
	}

	now := s.now()
	token := &models.OAuthToken{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    expiryFrom(now, resp.ExpiresIn, cfg.DefaultLifetime),
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
	}
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}

	profile, err := s.fetchProfile(ctx, cfg, token.AccessToken)
	if err != nil {
		slog.Info(err.Error())
		return failed(StateTokenExchanged, MsgProfileFailed)
	}

	token.UserID = profile.RemoteUserID
	token.Username = profile.Username

	account := models.ConnectedAccount{
		ID:             models.ConnectedAccountID(string(p), profile.RemoteUserID),
		Platform:       string(p),
		UserID:         profile.RemoteUserID,
		Username:       profile.Username,
		DisplayName:    profile.DisplayName,
		ProfilePicture: profile.ProfilePicture,
		ConnectedAt:    now,
		ExpiresAt:      token.ExpiresAt,
		Scopes:         cfg.Scopes,
	}

	if err := s.store.SaveConnection(ctx, attempt.UserID, p, token, account); err != nil {
		slog.Warn("failed to persist connection", "user_id", attempt.UserID, "platform", p, "error", err)
		return failed(StateProfileFetched, MsgSaveFailed)
	}

	return &ConnectResult{Success: true, Account: &account, State: StateConnected}
}

func (s *oauthService) fetchProfile(ctx context.Context, cfg platform.Config, accessToken string) (*platform.Profile, error) {
	if cfg.Profile == nil {
		return nil, fmt.Errorf("no profile parser for %s", cfg.Platform)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.ProfileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("profile fetch failed: %s (status code: %d)", body, resp.StatusCode)
	}

	return cfg.Profile.Parse(body)
}

// Disconnect revokes on a best-effort basis and always removes local state.
func (s *oauthService) Disconnect(ctx context.Context, userID int64, p platform.Platform) (result *DisconnectResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during disconnect", "platform", p, "panic", r)
			result = &DisconnectResult{Success: false, Error: MsgDisconnectFailed}
		}
	}()

	token, err := s.store.GetToken(ctx, userID, p)
	if err != nil {
		slog.Info(err.Error())
	}

	if token != nil && token.AccessToken != "" {
		if err := s.proxy.Revoke(ctx, transfer.RevokeRequest{Platform: string(p), AccessToken: token.AccessToken}); err != nil {
			slog.Info("token revocation failed, continuing with disconnection", "platform", p, "error", err)
		}
	}

	if err := s.store.RemoveConnectedAccount(ctx, userID, p); err != nil {
		slog.Warn("failed to remove connected account", "user_id", userID, "platform", p, "error", err)
		return &DisconnectResult{Success: false, Error: MsgDisconnectFailed}
	}

	return &DisconnectResult{Success: true}
}

func (s *oauthService) Accounts(ctx context.Context, userID int64) ([]models.ConnectedAccount, error) {
	if userID == 0 {
		err := errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}
	return s.store.GetConnectedAccounts(ctx, userID)
}

func (s *oauthService) ClearAll(ctx context.Context, userID int64) error {
	if userID == 0 {
		err := errors.New("UserID is not valid")
		slog.Info(err.Error())
		return err
	}
	return s.store.ClearAllSecureData(ctx, userID)
}

func (s *oauthService) recoverConnect(result **ConnectResult) {
	if r := recover(); r != nil {
		slog.Error("panic during connect", "panic", r)
		*result = &ConnectResult{Success: false, Error: MsgUnexpected, State: StateFailed}
	}
}
