package securestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
)

const (
	namespace = "crosspost"

	connectedAccountsKey = namespace + "_connected_accounts"
	userDataKey          = namespace + "_user_data"
	appSettingsKey       = namespace + "_app_settings"

	// ExpiryBuffer is how long before its expiry a token is treated as expired.
	ExpiryBuffer = 5 * time.Minute
)

var ErrNoExpiryIndex = errors.New("backend does not index token expiry")

// TokenRef identifies one stored token.
type TokenRef struct {
	UserID   int64
	Platform platform.Platform
}

// Store is the only writer of token and connected-account state. Values are
// sealed before they reach the backend.
type Store struct {
	backend Backend
	sealer  Sealer

	// serializes read-modify-write of the account list within this process
	mu sync.Mutex
}

func NewStore(backend Backend, sealer Sealer) *Store {
	if !sealer.Protected() {
		slog.Warn("secure store is running with obfuscation only; tokens are NOT encrypted at rest")
	}
	return &Store{backend: backend, sealer: sealer}
}

// Protected reports whether values are encrypted at rest. Callers must not
// treat an unprotected store as equivalent to an encrypted one.
func (s *Store) Protected() bool {
	return s.sealer.Protected()
}

// IsExpired reports whether token is within ExpiryBuffer of, or past, its
// expiry. Tokens without an expiry never expire.
func IsExpired(token *models.OAuthToken, now time.Time) bool {
	if token == nil || token.ExpiresAt == nil {
		return false
	}
	return !now.Before(token.ExpiresAt.Add(-ExpiryBuffer))
}

func userKey(userID int64, name string) string {
	return fmt.Sprintf("%s:%d:%s", namespace, userID, name)
}

func tokenName(p platform.Platform) string {
	return fmt.Sprintf("%s_%s_token", namespace, strings.ToLower(string(p)))
}

func tokenKey(userID int64, p platform.Platform) string {
	return userKey(userID, tokenName(p))
}

func parseTokenKey(key string) (TokenRef, bool) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 || parts[0] != namespace {
		return TokenRef{}, false
	}
	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return TokenRef{}, false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(parts[2], namespace+"_"), "_token")
	p, err := platform.Parse(name)
	if err != nil || tokenName(p) != parts[2] {
		return TokenRef{}, false
	}
	return TokenRef{UserID: userID, Platform: p}, true
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.backend.Get(ctx, key)
	if err != nil || sealed == nil {
		return nil, err
	}
	return s.sealer.Open(sealed)
}

func (s *Store) put(key string, v any, expiresAt *time.Time) (Op, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Op{}, fmt.Errorf("encode %s: %w", key, err)
	}
	sealed, err := s.sealer.Seal(raw)
	if err != nil {
		return Op{}, err
	}
	return Put(key, sealed, expiresAt), nil
}

func (s *Store) StoreToken(ctx context.Context, userID int64, p platform.Platform, token *models.OAuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, err := s.put(tokenKey(userID, p), token, token.ExpiresAt)
	if err != nil {
		return err
	}
	ops := []Op{op}

	// Mirror the expiry onto the connected account for display.
	accounts, err := s.getConnectedAccounts(ctx, userID)
	if err != nil {
		return err
	}
	for i := range accounts {
		if accounts[i].Platform == string(p) {
			accounts[i].ExpiresAt = token.ExpiresAt
			accOp, err := s.put(userKey(userID, connectedAccountsKey), accounts, nil)
			if err != nil {
				return err
			}
			ops = append(ops, accOp)
			break
		}
	}

	return s.backend.Apply(ctx, ops...)
}

// GetToken returns nil without error when no token is stored or the stored
// value cannot be decoded.
func (s *Store) GetToken(ctx context.Context, userID int64, p platform.Platform) (*models.OAuthToken, error) {
	raw, err := s.get(ctx, tokenKey(userID, p))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var token models.OAuthToken
	if err := json.Unmarshal(raw, &token); err != nil {
		slog.Info("discarding unreadable token", "platform", p, "error", err)
		return nil, nil
	}
	return &token, nil
}

func (s *Store) DeleteToken(ctx context.Context, userID int64, p platform.Platform) error {
	return s.backend.Apply(ctx, Del(tokenKey(userID, p)))
}

func (s *Store) StoreConnectedAccounts(ctx context.Context, userID int64, accounts []models.ConnectedAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, err := s.put(userKey(userID, connectedAccountsKey), accounts, nil)
	if err != nil {
		return err
	}
	return s.backend.Apply(ctx, op)
}

func (s *Store) GetConnectedAccounts(ctx context.Context, userID int64) ([]models.ConnectedAccount, error) {
	return s.getConnectedAccounts(ctx, userID)
}

func (s *Store) getConnectedAccounts(ctx context.Context, userID int64) ([]models.ConnectedAccount, error) {
	raw, err := s.get(ctx, userKey(userID, connectedAccountsKey))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if raw == nil {
		return []models.ConnectedAccount{}, nil
	}

	var accounts []models.ConnectedAccount
	if err := json.Unmarshal(raw, &accounts); err != nil {
		slog.Info("discarding unreadable account list", "error", err)
		return []models.ConnectedAccount{}, nil
	}
	return accounts, nil
}

func withoutPlatform(accounts []models.ConnectedAccount, p string) []models.ConnectedAccount {
	filtered := make([]models.ConnectedAccount, 0, len(accounts))
	for _, a := range accounts {
		if a.Platform != p {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// AddConnectedAccount replaces any account already stored for the same platform.
func (s *Store) AddConnectedAccount(ctx context.Context, userID int64, account models.ConnectedAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.getConnectedAccounts(ctx, userID)
	if err != nil {
		return err
	}
	accounts = append(withoutPlatform(accounts, account.Platform), account)

	op, err := s.put(userKey(userID, connectedAccountsKey), accounts, nil)
	if err != nil {
		return err
	}
	return s.backend.Apply(ctx, op)
}

// SaveConnection writes the token and its account record in one batch, so a
// failed write leaves the previous connection untouched.
func (s *Store) SaveConnection(ctx context.Context, userID int64, p platform.Platform, token *models.OAuthToken, account models.ConnectedAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.getConnectedAccounts(ctx, userID)
	if err != nil {
		return err
	}
	accounts = append(withoutPlatform(accounts, account.Platform), account)

	tokenOp, err := s.put(tokenKey(userID, p), token, token.ExpiresAt)
	if err != nil {
		return err
	}
	accountsOp, err := s.put(userKey(userID, connectedAccountsKey), accounts, nil)
	if err != nil {
		return err
	}
	return s.backend.Apply(ctx, tokenOp, accountsOp)
}

// RemoveConnectedAccount drops the platform's account entry and its token
// together. Removing an absent account is a no-op.
func (s *Store) RemoveConnectedAccount(ctx context.Context, userID int64, p platform.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.getConnectedAccounts(ctx, userID)
	if err != nil {
		return err
	}

	accountsOp, err := s.put(userKey(userID, connectedAccountsKey), withoutPlatform(accounts, string(p)), nil)
	if err != nil {
		return err
	}
	return s.backend.Apply(ctx, accountsOp, Del(tokenKey(userID, p)))
}

// ClearAllSecureData wipes every key the store owns for userID.
func (s *Store) ClearAllSecureData(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ops := []Op{
		Del(userKey(userID, connectedAccountsKey)),
		Del(userKey(userID, userDataKey)),
		Del(userKey(userID, appSettingsKey)),
	}
	for _, p := range platform.All() {
		ops = append(ops, Del(tokenKey(userID, p)))
	}
	return s.backend.Apply(ctx, ops...)
}

// ExpiringTokens lists stored tokens expiring in [after, before). Tokens that
// have already lapsed are left to the next on-demand refresh or reconnect.
func (s *Store) ExpiringTokens(ctx context.Context, after, before time.Time) ([]TokenRef, error) {
	index, ok := s.backend.(ExpiryIndex)
	if !ok {
		return nil, ErrNoExpiryIndex
	}

	keys, err := index.Expiring(ctx, after, before)
	if err != nil {
		return nil, err
	}

	refs := make([]TokenRef, 0, len(keys))
	for _, k := range keys {
		if ref, ok := parseTokenKey(k); ok {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// GetSettings returns nil without error when the user has saved none.
func (s *Store) GetSettings(ctx context.Context, userID int64) (*models.Settings, error) {
	raw, err := s.get(ctx, userKey(userID, appSettingsKey))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var settings models.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		slog.Info("discarding unreadable settings", "error", err)
		return nil, nil
	}
	return &settings, nil
}

func (s *Store) StoreSettings(ctx context.Context, userID int64, settings *models.Settings) error {
	op, err := s.put(userKey(userID, appSettingsKey), settings, nil)
	if err != nil {
		return err
	}
	return s.backend.Apply(ctx, op)
}
