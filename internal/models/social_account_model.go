package models

import (
	"time"
)

// OAuthToken is the credential issued for one (user, platform) pair.
// An expiring token without a refresh token can only be renewed by
// re-authorizing.
type OAuthToken struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	TokenType    string     `json:"token_type,omitempty"`
	Scope        string     `json:"scope,omitempty"`
	UserID       string     `json:"user_id,omitempty"`
	Username     string     `json:"username,omitempty"`
}

// ConnectedAccount is the user-facing projection of a stored token.
type ConnectedAccount struct {
	ID             string     `json:"id"`
	Platform       string     `json:"platform"`
	UserID         string     `json:"user_id"`
	Username       string     `json:"username"`
	DisplayName    string     `json:"display_name,omitempty"`
	ProfilePicture string     `json:"profile_picture,omitempty"`
	ConnectedAt    time.Time  `json:"connected_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Scopes         []string   `json:"scopes,omitempty"`
}

func ConnectedAccountID(platform, remoteUserID string) string {
	return platform + "_" + remoteUserID
}
