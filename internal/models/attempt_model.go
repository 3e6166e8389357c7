package models

import "time"

// Attempt is one pending authorization flow. It carries the PKCE verifier so
// that nothing about an in-flight connect lives outside the flow itself.
type Attempt struct {
	UserID       int64     `json:"user_id"`
	Platform     string    `json:"platform"`
	State        string    `json:"state"`
	CodeVerifier string    `json:"code_verifier,omitempty"`
	RedirectURI  string    `json:"redirect_uri"`
	AuthURL      string    `json:"auth_url"`
	CreatedAt    time.Time `json:"created_at"`
}
