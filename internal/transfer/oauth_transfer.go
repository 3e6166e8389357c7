package transfer

// ExchangeRequest is sent to the token proxy to trade an authorization code.
type ExchangeRequest struct {
	Platform     string `json:"platform"`
	Code         string `json:"code"`
	RedirectURI  string `json:"redirectUri"`
	CodeVerifier string `json:"codeVerifier,omitempty"`
}

type RefreshRequest struct {
	Platform     string `json:"platform"`
	RefreshToken string `json:"refreshToken"`
}

type RevokeRequest struct {
	Platform    string `json:"platform"`
	AccessToken string `json:"accessToken"`
}

// TokenResponse is the normalized token payload returned by the proxy.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
