package config

import (
	"os"

	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/proxy"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type PlatformApp struct {
	ClientID     string
	ClientSecret string
}

type Config struct {
	Instagram PlatformApp
	Facebook  PlatformApp
	Twitter   PlatformApp
	LinkedIn  PlatformApp
	Pinterest PlatformApp

	// OAuthRedirectURI is registered identically with every platform.
	OAuthRedirectURI string
	// TokenProxyURL selects a remote token proxy; empty runs it in process.
	TokenProxyURL   string
	ProxyServiceKey string

	PostgresURI  string
	RedisURI     string
	StoreBackend string
	FrontendURL  string
	R2           R2

	SecretKey     string
	EncryptionKey string
	CookieName    string
	Port          string
}

func LoadConfig() *Config {
	return &Config{
		Instagram: platformApp("INSTAGRAM"),
		Facebook:  platformApp("FACEBOOK"),
		Twitter:   platformApp("TWITTER"),
		LinkedIn:  platformApp("LINKEDIN"),
		Pinterest: platformApp("PINTEREST"),

		OAuthRedirectURI: getEnv("OAUTH_REDIRECT_URI", "http://localhost:3000/oauth/callback"),
		TokenProxyURL:    getEnv("TOKEN_PROXY_URL", ""),
		ProxyServiceKey:  getEnv("PROXY_SERVICE_KEY", ""),

		PostgresURI:  getEnv("POSTGRES_URI", ""),
		RedisURI:     getEnv("REDIS_URI", "localhost:6379"),
		StoreBackend: getEnv("STORE_BACKEND", "postgres"),
		FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:     getEnv("SECRET_KEY", ""),
		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		CookieName:    getEnv("COOKIE_NAME", "crosspost_session"),
		Port:          getEnv("PORT", "3000"),
	}
}

func (c *Config) apps() map[platform.Platform]PlatformApp {
	return map[platform.Platform]PlatformApp{
		platform.Instagram: c.Instagram,
		platform.Facebook:  c.Facebook,
		platform.Twitter:   c.Twitter,
		platform.LinkedIn:  c.LinkedIn,
		platform.Pinterest: c.Pinterest,
	}
}

// ClientIDs are the public halves of the platform apps.
func (c *Config) ClientIDs() map[platform.Platform]string {
	ids := make(map[platform.Platform]string)
	for p, app := range c.apps() {
		ids[p] = app.ClientID
	}
	return ids
}

// ProxyCredentials returns the apps whose secret is configured.
func (c *Config) ProxyCredentials() map[platform.Platform]proxy.Credentials {
	creds := make(map[platform.Platform]proxy.Credentials)
	for p, app := range c.apps() {
		if app.ClientSecret != "" {
			creds[p] = proxy.Credentials{ClientID: app.ClientID, ClientSecret: app.ClientSecret}
		}
	}
	return creds
}

func platformApp(prefix string) PlatformApp {
	return PlatformApp{
		ClientID:     getEnv(prefix+"_CLIENT_ID", ""),
		ClientSecret: getEnv(prefix+"_CLIENT_SECRET", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
