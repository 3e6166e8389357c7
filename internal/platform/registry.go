package platform

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Platform string

const (
	Instagram Platform = "instagram"
	Facebook  Platform = "facebook"
	Twitter   Platform = "twitter"
	LinkedIn  Platform = "linkedin"
	Pinterest Platform = "pinterest"
)

var ErrUnknownPlatform = errors.New("unknown platform")

// All returns the supported platforms in a stable order.
func All() []Platform {
	return []Platform{Instagram, Facebook, Twitter, LinkedIn, Pinterest}
}

func Parse(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
}

// Title is the human readable platform name used in result messages.
func (p Platform) Title() string {
	switch p {
	case Instagram:
		return "Instagram"
	case Facebook:
		return "Facebook"
	case Twitter:
		return "Twitter"
	case LinkedIn:
		return "LinkedIn"
	case Pinterest:
		return "Pinterest"
	default:
		return string(p)
	}
}

// Config is the static OAuth and profile configuration of one platform.
// Values are platform facts and are never validated beyond presence.
type Config struct {
	Platform         Platform
	ClientID         string
	Scopes           []string
	AuthorizationURL string
	TokenURL         string
	RefreshURL       string
	RevokeURL        string
	ResponseType     string
	UsePKCE          bool
	DefaultLifetime  time.Duration
	ProfileURL       string
	Profile          ProfileParser
}

// CanRefresh reports whether the platform exposes a refresh endpoint.
func (c Config) CanRefresh() bool {
	return c.RefreshURL != ""
}

type Registry struct {
	configs map[Platform]Config
	order   []Platform
}

func NewRegistry(configs ...Config) *Registry {
	r := &Registry{configs: make(map[Platform]Config, len(configs))}
	for _, c := range configs {
		if _, ok := r.configs[c.Platform]; !ok {
			r.order = append(r.order, c.Platform)
		}
		c.Scopes = append([]string(nil), c.Scopes...)
		r.configs[c.Platform] = c
	}
	return r
}

func (r *Registry) Get(p Platform) (Config, error) {
	c, ok := r.configs[p]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, p)
	}
	c.Scopes = append([]string(nil), c.Scopes...)
	return c, nil
}

func (r *Registry) Platforms() []Platform {
	return append([]Platform(nil), r.order...)
}

const day = 24 * time.Hour

// DefaultConfigs returns the production endpoints and scopes for every
// supported platform. Client ids come from configuration.
func DefaultConfigs(clientIDs map[Platform]string) []Config {
	return []Config{
		{
			Platform: Instagram,
			ClientID: clientIDs[Instagram],
			Scopes: []string{
				"instagram_basic",
				"instagram_content_publish",
				"instagram_manage_comments",
				"instagram_manage_insights",
				"pages_show_list",
				"pages_read_engagement",
			},
			AuthorizationURL: "https://api.instagram.com/oauth/authorize",
			TokenURL:         "https://api.instagram.com/oauth/access_token",
			RefreshURL:       "https://graph.instagram.com/refresh_access_token",
			ResponseType:     "code",
			DefaultLifetime:  60 * day,
			ProfileURL:       "https://graph.instagram.com/me?fields=id,username,account_type,media_count",
			Profile:          instagramProfile{},
		},
		{
			Platform: Facebook,
			ClientID: clientIDs[Facebook],
			Scopes: []string{
				"public_profile",
				"email",
				"pages_show_list",
				"pages_read_engagement",
				"pages_manage_posts",
				"publish_to_groups",
			},
			AuthorizationURL: "https://www.facebook.com/v18.0/dialog/oauth",
			TokenURL:         "https://graph.facebook.com/v18.0/oauth/access_token",
			// Facebook issues no refresh token; expired users re-authorize.
			ResponseType:    "code",
			DefaultLifetime: 60 * day,
			ProfileURL:      "https://graph.facebook.com/me?fields=id,name,email,picture",
			Profile:         facebookProfile{},
		},
		{
			Platform:         Twitter,
			ClientID:         clientIDs[Twitter],
			Scopes:           []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
			AuthorizationURL: "https://twitter.com/i/oauth2/authorize",
			TokenURL:         "https://api.twitter.com/2/oauth2/token",
			RefreshURL:       "https://api.twitter.com/2/oauth2/token",
			RevokeURL:        "https://api.twitter.com/2/oauth2/revoke",
			ResponseType:     "code",
			UsePKCE:          true,
			DefaultLifetime:  2 * time.Hour,
			ProfileURL:       "https://api.twitter.com/2/users/me?user.fields=profile_image_url,username,name",
			Profile:          twitterProfile{},
		},
		{
			Platform:         LinkedIn,
			ClientID:         clientIDs[LinkedIn],
			Scopes:           []string{"r_liteprofile", "r_emailaddress", "w_member_social"},
			AuthorizationURL: "https://www.linkedin.com/oauth/v2/authorization",
			TokenURL:         "https://www.linkedin.com/oauth/v2/accessToken",
			// LinkedIn tokens are not refreshable; users re-authorize.
			ResponseType:    "code",
			DefaultLifetime: 60 * day,
			ProfileURL:      "https://api.linkedin.com/v2/me?projection=(id,firstName,lastName,profilePicture)",
			Profile:         linkedinProfile{},
		},
		{
			Platform:         Pinterest,
			ClientID:         clientIDs[Pinterest],
			Scopes:           []string{"read_public", "write_public", "read_private"},
			AuthorizationURL: "https://api.pinterest.com/oauth/",
			TokenURL:         "https://api.pinterest.com/v5/oauth/token",
			RefreshURL:       "https://api.pinterest.com/v5/oauth/token",
			ResponseType:     "code",
			DefaultLifetime:  30 * day,
			ProfileURL:       "https://api.pinterest.com/v5/user_account",
			Profile:          pinterestProfile{},
		},
	}
}
