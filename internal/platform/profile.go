package platform

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrIncompleteProfile = errors.New("profile response has no user id")

// Profile is the normalized identity of the remote account a token was issued for.
type Profile struct {
	RemoteUserID   string
	Username       string
	DisplayName    string
	ProfilePicture string
}

// ProfileParser turns a platform's profile endpoint response into a Profile.
type ProfileParser interface {
	Parse(body []byte) (*Profile, error)
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode profile response: %w", err)
	}
	return nil
}

func checked(p *Profile) (*Profile, error) {
	if p.RemoteUserID == "" {
		return nil, ErrIncompleteProfile
	}
	return p, nil
}

type instagramProfile struct{}

func (instagramProfile) Parse(body []byte) (*Profile, error) {
	var data struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := decode(body, &data); err != nil {
		return nil, err
	}
	return checked(&Profile{RemoteUserID: data.ID, Username: data.Username})
}

type facebookProfile struct{}

func (facebookProfile) Parse(body []byte) (*Profile, error) {
	var data struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := decode(body, &data); err != nil {
		return nil, err
	}
	return checked(&Profile{
		RemoteUserID:   data.ID,
		Username:       data.Name,
		DisplayName:    data.Name,
		ProfilePicture: data.Picture.Data.URL,
	})
}

type twitterProfile struct{}

func (twitterProfile) Parse(body []byte) (*Profile, error) {
	var data struct {
		Data struct {
			ID              string `json:"id"`
			Username        string `json:"username"`
			Name            string `json:"name"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"data"`
	}
	if err := decode(body, &data); err != nil {
		return nil, err
	}
	return checked(&Profile{
		RemoteUserID:   data.Data.ID,
		Username:       data.Data.Username,
		DisplayName:    data.Data.Name,
		ProfilePicture: data.Data.ProfileImageURL,
	})
}

type linkedinProfile struct{}

type localizedName struct {
	Localized map[string]string `json:"localized"`
}

func (linkedinProfile) Parse(body []byte) (*Profile, error) {
	var data struct {
		ID        string        `json:"id"`
		FirstName localizedName `json:"firstName"`
		LastName  localizedName `json:"lastName"`
	}
	if err := decode(body, &data); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(data.FirstName.Localized["en_US"] + " " + data.LastName.Localized["en_US"])
	return checked(&Profile{
		RemoteUserID: data.ID,
		Username:     name,
		DisplayName:  name,
	})
}

type pinterestProfile struct{}

// Pinterest has no numeric id on user_account; the username is the identity.
func (pinterestProfile) Parse(body []byte) (*Profile, error) {
	var data struct {
		Username     string `json:"username"`
		ProfileImage string `json:"profile_image"`
	}
	if err := decode(body, &data); err != nil {
		return nil, err
	}
	return checked(&Profile{
		RemoteUserID:   data.Username,
		Username:       data.Username,
		DisplayName:    data.Username,
		ProfilePicture: data.ProfileImage,
	})
}
