package oauthprovider

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

const (
	XAuthURL    = "https://twitter.com/i/oauth2/authorize"
	XTokenURL   = "https://api.twitter.com/2/oauth2/token"
	XProfileURL = "https://api.twitter.com/2/users/me?user.fields=profile_image_url,name,username"
)

// XConfig returns the X application config. X confidential clients
// authenticate to the token endpoint with HTTP Basic.
func XConfig(clientID, clientSecret, redirectURI string) Config {
	return Config{
		Name:         "x",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		AuthURL:      XAuthURL,
		TokenURL:     XTokenURL,
		ProfileURL:   XProfileURL,
		Scopes:       []string{"users.read", "tweet.read", "offline.access"},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
}

type XUser struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url"`
}

func FetchXUser(ctx context.Context, p *Provider, tok *oauth2.Token) (XUser, error) {
	var resp struct {
		Data *XUser `json:"data"`
	}
	if err := p.FetchProfile(ctx, tok, &resp); err != nil {
		return XUser{}, err
	}
	if resp.Data == nil || resp.Data.ID == "" {
		return XUser{}, errors.New("x profile response has no data")
	}
	return *resp.Data, nil
}
