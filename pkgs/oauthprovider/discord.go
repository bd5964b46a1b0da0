package oauthprovider

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/oauth2"
)

const (
	DiscordAuthURL    = "https://discord.com/oauth2/authorize"
	DiscordTokenURL   = "https://discord.com/api/oauth2/token"
	DiscordProfileURL = "https://discord.com/api/users/@me"
)

// DiscordConfig returns the Discord application config. Discord expects the
// client secret in the token request body.
func DiscordConfig(clientID, clientSecret, redirectURI string) Config {
	return Config{
		Name:         "discord",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		AuthURL:      DiscordAuthURL,
		TokenURL:     DiscordTokenURL,
		ProfileURL:   DiscordProfileURL,
		Scopes:       []string{"identify"},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
}

type DiscordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	GlobalName    string `json:"global_name"`
}

// Tag is the name shown for the account: the display name when set, the
// legacy name#1234 form for accounts that still have a discriminator, and
// the bare username otherwise.
func (u DiscordUser) Tag() string {
	if name := strings.TrimSpace(u.GlobalName); name != "" {
		return name
	}
	if u.Username != "" && u.Discriminator != "" && u.Discriminator != "0" {
		return u.Username + "#" + u.Discriminator
	}
	return u.Username
}

func FetchDiscordUser(ctx context.Context, p *Provider, tok *oauth2.Token) (DiscordUser, error) {
	var u DiscordUser
	if err := p.FetchProfile(ctx, tok, &u); err != nil {
		return DiscordUser{}, err
	}
	if u.ID == "" {
		return DiscordUser{}, errors.New("discord profile has no id")
	}
	return u, nil
}
