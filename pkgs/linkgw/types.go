package linkgw

import "github.com/lijianying10/lnlgateway/pkgs/linkstore"

// DiscordConnected is posted to the dashboard after a Discord link. The id,
// username, discriminator and global_name fields predate discord_user_id and
// discord_tag and are still read by older dashboard builds.
type DiscordConnected struct {
	Type          string `json:"type"`
	DiscordUserID string `json:"discord_user_id"`
	DiscordTag    string `json:"discord_tag"`
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	GlobalName    string `json:"global_name"`
	Wallet        string `json:"wallet"`
	LinkToken     string `json:"link_token,omitempty"`
}

type XConnected struct {
	Type            string `json:"type"`
	ID              string `json:"id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url"`
	Wallet          string `json:"wallet"`
	LinkToken       string `json:"link_token,omitempty"`
}

type ConnectError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type VerifyRequest struct {
	Token string `json:"token"`
}

type LinksResponse struct {
	Wallet string           `json:"wallet"`
	Links  []linkstore.Link `json:"links"`
}
