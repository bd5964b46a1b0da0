package linkgw

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/lijianying10/lnlgateway/pkgs/linkstore"
	"github.com/lijianying10/lnlgateway/pkgs/oauthprovider"
)

type Config struct {
	ListenAddr      string `json:"listen_addr" env:"LNL_LISTEN_ADDR"`
	AppOrigin       string `json:"app_origin" env:"APP_ORIGIN"`
	Debug           bool   `json:"debug" env:"LNL_DEBUG"`
	CookieInsecure  bool   `json:"cookie_insecure" env:"LNL_COOKIE_INSECURE"`
	FlowTTLSeconds  int    `json:"flow_ttl_seconds" env:"LNL_FLOW_TTL_SECONDS"`
	LinkTokenSecret string `json:"link_token_secret" env:"LNL_LINK_TOKEN_SECRET"`
	// LinkTokenTTLSeconds bounds how long the dashboard may present a link token.
	LinkTokenTTLSeconds int `json:"link_token_ttl_seconds" env:"LNL_LINK_TOKEN_TTL_SECONDS"`
	// ProviderRateLimit is the outbound requests per second per provider, negative disables.
	ProviderRateLimit float64 `json:"provider_rate_limit" env:"LNL_PROVIDER_RATE_LIMIT"`
	ProviderBurst     int     `json:"provider_burst" env:"LNL_PROVIDER_BURST"`

	// HostMapping proxies requests for a host to the dashboard upstream serving it.
	HostMapping map[string]string `json:"host_mapping"`

	Discord ProviderConfig   `json:"discord" envPrefix:"DISCORD_"`
	X       ProviderConfig   `json:"x" envPrefix:"X_"`
	Store   linkstore.Config `json:"store" envPrefix:"LNL_STORE_"`
}

type ProviderConfig struct {
	ClientID     string `json:"client_id" env:"CLIENT_ID"`
	ClientSecret string `json:"client_secret" env:"CLIENT_SECRET"`
	RedirectURI  string `json:"redirect_uri" env:"REDIRECT_URI"`
	AuthURL      string `json:"auth_url" env:"AUTH_URL"`
	TokenURL     string `json:"token_url" env:"TOKEN_URL"`
	ProfileURL   string `json:"profile_url" env:"PROFILE_URL"`
}

// NewConfig reads the JSON config at path, when path is set, then applies
// environment overrides and defaults.
func NewConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(body, &cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}
	if c.FlowTTLSeconds <= 0 {
		c.FlowTTLSeconds = defaultFlowTTLSeconds
	}
	if c.LinkTokenTTLSeconds <= 0 {
		c.LinkTokenTTLSeconds = defaultLinkTokenTTLSeconds
	}
	if c.ProviderRateLimit == 0 {
		c.ProviderRateLimit = defaultProviderRateLimit
	}
	if c.ProviderBurst <= 0 {
		c.ProviderBurst = defaultProviderBurst
	}
	if c.Store.Driver == "" {
		c.Store.Driver = linkstore.DriverNone
	}
	c.Discord.fill(oauthprovider.DiscordAuthURL, oauthprovider.DiscordTokenURL, oauthprovider.DiscordProfileURL)
	c.X.fill(oauthprovider.XAuthURL, oauthprovider.XTokenURL, oauthprovider.XProfileURL)
}

func (p *ProviderConfig) fill(authURL, tokenURL, profileURL string) {
	if p.AuthURL == "" {
		p.AuthURL = authURL
	}
	if p.TokenURL == "" {
		p.TokenURL = tokenURL
	}
	if p.ProfileURL == "" {
		p.ProfileURL = profileURL
	}
}

func (c *Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("invalid store config: %w", err)
	}
	for host, upstream := range c.HostMapping {
		u, err := url.Parse(upstream)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("host %s: invalid upstream url %q", host, upstream)
		}
	}
	if c.AppOrigin != "" {
		u, err := url.Parse(c.AppOrigin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("APP_ORIGIN must be an absolute origin such as https://example.com")
		}
	}
	return nil
}

func (c *Config) FlowTTL() time.Duration {
	return time.Duration(c.FlowTTLSeconds) * time.Second
}

func (c *Config) LinkTokenTTL() time.Duration {
	return time.Duration(c.LinkTokenTTLSeconds) * time.Second
}

// missing lists the unset settings a provider flow needs, by env name.
func (c *Config) missing(envPrefix string, p ProviderConfig, needSecret bool) []string {
	var names []string
	if c.AppOrigin == "" {
		names = append(names, "APP_ORIGIN")
	}
	if p.ClientID == "" {
		names = append(names, envPrefix+"_CLIENT_ID")
	}
	if needSecret && p.ClientSecret == "" {
		names = append(names, envPrefix+"_CLIENT_SECRET")
	}
	if p.RedirectURI == "" {
		names = append(names, envPrefix+"_REDIRECT_URI")
	}
	return names
}
