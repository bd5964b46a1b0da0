// Package oauthprovider talks to the third party OAuth 2.0 providers the
// dashboard links accounts with: building the authorization redirect,
// exchanging the returned code, and reading the authenticated profile.
package oauthprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// maxProfileSize caps profile response bodies.
const maxProfileSize = 1 << 20

var ErrMissingAccessToken = errors.New("token response has no access_token")

// Config describes one provider application.
type Config struct {
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	ProfileURL   string
	Scopes       []string
	// AuthStyle selects how client credentials reach the token endpoint.
	AuthStyle oauth2.AuthStyle
}

func (c Config) validate() error {
	switch {
	case c.Name == "":
		return errors.New("provider name is required")
	case c.AuthURL == "":
		return errors.New("authorization url is required")
	case c.TokenURL == "":
		return errors.New("token url is required")
	case c.ProfileURL == "":
		return errors.New("profile url is required")
	}
	return nil
}

// StatusError is returned when the profile endpoint answers with a non 2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("profile request failed with status %d", e.StatusCode)
}

type Provider struct {
	cfg        Config
	oauth      *oauth2.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.SugaredLogger
}

type Option func(*Provider)

func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// WithRateLimit bounds outbound calls to the provider. A non-positive rps
// disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(p *Provider) {
		if rps <= 0 {
			p.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

func New(cfg Config, opts ...Option) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid %q provider config: %w", cfg.Name, err)
	}
	p := &Provider{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: cfg.AuthStyle,
			},
		},
		httpClient: http.DefaultClient,
		logger:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string {
	return p.cfg.Name
}

// AuthorizationURL builds the URL the browser is redirected to. When
// verifier is set the S256 PKCE challenge is attached.
func (p *Provider) AuthorizationURL(state, verifier string) (string, error) {
	if state == "" {
		return "", errors.New("state parameter is required")
	}
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	p.logger.Debugw("building authorization URL",
		"provider", p.cfg.Name,
		"authorization_endpoint", p.cfg.AuthURL,
		"has_pkce", verifier != "",
	)
	return p.oauth.AuthCodeURL(state, opts...), nil
}

// ExchangeCode trades an authorization code for a token. Provider error
// responses surface as *oauth2.RetrieveError in the chain.
func (p *Provider) ExchangeCode(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	if code == "" {
		return nil, errors.New("authorization code is required")
	}
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	p.logger.Infow("exchanging authorization code",
		"provider", p.cfg.Name,
		"token_endpoint", p.cfg.TokenURL,
		"has_pkce_verifier", verifier != "",
	)
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.oauth.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s token exchange: %w", p.cfg.Name, err)
	}
	if tok.AccessToken == "" {
		return nil, ErrMissingAccessToken
	}
	return tok, nil
}

// FetchProfile GETs the profile endpoint with the bearer token and decodes
// the JSON body into out.
func (p *Provider) FetchProfile(ctx context.Context, tok *oauth2.Token, out any) error {
	if tok == nil || tok.AccessToken == "" {
		return ErrMissingAccessToken
	}
	if err := p.wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.ProfileURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s profile request failed: %w", p.cfg.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileSize))
	if err != nil {
		return fmt.Errorf("failed to read profile response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s profile: %w", p.cfg.Name, err)
	}
	return nil
}

func (p *Provider) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}
	return nil
}
