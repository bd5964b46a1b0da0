// Package linkgw serves the dashboard's account linking endpoints: the
// Discord and X OAuth popups that tie a provider account to a wallet.
package linkgw

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lijianying10/lnlgateway/pkgs/linkstore"
	"github.com/lijianying10/lnlgateway/pkgs/oauthprovider"
)

const shutdownTimeout = 10 * time.Second

type Runtime struct {
	cfg     *Config
	logger  *zap.SugaredLogger
	discord *oauthprovider.Provider
	x       *oauthprovider.Provider
	store   linkstore.Store
	tokens  *LinkTokens
	proxy   *ProxyHandler

	httpClient *http.Client
}

type Option func(*Runtime)

// WithStore records every completed link. Without a store links are only
// relayed to the dashboard.
func WithStore(store linkstore.Store) Option {
	return func(rt *Runtime) {
		rt.store = store
	}
}

// WithHTTPClient sets the client used for provider calls.
func WithHTTPClient(client *http.Client) Option {
	return func(rt *Runtime) {
		rt.httpClient = client
	}
}

func NewRuntime(cfg *Config, logger *zap.SugaredLogger, opts ...Option) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	rt := &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(rt)
	}

	var err error
	discordCfg := oauthprovider.DiscordConfig(cfg.Discord.ClientID, cfg.Discord.ClientSecret, cfg.Discord.RedirectURI)
	rt.discord, err = rt.newProvider(discordCfg, cfg.Discord)
	if err != nil {
		return nil, err
	}
	xCfg := oauthprovider.XConfig(cfg.X.ClientID, cfg.X.ClientSecret, cfg.X.RedirectURI)
	rt.x, err = rt.newProvider(xCfg, cfg.X)
	if err != nil {
		return nil, err
	}

	if cfg.LinkTokenSecret != "" {
		rt.tokens = NewLinkTokens(cfg.LinkTokenSecret, cfg.AppOrigin, cfg.LinkTokenTTL())
	}
	if len(cfg.HostMapping) > 0 {
		rt.proxy, err = NewProxyHandler(cfg.HostMapping, logger)
		if err != nil {
			return nil, err
		}
	}
	return rt, nil
}

func (rt *Runtime) newProvider(base oauthprovider.Config, pc ProviderConfig) (*oauthprovider.Provider, error) {
	if pc.AuthURL != "" {
		base.AuthURL = pc.AuthURL
	}
	if pc.TokenURL != "" {
		base.TokenURL = pc.TokenURL
	}
	if pc.ProfileURL != "" {
		base.ProfileURL = pc.ProfileURL
	}
	p, err := oauthprovider.New(base,
		oauthprovider.WithHTTPClient(rt.httpClient),
		oauthprovider.WithRateLimit(rt.cfg.ProviderRateLimit, rt.cfg.ProviderBurst),
		oauthprovider.WithLogger(rt.logger.With("component", "oauthprovider")),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", base.Name, err)
	}
	return p, nil
}

// Handler returns the gateway router.
func (rt *Runtime) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(rt.logger))
	r.Use(middleware.Recoverer)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})

	discord, x := rt.discordFlow(), rt.xFlow()
	r.Get(RouterPing, rt.ping)
	r.Get(RouterDiscordStart, rt.handleStart(discord))
	r.Get(RouterDiscordCallback, rt.handleCallback(discord))
	r.Get(RouterXStart, rt.handleStart(x))
	r.Get(RouterXCallback, rt.handleCallback(x))
	if rt.store != nil {
		r.Get(RouterLinks, rt.listLinks)
	} else {
		r.Handle(RouterLinks, http.NotFoundHandler())
	}
	if rt.tokens != nil {
		r.Post(RouterLinkVerify, rt.linkVerify)
	} else {
		r.Handle(RouterLinkVerify, http.NotFoundHandler())
	}
	// Only unrouted paths reach the dashboard, so gateway routes keep their
	// 404 and 405 answers.
	if rt.proxy != nil {
		r.NotFound(rt.proxy.ServeHTTP)
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (rt *Runtime) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              rt.cfg.ListenAddr,
		Handler:           rt.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		rt.logger.Infow("gateway listening", "addr", rt.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", rt.cfg.ListenAddr, err)
	case <-ctx.Done():
	}

	rt.logger.Infow("shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
