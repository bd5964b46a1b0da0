package linkgw

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/lijianying10/lnlgateway/pkgs/linkstore"
	"github.com/lijianying10/lnlgateway/pkgs/oauthprovider"
	"github.com/lijianying10/lnlgateway/pkgs/wallet"
)

// identity is the provider account resolved at the end of a callback.
type identity struct {
	userID      string
	username    string
	displayName string
	message     string
	payload     func(wallet, linkToken string) any
}

// flow describes one provider login. Discord and X differ only in the
// values set here.
type flow struct {
	name           string
	title          string
	envPrefix      string
	cfg            *ProviderConfig
	provider       *oauthprovider.Provider
	stateCookie    string
	walletCookie   string
	verifierCookie string
	// errorStatus is the status of callback error popups.
	errorStatus int
	fetch       func(ctx context.Context, p *oauthprovider.Provider, tok *oauth2.Token) (identity, error)
}

func (f *flow) usesPKCE() bool {
	return f.verifierCookie != ""
}

func (f *flow) cookies() []string {
	names := []string{f.stateCookie, f.walletCookie}
	if f.usesPKCE() {
		names = append(names, f.verifierCookie)
	}
	return names
}

func (rt *Runtime) discordFlow() *flow {
	return &flow{
		name:         "discord",
		title:        "Discord",
		envPrefix:    "DISCORD",
		cfg:          &rt.cfg.Discord,
		provider:     rt.discord,
		stateCookie:  DiscordStateCookie,
		walletCookie: DiscordWalletCookie,
		errorStatus:  http.StatusBadRequest,
		fetch: func(ctx context.Context, p *oauthprovider.Provider, tok *oauth2.Token) (identity, error) {
			u, err := oauthprovider.FetchDiscordUser(ctx, p, tok)
			if err != nil {
				return identity{}, err
			}
			tag := u.Tag()
			return identity{
				userID:      u.ID,
				username:    u.Username,
				displayName: tag,
				message:     "Connected as " + tag,
				payload: func(wallet, linkToken string) any {
					return DiscordConnected{
						Type:          "discord_connected",
						DiscordUserID: u.ID,
						DiscordTag:    tag,
						ID:            u.ID,
						Username:      u.Username,
						Discriminator: u.Discriminator,
						GlobalName:    u.GlobalName,
						Wallet:        wallet,
						LinkToken:     linkToken,
					}
				},
			}, nil
		},
	}
}

func (rt *Runtime) xFlow() *flow {
	return &flow{
		name:           "x",
		title:          "X",
		envPrefix:      "X",
		cfg:            &rt.cfg.X,
		provider:       rt.x,
		stateCookie:    XStateCookie,
		walletCookie:   XWalletCookie,
		verifierCookie: XVerifierCookie,
		errorStatus:    http.StatusOK,
		fetch: func(ctx context.Context, p *oauthprovider.Provider, tok *oauth2.Token) (identity, error) {
			u, err := oauthprovider.FetchXUser(ctx, p, tok)
			if err != nil {
				return identity{}, err
			}
			return identity{
				userID:      u.ID,
				username:    u.Username,
				displayName: u.Name,
				message:     "Connected as @" + u.Username,
				payload: func(wallet, linkToken string) any {
					return XConnected{
						Type:            "x_connected",
						ID:              u.ID,
						Username:        u.Username,
						Name:            u.Name,
						ProfileImageURL: u.ProfileImageURL,
						Wallet:          wallet,
						LinkToken:       linkToken,
					}
				},
			}, nil
		},
	}
}

func (rt *Runtime) missingConfig(w http.ResponseWriter, f *flow, needSecret bool) bool {
	names := rt.cfg.missing(f.envPrefix, *f.cfg, needSecret)
	if len(names) == 0 {
		return false
	}
	rt.logger.Errorw("provider flow is not configured", "provider", f.name, "missing", names)
	http.Error(w, "Missing env vars: "+strings.Join(names, ", "), http.StatusInternalServerError)
	return true
}

func (rt *Runtime) handleStart(f *flow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rt.missingConfig(w, f, false) {
			return
		}
		addr, err := wallet.Parse(r.URL.Query().Get("wallet"))
		if err != nil {
			if errors.Is(err, wallet.ErrEmpty) {
				http.Error(w, "Missing wallet", http.StatusBadRequest)
				return
			}
			http.Error(w, "Invalid wallet", http.StatusBadRequest)
			return
		}

		state, err := oauthprovider.NewState()
		if err != nil {
			rt.logger.Errorw("failed to generate state", "provider", f.name, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		var verifier string
		if f.usesPKCE() {
			verifier = oauthprovider.NewVerifier()
		}
		redirect, err := f.provider.AuthorizationURL(state, verifier)
		if err != nil {
			rt.logger.Errorw("failed to build authorization url", "provider", f.name, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		rt.setFlowCookie(w, f.stateCookie, state)
		rt.setFlowCookie(w, f.walletCookie, addr.String())
		if f.usesPKCE() {
			rt.setFlowCookie(w, f.verifierCookie, verifier)
		}
		rt.logger.Debugw("starting provider login", "provider", f.name, "wallet", addr.String(), "wallet_kind", addr.Kind)
		http.Redirect(w, r, redirect, http.StatusFound)
	}
}

func (rt *Runtime) handleCallback(f *flow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rt.missingConfig(w, f, true) {
			return
		}
		q := r.URL.Query()
		expectedState := readCookie(r, f.stateCookie)
		verifier := readCookie(r, f.verifierCookie)
		walletAddr := readCookie(r, f.walletCookie)
		for _, name := range f.cookies() {
			rt.clearFlowCookie(w, name)
		}

		fail := func(message string) {
			rt.renderPopup(w, f.errorStatus, popupPage{
				Provider:     f.title,
				Message:      message,
				Payload:      ConnectError{Type: f.name + "_error", Message: message},
				TargetOrigin: rt.cfg.AppOrigin,
			})
		}

		if e := q.Get("error"); e != "" {
			rt.logger.Infow("provider returned an error", "provider", f.name, "error", e)
			fail(e + ": " + q.Get("error_description"))
			return
		}
		code, state := q.Get("code"), q.Get("state")
		if code == "" || state == "" {
			fail("Missing code/state from " + f.title + ".")
			return
		}
		if expectedState == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expectedState)) != 1 {
			fail("State mismatch. Please try again.")
			return
		}
		if f.usesPKCE() && verifier == "" {
			fail("Missing PKCE verifier cookie. Please try again.")
			return
		}
		if walletAddr == "" {
			fail("Missing wallet cookie. Please try again.")
			return
		}

		ctx := r.Context()
		tok, err := f.provider.ExchangeCode(ctx, code, verifier)
		if err != nil {
			var rerr *oauth2.RetrieveError
			if errors.As(err, &rerr) && rerr.Response != nil {
				rt.logger.Errorw("token exchange failed",
					"provider", f.name,
					"status", rerr.Response.StatusCode,
					"body", string(rerr.Body),
				)
			} else {
				rt.logger.Errorw("token exchange failed", "provider", f.name, "error", err)
			}
			fail("Token exchange failed. Check your " + f.title + " app settings + redirect URI.")
			return
		}

		id, err := f.fetch(ctx, f.provider, tok)
		if err != nil {
			var serr *oauthprovider.StatusError
			if errors.As(err, &serr) {
				rt.logger.Errorw("profile request failed", "provider", f.name, "status", serr.StatusCode, "body", serr.Body)
			} else {
				rt.logger.Errorw("profile request failed", "provider", f.name, "error", err)
			}
			fail("Could not fetch " + f.title + " profile.")
			return
		}

		if rt.store != nil {
			_, err := rt.store.Upsert(ctx, linkstore.Link{
				Wallet:         walletAddr,
				Provider:       f.name,
				ProviderUserID: id.userID,
				Username:       id.username,
				DisplayName:    id.displayName,
			})
			if err != nil {
				rt.logger.Errorw("failed to save link", "provider", f.name, "wallet", walletAddr, "error", err)
				fail("Could not save linked account. Please try again.")
				return
			}
		}

		var linkToken string
		if rt.tokens != nil {
			linkToken, err = rt.tokens.Issue(walletAddr, f.name, id.userID, id.username)
			if err != nil {
				rt.logger.Errorw("failed to issue link token", "provider", f.name, "error", err)
				fail("Unexpected error during " + f.title + " callback.")
				return
			}
		}

		rt.logger.Infow("linked provider account",
			"provider", f.name,
			"wallet", walletAddr,
			"provider_user_id", id.userID,
		)
		rt.renderPopup(w, http.StatusOK, popupPage{
			OK:           true,
			Provider:     f.title,
			Message:      id.message,
			Payload:      id.payload(walletAddr, linkToken),
			TargetOrigin: rt.cfg.AppOrigin,
		})
	}
}
