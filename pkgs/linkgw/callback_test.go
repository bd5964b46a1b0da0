package linkgw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/lijianying10/lnlgateway/pkgs/linkstore"
	"github.com/lijianying10/lnlgateway/pkgs/linkstore/mocks"
)

const testState = "c3RhdGUtc3RhdGUtc3RhdGUtc3RhdGUt"

func callbackRequest(path string, query url.Values, cookies map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path+"?"+query.Encode(), nil)
	for name, value := range cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: url.QueryEscape(value)})
	}
	return req
}

func discordCookies() map[string]string {
	return map[string]string{
		DiscordStateCookie:  testState,
		DiscordWalletCookie: testWallet,
	}
}

func xCookies() map[string]string {
	return map[string]string{
		XStateCookie:    testState,
		XVerifierCookie: "verifier-verifier-verifier-verifier-verifier-0123",
		XWalletCookie:   testEVMWallet,
	}
}

func okQuery() url.Values {
	return url.Values{"code": {"auth-code"}, "state": {testState}}
}

func assertCleared(t *testing.T, rec *httptest.ResponseRecorder, names ...string) {
	t.Helper()
	cookies := cookieMap(rec)
	for _, name := range names {
		c, ok := cookies[name]
		if assert.True(t, ok, "cookie %s not cleared", name) {
			assert.Less(t, c.MaxAge, 0, name)
			assert.Empty(t, c.Value, name)
		}
	}
}

func assertPopup(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "window.opener.postMessage(payload, targetOrigin)")
	assert.Contains(t, rec.Body.String(), "window.close(); }, 350)")
}

func TestDiscordCallbackSuccess(t *testing.T) {
	fp := newFakeProviders(t)
	store := linkstore.NewMemory()
	h := newTestRuntime(t, testConfig(fp), WithStore(store))

	rec := do(h, callbackRequest(RouterDiscordCallback, okQuery(), discordCookies()))
	require.Equal(t, http.StatusOK, rec.Code)
	assertPopup(t, rec)
	assertCleared(t, rec, DiscordStateCookie, DiscordWalletCookie)

	body := rec.Body.String()
	assert.Contains(t, body, "<title>Connected</title>")
	assert.Contains(t, body, "Discord Connected ✅")
	assert.Contains(t, body, "Connected as Nelly")
	assert.Contains(t, body, `"type":"discord_connected"`)
	assert.Contains(t, body, `"discord_user_id":"80351110224678912"`)
	assert.Contains(t, body, `"discord_tag":"Nelly"`)
	assert.Contains(t, body, `"discriminator":"1337"`)
	assert.Contains(t, body, `"wallet":"`+testWallet+`"`)
	assert.NotContains(t, body, "link_token")
	assert.Contains(t, body, "app.example.com")

	form, basic := fp.tokenRequest()
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "auth-code", form.Get("code"))
	assert.Equal(t, "discord-client", form.Get("client_id"))
	assert.Equal(t, "discord-secret", form.Get("client_secret"))
	assert.Equal(t, "https://gw.example.com/api/auth/discord/callback", form.Get("redirect_uri"))
	assert.Empty(t, basic[0])

	link, err := store.Get(context.Background(), testWallet, "discord")
	require.NoError(t, err)
	assert.Equal(t, "80351110224678912", link.ProviderUserID)
	assert.Equal(t, "nelly", link.Username)
	assert.Equal(t, "Nelly", link.DisplayName)
}

func TestXCallbackSuccess(t *testing.T) {
	fp := newFakeProviders(t)
	cfg := testConfig(fp)
	cfg.LinkTokenSecret = "link-secret"
	store := linkstore.NewMemory()
	h := newTestRuntime(t, cfg, WithStore(store))

	rec := do(h, callbackRequest(RouterXCallback, okQuery(), xCookies()))
	require.Equal(t, http.StatusOK, rec.Code)
	assertPopup(t, rec)
	assertCleared(t, rec, XStateCookie, XVerifierCookie, XWalletCookie)

	body := rec.Body.String()
	assert.Contains(t, body, "X Connected ✅")
	assert.Contains(t, body, "Connected as @TwitterDev")
	assert.Contains(t, body, `"type":"x_connected"`)
	assert.Contains(t, body, `"id":"2244994945"`)
	assert.Contains(t, body, `"name":"Twitter Dev"`)
	assert.Contains(t, body, `"wallet":"`+testEVMWallet+`"`)
	assert.Contains(t, body, `"link_token":"ey`)

	form, basic := fp.tokenRequest()
	assert.Equal(t, "verifier-verifier-verifier-verifier-verifier-0123", form.Get("code_verifier"))
	assert.Empty(t, form.Get("client_secret"))
	assert.Equal(t, [2]string{"x-client", "x-secret"}, basic)

	link, err := store.Get(context.Background(), testEVMWallet, "x")
	require.NoError(t, err)
	assert.Equal(t, "2244994945", link.ProviderUserID)
}

func TestCallbackErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		query    url.Values
		cookies  map[string]string
		drop     string
		setup    func(fp *fakeProviders)
		message  string
		wantCode int
	}{
		{
			name:     "discord provider error",
			path:     RouterDiscordCallback,
			query:    url.Values{"error": {"access_denied"}, "error_description": {"The user denied"}},
			cookies:  discordCookies(),
			message:  "access_denied: The user denied",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "discord missing code",
			path:     RouterDiscordCallback,
			query:    url.Values{"state": {testState}},
			cookies:  discordCookies(),
			message:  "Missing code/state from Discord.",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "discord state mismatch",
			path:     RouterDiscordCallback,
			query:    url.Values{"code": {"auth-code"}, "state": {"other"}},
			cookies:  discordCookies(),
			message:  "State mismatch. Please try again.",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "discord missing state cookie",
			path:     RouterDiscordCallback,
			query:    okQuery(),
			cookies:  discordCookies(),
			drop:     DiscordStateCookie,
			message:  "State mismatch. Please try again.",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "discord missing wallet cookie",
			path:     RouterDiscordCallback,
			query:    okQuery(),
			cookies:  discordCookies(),
			drop:     DiscordWalletCookie,
			message:  "Missing wallet cookie. Please try again.",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "discord token exchange",
			path:     RouterDiscordCallback,
			query:    okQuery(),
			cookies:  discordCookies(),
			setup:    func(fp *fakeProviders) { fp.tokenFail = true },
			message:  "Token exchange failed. Check your Discord app settings",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "discord profile",
			path:     RouterDiscordCallback,
			query:    okQuery(),
			cookies:  discordCookies(),
			setup:    func(fp *fakeProviders) { fp.profileErr = true },
			message:  "Could not fetch Discord profile.",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "x provider error without description",
			path:     RouterXCallback,
			query:    url.Values{"error": {"access_denied"}},
			cookies:  xCookies(),
			message:  "access_denied: ",
			wantCode: http.StatusOK,
		},
		{
			name:     "x missing state",
			path:     RouterXCallback,
			query:    url.Values{"code": {"auth-code"}},
			cookies:  xCookies(),
			message:  "Missing code/state from X.",
			wantCode: http.StatusOK,
		},
		{
			name:     "x state mismatch",
			path:     RouterXCallback,
			query:    url.Values{"code": {"auth-code"}, "state": {"other"}},
			cookies:  xCookies(),
			message:  "State mismatch. Please try again.",
			wantCode: http.StatusOK,
		},
		{
			name:     "x missing verifier",
			path:     RouterXCallback,
			query:    okQuery(),
			cookies:  xCookies(),
			drop:     XVerifierCookie,
			message:  "Missing PKCE verifier cookie. Please try again.",
			wantCode: http.StatusOK,
		},
		{
			name:     "x missing wallet",
			path:     RouterXCallback,
			query:    okQuery(),
			cookies:  xCookies(),
			drop:     XWalletCookie,
			message:  "Missing wallet cookie. Please try again.",
			wantCode: http.StatusOK,
		},
		{
			name:     "x token exchange",
			path:     RouterXCallback,
			query:    okQuery(),
			cookies:  xCookies(),
			setup:    func(fp *fakeProviders) { fp.tokenFail = true },
			message:  "Token exchange failed. Check your X app settings",
			wantCode: http.StatusOK,
		},
		{
			name:     "x profile",
			path:     RouterXCallback,
			query:    okQuery(),
			cookies:  xCookies(),
			setup:    func(fp *fakeProviders) { fp.profileErr = true },
			message:  "Could not fetch X profile.",
			wantCode: http.StatusOK,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fp := newFakeProviders(t)
			if tc.setup != nil {
				tc.setup(fp)
			}
			h := newTestRuntime(t, testConfig(fp))
			delete(tc.cookies, tc.drop)

			rec := do(h, callbackRequest(tc.path, tc.query, tc.cookies))
			assert.Equal(t, tc.wantCode, rec.Code)
			assertPopup(t, rec)
			body := rec.Body.String()
			assert.Contains(t, body, "<title>Error</title>")
			assert.Contains(t, body, "Connect Failed ❌")
			assert.Contains(t, body, tc.message)
			assert.Contains(t, body, `_error","message":"`)
			if tc.path == RouterDiscordCallback {
				assertCleared(t, rec, DiscordStateCookie, DiscordWalletCookie)
			} else {
				assertCleared(t, rec, XStateCookie, XVerifierCookie, XWalletCookie)
			}
			assert.NotContains(t, body, "invalid_grant", "provider responses stay in the logs")
		})
	}
}

func TestCallbackStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().
		Upsert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, link linkstore.Link) (linkstore.Link, error) {
			assert.Equal(t, testWallet, link.Wallet)
			assert.Equal(t, "discord", link.Provider)
			assert.Equal(t, "80351110224678912", link.ProviderUserID)
			return linkstore.Link{}, errors.New("database is locked")
		})

	fp := newFakeProviders(t)
	h := newTestRuntime(t, testConfig(fp), WithStore(store))
	rec := do(h, callbackRequest(RouterDiscordCallback, okQuery(), discordCookies()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not save linked account. Please try again.")
	assert.NotContains(t, rec.Body.String(), "database is locked")
}

func TestPopupEscapesProviderError(t *testing.T) {
	fp := newFakeProviders(t)
	h := newTestRuntime(t, testConfig(fp))
	query := url.Values{"error": {"</script><script>alert(1)</script>"}}
	rec := do(h, callbackRequest(RouterXCallback, query, xCookies()))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "<script>alert(1)")
	assert.Contains(t, body, "&lt;script&gt;alert(1)")
}

func TestPopupWithoutAppOriginFallsBack(t *testing.T) {
	rt, err := NewRuntime(testConfig(nil), nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	rt.renderPopup(rec, http.StatusOK, popupPage{OK: true, Provider: "X", Payload: map[string]string{"type": "x_connected"}})
	body := rec.Body.String()
	assert.Contains(t, body, `"" || window.location.origin`)
	assert.Contains(t, body, "You can close this window.")

	rec = httptest.NewRecorder()
	rt.renderPopup(rec, http.StatusBadRequest, popupPage{Provider: "Discord"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please try again.")
}
