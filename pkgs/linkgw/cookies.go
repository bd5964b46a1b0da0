package linkgw

import (
	"net/http"
	"net/url"
)

func (rt *Runtime) setFlowCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   rt.cfg.FlowTTLSeconds,
		HttpOnly: true,
		Secure:   !rt.cfg.CookieInsecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearFlowCookie expires the cookie (Max-Age=0).
func (rt *Runtime) clearFlowCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !rt.cfg.CookieInsecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// readCookie returns the unescaped cookie value, or "" when absent.
func readCookie(r *http.Request, name string) string {
	if name == "" {
		return ""
	}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return c.Value
	}
	return v
}
