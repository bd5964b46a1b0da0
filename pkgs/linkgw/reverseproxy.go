package linkgw

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"
)

// ProxyHandler forwards requests to the dashboard upstream mapped to the
// request host.
type ProxyHandler struct {
	proxy  map[string]*httputil.ReverseProxy
	logger *zap.SugaredLogger
}

func NewProxyHandler(hostMapping map[string]string, logger *zap.SugaredLogger) (*ProxyHandler, error) {
	hostProxy := map[string]*httputil.ReverseProxy{}
	for host, upstream := range hostMapping {
		u, err := url.Parse(upstream)
		if err != nil {
			return nil, fmt.Errorf("host %s: invalid upstream url: %w", host, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("host %s: upstream url %q must be absolute", host, upstream)
		}
		proxy := httputil.NewSingleHostReverseProxy(u)
		proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Warnw("upstream request failed", "host", r.Host, "upstream", u.Host, "error", err)
			w.WriteHeader(http.StatusBadGateway)
		}
		hostProxy[host] = proxy
	}
	return &ProxyHandler{
		proxy:  hostProxy,
		logger: logger,
	}, nil
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	host := r.Host
	if fn, ok := h.proxy[host]; ok {
		fn.ServeHTTP(w, r)
		return
	}
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(host + " not a valid host"))
}
