package linkgw

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/lijianying10/lnlgateway/pkgs/linkstore"
	"github.com/lijianying10/lnlgateway/pkgs/wallet"
)

// maxVerifyBody caps link verification request bodies.
const maxVerifyBody = 16 << 10

func (rt *Runtime) ping(w http.ResponseWriter, req *http.Request) {
	w.Write([]byte("pong"))
}

// linkVerify lets the dashboard backend confirm a link token it received
// from the popup before trusting the wallet to account mapping.
func (rt *Runtime) linkVerify(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxVerifyBody))
	defer req.Body.Close()
	if err != nil {
		http.Error(w, "error read body", http.StatusBadRequest)
		return
	}
	var verifyDat VerifyRequest
	if err := json.Unmarshal(body, &verifyDat); err != nil {
		http.Error(w, "error decode body", http.StatusBadRequest)
		return
	}
	claims, err := rt.tokens.Parse(verifyDat.Token)
	if err != nil {
		rt.logger.Debugw("rejected link token", "error", err)
		http.Error(w, "invalid link token", http.StatusUnauthorized)
		return
	}
	rt.writeJSON(w, http.StatusOK, claims)
}

func (rt *Runtime) listLinks(w http.ResponseWriter, req *http.Request) {
	addr, err := wallet.Parse(req.URL.Query().Get("wallet"))
	if err != nil {
		if errors.Is(err, wallet.ErrEmpty) {
			http.Error(w, "Missing wallet", http.StatusBadRequest)
			return
		}
		http.Error(w, "Invalid wallet", http.StatusBadRequest)
		return
	}
	links, err := rt.store.ListByWallet(req.Context(), addr.String())
	if err != nil {
		rt.logger.Errorw("failed to list links", "wallet", addr.String(), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	resp := LinksResponse{Wallet: addr.String(), Links: links}
	if resp.Links == nil {
		resp.Links = []linkstore.Link{}
	}
	rt.writeJSON(w, http.StatusOK, resp)
}

func (rt *Runtime) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rt.logger.Warnw("failed to write response", "error", err)
	}
}
