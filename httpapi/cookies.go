package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/sessionauth"
)

// setAuthCookies writes both token cookies under the configured policy and
// the headers every token-bearing response needs.
func (h *Handler) setAuthCookies(w http.ResponseWriter, pair sessionauth.TokenPair) {
	http.SetCookie(w, h.cookie(h.cookies.AccessName, pair.AccessToken, h.accessTTL))
	http.SetCookie(w, h.cookie(h.cookies.RefreshName, pair.RefreshToken, h.refreshTTL))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// clearAuthCookies expires both cookies. Attributes must match the ones used
// when setting them or browsers keep the originals.
func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{h.cookies.AccessName, h.cookies.RefreshName} {
		c := h.cookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func (h *Handler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.cookies.Path,
		Domain:   h.cookies.Domain,
		MaxAge:   int(ttl.Seconds()),
		Secure:   h.cookies.Secure,
		HttpOnly: h.cookies.HTTPOnly,
		SameSite: h.cookies.SameSite,
	}
}
