package handler

import (
	"net/http"
	"time"

	"github.com/estore-auth/internal/config"
	"github.com/estore-auth/internal/transport/http/middleware"
)

// Cookies writes the auth cookies. SameSite=None needs Secure, so insecure
// development setups fall back to Lax.
type Cookies struct {
	secure bool
	domain string
}

func NewCookies(cfg config.CookieConfig) Cookies {
	return Cookies{secure: cfg.Secure, domain: cfg.Domain}
}

func (c Cookies) set(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	sameSite := http.SameSiteNoneMode
	if !c.secure {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.domain,
		MaxAge:   int(maxAge / time.Second),
		Expires:  time.Now().Add(maxAge),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: sameSite,
	})
}

func (c Cookies) setTokens(w http.ResponseWriter, access string, accessMaxAge time.Duration, refresh string, refreshMaxAge time.Duration) {
	c.set(w, middleware.AccessCookie, access, accessMaxAge)
	c.set(w, middleware.RefreshCookie, refresh, refreshMaxAge)
}

func (c Cookies) clear(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessCookie, middleware.RefreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   c.domain,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   c.secure,
		})
	}
}
