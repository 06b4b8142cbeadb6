package handler

import (
	"net/http"
	"time"

	"github.com/estore-auth/internal/application/session"
	"github.com/estore-auth/internal/domain"
	"github.com/estore-auth/internal/transport/http/middleware"
	"github.com/estore-auth/internal/transport/http/respond"
)

// SessionHandler handles login, token refresh and logout.
type SessionHandler struct {
	svc     session.Service
	cookies Cookies
	rs      *respond.Responder
}

func NewSessionHandler(svc session.Service, cookies Cookies, rs *respond.Responder) *SessionHandler {
	return &SessionHandler{svc: svc, cookies: cookies, rs: rs}
}

// setSession stores both tokens for the refresh token lifetime.
func (h *SessionHandler) setSession(w http.ResponseWriter, pair *domain.TokenPair) {
	maxAge := time.Until(pair.RefreshExpiresAt)
	h.cookies.setTokens(w, pair.AccessToken, maxAge, pair.RefreshToken, maxAge)
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	u, pair, err := h.svc.Login(r.Context(), req)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.setSession(w, pair)
	respond.OK(w, UserEnvelope{User: u.Public()})
}

func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var refresh string
	if c, err := r.Cookie(middleware.RefreshCookie); err == nil {
		refresh = c.Value
	}
	pair, err := h.svc.Refresh(r.Context(), refresh)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.setSession(w, pair)
	respond.OK(w, nil)
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(middleware.RefreshCookie); err == nil {
		h.svc.Logout(r.Context(), c.Value)
	}
	h.cookies.clear(w)
	respond.OK(w, nil)
}
