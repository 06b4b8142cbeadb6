package handler

import (
	"net/http"
	"time"

	"github.com/estore-auth/internal/application/auth"
	"github.com/estore-auth/internal/domain"
	"github.com/estore-auth/internal/transport/http/middleware"
	"github.com/estore-auth/internal/transport/http/respond"
)

// AuthHandler handles registration and email verification.
type AuthHandler struct {
	svc     auth.Service
	cookies Cookies
	rs      *respond.Responder
}

func NewAuthHandler(svc auth.Service, cookies Cookies, rs *respond.Responder) *AuthHandler {
	return &AuthHandler{svc: svc, cookies: cookies, rs: rs}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	_, pair, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.cookies.setTokens(w,
		pair.AccessToken, time.Until(pair.AccessExpiresAt),
		pair.RefreshToken, time.Until(pair.RefreshExpiresAt),
	)
	respond.OK(w, nil)
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.rs.Error(w, r, domain.Unauthorized(respond.MsgInvalidToken))
		return
	}
	var req domain.VerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	if err := h.svc.Verify(r.Context(), claims.UserID(), req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	respond.OK(w, nil)
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.rs.Error(w, r, domain.Unauthorized(respond.MsgInvalidToken))
		return
	}
	if err := h.svc.ResendOTP(r.Context(), claims.UserID()); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	respond.OK(w, nil)
}
