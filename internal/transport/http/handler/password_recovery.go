package handler

import (
	"net/http"

	"github.com/estore-auth/internal/application/auth"
	"github.com/estore-auth/internal/domain"
	"github.com/estore-auth/internal/transport/http/respond"
)

// PasswordRecoveryHandler handles the forgot/verify/reset password flow.
type PasswordRecoveryHandler struct {
	svc auth.Service
	rs  *respond.Responder
}

func NewPasswordRecoveryHandler(svc auth.Service, rs *respond.Responder) *PasswordRecoveryHandler {
	return &PasswordRecoveryHandler{svc: svc, rs: rs}
}

func (h *PasswordRecoveryHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	respond.OK(w, nil)
}

func (h *PasswordRecoveryHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	if err := h.svc.VerifyForgotPasswordOTP(r.Context(), req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	respond.OK(w, nil)
}

func (h *PasswordRecoveryHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	respond.OK(w, nil)
}
