package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/estore-auth/internal/config"
	"github.com/estore-auth/internal/domain"
	jwtinfra "github.com/estore-auth/internal/infrastructure/jwt"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, *domain.TokenPair, error) {
	args := m.Called(ctx, req)
	return nil, nil, args.Error(2)
}
func (m *mockAuthSvc) Verify(ctx context.Context, userID string, req domain.VerifyRequest) error {
	return m.Called(ctx, userID, req).Error(0)
}
func (m *mockAuthSvc) ResendOTP(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockAuthSvc) ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}
func (m *mockAuthSvc) VerifyForgotPasswordOTP(ctx context.Context, req domain.VerifyForgotPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}
func (m *mockAuthSvc) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}

type mockSessionSvc struct{ mock.Mock }

func (m *mockSessionSvc) Issue(ctx context.Context, u *domain.User) (*domain.TokenPair, error) {
	return nil, m.Called(ctx, u).Error(1)
}
func (m *mockSessionSvc) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, *domain.TokenPair, error) {
	return nil, nil, m.Called(ctx, req).Error(2)
}
func (m *mockSessionSvc) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	return nil, m.Called(ctx, refreshToken).Error(1)
}
func (m *mockSessionSvc) Logout(ctx context.Context, refreshToken string) {
	m.Called(ctx, refreshToken)
}

func newTestRouter(t *testing.T) (*Router, *mockAuthSvc, *mockSessionSvc, *jwtinfra.Provider) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		Server:    config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}, TrustedProxyHops: 1},
		Cookie:    config.CookieConfig{Secure: true},
		RateLimit: config.RateLimitConfig{SensitiveRPS: 5, SensitiveBurst: 10},
		JWT: config.JWTConfig{
			AccessSecret:  strings.Repeat("a", 32),
			RefreshSecret: strings.Repeat("r", 32),
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    time.Hour,
		},
	}
	p := jwtinfra.NewProvider(cfg.JWT)
	authSvc := &mockAuthSvc{}
	sessionSvc := &mockSessionSvc{}
	rt := NewRouter(cfg, &Deps{Auth: authSvc, Sessions: sessionSvc, JWTProvider: p, Log: log})
	t.Cleanup(rt.Stop)
	return rt, authSvc, sessionSvc, p
}

func TestRouter_Root(t *testing.T) {
	rt, _, _, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	rt.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Hello API"}`, rr.Body.String())
}

func TestRouter_UnknownRoute(t *testing.T) {
	rt, _, _, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	rt.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"status":"error","message":"Resource not found"}`, rr.Body.String())
}

func TestRouter_VerifyRequiresToken(t *testing.T) {
	rt, authSvc, _, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	rt.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/verify", strings.NewReader(`{"otp":"1234"}`)))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	authSvc.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_ResendWithCookie(t *testing.T) {
	rt, authSvc, _, p := newTestRouter(t)
	authSvc.On("ResendOTP", mock.Anything, "u1").Return(nil)
	access, _, err := p.SignAccess("u1", domain.RoleUser)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/resend-otp", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: access})
	rr := httptest.NewRecorder()
	rt.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	authSvc.AssertExpectations(t)
}

func TestRouter_SensitiveRoutesRateLimited(t *testing.T) {
	rt, _, sessionSvc, _ := newTestRouter(t)
	sessionSvc.On("Login", mock.Anything, mock.Anything).Return(nil, nil, domain.Unauthorized("Invalid Credentials"))

	var last int
	for i := 0; i < 11; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{}`))
		req.Header.Set("X-Forwarded-For", "198.51.100.4")
		rr := httptest.NewRecorder()
		rt.ServeHTTP(rr, req)
		last = rr.Code
		if i < 10 {
			assert.Equal(t, http.StatusUnauthorized, rr.Code, "request %d", i+1)
		}
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRouter_CORSPreflight(t *testing.T) {
	rt, _, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	rt.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}
