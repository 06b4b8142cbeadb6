package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/estore-auth/internal/domain"
	jwtinfra "github.com/estore-auth/internal/infrastructure/jwt"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"expired token", fmt.Errorf("%w: %w", jwtinfra.ErrInvalidToken, jwt.ErrTokenExpired), http.StatusUnauthorized, MsgSessionExpired},
		{"not yet valid", fmt.Errorf("%w: %w", jwtinfra.ErrInvalidToken, jwt.ErrTokenNotValidYet), http.StatusUnauthorized, MsgTokenNotActive},
		{"bad signature", fmt.Errorf("%w: %w", jwtinfra.ErrInvalidToken, jwt.ErrSignatureInvalid), http.StatusUnauthorized, MsgInvalidToken},
		{"domain conflict", domain.Conflict("taken"), http.StatusConflict, "taken"},
		{"wrapped domain", fmt.Errorf("register: %w", domain.RateLimit("slow down")), http.StatusTooManyRequests, "slow down"},
		{"plain error", errors.New("dynamo down"), http.StatusInternalServerError, MsgInternal},
		{"bare sentinel", domain.ErrNotFound, http.StatusInternalServerError, MsgInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := Classify(tt.err)
			assert.Equal(t, tt.status, de.Status())
			assert.Equal(t, tt.msg, de.Message)
		})
	}
}

func TestResponder_Error_WritesEnvelopeAndLogs(t *testing.T) {
	log, hook := test.NewNullLogger()
	rs := New(log)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", nil)
	rr := httptest.NewRecorder()
	rs.Error(rr, req, domain.Validation([]string{"email"}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Invalid Request", body["message"])
	assert.Equal(t, []any{"email"}, body["details"])

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "/auth/register", hook.LastEntry().Data["url"])
}

func TestResponder_Error_InternalHidesCause(t *testing.T) {
	log, hook := test.NewNullLogger()
	rs := New(log)

	rr := httptest.NewRecorder()
	rs.Error(rr, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	raw, _ := io.ReadAll(rr.Body)
	assert.NotContains(t, string(raw), "connection refused")
	assert.NotContains(t, string(raw), "details")
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestOK_OmitsNilData(t *testing.T) {
	rr := httptest.NewRecorder()
	OK(rr, nil)
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())

	rr = httptest.NewRecorder()
	OK(rr, map[string]string{"k": "v"})
	assert.JSONEq(t, `{"success":true,"data":{"k":"v"}}`, rr.Body.String())
}
