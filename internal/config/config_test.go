package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", strings.Repeat("a", 32))
	t.Setenv("REFRESH_TOKEN_SECRET", strings.Repeat("r", 32))
}

func TestLoad_Defaults(t *testing.T) {
	setSecrets(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "6001", cfg.Server.Port)
	assert.Equal(t, "8080", cfg.Gateway.Port)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, time.Minute, cfg.OTP.Cooldown)
	assert.Equal(t, 2, cfg.OTP.MaxRequests)
	assert.Equal(t, time.Hour, cfg.OTP.SpamLock)
	assert.Equal(t, 30*time.Minute, cfg.OTP.AccountLock)
	assert.Equal(t, 15*time.Minute, cfg.Gateway.Window)
	assert.Equal(t, 100, cfg.Gateway.AnonymousLimit)
	assert.Equal(t, 1000, cfg.Gateway.UserLimit)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 1, cfg.Server.TrustedProxyHops)
	assert.Equal(t, 0, cfg.Gateway.TrustedProxyHops)
	assert.True(t, cfg.Cookie.Secure)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	setSecrets(t)
	t.Setenv("USER_STORE", "sqlite")
	t.Setenv("OTP_COOLDOWN", "30s")
	t.Setenv("ALLOWED_ORIGINS", "https://shop.example,https://admin.example")
	t.Setenv("SMTP_USER", "mailer@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.UserStore)
	assert.Equal(t, 30*time.Second, cfg.OTP.Cooldown)
	assert.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "mailer@example.com", cfg.SMTP.From)
}

func TestLoad_MissingSecrets(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorContains(t, err, "ACCESS_TOKEN_SECRET")
	assert.ErrorContains(t, err, "REFRESH_TOKEN_SECRET")
}

func TestLoad_SameSecrets(t *testing.T) {
	same := strings.Repeat("s", 32)
	t.Setenv("ACCESS_TOKEN_SECRET", same)
	t.Setenv("REFRESH_TOKEN_SECRET", same)

	_, err := Load()
	assert.ErrorContains(t, err, "must differ")
}

func TestLoad_UnknownStore(t *testing.T) {
	setSecrets(t)
	t.Setenv("USER_STORE", "postgres")

	_, err := Load()
	assert.ErrorContains(t, err, "USER_STORE")
}

func TestLoad_NegativeProxyHops(t *testing.T) {
	setSecrets(t)
	t.Setenv("GATEWAY_TRUSTED_PROXY_HOPS", "-1")

	_, err := Load()
	assert.ErrorContains(t, err, "trusted proxy hops")
}
