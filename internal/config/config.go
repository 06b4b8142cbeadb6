package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration loaded from environment variables.
// Both binaries read the same struct; each uses the sections it needs.
type Config struct {
	AppEnv    string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// UserStore selects the user backend: "dynamo" or "sqlite".
	UserStore  string `env:"USER_STORE" envDefault:"dynamo"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"10"`

	Server    ServerConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	OTP       OTPConfig
	Redis     RedisConfig
	AWS       AWSConfig
	SQLite    SQLiteConfig
	SMTP      SMTPConfig
	RateLimit RateLimitConfig
	Gateway   GatewayConfig
}

type ServerConfig struct {
	Port           string        `env:"AUTH_PORT" envDefault:"6001"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	// TrustedProxyHops is the number of reverse proxies in front of the
	// service whose X-Forwarded-For entries are trusted. The gateway is one.
	TrustedProxyHops int `env:"TRUSTED_PROXY_HOPS" envDefault:"1"`
}

type JWTConfig struct {
	AccessSecret  string        `env:"ACCESS_TOKEN_SECRET"`
	RefreshSecret string        `env:"REFRESH_TOKEN_SECRET"`
	AccessTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
}

type CookieConfig struct {
	Secure bool   `env:"COOKIE_SECURE" envDefault:"true"`
	Domain string `env:"COOKIE_DOMAIN"`
}

// OTPConfig holds the OTP state machine timings and limits.
type OTPConfig struct {
	TTL              time.Duration `env:"OTP_TTL" envDefault:"5m"`
	Cooldown         time.Duration `env:"OTP_COOLDOWN" envDefault:"1m"`
	RequestWindow    time.Duration `env:"OTP_REQUEST_WINDOW" envDefault:"1h"`
	MaxRequests      int           `env:"OTP_MAX_REQUESTS" envDefault:"2"`
	SpamLock         time.Duration `env:"OTP_SPAM_LOCK" envDefault:"1h"`
	MaxAttempts      int           `env:"OTP_MAX_ATTEMPTS" envDefault:"3"`
	AccountLock      time.Duration `env:"OTP_ACCOUNT_LOCK" envDefault:"30m"`
	PasswordResetTTL time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"10m"`
}

type RedisConfig struct {
	// URL takes precedence over Addr/Password/DB when set.
	URL      string `env:"REDIS_URL"`
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type AWSConfig struct {
	Region      string `env:"AWS_REGION" envDefault:"us-east-1"`
	EndpointURL string `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
	UsersTable  string `env:"DYNAMO_TABLE_USERS" envDefault:"users"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH" envDefault:"./data/auth.db"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     string `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

// RateLimitConfig is the auth service's per-IP token bucket on sensitive routes.
type RateLimitConfig struct {
	SensitiveRPS   float64 `env:"SENSITIVE_RPS" envDefault:"5"`
	SensitiveBurst int     `env:"SENSITIVE_BURST" envDefault:"10"`
}

type GatewayConfig struct {
	Port           string        `env:"GATEWAY_PORT" envDefault:"8080"`
	AuthServiceURL string        `env:"AUTH_SERVICE_URL" envDefault:"http://localhost:6001"`
	Window         time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	AnonymousLimit int           `env:"RATE_LIMIT_ANONYMOUS" envDefault:"100"`
	UserLimit      int           `env:"RATE_LIMIT_AUTHENTICATED" envDefault:"1000"`
	// LimiterBackend is "redis" or "memory".
	LimiterBackend string `env:"RATE_LIMIT_BACKEND" envDefault:"redis"`
	// TrustedProxyHops is 0 when the gateway faces clients directly.
	TrustedProxyHops int `env:"GATEWAY_TRUSTED_PROXY_HOPS" envDefault:"0"`
}

const minSecretLen = 32

// Load reads all configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

func (c *Config) validate() error {
	var errs []error
	if len(c.JWT.AccessSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("ACCESS_TOKEN_SECRET must be at least %d bytes", minSecretLen))
	}
	if len(c.JWT.RefreshSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("REFRESH_TOKEN_SECRET must be at least %d bytes", minSecretLen))
	}
	if c.JWT.AccessSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	switch c.UserStore {
	case "dynamo", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("USER_STORE must be dynamo or sqlite, got %q", c.UserStore))
	}
	switch c.Gateway.LimiterBackend {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND must be redis or memory, got %q", c.Gateway.LimiterBackend))
	}
	if c.OTP.MaxRequests < 1 || c.OTP.MaxAttempts < 1 {
		errs = append(errs, errors.New("OTP_MAX_REQUESTS and OTP_MAX_ATTEMPTS must be positive"))
	}
	if c.Server.TrustedProxyHops < 0 || c.Gateway.TrustedProxyHops < 0 {
		errs = append(errs, errors.New("trusted proxy hops must not be negative"))
	}
	if c.Gateway.AnonymousLimit < 1 || c.Gateway.UserLimit < 1 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	return errors.Join(errs...)
}
