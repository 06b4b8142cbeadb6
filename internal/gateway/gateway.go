// Package gateway is the public entry point in front of the auth service:
// CORS, request logging, a per-client sliding-window limit and a reverse proxy.
package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/estore-auth/internal/config"
	jwtinfra "github.com/estore-auth/internal/infrastructure/jwt"
	"github.com/estore-auth/internal/pkg/clientip"
	"github.com/estore-auth/internal/pkg/ratelimit"
	appmiddleware "github.com/estore-auth/internal/transport/http/middleware"
	"github.com/estore-auth/internal/transport/http/respond"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

const (
	msgTooManyRequests = "Too many requests, please try again later!"
	msgBadGateway      = "Service is temporarily unavailable, please try again later!"
)

type tokenVerifier interface {
	VerifyAccess(tokenStr string) (*jwtinfra.Claims, error)
}

// ErrorBody is the gateway's own error payload.
type ErrorBody struct {
	Error string `json:"error"`
}

// Deps groups the gateway collaborators.
type Deps struct {
	Limiter ratelimit.Limiter
	Tokens  tokenVerifier
	Log     logrus.FieldLogger
}

type gateway struct {
	limiter   ratelimit.Limiter
	tokens    tokenVerifier
	log       logrus.FieldLogger
	window    time.Duration
	anonLimit int
	userLimit int
	ips       clientip.Resolver
	now       func() time.Time
}

// NewHandler builds the gateway router for cfg.Gateway, proxying to the auth
// service.
func NewHandler(cfg *config.Config, deps Deps) (http.Handler, error) {
	upstream, err := url.Parse(cfg.Gateway.AuthServiceURL)
	if err != nil {
		return nil, fmt.Errorf("parse auth service url: %w", err)
	}
	if upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("auth service url %q must be absolute", cfg.Gateway.AuthServiceURL)
	}

	g := &gateway{
		limiter:   deps.Limiter,
		tokens:    deps.Tokens,
		log:       deps.Log,
		window:    cfg.Gateway.Window,
		anonLimit: cfg.Gateway.AnonymousLimit,
		userLimit: cfg.Gateway.UserLimit,
		ips:       clientip.Resolver{TrustedHops: cfg.Gateway.TrustedProxyHops},
		now:       time.Now,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLogger(deps.Log, g.ips))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(g.rateLimit)

	r.Get("/gateway-health", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"message": "Welcome to api-gateway!"})
	})
	r.Handle("/*", g.proxy(upstream))

	return r, nil
}

// limitFor returns the per-window quota: callers with a valid access token
// get the authenticated quota.
func (g *gateway) limitFor(r *http.Request) int {
	tok := appmiddleware.AccessToken(r)
	if tok == "" || g.tokens == nil {
		return g.anonLimit
	}
	if _, err := g.tokens.VerifyAccess(tok); err != nil {
		return g.anonLimit
	}
	return g.userLimit
}

func (g *gateway) proxy(upstream *url.URL) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.Out.Header["X-Forwarded-For"] = pr.In.Header["X-Forwarded-For"]
			pr.SetXForwarded()
		},
		ModifyResponse: func(resp *http.Response) error {
			// CORS is answered here; upstream copies would duplicate it.
			for name := range resp.Header {
				if strings.HasPrefix(name, "Access-Control-") {
					resp.Header.Del(name)
				}
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			g.log.WithError(err).WithFields(logrus.Fields{
				"method":   r.Method,
				"url":      r.URL.String(),
				"upstream": upstream.String(),
			}).Error("proxy request failed")
			respond.JSON(w, http.StatusBadGateway, ErrorBody{Error: msgBadGateway})
		},
	}
}
