package http

import (
	"net/http"

	"github.com/estore-auth/internal/config"
	"github.com/estore-auth/internal/domain"
	"github.com/estore-auth/internal/pkg/clientip"
	"github.com/estore-auth/internal/transport/http/handler"
	appmiddleware "github.com/estore-auth/internal/transport/http/middleware"
	"github.com/estore-auth/internal/transport/http/respond"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Router is the auth service HTTP handler. Stop releases the rate limiter's
// background cleanup.
type Router struct {
	http.Handler
	sensitiveRL *appmiddleware.RateLimiter
}

func (rt *Router) Stop() { rt.sensitiveRL.Stop() }

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) *Router {
	rs := respond.New(deps.Log)
	ips := clientip.Resolver{TrustedHops: cfg.Server.TrustedProxyHops}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLogger(deps.Log, ips))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider, rs)
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.RateLimit.SensitiveRPS), cfg.RateLimit.SensitiveBurst, ips, rs)
	cookies := handler.NewCookies(cfg.Cookie)

	healthH := handler.NewHealthHandler()
	docsH := handler.NewDocsHandler()
	authH := handler.NewAuthHandler(deps.Auth, cookies, rs)
	sessionH := handler.NewSessionHandler(deps.Sessions, cookies, rs)
	pwH := handler.NewPasswordRecoveryHandler(deps.Auth, rs)

	r.Get("/", healthH.Root)
	r.Get("/health", healthH.Health)
	r.Get("/docs", docsH.UI)
	r.Get("/docs/openapi.json", docsH.Spec)

	r.Route("/auth", func(r chi.Router) {
		// ── Public routes ────────────────────────────────────────────────────
		r.Post("/refresh-token", sessionH.Refresh)
		r.Post("/logout", sessionH.Logout)

		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)

			r.Post("/register", authH.Register)
			r.Post("/login", sessionH.Login)
			r.Post("/forgot-password", pwH.ForgotPassword)
			r.Post("/forgot-password/verify-otp", pwH.VerifyOTP)
			r.Post("/reset-password", pwH.ResetPassword)
		})

		// ── Access token required ────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/verify", authH.Verify)
			r.Get("/resend-otp", authH.ResendOTP)
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		rs.Error(w, req, domain.NotFound("Resource not found"))
	})

	return &Router{Handler: r, sensitiveRL: sensitiveRL}
}
