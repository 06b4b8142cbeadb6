package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/estore-auth/internal/application/auth"
	"github.com/estore-auth/internal/application/otp"
	"github.com/estore-auth/internal/application/session"
	"github.com/estore-auth/internal/config"
	"github.com/estore-auth/internal/domain"
	"github.com/estore-auth/internal/infrastructure/dynamo"
	jwtinfra "github.com/estore-auth/internal/infrastructure/jwt"
	redisinfra "github.com/estore-auth/internal/infrastructure/redis"
	"github.com/estore-auth/internal/infrastructure/smtp"
	"github.com/estore-auth/internal/infrastructure/sqlite"
	"github.com/estore-auth/internal/pkg/logging"
	transporthttp "github.com/estore-auth/internal/transport/http"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// userStore is what the auth and session services need from a user backend.
type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, upd domain.UserUpdate) error
}

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		log.Debug("no .env file found, reading from environment")
	}

	ctx := context.Background()

	users, closeUsers, err := openUserStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("user store unavailable")
	}
	defer closeUsers()

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.WithError(err).Fatal("redis unavailable")
	}
	defer redisClient.Close()
	kv := redisinfra.NewStore(redisClient)

	var sender smtp.Mailer
	if cfg.SMTP.Host == "" && !cfg.IsProduction() {
		log.Warn("SMTP_HOST not set, emails will be logged instead of sent")
		sender = smtp.NewLogMailer(log)
	} else {
		sender = smtp.NewMailer(cfg.SMTP)
	}
	mailer, err := smtp.NewTemplateMailer(sender)
	if err != nil {
		log.WithError(err).Fatal("load email templates")
	}

	jwtProvider := jwtinfra.NewProvider(cfg.JWT)
	otpSvc := otp.NewService(kv, mailer, cfg.OTP, log.WithField("component", "otp"))
	sessionSvc := session.NewService(users, jwtProvider, kv, log.WithField("component", "session"))
	authSvc := auth.NewService(auth.ServiceDeps{
		Users:      users,
		OTP:        otpSvc,
		Tokens:     sessionSvc,
		BcryptCost: cfg.BcryptCost,
		Log:        log.WithField("component", "auth"),
	})

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Auth:        authSvc,
		Sessions:    sessionSvc,
		JWTProvider: jwtProvider,
		Log:         log,
	})
	defer router.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Server.Port, "env": cfg.AppEnv, "store": cfg.UserStore}).Info("auth service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down auth service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
		return
	}
	log.Info("auth service stopped")
}

func openUserStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (userStore, func(), error) {
	switch cfg.UserStore {
	case "sqlite":
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		client, err := dynamo.NewClient(ctx, cfg.AWS)
		if err != nil {
			return nil, nil, err
		}
		if err := dynamo.Bootstrap(ctx, client, cfg.AWS.UsersTable, log); err != nil {
			return nil, nil, err
		}
		return dynamo.NewUserRepo(client, cfg.AWS.UsersTable), func() {}, nil
	}
}
