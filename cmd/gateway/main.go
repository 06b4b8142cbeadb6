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

	"github.com/estore-auth/internal/config"
	"github.com/estore-auth/internal/gateway"
	jwtinfra "github.com/estore-auth/internal/infrastructure/jwt"
	redisinfra "github.com/estore-auth/internal/infrastructure/redis"
	"github.com/estore-auth/internal/pkg/logging"
	"github.com/estore-auth/internal/pkg/ratelimit"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

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

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var limiter ratelimit.Limiter
	switch cfg.Gateway.LimiterBackend {
	case "memory":
		mem := ratelimit.NewMemory()
		go sweep(ctx, mem, cfg.Gateway.Window)
		limiter = mem
	default:
		redisClient, err := redisinfra.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.WithError(err).Fatal("redis unavailable")
		}
		defer redisClient.Close()
		limiter = redisinfra.NewSlidingWindow(redisClient, "ratelimit:")
	}

	handler, err := gateway.NewHandler(cfg, gateway.Deps{
		Limiter: limiter,
		Tokens:  jwtinfra.NewProvider(cfg.JWT),
		Log:     log,
	})
	if err != nil {
		log.WithError(err).Fatal("build gateway")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Gateway.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":     cfg.Gateway.Port,
			"upstream": cfg.Gateway.AuthServiceURL,
			"limiter":  cfg.Gateway.LimiterBackend,
		}).Info("api gateway starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down api gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
		return
	}
	log.Info("api gateway stopped")
}

// sweep periodically drops idle keys from the in-process limiter.
func sweep(ctx context.Context, mem *ratelimit.Memory, window time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mem.Sweep(window)
		}
	}
}
