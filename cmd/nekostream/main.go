// main.go — nekostream storefront API.
// Port: 8080 (env: PORT). Serves the SPA's JSON API over the hosted
// Postgres database and auth API.
//
// Optional services degrade instead of failing startup:
//   - REDIS_URL unset or unreachable: in-memory cache, no rate limits
//   - BACKEND_URL / BACKEND_ANON_KEY unset: account and admin routes answer 503
//   - SENTRY_DSN unset: no error tracking
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/yourflock/nekostream/internal/auth"
	"github.com/yourflock/nekostream/internal/cache"
	"github.com/yourflock/nekostream/internal/config"
	"github.com/yourflock/nekostream/internal/gotrue"
	"github.com/yourflock/nekostream/internal/logger"
	"github.com/yourflock/nekostream/internal/ratelimit"
	"github.com/yourflock/nekostream/internal/store"
	"github.com/yourflock/nekostream/internal/sugoi"
	"github.com/yourflock/nekostream/pkg/telemetry"
	"github.com/yourflock/nekostream/services/storefront"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log := logger.New("nekostream", cfg.LogFormat, cfg.LogLevel)

	if err := telemetry.InitSentry(cfg.SentryDSN, "nekostream", version, cfg.AppEnv); err != nil {
		log.WithError(err).Warn("sentry init failed, continuing without error tracking")
	}
	defer telemetry.Flush()

	db, err := connectDB(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database connect")
	}
	defer db.Close()
	log.Info("database connected")

	ctx := context.Background()
	var (
		backend cache.Backend
		limiter *ratelimit.Limiter
	)
	if cfg.RedisURL != "" {
		rdb, err := cache.Dial(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, using in-memory cache without rate limits")
		} else {
			defer rdb.Close()
			backend = cache.New(rdb, "nekostream:cache:")
			limiter = ratelimit.New(ratelimit.NewRedisStore(rdb, "nekostream:"))
		}
	}
	if backend == nil {
		backend = cache.New(nil, "")
		limiter = ratelimit.New(nil)
	}
	defer backend.Close()

	deps := storefront.Deps{
		Config:   cfg,
		Repo:     store.New(db),
		Resolver: sugoi.NewClient(cfg.SugoiAPIURL, backend, cfg.CacheTTL),
		Cache:    backend,
		Limiter:  limiter,
		Verifier: auth.NewVerifier(cfg.BackendJWTSecret),
		Logger:   log,
	}
	if cfg.BackendConfigured() {
		deps.Auth = gotrue.NewClient(cfg.BackendURL, cfg.BackendAnonKey)
	} else {
		log.WithFields(logrus.Fields{
			"url_length": len(cfg.BackendURL),
			"key_length": len(cfg.BackendAnonKey),
		}).Warn("hosted auth not configured, account and admin routes disabled")
	}
	if cfg.BackendJWTSecret == "" {
		log.Warn("BACKEND_JWT_SECRET not set, authenticated routes will answer 503")
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      storefront.NewServer(deps).Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "version": version, "env": cfg.AppEnv}).Info("starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-quit
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
	log.Info("stopped")
}

func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
