package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/medbridge/hospital-api/internal/api"
	"github.com/medbridge/hospital-api/internal/auth"
	"github.com/medbridge/hospital-api/internal/config"
	"github.com/medbridge/hospital-api/internal/db"
	"github.com/medbridge/hospital-api/internal/pharmacy"
	"github.com/medbridge/hospital-api/internal/prescription"
	redisclient "github.com/medbridge/hospital-api/internal/redis"
	"github.com/medbridge/hospital-api/internal/scheduling"
)

const version = "1.0.0"

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api-server").Logger()
	log.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}
	if cfg.Env == "dev" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configuration loaded")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	secret := []byte(cfg.JWTSecret)
	blacklist := redisclient.NewTokenBlacklist(rdb)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)

	authSvc := auth.NewService(auth.NewPgRepository(pgPool), blacklist, secret, cfg.JWTExpiry, log)
	schedSvc := scheduling.NewService(scheduling.NewPgRepository(pgPool), locker, log)
	prescSvc := prescription.NewService(prescription.NewPgRepository(pgPool), log)
	pharmSvc := pharmacy.NewService(pharmacy.NewPgRepository(pgPool), log)

	router := api.NewRouter(api.RouterConfig{
		Auth:         authSvc,
		Scheduling:   schedSvc,
		Prescription: prescSvc,
		Pharmacy:     pharmSvc,
		Blacklist:    blacklist,
		JWTSecret:    secret,
		CORSOrigins:  cfg.CORSOrigins,
		PgPool:       pgPool,
		Redis:        rdb,
		Env:          cfg.Env,
		Version:      version,
		Log:          log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("api-server stopped")
}
