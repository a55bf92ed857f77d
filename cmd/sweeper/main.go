package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/medbridge/hospital-api/internal/config"
	"github.com/medbridge/hospital-api/internal/db"
	redisclient "github.com/medbridge/hospital-api/internal/redis"
	"github.com/medbridge/hospital-api/internal/scheduling"
)

// The sweeper periodically actions cancel requests that no member of staff
// has picked up within the configured age, so slots do not sit flagged
// forever.
func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "sweeper").Logger()
	log.Info().Msg("sweeper starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.SweepInterval).
		Dur("max_age", cfg.CancelRequestMaxAge).
		Msg("configuration loaded")

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

	repo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	svc := scheduling.NewService(repo, locker, log)

	runOnce(rootCtx, svc, cfg.CancelRequestMaxAge, log)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping sweeper")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.CancelRequestMaxAge, log)
		}
	}
}

func runOnce(ctx context.Context, svc *scheduling.Service, maxAge time.Duration, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.SweepCancelRequests(runCtx, maxAge)
	if err != nil {
		log.Error().Err(err).Msg("sweep run error")
		return
	}
	log.Info().Int64("cancelled", n).Dur("took", time.Since(start)).Msg("sweep run complete")
}
