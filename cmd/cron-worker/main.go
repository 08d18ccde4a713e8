package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/neline/marketplace-backend/internal/app"
	"github.com/neline/marketplace-backend/internal/cron"
	"github.com/neline/marketplace-backend/pkg/config"
	"github.com/neline/marketplace-backend/pkg/db"
	"github.com/neline/marketplace-backend/pkg/logger"
	"github.com/neline/marketplace-backend/pkg/metrics"
	"github.com/neline/marketplace-backend/pkg/migrate"
	"github.com/neline/marketplace-backend/pkg/redis"
)

const sweeperLockName = "reservation-sweeper"

func main() {
	once := flag.String("job", "", "run the named job once and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg, *once); err != nil {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger, once string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	container, err := app.Build(ctx, app.Params{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Registry: prometheus.DefaultRegisterer,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			logg.Error(context.Background(), "error closing notifier", err)
		}
	}()

	sweepJob, err := cron.NewReservationSweepJob(cron.ReservationSweepJobParams{
		Logger:       logg,
		Expirer:      container.Transactions,
		ExpiryWindow: cfg.Sweeper.ExpiryWindow,
		BatchSize:    cfg.Sweeper.BatchSize,
	})
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(sweeperLockName), cfg.Sweeper.LockTTL)
	if err != nil {
		return err
	}

	registry, err := cron.NewRegistry(sweepJob)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Sweeper.Interval,
	})
	if err != nil {
		return err
	}

	if once != "" {
		err := service.RunJob(ctx, once)
		if errors.Is(err, cron.ErrLockHeld) {
			logg.Warn(ctx, "cron.job_skipped_lock_held")
			return nil
		}
		return err
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Sweeper.Interval.String(),
	})
	logg.Info(logCtx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logg.Info(logCtx, "cron worker shutting down gracefully")
	return nil
}
