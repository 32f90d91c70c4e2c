package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/revforge/revforge/internal/app"
	"github.com/revforge/revforge/internal/observability"
	"github.com/revforge/revforge/internal/recommend"
	"github.com/revforge/revforge/internal/reviews"
	"github.com/revforge/revforge/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	metrics := observability.NewMetrics()

	recommendCache := recommend.NewCache(redisClient, cfg.RecommendCacheTTL)
	reviewsRepo := reviews.NewRepository(pool)
	reviewsService := reviews.NewService(logger, reviewsRepo, recommendCache)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRatingsResync, Handler: jobs.NewRatingsResyncHandler(logger, reviewsService, metrics)},
			{Type: jobs.TaskLowStockScan, Handler: jobs.NewLowStockScanHandler(logger, pool, metrics)},
			{Type: jobs.TaskOrderConfirmation, Handler: jobs.NewOrderConfirmationHandler(logger, metrics)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 2 * * *", Task: jobs.NewRatingsResyncTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 6 * * *", Task: jobs.NewLowStockScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
