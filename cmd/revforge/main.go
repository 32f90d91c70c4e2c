package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/revforge/revforge/internal/app"
	"github.com/revforge/revforge/internal/auth"
	"github.com/revforge/revforge/internal/cart"
	"github.com/revforge/revforge/internal/catalog"
	"github.com/revforge/revforge/internal/observability"
	"github.com/revforge/revforge/internal/orders"
	"github.com/revforge/revforge/internal/platform/cache"
	"github.com/revforge/revforge/internal/platform/db"
	"github.com/revforge/revforge/internal/recommend"
	"github.com/revforge/revforge/internal/reviews"
	"github.com/revforge/revforge/internal/users"
	"github.com/revforge/revforge/jobs"
)

// confirmationQueue resolves the buyer's email and enqueues the order
// confirmation task.
type confirmationQueue struct {
	client *jobs.Client
	users  *auth.PGRepository
}

func (q *confirmationQueue) OrderPlaced(ctx context.Context, userID int64, orderNumber string, total float64) error {
	u, err := q.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueOrderConfirmation(ctx, jobs.OrderConfirmationPayload{
		To:          u.Email,
		OrderNumber: orderNumber,
		Total:       total,
	})
	return err
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobsCommand(ctx, os.Args[2:]))
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	tokens := auth.NewTokenStore(redisClient, cfg.TokenSecret, cfg.TokenTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(logger, authRepo, tokens)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := auth.NewMiddleware(authService)

	recommendCache := recommend.NewCache(redisClient, cfg.RecommendCacheTTL)
	recommendRepo := recommend.NewRepository(pool)
	selector := recommend.NewSelector(recommendRepo, recommendCache, cfg.RecommendLimit)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(logger, usersRepo)
	usersHandler := users.NewHandler(logger, usersService)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, usersService)
	catalogHandler := catalog.NewHandler(logger, catalogService, selector, usersService)

	reviewsRepo := reviews.NewRepository(pool)
	reviewsService := reviews.NewService(logger, reviewsRepo, recommendCache)
	reviewsHandler := reviews.NewHandler(logger, reviewsService, catalogService)

	cartRepo := cart.NewRepository(pool)
	cartService := cart.NewService(logger, cartRepo, catalogService, cfg.TaxRate)
	cartHandler := cart.NewHandler(logger, cartService)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	ordersRepo := orders.NewRepository(pool)
	notifier := &confirmationQueue{client: jobsClient, users: authRepo}
	ordersService := orders.NewService(logger, ordersRepo, cartService, metrics, notifier, cfg.OrderNumberPrefix, cfg.TaxRate)
	ordersHandler := orders.NewHandler(logger, ordersService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		CatalogHandler: catalogHandler,
		ReviewsHandler: reviewsHandler,
		CartHandler:    cartHandler,
		OrdersHandler:  ordersHandler,
		UsersHandler:   usersHandler,
		JobsHandler:    jobsHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
