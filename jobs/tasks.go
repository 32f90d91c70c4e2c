package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/revforge/revforge/internal/reviews"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRatingsResync rebuilds every product rating aggregate, repairing
	// drift the synchronous recomputes may have left behind.
	TaskRatingsResync = "ratings:resync"
	// TaskLowStockScan flags products at or below their reorder threshold.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskOrderConfirmation sends the order confirmation email.
	TaskOrderConfirmation = "mail:order_confirmation"
)

// JobObserver counts task outcomes for monitoring.
type JobObserver interface {
	ObserveJob(task string, err error)
}

// NewRatingsResyncTask constructs the nightly resync task.
func NewRatingsResyncTask() *asynq.Task {
	return asynq.NewTask(TaskRatingsResync, nil)
}

// NewRatingsResyncHandler processes TaskRatingsResync tasks.
func NewRatingsResyncHandler(logger *slog.Logger, svc *reviews.Service, observer JobObserver) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		count, err := svc.RecomputeAll(ctx)
		if observer != nil {
			observer.ObserveJob(TaskRatingsResync, err)
		}
		if err != nil {
			logger.Error("ratings resync failed", slog.Any("error", err))
			return err
		}
		logger.Info("ratings resync complete", slog.Int("products", count))
		return nil
	}
}

// NewLowStockScanTask constructs the low stock scan task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil)
}

// NewLowStockScanHandler logs every active product at or below its reorder
// threshold so operators can restock before listings go dark.
func NewLowStockScanHandler(logger *slog.Logger, pool *pgxpool.Pool, observer JobObserver) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		err := scanLowStock(ctx, logger, pool)
		if observer != nil {
			observer.ObserveJob(TaskLowStockScan, err)
		}
		return err
	}
}

func scanLowStock(ctx context.Context, logger *slog.Logger, pool *pgxpool.Pool) error {
	rows, err := pool.Query(ctx, `
		SELECT id, sku, name, stock_quantity, min_stock_level
		FROM products
		WHERE is_active AND stock_quantity <= min_stock_level
		ORDER BY stock_quantity`)
	if err != nil {
		return fmt.Errorf("jobs: low stock scan: %w", err)
	}
	defer rows.Close()

	flagged := 0
	for rows.Next() {
		var (
			id              int64
			sku, name       string
			stock, minStock int
		)
		if err := rows.Scan(&id, &sku, &name, &stock, &minStock); err != nil {
			return fmt.Errorf("jobs: scan low stock row: %w", err)
		}
		flagged++
		logger.Warn("product low on stock",
			slog.Int64("product_id", id),
			slog.String("sku", sku),
			slog.String("name", name),
			slog.Int("stock", stock),
			slog.Int("min_stock", minStock))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	logger.Info("low stock scan complete", slog.Int("flagged", flagged))
	return nil
}

// OrderConfirmationPayload describes an order confirmation email.
type OrderConfirmationPayload struct {
	To          string  `json:"to"`
	OrderNumber string  `json:"order_number"`
	Total       float64 `json:"total"`
}

// NewOrderConfirmationTask constructs an order confirmation task.
func NewOrderConfirmationTask(payload OrderConfirmationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderConfirmation, data), nil
}

// NewOrderConfirmationHandler processes TaskOrderConfirmation tasks.
func NewOrderConfirmationHandler(logger *slog.Logger, observer JobObserver) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload OrderConfirmationPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		// Placeholder until the SMTP relay lands.
		logger.Info("order confirmation queued for delivery",
			slog.String("to", payload.To),
			slog.String("order_number", payload.OrderNumber))
		if observer != nil {
			observer.ObserveJob(TaskOrderConfirmation, nil)
		}
		return nil
	}
}
