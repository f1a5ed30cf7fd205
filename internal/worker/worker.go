package worker

import (
	"context"
	"time"

	"inventory-service/internal/broker"
	"inventory-service/internal/models"
	"inventory-service/internal/service"
	"inventory-service/internal/util"

	"go.uber.org/zap"
)

// DashboardInvalidator is satisfied by *service.ReportService
type DashboardInvalidator interface {
	InvalidateDashboard(ctx context.Context) error
}

// SalesWorker reacts to committed sales, payments and stock changes. It only
// touches the cache and metrics, never the ledger.
type SalesWorker struct {
	consumer          *broker.Consumer
	eventHandler      *broker.EventHandler
	dashboard         DashboardInvalidator
	dedupe            service.IdempotencyStore
	dedupeTTL         time.Duration
	lowStockThreshold int
	logger            *zap.Logger
}

// NewSalesWorker creates a new sales worker. dedupe may be nil.
func NewSalesWorker(
	consumer *broker.Consumer,
	dashboard DashboardInvalidator,
	dedupe service.IdempotencyStore,
	dedupeTTL time.Duration,
	lowStockThreshold int,
) *SalesWorker {
	w := &SalesWorker{
		consumer:          consumer,
		eventHandler:      broker.NewEventHandler(),
		dashboard:         dashboard,
		dedupe:            dedupe,
		dedupeTTL:         dedupeTTL,
		lowStockThreshold: lowStockThreshold,
		logger:            util.GetLogger(),
	}

	w.eventHandler.OnSaleCreated(w.handleSaleCreated)
	w.eventHandler.OnPaymentRecorded(w.handlePaymentRecorded)
	w.eventHandler.OnStockAdjusted(w.handleStockAdjusted)
	return w
}

// Start consumes until ctx is cancelled
func (w *SalesWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting sales worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop closes the consumer
func (w *SalesWorker) Stop() error {
	w.logger.Info("Stopping sales worker")
	return w.consumer.Close()
}

func (w *SalesWorker) handleSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error {
	if w.seen(ctx, event.BaseEvent) {
		return nil
	}
	w.logger.Debug("Sale event received",
		zap.Int64("sale_id", event.SaleID),
		zap.String("payment_status", string(event.PaymentStatus)))
	return w.invalidate(ctx, event.BaseEvent)
}

func (w *SalesWorker) handlePaymentRecorded(ctx context.Context, event *models.PaymentRecordedEvent) error {
	if w.seen(ctx, event.BaseEvent) {
		return nil
	}
	w.logger.Debug("Payment event received",
		zap.Int64("sale_id", event.SaleID),
		zap.String("payment_status", string(event.PaymentStatus)))
	return w.invalidate(ctx, event.BaseEvent)
}

func (w *SalesWorker) handleStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error {
	if w.seen(ctx, event.BaseEvent) {
		return nil
	}

	if event.Quantity < w.lowStockThreshold {
		util.LowStockAlertsTotal.Inc()
		w.logger.Warn("Product below low-stock threshold",
			zap.Int64("product_id", event.ProductID),
			zap.Int("quantity", event.Quantity),
			zap.Int("threshold", w.lowStockThreshold),
			zap.String("reason", event.Reason))
	}
	return w.invalidate(ctx, event.BaseEvent)
}

// seen reports whether the event was already handled. Dedupe failures let
// the event through; invalidation is safe to repeat.
func (w *SalesWorker) seen(ctx context.Context, event models.BaseEvent) bool {
	if w.dedupe == nil || event.EventID == "" {
		return false
	}
	first, err := w.dedupe.ReserveIdempotencyKey(ctx, "event:"+event.EventID, w.dedupeTTL)
	if err != nil {
		util.CacheErrorsTotal.WithLabelValues("event_dedupe").Inc()
		w.logger.Warn("Failed to dedupe event", zap.String("event_id", event.EventID), zap.Error(err))
		return false
	}
	if !first {
		w.logger.Debug("Event already processed", zap.String("event_id", event.EventID))
	}
	return !first
}

// invalidate drops the dashboard cache. On failure the dedupe mark is
// removed so the consumer's next attempt at the same event is not skipped.
func (w *SalesWorker) invalidate(ctx context.Context, event models.BaseEvent) error {
	err := w.dashboard.InvalidateDashboard(ctx)
	if err == nil {
		return nil
	}

	util.CacheErrorsTotal.WithLabelValues("invalidate_dashboard").Inc()
	if w.dedupe != nil && event.EventID != "" {
		if relErr := w.dedupe.ReleaseIdempotencyKey(ctx, "event:"+event.EventID); relErr != nil {
			w.logger.Warn("Failed to release event mark", zap.String("event_id", event.EventID), zap.Error(relErr))
		}
	}
	return err
}
