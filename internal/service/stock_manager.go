package service

import (
	"context"
	"fmt"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const stockSyncLock = "stock-cache-sync"

// StockManager owns every quantity change. Cache and publisher are optional.
type StockManager struct {
	ledger    store.Ledger
	cache     StockCache
	publisher EventPublisher
	logger    *zap.Logger
}

// NewStockManager creates a new stock manager
func NewStockManager(ledger store.Ledger, cache StockCache, publisher EventPublisher) *StockManager {
	return &StockManager{
		ledger:    ledger,
		cache:     cache,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// AdjustStock applies a signed delta in its own transaction
func (m *StockManager) AdjustStock(ctx context.Context, productID int64, delta int) (*models.Product, error) {
	return m.adjust(ctx, productID, delta, models.StockReasonAdjustment)
}

// ReceiveStock adds received units to a product
func (m *StockManager) ReceiveStock(ctx context.Context, productID int64, quantity int) (*models.Product, error) {
	if quantity <= 0 {
		util.StockAdjustmentsFailed.WithLabelValues("validation").Inc()
		return nil, models.NewValidationError("quantityReceived", "must be greater than 0")
	}
	return m.adjust(ctx, productID, quantity, models.StockReasonReceipt)
}

func (m *StockManager) adjust(ctx context.Context, productID int64, delta int, reason string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "StockManager.AdjustStock",
		attribute.Int64("product_id", productID),
		attribute.Int("delta", delta))
	defer span.End()

	var updated *models.Product
	err := m.ledger.WithTx(ctx, func(tx store.Tx) error {
		p, err := m.AdjustStockTx(ctx, tx, productID, delta)
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		util.StockAdjustmentsFailed.WithLabelValues(failureReason(err)).Inc()
		util.RecordError(span, err)
		return nil, err
	}

	m.logger.Info("Stock adjusted",
		zap.Int64("product_id", productID),
		zap.Int("delta", delta),
		zap.Int("quantity", updated.Quantity),
		zap.String("reason", reason))

	m.afterCommit(ctx, updated, delta, reason)
	return updated, nil
}

// AdjustStockTx applies delta inside a caller-owned transaction. The change
// commits or rolls back with that transaction.
func (m *StockManager) AdjustStockTx(ctx context.Context, tx store.Tx, productID int64, delta int) (*models.Product, error) {
	if delta == 0 {
		return nil, models.NewValidationError("delta", "must not be zero")
	}
	return tx.AdjustStock(ctx, productID, delta)
}

// afterCommit refreshes the stock cache and announces the change. Failures
// here never undo the committed change.
func (m *StockManager) afterCommit(ctx context.Context, p *models.Product, delta int, reason string) {
	util.StockAdjustmentsTotal.WithLabelValues(reason).Inc()
	m.cacheStock(ctx, p)

	if m.publisher == nil {
		return
	}
	event := &models.StockAdjustedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeStockAdjusted),
		ProductID: p.ID,
		Delta:     delta,
		Quantity:  p.Quantity,
		Version:   p.StockVersion,
		Reason:    reason,
	}
	if err := m.publisher.PublishStockAdjusted(ctx, event); err != nil {
		m.logger.Error("Failed to publish StockAdjusted event",
			zap.Int64("product_id", p.ID),
			zap.Error(err))
	}
}

func (m *StockManager) cacheStock(ctx context.Context, p *models.Product) {
	if m.cache == nil {
		return
	}
	if _, err := m.cache.SetStock(ctx, p.ID, p.Quantity, p.StockVersion); err != nil {
		util.CacheErrorsTotal.WithLabelValues("set_stock").Inc()
		m.logger.Warn("Failed to cache stock",
			zap.Int64("product_id", p.ID),
			zap.Error(err))
	}
}

func (m *StockManager) evictStock(ctx context.Context, productID int64) {
	if m.cache == nil {
		return
	}
	if err := m.cache.DeleteStock(ctx, productID); err != nil {
		util.CacheErrorsTotal.WithLabelValues("delete_stock").Inc()
		m.logger.Warn("Failed to evict cached stock",
			zap.Int64("product_id", productID),
			zap.Error(err))
	}
}

// GetStock returns the current quantity, served from cache when possible
func (m *StockManager) GetStock(ctx context.Context, productID int64) (int, error) {
	if m.cache != nil {
		qty, found, err := m.cache.GetStock(ctx, productID)
		if err != nil {
			util.CacheErrorsTotal.WithLabelValues("get_stock").Inc()
		} else if found {
			return qty, nil
		}
	}

	p, err := m.ledger.GetProductByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	m.cacheStock(ctx, p)
	return p.Quantity, nil
}

// SyncStockCache loads every active product into the cache. Only one
// instance runs the sync at a time.
func (m *StockManager) SyncStockCache(ctx context.Context) error {
	if m.cache == nil {
		return nil
	}

	acquired, err := m.cache.AcquireLock(ctx, stockSyncLock, time.Minute)
	if err != nil {
		return fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !acquired {
		m.logger.Info("Stock cache sync already running elsewhere")
		return nil
	}
	defer func() {
		if err := m.cache.ReleaseLock(ctx, stockSyncLock); err != nil {
			m.logger.Warn("Failed to release sync lock", zap.Error(err))
		}
	}()

	products, err := m.ledger.GetProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}

	for i := range products {
		if _, err := m.cache.SetStock(ctx, products[i].ID, products[i].Quantity, products[i].StockVersion); err != nil {
			util.CacheErrorsTotal.WithLabelValues("set_stock").Inc()
			return fmt.Errorf("failed to cache product %d: %w", products[i].ID, err)
		}
	}

	m.logger.Info("Stock cache synced", zap.Int("products", len(products)))
	return nil
}
