package service

import (
	"context"
	"errors"
	"time"

	"inventory-service/internal/models"
)

// EventPublisher is satisfied by *broker.EventPublisher
type EventPublisher interface {
	PublishSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error
	PublishPaymentRecorded(ctx context.Context, event *models.PaymentRecordedEvent) error
	PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error
}

// StockCache is satisfied by *redisclient.Client
type StockCache interface {
	SetStock(ctx context.Context, productID int64, quantity int, version int64) (bool, error)
	GetStock(ctx context.Context, productID int64) (int, bool, error)
	DeleteStock(ctx context.Context, productID int64) error
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// IdempotencyStore is satisfied by *redisclient.Client
type IdempotencyStore interface {
	ReserveIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error)
	CompleteIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) error
	LookupIdempotencyKey(ctx context.Context, key string) (string, bool, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

// JSONCache is satisfied by *redisclient.Client
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// failureReason turns an error into a metric label
func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrValidation):
		return "validation"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, models.ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, models.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, models.ErrConflict):
		return "conflict"
	case errors.Is(err, models.ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}
