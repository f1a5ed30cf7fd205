package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"inventory-service/internal/models"
	"inventory-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventWriter is the sink EventPublisher writes to; *Producer satisfies it
type EventWriter interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer EventWriter
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer EventWriter) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func saleKey(saleID int64) string {
	return fmt.Sprintf("sale-%d", saleID)
}

func productKey(productID int64) string {
	return fmt.Sprintf("product-%d", productID)
}

// PublishSaleCreated publishes SaleCreated event
func (ep *EventPublisher) PublishSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, saleKey(event.SaleID), event)
}

// PublishPaymentRecorded publishes PaymentRecorded event
func (ep *EventPublisher) PublishPaymentRecorded(ctx context.Context, event *models.PaymentRecordedEvent) error {
	return ep.producer.PublishEvent(ctx, saleKey(event.SaleID), event)
}

// PublishStockAdjusted publishes StockAdjusted event
func (ep *EventPublisher) PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error {
	return ep.producer.PublishEvent(ctx, productKey(event.ProductID), event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onSaleCreated     func(context.Context, *models.SaleCreatedEvent) error
	onPaymentRecorded func(context.Context, *models.PaymentRecordedEvent) error
	onStockAdjusted   func(context.Context, *models.StockAdjustedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnSaleCreated registers a handler for SaleCreated events
func (eh *EventHandler) OnSaleCreated(handler func(context.Context, *models.SaleCreatedEvent) error) {
	eh.onSaleCreated = handler
}

// OnPaymentRecorded registers a handler for PaymentRecorded events
func (eh *EventHandler) OnPaymentRecorded(handler func(context.Context, *models.PaymentRecordedEvent) error) {
	eh.onPaymentRecorded = handler
}

// OnStockAdjusted registers a handler for StockAdjusted events
func (eh *EventHandler) OnStockAdjusted(handler func(context.Context, *models.StockAdjustedEvent) error) {
	eh.onStockAdjusted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	logger := util.GetLogger()
	logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeSaleCreated:
		if eh.onSaleCreated != nil {
			var event models.SaleCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SaleCreated event: %w", err)
			}
			return eh.onSaleCreated(ctx, &event)
		}

	case models.EventTypePaymentRecorded:
		if eh.onPaymentRecorded != nil {
			var event models.PaymentRecordedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PaymentRecorded event: %w", err)
			}
			return eh.onPaymentRecorded(ctx, &event)
		}

	case models.EventTypeStockAdjusted:
		if eh.onStockAdjusted != nil {
			var event models.StockAdjustedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockAdjusted event: %w", err)
			}
			return eh.onStockAdjusted(ctx, &event)
		}

	default:
		logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
