package broker

import (
	"context"
	"errors"
	"testing"

	"inventory-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
}

func (w *recordingWriter) PublishEvent(_ context.Context, key string, event interface{}) error {
	msg, err := encodeMessage(key, event)
	if err != nil {
		return err
	}
	w.messages = append(w.messages, msg)
	return nil
}

func TestPublisherKeysByEntity(t *testing.T) {
	w := &recordingWriter{}
	ep := NewEventPublisher(w)
	ctx := context.Background()

	require.NoError(t, ep.PublishSaleCreated(ctx, &models.SaleCreatedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeSaleCreated),
		SaleID:    7,
	}))
	require.NoError(t, ep.PublishPaymentRecorded(ctx, &models.PaymentRecordedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypePaymentRecorded),
		SaleID:    7,
	}))
	require.NoError(t, ep.PublishStockAdjusted(ctx, &models.StockAdjustedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeStockAdjusted),
		ProductID: 3,
	}))

	require.Len(t, w.messages, 3)
	assert.Equal(t, "sale-7", string(w.messages[0].Key))
	assert.Equal(t, "sale-7", string(w.messages[1].Key))
	assert.Equal(t, "product-3", string(w.messages[2].Key))
}

func TestHandleMessageRoutesByType(t *testing.T) {
	w := &recordingWriter{}
	ep := NewEventPublisher(w)
	ctx := context.Background()

	require.NoError(t, ep.PublishSaleCreated(ctx, &models.SaleCreatedEvent{
		BaseEvent:   models.NewBaseEvent(models.EventTypeSaleCreated),
		SaleID:      11,
		TotalAmount: decimal.RequireFromString("22.50"),
		Items:       []models.SaleItemData{{ProductID: 1, Quantity: 3}},
	}))
	require.NoError(t, ep.PublishPaymentRecorded(ctx, &models.PaymentRecordedEvent{
		BaseEvent:     models.NewBaseEvent(models.EventTypePaymentRecorded),
		SaleID:        11,
		PaymentStatus: models.PaymentStatusPartial,
	}))
	require.NoError(t, ep.PublishStockAdjusted(ctx, &models.StockAdjustedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeStockAdjusted),
		ProductID: 1,
		Quantity:  4,
	}))

	var sale *models.SaleCreatedEvent
	var payment *models.PaymentRecordedEvent
	var stock *models.StockAdjustedEvent

	eh := NewEventHandler()
	eh.OnSaleCreated(func(_ context.Context, e *models.SaleCreatedEvent) error {
		sale = e
		return nil
	})
	eh.OnPaymentRecorded(func(_ context.Context, e *models.PaymentRecordedEvent) error {
		payment = e
		return nil
	})
	eh.OnStockAdjusted(func(_ context.Context, e *models.StockAdjustedEvent) error {
		stock = e
		return nil
	})

	for _, msg := range w.messages {
		require.NoError(t, eh.HandleMessage(ctx, msg))
	}

	require.NotNil(t, sale)
	assert.Equal(t, int64(11), sale.SaleID)
	assert.True(t, sale.TotalAmount.Equal(decimal.RequireFromString("22.5")))
	require.Len(t, sale.Items, 1)
	assert.Equal(t, 3, sale.Items[0].Quantity)

	require.NotNil(t, payment)
	assert.Equal(t, models.PaymentStatusPartial, payment.PaymentStatus)

	require.NotNil(t, stock)
	assert.Equal(t, 4, stock.Quantity)
}

func TestHandleMessageErrors(t *testing.T) {
	eh := NewEventHandler()
	ctx := context.Background()

	err := eh.HandleMessage(ctx, kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)

	// unknown and unregistered types are skipped
	assert.NoError(t, eh.HandleMessage(ctx, kafka.Message{Value: []byte(`{"event_type":"OTHER"}`)}))
	assert.NoError(t, eh.HandleMessage(ctx, kafka.Message{Value: []byte(`{"event_type":"SALE_CREATED"}`)}))

	boom := errors.New("boom")
	eh.OnSaleCreated(func(context.Context, *models.SaleCreatedEvent) error { return boom })
	err = eh.HandleMessage(ctx, kafka.Message{Value: []byte(`{"event_type":"SALE_CREATED","sale_id":1}`)})
	assert.ErrorIs(t, err, boom)
}
