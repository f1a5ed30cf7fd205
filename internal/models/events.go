package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeSaleCreated     = "SALE_CREATED"
	EventTypePaymentRecorded = "PAYMENT_RECORDED"
	EventTypeStockAdjusted   = "STOCK_ADJUSTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a fresh event id and timestamp
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// SaleCreatedEvent published after a sale commits
type SaleCreatedEvent struct {
	BaseEvent
	SaleID        int64           `json:"sale_id"`
	CustomerID    int64           `json:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Items         []SaleItemData  `json:"items"`
}

// PaymentRecordedEvent published after a payment commits
type PaymentRecordedEvent struct {
	BaseEvent
	SaleID         int64           `json:"sale_id"`
	AmountReceived decimal.Decimal `json:"amount_received"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
}

// StockAdjustedEvent published after a quantity change commits
type StockAdjustedEvent struct {
	BaseEvent
	ProductID int64  `json:"product_id"`
	Delta     int    `json:"delta"`
	Quantity  int    `json:"quantity"`
	Version   int64  `json:"version"`
	Reason    string `json:"reason"`
}

// Stock adjustment reasons
const (
	StockReasonReceipt    = "receipt"
	StockReasonAdjustment = "adjustment"
	StockReasonSale       = "sale"
)

// SaleItemData represents item data in events
type SaleItemData struct {
	ProductID   int64           `json:"product_id"`
	Quantity    int             `json:"quantity"`
	PriceAtSale decimal.Decimal `json:"price_at_sale"`
}
