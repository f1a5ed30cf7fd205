package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a stocked item
type Product struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Quantity     int             `db:"quantity" json:"quantity"`
	Price        decimal.Decimal `db:"price" json:"price"`
	Cost         decimal.Decimal `db:"cost" json:"cost"`
	StockVersion int64           `db:"stock_version" json:"-"`
	ArchivedAt   *time.Time      `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Customer represents a buyer
type Customer struct {
	ID         int64      `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Phone      *string    `db:"phone" json:"phone"`
	Address    *string    `db:"address" json:"address"`
	ArchivedAt *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Sale represents one point-of-sale transaction
type Sale struct {
	ID             int64           `db:"id" json:"sale_id"`
	CustomerID     int64           `db:"customer_id" json:"customer_id"`
	SaleDate       time.Time       `db:"sale_date" json:"sale_date"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	TotalCost      decimal.Decimal `db:"total_cost" json:"total_cost"`
	AmountPaid     decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	PaymentStatus  PaymentStatus   `db:"payment_status" json:"payment_status"`
	IdempotencyKey *string         `db:"idempotency_key" json:"-"`
}

// Profit is derived, never stored
func (s *Sale) Profit() decimal.Decimal {
	return s.TotalAmount.Sub(s.TotalCost)
}

// BalanceDue is the outstanding balance
func (s *Sale) BalanceDue() decimal.Decimal {
	return s.TotalAmount.Sub(s.AmountPaid)
}

// SaleItem is one line of a sale. Prices are frozen at sale time.
type SaleItem struct {
	ID          int64           `db:"id" json:"sale_item_id"`
	SaleID      int64           `db:"sale_id" json:"sale_id"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	Quantity    int             `db:"quantity" json:"quantity"`
	PriceAtSale decimal.Decimal `db:"price_at_sale" json:"price_at_sale"`
	CostAtSale  decimal.Decimal `db:"cost_at_sale" json:"cost_at_sale"`
}

// Subtotal returns quantity × priceAtSale
func (i *SaleItem) Subtotal() decimal.Decimal {
	return i.PriceAtSale.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LineCost returns quantity × costAtSale
func (i *SaleItem) LineCost() decimal.Decimal {
	return i.CostAtSale.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SaleView is the read projection of a sale joined with its customer
type SaleView struct {
	ID            int64           `db:"id" json:"sale_id"`
	SaleDate      time.Time       `db:"sale_date" json:"sale_date"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	TotalCost     decimal.Decimal `db:"total_cost" json:"total_cost"`
	AmountPaid    decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	PaymentStatus PaymentStatus   `db:"payment_status" json:"payment_status"`
	Profit        decimal.Decimal `db:"profit" json:"profit"`
	BalanceDue    decimal.Decimal `db:"balance_due" json:"balance_due"`
	CustomerID    *int64          `db:"customer_id" json:"customer_id"`
	CustomerName  *string         `db:"customer_name" json:"customer_name"`
	CustomerPhone *string         `db:"customer_phone" json:"customer_phone,omitempty"`
	Address       *string         `db:"customer_address" json:"customer_address,omitempty"`
}

// SaleItemView is a line item joined with its product name
type SaleItemView struct {
	ID          int64           `db:"id" json:"sale_item_id"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int             `db:"quantity" json:"quantity"`
	PriceAtSale decimal.Decimal `db:"price_at_sale" json:"price_at_sale"`
	CostAtSale  decimal.Decimal `db:"cost_at_sale" json:"cost_at_sale"`
	Subtotal    decimal.Decimal `db:"subtotal" json:"subtotal"`
}

// SaleDetail is a sale with its line items
type SaleDetail struct {
	SaleView
	Items []SaleItemView `json:"items"`
}

// NewSaleView projects a sale without a customer join
func NewSaleView(s *Sale, customerName *string) *SaleView {
	customerID := s.CustomerID
	return &SaleView{
		ID:            s.ID,
		SaleDate:      s.SaleDate,
		TotalAmount:   s.TotalAmount,
		TotalCost:     s.TotalCost,
		AmountPaid:    s.AmountPaid,
		PaymentStatus: s.PaymentStatus,
		Profit:        s.Profit(),
		BalanceDue:    s.BalanceDue(),
		CustomerID:    &customerID,
		CustomerName:  customerName,
	}
}

// Page describes a limit/offset window
type Page struct {
	Number int `json:"current_page"`
	Size   int `json:"items_per_page"`
}

// Offset returns the row offset for the page
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// PagedResult wraps one page of rows with totals
type PagedResult[T any] struct {
	Data        []T `json:"data"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	TotalItems  int `json:"total_items"`
	PerPage     int `json:"items_per_page"`
}

// NewPagedResult computes page totals
func NewPagedResult[T any](data []T, page Page, total int) PagedResult[T] {
	if data == nil {
		data = []T{}
	}
	pages := 0
	if page.Size > 0 {
		pages = (total + page.Size - 1) / page.Size
	}
	return PagedResult[T]{
		Data:        data,
		CurrentPage: page.Number,
		TotalPages:  pages,
		TotalItems:  total,
		PerPage:     page.Size,
	}
}
