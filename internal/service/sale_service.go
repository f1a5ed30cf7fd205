package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// priceTolerance is the largest accepted gap between client and server amounts
var priceTolerance = decimal.New(1, -2)

// SaleService is the sale transaction engine
type SaleService struct {
	ledger    store.Ledger
	stock     *StockManager
	publisher EventPublisher
	logger    *zap.Logger
}

// NewSaleService creates a new sale service
func NewSaleService(ledger store.Ledger, stock *StockManager, publisher EventPublisher) *SaleService {
	return &SaleService{
		ledger:    ledger,
		stock:     stock,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CreateSaleRequest represents a point-of-sale checkout
type CreateSaleRequest struct {
	CustomerID     int64             `json:"customerId" binding:"required"`
	Items          []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
	TotalAmount    *decimal.Decimal  `json:"totalAmount,omitempty" binding:"omitempty,dgte0,dscale2"`
	AmountPaid     decimal.Decimal   `json:"amountPaid" binding:"dgte0,dscale2"`
	IdempotencyKey string            `json:"-"`
}

// SaleItemRequest is one cart line. Price and cost, when sent, are checked
// against the product record.
type SaleItemRequest struct {
	ProductID   int64            `json:"productId" binding:"required"`
	Quantity    int              `json:"quantity" binding:"required,min=1"`
	PriceAtSale *decimal.Decimal `json:"priceAtSale,omitempty" binding:"omitempty,dgte0,dscale2"`
	CostAtSale  *decimal.Decimal `json:"costAtSale,omitempty" binding:"omitempty,dgte0,dscale2"`
}

// CreateSaleResponse is the committed sale
type CreateSaleResponse struct {
	SaleID        int64                `json:"sale_id"`
	CustomerID    int64                `json:"customer_id"`
	SaleDate      time.Time            `json:"sale_date"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	TotalCost     decimal.Decimal      `json:"total_cost"`
	AmountPaid    decimal.Decimal      `json:"amount_paid"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Items         []models.SaleItem    `json:"items"`
	Replayed      bool                 `json:"-"`
}

func newSaleResponse(sale *models.Sale, items []models.SaleItem) *CreateSaleResponse {
	if items == nil {
		items = []models.SaleItem{}
	}
	return &CreateSaleResponse{
		SaleID:        sale.ID,
		CustomerID:    sale.CustomerID,
		SaleDate:      sale.SaleDate,
		TotalAmount:   sale.TotalAmount,
		TotalCost:     sale.TotalCost,
		AmountPaid:    sale.AmountPaid,
		PaymentStatus: sale.PaymentStatus,
		Items:         items,
	}
}

// CreateSale records a sale, its line items and the stock decrements in one
// transaction. Any failure leaves no sale, no items and no stock change.
func (s *SaleService) CreateSale(ctx context.Context, req *CreateSaleRequest) (*CreateSaleResponse, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.CreateSale",
		attribute.Int64("customer_id", req.CustomerID),
		attribute.Int("items", len(req.Items)))
	defer span.End()

	start := time.Now()
	defer func() {
		util.SaleProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	if err := validateSaleRequest(req); err != nil {
		util.SalesFailedTotal.WithLabelValues("validation").Inc()
		util.RecordError(span, err)
		return nil, err
	}

	if req.IdempotencyKey != "" {
		resp, err := s.replay(ctx, req.IdempotencyKey)
		if err != nil || resp != nil {
			return resp, err
		}
	}

	var (
		sale     *models.Sale
		items    []models.SaleItem
		adjusted []stockChange
	)
	err := s.ledger.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetCustomer(ctx, req.CustomerID); err != nil {
			return err
		}

		locked, err := tx.LockProducts(ctx, cartProductIDs(req.Items))
		if err != nil {
			return err
		}

		lines, totalAmount, totalCost, err := priceCart(req, locked)
		if err != nil {
			return err
		}

		amountPaid := models.ClampPayment(req.AmountPaid, totalAmount)
		sale = &models.Sale{
			CustomerID:    req.CustomerID,
			TotalAmount:   totalAmount,
			TotalCost:     totalCost,
			AmountPaid:    amountPaid,
			PaymentStatus: models.ClassifyPayment(amountPaid, totalAmount),
		}
		if req.IdempotencyKey != "" {
			key := req.IdempotencyKey
			sale.IdempotencyKey = &key
		}
		if err := tx.InsertSale(ctx, sale); err != nil {
			return err
		}

		for i := range lines {
			lines[i].SaleID = sale.ID
			if err := tx.InsertSaleItem(ctx, &lines[i]); err != nil {
				return err
			}
			p, err := s.stock.AdjustStockTx(ctx, tx, lines[i].ProductID, -lines[i].Quantity)
			if err != nil {
				return err
			}
			adjusted = append(adjusted, stockChange{product: p, delta: -lines[i].Quantity})
		}
		items = lines
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) && req.IdempotencyKey != "" {
			// a concurrent request with the same key won the insert
			resp, replayErr := s.replay(ctx, req.IdempotencyKey)
			if replayErr == nil && resp != nil {
				return resp, nil
			}
		}
		util.SalesFailedTotal.WithLabelValues(failureReason(err)).Inc()
		util.RecordError(span, err)
		s.logger.Info("Sale rejected",
			zap.Int64("customer_id", req.CustomerID),
			zap.Error(err))
		return nil, err
	}

	util.SalesCreatedTotal.WithLabelValues(string(sale.PaymentStatus)).Inc()
	span.SetAttributes(attribute.Int64("sale_id", sale.ID))
	s.logger.Info("Sale created",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("customer_id", sale.CustomerID),
		zap.String("total_amount", sale.TotalAmount.StringFixed(2)),
		zap.String("payment_status", string(sale.PaymentStatus)))

	for _, c := range adjusted {
		s.stock.afterCommit(ctx, c.product, c.delta, models.StockReasonSale)
	}
	s.publishSaleCreated(ctx, sale, items)

	return newSaleResponse(sale, items), nil
}

type stockChange struct {
	product *models.Product
	delta   int
}

func (s *SaleService) replay(ctx context.Context, key string) (*CreateSaleResponse, error) {
	existing, err := s.ledger.GetSaleByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing == nil {
		return nil, nil
	}

	items, err := s.ledger.GetSaleItems(ctx, existing.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Duplicate sale request detected",
		zap.String("idempotency_key", key),
		zap.Int64("sale_id", existing.ID))

	resp := newSaleResponse(existing, items)
	resp.Replayed = true
	return resp, nil
}

func (s *SaleService) publishSaleCreated(ctx context.Context, sale *models.Sale, items []models.SaleItem) {
	if s.publisher == nil {
		return
	}

	data := make([]models.SaleItemData, 0, len(items))
	for _, it := range items {
		data = append(data, models.SaleItemData{
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			PriceAtSale: it.PriceAtSale,
		})
	}

	event := &models.SaleCreatedEvent{
		BaseEvent:     models.NewBaseEvent(models.EventTypeSaleCreated),
		SaleID:        sale.ID,
		CustomerID:    sale.CustomerID,
		TotalAmount:   sale.TotalAmount,
		TotalCost:     sale.TotalCost,
		AmountPaid:    sale.AmountPaid,
		PaymentStatus: sale.PaymentStatus,
		Items:         data,
	}
	if err := s.publisher.PublishSaleCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleCreated event",
			zap.Int64("sale_id", sale.ID),
			zap.Error(err))
	}
}

func validateSaleRequest(req *CreateSaleRequest) error {
	if len(req.Items) == 0 {
		return models.NewValidationError("items", "must not be empty")
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return models.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be greater than 0")
		}
		if err := checkAmount(fmt.Sprintf("items[%d].priceAtSale", i), item.PriceAtSale); err != nil {
			return err
		}
		if err := checkAmount(fmt.Sprintf("items[%d].costAtSale", i), item.CostAtSale); err != nil {
			return err
		}
	}
	if err := checkAmount("amountPaid", &req.AmountPaid); err != nil {
		return err
	}
	return checkAmount("totalAmount", req.TotalAmount)
}

// checkAmount accepts a missing amount, or one >= 0 in whole cents
func checkAmount(field string, amount *decimal.Decimal) error {
	switch {
	case amount == nil:
		return nil
	case amount.IsNegative():
		return models.NewValidationError(field, "must not be negative")
	case !models.WholeCents(*amount):
		return models.NewValidationError(field, "must have at most 2 decimal places")
	}
	return nil
}

func cartProductIDs(items []SaleItemRequest) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// priceCart freezes price and cost from the locked product rows and totals
// the cart. Client-sent amounts must agree within priceTolerance.
func priceCart(req *CreateSaleRequest, locked map[int64]*models.Product) ([]models.SaleItem, decimal.Decimal, decimal.Decimal, error) {
	lines := make([]models.SaleItem, 0, len(req.Items))
	totalAmount := decimal.Zero
	totalCost := decimal.Zero

	for i, item := range req.Items {
		p, ok := locked[item.ProductID]
		if !ok {
			return nil, decimal.Zero, decimal.Zero, models.NewNotFoundError("product", item.ProductID)
		}
		if item.PriceAtSale != nil && !withinTolerance(*item.PriceAtSale, p.Price) {
			return nil, decimal.Zero, decimal.Zero, models.NewValidationError(
				fmt.Sprintf("items[%d].priceAtSale", i),
				fmt.Sprintf("does not match product price %s", p.Price.StringFixed(2)))
		}
		if item.CostAtSale != nil && !withinTolerance(*item.CostAtSale, p.Cost) {
			return nil, decimal.Zero, decimal.Zero, models.NewValidationError(
				fmt.Sprintf("items[%d].costAtSale", i),
				fmt.Sprintf("does not match product cost %s", p.Cost.StringFixed(2)))
		}

		line := models.SaleItem{
			ProductID:   p.ID,
			Quantity:    item.Quantity,
			PriceAtSale: p.Price,
			CostAtSale:  p.Cost,
		}
		totalAmount = totalAmount.Add(line.Subtotal())
		totalCost = totalCost.Add(line.LineCost())
		lines = append(lines, line)
	}

	if req.TotalAmount != nil && !withinTolerance(*req.TotalAmount, totalAmount) {
		return nil, decimal.Zero, decimal.Zero, models.NewValidationError("totalAmount",
			fmt.Sprintf("does not match computed total %s", totalAmount.StringFixed(2)))
	}
	return lines, totalAmount, totalCost, nil
}

func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(priceTolerance)
}
