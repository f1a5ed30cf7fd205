package service

import (
	"context"
	"errors"
	"testing"

	"inventory-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func riceLine(qty int) SaleItemRequest {
	return SaleItemRequest{ProductID: 3, Quantity: qty, PriceAtSale: dp("100"), CostAtSale: dp("60")}
}

func TestCreateSalePaymentStatusOnCheckout(t *testing.T) {
	tests := []struct {
		name       string
		offered    string
		wantPaid   string
		wantStatus models.PaymentStatus
	}{
		{"nothing paid", "0", "0", models.PaymentStatusUnpaid},
		{"paid in full", "200", "200", models.PaymentStatusPaid},
		{"part paid", "50", "50", models.PaymentStatusPartial},
		{"overpaid is capped", "500", "200", models.PaymentStatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			req := cart(tt.offered, riceLine(2))
			req.TotalAmount = dp("200")

			resp, err := f.sales.CreateSale(context.Background(), req)
			require.NoError(t, err)

			assertAmount(t, "200", resp.TotalAmount)
			assertAmount(t, "120", resp.TotalCost)
			assertAmount(t, tt.wantPaid, resp.AmountPaid)
			assert.Equal(t, tt.wantStatus, resp.PaymentStatus)
			assert.Equal(t, 8, f.quantity(t, 3))

			require.Len(t, resp.Items, 1)
			assert.Equal(t, resp.SaleID, resp.Items[0].SaleID)
			assertAmount(t, "100", resp.Items[0].PriceAtSale)
			assertAmount(t, "60", resp.Items[0].CostAtSale)

			sale, ok := f.ledger.Sale(resp.SaleID)
			require.True(t, ok)
			assertAmount(t, tt.wantPaid, sale.AmountPaid)
		})
	}
}

func TestCreateSaleInsufficientStockLeavesNoTrace(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.sales.CreateSale(context.Background(), cart("0", riceLine(11)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInsufficientStock))

	var shortage *models.InsufficientStockError
	require.True(t, errors.As(err, &shortage))
	assert.Equal(t, int64(3), shortage.ProductID)
	assert.Equal(t, 10, shortage.Available)
	assert.Equal(t, 11, shortage.Requested)

	assert.Equal(t, 10, f.quantity(t, 3))
	assert.Equal(t, 0, f.ledger.SaleCount())
	assert.Empty(t, f.publisher.sales)
}

func TestCreateSaleRollsBackEarlierLines(t *testing.T) {
	f := newFixture(t, nil)

	req := cart("0", riceLine(2), SaleItemRequest{ProductID: 4, Quantity: 6})
	_, err := f.sales.CreateSale(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)

	assert.Equal(t, 10, f.quantity(t, 3))
	assert.Equal(t, 5, f.quantity(t, 4))
	assert.Equal(t, 0, f.ledger.SaleCount())
}

func TestCreateSaleRollsBackOnItemInsertFailure(t *testing.T) {
	f := newFixture(t, nil)
	boom := models.StorageError("insert sale item", errors.New("connection reset"))

	inserted := 0
	f.ledger.BeforeInsertSaleItem = func(*models.SaleItem) error {
		inserted++
		if inserted == 2 {
			return boom
		}
		return nil
	}

	req := cart("20", riceLine(1), SaleItemRequest{ProductID: 4, Quantity: 1})
	_, err := f.sales.CreateSale(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrStorage)

	assert.Equal(t, 10, f.quantity(t, 3))
	assert.Equal(t, 5, f.quantity(t, 4))
	assert.Equal(t, 0, f.ledger.SaleCount())
	assert.Empty(t, f.publisher.stock)
}

func TestCreateSaleDuplicateProductLines(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.sales.CreateSale(ctx, cart("0", riceLine(6), riceLine(6)))
	assert.ErrorIs(t, err, models.ErrInsufficientStock)
	assert.Equal(t, 10, f.quantity(t, 3))

	resp, err := f.sales.CreateSale(ctx, cart("0", riceLine(4), riceLine(4)))
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
	assertAmount(t, "800", resp.TotalAmount)
	assert.Equal(t, 2, f.quantity(t, 3))
}

func TestCreateSaleRejectsTamperedAmounts(t *testing.T) {
	ctx := context.Background()

	t.Run("price", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.sales.CreateSale(ctx, cart("0", SaleItemRequest{ProductID: 3, Quantity: 1, PriceAtSale: dp("1")}))
		var verr *models.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "items[0].priceAtSale", verr.Field)
		assert.Equal(t, 10, f.quantity(t, 3))
	})

	t.Run("cost", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.sales.CreateSale(ctx, cart("0", SaleItemRequest{ProductID: 3, Quantity: 1, CostAtSale: dp("10")}))
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("total", func(t *testing.T) {
		f := newFixture(t, nil)
		req := cart("0", riceLine(2))
		req.TotalAmount = dp("20")
		_, err := f.sales.CreateSale(ctx, req)
		assert.ErrorIs(t, err, models.ErrValidation)
		assert.Equal(t, 0, f.ledger.SaleCount())
	})

	t.Run("rounding within a cent", func(t *testing.T) {
		f := newFixture(t, nil)
		req := cart("0", SaleItemRequest{ProductID: 3, Quantity: 2, PriceAtSale: dp("100.01")})
		req.TotalAmount = dp("199.99")
		resp, err := f.sales.CreateSale(ctx, req)
		require.NoError(t, err)
		assertAmount(t, "200", resp.TotalAmount)
	})
}

func TestCreateSaleValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *CreateSaleRequest
		want error
	}{
		{"empty cart", cart("0"), models.ErrValidation},
		{"zero quantity", cart("0", riceLine(0)), models.ErrValidation},
		{"negative payment", cart("-1", riceLine(1)), models.ErrValidation},
		{"fractional payment", cart("199.995", riceLine(2)), models.ErrValidation},
		{"fractional price", cart("0", SaleItemRequest{ProductID: 3, Quantity: 1, PriceAtSale: dp("100.004")}), models.ErrValidation},
		{"unknown customer", &CreateSaleRequest{CustomerID: 99, Items: []SaleItemRequest{riceLine(1)}}, models.ErrNotFound},
		{"unknown product", cart("0", SaleItemRequest{ProductID: 42, Quantity: 1}), models.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sales.CreateSale(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, 0, f.ledger.SaleCount())
	assert.Equal(t, 10, f.quantity(t, 3))
}

func TestCreateSaleArchivedProduct(t *testing.T) {
	f := newFixture(t, nil)
	p, _ := f.ledger.Product(4)
	now := p.CreatedAt
	p.ArchivedAt = &now
	f.ledger.PutProduct(p)

	_, err := f.sales.CreateSale(context.Background(), cart("0", SaleItemRequest{ProductID: 4, Quantity: 1}))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateSaleIdempotentReplay(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	req := cart("50", riceLine(2))
	req.IdempotencyKey = "checkout-1"

	first, err := f.sales.CreateSale(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := f.sales.CreateSale(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.SaleID, second.SaleID)
	assertAmount(t, "50", second.AmountPaid)
	assert.Len(t, second.Items, 1)

	assert.Equal(t, 1, f.ledger.SaleCount())
	assert.Equal(t, 8, f.quantity(t, 3))
	assert.Len(t, f.publisher.sales, 1)
}

func TestCreateSaleConservesStock(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sold := 0
	for _, qty := range []int{1, 3, 2, 5, 4} {
		resp, err := f.sales.CreateSale(ctx, cart("0", riceLine(qty)))
		if errors.Is(err, models.ErrInsufficientStock) {
			continue
		}
		require.NoError(t, err)
		for _, it := range f.ledger.Items(resp.SaleID) {
			sold += it.Quantity
		}
	}

	assert.Equal(t, 10, f.quantity(t, 3)+sold)
	assert.GreaterOrEqual(t, f.quantity(t, 3), 0)
}

func TestCreateSalePublishesAndCaches(t *testing.T) {
	cache := newRedis(t)
	f := newFixture(t, cache)
	ctx := context.Background()

	resp, err := f.sales.CreateSale(ctx, cart("0", riceLine(2), SaleItemRequest{ProductID: 4, Quantity: 1}))
	require.NoError(t, err)

	require.Len(t, f.publisher.sales, 1)
	event := f.publisher.sales[0]
	assert.Equal(t, models.EventTypeSaleCreated, event.EventType)
	assert.Equal(t, resp.SaleID, event.SaleID)
	assert.Len(t, event.Items, 2)

	require.Len(t, f.publisher.stock, 2)
	assert.Equal(t, models.StockReasonSale, f.publisher.stock[0].Reason)
	assert.Equal(t, -2, f.publisher.stock[0].Delta)

	qty, found, err := cache.GetStock(ctx, 3)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 8, qty)

	qty, _, err = cache.GetStock(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, qty)
}
