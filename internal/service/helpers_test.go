package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/store/memstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s", want, got)
}

type recordingPublisher struct {
	mu       sync.Mutex
	sales    []*models.SaleCreatedEvent
	payments []*models.PaymentRecordedEvent
	stock    []*models.StockAdjustedEvent
}

func (p *recordingPublisher) PublishSaleCreated(_ context.Context, e *models.SaleCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sales = append(p.sales, e)
	return nil
}

func (p *recordingPublisher) PublishPaymentRecorded(_ context.Context, e *models.PaymentRecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payments = append(p.payments, e)
	return nil
}

func (p *recordingPublisher) PublishStockAdjusted(_ context.Context, e *models.StockAdjustedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stock = append(p.stock, e)
	return nil
}

func newRedis(t *testing.T) *redisclient.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redisclient.NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

// fixture seeds customer 7 and products 3 (qty 10, 100/60) and 4 (qty 5, 20/12)
type fixture struct {
	ledger    *memstore.Store
	publisher *recordingPublisher
	stock     *StockManager
	sales     *SaleService
	payments  *PaymentLedger
}

func newFixture(t *testing.T, cache *redisclient.Client) *fixture {
	t.Helper()

	ledger := memstore.New()
	ledger.PutCustomer(models.Customer{ID: 7, Name: "Rina"})
	ledger.PutProduct(models.Product{ID: 3, Name: "Rice 5kg", Quantity: 10, Price: d("100"), Cost: d("60"), StockVersion: 1})
	ledger.PutProduct(models.Product{ID: 4, Name: "Cooking oil", Quantity: 5, Price: d("20"), Cost: d("12"), StockVersion: 1})

	publisher := &recordingPublisher{}

	var stockCache StockCache
	var idem IdempotencyStore
	if cache != nil {
		stockCache = cache
		idem = cache
	}

	stock := NewStockManager(ledger, stockCache, publisher)
	return &fixture{
		ledger:    ledger,
		publisher: publisher,
		stock:     stock,
		sales:     NewSaleService(ledger, stock, publisher),
		payments:  NewPaymentLedger(ledger, idem, publisher, time.Hour),
	}
}

func (f *fixture) quantity(t *testing.T, productID int64) int {
	t.Helper()
	p, ok := f.ledger.Product(productID)
	require.True(t, ok)
	return p.Quantity
}

func cart(paid string, items ...SaleItemRequest) *CreateSaleRequest {
	return &CreateSaleRequest{CustomerID: 7, Items: items, AmountPaid: d(paid)}
}
