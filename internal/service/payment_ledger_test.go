package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/store/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPartialSale(t *testing.T, f *fixture) int64 {
	t.Helper()
	req := cart("50", riceLine(2))
	req.TotalAmount = dp("200")
	resp, err := f.sales.CreateSale(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPartial, resp.PaymentStatus)
	return resp.SaleID
}

func TestRecordPaymentUntilSettled(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	saleID := newPartialSale(t, f)

	view, err := f.payments.RecordPayment(ctx, saleID, d("75"), "")
	require.NoError(t, err)
	assertAmount(t, "125", view.AmountPaid)
	assert.Equal(t, models.PaymentStatusPartial, view.PaymentStatus)
	assertAmount(t, "75", view.BalanceDue)
	require.NotNil(t, view.CustomerName)
	assert.Equal(t, "Rina", *view.CustomerName)

	view, err = f.payments.RecordPayment(ctx, saleID, d("100"), "")
	require.NoError(t, err)
	assertAmount(t, "200", view.AmountPaid)
	assert.Equal(t, models.PaymentStatusPaid, view.PaymentStatus)
	assertAmount(t, "80", view.Profit)

	_, err = f.payments.RecordPayment(ctx, saleID, d("10"), "")
	assert.ErrorIs(t, err, models.ErrAlreadySettled)

	sale, _ := f.ledger.Sale(saleID)
	assertAmount(t, "200", sale.AmountPaid)
	assert.Equal(t, models.PaymentStatusPaid, sale.PaymentStatus)

	require.Len(t, f.publisher.payments, 2)
	assertAmount(t, "100", f.publisher.payments[1].AmountReceived)
	assertAmount(t, "200", f.publisher.payments[1].AmountPaid)
}

func TestRecordPaymentRejectsBadInput(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	saleID := newPartialSale(t, f)

	for _, amount := range []decimal.Decimal{decimal.Zero, d("-5")} {
		_, err := f.payments.RecordPayment(ctx, saleID, amount, "")
		assert.ErrorIs(t, err, models.ErrInvalidAmount)
	}

	_, err := f.payments.RecordPayment(ctx, 999, d("10"), "")
	assert.ErrorIs(t, err, models.ErrNotFound)

	sale, _ := f.ledger.Sale(saleID)
	assertAmount(t, "50", sale.AmountPaid)
	assert.Equal(t, models.PaymentStatusPartial, sale.PaymentStatus)
	assert.Empty(t, f.publisher.payments)
}

func TestRecordPaymentConcurrentNeverOverpays(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	resp, err := f.sales.CreateSale(ctx, cart("0", riceLine(2)))
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		applied  int
		rejected int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.payments.RecordPayment(ctx, resp.SaleID, d("15"), "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				applied++
			case errors.Is(err, models.ErrAlreadySettled):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 14, applied)
	assert.Equal(t, 6, rejected)

	sale, _ := f.ledger.Sale(resp.SaleID)
	assertAmount(t, "200", sale.AmountPaid)
	assert.Equal(t, models.PaymentStatusPaid, sale.PaymentStatus)
}

func TestRecordPaymentIdempotencyKey(t *testing.T) {
	cache := newRedis(t)
	f := newFixture(t, cache)
	ctx := context.Background()
	saleID := newPartialSale(t, f)

	first, err := f.payments.RecordPayment(ctx, saleID, d("30"), "pay-1")
	require.NoError(t, err)
	assertAmount(t, "80", first.AmountPaid)

	replayed, err := f.payments.RecordPayment(ctx, saleID, d("30"), "pay-1")
	require.NoError(t, err)
	assertAmount(t, "80", replayed.AmountPaid)
	assert.Len(t, f.publisher.payments, 1)

	// another request still holds the key
	ok, err := cache.ReserveIdempotencyKey(ctx, paymentKey(saleID, "pay-2"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = f.payments.RecordPayment(ctx, saleID, d("30"), "pay-2")
	assert.ErrorIs(t, err, models.ErrConflict)

	sale, _ := f.ledger.Sale(saleID)
	assertAmount(t, "80", sale.AmountPaid)
}

func TestRecordPaymentKeyIsScopedToSale(t *testing.T) {
	cache := newRedis(t)
	f := newFixture(t, cache)
	ctx := context.Background()
	first := newPartialSale(t, f)
	second := newPartialSale(t, f)

	view, err := f.payments.RecordPayment(ctx, first, d("30"), "till-7")
	require.NoError(t, err)
	assert.Equal(t, first, view.ID)

	view, err = f.payments.RecordPayment(ctx, second, d("40"), "till-7")
	require.NoError(t, err)
	assert.Equal(t, second, view.ID)
	assertAmount(t, "90", view.AmountPaid)

	sale, _ := f.ledger.Sale(first)
	assertAmount(t, "80", sale.AmountPaid)
	sale, _ = f.ledger.Sale(second)
	assertAmount(t, "90", sale.AmountPaid)
	assert.Len(t, f.publisher.payments, 2)
}

func TestRecordPaymentRejectsFractionalCents(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	resp, err := f.sales.CreateSale(ctx, cart("0", riceLine(2)))
	require.NoError(t, err)

	for _, amount := range []string{"0.001", "199.995"} {
		_, err := f.payments.RecordPayment(ctx, resp.SaleID, d(amount), "")
		assert.ErrorIs(t, err, models.ErrInvalidAmount, amount)
	}

	sale, _ := f.ledger.Sale(resp.SaleID)
	assert.True(t, sale.AmountPaid.IsZero())
	assert.Equal(t, models.PaymentStatusUnpaid, sale.PaymentStatus)

	view, err := f.payments.RecordPayment(ctx, resp.SaleID, d("0.50"), "")
	require.NoError(t, err)
	assertAmount(t, "0.5", view.AmountPaid)
	assert.Equal(t, models.PaymentStatusPartial, view.PaymentStatus)
}

// viewlessLedger commits normally but cannot read sale views back
type viewlessLedger struct {
	*memstore.Store
}

func (viewlessLedger) GetSaleView(context.Context, int64) (*models.SaleView, error) {
	return nil, models.StorageError("get sale view", errors.New("connection reset"))
}

func TestRecordPaymentAnswersFromCommittedRow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	saleID := newPartialSale(t, f)

	payments := NewPaymentLedger(viewlessLedger{f.ledger}, nil, nil, time.Hour)
	view, err := payments.RecordPayment(ctx, saleID, d("150"), "")
	require.NoError(t, err)
	assert.Equal(t, saleID, view.ID)
	assertAmount(t, "200", view.AmountPaid)
	assertAmount(t, "0", view.BalanceDue)
	assert.Equal(t, models.PaymentStatusPaid, view.PaymentStatus)

	sale, _ := f.ledger.Sale(saleID)
	assertAmount(t, "200", sale.AmountPaid)
}

func TestRecordPaymentReleasesKeyOnFailure(t *testing.T) {
	cache := newRedis(t)
	f := newFixture(t, cache)
	ctx := context.Background()

	_, err := f.payments.RecordPayment(ctx, 999, d("10"), "pay-3")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, done, err := cache.LookupIdempotencyKey(ctx, paymentKey(999, "pay-3"))
	require.NoError(t, err)
	assert.False(t, done)

	ok, err := cache.ReserveIdempotencyKey(ctx, paymentKey(999, "pay-3"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSaleRefRoundTrip(t *testing.T) {
	id, err := parseSaleRef(saleRef(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = parseSaleRef("garbage")
	assert.Error(t, err)
}
