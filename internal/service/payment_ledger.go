package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const paymentKeyPrefix = "payment:"

// PaymentLedger applies payments against outstanding sales
type PaymentLedger struct {
	ledger         store.Ledger
	idempotency    IdempotencyStore
	publisher      EventPublisher
	idempotencyTTL time.Duration
	logger         *zap.Logger
}

// NewPaymentLedger creates a new payment ledger. idempotency may be nil, in
// which case Idempotency-Key values are ignored.
func NewPaymentLedger(ledger store.Ledger, idempotency IdempotencyStore, publisher EventPublisher, idempotencyTTL time.Duration) *PaymentLedger {
	return &PaymentLedger{
		ledger:         ledger,
		idempotency:    idempotency,
		publisher:      publisher,
		idempotencyTTL: idempotencyTTL,
		logger:         util.GetLogger(),
	}
}

// RecordPaymentRequest is the body of a payment call
type RecordPaymentRequest struct {
	AmountReceived decimal.Decimal `json:"amountReceived" binding:"dgt0,dscale2"`
}

// RecordPayment adds amount to a sale's paid balance, capped at the sale
// total, and returns the updated projection. Rejected payments change nothing.
func (l *PaymentLedger) RecordPayment(ctx context.Context, saleID int64, amount decimal.Decimal, idempotencyKey string) (*models.SaleView, error) {
	ctx, span := util.StartSpan(ctx, "PaymentLedger.RecordPayment",
		attribute.Int64("sale_id", saleID),
		attribute.String("amount", amount.String()))
	defer span.End()

	if !amount.IsPositive() || !models.WholeCents(amount) {
		util.PaymentsRejectedTotal.WithLabelValues("invalid_amount").Inc()
		util.RecordError(span, models.ErrInvalidAmount)
		return nil, models.ErrInvalidAmount
	}

	key := ""
	if idempotencyKey != "" && l.idempotency != nil {
		key = paymentKey(saleID, idempotencyKey)
		view, claimed, err := l.claim(ctx, key)
		if err != nil || view != nil {
			return view, err
		}
		if !claimed {
			util.PaymentsRejectedTotal.WithLabelValues("conflict").Inc()
			return nil, fmt.Errorf("%w: payment with this idempotency key is in progress", models.ErrConflict)
		}
	}

	var (
		sale    *models.Sale
		newPaid decimal.Decimal
		status  models.PaymentStatus
	)
	err := l.ledger.WithTx(ctx, func(tx store.Tx) error {
		var err error
		sale, err = tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.PaymentStatus.Settled() {
			return fmt.Errorf("sale %d: %w", saleID, models.ErrAlreadySettled)
		}

		newPaid, status = models.ApplyPayment(sale.AmountPaid, amount, sale.TotalAmount)
		return tx.UpdateSalePayment(ctx, saleID, newPaid, status)
	})
	if err != nil {
		if key != "" {
			if relErr := l.idempotency.ReleaseIdempotencyKey(ctx, key); relErr != nil {
				util.CacheErrorsTotal.WithLabelValues("idempotency_release").Inc()
				l.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
			}
		}
		util.PaymentsRejectedTotal.WithLabelValues(failureReason(err)).Inc()
		util.RecordError(span, err)
		return nil, err
	}

	if key != "" {
		if err := l.idempotency.CompleteIdempotencyKey(ctx, key, saleRef(saleID), l.idempotencyTTL); err != nil {
			util.CacheErrorsTotal.WithLabelValues("idempotency_complete").Inc()
			l.logger.Warn("Failed to complete idempotency key", zap.String("key", key), zap.Error(err))
		}
	}

	util.PaymentsRecordedTotal.WithLabelValues(string(status)).Inc()
	l.logger.Info("Payment recorded",
		zap.Int64("sale_id", saleID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("amount_paid", newPaid.StringFixed(2)),
		zap.String("payment_status", string(status)))

	l.publishPaymentRecorded(ctx, saleID, amount, newPaid, status)

	view, err := l.ledger.GetSaleView(ctx, saleID)
	if err != nil {
		// the payment is committed; answer from the locked row
		l.logger.Warn("Failed to load sale view after payment",
			zap.Int64("sale_id", saleID),
			zap.Error(err))
		sale.AmountPaid = newPaid
		sale.PaymentStatus = status
		return models.NewSaleView(sale, nil), nil
	}
	return view, nil
}

// claim reserves key. A completed key yields the projection of the sale it
// was used for.
func (l *PaymentLedger) claim(ctx context.Context, key string) (*models.SaleView, bool, error) {
	claimed, err := l.idempotency.ReserveIdempotencyKey(ctx, key, l.idempotencyTTL)
	if err != nil {
		return nil, false, fmt.Errorf("%w: reserve idempotency key: %v", models.ErrStorage, err)
	}
	if claimed {
		return nil, true, nil
	}

	value, done, err := l.idempotency.LookupIdempotencyKey(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: lookup idempotency key: %v", models.ErrStorage, err)
	}
	if !done {
		return nil, false, nil
	}

	saleID, err := parseSaleRef(value)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}

	l.logger.Info("Duplicate payment request detected",
		zap.String("key", key),
		zap.Int64("sale_id", saleID))
	view, err := l.ledger.GetSaleView(ctx, saleID)
	if err != nil {
		return nil, false, err
	}
	return view, false, nil
}

func (l *PaymentLedger) publishPaymentRecorded(ctx context.Context, saleID int64, received, paid decimal.Decimal, status models.PaymentStatus) {
	if l.publisher == nil {
		return
	}
	event := &models.PaymentRecordedEvent{
		BaseEvent:      models.NewBaseEvent(models.EventTypePaymentRecorded),
		SaleID:         saleID,
		AmountReceived: received,
		AmountPaid:     paid,
		PaymentStatus:  status,
	}
	if err := l.publisher.PublishPaymentRecorded(ctx, event); err != nil {
		l.logger.Error("Failed to publish PaymentRecorded event",
			zap.Int64("sale_id", saleID),
			zap.Error(err))
	}
}

// paymentKey scopes a client key to one sale
func paymentKey(saleID int64, idempotencyKey string) string {
	return paymentKeyPrefix + strconv.FormatInt(saleID, 10) + ":" + idempotencyKey
}

func saleRef(saleID int64) string {
	return "sale:" + strconv.FormatInt(saleID, 10)
}

func parseSaleRef(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(value, "sale:"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed idempotency value %q", value)
	}
	return id, nil
}
