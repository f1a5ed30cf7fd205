package models

import "github.com/shopspring/decimal"

// PaymentStatus is the settlement state of a sale
type PaymentStatus string

// Payment statuses
const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Settled reports whether the status is terminal.
func (s PaymentStatus) Settled() bool {
	return s == PaymentStatusPaid
}

// ClassifyPayment derives the status from amountPaid vs totalAmount.
// A zero-total sale is paid.
func ClassifyPayment(amountPaid, totalAmount decimal.Decimal) PaymentStatus {
	switch {
	case amountPaid.GreaterThanOrEqual(totalAmount):
		return PaymentStatusPaid
	case amountPaid.IsPositive():
		return PaymentStatusPartial
	default:
		return PaymentStatusUnpaid
	}
}

// MoneyPlaces is the scale of every stored amount, NUMERIC(14,2).
const MoneyPlaces = 2

// RoundMoney rounds d to the stored scale.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// WholeCents reports whether d is stored without rounding.
func WholeCents(d decimal.Decimal) bool {
	return d.Equal(RoundMoney(d))
}

// ClampPayment rounds amount to cents and bounds it to [0, totalAmount], so
// the status is classified on the value that gets stored.
func ClampPayment(amount, totalAmount decimal.Decimal) decimal.Decimal {
	amount = RoundMoney(amount)
	totalAmount = RoundMoney(totalAmount)
	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(totalAmount) {
		return totalAmount
	}
	return amount
}

// ApplyPayment adds received to paid, capped at totalAmount, and returns the
// new amount with its status.
func ApplyPayment(amountPaid, received, totalAmount decimal.Decimal) (decimal.Decimal, PaymentStatus) {
	newPaid := ClampPayment(amountPaid.Add(received), totalAmount)
	return newPaid, ClassifyPayment(newPaid, totalAmount)
}
