package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	productColumns  = "id, name, quantity, price, cost, stock_version, archived_at, created_at"
	customerColumns = "id, name, phone, address, archived_at, created_at"
	saleColumns     = "id, customer_id, sale_date, total_amount, total_cost, amount_paid, payment_status, idempotency_key"
)

// sqlTx implements Tx on top of a sqlx transaction
type sqlTx struct {
	tx *sqlx.Tx
}

// GetCustomer retrieves an active customer
func (t *sqlTx) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	err := t.tx.GetContext(ctx, &customer,
		"SELECT "+customerColumns+" FROM customers WHERE id = $1 AND archived_at IS NULL", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError("customer", id)
	}
	if err != nil {
		return nil, mapError("get customer", err)
	}
	return &customer, nil
}

// LockProducts locks active products FOR UPDATE in ascending id order so that
// carts sharing products always acquire row locks in the same sequence.
func (t *sqlTx) LockProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	unique := uniqueSorted(ids)
	if len(unique) == 0 {
		return map[int64]*models.Product{}, nil
	}

	var products []models.Product
	err := t.tx.SelectContext(ctx, &products,
		"SELECT "+productColumns+" FROM products WHERE id = ANY($1) AND archived_at IS NULL ORDER BY id FOR UPDATE",
		pq.Array(unique))
	if err != nil {
		return nil, mapError("lock products", err)
	}

	locked := make(map[int64]*models.Product, len(products))
	for i := range products {
		locked[products[i].ID] = &products[i]
	}
	for _, id := range unique {
		if _, ok := locked[id]; !ok {
			return nil, models.NewNotFoundError("product", id)
		}
	}
	return locked, nil
}

// AdjustStock applies delta with a conditional update. Zero affected rows is
// always an error, never a warning.
func (t *sqlTx) AdjustStock(ctx context.Context, productID int64, delta int) (*models.Product, error) {
	var product models.Product
	err := t.tx.GetContext(ctx, &product, `
		UPDATE products
		SET quantity = quantity + $1, stock_version = stock_version + 1
		WHERE id = $2 AND archived_at IS NULL AND quantity + $1 >= 0
		RETURNING `+productColumns,
		delta, productID)
	if err == nil {
		return &product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, mapError("adjust stock", err)
	}

	var available int
	err = t.tx.GetContext(ctx, &available,
		"SELECT quantity FROM products WHERE id = $1 AND archived_at IS NULL", productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError("product", productID)
	}
	if err != nil {
		return nil, mapError("read stock", err)
	}
	return nil, &models.InsufficientStockError{ProductID: productID, Available: available, Requested: -delta}
}

// InsertSale creates the sale row and fills in ID and SaleDate
func (t *sqlTx) InsertSale(ctx context.Context, sale *models.Sale) error {
	row := t.tx.QueryRowxContext(ctx, `
		INSERT INTO sales (customer_id, total_amount, total_cost, amount_paid, payment_status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, sale_date`,
		sale.CustomerID, sale.TotalAmount, sale.TotalCost, sale.AmountPaid, sale.PaymentStatus, sale.IdempotencyKey)
	if err := row.Scan(&sale.ID, &sale.SaleDate); err != nil {
		if isUniqueViolation(err, idempotencyKeyConstraint) {
			return fmt.Errorf("%w: idempotency key already used", models.ErrConflict)
		}
		return mapError("insert sale", err)
	}
	return nil
}

// InsertSaleItem creates one line item
func (t *sqlTx) InsertSaleItem(ctx context.Context, item *models.SaleItem) error {
	query := `
		INSERT INTO sale_items (sale_id, product_id, quantity, price_at_sale, cost_at_sale)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := t.tx.GetContext(ctx, &item.ID, query,
		item.SaleID, item.ProductID, item.Quantity, item.PriceAtSale, item.CostAtSale)
	return mapError("insert sale item", err)
}

// GetSaleForUpdate locks the sale row for the rest of the transaction
func (t *sqlTx) GetSaleForUpdate(ctx context.Context, id int64) (*models.Sale, error) {
	var sale models.Sale
	err := t.tx.GetContext(ctx, &sale, "SELECT "+saleColumns+" FROM sales WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError("sale", id)
	}
	if err != nil {
		return nil, mapError("lock sale", err)
	}
	return &sale, nil
}

// UpdateSalePayment writes the two mutable payment fields
func (t *sqlTx) UpdateSalePayment(ctx context.Context, saleID int64, amountPaid decimal.Decimal, status models.PaymentStatus) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE sales SET amount_paid = $1, payment_status = $2 WHERE id = $3",
		amountPaid, status, saleID)
	if err != nil {
		return mapError("update sale payment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError("update sale payment", err)
	}
	if n == 0 {
		return models.NewNotFoundError("sale", saleID)
	}
	return nil
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
