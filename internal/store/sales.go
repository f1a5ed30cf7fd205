package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const saleViewSelect = `
	SELECT s.id, s.sale_date, s.total_amount, s.total_cost, s.amount_paid, s.payment_status,
	       s.total_amount - s.total_cost AS profit,
	       s.total_amount - s.amount_paid AS balance_due,
	       c.id AS customer_id, c.name AS customer_name,
	       c.phone AS customer_phone, c.address AS customer_address
	FROM sales s
	LEFT JOIN customers c ON s.customer_id = c.id`

// GetSaleView retrieves the sale projection joined with its customer
func (s *Store) GetSaleView(ctx context.Context, id int64) (*models.SaleView, error) {
	var view models.SaleView
	err := s.db.GetContext(ctx, &view, saleViewSelect+" WHERE s.id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError("sale", id)
	}
	if err != nil {
		return nil, mapError("get sale", err)
	}
	return &view, nil
}

// GetSaleByIdempotencyKey retrieves a sale by idempotency key, nil if absent
func (s *Store) GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale, "SELECT "+saleColumns+" FROM sales WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError("get sale by idempotency key", err)
	}
	return &sale, nil
}

// GetSaleItems retrieves the raw line items of a sale in insertion order
func (s *Store) GetSaleItems(ctx context.Context, saleID int64) ([]models.SaleItem, error) {
	var items []models.SaleItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT id, sale_id, product_id, quantity, price_at_sale, cost_at_sale
		FROM sale_items WHERE sale_id = $1 ORDER BY id`, saleID)
	return items, mapError("get sale items", err)
}

// GetSaleDetail retrieves a sale with its line items
func (s *Store) GetSaleDetail(ctx context.Context, id int64) (*models.SaleDetail, error) {
	view, err := s.GetSaleView(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.ListSaleItems(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	detail := &models.SaleDetail{SaleView: *view, Items: items[id]}
	if detail.Items == nil {
		detail.Items = []models.SaleItemView{}
	}
	return detail, nil
}

type saleItemRow struct {
	SaleID int64 `db:"sale_id"`
	models.SaleItemView
}

// ListSaleItems retrieves line items for several sales, grouped by sale
func (s *Store) ListSaleItems(ctx context.Context, saleIDs []int64) (map[int64][]models.SaleItemView, error) {
	grouped := make(map[int64][]models.SaleItemView, len(saleIDs))
	if len(saleIDs) == 0 {
		return grouped, nil
	}

	query, args, err := sqlx.In(`
		SELECT si.sale_id, si.id, si.product_id, p.name AS product_name, si.quantity,
		       si.price_at_sale, si.cost_at_sale, si.quantity * si.price_at_sale AS subtotal
		FROM sale_items si
		JOIN products p ON si.product_id = p.id
		WHERE si.sale_id IN (?)
		ORDER BY si.sale_id, si.id`, saleIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var rows []saleItemRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("list sale items", err)
	}
	for _, r := range rows {
		grouped[r.SaleID] = append(grouped[r.SaleID], r.SaleItemView)
	}
	return grouped, nil
}

// ListSales pages through sales newest first
func (s *Store) ListSales(ctx context.Context, filter models.ReportFilter, page models.Page) ([]models.SaleView, int, error) {
	where, args := filterClause(filter)

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM sales s"+where, args...); err != nil {
		return nil, 0, mapError("count sales", err)
	}

	query, args := paginate(saleViewSelect+where+" ORDER BY s.sale_date DESC, s.id DESC", args, page)
	var sales []models.SaleView
	if err := s.db.SelectContext(ctx, &sales, query, args...); err != nil {
		return nil, 0, mapError("list sales", err)
	}
	return sales, total, nil
}

// ListOutstandingSales pages through sales that still carry a balance
func (s *Store) ListOutstandingSales(ctx context.Context, page models.Page) ([]models.SaleView, int, error) {
	const where = " WHERE s.payment_status <> 'paid'"

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM sales s"+where); err != nil {
		return nil, 0, mapError("count outstanding sales", err)
	}

	query, args := paginate(saleViewSelect+where+" ORDER BY s.sale_date DESC, s.id DESC", nil, page)
	var sales []models.SaleView
	if err := s.db.SelectContext(ctx, &sales, query, args...); err != nil {
		return nil, 0, mapError("list outstanding sales", err)
	}
	return sales, total, nil
}

// ListRecentSales returns the latest sales
func (s *Store) ListRecentSales(ctx context.Context, limit int) ([]models.SaleView, error) {
	var sales []models.SaleView
	err := s.db.SelectContext(ctx, &sales, saleViewSelect+" ORDER BY s.sale_date DESC, s.id DESC LIMIT $1", limit)
	return sales, mapError("list recent sales", err)
}

// CountOutstandingCustomers counts customers owing on at least one sale
func (s *Store) CountOutstandingCustomers(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(DISTINCT customer_id) FROM sales WHERE payment_status <> 'paid'")
	return n, mapError("count outstanding customers", err)
}

// filterClause builds a WHERE clause over the sales alias "s"
func filterClause(filter models.ReportFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.StartDate != nil {
		args = append(args, filter.StartDate.Format("2006-01-02"))
		conditions = append(conditions, "s.sale_date::date >= $"+itoa(len(args))+"::date")
	}
	if filter.EndDate != nil {
		args = append(args, filter.EndDate.Format("2006-01-02"))
		conditions = append(conditions, "s.sale_date::date <= $"+itoa(len(args))+"::date")
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conditions = append(conditions, "s.customer_id = $"+itoa(len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
