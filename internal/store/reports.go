package store

import (
	"context"
	"time"

	"inventory-service/internal/models"

	"github.com/shopspring/decimal"
)

// SalesSummary lists sales with a one-line description of the items sold
func (s *Store) SalesSummary(ctx context.Context, filter models.ReportFilter) ([]models.SalesSummaryRow, error) {
	where, args := filterClause(filter)
	query := `
		SELECT s.id, s.sale_date, s.total_amount, s.total_cost, s.amount_paid, s.payment_status,
		       s.total_amount - s.total_cost AS profit,
		       s.total_amount - s.amount_paid AS balance_due,
		       c.id AS customer_id, c.name AS customer_name,
		       c.phone AS customer_phone, c.address AS customer_address,
		       COALESCE(string_agg(p.name || ' x' || si.quantity || ' @ ' || si.price_at_sale, ', ' ORDER BY si.id), '') AS items_sold
		FROM sales s
		LEFT JOIN customers c ON s.customer_id = c.id
		LEFT JOIN sale_items si ON si.sale_id = s.id
		LEFT JOIN products p ON si.product_id = p.id` + where + `
		GROUP BY s.id, c.id
		ORDER BY s.sale_date DESC, s.id DESC`

	var rows []models.SalesSummaryRow
	err := s.db.SelectContext(ctx, &rows, query, args...)
	return rows, mapError("sales summary", err)
}

// SalesByProduct aggregates revenue, cost and profit per product
func (s *Store) SalesByProduct(ctx context.Context, filter models.ReportFilter) ([]models.ProductSalesRow, error) {
	where, args := filterClause(models.ReportFilter{StartDate: filter.StartDate, EndDate: filter.EndDate})
	query := `
		SELECT p.id AS product_id, p.name AS product_name,
		       SUM(si.quantity) AS total_quantity_sold,
		       SUM(si.quantity * si.price_at_sale) AS total_revenue,
		       SUM(si.quantity * si.cost_at_sale) AS total_cost_of_goods,
		       SUM(si.quantity * si.price_at_sale) - SUM(si.quantity * si.cost_at_sale) AS total_profit
		FROM sale_items si
		JOIN products p ON si.product_id = p.id
		JOIN sales s ON si.sale_id = s.id` + where + `
		GROUP BY p.id, p.name
		ORDER BY total_profit DESC, total_quantity_sold DESC`

	var rows []models.ProductSalesRow
	err := s.db.SelectContext(ctx, &rows, query, args...)
	return rows, mapError("sales by product", err)
}

// SalesByCustomer aggregates order count and totals per customer
func (s *Store) SalesByCustomer(ctx context.Context, filter models.ReportFilter) ([]models.CustomerSalesRow, error) {
	where, args := filterClause(models.ReportFilter{StartDate: filter.StartDate, EndDate: filter.EndDate})
	query := `
		SELECT c.id AS customer_id, c.name AS customer_name, c.phone AS customer_phone,
		       COUNT(s.id) AS total_orders,
		       SUM(s.total_amount) AS total_sales_amount,
		       SUM(s.total_cost) AS total_sales_cost,
		       SUM(s.total_amount) - SUM(s.total_cost) AS total_profit
		FROM sales s
		JOIN customers c ON s.customer_id = c.id` + where + `
		GROUP BY c.id, c.name, c.phone
		ORDER BY total_sales_amount DESC, total_orders DESC`

	var rows []models.CustomerSalesRow
	err := s.db.SelectContext(ctx, &rows, query, args...)
	return rows, mapError("sales by customer", err)
}

// SalesTotalBetween sums sale totals in [from, to)
func (s *Store) SalesTotalBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(total_amount), 0) FROM sales WHERE sale_date >= $1 AND sale_date < $2", from, to)
	return total, mapError("sales total", err)
}

// DailySales sums sale totals per calendar day, days without sales omitted
func (s *Store) DailySales(ctx context.Context, from, to time.Time) ([]models.DailySales, error) {
	var rows []models.DailySales
	err := s.db.SelectContext(ctx, &rows, `
		SELECT to_char(sale_date::date, 'YYYY-MM-DD') AS sale_day, SUM(total_amount) AS daily_sales
		FROM sales
		WHERE sale_date::date BETWEEN $1::date AND $2::date
		GROUP BY sale_date::date
		ORDER BY sale_date::date`,
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	return rows, mapError("daily sales", err)
}
