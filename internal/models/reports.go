package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportFilter narrows report queries by sale date (inclusive days) and customer
type ReportFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	CustomerID *int64
}

// SalesSummaryRow is one sale in the summary report
type SalesSummaryRow struct {
	SaleView
	ItemsSold string `db:"items_sold" json:"items_sold"`
}

// ProductSalesRow aggregates line items per product
type ProductSalesRow struct {
	ProductID         int64           `db:"product_id" json:"product_id"`
	ProductName       string          `db:"product_name" json:"product_name"`
	TotalQuantitySold int             `db:"total_quantity_sold" json:"total_quantity_sold"`
	TotalRevenue      decimal.Decimal `db:"total_revenue" json:"total_revenue"`
	TotalCostOfGoods  decimal.Decimal `db:"total_cost_of_goods" json:"total_cost_of_goods_sold"`
	TotalProfit       decimal.Decimal `db:"total_profit" json:"total_profit"`
}

// CustomerSalesRow aggregates sales per customer
type CustomerSalesRow struct {
	CustomerID       int64           `db:"customer_id" json:"customer_id"`
	CustomerName     string          `db:"customer_name" json:"customer_name"`
	CustomerPhone    *string         `db:"customer_phone" json:"customer_phone"`
	TotalOrders      int             `db:"total_orders" json:"total_orders"`
	TotalSalesAmount decimal.Decimal `db:"total_sales_amount" json:"total_sales_amount"`
	TotalSalesCost   decimal.Decimal `db:"total_sales_cost" json:"total_sales_cost"`
	TotalProfit      decimal.Decimal `db:"total_profit" json:"total_profit"`
}

// DailySales is one point of the sales chart
type DailySales struct {
	Date  string          `db:"sale_day" json:"date"`
	Sales decimal.Decimal `db:"daily_sales" json:"sales"`
}

// CustomerSalesHistory is a customer with a page of their sales
type CustomerSalesHistory struct {
	Customer *Customer                `json:"customer"`
	Sales    PagedResult[*SaleDetail] `json:"sales"`
}

// Dashboard aggregates the widgets shown on the landing page
type Dashboard struct {
	ProductCount         int             `json:"product_count"`
	CustomerCount        int             `json:"customer_count"`
	TodaySales           decimal.Decimal `json:"today_sales"`
	LowStockCount        int             `json:"low_stock_count"`
	OutstandingCustomers int             `json:"outstanding_customers"`
	WeeklySales          []DailySales    `json:"weekly_sales"`
	RecentSales          []SaleView      `json:"recent_sales"`
	GeneratedAt          time.Time       `json:"generated_at"`
}
