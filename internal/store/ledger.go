package store

import (
	"context"
	"time"

	"inventory-service/internal/models"

	"github.com/shopspring/decimal"
)

// Ledger is the transactional surface used by the stock, sale and payment
// engines. Every write happens through a Tx obtained from WithTx.
type Ledger interface {
	WithTx(ctx context.Context, fn func(Tx) error) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetSaleView(ctx context.Context, id int64) (*models.SaleView, error)
	GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error)
	GetSaleItems(ctx context.Context, saleID int64) ([]models.SaleItem, error)
}

// Tx is a unit of work. Row locks taken through it are held until the
// enclosing WithTx returns.
type Tx interface {
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	// LockProducts locks the given products in ascending id order.
	LockProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
	// AdjustStock applies delta only when the result stays >= 0.
	AdjustStock(ctx context.Context, productID int64, delta int) (*models.Product, error)
	InsertSale(ctx context.Context, sale *models.Sale) error
	InsertSaleItem(ctx context.Context, item *models.SaleItem) error
	GetSaleForUpdate(ctx context.Context, id int64) (*models.Sale, error)
	UpdateSalePayment(ctx context.Context, saleID int64, amountPaid decimal.Decimal, status models.PaymentStatus) error
}

// Catalog covers product and customer maintenance
type Catalog interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, search string, page models.Page) ([]models.Product, int, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	ArchiveProduct(ctx context.Context, id int64) error
	CountLowStock(ctx context.Context, threshold int) (int, error)

	CreateCustomer(ctx context.Context, c *models.Customer) error
	GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error)
	ListCustomers(ctx context.Context, search string, page models.Page) ([]models.Customer, int, error)
	UpdateCustomer(ctx context.Context, c *models.Customer) error
	ArchiveCustomer(ctx context.Context, id int64) error
}

// Reports covers the read-only sales queries
type Reports interface {
	GetSaleDetail(ctx context.Context, id int64) (*models.SaleDetail, error)
	ListSales(ctx context.Context, filter models.ReportFilter, page models.Page) ([]models.SaleView, int, error)
	ListSaleItems(ctx context.Context, saleIDs []int64) (map[int64][]models.SaleItemView, error)
	ListOutstandingSales(ctx context.Context, page models.Page) ([]models.SaleView, int, error)
	ListRecentSales(ctx context.Context, limit int) ([]models.SaleView, error)
	SalesSummary(ctx context.Context, filter models.ReportFilter) ([]models.SalesSummaryRow, error)
	SalesByProduct(ctx context.Context, filter models.ReportFilter) ([]models.ProductSalesRow, error)
	SalesByCustomer(ctx context.Context, filter models.ReportFilter) ([]models.CustomerSalesRow, error)
	SalesTotalBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	DailySales(ctx context.Context, from, to time.Time) ([]models.DailySales, error)
	CountOutstandingCustomers(ctx context.Context) (int, error)
	CountProducts(ctx context.Context) (int, error)
	CountCustomers(ctx context.Context) (int, error)
	CountLowStock(ctx context.Context, threshold int) (int, error)
	GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error)
}

var (
	_ Ledger  = (*Store)(nil)
	_ Catalog = (*Store)(nil)
	_ Reports = (*Store)(nil)
)
