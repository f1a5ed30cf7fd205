package service

import (
	"context"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DashboardCacheKey holds the cached dashboard JSON
const DashboardCacheKey = "dashboard:summary"

const (
	defaultRecentSales = 5
	maxRecentSales     = 50
	chartDays          = 7
)

// ReportService serves the read-only sales views
type ReportService struct {
	reports           store.Reports
	cache             JSONCache
	lowStockThreshold int
	dashboardTTL      time.Duration
	now               func() time.Time
	logger            *zap.Logger
}

// NewReportService creates a new report service. cache may be nil.
func NewReportService(reports store.Reports, cache JSONCache, lowStockThreshold int, dashboardTTL time.Duration) *ReportService {
	return &ReportService{
		reports:           reports,
		cache:             cache,
		lowStockThreshold: lowStockThreshold,
		dashboardTTL:      dashboardTTL,
		now:               time.Now,
		logger:            util.GetLogger(),
	}
}

// SalesHistory pages through sales with their line items
func (s *ReportService) SalesHistory(ctx context.Context, filter models.ReportFilter, page models.Page) (models.PagedResult[*models.SaleDetail], error) {
	sales, total, err := s.reports.ListSales(ctx, filter, page)
	if err != nil {
		return models.PagedResult[*models.SaleDetail]{}, err
	}

	details, err := s.attachItems(ctx, sales)
	if err != nil {
		return models.PagedResult[*models.SaleDetail]{}, err
	}
	return models.NewPagedResult(details, page, total), nil
}

func (s *ReportService) attachItems(ctx context.Context, sales []models.SaleView) ([]*models.SaleDetail, error) {
	if len(sales) == 0 {
		return []*models.SaleDetail{}, nil
	}

	ids := make([]int64, 0, len(sales))
	for _, sale := range sales {
		ids = append(ids, sale.ID)
	}
	items, err := s.reports.ListSaleItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	details := make([]*models.SaleDetail, 0, len(sales))
	for _, sale := range sales {
		lines := items[sale.ID]
		if lines == nil {
			lines = []models.SaleItemView{}
		}
		details = append(details, &models.SaleDetail{SaleView: sale, Items: lines})
	}
	return details, nil
}

// SaleDetail returns one sale with its line items
func (s *ReportService) SaleDetail(ctx context.Context, id int64) (*models.SaleDetail, error) {
	return s.reports.GetSaleDetail(ctx, id)
}

// OutstandingSales pages through sales with a balance due
func (s *ReportService) OutstandingSales(ctx context.Context, page models.Page) (models.PagedResult[models.SaleView], error) {
	sales, total, err := s.reports.ListOutstandingSales(ctx, page)
	if err != nil {
		return models.PagedResult[models.SaleView]{}, err
	}
	return models.NewPagedResult(sales, page, total), nil
}

// RecentSales returns the latest sales, limit clamped to [1, 50]
func (s *ReportService) RecentSales(ctx context.Context, limit int) ([]models.SaleView, error) {
	if limit <= 0 {
		limit = defaultRecentSales
	}
	if limit > maxRecentSales {
		limit = maxRecentSales
	}
	sales, err := s.reports.ListRecentSales(ctx, limit)
	if err != nil {
		return nil, err
	}
	if sales == nil {
		sales = []models.SaleView{}
	}
	return sales, nil
}

// CustomerSales returns a customer with a page of their sales
func (s *ReportService) CustomerSales(ctx context.Context, customerID int64, page models.Page) (*models.CustomerSalesHistory, error) {
	customer, err := s.reports.GetCustomerByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	history, err := s.SalesHistory(ctx, models.ReportFilter{CustomerID: &customerID}, page)
	if err != nil {
		return nil, err
	}
	return &models.CustomerSalesHistory{Customer: customer, Sales: history}, nil
}

// CountOutstandingCustomers counts customers with an unpaid balance
func (s *ReportService) CountOutstandingCustomers(ctx context.Context) (int, error) {
	return s.reports.CountOutstandingCustomers(ctx)
}

// SalesSummary lists sales with their items in the filter window
func (s *ReportService) SalesSummary(ctx context.Context, filter models.ReportFilter) ([]models.SalesSummaryRow, error) {
	rows, err := s.reports.SalesSummary(ctx, filter)
	if rows == nil && err == nil {
		rows = []models.SalesSummaryRow{}
	}
	return rows, err
}

// SalesByProduct aggregates units, revenue and profit per product
func (s *ReportService) SalesByProduct(ctx context.Context, filter models.ReportFilter) ([]models.ProductSalesRow, error) {
	rows, err := s.reports.SalesByProduct(ctx, filter)
	if rows == nil && err == nil {
		rows = []models.ProductSalesRow{}
	}
	return rows, err
}

// SalesByCustomer aggregates orders, revenue and profit per customer
func (s *ReportService) SalesByCustomer(ctx context.Context, filter models.ReportFilter) ([]models.CustomerSalesRow, error) {
	rows, err := s.reports.SalesByCustomer(ctx, filter)
	if rows == nil && err == nil {
		rows = []models.CustomerSalesRow{}
	}
	return rows, err
}

// TodaySales sums sale totals since local midnight
func (s *ReportService) TodaySales(ctx context.Context) (decimal.Decimal, error) {
	start := startOfDay(s.now())
	return s.reports.SalesTotalBetween(ctx, start, start.AddDate(0, 0, 1))
}

// WeeklySalesChart returns one point per day for the last seven days,
// today included. Days without sales report zero.
func (s *ReportService) WeeklySalesChart(ctx context.Context) ([]models.DailySales, error) {
	today := startOfDay(s.now())
	from := today.AddDate(0, 0, -(chartDays - 1))

	rows, err := s.reports.DailySales(ctx, from, today)
	if err != nil {
		return nil, err
	}
	return fillDays(rows, from, chartDays), nil
}

func fillDays(rows []models.DailySales, from time.Time, days int) []models.DailySales {
	byDay := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		byDay[r.Date] = r.Sales
	}

	out := make([]models.DailySales, 0, days)
	for i := 0; i < days; i++ {
		day := from.AddDate(0, 0, i).Format("2006-01-02")
		sales, ok := byDay[day]
		if !ok {
			sales = decimal.Zero
		}
		out = append(out, models.DailySales{Date: day, Sales: sales})
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Dashboard returns the landing page widgets, cached for dashboardTTL
func (s *ReportService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	if s.cache != nil {
		var cached models.Dashboard
		found, err := s.cache.GetJSON(ctx, DashboardCacheKey, &cached)
		if err != nil {
			util.CacheErrorsTotal.WithLabelValues("get_dashboard").Inc()
			s.logger.Warn("Failed to read dashboard cache", zap.Error(err))
		} else if found {
			return &cached, nil
		}
	}

	d, err := s.buildDashboard(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, DashboardCacheKey, d, s.dashboardTTL); err != nil {
			util.CacheErrorsTotal.WithLabelValues("set_dashboard").Inc()
			s.logger.Warn("Failed to write dashboard cache", zap.Error(err))
		}
	}
	return d, nil
}

func (s *ReportService) buildDashboard(ctx context.Context) (*models.Dashboard, error) {
	var (
		d   = &models.Dashboard{GeneratedAt: s.now().UTC()}
		err error
	)

	if d.ProductCount, err = s.reports.CountProducts(ctx); err != nil {
		return nil, err
	}
	if d.CustomerCount, err = s.reports.CountCustomers(ctx); err != nil {
		return nil, err
	}
	if d.TodaySales, err = s.TodaySales(ctx); err != nil {
		return nil, err
	}
	if d.LowStockCount, err = s.reports.CountLowStock(ctx, s.lowStockThreshold); err != nil {
		return nil, err
	}
	if d.OutstandingCustomers, err = s.reports.CountOutstandingCustomers(ctx); err != nil {
		return nil, err
	}
	if d.WeeklySales, err = s.WeeklySalesChart(ctx); err != nil {
		return nil, err
	}
	if d.RecentSales, err = s.RecentSales(ctx, defaultRecentSales); err != nil {
		return nil, err
	}
	return d, nil
}

// InvalidateDashboard drops the cached dashboard
func (s *ReportService) InvalidateDashboard(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, DashboardCacheKey)
}
