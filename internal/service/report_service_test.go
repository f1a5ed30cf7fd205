package service

import (
	"context"
	"testing"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReports overrides the queries the dashboard needs
type fakeReports struct {
	store.Reports

	builds     int
	recentArgs []int
	from, to   time.Time
}

func (r *fakeReports) CountProducts(context.Context) (int, error) {
	r.builds++
	return 12, nil
}

func (r *fakeReports) CountCustomers(context.Context) (int, error) { return 4, nil }

func (r *fakeReports) CountLowStock(_ context.Context, threshold int) (int, error) {
	return threshold, nil
}

func (r *fakeReports) CountOutstandingCustomers(context.Context) (int, error) { return 2, nil }

func (r *fakeReports) SalesTotalBetween(_ context.Context, from, to time.Time) (decimal.Decimal, error) {
	r.from, r.to = from, to
	return d("350.50"), nil
}

func (r *fakeReports) DailySales(context.Context, time.Time, time.Time) ([]models.DailySales, error) {
	return []models.DailySales{
		{Date: "2024-03-08", Sales: d("100")},
		{Date: "2024-03-10", Sales: d("350.50")},
	}, nil
}

func (r *fakeReports) ListRecentSales(_ context.Context, limit int) ([]models.SaleView, error) {
	r.recentArgs = append(r.recentArgs, limit)
	return nil, nil
}

func newReportService(reports store.Reports, cache JSONCache) *ReportService {
	s := NewReportService(reports, cache, 10, time.Minute)
	s.now = func() time.Time { return time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC) }
	return s
}

func TestWeeklySalesChartFillsMissingDays(t *testing.T) {
	s := newReportService(&fakeReports{}, nil)

	chart, err := s.WeeklySalesChart(context.Background())
	require.NoError(t, err)
	require.Len(t, chart, 7)

	assert.Equal(t, "2024-03-04", chart[0].Date)
	assert.Equal(t, "2024-03-10", chart[6].Date)
	assertAmount(t, "0", chart[0].Sales)
	assertAmount(t, "100", chart[4].Sales)
	assertAmount(t, "0", chart[5].Sales)
	assertAmount(t, "350.50", chart[6].Sales)
}

func TestTodaySalesWindow(t *testing.T) {
	reports := &fakeReports{}
	s := newReportService(reports, nil)

	total, err := s.TodaySales(context.Background())
	require.NoError(t, err)
	assertAmount(t, "350.5", total)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), reports.from)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), reports.to)
}

func TestRecentSalesLimit(t *testing.T) {
	reports := &fakeReports{}
	s := newReportService(reports, nil)
	ctx := context.Background()

	for _, limit := range []int{0, 3, 500} {
		sales, err := s.RecentSales(ctx, limit)
		require.NoError(t, err)
		assert.NotNil(t, sales)
	}
	assert.Equal(t, []int{5, 3, 50}, reports.recentArgs)
}

func TestDashboardIsCached(t *testing.T) {
	reports := &fakeReports{}
	s := newReportService(reports, newRedis(t))
	ctx := context.Background()

	first, err := s.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, first.ProductCount)
	assert.Equal(t, 10, first.LowStockCount)
	assert.Equal(t, 2, first.OutstandingCustomers)
	assert.Len(t, first.WeeklySales, 7)

	second, err := s.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reports.builds)
	assert.Equal(t, first.ProductCount, second.ProductCount)
	assertAmount(t, "350.50", second.TodaySales)

	require.NoError(t, s.InvalidateDashboard(ctx))
	_, err = s.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, reports.builds)
}

func TestDashboardWithoutCache(t *testing.T) {
	reports := &fakeReports{}
	s := newReportService(reports, nil)
	ctx := context.Background()

	_, err := s.Dashboard(ctx)
	require.NoError(t, err)
	_, err = s.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, reports.builds)
	assert.NoError(t, s.InvalidateDashboard(ctx))
}
