package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_created_total",
		Help: "Total number of sales committed, by initial payment status",
	}, []string{"payment_status"})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_failed_total",
		Help: "Total number of rejected or rolled back sales",
	}, []string{"reason"})

	SaleProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sale_processing_latency_seconds",
		Help:    "Latency of the sale creation transaction",
		Buckets: prometheus.DefBuckets,
	})

	PaymentsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Total number of payments applied, by resulting status",
	}, []string{"payment_status"})

	PaymentsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_rejected_total",
		Help: "Total number of rejected payments",
	}, []string{"reason"})

	StockAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Total number of committed stock adjustments",
	}, []string{"reason"})

	StockAdjustmentsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_failed_total",
		Help: "Total number of rejected stock adjustments",
	}, []string{"reason"})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Total number of stock changes that left a product below the low-stock threshold",
	})

	CacheErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_errors_total",
		Help: "Total number of Redis cache failures",
	}, []string{"op"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
