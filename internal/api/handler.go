package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"inventory-service/internal/service"
	"inventory-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports backing store health; *store.Store satisfies it
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the handler dependencies
type Services struct {
	Catalog  *service.CatalogService
	Stock    *service.StockManager
	Sales    *service.SaleService
	Payments *service.PaymentLedger
	Reports  *service.ReportService
	Auth     *service.AuthService
	DB       Pinger
}

// Handler contains HTTP handlers
type Handler struct {
	catalog  *service.CatalogService
	stock    *service.StockManager
	sales    *service.SaleService
	payments *service.PaymentLedger
	reports  *service.ReportService
	auth     *service.AuthService
	db       Pinger
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(s Services) *Handler {
	return &Handler{
		catalog:  s.Catalog,
		stock:    s.Stock,
		sales:    s.Sales,
		payments: s.Payments,
		reports:  s.Reports,
		auth:     s.Auth,
		db:       s.DB,
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) error {
	if err := RegisterValidators(); err != nil {
		return err
	}

	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/auth/login", h.login)

		api.POST("/products", h.createProduct)
		api.GET("/products", h.listProducts)
		api.GET("/products/low-stock/count", h.countLowStock)
		api.GET("/products/:id", h.getProduct)
		api.PUT("/products/:id", h.updateProduct)
		api.DELETE("/products/:id", h.archiveProduct)
		api.POST("/products/:id/receive", h.receiveStock)
		api.POST("/products/:id/adjust", h.adjustStock)

		api.POST("/customers", h.createCustomer)
		api.GET("/customers", h.listCustomers)
		api.GET("/customers/outstanding/count", h.countOutstandingCustomers)
		api.GET("/customers/:id", h.getCustomer)
		api.PUT("/customers/:id", h.updateCustomer)
		api.DELETE("/customers/:id", h.archiveCustomer)
		api.GET("/customers/:id/sales", h.customerSales)

		api.POST("/sales", h.createSale)
		api.GET("/sales/recent", h.recentSales)
		api.POST("/sales/:id/record-payment", h.recordPayment)
		api.GET("/sales-history", h.salesHistory)
		api.GET("/sales-history/:id", h.saleDetail)
		api.GET("/outstanding-sales", h.outstandingSales)

		api.GET("/reports/sales-summary", h.salesSummary)
		api.GET("/reports/sales-by-product", h.salesByProduct)
		api.GET("/reports/sales-by-customer", h.salesByCustomer)
		api.GET("/reports/sales-today-summary", h.todaySales)
		api.GET("/reports/weekly-sales-chart", h.weeklySalesChart)
		api.GET("/dashboard", h.dashboard)
	}
	return nil
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when the database answers
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"time":   time.Now().Unix(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

// requestLogger logs one line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
