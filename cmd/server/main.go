package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inventory-service/config"
	"inventory-service/internal/api"
	"inventory-service/internal/broker"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/service"
	"inventory-service/internal/store"
	"inventory-service/internal/util"
	"inventory-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, util.ServiceName); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting inventory service")

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL, cfg.Database.LockTimeout)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicSales))

	eventPublisher := broker.NewEventPublisher(producer)

	stockManager := service.NewStockManager(db, redisClient, eventPublisher)
	saleService := service.NewSaleService(db, stockManager, eventPublisher)
	paymentLedger := service.NewPaymentLedger(db, redisClient, eventPublisher, cfg.Business.IdempotencyTTL)
	catalogService := service.NewCatalogService(db, stockManager, cfg.Business.LowStockThreshold)
	reportService := service.NewReportService(db, redisClient, cfg.Business.LowStockThreshold, cfg.Business.DashboardCacheTTL)
	authService := service.NewAuthService(cfg.Auth.Users)

	if err := stockManager.SyncStockCache(ctx); err != nil {
		logger.Warn("Failed to sync stock cache", zap.Error(err))
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	salesConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales, cfg.Kafka.ConsumerGroup)
	salesWorker := worker.NewSalesWorker(salesConsumer, reportService, redisClient,
		cfg.Business.IdempotencyTTL, cfg.Business.LowStockThreshold)
	go func() {
		if err := salesWorker.Start(workerCtx); err != nil {
			logger.Error("Sales worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Services{
		Catalog:  catalogService,
		Stock:    stockManager,
		Sales:    saleService,
		Payments: paymentLedger,
		Reports:  reportService,
		Auth:     authService,
		DB:       db,
	})
	if err := handler.SetupRoutes(router); err != nil {
		logger.Fatal("Failed to set up routes", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := salesWorker.Stop(); err != nil {
		logger.Warn("Error stopping sales worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
