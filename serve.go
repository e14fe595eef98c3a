package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"expectation-svc/cache"
	"expectation-svc/config"
	"expectation-svc/database"
	"expectation-svc/expectation"
	"expectation-svc/handlers"
	"expectation-svc/ingestion"
	"expectation-svc/kafka"
	"expectation-svc/middleware"
	"expectation-svc/reasoning"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "expectation-service"

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume settlement messages and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(*configPath)
		},
	}
}

func serve(configPath string) error {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
	shutdown, err := middleware.InitTracing(serviceName, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer shutdown()

	// Initialize database
	db, err := database.InitDB(ctx, cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	store := database.NewStore(db, logger)

	// Redis only backs the stats cache, so the API keeps working without it.
	rdb, err := cache.InitRedis(cfg.Redis, logger)
	if err != nil {
		logger.Warn("Stats cache disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}
	statsCache := cache.NewStatsCache(rdb, cfg.Redis.StatsTTL, logger)

	capability, err := reasoning.New(cfg.LLM, cfg.Breaker, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize reasoning client: %w", err)
	}
	history := expectation.NewHistoryProvider(store, expectation.DefaultHistoryLimit, logger)
	engine := expectation.NewEngine(capability, history, store, logger)
	processor := ingestion.NewProcessor(store, engine, logger)

	// Initialize Kafka producer
	producer, err := kafka.InitProducer(cfg.Kafka, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Kafka producer: %w", err)
	}
	defer producer.Close()

	// Initialize Kafka consumer group
	group, err := kafka.InitConsumerGroup(cfg.Kafka, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Kafka consumer: %w", err)
	}
	runner := kafka.NewRunner(group, producer, processor, cfg.Kafka, cfg.Consumer.MessageTimeout, logger)
	publisher := kafka.NewPublisher(producer, cfg.Kafka.Topic, logger)

	router := newRouter(cfg, logger, store, statsCache, runner, publisher, engine)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Expectation Service REST API started", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("REST server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return runner.Run(gctx)
	})

	err = g.Wait()
	logger.Info("Servers exited")
	return err
}

func newRouter(
	cfg *config.Config,
	logger *zap.Logger,
	store *database.Store,
	statsCache *cache.StatsCache,
	queue handlers.QueueStatusReporter,
	publisher handlers.PaymentPublisher,
	engine handlers.PaymentAnalyzer,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	// OpenTelemetry middleware must be first to extract trace context
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck(store))
	router.GET("/metrics", middleware.PrometheusHandler())

	paymentHandler := handlers.NewPaymentHandler(store, statsCache, logger)
	payments := router.Group("/api/payments")
	payments.GET("", paymentHandler.ListPayments)
	payments.GET("/:id", paymentHandler.GetPayment)
	payments.POST("", paymentHandler.CreatePayment)
	payments.PUT("/:id", paymentHandler.UpdatePayment)
	payments.DELETE("/:id", middleware.AdminAuth(cfg.Admin.JWTSecret), paymentHandler.DeletePayment)

	expectationHandler := handlers.NewExpectationHandler(store, statsCache, logger)
	expectations := router.Group("/api/expectations")
	expectations.GET("", expectationHandler.ListExpectations)
	expectations.GET("/stats", expectationHandler.GetStats)
	expectations.GET("/:id", expectationHandler.GetExpectation)
	expectations.POST("", expectationHandler.CreateExpectation)

	adminHandler := handlers.NewAdminHandler(store, statsCache, queue, logger)
	admin := router.Group("/api/admin", middleware.AdminAuth(cfg.Admin.JWTSecret))
	admin.GET("/stats", adminHandler.GetStats)
	admin.GET("/queue-status", adminHandler.GetQueueStatus)
	admin.GET("/audit-logs", adminHandler.GetAuditLogs)
	admin.GET("/beneficiary-stats", adminHandler.GetBeneficiaryStats)

	testHandler := handlers.NewTestHandler(store, publisher, engine, logger)
	test := router.Group("/api/test")
	test.POST("/send-payment", testHandler.SendPayment)
	test.POST("/create-sample-data", testHandler.CreateSampleData)
	test.POST("/analyze", testHandler.Analyze)

	return router
}
