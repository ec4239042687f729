package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "procurement/api/swagger" // swagger docs
	"procurement/internal/cache"
	"procurement/internal/config"
	"procurement/internal/database"
	"procurement/internal/events"
	"procurement/internal/handler"
	"procurement/internal/lock"
	"procurement/internal/logger"
	"procurement/internal/middleware"
	"procurement/internal/repository"
	"procurement/internal/service"
	"procurement/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const listingCacheTTL = 10 * time.Minute

// @title           Procurement API
// @version         1.0
// @description     Purchase requisitions, budget reservation and purchase order conversion.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, envLoaded := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.Release())
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	if !envLoaded {
		zlog.Info("no configs/.env file found, using process environment")
	}
	if cfg.Release() {
		gin.SetMode(gin.ReleaseMode)
	}

	secret, err := middleware.GetJWTSecret(cfg.JWTSecret, cfg.Release())
	if err != nil {
		zlog.Fatal("JWT secret missing", zap.Error(err))
	}

	db, err := database.NewConnection(cfg.DSN(), zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	zlog.Info("connected to PostgreSQL", zap.String("host", cfg.DBHost), zap.String("database", cfg.DBName))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listing cache and locks are shared through Redis when configured, process-local otherwise
	var (
		listingCache cache.ListingCache = cache.NewMemoryCache()
		locker       lock.Locker        = lock.NewLocalLocker()
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Fatal("redis ping failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		listingCache = cache.NewRedisCache(rdb, listingCacheTTL)
		locker = lock.NewRedisLocker(rdb, zlog)
		zlog.Info("using redis for listing cache and locks", zap.String("addr", cfg.RedisAddr))
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(zlog)
	hubStopped := make(chan struct{})
	go func() {
		wsHub.Run(ctx)
		close(hubStopped)
	}()

	publishers := []events.Publisher{wsHub}
	if cfg.RabbitMQURL != "" {
		rabbit, err := events.DialRabbit(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			zlog.Warn("rabbitmq unavailable, events stay in-process", zap.Error(err))
		} else {
			defer func() { _ = rabbit.Close() }()
			publishers = append(publishers, rabbit)
			zlog.Info("publishing events to rabbitmq", zap.String("exchange", cfg.RabbitMQExchange))
		}
	}

	infra := service.Infra{
		TxManager: repository.NewTransactionManager(db),
		Locker:    locker,
		Cache:     listingCache,
		Publisher: events.Multi(publishers...),
		Logger:    zlog,
		Now:       time.Now,
	}

	// Set up dependencies (Repository -> Service -> Handler)
	reqRepo := repository.NewRequisitionRepository(db)
	itemRepo := repository.NewLineItemRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	optionRepo := repository.NewOptionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	numberer := service.NewNumberer(repository.NewSequenceRepository(db))

	requisitionService := service.NewRequisitionService(reqRepo, budgetRepo, optionRepo, auditRepo, numberer, infra)
	listingService := service.NewListingService(reqRepo, infra)
	lineItemService := service.NewLineItemService(reqRepo, itemRepo, infra)
	budgetService := service.NewBudgetService(budgetRepo, reqRepo, optionRepo, auditRepo, infra)
	orderService := service.NewOrderService(orderRepo, reqRepo, budgetRepo, optionRepo, auditRepo, numberer, infra)
	optionService := service.NewOptionService(optionRepo)
	statisticsService := service.NewStatisticsService(statsRepo, orderRepo, budgetRepo, infra)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	requisitionHandler := handler.NewRequisitionHandler(requisitionService, listingService)
	lineItemHandler := handler.NewLineItemHandler(lineItemService)
	budgetHandler := handler.NewBudgetHandler(budgetService)
	orderHandler := handler.NewOrderHandler(orderService)
	optionHandler := handler.NewOptionHandler(optionService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)
	auditHandler := handler.NewAuditHandler(auditService)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret)
	})

	api := router.Group("", middleware.RequireAuth(secret))
	requisitionHandler.RegisterRoutes(api)
	lineItemHandler.RegisterRoutes(api)
	budgetHandler.RegisterRoutes(api)
	orderHandler.RegisterRoutes(api)
	optionHandler.RegisterRoutes(api)
	statisticsHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
	<-hubStopped
	wsHub.Wait()
}
