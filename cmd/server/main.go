package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"carbondesk/internal/client/carbonmark"
	"carbondesk/internal/client/climatiq"
	"carbondesk/internal/config"
	"carbondesk/internal/db"
	"carbondesk/internal/handler"
	"carbondesk/internal/logger"
	"carbondesk/internal/repository"
	gormrepository "carbondesk/internal/repository/gorm"
	memoryrepository "carbondesk/internal/repository/memory"
	"carbondesk/internal/service"
)

func main() {
	cfgPath := os.Getenv("CD_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("CD_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var store repository.Store
	var dbConn *db.DB
	switch strings.ToLower(cfg.Storage.Backend) {
	case "memory":
		store = memoryrepository.New()
		logger.Info("using in-memory storage")
	default:
		dbConn, err = db.Open(cfg.DB)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer db.Close(dbConn)
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
		store = gormrepository.New(dbConn.Gorm)
		logger.Info("using sqlite storage", zap.String("path", cfg.DB.Path))
	}

	climatiqHTTP := &http.Client{Timeout: cfg.Climatiq.Timeout}
	climatiqClient := climatiq.NewClient(climatiqHTTP, cfg.Climatiq.BaseURL, cfg.Climatiq.APIKey)
	carbonmarkHTTP := &http.Client{Timeout: cfg.Carbonmark.Timeout}
	carbonmarkClient := carbonmark.NewClient(carbonmarkHTTP, cfg.Carbonmark.BaseURL, cfg.Carbonmark.APIKey)

	estimateSvc := &service.EstimateBatchService{
		Projects:    store,
		Batches:     store,
		Climatiq:    climatiqClient,
		Logger:      logger,
		DataVersion: cfg.Climatiq.DataVersion,
	}
	orderSvc := &service.OrderService{
		Orders:     store,
		Carbonmark: carbonmarkClient,
		Logger:     logger,
	}
	initSvc := &service.InitDataService{
		Climatiq: climatiqClient,
		Logger:   logger,
		TTL:      cfg.Climatiq.InitCacheTTL,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{Backend: strings.ToLower(cfg.Storage.Backend)}
	if dbConn != nil {
		healthHandler.DB = dbConn.Gorm
	}
	healthHandler.Register(engine)

	projectHandler := &handler.ProjectHandler{Store: store, Logger: logger}
	projectHandler.Register(engine)
	estimateHandler := &handler.EstimateHandler{Estimates: estimateSvc, Batches: store, Logger: logger}
	estimateHandler.Register(engine)
	orderHandler := &handler.OrderHandler{Orders: orderSvc, Logger: logger}
	orderHandler.Register(engine)
	initHandler := &handler.InitHandler{InitData: initSvc}
	initHandler.Register(engine)
	marketplaceHandler := &handler.MarketplaceHandler{Carbonmark: carbonmarkClient, Logger: logger}
	marketplaceHandler.Register(engine)
	searchHandler := &handler.ActivitySearchHandler{Climatiq: climatiqClient, Logger: logger}
	searchHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
