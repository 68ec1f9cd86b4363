package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-mes/internal/config"
	"github.com/bitfantasy/nimo-mes/internal/dashboard"
	"github.com/bitfantasy/nimo-mes/internal/middleware"
	"github.com/bitfantasy/nimo-mes/internal/production/entity"
	"github.com/bitfantasy/nimo-mes/internal/production/handler"
	"github.com/bitfantasy/nimo-mes/internal/production/repository"
	"github.com/bitfantasy/nimo-mes/internal/production/service"
	qualityentity "github.com/bitfantasy/nimo-mes/internal/quality/entity"
	qualityhandler "github.com/bitfantasy/nimo-mes/internal/quality/handler"
	qualityrepo "github.com/bitfantasy/nimo-mes/internal/quality/repository"
	qualitysvc "github.com/bitfantasy/nimo-mes/internal/quality/service"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-mes service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.Customer{},
		&entity.Contact{},
		&entity.SequenceCounter{},
		&entity.Quote{},
		&entity.QuoteLineItem{},
		&entity.Job{},
		&entity.Operation{},
		&qualityentity.Equipment{},
		&qualityentity.InspectionReport{},
		&qualityentity.InspectionCharacteristic{},
		&qualityentity.ReportAttachment{},
	); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	// 初始化Redis（未配置时降级为直查数据库）
	rdb := initRedis(cfg.Redis)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zapLogger.Warn("Redis unavailable, dashboard cache disabled", zap.Error(err))
		rdb = nil
	}

	// 初始化MinIO（未配置时附件功能不可用）
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			zapLogger.Warn("MinIO init failed, attachments disabled", zap.Error(err))
			minioClient = nil
		}
	}

	// 生产域
	repos := repository.NewRepositories(db)
	customerSvc := service.NewCustomerService(repos.Customer, repos.Contact)
	quoteSvc := service.NewQuoteService(db, repos.Quote, repos.Customer, repos.Sequence, repos.Job)
	jobSvc := service.NewJobService(repos.Job, repos.Operation)
	handlers := handler.NewHandlers(customerSvc, quoteSvc, jobSvc)

	// 质量域
	qRepos := qualityrepo.NewRepositories(db)
	equipmentSvc := qualitysvc.NewEquipmentService(qRepos.Equipment)
	inspectionSvc := qualitysvc.NewInspectionService(db, qRepos.Inspection, qRepos.Equipment, minioClient, cfg.MinIO.Bucket)
	qHandlers := qualityhandler.NewHandlers(equipmentSvc, inspectionSvc)

	// 概览
	dashboardSvc := dashboard.NewService(db, rdb, zapLogger)
	dashboardHandler := dashboard.NewHandler(dashboardSvc)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, qHandlers, dashboardHandler)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, qh *qualityhandler.Handlers, dh *dashboard.Handler) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	v1 := r.Group("/api/v1")
	{
		// 概览
		v1.GET("/dashboard/summary", dh.GetSummary)

		// === 生产域 ===
		production := v1.Group("/production")
		{
			customers := production.Group("/customers")
			{
				customers.GET("", h.Customer.List)
				customers.POST("", h.Customer.Create)
				customers.GET("/:id", h.Customer.Get)
				customers.PUT("/:id", h.Customer.Update)
				customers.DELETE("/:id", h.Customer.Delete)
			}

			contacts := production.Group("/contacts")
			{
				contacts.GET("", h.Customer.ListContacts)
				contacts.POST("", h.Customer.CreateContact)
				contacts.GET("/:id", h.Customer.GetContact)
				contacts.PUT("/:id", h.Customer.UpdateContact)
				contacts.DELETE("/:id", h.Customer.DeleteContact)
			}

			quotes := production.Group("/quotes")
			{
				quotes.GET("", h.Quote.List)
				quotes.POST("", h.Quote.Create)
				quotes.GET("/:id", h.Quote.Get)
				quotes.PUT("/:id", h.Quote.Update)
				quotes.DELETE("/:id", h.Quote.Delete)
				quotes.POST("/:id/line-items", h.Quote.AddLineItem)
				quotes.POST("/:id/convert", h.Quote.Convert)
			}

			lineItems := production.Group("/line-items")
			{
				lineItems.PUT("/:id", h.Quote.UpdateLineItem)
				lineItems.DELETE("/:id", h.Quote.DeleteLineItem)
			}

			jobs := production.Group("/jobs")
			{
				jobs.GET("", h.Job.List)
				jobs.POST("", h.Job.Create)
				jobs.GET("/overdue", h.Job.ListOverdue)
				jobs.GET("/by-status", h.Job.ListByStatus)
				jobs.GET("/:id", h.Job.Get)
				jobs.PUT("/:id", h.Job.Update)
				jobs.DELETE("/:id", h.Job.Delete)
				jobs.GET("/:id/operations", h.Job.ListOperations)
			}

			operations := production.Group("/operations")
			{
				operations.POST("", h.Job.CreateOperation)
				operations.PUT("/:id", h.Job.UpdateOperation)
				operations.DELETE("/:id", h.Job.DeleteOperation)
			}
		}

		// === 质量域 ===
		quality := v1.Group("/quality")
		{
			equipment := quality.Group("/equipment")
			{
				equipment.GET("", qh.Equipment.List)
				equipment.POST("", qh.Equipment.Create)
				equipment.GET("/calibration-due", qh.Equipment.ListCalibrationDue)
				equipment.GET("/:id", qh.Equipment.Get)
				equipment.PUT("/:id", qh.Equipment.Update)
				equipment.DELETE("/:id", qh.Equipment.Delete)
			}

			reports := quality.Group("/reports")
			{
				reports.GET("", qh.Inspection.List)
				reports.POST("", qh.Inspection.Create)
				reports.GET("/:id", qh.Inspection.Get)
				reports.PUT("/:id", qh.Inspection.Update)
				reports.DELETE("/:id", qh.Inspection.Delete)
				reports.GET("/:id/export", qh.Inspection.ExportForm3)
				reports.GET("/:id/characteristics", qh.Inspection.ListCharacteristics)
				reports.GET("/:id/attachments", qh.Inspection.ListAttachments)
				reports.POST("/:id/attachments", qh.Inspection.UploadAttachment)
			}

			characteristics := quality.Group("/characteristics")
			{
				characteristics.POST("", qh.Inspection.CreateCharacteristic)
				characteristics.GET("/:id", qh.Inspection.GetCharacteristic)
				characteristics.PUT("/:id", qh.Inspection.UpdateCharacteristic)
				characteristics.DELETE("/:id", qh.Inspection.DeleteCharacteristic)
			}

			attachments := quality.Group("/attachments")
			{
				attachments.GET("/:id/download", qh.Inspection.DownloadAttachment)
				attachments.DELETE("/:id", qh.Inspection.DeleteAttachment)
			}
		}
	}
}
