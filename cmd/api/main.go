package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/presensia/presensia-api/api/swagger"
	"github.com/presensia/presensia-api/internal/handler"
	"github.com/presensia/presensia-api/internal/middleware"
	"github.com/presensia/presensia-api/internal/repository"
	"github.com/presensia/presensia-api/internal/service"
	"github.com/presensia/presensia-api/pkg/cache"
	"github.com/presensia/presensia-api/pkg/config"
	"github.com/presensia/presensia-api/pkg/database"
	"github.com/presensia/presensia-api/pkg/logger"
	corsmiddleware "github.com/presensia/presensia-api/pkg/middleware/cors"
	reqidmiddleware "github.com/presensia/presensia-api/pkg/middleware/requestid"
	"github.com/presensia/presensia-api/pkg/qr"
)

// @title Presensia API
// @version 1.0.0
// @description QR attendance token issuance, check-in validation and reporting
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	tokenRepo := repository.NewTokenRepository(redisClient, cfg.Attendance.TokenStoreRetention)
	attendanceRepo := repository.NewAttendanceRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	tokenSvc := service.NewTokenService(tokenRepo, logr)
	validationSvc := service.NewValidationService(tokenRepo, attendanceRepo, alertRepo, studentRepo, metricsSvc, validate, logr, service.ValidationPolicy{
		TokenTTL:        cfg.Attendance.TokenTTL,
		GeofenceRadiusM: cfg.Attendance.GeofenceRadiusM,
	})
	reportSvc := service.NewReportService(attendanceRepo, alertRepo, cacheSvc, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	attendanceHandler := handler.NewAttendanceHandler(tokenSvc, validationSvc, reportSvc, qr.NewRenderer(cfg.Attendance.QRSize))

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	handler.RegisterRoutes(r, authHandler, attendanceHandler, authSvc, metricsSvc)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
