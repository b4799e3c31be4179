package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/retzius/attendance-api/api/swagger"
	"github.com/retzius/attendance-api/internal/handler"
	"github.com/retzius/attendance-api/internal/middleware"
	"github.com/retzius/attendance-api/internal/repository"
	"github.com/retzius/attendance-api/internal/service"
	"github.com/retzius/attendance-api/pkg/cache"
	"github.com/retzius/attendance-api/pkg/config"
	"github.com/retzius/attendance-api/pkg/database"
	"github.com/retzius/attendance-api/pkg/logger"
	corsmiddleware "github.com/retzius/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/retzius/attendance-api/pkg/middleware/requestid"
	"github.com/retzius/attendance-api/pkg/storage"
)

// @title Attendance API
// @version 1.0.0
// @description Teacher-scoped subject, enrollment and attendance tracking
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Attendance.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, attendance cache disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	defer cacheRepo.Close() //nolint:errcheck

	photoStore, err := storage.NewLocalPhotoStore(cfg.Photos.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init photo store", "error", err)
	}
	signer := storage.NewPhotoURLSigner(cfg.Photos.SignedURLSecret, cfg.Photos.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}).WithPhotoRekeying(photoStore, enrollmentRepo)
	studentSvc := service.NewStudentService(studentRepo, enrollmentRepo, photoStore, cacheRepo, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, enrollmentRepo, photoStore, cacheRepo, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, subjectRepo, studentRepo, photoStore, cacheRepo, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, enrollmentRepo, subjectRepo, cacheRepo, cfg.Attendance.CacheTTL, metricsSvc, logr)

	handlers := handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Student:    handler.NewStudentHandler(studentSvc),
		Subject:    handler.NewSubjectHandler(subjectSvc),
		Enrollment: handler.NewEnrollmentHandler(enrollmentSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Photo:      handler.NewPhotoHandler(studentSvc, signer, photoStore),
		Metrics:    handler.NewMetricsHandler(metricsSvc),
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", handlers.Metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", handlers.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authSvc)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
