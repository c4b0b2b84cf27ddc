package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/course-enroll-api/api/swagger"
	"github.com/noah-isme/course-enroll-api/internal/handler"
	"github.com/noah-isme/course-enroll-api/internal/middleware"
	"github.com/noah-isme/course-enroll-api/internal/models"
	"github.com/noah-isme/course-enroll-api/internal/repository"
	"github.com/noah-isme/course-enroll-api/internal/service"
	"github.com/noah-isme/course-enroll-api/pkg/cache"
	"github.com/noah-isme/course-enroll-api/pkg/certificate"
	"github.com/noah-isme/course-enroll-api/pkg/config"
	"github.com/noah-isme/course-enroll-api/pkg/crypto"
	"github.com/noah-isme/course-enroll-api/pkg/database"
	"github.com/noah-isme/course-enroll-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-enroll-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-enroll-api/pkg/middleware/requestid"
	"github.com/noah-isme/course-enroll-api/pkg/storage"
)

// @title Course Enrollment API
// @version 1.0.0
// @description Course signup, confirmation and certificate service
// @BasePath /api/v1
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

	cryptoSvc, err := crypto.New(cfg.Encryption.Key, cfg.Encryption.Salt)
	if err != nil {
		logr.Sugar().Fatalw("failed to init field encryption", "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, catalogue cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	signupRepo := repository.NewSignupRequestRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	tokenSvc := service.NewTokenService(tokenRepo, logr)
	authSvc := service.NewAuthService(userRepo, tokenSvc, metricsSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		RegistrationTTL:   cfg.Tokens.RegistrationTTL,
		ElevationTTL:      cfg.Tokens.ElevationTTL,
	})
	courseSvc := service.NewCourseService(courseRepo, cacheRepo, logr, cfg.Courses.CacheTTL)
	signupSvc := service.NewSignupRequestService(signupRepo, userRepo, courseRepo, cryptoSvc, validate, logr)
	userSvc := service.NewUserService(userRepo, tokenSvc, signupSvc, logr)

	builder := certificate.NewBuilder(cfg.Certificates.Issuer, cfg.Certificates.SignerName, cfg.Certificates.Copyright)
	certificateSvc := service.NewCertificateService(signupRepo, userRepo, courseRepo, cryptoSvc, builder, metricsSvc, logr)

	exportStore, err := storage.NewLocalStorage(cfg.Exports.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.JWT.Secret, cfg.Exports.ResultTTL)
	exportSvc := service.NewExportService(signupRepo, courseRepo, exportStore, signer, service.ExportServiceConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.ResultTTL,
		Workers:   cfg.Exports.Workers,
	}, logr)
	exportSvc.Start(context.Background())
	defer exportSvc.Stop()

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	signupHandler := handler.NewSignupRequestHandler(signupSvc)
	certificateHandler := handler.NewCertificateHandler(certificateSvc)
	userHandler := handler.NewUserHandler(userSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

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
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/confirm/:token", authHandler.ConfirmEmail)
			auth.POST("/login", authHandler.Login)
			auth.POST("/elevation", middleware.JWT(authSvc), authHandler.RequestElevation)
			auth.POST("/elevation/:token", authHandler.ConfirmElevation)
		}

		courses := api.Group("/courses")
		{
			courses.GET("", courseHandler.List)
			courses.GET("/:id", courseHandler.Get)
		}

		signups := api.Group("/signup-requests", middleware.JWT(authSvc))
		{
			signups.POST("", signupHandler.Create)
			signups.GET("", signupHandler.ListMine)
			signups.GET("/course/:courseId", signupHandler.FindForCourse)
			signups.GET("/pending", middleware.RequireRoles(models.RoleAdmin), signupHandler.ListUnconfirmed)
			signups.POST("/:id/confirm", middleware.RequireRoles(models.RoleAdmin), signupHandler.Confirm)
			signups.GET("/:id/certificate", certificateHandler.Generate)
		}

		reports := api.Group("/reports")
		{
			reports.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), exportHandler.Create)
			reports.GET("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), exportHandler.Get)
			reports.GET("/download/:token", exportHandler.Download)
		}

		users := api.Group("/users", middleware.JWT(authSvc))
		{
			users.GET("/:id", middleware.RequireSelfOrRoles("id", models.RoleAdmin), userHandler.Get)
			users.GET("/:id/courses", middleware.RequireSelfOrRoles("id", models.RoleAdmin), userHandler.ListCourses)
			users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Delete)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
