package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/tarpaulin-api/api/swagger"
	"github.com/noah-isme/tarpaulin-api/internal/handler"
	"github.com/noah-isme/tarpaulin-api/internal/middleware"
	"github.com/noah-isme/tarpaulin-api/internal/models"
	"github.com/noah-isme/tarpaulin-api/internal/repository"
	"github.com/noah-isme/tarpaulin-api/internal/service"
	"github.com/noah-isme/tarpaulin-api/pkg/cache"
	"github.com/noah-isme/tarpaulin-api/pkg/config"
	"github.com/noah-isme/tarpaulin-api/pkg/database"
	"github.com/noah-isme/tarpaulin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tarpaulin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tarpaulin-api/pkg/middleware/requestid"
	"github.com/noah-isme/tarpaulin-api/pkg/storage"
)

// @title Tarpaulin API
// @version 1.0.0
// @description Course management API: courses, assignments, submissions and rosters
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// The API stays up without Redis; course detail reads just skip the cache.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, running without course cache", "error", err)
		redisClient = nil
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare uploads directory", "error", err)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	courseCache := service.NewCourseDetailCache(redisClient, cfg.Courses.DetailCacheTTL, metricsSvc, logr)

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, courseCache, validate, logr, cfg.Courses.PageSize)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, courseRepo, uploads, courseCache, validate, logr)

	userHandler := handler.NewUserHandler(userSvc, authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc, assignmentSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc, cfg.Uploads.MaxFileSizeBytes)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	// Buffering threshold only; the submission handler rejects files over
	// the configured limit.
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes

	requireAuth := middleware.JWT(authSvc)
	optionalAuth := middleware.OptionalJWT(authSvc)
	staffOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor)

	users := r.Group("/users")
	{
		users.POST("", optionalAuth, userHandler.Register)
		users.POST("/login", userHandler.Login)
		users.GET("/:id", requireAuth, userHandler.Get)
	}

	courses := r.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.POST("", optionalAuth, courseHandler.Create)
		courses.GET("/:id", courseHandler.Get)
		courses.PATCH("/:id", requireAuth, staffOnly, courseHandler.Update)
		courses.DELETE("/:id", optionalAuth, courseHandler.Delete)
		courses.GET("/:id/assignments", courseHandler.Assignments)
		courses.GET("/:id/students", requireAuth, staffOnly, courseHandler.Students)
		courses.POST("/:id/students", requireAuth, staffOnly, courseHandler.UpdateEnrollment)
		courses.GET("/:id/roster", requireAuth, staffOnly, courseHandler.Roster)
	}

	assignments := r.Group("/assignments")
	{
		assignments.POST("", requireAuth, staffOnly, assignmentHandler.Create)
		assignments.GET("/download/:filename", requireAuth, assignmentHandler.Download)
		assignments.GET("/:id", assignmentHandler.Get)
		assignments.PATCH("/:id", requireAuth, staffOnly, assignmentHandler.Update)
		assignments.DELETE("/:id", requireAuth, staffOnly, assignmentHandler.Delete)
		assignments.GET("/:id/submissions", requireAuth, staffOnly, assignmentHandler.ListSubmissions)
		assignments.POST("/:id/submissions", requireAuth, middleware.RequireRoles(models.RoleStudent), assignmentHandler.CreateSubmission)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
