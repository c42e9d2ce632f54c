package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"lifeslice/internal/config"
	"lifeslice/internal/database"
	"lifeslice/internal/handlers"
	"lifeslice/internal/logger"
	"lifeslice/internal/middleware"
	"lifeslice/internal/scheduler"
	"lifeslice/internal/services"
	"lifeslice/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "lifeslice/internal/docs" // Import swagger docs
)

// @title           LifeSlice API
// @version         1.0
// @description     LifeSlice tracks personal habits and life areas as slices whose values follow configurable formulas, with temporal penalties, composite aggregation, and a Telegram adapter.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey InternalSecret
// @in header
// @name X-API-Key
// @description Pipeline API key for bot and cron callers.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Register custom validators on the Gin binding engine
	validator.Register()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	sliceService := services.NewSliceService(db)
	compositeService := services.NewCompositeService(db)
	temporalService := services.NewTemporalService(db, sliceService, compositeService, appConfig.Timezone)
	telegramService := services.NewTelegramService(db, sliceService, compositeService)

	// Start the evaluator scheduler
	sched := scheduler.New(temporalService, appConfig)
	sched.Start(context.Background())
	defer sched.Stop()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	sliceHandler := handlers.NewSliceHandler(sliceService, auditService)
	compositeHandler := handlers.NewCompositeHandler(compositeService, auditService)
	temporalHandler := handlers.NewTemporalHandler(temporalService, sched)
	telegramHandler := handlers.NewTelegramHandler(telegramService, auditService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Slice routes
	slices := protected.Group("/slices")
	slices.POST("", sliceHandler.CreateSlice)
	slices.GET("", sliceHandler.GetSlices)
	slices.GET("/:id", sliceHandler.GetSlice)
	slices.PUT("/:id", sliceHandler.UpdateSlice)
	slices.DELETE("/:id", sliceHandler.DeleteSlice)
	slices.POST("/:id/update", sliceHandler.UpdateSliceValue)
	slices.GET("/:id/updates", sliceHandler.GetSliceUpdates)

	// Composite component routes
	slices.GET("/:id/components", compositeHandler.GetComponents)
	slices.POST("/:id/components", compositeHandler.AddComponent)
	slices.POST("/:id/components/check-off", compositeHandler.CheckOffComponents)
	slices.POST("/:id/components/:key", compositeHandler.UpdateComponent)
	slices.POST("/:id/recalculate", compositeHandler.Recalculate)

	// Status read model, looked up by slug
	protected.GET("/status/:slug", sliceHandler.GetSliceStatus)

	// Telegram linking routes
	telegram := protected.Group("/telegram")
	telegram.GET("/link", telegramHandler.GetLink)
	telegram.POST("/generate-code", telegramHandler.GenerateCode)
	telegram.DELETE("/unlink", telegramHandler.Unlink)

	// Internal pipeline routes (bot service and cron callers)
	internal := v1.Group("/internal")
	internal.Use(middleware.PipelineAuthMiddleware(appConfig.PipelineAPIKey))
	internal.POST("/telegram/complete-link", telegramHandler.CompleteLink)
	internal.POST("/telegram/command", telegramHandler.Command)
	internal.POST("/temporal/run", temporalHandler.Run)
	internal.GET("/temporal/schedule", temporalHandler.GetSchedule)

	log.Infof("Starting LifeSlice backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)

	// Shut the scheduler down cleanly on SIGINT/SIGTERM
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		sched.Stop()
		os.Exit(0)
	}()

	return router.Run(":" + appConfig.Port)
}
