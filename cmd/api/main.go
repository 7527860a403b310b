package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"finlink/internal/cache"
	"finlink/internal/classifier"
	"finlink/internal/config"
	"finlink/internal/database"
	"finlink/internal/handlers"
	"finlink/internal/logger"
	"finlink/internal/middleware"
	"finlink/internal/services"
	"finlink/internal/validator"
)

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
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// The external classifier is optional; without an API key the
	// categorization chain stops at the merchant table.
	var cls classifier.Classifier
	if os.Getenv("GEMINI_API_KEY") != "" {
		gemini, err := classifier.NewGemini(context.Background(), appConfig.GeminiModel)
		if err != nil {
			log.Warnw("classifier unavailable, continuing without tier 3", "error", err)
		} else {
			cls = gemini
		}
	} else {
		log.Info("GEMINI_API_KEY not set, external classification disabled")
	}

	// Initialize services
	db := dbManager.DB()
	merchantCache := cache.New(appConfig.MerchantCacheTTL)
	userService := services.NewUserService(db)
	accountService := services.NewAccountService(db)
	categoryService := services.NewCategoryService(db)
	tagService := services.NewTagService(db)
	dedupService := services.NewDedupService(db, appConfig.PendingDupWindowDays)
	categorizationService := services.NewCategorizationService(db, merchantCache, cls)
	importService := services.NewImportService(db, dedupService, categorizationService, tagService)
	reconcileService := services.NewReconcileService(db, appConfig.ReconcileWindowDays, appConfig.ReconcileTolerancePct, appConfig.ProviderMarker)
	transactionService := services.NewTransactionService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	accountHandler := handlers.NewAccountHandler(accountService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, tagService)
	importHandler := handlers.NewImportHandler(importService)
	duplicateHandler := handlers.NewDuplicateHandler(dedupService)
	reconcileHandler := handlers.NewReconcileHandler(reconcileService)
	categorizationHandler := handlers.NewCategorizationHandler(categorizationService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)

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

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Account routes
	accounts := protected.Group("/accounts")
	accounts.POST("/bank", accountHandler.CreateBankAccount)
	accounts.GET("/bank", accountHandler.GetBankAccounts)
	accounts.GET("/bank/:id", accountHandler.GetBankAccount)
	accounts.POST("/cards", accountHandler.CreateCreditCard)
	accounts.GET("/cards", accountHandler.GetCreditCards)
	accounts.GET("/cards/:id", accountHandler.GetCreditCard)

	// Category and tag routes
	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)
	protected.GET("/tags", categoryHandler.GetTags)

	// Import routes
	imports := protected.Group("/imports")
	imports.POST("", importHandler.Import)
	imports.GET("", importHandler.GetImports)
	imports.GET("/:id", importHandler.GetImport)

	// Pending-duplicate routes
	duplicates := protected.Group("/duplicates")
	duplicates.GET("", duplicateHandler.GetPendingDuplicates)
	duplicates.POST("/:id/resolve", duplicateHandler.ResolveDuplicate)

	// Reconciliation routes
	reconciliation := protected.Group("/reconciliation")
	reconciliation.POST("/run", reconcileHandler.Reconcile)
	reconciliation.GET("/links", reconcileHandler.GetLinks)
	reconciliation.DELETE("/links/:id", reconcileHandler.Unlink)

	// Categorization routes
	categorization := protected.Group("/categorization")
	categorization.POST("/suggest", categorizationHandler.Suggest)
	categorization.POST("/correct", categorizationHandler.Correct)
	categorization.POST("/rescan", categorizationHandler.Rescan)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	log.Infof("Starting finlink backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
