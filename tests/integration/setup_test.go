package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"finlink/internal/cache"
	"finlink/internal/handlers"
	"finlink/internal/logger"
	"finlink/internal/middleware"
	"finlink/internal/models"
	"finlink/internal/services"
	"finlink/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.BankAccount{},
		&models.CreditCard{},
		&models.Category{},
		&models.Tag{},
		&models.Transaction{},
		&models.MerchantCategorization{},
		&models.PendingDuplicate{},
		&models.ImportLog{},
		&models.ReconciliationLink{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	// Services. No external classifier in tests, so categorization stops
	// at the merchant table and keyword fallback.
	merchantCache := cache.New(time.Hour)
	userService := services.NewUserService(db)
	accountService := services.NewAccountService(db)
	categoryService := services.NewCategoryService(db)
	tagService := services.NewTagService(db)
	dedupService := services.NewDedupService(db, 3)
	categorizationService := services.NewCategorizationService(db, merchantCache, nil)
	importService := services.NewImportService(db, dedupService, categorizationService, tagService)
	reconcileService := services.NewReconcileService(db, 3, 1.0, "paypal")
	transactionService := services.NewTransactionService(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	accountHandler := handlers.NewAccountHandler(accountService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, tagService)
	importHandler := handlers.NewImportHandler(importService)
	duplicateHandler := handlers.NewDuplicateHandler(dedupService)
	reconcileHandler := handlers.NewReconcileHandler(reconcileService)
	categorizationHandler := handlers.NewCategorizationHandler(categorizationService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	accounts := protected.Group("/accounts")
	accounts.POST("/bank", accountHandler.CreateBankAccount)
	accounts.GET("/bank", accountHandler.GetBankAccounts)
	accounts.GET("/bank/:id", accountHandler.GetBankAccount)
	accounts.POST("/cards", accountHandler.CreateCreditCard)
	accounts.GET("/cards", accountHandler.GetCreditCards)
	accounts.GET("/cards/:id", accountHandler.GetCreditCard)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)
	protected.GET("/tags", categoryHandler.GetTags)

	imports := protected.Group("/imports")
	imports.POST("", importHandler.Import)
	imports.GET("", importHandler.GetImports)
	imports.GET("/:id", importHandler.GetImport)

	duplicates := protected.Group("/duplicates")
	duplicates.GET("", duplicateHandler.GetPendingDuplicates)
	duplicates.POST("/:id/resolve", duplicateHandler.ResolveDuplicate)

	reconciliation := protected.Group("/reconciliation")
	reconciliation.POST("/run", reconcileHandler.Reconcile)
	reconciliation.GET("/links", reconcileHandler.GetLinks)
	reconciliation.DELETE("/links/:id", reconcileHandler.Unlink)

	categorization := protected.Group("/categorization")
	categorization.POST("/suggest", categorizationHandler.Suggest)
	categorization.POST("/correct", categorizationHandler.Correct)
	categorization.POST("/rescan", categorizationHandler.Rescan)

	transactions := protected.Group("/transactions")
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the token and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (token string, userID float64) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["token"].(string), user["id"].(float64)
}

// createBankAccount creates a bank account and returns its ID.
func (app *testApp) createBankAccount(t *testing.T, token string) float64 {
	t.Helper()
	rec := app.request("POST", "/api/v1/accounts/bank",
		`{"name":"Main Account","currency":"EUR"}`, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create bank account failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	account := result["bank_account"].(map[string]interface{})
	return account["id"].(float64)
}

// createCategory creates a category with keywords and returns its ID.
func (app *testApp) createCategory(t *testing.T, token, name, categoryType, keywords string) float64 {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"type":%q,"keywords":%q}`, name, categoryType, keywords)
	rec := app.request("POST", "/api/v1/categories", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	category := result["category"].(map[string]interface{})
	return category["id"].(float64)
}
