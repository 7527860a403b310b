package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Duplicate detection. The pending-duplicate window and the
	// reconciliation window are deliberately independent knobs: an overly
	// generous reconciliation window can match transactions across month
	// boundaries, so it must stay tunable per deployment.
	PendingDupWindowDays  int
	ReconcileWindowDays   int
	ReconcileTolerancePct float64
	ProviderMarker        string

	// Categorization
	MerchantCacheTTL time.Duration
	GeminiModel      string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "finlink"),
		DBPassword: getEnv("DB_PASSWORD", "finlink"),
		DBName:     getEnv("DB_NAME", "finlink"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		PendingDupWindowDays:  getEnvInt("PENDING_DUPLICATE_WINDOW_DAYS", 3),
		ReconcileWindowDays:   getEnvInt("RECONCILE_WINDOW_DAYS", 3),
		ReconcileTolerancePct: getEnvFloat("RECONCILE_AMOUNT_TOLERANCE_PCT", 1.0),
		ProviderMarker:        getEnv("RECONCILE_PROVIDER_MARKER", "paypal"),

		GeminiModel: getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
	}

	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	ttlStr := getEnv("MERCHANT_CACHE_TTL", "1h")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		log.Printf("Warning: invalid MERCHANT_CACHE_TTL value '%s', falling back to 1h\n", ttlStr)
		ttl = time.Hour
	}
	config.MerchantCacheTTL = ttl

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Warning: invalid %s value '%s', falling back to %g\n", key, value, defaultValue)
	}
	return defaultValue
}
