package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Checkout  CheckoutConfig
	Scheduler SchedulerConfig
	Booking   BookingConfig
	Mail      MailConfig
	CORS      CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
	BaseURL     string // public base URL used when building return/redirect URLs
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// CheckoutConfig holds hosted-checkout provider configuration.
// SecretKey authenticates API calls; WebhookSecret verifies inbound
// webhook signatures and is never sent anywhere.
type CheckoutConfig struct {
	APIURL           string
	SecretKey        string
	WebhookSecret    string
	Currency         string // default currency for checkout sessions
	SignatureMaxSkew time.Duration
}

// SchedulerConfig holds external scheduling provider configuration
type SchedulerConfig struct {
	// ConfirmSecret signs the confirmation token appended to the
	// redirect-back URL given to the scheduling provider.
	ConfirmSecret string
}

// BookingConfig holds booking policy configuration
type BookingConfig struct {
	BufferHours         int // minimum advance notice for bookings and customer cancellations
	AdvanceDays         int // how far ahead a slot may be booked
	PendingExpiryMins   int // 0 disables the stale pending-payment sweep
	MinLegalNameLength  int
	MaxRidersPerSession int
}

// MailConfig holds outbound email configuration
type MailConfig struct {
	Mode     string // "dev" logs instead of sending
	SMTPHost string
	SMTPPort string
	Username string
	Password string
	Sender   string
	AdminTo  string // operator queue address for manual-follow-up notices
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		Checkout: CheckoutConfig{
			APIURL:           getEnv("CHECKOUT_API_URL", "https://api.checkout.example.com/v1"),
			SecretKey:        getEnv("CHECKOUT_SECRET_KEY", ""),
			WebhookSecret:    getEnv("CHECKOUT_WEBHOOK_SECRET", ""),
			Currency:         getEnv("CHECKOUT_CURRENCY", "eur"),
			SignatureMaxSkew: time.Duration(getEnvAsInt("CHECKOUT_SIGNATURE_MAX_SKEW", 300)) * time.Second,
		},
		Scheduler: SchedulerConfig{
			ConfirmSecret: getEnv("SCHEDULER_CONFIRM_SECRET", ""),
		},
		Booking: BookingConfig{
			BufferHours:         getEnvAsInt("BOOKING_BUFFER_HOURS", 24),
			AdvanceDays:         getEnvAsInt("BOOKING_ADVANCE_DAYS", 90),
			PendingExpiryMins:   getEnvAsInt("BOOKING_PENDING_EXPIRY_MINUTES", 0),
			MinLegalNameLength:  getEnvAsInt("WAIVER_MIN_LEGAL_NAME_LENGTH", 3),
			MaxRidersPerSession: getEnvAsInt("BOOKING_MAX_RIDERS", 10),
		},
		Mail: MailConfig{
			Mode:     getEnv("MAIL_MODE", "dev"),
			SMTPHost: getEnv("MAIL_SMTP_HOST", ""),
			SMTPPort: getEnv("MAIL_SMTP_PORT", "587"),
			Username: getEnv("MAIL_USERNAME", ""),
			Password: getEnv("MAIL_PASSWORD", ""),
			Sender:   getEnv("MAIL_DEFAULT_SENDER", "bookings@momentumclips.com"),
			AdminTo:  getEnv("MAIL_ADMIN_ADDRESS", "ops@momentumclips.com"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Authorization"}),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that required configuration is present
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Server.Environment == "production" {
		if c.JWT.Secret == "" || c.JWT.RefreshSecret == "" {
			return fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET are required in production")
		}
		if c.Checkout.SecretKey == "" {
			return fmt.Errorf("CHECKOUT_SECRET_KEY is required in production")
		}
		if c.Checkout.WebhookSecret == "" {
			return fmt.Errorf("CHECKOUT_WEBHOOK_SECRET is required in production")
		}
		if c.Scheduler.ConfirmSecret == "" {
			return fmt.Errorf("SCHEDULER_CONFIRM_SECRET is required in production")
		}
	}

	if c.Booking.BufferHours < 0 {
		return fmt.Errorf("BOOKING_BUFFER_HOURS cannot be negative")
	}

	return nil
}

// getEnv gets an environment variable with a fallback default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a fallback default
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvAsSlice gets an environment variable as a comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
