// Package config loads the application configuration from the environment
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config represents the application configuration
type Config struct {
	// API contains API server configuration
	API APIConfig
	// Auth contains authentication configuration
	Auth AuthConfig
	// Database contains database configuration
	Database DatabaseConfig
	// Email contains email service configuration
	Email EmailConfig
	// Trust contains context-based auth configuration
	Trust TrustConfig

	// Rate Limiting Configuration
	RateLimit struct {
		Requests int // Number of requests allowed per window
		Window   int // Time window in seconds
		Burst    int // Maximum burst size
	}
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname
	Host string
	// Port is the database server port
	Port int
	// User is the database username
	User string
	// Password is the database password
	Password string
	// DBName is the database name
	DBName string
	// SSLMode is the SSL mode for the database connection
	SSLMode string
	// MigrationsPath is the path to database migrations
	MigrationsPath string
}

// APIConfig contains API server settings
type APIConfig struct {
	// Port is the server port to listen on
	Port string
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	// JWTSecret is the secret key used to sign JWT tokens
	JWTSecret string
	// JWTExpirationMinutes is the access token expiration time in minutes
	JWTExpirationMinutes int
	// RegistrationOpen determines if new user registration is allowed
	RegistrationOpen bool
}

// EmailConfig contains email service settings
type EmailConfig struct {
	// SMTPHost is the SMTP server hostname
	SMTPHost string
	// SMTPPort is the SMTP server port
	SMTPPort int
	// SMTPUsername is the SMTP authentication username
	SMTPUsername string
	// SMTPPassword is the SMTP authentication password
	SMTPPassword string
	// FromAddress is the email address used as sender
	FromAddress string
	// AppURL is the base URL of the application, used in action links
	AppURL string
}

// TrustConfig contains context-based authentication settings
type TrustConfig struct {
	// BlockThreshold is the number of unverified attempts after which a
	// suspicious context is permanently blocked
	BlockThreshold int
	// StaleRecordMaxAgeDays is how long unresolved suspicious records are
	// kept before the maintenance job purges them
	StaleRecordMaxAgeDays int
	// AuditRetentionDays is how long audit log rows are kept
	AuditRetentionDays int
}

// LoadFromEnv retrieves configuration from environment variables
func (c *Config) LoadFromEnv() error {
	c.API = APIConfig{
		Port: getEnvOrDefault("API_PORT", "8080"),
	}
	c.Database = DatabaseConfig{
		Host:           getEnvOrDefault("DB_HOST", "localhost"),
		Port:           getEnvAsInt("DB_PORT", 5432),
		User:           getEnvOrDefault("DB_USER", "postgres"),
		Password:       getEnvOrDefault("DB_PASSWORD", "postgres"),
		DBName:         getEnvOrDefault("DB_NAME", "contextguard"),
		SSLMode:        getEnvOrDefault("DB_SSL_MODE", "disable"),
		MigrationsPath: "migrations",
	}
	c.Auth = AuthConfig{
		JWTSecret:            os.Getenv("JWT_SECRET"),
		JWTExpirationMinutes: getEnvAsInt("JWT_EXPIRATION_MINUTES", 15),
		RegistrationOpen:     getEnvAsBool("REGISTRATION_OPEN", true),
	}
	c.Email = EmailConfig{
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		FromAddress:  os.Getenv("SMTP_FROM"),
		AppURL:       os.Getenv("APP_URL"),
	}
	c.Trust = TrustConfig{
		BlockThreshold:        getEnvAsInt("TRUST_BLOCK_THRESHOLD", 3),
		StaleRecordMaxAgeDays: getEnvAsInt("TRUST_STALE_RECORD_MAX_AGE_DAYS", 90),
		AuditRetentionDays:    getEnvAsInt("AUDIT_RETENTION_DAYS", 365),
	}

	// Load rate limit configuration
	c.RateLimit.Requests = getEnvAsInt("RATE_LIMIT_REQUESTS", 1000)
	c.RateLimit.Window = getEnvAsInt("RATE_LIMIT_WINDOW", 60)
	c.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", 50)

	// Validate required fields
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	return nil
}

// getEnvAsInt retrieves an environment variable and converts it to an integer
func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvAsBool retrieves an environment variable and converts it to a boolean
func getEnvAsBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvOrDefault(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
