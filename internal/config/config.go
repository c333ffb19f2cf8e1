// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for our application
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Security SecurityConfig
	Realtime RealtimeConfig
	Kafka    KafkaConfig
	Sales    SalesConfig
	Email    EmailConfig
	Logging  LoggingConfig
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Debug       bool
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Driver       string // postgres or sqlite
	Path         string // sqlite file, ":memory:" allowed
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SeedSample   bool
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	TrustedProxies     []string
	IdempotencyTTL     time.Duration
}

// RealtimeConfig controls the inventory push channel
type RealtimeConfig struct {
	Enabled      bool
	Channel      string
	WriteTimeout time.Duration
	PingInterval time.Duration
	SendBuffer   int
}

// KafkaConfig enables the optional Kafka event sink when Brokers is set
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// SalesConfig contains point-of-sale business settings
type SalesConfig struct {
	Currency          string
	Locale            string
	RecentLimit       int
	ReportOrder       string // asc or desc
	LowStockThreshold int
	CartTTL           time.Duration
	CommitTimeout     time.Duration
}

// EmailConfig controls low-stock alert emails. Alerts are mailed only when
// AlertRecipients is set.
type EmailConfig struct {
	Provider        string // smtp or resend
	APIKey          string
	APIBaseURL      string
	FromEmail       string
	FromName        string
	SMTPHost        string
	SMTPPort        int
	SMTPUser        string
	SMTPPass        string
	SMTPUseTLS      bool
	AlertRecipients []string
	SendTimeout     time.Duration
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Shoe POS"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvAsBool("APP_DEBUG", true),
		},
		Server: ServerConfig{
			Port:           getEnv("APP_PORT", "5000"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
			MaxBodyBytes:   getEnvAsInt64("SERVER_MAX_BODY_BYTES", 1<<20), // 1MB
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			Path:         getEnv("DB_PATH", "shoe_pos.db"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Name:         getEnv("DB_NAME", "shoe_pos"),
			User:         getEnv("DB_USER", "shoe_pos"),
			Password:     getEnv("DB_PASSWORD", "shoe_pos"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 300*time.Second),
			SeedSample:   getEnvAsBool("DB_SEED_SAMPLE", true),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
		},
		Security: SecurityConfig{
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 300),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
			CORSAllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			CORSAllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", "X-Request-ID"}),
			TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
			IdempotencyTTL:     getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Realtime: RealtimeConfig{
			Enabled:      getEnvAsBool("REALTIME_ENABLED", true),
			Channel:      getEnv("REALTIME_CHANNEL", "pos:inventory-events"),
			WriteTimeout: getEnvAsDuration("REALTIME_WRITE_TIMEOUT", 10*time.Second),
			PingInterval: getEnvAsDuration("REALTIME_PING_INTERVAL", 30*time.Second),
			SendBuffer:   getEnvAsInt("REALTIME_SEND_BUFFER", 32),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsSlice("KAFKA_BROKERS", []string{}),
			Topic:   getEnv("KAFKA_TOPIC", "pos.inventory-events"),
		},
		Sales: SalesConfig{
			Currency:          getEnv("SALES_CURRENCY", "PHP"),
			Locale:            getEnv("SALES_LOCALE", "en-PH"),
			RecentLimit:       getEnvAsInt("SALES_RECENT_LIMIT", 5),
			ReportOrder:       strings.ToLower(getEnv("SALES_REPORT_ORDER", "desc")),
			LowStockThreshold: getEnvAsInt("LOW_STOCK_THRESHOLD", 5),
			CartTTL:           getEnvAsDuration("CART_TTL", 24*time.Hour),
			CommitTimeout:     getEnvAsDuration("SALES_COMMIT_TIMEOUT", 10*time.Second),
		},
		Email: EmailConfig{
			Provider:        strings.ToLower(getEnv("EMAIL_PROVIDER", "smtp")),
			APIKey:          getEnv("EMAIL_API_KEY", ""),
			APIBaseURL:      getEnv("EMAIL_API_BASE_URL", "https://api.resend.com"),
			FromEmail:       getEnv("FROM_EMAIL", "noreply@example.com"),
			FromName:        getEnv("FROM_NAME", "Shoe POS"),
			SMTPHost:        getEnv("SMTP_HOST", ""),
			SMTPPort:        getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:        getEnv("SMTP_USER", ""),
			SMTPPass:        getEnv("SMTP_PASS", ""),
			SMTPUseTLS:      getEnvAsBool("SMTP_USE_TLS", false),
			AlertRecipients: getEnvAsSlice("ALERT_EMAIL_TO", []string{}),
			SendTimeout:     getEnvAsDuration("EMAIL_SEND_TIMEOUT", 15*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for sqlite")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	if c.Sales.ReportOrder != "asc" && c.Sales.ReportOrder != "desc" {
		return fmt.Errorf("SALES_REPORT_ORDER must be asc or desc, got %q", c.Sales.ReportOrder)
	}
	if c.Sales.RecentLimit <= 0 {
		return fmt.Errorf("SALES_RECENT_LIMIT must be positive")
	}
	if c.Sales.LowStockThreshold < 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD must not be negative")
	}

	if c.AlertEmailsEnabled() {
		switch c.Email.Provider {
		case "smtp":
			if c.Email.SMTPHost == "" {
				return fmt.Errorf("SMTP_HOST is required when ALERT_EMAIL_TO is set")
			}
		case "resend":
			if c.Email.APIKey == "" {
				return fmt.Errorf("EMAIL_API_KEY is required for the resend provider")
			}
		default:
			return fmt.Errorf("EMAIL_PROVIDER must be smtp or resend, got %q", c.Email.Provider)
		}
	}

	return nil
}

// Default returns a configuration populated with defaults only, without
// reading the environment. Tests start from it.
func Default() *Config {
	return &Config{
		App:    AppConfig{Name: "Shoe POS", Version: "test", Environment: "test"},
		Server: ServerConfig{Port: "5000", RequestTimeout: 30 * time.Second, MaxBodyBytes: 1 << 20},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			Path:         ":memory:",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Redis: RedisConfig{Host: "localhost", Port: "6379"},
		Security: SecurityConfig{
			RateLimitPerMinute: 300,
			CORSAllowedOrigins: []string{"*"},
			CORSAllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			CORSAllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
			IdempotencyTTL:     time.Hour,
		},
		Realtime: RealtimeConfig{
			Enabled:      true,
			Channel:      "pos:inventory-events",
			WriteTimeout: 5 * time.Second,
			PingInterval: 30 * time.Second,
			SendBuffer:   16,
		},
		Kafka: KafkaConfig{Topic: "pos.inventory-events"},
		Sales: SalesConfig{
			Currency:          "PHP",
			Locale:            "en-PH",
			RecentLimit:       5,
			ReportOrder:       "desc",
			LowStockThreshold: 5,
			CartTTL:           24 * time.Hour,
			CommitTimeout:     10 * time.Second,
		},
		Email: EmailConfig{
			Provider:    "smtp",
			APIBaseURL:  "https://api.resend.com",
			FromEmail:   "noreply@example.com",
			FromName:    "Shoe POS",
			SMTPPort:    587,
			SendTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{Level: "error", Format: "text"},
	}
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns the postgres connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// KafkaEnabled reports whether a Kafka sink should be attached
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// AlertEmailsEnabled reports whether low-stock alerts should be mailed
func (c *Config) AlertEmailsEnabled() bool {
	return len(c.Email.AlertRecipients) > 0
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
