package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"http_server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Security    SecurityConfig    `mapstructure:"security"`
	Finance     FinanceConfig     `mapstructure:"finance"`
	Locale      LocaleConfig      `mapstructure:"locale"`
	Attachments AttachmentsConfig `mapstructure:"attachments"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
	StorageDriverDocument = "document"
	StorageDriverMemory   = "memory"
)

// StorageConfig selects the request repository backend.
type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	DocumentURL string `mapstructure:"document_url"`
	SessionURL  string `mapstructure:"session_url"`
}

type SecurityConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret"`
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration"`
	BCryptCost          int           `mapstructure:"bcrypt_cost"`
}

type FinanceConfig struct {
	WebhookURL   string        `mapstructure:"webhook_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	MaxWorkers   int           `mapstructure:"max_workers"`
	JobQueueSize int           `mapstructure:"job_queue_size"`
}

type LocaleConfig struct {
	Language        string `mapstructure:"language"`
	DefaultCurrency string `mapstructure:"default_currency"`
}

type AttachmentsConfig struct {
	BlobURL      string   `mapstructure:"blob_url"`
	MaxSizeMB    int64    `mapstructure:"max_size_mb"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Env    string `mapstructure:"env"`
}

// LoadConfigFromEnv builds a Config from plain environment variables for
// container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	cfg := DefaultConfig()

	cfg.Server.Port = getEnvAsInt("HTTP_PORT", cfg.Server.Port)
	cfg.Server.BaseURL = getEnv("BASE_URL", cfg.Server.BaseURL)
	cfg.Server.AllowedOrigins = getEnv("ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Source = getEnv("DATABASE_URL", cfg.Database.Source)
	cfg.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.DocumentURL = getEnv("STORAGE_DOCUMENT_URL", cfg.Storage.DocumentURL)
	cfg.Storage.SessionURL = getEnv("STORAGE_SESSION_URL", cfg.Storage.SessionURL)

	cfg.Security.JWTSecret = getEnv("JWT_SECRET", cfg.Security.JWTSecret)
	cfg.Security.BCryptCost = getEnvAsInt("BCRYPT_COST", cfg.Security.BCryptCost)

	cfg.Finance.WebhookURL = getEnv("FINANCE_WEBHOOK_URL", cfg.Finance.WebhookURL)
	cfg.Finance.APIKey = getEnv("FINANCE_API_KEY", cfg.Finance.APIKey)
	cfg.Finance.MaxWorkers = getEnvAsInt("FINANCE_MAX_WORKERS", cfg.Finance.MaxWorkers)
	cfg.Finance.MaxRetries = getEnvAsInt("FINANCE_MAX_RETRIES", cfg.Finance.MaxRetries)

	cfg.Locale.Language = getEnv("LOCALE_LANGUAGE", cfg.Locale.Language)
	cfg.Locale.DefaultCurrency = getEnv("LOCALE_DEFAULT_CURRENCY", cfg.Locale.DefaultCurrency)

	cfg.Attachments.BlobURL = getEnv("ATTACHMENTS_BLOB_URL", cfg.Attachments.BlobURL)

	cfg.Logging.Env = getEnv("APP_ENV", cfg.Logging.Env)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)

	return cfg
}

// DefaultConfig returns the values used when a key is absent from config.yml.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			OpenAPIPath:       "./api/openapi.yml",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
			WriteTimeout:      15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "pgx",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Driver:      StorageDriverPostgres,
			DocumentURL: "file://localhost/tmp/expense-approval/store",
			SessionURL:  "file://localhost/tmp/expense-approval/session",
		},
		Security: SecurityConfig{
			AccessTokenDuration: time.Hour,
			BCryptCost:          10,
		},
		Finance: FinanceConfig{
			Timeout:      10 * time.Second,
			MaxRetries:   3,
			MaxWorkers:   4,
			JobQueueSize: 100,
		},
		Locale: LocaleConfig{
			Language:        "vi",
			DefaultCurrency: "VND",
		},
		Attachments: AttachmentsConfig{
			BlobURL:   "file://localhost/tmp/expense-approval/blobs",
			MaxSizeMB: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Env:    "development",
		},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if c.Storage.UsesDatabase() {
		if err := c.Database.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("database config: %v", err))
		}
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Finance.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("finance config: %v", err))
	}

	if err := c.Locale.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("locale config: %v", err))
	}

	if err := c.Attachments.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("attachments config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case StorageDriverPostgres, StorageDriverSQLite, StorageDriverMemory:
		return nil
	case StorageDriverDocument:
		if c.DocumentURL == "" {
			return errors.New("document_url is required for the document driver")
		}
		return nil
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
}

// UsesDatabase reports whether the configured driver needs a SQL connection.
func (c *StorageConfig) UsesDatabase() bool {
	return c.Driver == StorageDriverPostgres || c.Driver == StorageDriverSQLite
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("jwt_secret must be at least 16 characters")
	}
	if c.BCryptCost != 0 && (c.BCryptCost < 4 || c.BCryptCost > 15) {
		return errors.New("bcrypt_cost must be between 4 and 15")
	}
	return nil
}

func (c *FinanceConfig) Validate() error {
	if c.WebhookURL != "" {
		if _, err := url.ParseRequestURI(c.WebhookURL); err != nil {
			return fmt.Errorf("invalid webhook_url: %w", err)
		}
	}
	if c.MaxRetries < 0 {
		return errors.New("max_retries cannot be negative")
	}
	return nil
}

func (c *LocaleConfig) Validate() error {
	if c.DefaultCurrency != "" && len(c.DefaultCurrency) != 3 {
		return errors.New("default_currency must be a 3-letter ISO 4217 code")
	}
	return nil
}

func (c *AttachmentsConfig) Validate() error {
	if c.MaxSizeMB < 0 {
		return errors.New("max_size_mb cannot be negative")
	}
	return nil
}

// MaxSizeBytes converts the configured megabyte limit to bytes.
func (c *AttachmentsConfig) MaxSizeBytes() int64 {
	return c.MaxSizeMB * 1024 * 1024
}
