package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Storage  StorageConfig
	S3       S3Config
	Redis    RedisConfig
	Lookup   LookupConfig
	Scanner  ScannerConfig
	Notify   NotifyConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
	// File enables a rotating log file next to stdout when set.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// StorageConfig selects the durable key/value backend for the inventory.
type StorageConfig struct {
	Backend string // file, s3, postgres, redis or memory
	Dir     string
	// Fallback keeps a local file copy behind a remote backend.
	Fallback bool
}

// S3Config holds AWS S3 configuration for the inventory snapshot.
type S3Config struct {
	Bucket string
	Region string
	Prefix string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LookupConfig configures the Open Food Facts client.
type LookupConfig struct {
	BaseURL       string        `validate:"required,url"`
	Timeout       time.Duration `validate:"gt=0"`
	RatePerMinute int           `validate:"min=1"`
	UserAgent     string        `validate:"required"`
	CacheEnabled  bool
	CacheTTL      time.Duration `validate:"gte=0"`
}

// ScannerConfig configures the barcode scanner device and decode loop.
type ScannerConfig struct {
	// Devices lists scanner devices as "label=path" or bare paths.
	Devices     []string
	SettleDelay time.Duration `validate:"gte=0"`
	FPS         int           `validate:"min=1,max=60"`
	BoxWidth    int           `validate:"min=1"`
	BoxHeight   int           `validate:"min=1"`
}

// NotifyConfig configures expiry alerts.
type NotifyConfig struct {
	Permission    string `validate:"oneof=default granted denied"`
	UrgentDays    int    `validate:"min=0"`
	CheckInterval time.Duration
	Channels      []string
	RedisChannel  string
	SMTP          SMTPConfig
}

// SMTPConfig holds mail alert settings.
type SMTPConfig struct {
	Server       string
	Port         int
	User         string
	Password     string
	From         string
	To           string
	AuthDisabled bool
}

var defaults = map[string]any{
	"SERVER_HOST":                 "0.0.0.0",
	"SERVER_PORT":                 8080,
	"DB_HOST":                     "localhost",
	"DB_PORT":                     5432,
	"DB_USER":                     "postgres",
	"DB_PASSWORD":                 "",
	"DB_NAME":                     "savethefridge",
	"DB_MAX_CONNECTIONS":          10,
	"DB_MIN_CONNECTIONS":          1,
	"DB_MAX_CONN_LIFETIME":        300,
	"LOG_LEVEL":                   "info",
	"LOG_FORMAT":                  "json",
	"LOG_FILE":                    "",
	"LOG_MAX_SIZE_MB":             10,
	"LOG_MAX_BACKUPS":             3,
	"API_KEY":                     "",
	"STORAGE_BACKEND":             "file",
	"STORAGE_DIR":                 "data",
	"STORAGE_FALLBACK":            false,
	"S3_BUCKET":                   "",
	"S3_REGION":                   "us-east-1",
	"S3_PREFIX":                   "savethefridge/",
	"REDIS_ADDR":                  "localhost:6379",
	"REDIS_PASSWORD":              "",
	"REDIS_DB":                    0,
	"LOOKUP_BASE_URL":             "https://world.openfoodfacts.org",
	"LOOKUP_TIMEOUT":              "10s",
	"LOOKUP_RATE_PER_MINUTE":      100,
	"LOOKUP_USER_AGENT":           "SaveTheFridge/1.0",
	"LOOKUP_CACHE_ENABLED":        false,
	"LOOKUP_CACHE_TTL":            "24h",
	"SCANNER_DEVICES":             "/dev/stdin",
	"SCANNER_SETTLE_DELAY":        "500ms",
	"SCANNER_FPS":                 10,
	"SCANNER_BOX_WIDTH":           250,
	"SCANNER_BOX_HEIGHT":          250,
	"NOTIFY_PERMISSION":           "default",
	"NOTIFY_URGENT_DAYS":          3,
	"NOTIFY_CHECK_INTERVAL":       "0s",
	"NOTIFY_CHANNELS":             "log",
	"NOTIFY_REDIS_CHANNEL":        "savethefridge:alerts",
	"SMTP_SERVER":                 "",
	"SMTP_PORT":                   587,
	"SMTP_USER":                   "",
	"SMTP_PASS":                   "",
	"ALERT_FROM":                  "",
	"ALERT_TO":                    "",
	"SMTP_AUTH_DISABLED":          false,
}

// Load loads configuration from environment variables and, when CONFIG_FILE is
// set, from that file. Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Database:        v.GetString("DB_NAME"),
			MaxConnections:  v.GetInt("DB_MAX_CONNECTIONS"),
			MinConnections:  v.GetInt("DB_MIN_CONNECTIONS"),
			MaxConnLifetime: v.GetInt("DB_MAX_CONN_LIFETIME"),
		},
		Logger: LoggerConfig{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		},
		Auth: AuthConfig{
			APIKey: v.GetString("API_KEY"),
		},
		Storage: StorageConfig{
			Backend:  strings.ToLower(v.GetString("STORAGE_BACKEND")),
			Dir:      v.GetString("STORAGE_DIR"),
			Fallback: v.GetBool("STORAGE_FALLBACK"),
		},
		S3: S3Config{
			Bucket: v.GetString("S3_BUCKET"),
			Region: v.GetString("S3_REGION"),
			Prefix: v.GetString("S3_PREFIX"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Lookup: LookupConfig{
			BaseURL:       strings.TrimRight(v.GetString("LOOKUP_BASE_URL"), "/"),
			Timeout:       v.GetDuration("LOOKUP_TIMEOUT"),
			RatePerMinute: v.GetInt("LOOKUP_RATE_PER_MINUTE"),
			UserAgent:     v.GetString("LOOKUP_USER_AGENT"),
			CacheEnabled:  v.GetBool("LOOKUP_CACHE_ENABLED"),
			CacheTTL:      v.GetDuration("LOOKUP_CACHE_TTL"),
		},
		Scanner: ScannerConfig{
			Devices:     splitList(v.GetString("SCANNER_DEVICES")),
			SettleDelay: v.GetDuration("SCANNER_SETTLE_DELAY"),
			FPS:         v.GetInt("SCANNER_FPS"),
			BoxWidth:    v.GetInt("SCANNER_BOX_WIDTH"),
			BoxHeight:   v.GetInt("SCANNER_BOX_HEIGHT"),
		},
		Notify: NotifyConfig{
			Permission:    strings.ToLower(v.GetString("NOTIFY_PERMISSION")),
			UrgentDays:    v.GetInt("NOTIFY_URGENT_DAYS"),
			CheckInterval: v.GetDuration("NOTIFY_CHECK_INTERVAL"),
			Channels:      splitList(strings.ToLower(v.GetString("NOTIFY_CHANNELS"))),
			RedisChannel:  v.GetString("NOTIFY_REDIS_CHANNEL"),
			SMTP: SMTPConfig{
				Server:       v.GetString("SMTP_SERVER"),
				Port:         v.GetInt("SMTP_PORT"),
				User:         v.GetString("SMTP_USER"),
				Password:     v.GetString("SMTP_PASS"),
				From:         v.GetString("ALERT_FROM"),
				To:           v.GetString("ALERT_TO"),
				AuthDisabled: v.GetBool("SMTP_AUTH_DISABLED"),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	switch c.Storage.Backend {
	case "file", "memory":
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when storage backend is s3")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when storage backend is s3")
		}
	case "postgres":
		if err := c.Database.validate(); err != nil {
			return err
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required when storage backend is redis")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be file, s3, postgres, redis, or memory)", c.Storage.Backend)
	}

	if (c.Storage.Backend == "file" || c.Storage.Fallback) && c.Storage.Dir == "" {
		return fmt.Errorf("storage directory is required for file storage")
	}

	if c.Lookup.CacheEnabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when the lookup cache is enabled")
	}

	for _, channel := range c.Notify.Channels {
		switch channel {
		case "log", "redis":
		case "smtp":
			if c.Notify.SMTP.Server == "" || c.Notify.SMTP.To == "" {
				return fmt.Errorf("SMTP server and recipient are required for the smtp alert channel")
			}
		default:
			return fmt.Errorf("invalid notify channel: %s (must be log, redis, or smtp)", channel)
		}
	}

	if len(c.Scanner.Devices) == 0 {
		return fmt.Errorf("at least one scanner device is required")
	}

	validate := validator.New()
	for _, section := range []any{c.Lookup, c.Scanner, c.Notify} {
		if err := validate.Struct(section); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	return nil
}

// RequireAPIKey reports an error when the HTTP API has no key configured.
func (c *Config) RequireAPIKey() error {
	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	return nil
}

func (c *DatabaseConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Port)
	}

	if c.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.MinConnections > c.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// splitList splits a comma separated setting, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
