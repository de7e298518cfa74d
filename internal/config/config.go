package config

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/viper"
)

// Store drivers
const (
	StoreDriverJSON     = "json"
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig
	Store     StoreConfig
	DB        DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Backend   BackendConfig
	Payment   PaymentConfig
	Auth      AuthConfig
	Logger    LoggerConfig
}

// AppConfig holds configuration for the HTTP server
type AppConfig struct {
	Environment            string `mapstructure:"APP_ENV"`
	HTTPPort               string `mapstructure:"HTTP_PORT"`
	ShutdownTimeoutSeconds int    `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`
	TrustedProxies         []string
}

// StoreConfig selects where user accounts live
type StoreConfig struct {
	Driver     string `mapstructure:"STORE_DRIVER"`
	JSONPath   string `mapstructure:"STORE_JSON_PATH"`
	SQLitePath string `mapstructure:"STORE_SQLITE_PATH"`
	WatchFile  bool   `mapstructure:"STORE_WATCH_FILE"`
}

// DatabaseConfig holds configuration for the PostgreSQL driver
type DatabaseConfig struct {
	Host            string `mapstructure:"DB_HOST"`
	Port            string `mapstructure:"DB_PORT"`
	User            string `mapstructure:"DB_USER"`
	Password        string `mapstructure:"DB_PASSWORD"`
	Name            string `mapstructure:"DB_NAME"`
	SSLMode         string `mapstructure:"DB_SSLMODE"`
	MaxOpenConns    int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `mapstructure:"DB_CONN_MAX_LIFETIME_SECONDS"`
	ConnMaxIdleTime int    `mapstructure:"DB_CONN_MAX_IDLE_TIME_SECONDS"`
}

// RedisConfig holds configuration for the profile cache, rate limiter and payment status store
type RedisConfig struct {
	Enabled     bool   `mapstructure:"REDIS_ENABLED"`
	Host        string `mapstructure:"REDIS_HOST"`
	Port        string `mapstructure:"REDIS_PORT"`
	Password    string `mapstructure:"REDIS_PASSWORD"`
	DB          int    `mapstructure:"REDIS_DB"`
	MaxRetries  int    `mapstructure:"REDIS_MAX_RETRIES"`
	PoolSize    int    `mapstructure:"REDIS_POOL_SIZE"`
	MinIdleConn int    `mapstructure:"REDIS_MIN_IDLE_CONN"`
	CacheTTL    int    `mapstructure:"REDIS_CACHE_TTL"` // seconds
}

// RateLimitConfig holds token bucket settings
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"RATE_LIMIT_ENABLED"`
	RequestsPerSecond float64 `mapstructure:"RATE_LIMIT_RPS"`
	BurstCapacity     int     `mapstructure:"RATE_LIMIT_BURST"`
}

// BackendConfig points at the external AI / flight / payment backend
type BackendConfig struct {
	URL                   string `mapstructure:"BACKEND_URL"`
	ChatTimeoutSeconds    int    `mapstructure:"BACKEND_CHAT_TIMEOUT_SECONDS"`
	RequestTimeoutSeconds int    `mapstructure:"BACKEND_REQUEST_TIMEOUT_SECONDS"`
}

// PaymentConfig controls the charge status poll
type PaymentConfig struct {
	PollIntervalSeconds int `mapstructure:"PAYMENT_POLL_INTERVAL_SECONDS"`
	MaxWatchMinutes     int `mapstructure:"PAYMENT_MAX_WATCH_MINUTES"` // 0 = until terminal status
	StatusTTLSeconds    int `mapstructure:"PAYMENT_STATUS_TTL_SECONDS"`
}

// AuthConfig controls password storage and session tokens
type AuthConfig struct {
	JWTSecret       string `mapstructure:"AUTH_JWT_SECRET"`
	TokenTTLMinutes int    `mapstructure:"AUTH_TOKEN_TTL_MINUTES"`
	HashPasswords   bool   `mapstructure:"AUTH_HASH_PASSWORDS"`
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	Level            string  `mapstructure:"LOG_LEVEL"`
	Format           string  `mapstructure:"LOG_FORMAT"`
	OutputPath       string  `mapstructure:"LOG_OUTPUT_PATH"`
	SlowQuerySeconds float64 `mapstructure:"LOG_SLOW_QUERY_SECONDS"`
	EnableSampling   bool    `mapstructure:"LOG_ENABLE_SAMPLING"`
	ServiceName      string  `mapstructure:"SERVICE_NAME"`
	ServiceVersion   string  `mapstructure:"SERVICE_VERSION"`
}

// LoadConfig reads configuration from app.env under path and from the environment.
// Environment variables win over the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("app") // app.env
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No file is fine when everything comes from the environment
	}

	var config Config

	config.App.Environment = v.GetString("APP_ENV")
	config.App.HTTPPort = v.GetString("HTTP_PORT")
	config.App.ShutdownTimeoutSeconds = v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")
	config.App.TrustedProxies = v.GetStringSlice("TRUSTED_PROXIES")

	config.Store.Driver = v.GetString("STORE_DRIVER")
	config.Store.JSONPath = v.GetString("STORE_JSON_PATH")
	config.Store.SQLitePath = v.GetString("STORE_SQLITE_PATH")
	config.Store.WatchFile = v.GetBool("STORE_WATCH_FILE")

	config.DB.Host = v.GetString("DB_HOST")
	config.DB.Port = v.GetString("DB_PORT")
	config.DB.User = v.GetString("DB_USER")
	config.DB.Password = v.GetString("DB_PASSWORD")
	config.DB.Name = v.GetString("DB_NAME")
	config.DB.SSLMode = v.GetString("DB_SSLMODE")
	config.DB.MaxOpenConns = v.GetInt("DB_MAX_OPEN_CONNS")
	config.DB.MaxIdleConns = v.GetInt("DB_MAX_IDLE_CONNS")
	config.DB.ConnMaxLifetime = v.GetInt("DB_CONN_MAX_LIFETIME_SECONDS")
	config.DB.ConnMaxIdleTime = v.GetInt("DB_CONN_MAX_IDLE_TIME_SECONDS")

	config.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	config.Redis.Host = v.GetString("REDIS_HOST")
	config.Redis.Port = v.GetString("REDIS_PORT")
	config.Redis.Password = v.GetString("REDIS_PASSWORD")
	config.Redis.DB = v.GetInt("REDIS_DB")
	config.Redis.MaxRetries = v.GetInt("REDIS_MAX_RETRIES")
	config.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	config.Redis.MinIdleConn = v.GetInt("REDIS_MIN_IDLE_CONN")
	config.Redis.CacheTTL = v.GetInt("REDIS_CACHE_TTL")

	config.RateLimit.Enabled = v.GetBool("RATE_LIMIT_ENABLED")
	config.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_RPS")
	config.RateLimit.BurstCapacity = v.GetInt("RATE_LIMIT_BURST")

	config.Backend.URL = v.GetString("BACKEND_URL")
	config.Backend.ChatTimeoutSeconds = v.GetInt("BACKEND_CHAT_TIMEOUT_SECONDS")
	config.Backend.RequestTimeoutSeconds = v.GetInt("BACKEND_REQUEST_TIMEOUT_SECONDS")

	config.Payment.PollIntervalSeconds = v.GetInt("PAYMENT_POLL_INTERVAL_SECONDS")
	config.Payment.MaxWatchMinutes = v.GetInt("PAYMENT_MAX_WATCH_MINUTES")
	config.Payment.StatusTTLSeconds = v.GetInt("PAYMENT_STATUS_TTL_SECONDS")

	config.Auth.JWTSecret = v.GetString("AUTH_JWT_SECRET")
	config.Auth.TokenTTLMinutes = v.GetInt("AUTH_TOKEN_TTL_MINUTES")
	config.Auth.HashPasswords = v.GetBool("AUTH_HASH_PASSWORDS")

	config.Logger.Level = v.GetString("LOG_LEVEL")
	config.Logger.Format = v.GetString("LOG_FORMAT")
	config.Logger.OutputPath = v.GetString("LOG_OUTPUT_PATH")
	config.Logger.SlowQuerySeconds = v.GetFloat64("LOG_SLOW_QUERY_SECONDS")
	config.Logger.EnableSampling = v.GetBool("LOG_ENABLE_SAMPLING")
	config.Logger.ServiceName = v.GetString("SERVICE_NAME")
	config.Logger.ServiceVersion = v.GetString("SERVICE_VERSION")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 10)

	v.SetDefault("STORE_DRIVER", StoreDriverJSON)
	v.SetDefault("STORE_JSON_PATH", "../backend-shadcn-chat/user_database.json")
	v.SetDefault("STORE_SQLITE_PATH", "users.db")
	v.SetDefault("STORE_WATCH_FILE", true)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "flyte")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_SECONDS", 300)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONN", 2)
	v.SetDefault("REDIS_CACHE_TTL", 300)

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	v.SetDefault("BACKEND_URL", "http://localhost:8000")
	v.SetDefault("BACKEND_CHAT_TIMEOUT_SECONDS", 120)
	v.SetDefault("BACKEND_REQUEST_TIMEOUT_SECONDS", 15)

	v.SetDefault("PAYMENT_POLL_INTERVAL_SECONDS", 5)
	v.SetDefault("PAYMENT_MAX_WATCH_MINUTES", 0)
	v.SetDefault("PAYMENT_STATUS_TTL_SECONDS", 86400)

	v.SetDefault("AUTH_TOKEN_TTL_MINUTES", 1440)
	v.SetDefault("AUTH_HASH_PASSWORDS", true)

	if v.GetString("APP_ENV") == "production" {
		v.SetDefault("LOG_LEVEL", "info")
		v.SetDefault("LOG_FORMAT", "json")
		v.SetDefault("LOG_ENABLE_SAMPLING", true)
	} else {
		v.SetDefault("LOG_LEVEL", "debug")
		v.SetDefault("LOG_FORMAT", "console")
		v.SetDefault("LOG_ENABLE_SAMPLING", false)
	}
	v.SetDefault("LOG_OUTPUT_PATH", "stdout")
	v.SetDefault("LOG_SLOW_QUERY_SECONDS", 0.2)
	v.SetDefault("SERVICE_NAME", "flyte-gateway")
	v.SetDefault("SERVICE_VERSION", "1.0.0")
}

// Validate checks the loaded configuration for values the container cannot work with
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.App.HTTPPort); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid HTTP_PORT %q", c.App.HTTPPort)
	}
	if c.App.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT_SECONDS must be positive")
	}

	switch c.Store.Driver {
	case StoreDriverJSON:
		if c.Store.JSONPath == "" {
			return fmt.Errorf("STORE_JSON_PATH is required for the json store")
		}
	case StoreDriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("STORE_SQLITE_PATH is required for the sqlite store")
		}
	case StoreDriverPostgres:
		if c.DB.Host == "" || c.DB.Name == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid BACKEND_URL %q", c.Backend.URL)
	}
	if c.Backend.ChatTimeoutSeconds <= 0 || c.Backend.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("backend timeouts must be positive")
	}

	if c.Payment.PollIntervalSeconds <= 0 {
		return fmt.Errorf("PAYMENT_POLL_INTERVAL_SECONDS must be positive")
	}
	if c.Payment.MaxWatchMinutes < 0 {
		return fmt.Errorf("PAYMENT_MAX_WATCH_MINUTES must not be negative")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.BurstCapacity <= 0) {
		return fmt.Errorf("rate limit needs positive RATE_LIMIT_RPS and RATE_LIMIT_BURST")
	}

	if c.Redis.Enabled && c.Redis.CacheTTL <= 0 {
		return fmt.Errorf("REDIS_CACHE_TTL must be positive")
	}

	return nil
}

// DSN returns the PostgreSQL Data Source Name
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}
