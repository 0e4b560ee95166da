// Package config provides configuration management for the scholars proxy.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/scholars-client/pkg/client"
	"github.com/Sternrassler/scholars-client/pkg/logging"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SCHOLARS"

// EnvFileVar names the variable that points at the .env file.
const EnvFileVar = EnvPrefix + "_ENV_FILE"

// Config holds all configuration for the scholars proxy.
type Config struct {
	// Server contains HTTP listener settings.
	Server ServerConfig `mapstructure:"server"`
	// API contains Graph API client settings.
	API APIConfig `mapstructure:"api"`
	// Redis contains the optional cache and cooldown store.
	Redis RedisConfig `mapstructure:"redis"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Gateway contains limits applied to proxied listings.
	Gateway GatewayConfig `mapstructure:"gateway"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// Address returns host:port for the listener.
func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// APIConfig holds Graph API client settings.
type APIConfig struct {
	BaseURL   string `mapstructure:"base_url" validate:"required,url"`
	UserAgent string `mapstructure:"user_agent" validate:"required"`
	// APIKey is read from SCHOLARS_API_KEY only.
	APIKey      string        `mapstructure:"-"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RateLimit   float64       `mapstructure:"rate_limit" validate:"gte=0"`
	Burst       int           `mapstructure:"burst" validate:"gte=1"`
	MaxAttempts int           `mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

// RedisConfig holds Redis settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	// Password is read from SCHOLARS_REDIS_PASSWORD only.
	Password string `mapstructure:"-"`
	DB       int    `mapstructure:"db" validate:"gte=0,lte=15"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// NewClient returns a Redis client, or nil when Redis is disabled.
func (c RedisConfig) NewClient() *redis.Client {
	if !c.Enabled() {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// Logger returns the logging package configuration.
func (c LoggingConfig) Logger() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Level)
	cfg.Format = logging.Format(c.Format)
	return cfg
}

// GatewayConfig bounds what one proxied request may pull.
type GatewayConfig struct {
	// DefaultResults is used when a request gives no limit.
	DefaultResults uint64 `mapstructure:"default_results" validate:"gte=1,ltefield=MaxResults"`
	// MaxResults caps the items collected for one request.
	MaxResults uint64 `mapstructure:"max_results" validate:"gte=1,lte=9999"`
	// MaxIDs caps the ids accepted by fan-out routes.
	MaxIDs int `mapstructure:"max_ids" validate:"gte=1"`
	// FanOutConcurrency is the number of listings drained in parallel.
	FanOutConcurrency int `mapstructure:"fanout_concurrency" validate:"gte=1"`
	// RequestTimeout bounds one proxied request.
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// ClientConfig builds the Graph API client configuration. rdb may be nil.
func (c *Config) ClientConfig(rdb *redis.Client) client.Config {
	cfg := client.DefaultConfig(c.API.UserAgent)
	cfg.BaseURL = c.API.BaseURL
	cfg.APIKey = c.API.APIKey
	cfg.Timeout = c.API.Timeout
	cfg.RateLimit = c.API.RateLimit
	cfg.Burst = c.API.Burst
	cfg.Retry.MaxAttempts = c.API.MaxAttempts
	cfg.CacheTTL = c.API.CacheTTL
	cfg.Redis = rdb
	return cfg
}

// Load reads configuration from a .env file, environment variables and an
// optional config.yaml, in increasing order of precedence for the
// environment.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads SCHOLARS_ENV_FILE, or .env. A missing file is not an
// error. Variables already set in the environment win.
func loadDotEnv() error {
	path := os.Getenv(EnvFileVar)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.API.APIKey = os.Getenv(EnvPrefix + "_API_KEY")
	cfg.Redis.Password = os.Getenv(EnvPrefix + "_REDIS_PASSWORD")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "2m")
	v.SetDefault("server.shutdown_timeout", "15s")

	// API defaults
	v.SetDefault("api.base_url", client.DefaultBaseURL)
	v.SetDefault("api.user_agent", "scholars-proxy/0.1.0")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.rate_limit", 1.0)
	v.SetDefault("api.burst", 1)
	v.SetDefault("api.max_attempts", 3)
	v.SetDefault("api.cache_ttl", "10m")

	// Redis defaults
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Gateway defaults
	v.SetDefault("gateway.default_results", 100)
	v.SetDefault("gateway.max_results", 1000)
	v.SetDefault("gateway.max_ids", 20)
	v.SetDefault("gateway.fanout_concurrency", 4)
	v.SetDefault("gateway.request_timeout", "2m")
}
