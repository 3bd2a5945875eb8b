package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// InventoryConfig holds inventory API configuration
type InventoryConfig struct {
	BaseURL              string        `mapstructure:"base_url"`
	AuthToken            string        `mapstructure:"auth_token"` // Empty when calls go through the credential proxy
	Timeout              time.Duration `mapstructure:"timeout"`
	MaxRetries           int           `mapstructure:"max_retries"`
	MaxRequestsPerSecond int           `mapstructure:"max_requests_per_second"`

	FastLoadLimit int    `mapstructure:"fast_load_limit"`
	PageSize      int    `mapstructure:"page_size"`
	MaxProducts   int    `mapstructure:"max_products"`
	FolderLimit   int    `mapstructure:"folder_limit"`
	ProductOrder  string `mapstructure:"product_order"`

	FillRetryInterval time.Duration `mapstructure:"fill_retry_interval"` // Wait before retrying a failed background fill
}

// CacheConfig holds TTLs and the durable cache backend
type CacheConfig struct {
	Backend     string        `mapstructure:"backend"` // redis, postgres or memory
	Version     string        `mapstructure:"version"`
	ProductTTL  time.Duration `mapstructure:"product_ttl"`
	CategoryTTL time.Duration `mapstructure:"category_ttl"`
	QueryTTL    time.Duration `mapstructure:"query_ttl"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Password           string `mapstructure:"password"`
	Database           int    `mapstructure:"database"`
	KeyPrefix          string `mapstructure:"key_prefix"`
	InvalidationStream string `mapstructure:"invalidation_stream"`
	ConsumerGroup      string `mapstructure:"consumer_group"`
	StreamMaxLen       int64  `mapstructure:"stream_max_len"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ProxyConfig configures the credential-injecting inventory proxy
type ProxyConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Upstream     string        `mapstructure:"upstream"`
	Token        string        `mapstructure:"token"`
	PathPrefix   string        `mapstructure:"path_prefix"`
	AllowOrigins []string      `mapstructure:"allow_origins"`
	CheckOnStart bool          `mapstructure:"check_on_start"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

func (p ProxyConfig) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// Load loads configuration from config.yaml in the current directory with
// environment variable overrides
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom loads config.yaml from dir with environment variable overrides
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("config.yaml file not found in %s", dir)
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the loader cannot work with
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "redis", "postgres", "memory":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("cache backend redis requires redis.enabled")
	}
	if c.Inventory.FastLoadLimit <= 0 || c.Inventory.PageSize <= 0 {
		return fmt.Errorf("inventory.fast_load_limit and inventory.page_size must be positive")
	}
	if c.Inventory.MaxProducts < c.Inventory.FastLoadLimit {
		return fmt.Errorf("inventory.max_products (%d) is below inventory.fast_load_limit (%d)",
			c.Inventory.MaxProducts, c.Inventory.FastLoadLimit)
	}
	if c.Inventory.MaxRequestsPerSecond <= 0 {
		return fmt.Errorf("inventory.max_requests_per_second must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("inventory.base_url", "http://localhost:8081/api/remap/1.2")
	v.SetDefault("inventory.auth_token", "")
	v.SetDefault("inventory.timeout", "30s")
	v.SetDefault("inventory.max_retries", 0)
	v.SetDefault("inventory.max_requests_per_second", 15)
	v.SetDefault("inventory.fast_load_limit", 1000)
	v.SetDefault("inventory.fill_retry_interval", "30s")
	v.SetDefault("inventory.page_size", 1000)
	v.SetDefault("inventory.max_products", 5000)
	v.SetDefault("inventory.folder_limit", 1000)
	v.SetDefault("inventory.product_order", "updated,desc")

	v.SetDefault("cache.backend", "redis")
	v.SetDefault("cache.version", "v3")
	v.SetDefault("cache.product_ttl", "1h")
	v.SetDefault("cache.category_ttl", "5m")
	v.SetDefault("cache.query_ttl", "1h")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "storefront")
	v.SetDefault("database.user", "storefront_user")
	v.SetDefault("database.password", "storefront_pass")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.key_prefix", "storefront:")
	v.SetDefault("redis.invalidation_stream", "storefront:stream:invalidation")
	v.SetDefault("redis.consumer_group", "catalog")
	v.SetDefault("redis.stream_max_len", 1000)

	v.SetDefault("proxy.host", "0.0.0.0")
	v.SetDefault("proxy.port", 8081)
	v.SetDefault("proxy.upstream", "https://api.moysklad.ru")
	v.SetDefault("proxy.token", "")
	v.SetDefault("proxy.path_prefix", "/api/remap/1.2")
	v.SetDefault("proxy.allow_origins", []string{"*"})
	v.SetDefault("proxy.check_on_start", false)
	v.SetDefault("proxy.timeout", "60s")
}
