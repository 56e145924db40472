package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rl1809/storefront/internal/core/domain"
)

type Config struct {
	HTTP     ServerConfig   `yaml:"http"`
	GRPC     ServerConfig   `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Orders   OrdersConfig   `yaml:"orders"`
	Cart     CartConfig     `yaml:"cart"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig is optional. With an empty Addr carts and order sequences are
// kept in the database and duplicate-request protection is off.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type OrdersConfig struct {
	Timezone              string        `yaml:"timezone"`
	TaxRate               string        `yaml:"tax_rate"`
	FreeShippingThreshold string        `yaml:"free_shipping_threshold"`
	FlatShipping          string        `yaml:"flat_shipping"`
	NotifyTimeout         time.Duration `yaml:"notify_timeout"`
}

type CartConfig struct {
	Retention time.Duration `yaml:"retention"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		HTTP: ServerConfig{Addr: ":8080", ShutdownTimeout: 5 * time.Second},
		GRPC: ServerConfig{Addr: ":50051", ShutdownTimeout: 5 * time.Second},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "storefront.db",
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{PoolSize: 100},
		Kafka: KafkaConfig{Topic: "storefront.notifications"},
		Orders: OrdersConfig{
			Timezone:              "UTC",
			TaxRate:               "0.10",
			FreeShippingThreshold: "100",
			FlatShipping:          "10",
			NotifyTimeout:         10 * time.Second,
		},
		Cart: CartConfig{Retention: domain.DefaultCartRetention},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// STOREFRONT_* environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.HTTP.Addr = getEnv("STOREFRONT_HTTP_ADDR", c.HTTP.Addr)
	c.GRPC.Addr = getEnv("STOREFRONT_GRPC_ADDR", c.GRPC.Addr)
	c.Database.Driver = getEnv("STOREFRONT_DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("STOREFRONT_DB_DSN", c.Database.DSN)
	c.Redis.Addr = getEnv("STOREFRONT_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("STOREFRONT_REDIS_PASSWORD", c.Redis.Password)
	if brokers := getEnv("STOREFRONT_KAFKA_BROKERS", ""); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	c.Kafka.Topic = getEnv("STOREFRONT_KAFKA_TOPIC", c.Kafka.Topic)
	c.Orders.Timezone = getEnv("STOREFRONT_TIMEZONE", c.Orders.Timezone)
	c.Log.Level = getEnv("STOREFRONT_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("STOREFRONT_LOG_FORMAT", c.Log.Format)

	if v := getEnv("STOREFRONT_REDIS_DB", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid STOREFRONT_REDIS_DB %q: %w", v, err)
		}
		c.Redis.DB = n
	}
	if v := getEnv("STOREFRONT_CART_RETENTION", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid STOREFRONT_CART_RETENTION %q: %w", v, err)
		}
		c.Cart.Retention = d
	}
	return nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "mysql", "postgres", "postgresql", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.HTTP.Addr == "" && c.GRPC.Addr == "" {
		return fmt.Errorf("at least one of http.addr or grpc.addr is required")
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka topic is required when brokers are set")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.Pricing(); err != nil {
		return err
	}
	if c.Cart.Retention <= 0 {
		return fmt.Errorf("cart retention must be positive")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}
	return nil
}

// Location is the time zone order numbers are dated in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Orders.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Orders.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Pricing() (domain.Pricing, error) {
	var p domain.Pricing
	fields := []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"tax_rate", c.Orders.TaxRate, &p.TaxRate},
		{"free_shipping_threshold", c.Orders.FreeShippingThreshold, &p.FreeShippingThreshold},
		{"flat_shipping", c.Orders.FlatShipping, &p.FlatShipping},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.value)
		if err != nil {
			return domain.Pricing{}, fmt.Errorf("invalid orders.%s %q: %w", f.name, f.value, err)
		}
		if d.IsNegative() {
			return domain.Pricing{}, fmt.Errorf("orders.%s must not be negative", f.name)
		}
		*f.dst = d
	}
	return p, nil
}

func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
