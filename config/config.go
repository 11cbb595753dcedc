package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig     `yaml:"server"`
	Database      DatabaseConfig   `yaml:"database"`
	Redis         RedisConfig      `yaml:"redis"`
	Kafka         KafkaConfig      `yaml:"kafka"`
	RabbitMQ      RabbitMQConfig   `yaml:"rabbitmq"`
	Auth          AuthConfig       `yaml:"auth"`
	Restaurant    RestaurantConfig `yaml:"restaurant"`
	Orders        OrdersConfig     `yaml:"orders"`
	PublicBaseURL string           `yaml:"public_base_url"`
}

type ServerConfig struct {
	Port    string `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

type DatabaseConfig struct {
	Driver         string        `yaml:"driver"` // sqlite or postgres
	DSN            string        `yaml:"dsn"`
	StorageTimeout time.Duration `yaml:"storage_timeout"`
}

type RedisConfig struct {
	Addr    string        `yaml:"addr"`
	CartTTL time.Duration `yaml:"cart_ttl"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	ResetTokenTTL time.Duration `yaml:"reset_token_ttl"`
}

// RestaurantConfig names the single tenant the order core serves and the
// category whose items are listed under every other category.
type RestaurantConfig struct {
	ID                 uint `yaml:"id"`
	SentinelCategoryID uint `yaml:"sentinel_category_id"`
}

type OrdersConfig struct {
	StrictTransitions bool `yaml:"strict_transitions"`
}

// Default returns the configuration used when no file or env is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", GinMode: "debug"},
		Database: DatabaseConfig{
			Driver:         "sqlite",
			DSN:            "pickup_kitchen.db",
			StorageTimeout: 5 * time.Second,
		},
		Redis:    RedisConfig{CartTTL: 2 * time.Hour},
		Kafka:    KafkaConfig{Topic: "order-events"},
		RabbitMQ: RabbitMQConfig{Exchange: "notifications"},
		Auth: AuthConfig{
			JWTSecret:     "pickup_kitchen_dev_secret",
			TokenTTL:      24 * time.Hour,
			ResetTokenTTL: 30 * time.Minute,
		},
		Restaurant:    RestaurantConfig{ID: 1, SentinelCategoryID: 2},
		PublicBaseURL: "http://localhost:8080",
	}
}

// Load reads the YAML file at path (a missing file is fine) and then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
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
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.GinMode = getEnv("GIN_MODE", c.Server.GinMode)
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DATABASE_DSN", c.Database.DSN)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)
	c.RabbitMQ.URL = getEnv("RABBITMQ_URL", c.RabbitMQ.URL)
	c.RabbitMQ.Exchange = getEnv("RABBITMQ_EXCHANGE", c.RabbitMQ.Exchange)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.PublicBaseURL = getEnv("PUBLIC_BASE_URL", c.PublicBaseURL)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
	}

	var err error
	if c.Database.StorageTimeout, err = getEnvDuration("STORAGE_TIMEOUT", c.Database.StorageTimeout); err != nil {
		return err
	}
	if c.Redis.CartTTL, err = getEnvDuration("CART_TTL", c.Redis.CartTTL); err != nil {
		return err
	}
	if c.Restaurant.ID, err = getEnvUint("RESTAURANT_ID", c.Restaurant.ID); err != nil {
		return err
	}
	if c.Restaurant.SentinelCategoryID, err = getEnvUint("SENTINEL_CATEGORY_ID", c.Restaurant.SentinelCategoryID); err != nil {
		return err
	}
	if v := getEnv("STRICT_TRANSITIONS", ""); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid STRICT_TRANSITIONS %q: %w", v, err)
		}
		c.Orders.StrictTransitions = strict
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.Database.StorageTimeout <= 0 {
		return errors.New("storage timeout must be positive")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	if c.Restaurant.ID == 0 || c.Restaurant.SentinelCategoryID == 0 {
		return errors.New("restaurant id and sentinel category id are required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getEnvUint(key string, fallback uint) (uint, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return uint(n), nil
}
