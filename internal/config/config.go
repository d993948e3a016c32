package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPAddr        string          `yaml:"http_addr"`
	GRPCAddr        string          `yaml:"grpc_addr"`
	LogLevel        string          `yaml:"log_level"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	Store           StoreConfig     `yaml:"store"`
	Redis           RedisConfig     `yaml:"redis"`
	Kafka           KafkaConfig     `yaml:"kafka"`
	Inventory       InventoryConfig `yaml:"inventory"`
	Otel            OtelConfig      `yaml:"otel"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver"`
	MySQLDSN    string `yaml:"mysql_dsn"`
	PostgresURL string `yaml:"postgres_url"`
}

// RedisConfig enables event deduplication when Addr is set.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// KafkaConfig enables the inventory deletion consumer when Brokers is set.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Group   string   `yaml:"group"`
}

type InventoryConfig struct {
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
}

// OtelConfig enables span export when Endpoint is set.
type OtelConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		GRPCAddr:        ":50051",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
		Store:           StoreConfig{Driver: DriverMemory},
		Kafka: KafkaConfig{
			Topic: "inventory.deleted",
			Group: "catalog-service",
		},
		Inventory: InventoryConfig{
			Addr:    "localhost:50052",
			Timeout: 5 * time.Second,
		},
		Otel: OtelConfig{Insecure: true},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// any) and the process environment, in that order.
func Load(path string) (Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	str("HTTP_ADDR", &cfg.HTTPAddr)
	str("GRPC_ADDR", &cfg.GRPCAddr)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("STORE_DRIVER", &cfg.Store.Driver)
	str("MYSQL_DSN", &cfg.Store.MySQLDSN)
	str("PG_URL", &cfg.Store.PostgresURL)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("KAFKA_TOPIC", &cfg.Kafka.Topic)
	str("INVENTORY_ADDR", &cfg.Inventory.Addr)
	str("OTEL_ENDPOINT", &cfg.Otel.Endpoint)

	if v := strings.TrimSpace(getenv("KAFKA_BROKERS")); v != "" {
		cfg.Kafka.Brokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
			}
		}
	}
	if v := strings.TrimSpace(getenv("INVENTORY_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("INVENTORY_TIMEOUT: %w", err)
		}
		cfg.Inventory.Timeout = d
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverMemory:
	case DriverMySQL:
		if c.Store.MySQLDSN == "" {
			errs = append(errs, errors.New("store.mysql_dsn is required for the mysql driver"))
		}
	case DriverPostgres:
		if c.Store.PostgresURL == "" {
			errs = append(errs, errors.New("store.postgres_url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, mysql, postgres", c.Store.Driver))
	}

	if c.HTTPAddr == "" && c.GRPCAddr == "" {
		errs = append(errs, errors.New("at least one of http_addr and grpc_addr is required"))
	}
	if c.Inventory.Addr == "" {
		errs = append(errs, errors.New("inventory.addr is required"))
	}
	if c.Inventory.Timeout <= 0 {
		errs = append(errs, errors.New("inventory.timeout must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && (c.Kafka.Topic == "" || c.Kafka.Group == "") {
		errs = append(errs, errors.New("kafka.topic and kafka.group are required when brokers are set"))
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("shutdown_timeout must not be negative"))
	}

	return errors.Join(errs...)
}
