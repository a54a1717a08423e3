// Package config loads the application configuration from a YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"coffeeshop/pkg/catalog"
)

// Config holds all configuration for the coffee shop.
type Config struct {
	ServiceName string         `yaml:"service_name"`
	HTTP        HTTPConfig     `yaml:"http"`
	Database    DatabaseConfig `yaml:"database"`
	Redis       RedisConfig    `yaml:"redis"`
	Events      EventsConfig   `yaml:"events"`
	Tracing     TracingConfig  `yaml:"tracing"`
	Log         LogConfig      `yaml:"log"`
	Menu        []MenuItem     `yaml:"menu"`
}

// HTTPConfig configures the web server. TLSCertFile and TLSKeyFile switch
// the server to HTTPS when both are set.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	StoreTimeout    time.Duration `yaml:"store_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	TLSCertFile     string        `yaml:"tls_cert_file"`
	TLSKeyFile      string        `yaml:"tls_key_file"`
}

// DatabaseConfig selects and configures the order store.
type DatabaseConfig struct {
	// Driver is "postgres" (lib/pq), "pgx" or "memory".
	Driver         string `yaml:"driver"`
	URL            string `yaml:"url"`
	MaxOpenConns   int    `yaml:"max_open_conns"`
	ConnectRetries int    `yaml:"connect_retries"`
	AutoMigrate    bool   `yaml:"auto_migrate"`
}

// RedisConfig configures the order cache. An empty Addr disables it.
type RedisConfig struct {
	Addr string        `yaml:"addr"`
	TTL  time.Duration `yaml:"ttl"`
}

// EventsConfig selects where order events are published.
type EventsConfig struct {
	// Driver is "none", "kafka" or "amqp".
	Driver   string   `yaml:"driver"`
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	AMQPURL  string   `yaml:"amqp_url"`
	Exchange string   `yaml:"exchange"`
}

// TracingConfig configures OpenTelemetry.
type TracingConfig struct {
	Host        string  `yaml:"host"`
	Stdout      bool    `yaml:"stdout"`
	Probability float64 `yaml:"probability"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// MenuItem is a product as written in the config file. Price is a decimal
// string such as "3.50".
type MenuItem struct {
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ServiceName: "coffeeshop",
		HTTP: HTTPConfig{
			Addr:            ":8080",
			StoreTimeout:    5 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:         "memory",
			MaxOpenConns:   10,
			ConnectRetries: 5,
			AutoMigrate:    true,
		},
		Redis:   RedisConfig{TTL: 5 * time.Minute},
		Events:  EventsConfig{Driver: "none", Topic: "coffeeshop.orders", Exchange: "coffeeshop.orders"},
		Tracing: TracingConfig{Probability: 1.0},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("SERVICE_NAME", &c.ServiceName)
	str("HTTP_ADDR", &c.HTTP.Addr)
	str("DATABASE_DRIVER", &c.Database.Driver)
	str("DATABASE_URL", &c.Database.URL)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("EVENTS_DRIVER", &c.Events.Driver)
	str("AMQP_URL", &c.Events.AMQPURL)
	str("OTEL_HOST", &c.Tracing.Host)
	str("LOG_LEVEL", &c.Log.Level)
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Events.Brokers = splitCSV(v)
	}
	if v, ok := lookup("OTEL_PROBABILITY"); ok && v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("OTEL_PROBABILITY: %w", err)
		}
		c.Tracing.Probability = p
	}
	return nil
}

// Validate checks option values.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "memory":
	case "postgres", "pgx":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	switch c.Events.Driver {
	case "", "none":
	case "kafka":
		if len(c.Events.Brokers) == 0 {
			return errors.New("events.brokers is required for the kafka driver")
		}
	case "amqp":
		if c.Events.AMQPURL == "" {
			return errors.New("events.amqp_url is required for the amqp driver")
		}
	default:
		return fmt.Errorf("unknown events.driver %q", c.Events.Driver)
	}
	if c.Tracing.Probability < 0 || c.Tracing.Probability > 1 {
		return fmt.Errorf("tracing.probability must be between 0 and 1, got %v", c.Tracing.Probability)
	}
	if (c.HTTP.TLSCertFile == "") != (c.HTTP.TLSKeyFile == "") {
		return errors.New("http.tls_cert_file and http.tls_key_file must be set together")
	}
	if c.HTTP.StoreTimeout <= 0 {
		return errors.New("http.store_timeout must be positive")
	}
	if _, err := c.Catalog(); err != nil {
		return err
	}
	return nil
}

// Catalog builds the menu. An empty menu section selects catalog.Default.
func (c Config) Catalog() (*catalog.Catalog, error) {
	if len(c.Menu) == 0 {
		return catalog.Default(), nil
	}
	products := make([]catalog.Product, 0, len(c.Menu))
	for _, item := range c.Menu {
		price, err := decimal.NewFromString(strings.TrimSpace(item.Price))
		if err != nil {
			return nil, fmt.Errorf("menu item %q: invalid price %q", item.Name, item.Price)
		}
		products = append(products, catalog.Product{Name: item.Name, UnitPrice: price})
	}
	cat, err := catalog.New(products...)
	if err != nil {
		return nil, fmt.Errorf("menu: %w", err)
	}
	return cat, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
