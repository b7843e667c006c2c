// Package config loads application settings from the environment.
//
// Settings are read from SALES_-prefixed variables, optionally seeded
// from a .env file in the working directory. The first underscore
// after the prefix separates the section from the key, so
// SALES_DATABASE_HOST maps to database.host and
// SALES_CACHE_MAX_MEMORY_ENTRIES maps to cache.max_memory_entries.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/database"
	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/observe"
	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/querycache"
)

// EnvPrefix selects which environment variables Load reads.
const EnvPrefix = "SALES_"

// Config is the root application configuration.
type Config struct {
	Database      DatabaseConfig      `koanf:"database"`
	Cache         CacheConfig         `koanf:"cache"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// DatabaseConfig describes the analytics database connection.
type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"gt=0,lte=65535"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`
	MaxConns        int           `koanf:"max_conns" validate:"gt=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"gt=0"`
	QueryTimeout    time.Duration `koanf:"query_timeout" validate:"gt=0"`
	MaxRetries      int           `koanf:"max_retries" validate:"gte=0"`
}

// CacheConfig describes the query result cache.
type CacheConfig struct {
	Enabled          bool          `koanf:"enabled"`
	TTL              time.Duration `koanf:"ttl" validate:"gt=0"`
	MaxMemoryEntries int           `koanf:"max_memory_entries" validate:"gt=0"`
	MaxEntryMB       int           `koanf:"max_entry_mb" validate:"gt=0"`
	Dir              string        `koanf:"dir" validate:"required"`
	SweepInterval    time.Duration `koanf:"sweep_interval" validate:"gte=0"`
}

// ObservabilityConfig describes logging, tracing and metrics.
type ObservabilityConfig struct {
	ServiceName     string  `koanf:"service_name" validate:"required"`
	Environment     string  `koanf:"environment" validate:"required"`
	LogLevel        string  `koanf:"log_level" validate:"oneof=debug info warn error"`
	TracingEnabled  bool    `koanf:"tracing_enabled"`
	TracingExporter string  `koanf:"tracing_exporter"`
	SamplePct       float64 `koanf:"sample_pct" validate:"gte=0,lte=1"`
	MetricsEnabled  bool    `koanf:"metrics_enabled"`
	MetricsExporter string  `koanf:"metrics_exporter"`
}

// Default returns the configuration used when no environment
// variables are set. The database password is deliberately empty.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "sales",
			Name:            "sales_analysis",
			SSLMode:         "disable",
			MaxConns:        10,
			ConnMaxLifetime: time.Hour,
			QueryTimeout:    30 * time.Second,
			MaxRetries:      3,
		},
		Cache: CacheConfig{
			Enabled:          true,
			TTL:              15 * time.Minute,
			MaxMemoryEntries: 100,
			MaxEntryMB:       50,
			Dir:              "cache",
			SweepInterval:    time.Hour,
		},
		Observability: ObservabilityConfig{
			ServiceName:     "sales-analysis",
			Environment:     "development",
			LogLevel:        "info",
			TracingExporter: "none",
			SamplePct:       1.0,
			MetricsExporter: "none",
		},
	}
}

// Load reads SALES_-prefixed environment variables over the defaults
// and validates the result.
func Load() (Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// envKey maps SALES_SECTION_SOME_KEY to "section.some_key".
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Pool translates the database section into the database package's
// own configuration type.
func (d DatabaseConfig) Pool() database.Config {
	return database.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Name:            d.Name,
		SSLMode:         d.SSLMode,
		MaxConns:        d.MaxConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		QueryTimeout:    d.QueryTimeout,
		MaxRetries:      d.MaxRetries,
	}
}

// Store translates the cache section into the cache package's own
// configuration type.
func (c CacheConfig) Store() querycache.Config {
	return querycache.Config{
		Enabled:          c.Enabled,
		TTL:              c.TTL,
		MaxMemoryEntries: c.MaxMemoryEntries,
		MaxEntryBytes:    c.MaxEntryMB << 20,
		Dir:              c.Dir,
		SweepInterval:    c.SweepInterval,
	}
}

// Observer translates the observability section into the observe
// package's configuration type.
func (o ObservabilityConfig) Observer(version string) observe.Config {
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   o.TracingEnabled,
			Exporter:  o.TracingExporter,
			SamplePct: o.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.MetricsEnabled,
			Exporter: o.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   o.LogLevel,
		},
	}
}
