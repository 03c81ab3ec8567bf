// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all harvester configuration knobs loaded via Viper.
type Config struct {
	Site    SiteConfig    `mapstructure:"site"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Harvest HarvestConfig `mapstructure:"harvest"`
	Output  OutputConfig  `mapstructure:"output"`
	Status  StatusConfig  `mapstructure:"status"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SiteConfig pins the catalog endpoints the harvester walks.
type SiteConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	DistributionPath string `mapstructure:"distribution_path"`
	SuppliersPath    string `mapstructure:"suppliers_path"`
	ExchangeRateURL  string `mapstructure:"exchange_rate_url"`
	PageParam        string `mapstructure:"page_param"`
}

// FetchConfig governs the shared fetch engine.
type FetchConfig struct {
	WorkerLimit      int     `mapstructure:"worker_limit"`
	BaseSleepSeconds float64 `mapstructure:"base_sleep_seconds"`
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	ParseEngine      string  `mapstructure:"parse_engine"`
}

// HarvestConfig bounds the product pipeline.
type HarvestConfig struct {
	BatchSize   int `mapstructure:"batch_size"`
	WorkerLimit int `mapstructure:"worker_limit"`
}

// OutputConfig selects and configures the record sink.
type OutputConfig struct {
	Sink     string         `mapstructure:"sink"`
	CSVPath  string         `mapstructure:"csv_path"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds connection details for the postgres sink.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// StatusConfig controls the optional status/metrics HTTP server.
type StatusConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.base_url", "https://digis.ru")
	v.SetDefault("site.distribution_path", "/distribution")
	v.SetDefault("site.suppliers_path", "/distribution/suppliers/")
	v.SetDefault("site.exchange_rate_url", "https://cash.rbc.ru/cash/json/converter_currency_rate/")
	v.SetDefault("site.page_param", "PAGEN_1")
	v.SetDefault("fetch.worker_limit", 5)
	v.SetDefault("fetch.base_sleep_seconds", 3)
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.parse_engine", "html")
	v.SetDefault("harvest.batch_size", 1000)
	v.SetDefault("harvest.worker_limit", 5)
	v.SetDefault("output.sink", "csv")
	v.SetDefault("output.csv_path", "products.csv")
	v.SetDefault("output.postgres.table", "products")
	v.SetDefault("output.postgres.max_conns", 4)
	v.SetDefault("status.port", 0)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url is required")
	}
	if c.Fetch.WorkerLimit <= 0 {
		return fmt.Errorf("fetch.worker_limit must be > 0")
	}
	if c.Fetch.BaseSleepSeconds < 0 {
		return fmt.Errorf("fetch.base_sleep_seconds must be >= 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	// goquery is the only parse engine; the knob exists so configs that
	// name it fail loudly instead of silently selecting nothing.
	if c.Fetch.ParseEngine != "html" {
		return fmt.Errorf("unknown fetch.parse_engine: %s", c.Fetch.ParseEngine)
	}
	if c.Harvest.BatchSize <= 0 {
		return fmt.Errorf("harvest.batch_size must be > 0")
	}
	if c.Harvest.WorkerLimit <= 0 {
		return fmt.Errorf("harvest.worker_limit must be > 0")
	}
	switch c.Output.Sink {
	case "csv":
		if c.Output.CSVPath == "" {
			return fmt.Errorf("output.csv_path must be set for the csv sink")
		}
	case "postgres":
		if c.Output.Postgres.DSN == "" {
			return fmt.Errorf("output.postgres.dsn must be set for the postgres sink")
		}
	default:
		return fmt.Errorf("unknown output sink: %s", c.Output.Sink)
	}
	return nil
}

// RequestTimeout converts the configured timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// BaseSleep converts the configured pacing base into a duration.
func (c Config) BaseSleep() time.Duration {
	return time.Duration(c.Fetch.BaseSleepSeconds * float64(time.Second))
}
