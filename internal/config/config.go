package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	SerpAPI   SerpAPIConfig   `yaml:"serpapi" mapstructure:"serpapi"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Niches    NichesConfig    `yaml:"niches" mapstructure:"niches"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SerpAPIConfig configures the place and web search provider.
type SerpAPIConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Language    string  `yaml:"language" mapstructure:"language"`
	PageSize    int     `yaml:"page_size" mapstructure:"page_size"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`

	BreakerThreshold    int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCoolDownSecs int `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// AnthropicConfig configures the AI classifier.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// EnrichConfig configures enrichment.
type EnrichConfig struct {
	Concurrency   int     `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimit     float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	ResultCount   int     `yaml:"result_count" mapstructure:"result_count"`
	CacheTTLHours int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`

	ScanWebsite     bool `yaml:"scan_website" mapstructure:"scan_website"`
	SiteTimeoutSecs int  `yaml:"site_timeout_secs" mapstructure:"site_timeout_secs"`
}

// StoreConfig configures persistence. Driver is sqlite, postgres or none.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`

	// PruneSchedule is the cron schedule serve uses to delete expired
	// enrichment records. Empty disables pruning.
	PruneSchedule string `yaml:"prune_schedule" mapstructure:"prune_schedule"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// NichesConfig points at an optional YAML niche catalog. The built-in
// catalog is used when CatalogPath is empty.
type NichesConfig struct {
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("serpapi.key", "")
	v.SetDefault("serpapi.base_url", "https://serpapi.com")
	v.SetDefault("serpapi.language", "es")
	v.SetDefault("serpapi.page_size", 20)
	v.SetDefault("serpapi.timeout_secs", 30)
	v.SetDefault("serpapi.rate_limit", 5.0)
	v.SetDefault("serpapi.breaker_threshold", 5)
	v.SetDefault("serpapi.breaker_cooldown_secs", 30)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.batch_size", 20)
	v.SetDefault("enrich.concurrency", 4)
	v.SetDefault("enrich.rate_limit", 2.0)
	v.SetDefault("enrich.result_count", 8)
	v.SetDefault("enrich.cache_ttl_hours", 168)
	v.SetDefault("enrich.scan_website", true)
	v.SetDefault("enrich.site_timeout_secs", 10)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prospect.db")
	v.SetDefault("store.prune_schedule", "@every 6h")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("niches.catalog_path", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the keys required by a command: "search", "classify",
// "enrich" or "serve". Every problem is reported, not just the first.
func (c *Config) Validate(command string) error {
	var errs []error
	require := func(ok bool, key string) {
		if !ok {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}

	switch c.Store.Driver {
	case "none", "":
	case "sqlite", "postgres":
		require(c.Store.DatabaseURL != "", "store.database_url")
	default:
		errs = append(errs, fmt.Errorf("store.driver %q must be sqlite, postgres or none", c.Store.Driver))
	}

	switch command {
	case "search", "enrich":
		require(c.SerpAPI.Key != "", "serpapi.key")
	case "classify":
		require(c.SerpAPI.Key != "", "serpapi.key")
		require(c.Anthropic.Key != "", "anthropic.key")
	case "serve":
		require(c.SerpAPI.Key != "", "serpapi.key")
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
		}
	}

	if c.SerpAPI.PageSize < 0 {
		errs = append(errs, fmt.Errorf("serpapi.page_size must not be negative"))
	}
	if c.Anthropic.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("anthropic.batch_size must not be negative"))
	}
	if c.Enrich.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("enrich.concurrency must not be negative"))
	}

	if len(errs) == 0 {
		return nil
	}
	return eris.Wrap(errors.Join(errs...), "config: invalid")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
