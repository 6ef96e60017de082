package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Resolve    ResolveConfig    `yaml:"resolve" mapstructure:"resolve"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Browser    BrowserConfig    `yaml:"browser" mapstructure:"browser"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Catalog    CatalogConfig    `yaml:"catalog" mapstructure:"catalog"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// BatchConfig configures bulk jobs.
type BatchConfig struct {
	Concurrency      int `yaml:"concurrency" mapstructure:"concurrency"`
	RetentionMinutes int `yaml:"retention_minutes" mapstructure:"retention_minutes"`
}

// ResolveConfig configures detail page validation.
type ResolveConfig struct {
	DeliveryAttempts int `yaml:"delivery_attempts" mapstructure:"delivery_attempts"`
	SettleMS         int `yaml:"settle_ms" mapstructure:"settle_ms"`
	NavTimeoutSecs   int `yaml:"nav_timeout_secs" mapstructure:"nav_timeout_secs"`
}

// ExtractConfig configures payload capture and its retry loop.
type ExtractConfig struct {
	MaxAttempts    int `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffMS      int `yaml:"backoff_ms" mapstructure:"backoff_ms"`
	SettleMS       int `yaml:"settle_ms" mapstructure:"settle_ms"`
	NavTimeoutSecs int `yaml:"nav_timeout_secs" mapstructure:"nav_timeout_secs"`
}

// SearchConfig selects and tunes the text-search provider.
type SearchConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	Brand       string  `yaml:"brand" mapstructure:"brand"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// BrowserConfig configures the headless renderer.
type BrowserConfig struct {
	Headless   bool     `yaml:"headless" mapstructure:"headless"`
	ExecPath   string   `yaml:"exec_path" mapstructure:"exec_path"`
	UserAgents []string `yaml:"user_agents" mapstructure:"user_agents"`
	Locale     string   `yaml:"locale" mapstructure:"locale"`
	Timezone   string   `yaml:"timezone" mapstructure:"timezone"`
}

// JinaConfig holds Jina search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// StoreConfig configures the job record backend.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
	TTLHours      int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// CatalogConfig names the catalog host and its data API path.
type CatalogConfig struct {
	Host      string `yaml:"host" mapstructure:"host"`
	APIPrefix string `yaml:"api_prefix" mapstructure:"api_prefix"`
}

// MonitoringConfig configures job alerts.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	NotFoundThreshold    float64 `yaml:"not_found_threshold" mapstructure:"not_found_threshold"`
}

// Load reads .env files, then configuration from file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Unmarshal only sees env vars for keys viper knows about, so every key
	// gets a default below, even an empty one.
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("batch.concurrency", 8)
	v.SetDefault("batch.retention_minutes", 60)
	v.SetDefault("resolve.delivery_attempts", 2)
	v.SetDefault("resolve.settle_ms", 3000)
	v.SetDefault("resolve.nav_timeout_secs", 60)
	v.SetDefault("extract.max_attempts", 3)
	v.SetDefault("extract.backoff_ms", 2000)
	v.SetDefault("extract.settle_ms", 2000)
	v.SetDefault("extract.nav_timeout_secs", 60)
	v.SetDefault("search.provider", "duckduckgo")
	v.SetDefault("search.brand", "swiggy")
	v.SetDefault("search.rate_per_sec", 1.0)
	v.SetDefault("search.timeout_secs", 20)
	v.SetDefault("search.max_retries", 2)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.locale", "en-IN")
	v.SetDefault("browser.timezone", "Asia/Kolkata")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("search.base_url", "")
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.ttl_hours", 24)
	v.SetDefault("catalog.host", "swiggy.com")
	v.SetDefault("catalog.api_prefix", "/dapi/")
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.not_found_threshold", 0.8)

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

// Validate checks the requirements of a command mode: "serve", "bulk",
// "resolve" or "extract".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "bulk", "resolve", "extract":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode != "extract" {
		switch c.Search.Provider {
		case "duckduckgo":
		case "jina", "chain":
			if c.Jina.Key == "" {
				errs = append(errs, "jina.key is required for search.provider "+c.Search.Provider)
			}
		default:
			errs = append(errs, "search.provider must be one of duckduckgo, jina, chain")
		}
	}

	if mode == "serve" || mode == "bulk" {
		if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 8 {
			errs = append(errs, "batch.concurrency must be between 1 and 8")
		}
		switch c.Store.Driver {
		case "memory", "redis":
		case "sqlite", "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required for store.driver "+c.Store.Driver)
			}
		default:
			errs = append(errs, "store.driver must be one of memory, redis, sqlite, postgres")
		}
	}

	if c.Extract.MaxAttempts < 1 {
		errs = append(errs, "extract.max_attempts must be >= 1")
	}
	if c.Extract.BackoffMS < 0 {
		errs = append(errs, "extract.backoff_ms must be >= 0")
	}
	if c.Resolve.DeliveryAttempts < 1 {
		errs = append(errs, "resolve.delivery_attempts must be >= 1")
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

// Millis converts a millisecond setting to a Duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Seconds converts a second setting to a Duration.
func Seconds(s int) time.Duration {
	return time.Duration(s) * time.Second
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
