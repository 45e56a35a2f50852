package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load. Names are the
// section and field in upper snake case: SALES_SERVER_PORT,
// SALES_DATASET_PATH, SALES_LOGGER_LEVEL.
const EnvPrefix = "SALES"

// ConfigFileEnv names an optional YAML file applied before the environment.
const ConfigFileEnv = EnvPrefix + "_CONFIG_FILE"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Logger    LoggerConfig    `yaml:"logger"`
	Security  SecurityConfig  `yaml:"security"`
	Export    ExportConfig    `yaml:"export"`
	Session   SessionConfig   `yaml:"session"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" split_words:"true"`
	Port            int           `yaml:"port" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
}

type DatasetConfig struct {
	Path string `yaml:"path" split_words:"true"`
	// PreviewRows caps the rows rendered on the raw-data page. Exports are
	// never truncated.
	PreviewRows int `yaml:"preview_rows" split_words:"true"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Format string `yaml:"format" split_words:"true"`
	Output string `yaml:"output" split_words:"true"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `yaml:"rate_limit_enabled" split_words:"true"`
	RateLimitRPS    int      `yaml:"rate_limit_rps" split_words:"true"`
	RateLimitBurst  int      `yaml:"rate_limit_burst" split_words:"true"`
	AllowedOrigins  []string `yaml:"allowed_origins" split_words:"true"`
	TrustedProxies  []string `yaml:"trusted_proxies" split_words:"true"`
}

type ExportConfig struct {
	CacheSize   int           `yaml:"cache_size" split_words:"true"`
	CacheTTL    time.Duration `yaml:"cache_ttl" split_words:"true"`
	DefaultName string        `yaml:"default_name" split_words:"true"`
}

type SessionConfig struct {
	CookieName      string        `yaml:"cookie_name" split_words:"true"`
	SecureCookie    bool          `yaml:"secure_cookie" split_words:"true"`
	TTL             time.Duration `yaml:"ttl" split_words:"true"`
	MaxSessions     int           `yaml:"max_sessions" split_words:"true"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" split_words:"true"`
}

type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" split_words:"true"`
	ServiceVersion string  `yaml:"service_version" split_words:"true"`
	TracingEnabled bool    `yaml:"tracing_enabled" split_words:"true"`
	SampleRatio    float64 `yaml:"sample_ratio" split_words:"true"`
	MetricsEnabled bool    `yaml:"metrics_enabled" split_words:"true"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8084,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Dataset: DatasetConfig{
			Path:        "dataset_vendas_v2.json",
			PreviewRows: 500,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			EnableRateLimit: true,
			RateLimitRPS:    100,
			RateLimitBurst:  10,
			AllowedOrigins:  []string{"http://localhost:8084"},
			TrustedProxies:  []string{"127.0.0.1"},
		},
		Export: ExportConfig{
			CacheSize:   64,
			CacheTTL:    10 * time.Minute,
			DefaultName: "dados",
		},
		Session: SessionConfig{
			CookieName:      "sales_session",
			TTL:             24 * time.Hour,
			MaxSessions:     10000,
			CleanupInterval: 5 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "sales-dashboard",
			ServiceVersion: "dev",
			SampleRatio:    1.0,
			MetricsEnabled: true,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// SALES_CONFIG_FILE, then SALES_* environment variables. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if strings.TrimSpace(c.Dataset.Path) == "" {
		return fmt.Errorf("dataset path cannot be empty")
	}

	if c.Dataset.PreviewRows <= 0 {
		return fmt.Errorf("dataset preview rows must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Export.CacheSize <= 0 || c.Export.CacheTTL <= 0 {
		return fmt.Errorf("export cache size and TTL must be positive")
	}

	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie name cannot be empty")
	}

	if c.Session.TTL <= 0 || c.Session.MaxSessions <= 0 || c.Session.CleanupInterval <= 0 {
		return fmt.Errorf("session TTL, size and cleanup interval must be positive")
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("trace sample ratio must be within [0, 1], got %g", c.Telemetry.SampleRatio)
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
