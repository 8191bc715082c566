// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultBodySizeLimit caps request bodies (embed HTML) at 2MB.
const DefaultBodySizeLimit int64 = 2 * 1024 * 1024

// Config holds the application configuration
type Config struct {
	Server  ServerConfig
	OEmbed  OEmbedConfig
	Cache   CacheConfig
	Metrics MetricsConfig
	Log     LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          string
	MasterKey     string // Optional: bearer key required on admin routes
	BodySizeLimit int64
}

// OEmbedConfig holds provider list configuration
type OEmbedConfig struct {
	// ProvidersURL is where the provider list is downloaded from
	ProvidersURL string
	// DataDir holds temp/providers.json
	DataDir string
	// AllowedProviders restricts the scheme table to these provider names (empty = all)
	AllowedProviders []string
	// DefaultProvidersFile is an optional JSON scheme table returned when no provider list is available
	DefaultProvidersFile string
	// RefreshOnStart downloads the provider list during startup
	RefreshOnStart bool
	// GMTOffsetHours shifts timestamps shown on the admin status row
	GMTOffsetHours float64
}

// CacheConfig holds scheme table cache configuration
type CacheConfig struct {
	// Type is "memory", "local" or "redis"
	Type     string
	TTL      time.Duration
	Dir      string
	RedisURL string
	// RedisKeyPrefix namespaces keys in a shared Redis
	RedisKeyPrefix string
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

// LogConfig holds logging configuration
type LogConfig struct {
	// Format is "pretty", "json" or "auto"
	Format string
	Level  string
}

// Load reads configuration from an optional .env file and the environment
func Load() (*Config, error) {
	// Load .env file using Viper (optional, won't fail if not found)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if .env file doesn't exist

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("BODY_SIZE_LIMIT", DefaultBodySizeLimit)
	viper.SetDefault("OEMBED_PROVIDERS_URL", "https://oembed.com/providers.json")
	viper.SetDefault("OEMBED_DATA_DIR", ".")
	viper.SetDefault("OEMBED_REFRESH_ON_START", true)
	viper.SetDefault("OEMBED_GMT_OFFSET_HOURS", 0)
	viper.SetDefault("CACHE_TYPE", "memory")
	viper.SetDefault("CACHE_TTL", "168h")
	viper.SetDefault("CACHE_DIR", ".cache")
	viper.SetDefault("REDIS_KEY_PREFIX", "oembedfixes:")
	viper.SetDefault("METRICS_ENABLED", false)
	viper.SetDefault("METRICS_ENDPOINT", "/metrics")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("LOG_LEVEL", "info")

	// Enable automatic environment variable reading
	viper.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:          viper.GetString("PORT"),
			MasterKey:     viper.GetString("OEMBED_MASTER_KEY"),
			BodySizeLimit: viper.GetInt64("BODY_SIZE_LIMIT"),
		},
		OEmbed: OEmbedConfig{
			ProvidersURL:         viper.GetString("OEMBED_PROVIDERS_URL"),
			DataDir:              viper.GetString("OEMBED_DATA_DIR"),
			AllowedProviders:     splitList(viper.GetString("OEMBED_ALLOWED_PROVIDERS")),
			DefaultProvidersFile: viper.GetString("OEMBED_DEFAULT_PROVIDERS_FILE"),
			RefreshOnStart:       viper.GetBool("OEMBED_REFRESH_ON_START"),
			GMTOffsetHours:       viper.GetFloat64("OEMBED_GMT_OFFSET_HOURS"),
		},
		Cache: CacheConfig{
			Type:           strings.ToLower(viper.GetString("CACHE_TYPE")),
			TTL:            viper.GetDuration("CACHE_TTL"),
			Dir:            viper.GetString("CACHE_DIR"),
			RedisURL:       viper.GetString("REDIS_URL"),
			RedisKeyPrefix: viper.GetString("REDIS_KEY_PREFIX"),
		},
		Metrics: MetricsConfig{
			Enabled:  viper.GetBool("METRICS_ENABLED"),
			Endpoint: viper.GetString("METRICS_ENDPOINT"),
		},
		Log: LogConfig{
			Format: strings.ToLower(viper.GetString("LOG_FORMAT")),
			Level:  viper.GetString("LOG_LEVEL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Type {
	case "memory", "local":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CACHE_TYPE=redis")
		}
	default:
		return fmt.Errorf("unknown CACHE_TYPE %q (want memory, local or redis)", c.Cache.Type)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.Cache.TTL)
	}
	if c.OEmbed.ProvidersURL == "" {
		return fmt.Errorf("OEMBED_PROVIDERS_URL must not be empty")
	}
	return nil
}

// splitList parses a comma separated list, dropping blanks but keeping order.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
