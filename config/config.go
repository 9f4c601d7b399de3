package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix shared by all environment variables the service
// reads, e.g. MEDIAMIX_ADDR or MEDIAMIX_CACHE_TTL.
const EnvPrefix = "MEDIAMIX_"

var (
	// ErrInvalidAddr indicates the listen address is empty.
	ErrInvalidAddr = errors.New("config: addr must not be empty")
	// ErrInvalidModelPath indicates the model artifact path is empty.
	ErrInvalidModelPath = errors.New("config: model_path must not be empty")
	// ErrInvalidDataDir indicates the dataset directory is empty.
	ErrInvalidDataDir = errors.New("config: data_dir must not be empty")
	// ErrInvalidCacheTTL indicates a non-positive cache TTL.
	ErrInvalidCacheTTL = errors.New("config: cache.ttl must be positive")
	// ErrInvalidWaitTimeout indicates a non-positive cache wait timeout.
	ErrInvalidWaitTimeout = errors.New("config: cache.wait_timeout must be positive")
)

// CacheConfig controls the response-curve cache.
type CacheConfig struct {
	// TTL is how long a computed result stays servable.
	TTL time.Duration `koanf:"ttl"`

	// WaitTimeout bounds how long a request waits for an in-flight
	// computation before giving up.
	WaitTimeout time.Duration `koanf:"wait_timeout"`
}

// AuthConfig controls bearer-token verification. An empty Issuer disables
// authentication.
type AuthConfig struct {
	Issuer   string `koanf:"issuer"`
	JWKSURL  string `koanf:"jwks_url"`
	Audience string `koanf:"audience"`
}

// Config holds the full service configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `koanf:"addr"`

	// ModelPath is the path to the model artifact JSON file.
	ModelPath string `koanf:"model_path"`

	// DataDir is the directory holding the marketing-mix CSV files.
	DataDir string `koanf:"data_dir"`

	// Warmup precomputes the default response-curve grids at startup.
	Warmup bool `koanf:"warmup"`

	Cache CacheConfig `koanf:"cache"`
	Auth  AuthConfig  `koanf:"auth"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsExporter is one of prometheus, stdout, none.
	MetricsExporter string `koanf:"metrics_exporter"`
}

func defaultConfig() Config {
	return Config{
		Addr:      ":8000",
		ModelPath: "model/artifacts/mmm_model.json",
		DataDir:   "data",
		Warmup:    true,
		Cache: CacheConfig{
			TTL:         15 * time.Minute,
			WaitTimeout: 10 * time.Second,
		},
		LogLevel:        "info",
		MetricsExporter: "prometheus",
	}
}

// Load builds the configuration from defaults overridden by environment
// variables. MEDIAMIX_CACHE_TTL maps to cache.ttl, MEDIAMIX_AUTH_ISSUER to
// auth.issuer, and so on.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform maps MEDIAMIX_CACHE_WAIT_TIMEOUT to cache.wait_timeout.
// Only the section separator becomes a dot: underscores inside field
// names are preserved.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

	for _, section := range []string{"cache_", "auth_"} {
		if strings.HasPrefix(key, section) {
			return strings.TrimSuffix(section, "_") + "." + strings.TrimPrefix(key, section)
		}
	}
	return key
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrInvalidAddr
	}
	if c.ModelPath == "" {
		return ErrInvalidModelPath
	}
	if c.DataDir == "" {
		return ErrInvalidDataDir
	}
	if c.Cache.TTL <= 0 {
		return ErrInvalidCacheTTL
	}
	if c.Cache.WaitTimeout <= 0 {
		return ErrInvalidWaitTimeout
	}
	return nil
}
