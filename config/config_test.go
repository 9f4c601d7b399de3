package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":8000" {
		t.Errorf("Addr = %q, want :8000", cfg.Addr)
	}
	if cfg.Cache.TTL != 15*time.Minute {
		t.Errorf("Cache.TTL = %v, want 15m", cfg.Cache.TTL)
	}
	if cfg.Cache.WaitTimeout != 10*time.Second {
		t.Errorf("Cache.WaitTimeout = %v, want 10s", cfg.Cache.WaitTimeout)
	}
	if !cfg.Warmup {
		t.Error("Warmup = false, want true by default")
	}
	if cfg.Auth.Issuer != "" {
		t.Errorf("Auth.Issuer = %q, want empty (auth disabled)", cfg.Auth.Issuer)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MEDIAMIX_ADDR", ":9000")
	t.Setenv("MEDIAMIX_DATA_DIR", "/srv/mixdata")
	t.Setenv("MEDIAMIX_CACHE_TTL", "5m")
	t.Setenv("MEDIAMIX_CACHE_WAIT_TIMEOUT", "2s")
	t.Setenv("MEDIAMIX_AUTH_ISSUER", "https://issuer.example.com")
	t.Setenv("MEDIAMIX_AUTH_JWKS_URL", "https://issuer.example.com/jwks")
	t.Setenv("MEDIAMIX_LOG_LEVEL", "debug")
	t.Setenv("MEDIAMIX_WARMUP", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q, want :9000", cfg.Addr)
	}
	if cfg.DataDir != "/srv/mixdata" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
	}
	if cfg.Cache.WaitTimeout != 2*time.Second {
		t.Errorf("Cache.WaitTimeout = %v, want 2s", cfg.Cache.WaitTimeout)
	}
	if cfg.Auth.Issuer != "https://issuer.example.com" {
		t.Errorf("Auth.Issuer = %q", cfg.Auth.Issuer)
	}
	if cfg.Auth.JWKSURL != "https://issuer.example.com/jwks" {
		t.Errorf("Auth.JWKSURL = %q", cfg.Auth.JWKSURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Warmup {
		t.Error("Warmup = true, want false")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("MEDIAMIX_CACHE_TTL", "0s")
	if _, err := Load(); !errors.Is(err, ErrInvalidCacheTTL) {
		t.Errorf("error = %v, want ErrInvalidCacheTTL", err)
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MEDIAMIX_ADDR", "addr"},
		{"MEDIAMIX_MODEL_PATH", "model_path"},
		{"MEDIAMIX_CACHE_TTL", "cache.ttl"},
		{"MEDIAMIX_CACHE_WAIT_TIMEOUT", "cache.wait_timeout"},
		{"MEDIAMIX_AUTH_JWKS_URL", "auth.jwks_url"},
		{"MEDIAMIX_METRICS_EXPORTER", "metrics_exporter"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := defaultConfig()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }, ErrInvalidAddr},
		{"empty model path", func(c *Config) { c.ModelPath = "" }, ErrInvalidModelPath},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, ErrInvalidDataDir},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }, ErrInvalidCacheTTL},
		{"zero wait timeout", func(c *Config) { c.Cache.WaitTimeout = 0 }, ErrInvalidWaitTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
