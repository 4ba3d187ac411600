// Package config loads service settings from defaults, config.yaml, .env and
// the process environment, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DefaultConfigFile = "config.yaml"
	DefaultEnvFile    = ".env"
)

type Config struct {
	Port            int           `koanf:"port"`
	APIKey          string        `koanf:"api_key"`
	LogLevel        string        `koanf:"log_level"`
	DatabaseURL     string        `koanf:"database_url"`
	MetricsEnabled  bool          `koanf:"metrics_enabled"`
	MetricsToken    string        `koanf:"metrics_token"`
	CORSOrigins     string        `koanf:"cors_origins"`
	RateLimitPerMin int           `koanf:"rate_limit_per_min"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

func defaults() map[string]any {
	return map[string]any{
		"port":               3000,
		"log_level":          "info",
		"cors_origins":       "*",
		"rate_limit_per_min": 0,
		"shutdown_timeout":   "10s",
	}
}

// Options points Load at alternate files; zero value means the defaults in
// the working directory.
type Options struct {
	ConfigFile string
	EnvFile    string
}

func Load(opts Options) (Config, error) {
	if opts.ConfigFile == "" {
		opts.ConfigFile = DefaultConfigFile
	}
	if opts.EnvFile == "" {
		opts.EnvFile = DefaultEnvFile
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(file.Provider(opts.ConfigFile), yaml.Parser()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", opts.ConfigFile, err)
	}

	envFile, err := godotenv.Read(opts.EnvFile)
	switch {
	case err == nil:
		m := make(map[string]any, len(envFile))
		for key, value := range envFile {
			m[keyFromEnv(key)] = value
		}
		if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", opts.EnvFile, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("read %s: %w", opts.EnvFile, err)
	}

	if err := k.Load(env.Provider("", ".", keyFromEnv), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// keyFromEnv maps API_KEY to api_key. Keys are flat, so env names map 1:1.
func keyFromEnv(key string) string {
	return strings.ToLower(key)
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.APIKey == "" {
		return errors.New("API_KEY is required")
	}
	if c.RateLimitPerMin < 0 {
		return fmt.Errorf("invalid rate limit: %d", c.RateLimitPerMin)
	}
	if c.MetricsEnabled && c.MetricsToken == "" {
		return errors.New("METRICS_TOKEN is required when metrics are enabled")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %v", c.ShutdownTimeout)
	}
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c Config) String() string {
	return fmt.Sprintf("port=%d, log_level=%s, database_url=%s, metrics_enabled=%t, cors_origins=%s, rate_limit_per_min=%d, shutdown_timeout=%v",
		c.Port, c.LogLevel, maskURL(c.DatabaseURL), c.MetricsEnabled, c.CORSOrigins, c.RateLimitPerMin, c.ShutdownTimeout)
}

func maskURL(url string) string {
	if url == "" {
		return "<in-memory>"
	}
	if _, host, ok := strings.Cut(url, "@"); ok {
		return "****@" + host
	}
	return "****"
}
