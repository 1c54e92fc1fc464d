// Package config loads SDK configuration from an optional tezga.yaml file
// and TEZGA_-prefixed environment variables via Viper. Environment values
// take precedence over the file, which takes precedence over defaults.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries every tunable of the storefront SDK.
type Config struct {
	API   APIConfig   `yaml:"api" mapstructure:"api"`
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`
	Feed  FeedConfig  `yaml:"feed" mapstructure:"feed"`
}

type APIConfig struct {
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UploadTimeout  time.Duration `yaml:"upload_timeout" mapstructure:"upload_timeout"`
	SuggestMinimum int           `yaml:"suggest_minimum" mapstructure:"suggest_minimum"`
}

type CacheConfig struct {
	// VolatileTTL bounds product and search lists; they are also marked
	// stale immediately after any related mutation.
	VolatileTTL time.Duration `yaml:"volatile_ttl" mapstructure:"volatile_ttl"`
	// ReferenceTTL bounds categories, brands and cities, which user
	// mutations never invalidate.
	ReferenceTTL time.Duration `yaml:"reference_ttl" mapstructure:"reference_ttl"`
}

type FeedConfig struct {
	PageLimit int `yaml:"page_limit" mapstructure:"page_limit"`
}

// Load resolves the configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("tezga")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("TEZGA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read tezga.yaml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	// Matches the tezga-sandbox listen address, so a default runtime talks
	// to a locally running sandbox out of the box.
	v.SetDefault("api.base_url", "http://localhost:8585/api")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.upload_timeout", 30*time.Second)
	v.SetDefault("api.suggest_minimum", 2)
	v.SetDefault("cache.volatile_ttl", time.Minute)
	v.SetDefault("cache.reference_ttl", 30*time.Minute)
	v.SetDefault("feed.page_limit", 20)
}

// Validate rejects configurations the SDK cannot operate under.
func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.API.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: api.timeout must be positive")
	}
	if c.Cache.VolatileTTL <= 0 || c.Cache.ReferenceTTL <= 0 {
		return fmt.Errorf("config: cache TTLs must be positive")
	}
	if c.Feed.PageLimit <= 0 {
		return fmt.Errorf("config: feed.page_limit must be positive")
	}
	return nil
}
