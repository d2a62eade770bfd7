// Package config loads runtime settings for the paging demo from defaults,
// an optional config file, a .env file and PAGING_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Sternrassler/provider-paging/pkg/logging"
)

// EnvPrefix prefixes every environment variable, e.g. PAGING_PAGE_LIMIT.
const EnvPrefix = "PAGING"

var validate = validator.New()

// Config holds the settings shared by all paging-demo commands.
type Config struct {
	PageLimit    int           `mapstructure:"page_limit" validate:"min=1,max=100"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
	ViewportRows int           `mapstructure:"viewport_rows" validate:"min=1"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn warning error disabled off none"`
	LogPretty bool   `mapstructure:"log_pretty"`

	ListenAddr  string `mapstructure:"listen_addr" validate:"required"`
	DBPath      string `mapstructure:"db_path" validate:"required"`
	ImageDir    string `mapstructure:"image_dir"`
	ProviderURL string `mapstructure:"provider_url" validate:"omitempty,url"`

	// RedisAddr enables the page cache when set.
	RedisAddr string        `mapstructure:"redis_addr"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

// Logging returns the logger configuration for these settings.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("page_limit", 10)
	v.SetDefault("fetch_timeout", "15s")
	v.SetDefault("viewport_rows", 5)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("db_path", "paging.db")
	v.SetDefault("image_dir", "")
	v.SetDefault("provider_url", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("cache_ttl", "1m")
}

// Load reads configuration. path may be empty; a missing .env file is ignored.
// Values already in the environment take precedence over .env entries.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
