// Package config handles configuration loading for optionscope.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Chain   ChainConfig   `mapstructure:"chain"   yaml:"chain"`
	Live    LiveConfig    `mapstructure:"live"    yaml:"live"`
	News    NewsConfig    `mapstructure:"news"    yaml:"news"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ChainConfig holds chain synthesis settings.
type ChainConfig struct {
	Weeks       int   `mapstructure:"weeks"         yaml:"weeks"`          // weekly expirations per ladder
	CacheTTLSec int   `mapstructure:"cache_ttl_sec" yaml:"cache_ttl_sec"`  // snapshot freshness window
	Seed        int64 `mapstructure:"seed"          yaml:"seed"`           // 0 = entropy-seeded
}

// CacheTTL returns the snapshot TTL as a duration.
func (c ChainConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// LiveConfig holds live-data collaborator settings.
type LiveConfig struct {
	Enabled    bool `mapstructure:"enabled"     yaml:"enabled"`
	TimeoutSec int  `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Timeout returns the live fetch timeout as a duration.
func (l LiveConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSec) * time.Second
}

// NewsConfig holds the market-news panel settings.
type NewsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Limit   int  `mapstructure:"limit"   yaml:"limit"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// Addr returns the listen address in host:port form.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // "debug", "info", "warn", "error"
	File  string `mapstructure:"file"  yaml:"file"`  // empty disables the rotating file sink
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.optionscope/config.yaml (home directory)
//  3. /etc/optionscope/config.yaml (system)
//
// Environment variables override config file values.
// Format: OPTIONSCOPE_<SECTION>_<KEY>, e.g., OPTIONSCOPE_API_PORT.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".optionscope"))
	v.AddConfigPath("/etc/optionscope")

	v.SetEnvPrefix("OPTIONSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// LoadFromFile reads configuration from an explicit file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("OPTIONSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chain.weeks", 4)
	v.SetDefault("chain.cache_ttl_sec", 300)
	v.SetDefault("chain.seed", 0)

	v.SetDefault("live.enabled", false)
	v.SetDefault("live.timeout_sec", 10)

	v.SetDefault("news.enabled", true)
	v.SetDefault("news.limit", 20)

	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8087)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
