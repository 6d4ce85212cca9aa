package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete coordinator configuration.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Store    Store    `mapstructure:"store"`
	Pool     Pool     `mapstructure:"pool"`
	Provider Provider `mapstructure:"provider"`
}

// Server holds HTTP front-end configuration.
type Server struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Store selects and locates the shared key-value store.
type Store struct {
	// Backend is "etcd" for shared deployments or "memory" for single-process
	// development runs.
	Backend   string   `mapstructure:"backend"`
	Endpoints []string `mapstructure:"endpoints"`
}

// Pool holds node-pool behavior knobs.
type Pool struct {
	// DefaultMaxSessions is the capacity ceiling assigned to nodes created
	// without an explicit one.
	DefaultMaxSessions int `mapstructure:"default_max_sessions"`

	// RefreshInterval is the period of the background reconciliation loop.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// Provider selects node discovery: a cloud section when present, otherwise
// the static node list (or the built-in default endpoint when that is empty
// too).
type Provider struct {
	Cloud *Cloud   `mapstructure:"cloud"`
	Nodes []string `mapstructure:"nodes"`
}

// Cloud configures the cloud-elastic provider variant.
type Cloud struct {
	Provider string `mapstructure:"provider"`
	Label    string `mapstructure:"label"`
	Port     int    `mapstructure:"port"`
}

// Load reads the optional YAML config at path with SHALE_-prefixed
// environment variables layered on top.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SHALE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("store.backend", "etcd")
	v.SetDefault("store.endpoints", []string{"localhost:2379"})
	v.SetDefault("pool.default_max_sessions", 6)
	v.SetDefault("pool.refresh_interval", time.Minute)
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "etcd", "memory":
	default:
		return fmt.Errorf("unknown store.backend %q (want etcd or memory)", c.Store.Backend)
	}
	if c.Store.Backend == "etcd" && len(c.Store.Endpoints) == 0 {
		return fmt.Errorf("store.endpoints must not be empty for the etcd backend")
	}
	if c.Pool.DefaultMaxSessions <= 0 {
		return fmt.Errorf("pool.default_max_sessions must be positive, got %d", c.Pool.DefaultMaxSessions)
	}
	if c.Pool.RefreshInterval <= 0 {
		return fmt.Errorf("pool.refresh_interval must be positive, got %v", c.Pool.RefreshInterval)
	}
	return nil
}
