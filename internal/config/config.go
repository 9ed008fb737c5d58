// Package config loads the application configuration from an optional YAML
// file, fills in defaults, and applies KEEPSAKE_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/keepsakehq/keepsake/core/internal/errors"
)

// Config is the root configuration shared by the desktop server and the
// mobile bridge.
type Config struct {
	DataDir      string             `yaml:"data_dir"`
	Server       ServerConfig       `yaml:"server"`
	Sync         SyncConfig         `yaml:"sync"`
	Gateway      GatewayConfig      `yaml:"gateway"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Media        MediaConfig        `yaml:"media"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type SyncConfig struct {
	Interval   time.Duration `yaml:"interval"`
	MaxRetries int           `yaml:"max_retries"`
	BatchSize  int           `yaml:"batch_size"`
}

type GatewayConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	AuthToken string        `yaml:"auth_token"`
	Timeout   time.Duration `yaml:"timeout"`
}

type ConnectivityConfig struct {
	ProbeURL      string        `yaml:"probe_url"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
}

type MediaConfig struct {
	PosterDir     string `yaml:"poster_dir"`
	PosterMaxEdge int    `yaml:"poster_max_edge"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file and no overrides are
// present.
func Default() *Config {
	return &Config{
		DataDir: "./data",
		Server: ServerConfig{
			ListenAddr: ":8090",
		},
		Sync: SyncConfig{
			Interval:   30 * time.Second,
			MaxRetries: 3,
			BatchSize:  20,
		},
		Gateway: GatewayConfig{
			Timeout: 30 * time.Second,
		},
		Connectivity: ConnectivityConfig{
			ProbeInterval: 15 * time.Second,
		},
		Media: MediaConfig{
			PosterMaxEdge: 512,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path when it exists, layers environment
// overrides on top, and validates the result. An empty path or a missing
// file yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, fmt.Sprintf("read config file %s", path), err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, fmt.Sprintf("parse config file %s", path), err)
		}
	}

	cfg.applyEnv()

	// The poster dir defaults relative to the final data dir, so it is
	// resolved only after file and env layers are applied.
	if cfg.Media.PosterDir == "" {
		cfg.Media.PosterDir = filepath.Join(cfg.DataDir, "posters")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides individual settings from KEEPSAKE_* variables. Malformed
// numeric or duration values are ignored in favor of the current value;
// validation catches anything that matters downstream.
func (c *Config) applyEnv() {
	if v := os.Getenv("KEEPSAKE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("KEEPSAKE_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("KEEPSAKE_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Sync.Interval = d
		}
	}
	if v := os.Getenv("KEEPSAKE_SYNC_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Sync.BatchSize = n
		}
	}
	if v := os.Getenv("KEEPSAKE_GATEWAY_ENDPOINT"); v != "" {
		c.Gateway.Endpoint = v
	}
	if v := os.Getenv("KEEPSAKE_GATEWAY_TOKEN"); v != "" {
		c.Gateway.AuthToken = v
	}
	if v := os.Getenv("KEEPSAKE_PROBE_URL"); v != "" {
		c.Connectivity.ProbeURL = v
	}
	if v := os.Getenv("KEEPSAKE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate rejects configurations that cannot produce a working runtime.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return apperrors.New(apperrors.ErrConfigInvalid, "data_dir is required")
	}
	if c.Sync.Interval <= 0 {
		return apperrors.New(apperrors.ErrConfigInvalid, "sync.interval must be positive")
	}
	if c.Sync.MaxRetries < 1 {
		return apperrors.New(apperrors.ErrConfigInvalid, "sync.max_retries must be at least 1")
	}
	if c.Sync.BatchSize < 1 {
		return apperrors.New(apperrors.ErrConfigInvalid, "sync.batch_size must be at least 1")
	}
	if c.Media.PosterMaxEdge < 16 {
		return apperrors.New(apperrors.ErrConfigInvalid, "media.poster_max_edge must be at least 16")
	}
	return nil
}
