// Package config loads server configuration from an optional ini file and
// DESKD_* environment variables. Environment values win over file values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/ini.v1"
)

const envPrefix = "deskd"

// Config holds everything the server and queue consume.
type Config struct {
	// Listen address. The default listens on all interfaces, since the
	// server is expected to be accessed remotely.
	Host string `ini:"host" envconfig:"HOST"`
	Port int    `ini:"port" envconfig:"PORT"`

	// Core action-engine timings.
	ActionTimeout   time.Duration `ini:"action_timeout" envconfig:"ACTION_TIMEOUT"`
	ActionDelay     time.Duration `ini:"action_delay" envconfig:"ACTION_DELAY"`
	ScreenshotDelay time.Duration `ini:"screenshot_delay" envconfig:"SCREENSHOT_DELAY"`
	QueueDepth      int           `ini:"queue_depth" envconfig:"QUEUE_DEPTH"`

	EnableCORS bool `ini:"cors" envconfig:"CORS"`
}

// Default returns the documented default configuration.
func Default() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            8255,
		ActionTimeout:   10 * time.Second,
		ActionDelay:     500 * time.Millisecond,
		ScreenshotDelay: 2 * time.Second,
		QueueDepth:      32,
	}
}

// Load builds the configuration: defaults, then the ini file at path (if it
// exists), then environment overrides. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			file, err := ini.Load(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			if err := file.Section("").MapTo(cfg); err != nil {
				return nil, fmt.Errorf("invalid config file %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.QueueDepth <= 0 {
		return nil, fmt.Errorf("queue depth must be positive, got %d", cfg.QueueDepth)
	}

	return cfg, nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
