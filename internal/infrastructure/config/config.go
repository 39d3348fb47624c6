package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all daemon configuration.
type Config struct {
	Bus     BusConfig
	Shell   ShellConfig
	Logging LogConfig
	Metrics MetricsConfig
}

// BusConfig identifies the exported service object on the session bus.
type BusConfig struct {
	Name       string `envconfig:"WREN_BUS_NAME" default:"sh.wren.Shell"`
	ObjectPath string `envconfig:"WREN_OBJECT_PATH" default:"/sh/wren/shell"`
}

// ShellConfig locates the user configuration.
type ShellConfig struct {
	ConfigDir string `envconfig:"WREN_CONFIG_DIR"`
	Entry     string `envconfig:"WREN_CONFIG" default:"config.yaml"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"WREN_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"WREN_LOG_DEV" default:"false"`
}

// MetricsConfig holds the optional Prometheus listener configuration.
type MetricsConfig struct {
	Enabled bool   `envconfig:"WREN_METRICS_ENABLED" default:"false"`
	Addr    string `envconfig:"WREN_METRICS_ADDR" default:"127.0.0.1:9185"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Shell.ConfigDir == "" {
		cfg.Shell.ConfigDir = defaultConfigDir()
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Bus: BusConfig{
			Name:       "sh.wren.Shell",
			ObjectPath: "/sh/wren/shell",
		},
		Shell: ShellConfig{
			ConfigDir: defaultConfigDir(),
			Entry:     "config.yaml",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9185",
		},
	}
}

// EntryPath resolves the config entry file against the config directory.
func (c *Config) EntryPath() string {
	if filepath.IsAbs(c.Shell.Entry) {
		return c.Shell.Entry
	}
	return filepath.Join(c.Shell.ConfigDir, c.Shell.Entry)
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wren")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "wren")
}
