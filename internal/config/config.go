// Package config loads portman configuration.
//
// Configuration comes from a single YAML file named by the --config flag or
// the PORTMAN_CONFIG environment variable. There is no automatic discovery:
// without either, the built-in defaults apply. Command-line flags override
// file values.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the config file path.
const EnvConfig = "PORTMAN_CONFIG"

// Config is the portman configuration.
type Config struct {
	// LedgerPath is where reservations are persisted. The extension selects
	// the encoding: .json, .yaml, .toml or .cbor.
	LedgerPath string `yaml:"ledger_path"`

	// ListenAddr is the HTTP API address for `portman serve`.
	ListenAddr string `yaml:"listen_addr"`

	// RefreshInterval is how often the dashboard re-reads the socket table.
	RefreshInterval string `yaml:"refresh_interval"`

	// ProcRoot is the procfs mount point (Linux only).
	ProcRoot string `yaml:"proc_root"`

	Log LogConfig `yaml:"log"`
}

type LogConfig struct {
	Verbose bool `yaml:"verbose"`
	JSON    bool `yaml:"json"`
	// File receives log output while the dashboard owns the terminal.
	File string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LedgerPath:      defaultLedgerPath(),
		ListenAddr:      "127.0.0.1:8080",
		RefreshInterval: "2s",
		ProcRoot:        "/proc",
	}
}

func defaultLedgerPath() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, _ := os.UserHomeDir()
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "portman", "reservations.json")
}

// Load reads the file at path, or at $PORTMAN_CONFIG when path is empty. With
// neither set it returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads configuration from path on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) expandVariables() {
	c.LedgerPath = expandPath(c.LedgerPath)
	c.ProcRoot = expandPath(c.ProcRoot)
	c.Log.File = expandPath(c.Log.File)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandPath expands a leading ~ and ${VAR} or ${VAR:-default} patterns.
func expandPath(s string) string {
	if s == "~" || strings.HasPrefix(s, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			s = filepath.Join(home, s[1:])
		}
	}
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Refresh returns the parsed refresh interval. Call Validate first.
func (c *Config) Refresh() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.LedgerPath == "" {
		errs = append(errs, fmt.Errorf("ledger_path is required"))
	} else if ext := strings.ToLower(filepath.Ext(c.LedgerPath)); !validLedgerExt[ext] {
		errs = append(errs, fmt.Errorf("ledger_path extension %q must be one of .json, .yaml, .yml, .toml, .cbor", ext))
	}

	if c.ProcRoot == "" {
		errs = append(errs, fmt.Errorf("proc_root is required"))
	}

	if d, err := time.ParseDuration(c.RefreshInterval); err != nil {
		errs = append(errs, fmt.Errorf("refresh_interval: %w", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("refresh_interval must be positive, got %s", c.RefreshInterval))
	}

	if _, port, err := net.SplitHostPort(c.ListenAddr); err != nil {
		errs = append(errs, fmt.Errorf("listen_addr: %w", err))
	} else if port == "" {
		errs = append(errs, fmt.Errorf("listen_addr %q has no port", c.ListenAddr))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

var validLedgerExt = map[string]bool{
	"":      true,
	".json": true,
	".yaml": true,
	".yml":  true,
	".toml": true,
	".cbor": true,
}
