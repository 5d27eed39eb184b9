// Package config provides TOML configuration file loading for the host.
// The configuration file lives at ~/.wadbctl/config.toml by default, but can be
// overridden with the --config flag. CLI flags always take precedence over file values.
//
// This file only describes the host environment (where the option blob lives,
// which property and daemon to look at, timings). User-editable options such as
// the port and the shell path live in the option blob, see internal/store.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	hostErrors "github.com/wadbctl/host/internal/errors"
)

// Config represents the host configuration file structure.
// Field names use Go camelCase internally but map to snake_case in TOML files
// via struct tags.
type Config struct {
	// OptionsFile is the path of the persisted option blob.
	// Default: ~/.wadbctl/options.bin
	OptionsFile string `toml:"options_file"`

	// LogFile redirects log output for long-running commands (watch, ui).
	// Default: empty (stderr)
	LogFile string `toml:"log_file"`

	// Verbose enables debug log lines.
	Verbose bool `toml:"verbose"`

	// PortProperty is the system property carrying the daemon's TCP port.
	// Default: service.adb.tcp.port
	PortProperty string `toml:"port_property"`

	// DaemonName is the process name of the debug bridge daemon.
	// Default: adbd
	DaemonName string `toml:"daemon_name"`

	// WifiInterface is the interface consulted when the interface option is
	// left at "wifi". Only its first IPv4 address is used.
	// Default: wlan0
	WifiInterface string `toml:"wifi_interface"`

	// ConnectVerb prefixes the connect string.
	// Default: adb connect
	ConnectVerb string `toml:"connect_verb"`

	// PollAttempts bounds the liveness poll after enabling.
	// Default: 15
	PollAttempts int `toml:"poll_attempts"`

	// PollIntervalMs is the delay between liveness poll attempts.
	// Default: 200
	PollIntervalMs int `toml:"poll_interval_ms"`

	// AmbientUpDelayMs is how long an ambient surface stays open after a
	// mode change that ended Up.
	// Default: 3000
	AmbientUpDelayMs int `toml:"ambient_up_delay_ms"`

	// AmbientDownDelayMs is the same delay for any other resulting status.
	// Default: 0
	AmbientDownDelayMs *int `toml:"ambient_down_delay_ms"`

	// RefreshRatePerSec limits non-forced refresh requests coming from
	// outside the scheduler (signals, file events, key presses).
	// Default: 2
	RefreshRatePerSec float64 `toml:"refresh_rate_per_sec"`

	// WatchOptions reloads options when the blob changes on disk.
	// Default: true
	WatchOptions *bool `toml:"watch_options"`
}

// DefaultDir returns ~/.wadbctl.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", hostErrors.Internal("failed to get home directory", err)
	}
	return filepath.Join(home, ".wadbctl"), nil
}

// DefaultConfigPath returns the default config file location: ~/.wadbctl/config.toml.
// Returns an error only if the user's home directory cannot be determined.
func DefaultConfigPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads a TOML config file from the given path and returns a Config
// with defaults applied to every unset field.
//
// Behavior:
//   - If path is empty, attempts to load from the default location (~/.wadbctl/config.toml).
//     Returns a default Config without error if the default file doesn't exist.
//   - If path is specified, returns an error if the file doesn't exist.
//   - Returns an error if the file exists but cannot be parsed.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			cfg.applyDefaults()
			return cfg, nil
		}
		if _, err := os.Stat(defaultPath); os.IsNotExist(err) {
			cfg.applyDefaults()
			return cfg, nil
		}
		path = defaultPath
	} else if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, hostErrors.New(hostErrors.CodeConfigNotFound, "config file not found: "+path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, hostErrors.Wrap(hostErrors.CodeConfigParseFailed, "failed to parse config file "+path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Default returns a Config with every field at its default.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.OptionsFile == "" {
		if dir, err := DefaultDir(); err == nil {
			c.OptionsFile = filepath.Join(dir, DefaultOptionsFileName)
		} else {
			c.OptionsFile = DefaultOptionsFileName
		}
	}
	if c.PortProperty == "" {
		c.PortProperty = DefaultPortProperty
	}
	if c.DaemonName == "" {
		c.DaemonName = DefaultDaemonName
	}
	if c.WifiInterface == "" {
		c.WifiInterface = DefaultWifiInterface
	}
	if c.ConnectVerb == "" {
		c.ConnectVerb = DefaultConnectVerb
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = DefaultPollAttempts
	}
	if c.PollIntervalMs <= 0 {
		c.PollIntervalMs = DefaultPollIntervalMs
	}
	if c.AmbientUpDelayMs <= 0 {
		c.AmbientUpDelayMs = DefaultAmbientUpDelayMs
	}
	if c.AmbientDownDelayMs == nil {
		v := DefaultAmbientDownDelayMs
		c.AmbientDownDelayMs = &v
	}
	if c.RefreshRatePerSec <= 0 {
		c.RefreshRatePerSec = DefaultRefreshRatePerSec
	}
	if c.WatchOptions == nil {
		v := true
		c.WatchOptions = &v
	}
}

// PollInterval returns PollIntervalMs as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// AmbientUpDelay returns AmbientUpDelayMs as a duration.
func (c *Config) AmbientUpDelay() time.Duration {
	return time.Duration(c.AmbientUpDelayMs) * time.Millisecond
}

// AmbientDownDelay returns AmbientDownDelayMs as a duration.
func (c *Config) AmbientDownDelay() time.Duration {
	if c.AmbientDownDelayMs == nil || *c.AmbientDownDelayMs < 0 {
		return 0
	}
	return time.Duration(*c.AmbientDownDelayMs) * time.Millisecond
}

// Watch reports whether the option blob watcher is enabled.
func (c *Config) Watch() bool {
	return c.WatchOptions == nil || *c.WatchOptions
}
