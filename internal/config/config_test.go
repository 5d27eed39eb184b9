package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	hostErrors "github.com/wadbctl/host/internal/errors"
)

// TestLoad_AllFields verifies that all config fields are parsed correctly from TOML.
func TestLoad_AllFields(t *testing.T) {
	content := `
options_file = "/data/wadbctl/options.bin"
log_file = "/var/log/wadbctl.log"
verbose = true
port_property = "persist.adb.tcp.port"
daemon_name = "adbd2"
wifi_interface = "wlan1"
connect_verb = "adb -s connect"
poll_attempts = 5
poll_interval_ms = 100
ambient_up_delay_ms = 1500
ambient_down_delay_ms = 250
refresh_rate_per_sec = 10.0
watch_options = false
`
	tmpFile := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(tmpFile, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.OptionsFile != "/data/wadbctl/options.bin" {
		t.Errorf("OptionsFile = %q", cfg.OptionsFile)
	}
	if cfg.LogFile != "/var/log/wadbctl.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if !cfg.Verbose {
		t.Error("Verbose = false, want true")
	}
	if cfg.PortProperty != "persist.adb.tcp.port" {
		t.Errorf("PortProperty = %q", cfg.PortProperty)
	}
	if cfg.DaemonName != "adbd2" {
		t.Errorf("DaemonName = %q", cfg.DaemonName)
	}
	if cfg.WifiInterface != "wlan1" {
		t.Errorf("WifiInterface = %q", cfg.WifiInterface)
	}
	if cfg.ConnectVerb != "adb -s connect" {
		t.Errorf("ConnectVerb = %q", cfg.ConnectVerb)
	}
	if cfg.PollAttempts != 5 {
		t.Errorf("PollAttempts = %d", cfg.PollAttempts)
	}
	if cfg.PollInterval() != 100*time.Millisecond {
		t.Errorf("PollInterval() = %v", cfg.PollInterval())
	}
	if cfg.AmbientUpDelay() != 1500*time.Millisecond {
		t.Errorf("AmbientUpDelay() = %v", cfg.AmbientUpDelay())
	}
	if cfg.AmbientDownDelay() != 250*time.Millisecond {
		t.Errorf("AmbientDownDelay() = %v", cfg.AmbientDownDelay())
	}
	if cfg.RefreshRatePerSec != 10 {
		t.Errorf("RefreshRatePerSec = %v", cfg.RefreshRatePerSec)
	}
	if cfg.Watch() {
		t.Error("Watch() = true, want false")
	}
}

// TestLoad_Defaults verifies that an empty file yields every default.
func TestLoad_Defaults(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(tmpFile, []byte(""), 0600); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.PortProperty != DefaultPortProperty {
		t.Errorf("PortProperty = %q, want %q", cfg.PortProperty, DefaultPortProperty)
	}
	if cfg.DaemonName != DefaultDaemonName {
		t.Errorf("DaemonName = %q, want %q", cfg.DaemonName, DefaultDaemonName)
	}
	if cfg.ConnectVerb != DefaultConnectVerb {
		t.Errorf("ConnectVerb = %q, want %q", cfg.ConnectVerb, DefaultConnectVerb)
	}
	if cfg.PollAttempts != 15 || cfg.PollInterval() != 200*time.Millisecond {
		t.Errorf("poll = %d x %v, want 15 x 200ms", cfg.PollAttempts, cfg.PollInterval())
	}
	if cfg.AmbientUpDelay() != 3*time.Second {
		t.Errorf("AmbientUpDelay() = %v, want 3s", cfg.AmbientUpDelay())
	}
	if cfg.AmbientDownDelay() != 0 {
		t.Errorf("AmbientDownDelay() = %v, want 0", cfg.AmbientDownDelay())
	}
	if !cfg.Watch() {
		t.Error("Watch() = false, want true")
	}
	if filepath.Base(cfg.OptionsFile) != DefaultOptionsFileName {
		t.Errorf("OptionsFile = %q", cfg.OptionsFile)
	}
}

// TestLoad_ExplicitPathMissing verifies that an explicit path must exist.
func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !hostErrors.IsCode(err, hostErrors.CodeConfigNotFound) {
		t.Fatalf("Load() error = %v, want %s", err, hostErrors.CodeConfigNotFound)
	}
}

// TestLoad_InvalidTOML verifies that parse errors are reported.
func TestLoad_InvalidTOML(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(tmpFile, []byte("poll_attempts = [broken"), 0600); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	_, err := Load(tmpFile)
	if !hostErrors.IsCode(err, hostErrors.CodeConfigParseFailed) {
		t.Fatalf("Load() error = %v, want %s", err, hostErrors.CodeConfigParseFailed)
	}
}

// TestLoad_EmptyPathNoDefaultFile verifies that a missing default file is fine.
func TestLoad_EmptyPathNoDefaultFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.DaemonName != DefaultDaemonName {
		t.Errorf("DaemonName = %q, want %q", cfg.DaemonName, DefaultDaemonName)
	}
}
