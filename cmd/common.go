package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/wadbctl/host/internal/config"
	"github.com/wadbctl/host/internal/device"
	"github.com/wadbctl/host/internal/modechange"
	"github.com/wadbctl/host/internal/options"
	"github.com/wadbctl/host/internal/session"
	"github.com/wadbctl/host/internal/shell"
	"github.com/wadbctl/host/internal/status"
	"github.com/wadbctl/host/internal/store"
)

// environment is what commands need from the host.
type environment struct {
	Props     status.PropertyReader
	Processes status.ProcessFinder
	Addresses status.AddressResolver
	Runner    modechange.BatchRunner
	Env       options.Env
}

// newEnvironment builds the live host lookups. Tests replace it.
var newEnvironment = func(cfg *config.Config) environment {
	h := device.NewHost(cfg)
	return environment{
		Props:     h,
		Processes: h,
		Addresses: h,
		Runner:    shell.NewRunner(),
		Env:       options.HostEnv{Resolve: h.Resolves},
	}
}

// commonFlags are accepted by every command that touches the host.
type commonFlags struct {
	config  string
	verbose bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "Path to config file (default: ~/.wadbctl/config.toml)")
	fs.BoolVar(&c.verbose, "verbose", false, "Enable debug log lines")
}

// load reads the config file. --verbose overrides the file value.
func (c *commonFlags) load() (*config.Config, error) {
	cfg, err := config.Load(c.config)
	if err != nil {
		return nil, err
	}
	if c.verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// parseFlags parses args and reports the exit code to return when parsing
// should end the command.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, false
		}
		return 1, false
	}
	return 0, true
}

// setupLogging points the default logger at the configured log file, or at
// fallback when none is set. The returned func restores the previous output.
func setupLogging(cfg *config.Config, fallback io.Writer) (func(), error) {
	prev := log.Writer()
	out := fallback
	var logFile *os.File
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		out = f
	}
	log.SetOutput(out)
	return func() {
		log.SetOutput(prev)
		if logFile != nil {
			logFile.Close()
		}
	}, nil
}

// quietLogs is the fallback log output of one-shot commands.
func quietLogs(cfg *config.Config, stderr io.Writer) io.Writer {
	if cfg.Verbose {
		return stderr
	}
	return io.Discard
}

// newSession wires a session to the host. surface may be nil.
func newSession(cfg *config.Config, env environment, notifier session.Notifier, surface modechange.Surface) *session.Session {
	return session.New(session.Deps{
		Config:    cfg,
		Options:   store.New(cfg.OptionsFile),
		Env:       env.Env,
		Props:     env.Props,
		Processes: env.Processes,
		Addresses: env.Addresses,
		Runner:    env.Runner,
		Notifier:  notifier,
		Surface:   surface,
	})
}

// oneShot disables the blob watcher for commands that exit on their own.
func oneShot(cfg *config.Config) {
	off := false
	cfg.WatchOptions = &off
}

// writeSnapshot prints a status in the human-readable layout.
func writeSnapshot(w io.Writer, cfg *config.Config, snap status.Snapshot) {
	fmt.Fprintf(w, "Status:   %s\n", describeStatus(snap.Status))
	if snap.IPAddress != "" {
		fmt.Fprintf(w, "Address:  %s\n", snap.IPAddress)
	}
	if snap.WirelessActive {
		fmt.Fprintf(w, "Port:     %d\n", snap.Port)
	} else {
		fmt.Fprintln(w, "Port:     disabled")
	}
	if connect, ok := status.ConnectString(cfg.ConnectVerb, snap); ok {
		fmt.Fprintf(w, "Connect:  %s\n", connect)
	}
}

func describeStatus(s status.Status) string {
	switch s {
	case status.Up:
		return "up (accepting network connections)"
	case status.Down:
		return "down (network mode off)"
	case status.NoNetwork:
		return "no network address"
	case status.NoAdbd:
		return "daemon not running"
	default:
		return "unknown"
	}
}
