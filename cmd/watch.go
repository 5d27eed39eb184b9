package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wadbctl/host/internal/modechange"
	"github.com/wadbctl/host/internal/status"
)

// watchSignals subscribes ch to the signals watch reacts to. Tests replace it.
var watchSignals = func(ch chan<- os.Signal) {
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2)
}

var stopSignals = func(ch chan<- os.Signal) {
	signal.Stop(ch)
}

// runWatch runs a monitoring session until interrupted.
// Usage: wadbctl watch [--ambient]
//
// Signals: SIGINT/SIGTERM stop, SIGHUP reloads options, SIGUSR1 forces a
// refresh and SIGUSR2 toggles wireless debugging.
func runWatch(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	var ambient bool
	common.register(fs)
	fs.BoolVar(&ambient, "ambient", false, "Exit once an explicit mode change has settled")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: wadbctl watch [options]\n\nMonitor the status until interrupted.\n")
		fmt.Fprintf(stderr, "SIGHUP reloads options, SIGUSR1 refreshes, SIGUSR2 toggles.\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := common.load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	restore, err := setupLogging(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer restore()

	var mu sync.Mutex // serializes writes to stdout
	notifier := &collectingNotifier{
		onStatus: func(snap status.Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(stdout, "%s %s\n", time.Now().Format("15:04:05"), formatStatusLine(cfg.ConnectVerb, snap))
		},
		onFailed: func(code string) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(stdout, "%s mode change failed: %s\n", time.Now().Format("15:04:05"), code)
		},
	}

	var surface *ambientSurface
	var sessionSurface modechange.Surface
	if ambient {
		surface = newAmbientSurface()
		sessionSurface = surface
	}

	s := newSession(cfg, newEnvironment(cfg), notifier, sessionSurface)
	s.Open()
	defer s.Close()
	log.Printf("watch: monitoring %s (options %s)", cfg.DaemonName, cfg.OptionsFile)

	sigCh := make(chan os.Signal, 4)
	watchSignals(sigCh)
	defer stopSignals(sigCh)

	var surfaceDone <-chan struct{}
	if surface != nil {
		surfaceDone = surface.Done()
	}

	for {
		select {
		case <-surfaceDone:
			log.Printf("watch: ambient surface closed")
			return 0
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				log.Printf("watch: reloading options")
				s.ProcessOptions()
			case syscall.SIGUSR1:
				s.Refresh(true)
			case syscall.SIGUSR2:
				if !s.Toggle(true) {
					log.Printf("watch: toggle ignored (status %s)", s.Snapshot().Status)
				}
			default:
				mu.Lock()
				fmt.Fprintf(stdout, "\nReceived signal %v, stopping...\n", sig)
				mu.Unlock()
				return 0
			}
		}
	}
}

// formatStatusLine renders one status change for the watch log.
func formatStatusLine(verb string, snap status.Snapshot) string {
	line := string(snap.Status)
	if snap.IPAddress != "" {
		line += " " + snap.IPAddress
	}
	if snap.WirelessActive {
		line += fmt.Sprintf(" port=%d", snap.Port)
	}
	if connect, ok := status.ConnectString(verb, snap); ok {
		line += " (" + connect + ")"
	}
	return line
}
