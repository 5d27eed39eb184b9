package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	hostErrors "github.com/wadbctl/host/internal/errors"
	"github.com/wadbctl/host/internal/modechange"
	"github.com/wadbctl/host/internal/session"
	"github.com/wadbctl/host/internal/status"
)

// modeChangeOutput is the --json shape of enable, disable and toggle.
type modeChangeOutput struct {
	modechange.Result
	ErrorCode string   `json:"error_code,omitempty"`
	Error     string   `json:"error,omitempty"`
	Failures  []string `json:"failures,omitempty"`
	Connect   string   `json:"connect,omitempty"`
}

// runModeChange switches wireless debugging and waits for the daemon to
// settle. verb is "enable", "disable" or "toggle".
// Usage: wadbctl <verb> [--ambient] [--json]
func runModeChange(verb string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(verb, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	var ambient, jsonOutput bool
	common.register(fs)
	fs.BoolVar(&ambient, "ambient", false, "Act as a widget: print the status when known, then linger before exiting")
	fs.BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: wadbctl %s [options]\n\nOptions:\n", verb)
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
	oneShot(cfg)
	restore, err := setupLogging(cfg, quietLogs(cfg, stderr))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer restore()

	notifier := &collectingNotifier{}
	var surface modechange.Surface
	if ambient {
		surface = newAmbientSurface()
		if !jsonOutput {
			notifier.onSettled = func(snap status.Snapshot) {
				writeSnapshot(stdout, cfg, snap)
			}
		}
	}

	s := newSession(cfg, newEnvironment(cfg), notifier, surface)
	s.Open()
	defer s.Close()

	var started bool
	switch verb {
	case "enable":
		started = s.StartModeChange(true, true)
	case "disable":
		started = s.StartModeChange(false, true)
	default:
		snap := s.Snapshot()
		if _, ok := session.ToggleTarget(snap); !ok {
			fmt.Fprintf(stderr, "Error: nothing to toggle (status: %s)\n", snap.Status)
			return 1
		}
		started = s.Toggle(true)
	}
	if !started {
		fmt.Fprintln(stderr, "Error: a mode change is already running")
		return 1
	}

	res, _ := s.WaitModeChange()
	failures := notifier.failed()

	if jsonOutput {
		out := modeChangeOutput{Result: res, Failures: failures}
		out.ErrorCode, out.Error = hostErrors.ToCodeAndMessage(res.Err)
		out.Connect, _ = status.ConnectString(cfg.ConnectVerb, res.Status)
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		enc.Encode(out)
	} else {
		if res.Err != nil {
			fmt.Fprintf(stderr, "Warning: %s: %v\n", hostErrors.CodeModeChangeCouldNotExecute, res.Err)
		}
		if res.Enable {
			fmt.Fprintf(stdout, "Wireless debugging enabled on port %d.\n", res.Port)
		} else {
			fmt.Fprintln(stdout, "Wireless debugging disabled.")
		}
		if !ambient && !res.Aborted {
			writeSnapshot(stdout, cfg, res.Status)
		}
	}

	if res.Err != nil || res.Aborted {
		return 1
	}
	return 0
}
