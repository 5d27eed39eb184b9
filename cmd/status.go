package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/skip2/go-qrcode"

	"github.com/wadbctl/host/internal/status"
	"github.com/wadbctl/host/internal/store"
)

// statusOutput is the --json shape of "wadbctl status".
type statusOutput struct {
	status.Snapshot
	Connect string `json:"connect,omitempty"`
}

// runStatus analyzes the host once and prints the result.
// Usage: wadbctl status [--json] [--qr]
func runStatus(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	var jsonOutput, qr bool
	common.register(fs)
	fs.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	fs.BoolVar(&qr, "qr", false, "Render the connect address as a QR code")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: wadbctl status [options]\n\nShow the daemon status.\n\nOptions:\n")
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
	restore, err := setupLogging(cfg, quietLogs(cfg, stderr))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer restore()

	env := newEnvironment(cfg)
	opts, _ := store.New(cfg.OptionsFile).Load(env.Env)
	analyzer := status.NewAnalyzer(status.Config{
		PortProperty: cfg.PortProperty,
		DaemonName:   cfg.DaemonName,
		ConnectVerb:  cfg.ConnectVerb,
		Interface:    opts.Interface.Text(),
	}, env.Props, env.Processes, env.Addresses)

	snap := analyzer.Analyze(context.Background())
	connect, up := analyzer.ConnectString()

	if jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		enc.Encode(statusOutput{Snapshot: snap, Connect: connect})
	} else {
		writeSnapshot(stdout, cfg, snap)
	}

	if qr {
		if !up {
			fmt.Fprintln(stderr, "No QR code: wireless debugging is not up.")
			return 1
		}
		if err := displayConnectQR(stdout, snap); err != nil {
			fmt.Fprintf(stderr, "Error generating QR code: %v\n", err)
			return 1
		}
	}
	return 0
}

// connectTarget is the host:port a client dials.
func connectTarget(snap status.Snapshot) string {
	return net.JoinHostPort(snap.IPAddress, strconv.Itoa(snap.Port))
}

// displayConnectQR prints the connect target as a compact QR code.
func displayConnectQR(w io.Writer, snap status.Snapshot) error {
	qr, err := qrcode.New(connectTarget(snap), qrcode.Medium)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "")
	fmt.Fprint(w, qr.ToSmallString(false))
	fmt.Fprintf(w, "  %s\n", connectTarget(snap))
	return nil
}
