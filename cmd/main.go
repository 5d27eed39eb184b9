package main

import (
	"fmt"
	"io"
	"os"
)

// Version is set at build time via -ldflags.
// Example: go build -ldflags="-X main.Version=v0.1.0" ./cmd
var Version = "dev"

const usage = `wadbctl - toggle and monitor debugging over the network

Usage:
  wadbctl <command> [options]

Commands:
  status        Show the daemon status and connect string
  enable        Turn wireless debugging on
  disable       Turn wireless debugging off
  toggle        Flip wireless debugging based on the current status
  options show  List options and their values
  options set <key> <value>  Change an option
  options next <key>         Advance a choice option
  options reset              Restore every option to its default
  watch         Monitor the status until interrupted
  ui            Interactive status popup
Run 'wadbctl <command> --help' for more information on a command.
`

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		fmt.Fprint(stdout, usage)
		return 0
	}

	switch args[1] {
	case "status":
		return runStatus(args[2:], stdout, stderr)
	case "enable":
		return runModeChange("enable", args[2:], stdout, stderr)
	case "disable":
		return runModeChange("disable", args[2:], stdout, stderr)
	case "toggle":
		return runModeChange("toggle", args[2:], stdout, stderr)
	case "options":
		return runOptions(args[2:], stdout, stderr)
	case "watch":
		return runWatch(args[2:], stdout, stderr)
	case "ui":
		return runUI(args[2:], stdout, stderr)
	case "--help", "-h", "help":
		fmt.Fprint(stdout, usage)
		return 0
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "wadbctl %s\n", Version)
		return 0
	default:
		fmt.Fprintf(stdout, "Unknown command: %s\n", args[1])
		fmt.Fprint(stdout, usage)
		return 1
	}
}
