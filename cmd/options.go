package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/wadbctl/host/internal/config"
	hostErrors "github.com/wadbctl/host/internal/errors"
	"github.com/wadbctl/host/internal/options"
	"github.com/wadbctl/host/internal/store"
)

const optionsUsage = `Usage: wadbctl options <command> [options]

Commands:
  show                     List options and their values
  set <key> <value>        Change an option (flags may come before or after)
  next <key>               Advance a choice option to its next value
  reset                    Restore every option to its default

Options:
  --config <path>          Path to config file
  --json, --yaml           Output format for show
  --apply                  With set: re-enable wireless debugging so a new
                           port or interface takes effect
`

// optionEntry is the machine-readable shape of one option.
type optionEntry struct {
	Key     string   `json:"key" yaml:"key"`
	Name    string   `json:"name" yaml:"name"`
	Value   string   `json:"value" yaml:"value"`
	Default string   `json:"default" yaml:"default"`
	Choices []string `json:"choices,omitempty" yaml:"choices,omitempty"`
}

func runOptions(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		return runOptionsShow(args, stdout, stderr)
	}

	switch args[0] {
	case "show":
		return runOptionsShow(args[1:], stdout, stderr)
	case "set":
		return runOptionsSet(args[1:], stdout, stderr)
	case "next":
		return runOptionsNext(args[1:], stdout, stderr)
	case "reset":
		return runOptionsReset(args[1:], stdout, stderr)
	case "--help", "-h", "help":
		fmt.Fprint(stdout, optionsUsage)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown options command: %s\n", args[0])
		fmt.Fprint(stdout, optionsUsage)
		return 1
	}
}

// optionsCommand is the shared setup of every options subcommand.
type optionsCommand struct {
	cfg   *config.Config
	env   environment
	store *store.Store
	opts  *options.Options
}

func openOptions(common commonFlags, stderr io.Writer) (*optionsCommand, func(), error) {
	cfg, err := common.load()
	if err != nil {
		return nil, nil, err
	}
	restore, err := setupLogging(cfg, quietLogs(cfg, stderr))
	if err != nil {
		return nil, nil, err
	}
	env := newEnvironment(cfg)
	st := store.New(cfg.OptionsFile)
	opts, err := st.Load(env.Env)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: option file unreadable, using defaults: %v\n", err)
	}
	return &optionsCommand{cfg: cfg, env: env, store: st, opts: opts}, restore, nil
}

func runOptionsShow(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("options show", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	var jsonOutput, yamlOutput bool
	common.register(fs)
	fs.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	fs.BoolVar(&yamlOutput, "yaml", false, "Output in YAML format")

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if jsonOutput && yamlOutput {
		fmt.Fprintln(stderr, "Error: --json and --yaml are mutually exclusive")
		return 1
	}

	oc, restore, err := openOptions(common, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer restore()

	entries := describeOptions(oc.opts, options.New(oc.env.Env))

	switch {
	case jsonOutput:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		enc.Encode(entries)
	case yamlOutput:
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		enc.Close()
	default:
		w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tNAME\tVALUE\tDEFAULT")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Key, e.Name, e.Value, e.Default)
		}
		w.Flush()
	}
	return 0
}

// describeOptions lists opts in display order. defaults supplies the
// rendering of each default value.
func describeOptions(opts, defaults *options.Options) []optionEntry {
	var entries []optionEntry
	for _, opt := range opts.All() {
		e := optionEntry{Key: opt.Key(), Name: opt.Name(), Value: opt.Display()}
		if def, err := defaults.Lookup(opt.Key()); err == nil {
			e.Default = def.Display()
		}
		if c, ok := opt.(*options.ChoiceOption); ok {
			for _, choice := range c.Choices() {
				e.Choices = append(e.Choices, choice.Label)
			}
		}
		entries = append(entries, e)
	}
	return entries
}

// runOptionsSet parses and stores one option value.
// Usage: wadbctl options set [--apply] <key> <value> [--apply]
func runOptionsSet(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("options set", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	var apply bool
	common.register(fs)
	fs.BoolVar(&apply, "apply", false, "Re-enable wireless debugging if it is up so the change takes effect")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: wadbctl options set [options] <key> <value> [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	remaining := fs.Args()
	if len(remaining) < 2 {
		fmt.Fprintln(stderr, "Error: key and value are required")
		return 1
	}
	key, value := strings.ToUpper(remaining[0]), remaining[1]
	// Flags may also follow the key and value.
	if code, ok := parseFlags(fs, remaining[2:]); !ok {
		return code
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "Error: unexpected argument %q\n", fs.Arg(0))
		return 1
	}

	oc, restore, err := openOptions(common, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer restore()

	if err := oc.opts.Set(key, value); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if hostErrors.IsCode(err, hostErrors.CodeOptionUnknownKey) {
			fmt.Fprintln(stderr, "Run 'wadbctl options show' to list the keys.")
		}
		return 1
	}
	if err := oc.store.Save(oc.opts); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	opt, _ := oc.opts.Lookup(key)
	fmt.Fprintf(stdout, "%s (%s) = %s\n", opt.Key(), opt.Name(), opt.Display())

	if !apply {
		return 0
	}
	if key != options.KeyPort && key != options.KeyInterface {
		fmt.Fprintf(stderr, "Note: --apply only affects %s and %s\n", options.KeyPort, options.KeyInterface)
		return 0
	}
	return applyConnectionSettings(oc, stdout, stderr)
}

// applyConnectionSettings re-runs an enable mode change when the daemon is
// up and waits for it.
func applyConnectionSettings(oc *optionsCommand, stdout, stderr io.Writer) int {
	oneShot(oc.cfg)
	s := newSession(oc.cfg, oc.env, &collectingNotifier{}, nil)
	s.Open()
	defer s.Close()

	if !s.ApplyConnectionSettings() {
		fmt.Fprintln(stdout, "Wireless debugging is not up; the change applies on the next enable.")
		return 0
	}
	res, _ := s.WaitModeChange()
	if res.Err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", res.Err)
		return 1
	}
	fmt.Fprintf(stdout, "Wireless debugging restarted on port %d.\n", res.Port)
	writeSnapshot(stdout, oc.cfg, res.Status)
	return 0
}

// runOptionsNext advances a choice option, wrapping after the last choice.
// Usage: wadbctl options next <key>
func runOptionsNext(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("options next", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	remaining := fs.Args()
	if len(remaining) != 1 {
		fmt.Fprintln(stderr, "Error: key is required")
		return 1
	}
	key := strings.ToUpper(remaining[0])

	oc, restore, err := openOptions(common, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer restore()

	opt, err := oc.opts.Lookup(key)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	choice, ok := opt.(*options.ChoiceOption)
	if !ok {
		fmt.Fprintf(stderr, "Error: option %s has no choices\n", key)
		return 1
	}
	choice.Next()
	if err := oc.store.Save(oc.opts); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%s (%s) = %s\n", opt.Key(), opt.Name(), opt.Display())
	return 0
}

// runOptionsReset restores every option to its default.
func runOptionsReset(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("options reset", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	oc, restore, err := openOptions(common, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer restore()

	oc.opts.Reset()
	if err := oc.store.Save(oc.opts); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "All options restored to their defaults.")
	return 0
}
