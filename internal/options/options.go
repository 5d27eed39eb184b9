// Package options defines the user-editable configuration of the toggle:
// the daemon port, the auto-refresh interval, the privileged shell, the
// interface used for address display, the daemon restart method and the USB
// auto-disable switch.
//
// Options is the mutable editing form used by the CLI. Components that act on
// configuration take a Snapshot, which is copied once and never changes.
package options

import (
	"sort"
	"time"

	hostErrors "github.com/wadbctl/host/internal/errors"
)

// Persisted option keys. They are stable across releases.
const (
	KeyPort          = "PN"
	KeyAutoRefresh   = "AR"
	KeyShellPath     = "SP"
	KeyInterface     = "IF"
	KeyRestartMethod = "ARM"
	KeyAutoDisable   = "AU"
)

const (
	DefaultPort      = 5555
	MinPort          = 1024
	MaxPort          = 65535
	DefaultShellPath = "su"
	// DefaultInterface selects the WiFi connection info instead of a named
	// interface.
	DefaultInterface = "wifi"
)

// Restart method choices.
const (
	RestartNormal = iota
	RestartForced
)

// Options is the full set of options in display order.
type Options struct {
	Port          *IntegerOption
	AutoRefresh   *ChoiceOption
	ShellPath     *PathOption
	Interface     *InterfaceOption
	RestartMethod *ChoiceOption
	AutoDisable   *ChoiceOption

	all []Option
}

// New returns every option at its default.
func New(env Env) *Options {
	o := &Options{
		Port: NewIntegerOption(KeyPort, "Port number", DefaultPort, MinPort, MaxPort),
		AutoRefresh: NewChoiceOption(KeyAutoRefresh, "Auto refresh", 0,
			Choice{Label: "Never", Value: 0},
			Choice{Label: "3s", Value: 3000},
			Choice{Label: "20s", Value: 20000},
			Choice{Label: "1min", Value: 60000},
			Choice{Label: "10min", Value: 600000},
			Choice{Label: "30min", Value: 1800000},
		),
		ShellPath: NewPathOption(KeyShellPath, "Shell path", DefaultShellPath, env),
		Interface: NewInterfaceOption(KeyInterface, "Interface", DefaultInterface, env),
		RestartMethod: NewChoiceOption(KeyRestartMethod, "Daemon restart", RestartNormal,
			Choice{Label: "Normal", Value: RestartNormal},
			Choice{Label: "Forced", Value: RestartForced},
		),
		AutoDisable: NewChoiceOption(KeyAutoDisable, "USB auto-disable", 0,
			Choice{Label: "Off", Value: 0},
			Choice{Label: "On", Value: 1},
		),
	}
	o.all = []Option{o.Port, o.AutoRefresh, o.ShellPath, o.Interface, o.RestartMethod, o.AutoDisable}
	return o
}

// All returns the options in display order.
func (o *Options) All() []Option {
	out := make([]Option, len(o.all))
	copy(out, o.all)
	return out
}

// Lookup finds an option by key.
func (o *Options) Lookup(key string) (Option, error) {
	for _, opt := range o.all {
		if opt.Key() == key {
			return opt, nil
		}
	}
	return nil, hostErrors.UnknownKey(key)
}

// Set parses text and stores it in the option named by key.
func (o *Options) Set(key, text string) error {
	opt, err := o.Lookup(key)
	if err != nil {
		return err
	}
	v, err := opt.Parse(text)
	if err != nil {
		return err
	}
	return opt.SetValue(v)
}

// Reset restores every option to its default.
func (o *Options) Reset() {
	for _, opt := range o.all {
		opt.Reset()
	}
}

// Values returns the current value of every option keyed by option key.
func (o *Options) Values() map[string]Value {
	out := make(map[string]Value, len(o.all))
	for _, opt := range o.all {
		out[opt.Key()] = opt.Value()
	}
	return out
}

// Keys returns the known keys sorted.
func (o *Options) Keys() []string {
	keys := make([]string, 0, len(o.all))
	for _, opt := range o.all {
		keys = append(keys, opt.Key())
	}
	sort.Strings(keys)
	return keys
}

// Snapshot copies the current values.
func (o *Options) Snapshot() Snapshot {
	return Snapshot{
		Port:            o.Port.Int(),
		RefreshInterval: time.Duration(o.AutoRefresh.Selected().Value) * time.Millisecond,
		ShellPath:       o.ShellPath.Text(),
		Interface:       o.Interface.Text(),
		ForceKill:       o.RestartMethod.Index() == RestartForced,
		AutoDisable:     o.AutoDisable.Index() == 1,
	}
}

// Snapshot is an immutable copy of the option values consumed by the
// analyzer, the orchestrator and the scheduler. Rebuild it to observe edits.
type Snapshot struct {
	Port            int
	RefreshInterval time.Duration
	ShellPath       string
	Interface       string
	ForceKill       bool
	AutoDisable     bool
}

// DefaultSnapshot is the snapshot of an all-default option set.
func DefaultSnapshot() Snapshot {
	return New(HostEnv{}).Snapshot()
}
