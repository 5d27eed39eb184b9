// Package status derives the daemon connectivity state from host lookups.
package status

import (
	"context"
	"strconv"
	"sync"
)

// Config names what the analyzer looks at.
type Config struct {
	PortProperty string
	DaemonName   string
	ConnectVerb  string
	// Interface is the resolver spec ("wifi" or "name[:4|:6]").
	Interface string
}

// Analyzer runs analyses and remembers the outcome of the last one.
type Analyzer struct {
	cfg       Config
	props     PropertyReader
	processes ProcessFinder
	addresses AddressResolver

	mu   sync.Mutex
	last Snapshot
}

// NewAnalyzer creates an Analyzer. Before the first Analyze the status is
// Undefined and the port is DisabledPort.
func NewAnalyzer(cfg Config, props PropertyReader, processes ProcessFinder, addresses AddressResolver) *Analyzer {
	return &Analyzer{
		cfg:       cfg,
		props:     props,
		processes: processes,
		addresses: addresses,
		last:      Snapshot{Status: Undefined, Port: DisabledPort},
	}
}

// Analyze reads the port property, the address and the daemon process, in
// that order, and returns the resulting snapshot. Address resolution wins
// over the process check: no address always means NoNetwork.
func (a *Analyzer) Analyze(ctx context.Context) Snapshot {
	port := DisabledPort
	if raw, ok := a.props.Property(ctx, a.cfg.PortProperty); ok {
		if n, err := strconv.Atoi(raw); err == nil {
			port = n
		}
	}

	snap := Snapshot{Port: port, WirelessActive: port != DisabledPort}

	addr, ok := a.addresses.Resolve(ctx, a.cfg.Interface)
	switch {
	case !ok || addr == "":
		snap.Status = NoNetwork
	default:
		snap.IPAddress = addr
		if _, running := a.processes.FindProcess(ctx, a.cfg.DaemonName); !running {
			snap.Status = NoAdbd
		} else if port > 0 {
			snap.Status = Up
		} else {
			snap.Status = Down
		}
	}

	a.mu.Lock()
	a.last = snap
	a.mu.Unlock()
	return snap
}

// Last returns the snapshot of the last Analyze.
func (a *Analyzer) Last() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// ConnectString renders the connect command for the last analysis. It
// reports false unless the last status was Up. The port is omitted when it
// is DefaultPort.
func (a *Analyzer) ConnectString() (string, bool) {
	return ConnectString(a.cfg.ConnectVerb, a.Last())
}

// WirelessActive reports whether the last read port differs from
// DisabledPort.
func (a *Analyzer) WirelessActive() bool {
	return a.Last().WirelessActive
}

// ConnectString renders the connect command for snap.
func ConnectString(verb string, snap Snapshot) (string, bool) {
	if snap.Status != Up {
		return "", false
	}
	s := verb + " " + snap.IPAddress
	if snap.Port != DefaultPort {
		s += ":" + strconv.Itoa(snap.Port)
	}
	return s, true
}
