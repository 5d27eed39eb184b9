package status

import "context"

// Status is the connectivity state of the debug bridge daemon.
type Status string

const (
	Undefined Status = "undefined"
	Up        Status = "up"
	Down      Status = "down"
	NoNetwork Status = "no_network"
	NoAdbd    Status = "no_adbd"
)

const (
	// DisabledPort is the port sentinel meaning network mode is off.
	DisabledPort = -1
	// DefaultPort is the well-known port left out of connect strings.
	DefaultPort = 5555
)

// Snapshot is the result of one analysis. IPAddress is empty and Port is
// DisabledPort when unknown.
type Snapshot struct {
	Status         Status `json:"status"`
	IPAddress      string `json:"ip_address,omitempty"`
	Port           int    `json:"port"`
	WirelessActive bool   `json:"wireless_active"`
}

// PropertyReader reads system properties.
type PropertyReader interface {
	Property(ctx context.Context, name string) (string, bool)
}

// ProcessFinder looks up a running process by name.
type ProcessFinder interface {
	FindProcess(ctx context.Context, name string) (pid int, found bool)
}

// AddressResolver resolves the display address for an interface spec.
type AddressResolver interface {
	Resolve(ctx context.Context, spec string) (string, bool)
}
