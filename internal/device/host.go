package device

import "github.com/wadbctl/host/internal/config"

// Host bundles the live lookups.
type Host struct {
	*Getprop
	*ProcessTable
	*NetResolver
}

// NewHost creates the live lookups for cfg.
func NewHost(cfg *config.Config) *Host {
	return &Host{
		Getprop:      NewGetprop(),
		ProcessTable: NewProcessTable(),
		NetResolver:  NewNetResolver(cfg.WifiInterface),
	}
}
