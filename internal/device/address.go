package device

import (
	"context"
	"log"
	"net/netip"
	"strconv"
	"strings"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// WifiSpec selects the WiFi connection address instead of a named interface.
const WifiSpec = "wifi"

// Interface is one network interface with its addresses in the order the
// host reports them. Addresses may carry a "/prefix" and a "%zone".
type Interface struct {
	Name  string
	Addrs []string
}

// NetResolver resolves the display address of the device.
type NetResolver struct {
	// WifiInterface backs WifiSpec.
	WifiInterface string

	interfaces func(ctx context.Context) ([]Interface, error)
}

// NewNetResolver creates a NetResolver over the live host interfaces.
func NewNetResolver(wifiInterface string) *NetResolver {
	return &NetResolver{
		WifiInterface: wifiInterface,
		interfaces:    hostInterfaces,
	}
}

// Resolve returns the address for spec, which is WifiSpec or
// "name[:4|:6]". Any other suffix resolves nothing.
func (r *NetResolver) Resolve(ctx context.Context, spec string) (string, bool) {
	if spec == WifiSpec {
		packed := r.wifiAddress(ctx)
		if packed == 0 {
			return "", false
		}
		return FormatIPv4(packed), true
	}

	name, preferIPv6, ok := ParseInterfaceSpec(spec)
	if !ok {
		return "", false
	}
	iface, found := r.lookup(ctx, name)
	if !found {
		return "", false
	}
	addr := SelectAddress(iface.Addrs, preferIPv6)
	if addr == "" {
		return "", false
	}
	return addr, true
}

// Resolves reports whether spec currently yields an address.
func (r *NetResolver) Resolves(spec string) bool {
	_, ok := r.Resolve(context.Background(), spec)
	return ok
}

func (r *NetResolver) lookup(ctx context.Context, name string) (Interface, bool) {
	ifaces, err := r.interfaces(ctx)
	if err != nil {
		log.Printf("device: listing interfaces failed: %v", err)
		return Interface{}, false
	}
	for _, iface := range ifaces {
		if iface.Name == name {
			return iface, true
		}
	}
	return Interface{}, false
}

// wifiAddress returns the connection address of the WiFi interface packed
// the way WiFi connection info reports it: first octet in the low byte.
// Zero means not connected.
func (r *NetResolver) wifiAddress(ctx context.Context) uint32 {
	iface, found := r.lookup(ctx, r.WifiInterface)
	if !found {
		return 0
	}
	for _, raw := range iface.Addrs {
		addr, ok := parseAddr(raw)
		if !ok || !addr.Unmap().Is4() {
			continue
		}
		return PackIPv4(addr.Unmap())
	}
	return 0
}

// ParseInterfaceSpec splits "name[:4|:6]". The suffix is optional and only
// "4" or "6" are accepted after the first colon.
func ParseInterfaceSpec(spec string) (name string, preferIPv6 bool, ok bool) {
	i := strings.IndexByte(spec, ':')
	if i <= 0 {
		return spec, false, spec != ""
	}
	switch spec[i+1:] {
	case "4":
		return spec[:i], false, true
	case "6":
		return spec[:i], true, true
	default:
		return "", false, false
	}
}

// SelectAddress scans addrs in order and returns the chosen one without
// prefix or zone. An address replaces the current pick when nothing has been
// picked yet or when its IPv4-ness differs from preferIPv6. The effect is the
// last address of the preferred family, or the first address when the
// interface has none of that family.
func SelectAddress(addrs []string, preferIPv6 bool) string {
	var picked string
	for _, raw := range addrs {
		addr, ok := parseAddr(raw)
		if !ok {
			continue
		}
		if picked == "" || addr.Unmap().Is4() != preferIPv6 {
			picked = addr.WithZone("").String()
		}
	}
	return picked
}

func parseAddr(raw string) (netip.Addr, bool) {
	raw, _, _ = strings.Cut(raw, "/")
	if i := strings.IndexByte(raw, '%'); i >= 0 {
		raw = raw[:i]
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr, true
}

// PackIPv4 packs a with the first octet in the low byte.
func PackIPv4(a netip.Addr) uint32 {
	b := a.As4()
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// FormatIPv4 renders a packed address low byte first.
func FormatIPv4(packed uint32) string {
	var sb strings.Builder
	tmp := packed
	for i := 0; i < 4; i++ {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.FormatUint(uint64(tmp&0xff), 10))
		tmp >>= 8
	}
	return sb.String()
}

func hostInterfaces(ctx context.Context) ([]Interface, error) {
	stats, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Interface, 0, len(stats))
	for _, st := range stats {
		iface := Interface{Name: st.Name}
		for _, a := range st.Addrs {
			iface.Addrs = append(iface.Addrs, a.Addr)
		}
		out = append(out, iface)
	}
	return out, nil
}
