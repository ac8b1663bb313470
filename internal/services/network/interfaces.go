// Package network lists the IPv4 broadcast addresses Art-Net output can target.
package network

import (
	"fmt"
	"net"
	"strings"
)

// Interface kinds, in the order targets are listed.
const (
	KindEthernet  = "ethernet"
	KindWiFi      = "wifi"
	KindOther     = "other"
	KindLocalhost = "localhost"
	KindGlobal    = "global"
)

// Target is one broadcast address the strip can send to.
type Target struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Broadcast string `json:"broadcast"`
	Kind      string `json:"kind"`
}

// Kind guesses the interface kind from its name.
func Kind(ifaceName string) string {
	name := strings.ToLower(ifaceName)
	switch {
	case strings.HasPrefix(name, "wlan"), strings.HasPrefix(name, "wl"),
		strings.Contains(name, "wifi"), strings.Contains(name, "wireless"):
		return KindWiFi
	case strings.HasPrefix(name, "eth"), strings.HasPrefix(name, "en"):
		return KindEthernet
	default:
		return KindOther
	}
}

// Broadcast returns the IPv4 broadcast address of ip/mask, or nil if either is
// not IPv4.
func Broadcast(ip net.IP, mask net.IPMask) net.IP {
	ip4 := ip.To4()
	if ip4 == nil {
		return nil
	}
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return nil
	}

	out := make(net.IP, net.IPv4len)
	for i := range out {
		out[i] = ip4[i] | ^mask[i]
	}
	return out
}

// ValidBroadcast reports whether addr is a usable IPv4 target.
func ValidBroadcast(addr string) error {
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("invalid IPv4 address: %q", addr)
	}
	return nil
}

// Targets lists the broadcast addresses of every up, non-loopback IPv4 interface,
// ethernet first, followed by localhost and the global broadcast address.
func Targets() ([]Target, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to get network interfaces: %w", err)
	}

	byKind := map[string][]Target{}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if t, ok := targetFor(iface.Name, addr); ok {
				byKind[t.Kind] = append(byKind[t.Kind], t)
			}
		}
	}

	var out []Target
	for _, kind := range []string{KindEthernet, KindWiFi, KindOther} {
		out = append(out, byKind[kind]...)
	}
	return append(out, fixedTargets()...), nil
}

func targetFor(ifaceName string, addr net.Addr) (Target, bool) {
	ipNet, ok := addr.(*net.IPNet)
	if !ok {
		return Target{}, false
	}
	ip4 := ipNet.IP.To4()
	if ip4 == nil {
		return Target{}, false
	}
	bcast := Broadcast(ip4, ipNet.Mask)
	// point-to-point links have no broadcast address
	if bcast == nil || bcast.Equal(ip4) {
		return Target{}, false
	}
	return Target{
		Name:      ifaceName,
		Address:   ip4.String(),
		Broadcast: bcast.String(),
		Kind:      Kind(ifaceName),
	}, true
}

func fixedTargets() []Target {
	return []Target{
		{Name: "localhost", Address: "127.0.0.1", Broadcast: "127.0.0.1", Kind: KindLocalhost},
		{Name: "global", Address: "0.0.0.0", Broadcast: "255.255.255.255", Kind: KindGlobal},
	}
}
