package discovery

import (
	"net"
	"net/netip"
)

// Interface is a read-only description of a local network interface taken
// once at startup.
type Interface struct {
	Name         string
	Index        int
	HardwareAddr net.HardwareAddr
	Up           bool
	Loopback     bool
	// Addrs holds the interface's IPv4 addresses with their prefix length,
	// e.g. 192.168.5.10/24.
	Addrs []netip.Prefix
}

// Operational reports whether the interface can carry relayed frames.
func (i Interface) Operational() bool {
	return i.Up && !i.Loopback
}

// Snapshot is the set of interfaces present when the process started.
type Snapshot []Interface

// ByName finds an interface by its OS name.
func (s Snapshot) ByName(name string) (Interface, bool) {
	for _, iface := range s {
		if iface.Name == name {
			return iface, true
		}
	}
	return Interface{}, false
}

// Enumerator lists local interfaces.
type Enumerator interface {
	Interfaces() ([]Interface, error)
}
