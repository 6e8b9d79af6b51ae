package discovery

import (
	"fmt"
	"net"
	"net/netip"
	"sort"

	"github.com/vishvananda/netlink"
	"go4.org/netipx"
)

// NetlinkEnumerator lists interfaces and their IPv4 addresses over netlink.
type NetlinkEnumerator struct{}

// Interfaces returns every link known to the kernel. Links whose addresses
// cannot be read are returned without addresses.
func (NetlinkEnumerator) Interfaces() ([]Interface, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	result := make([]Interface, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		iface := Interface{
			Name:         attrs.Name,
			Index:        attrs.Index,
			HardwareAddr: attrs.HardwareAddr,
			Up:           attrs.Flags&net.FlagUp != 0,
			Loopback:     attrs.Flags&net.FlagLoopback != 0,
		}

		addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err == nil {
			for _, addr := range addrs {
				if addr.IPNet == nil {
					continue
				}
				if p, ok := netipx.FromStdIPNet(addr.IPNet); ok && p.Addr().Is4() {
					iface.Addrs = append(iface.Addrs, p)
				}
			}
		}
		result = append(result, iface)
	}
	return result, nil
}

// Take captures a snapshot from e, ordered by interface index.
func Take(e Enumerator) (Snapshot, error) {
	ifaces, err := e.Interfaces()
	if err != nil {
		return nil, err
	}
	snap := Snapshot(ifaces)
	sort.Slice(snap, func(i, j int) bool { return snap[i].Index < snap[j].Index })
	return snap, nil
}

// StaticEnumerator returns a fixed interface list. Useful for tests and
// for platforms without netlink.
type StaticEnumerator []Interface

func (s StaticEnumerator) Interfaces() ([]Interface, error) {
	out := make([]Interface, len(s))
	copy(out, s)
	return out, nil
}

// MustPrefixes parses CIDR strings and panics on error. Intended for tests
// and static tables.
func MustPrefixes(cidrs ...string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		out = append(out, netip.MustParsePrefix(c))
	}
	return out
}
