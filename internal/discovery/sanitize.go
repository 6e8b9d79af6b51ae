package discovery

import (
	"fmt"
	"log/slog"
	"net/netip"
	"slices"

	"go4.org/netipx"

	"wolrelay/internal/models"
)

var privateRanges = MustPrefixes("10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16")

// IsPrivate reports whether the network p lies entirely inside an RFC1918
// range.
func IsPrivate(p netip.Prefix) bool {
	if !p.Addr().Is4() {
		return false
	}
	for _, r := range privateRanges {
		if r.Bits() <= p.Bits() && r.Contains(p.Addr()) {
			return true
		}
	}
	return false
}

// PrivateNetworks returns the normalized private IPv4 networks attached to
// the interfaces in snap. Loopback, link-local and public networks never
// qualify.
func PrivateNetworks(snap Snapshot) []netip.Prefix {
	var nets []netip.Prefix
	for _, iface := range snap {
		for _, addr := range iface.Addrs {
			n := addr.Masked()
			if IsPrivate(n) {
				nets = append(nets, n)
			}
		}
	}
	return nets
}

// SanitizeNetworks resolves configured relay destinations into the sorted,
// deduplicated set of IPv4 networks to broadcast into.
//
// A first entry of 0.0.0.0/0 (after sorting) stands for every private network
// attached to this host. Explicit networks the host is not attached to are
// kept, with a warning, since they may be reachable through a router.
func SanitizeNetworks(relayTo []netip.Prefix, snap Snapshot, log *slog.Logger) ([]netip.Prefix, error) {
	available := PrivateNetworks(snap)
	if len(available) == 0 {
		return nil, fmt.Errorf("%w: no private IPv4 network attached to this host", models.ErrConfiguration)
	}
	if len(relayTo) == 0 {
		return nil, fmt.Errorf("%w: no relay networks specified", models.ErrConfiguration)
	}

	requested := make([]netip.Prefix, 0, len(relayTo))
	for _, p := range relayTo {
		if !p.Addr().Is4() {
			return nil, fmt.Errorf("%w: relay network %s is not IPv4", models.ErrConfiguration, p)
		}
		requested = append(requested, p.Masked())
	}
	requested = sortPrefixes(requested)

	var networks []netip.Prefix
	if requested[0].Addr().IsUnspecified() {
		networks = append(networks, available...)
	} else {
		for _, p := range requested {
			if !slices.Contains(available, p) {
				log.Warn("Relay network is not attached to this host", "network", p)
			}
			networks = append(networks, p)
		}
	}

	return sortPrefixes(networks), nil
}

// Broadcast returns the directed broadcast address of network p.
func Broadcast(p netip.Prefix) netip.Addr {
	return netipx.PrefixLastIP(p.Masked())
}

func sortPrefixes(ps []netip.Prefix) []netip.Prefix {
	slices.SortFunc(ps, func(a, b netip.Prefix) int {
		if c := a.Addr().Compare(b.Addr()); c != 0 {
			return c
		}
		return a.Bits() - b.Bits()
	})
	return slices.Compact(ps)
}
