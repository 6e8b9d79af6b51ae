package wol

import (
	"bytes"
	"fmt"
	"net"
)

const (
	// DefaultPort is the discard port WoL senders conventionally target.
	DefaultPort = 9
	// EchoPort is the alternate port some senders use.
	EchoPort = 7

	blockLen     = 6
	repetitions  = 16
	MinPacketLen = blockLen + repetitions*blockLen // 102
)

var syncPattern = []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Target is the hardware address a magic packet wakes.
type Target [blockLen]byte

// HardwareAddr returns the target as a net.HardwareAddr.
func (t Target) HardwareAddr() net.HardwareAddr {
	return net.HardwareAddr(t[:])
}

func (t Target) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", t[0], t[1], t[2], t[3], t[4], t[5])
}

// Parse validates buf as a Wake-on-LAN magic packet and extracts the target.
//
// The first six bytes must be the ff:ff:ff:ff:ff:ff synchronization pattern,
// followed by sixteen copies of the target address. Bytes beyond the sixteen
// copies (SecureOn passwords, padding) are ignored.
func Parse(buf []byte) (Target, bool) {
	var t Target
	if len(buf) < MinPacketLen {
		return t, false
	}
	if !bytes.Equal(buf[:blockLen], syncPattern) {
		return t, false
	}

	first := buf[blockLen : 2*blockLen]
	for i := 2; i <= repetitions; i++ {
		block := buf[i*blockLen : (i+1)*blockLen]
		if !bytes.Equal(block, first) {
			return t, false
		}
	}

	copy(t[:], first)
	return t, true
}

// Build assembles a magic packet for target. Used by tests and tooling.
func Build(target Target) []byte {
	pkt := make([]byte, 0, MinPacketLen)
	pkt = append(pkt, syncPattern...)
	for i := 0; i < repetitions; i++ {
		pkt = append(pkt, target[:]...)
	}
	return pkt
}

// ParseTarget parses a textual hardware address into a Target.
func ParseTarget(s string) (Target, error) {
	var t Target
	mac, err := net.ParseMAC(s)
	if err != nil {
		return t, fmt.Errorf("invalid MAC address: %w", err)
	}
	if len(mac) != blockLen {
		return t, fmt.Errorf("invalid MAC address %q: want %d bytes, got %d", s, blockLen, len(mac))
	}
	copy(t[:], mac)
	return t, nil
}
