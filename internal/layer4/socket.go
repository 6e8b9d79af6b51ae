package layer4

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"
)

// PacketConn is the subset of *net.UDPConn the worker uses.
type PacketConn interface {
	ReadFromUDPAddrPort(b []byte) (int, netip.AddrPort, error)
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// SocketFactory creates the worker's UDP sockets.
type SocketFactory interface {
	// Listen binds a receiving socket to addr.
	Listen(addr netip.AddrPort) (PacketConn, error)
	// Broadcaster binds an ephemeral sending socket with SO_BROADCAST set.
	Broadcaster() (PacketConn, error)
}

// UDPSocketFactory creates real sockets.
type UDPSocketFactory struct{}

func (UDPSocketFactory) Listen(addr netip.AddrPort) (PacketConn, error) {
	conn, err := net.ListenUDP("udp4", net.UDPAddrFromAddrPort(addr))
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (UDPSocketFactory) Broadcaster() (PacketConn, error) {
	lc := net.ListenConfig{Control: setBroadcast}
	pc, err := lc.ListenPacket(context.Background(), "udp4", "0.0.0.0:0")
	if err != nil {
		return nil, err
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("unexpected packet conn type %T", pc)
	}
	return conn, nil
}
