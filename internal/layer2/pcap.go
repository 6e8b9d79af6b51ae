package layer2

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"wolrelay/internal/discovery"
)

const (
	snapLen     = 1600
	readTimeout = 50 * time.Millisecond
	bpfFilter   = "ether proto 0x0842 and ether broadcast"
)

// FrameSource is the capture side of an interface. *pcap.Handle satisfies it.
type FrameSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	Close()
}

// FrameSink is the injection side of an interface. *pcap.Handle satisfies it.
type FrameSink interface {
	WritePacketData(data []byte) error
	Close()
}

// Opener opens capture and injection handles on an interface.
type Opener interface {
	OpenCapture(iface discovery.Interface) (FrameSource, error)
	OpenInject(iface discovery.Interface) (FrameSink, error)
}

// PcapOpener opens libpcap handles.
type PcapOpener struct {
	Log *slog.Logger
}

func (o PcapOpener) OpenCapture(iface discovery.Interface) (FrameSource, error) {
	handle, err := activate(iface.Name, true)
	if err != nil {
		return nil, err
	}
	captureInboundOnly(handle, iface.Name, o.Log)
	return handle, nil
}

type directionSetter interface {
	SetDirection(direction pcap.Direction) error
}

// captureInboundOnly restricts capture to received frames. Not every
// platform supports it; without it our own injected frames come back and
// are absorbed by the cooldown cache.
func captureInboundOnly(h directionSetter, device string, log *slog.Logger) {
	if err := h.SetDirection(pcap.DirectionIn); err != nil && log != nil {
		log.Debug("Inbound-only capture unsupported, injected frames will be seen again",
			"interface", device, "error", err)
	}
}

func (PcapOpener) OpenInject(iface discovery.Interface) (FrameSink, error) {
	handle, err := activate(iface.Name, false)
	if err != nil {
		return nil, err
	}
	return handle, nil
}

func activate(device string, promisc bool) (*pcap.Handle, error) {
	inactive, err := pcap.NewInactiveHandle(device)
	if err != nil {
		return nil, fmt.Errorf("failed to create pcap handle on %s: %w", device, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(snapLen); err != nil {
		return nil, fmt.Errorf("failed to set snaplen on %s: %w", device, err)
	}
	if err := inactive.SetPromisc(promisc); err != nil {
		return nil, fmt.Errorf("failed to set promiscuous mode on %s: %w", device, err)
	}
	if err := inactive.SetTimeout(readTimeout); err != nil {
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", device, err)
	}
	if err := inactive.SetImmediateMode(true); err != nil {
		return nil, fmt.Errorf("failed to set immediate mode on %s: %w", device, err)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap handle on %s: %w", device, err)
	}

	// The inject handle never reads; the filter keeps its buffer from
	// filling with unrelated traffic.
	if err := handle.SetBPFFilter(bpfFilter); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to set BPF filter %q on %s: %w", bpfFilter, device, err)
	}
	return handle, nil
}

func isTimeout(err error) bool {
	return errors.Is(err, pcap.NextErrorTimeoutExpired)
}
