package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"wolrelay/internal/wol"
)

// ErrConfiguration marks errors caused by unusable configuration or
// topology: no usable interfaces, no local networks, empty relay targets.
var ErrConfiguration = errors.New("configuration error")

// Layer identifies which relay worker handled a message.
type Layer string

const (
	LayerLink      Layer = "layer2"
	LayerTransport Layer = "layer4"
)

// Origin describes where a magic packet was captured. Link-layer captures
// set Interface and IfIndex; transport-layer captures set Addr.
type Origin struct {
	Interface string
	IfIndex   int
	Addr      string
}

func (o Origin) String() string {
	if o.Addr != "" {
		return o.Addr
	}
	return fmt.Sprintf("%s#%d", o.Interface, o.IfIndex)
}

// RelayMessage is a validated magic packet handed from a capture unit to its
// layer's relay stage. It is not modified after creation.
type RelayMessage struct {
	ID       string
	Layer    Layer
	Origin   Origin
	Target   wol.Target
	Payload  []byte // full frame at layer 2, datagram body at layer 4
	Captured time.Time
}

// NewRelayMessage stamps a message with a fresh ID and capture time.
// Payload must already be owned by the caller.
func NewRelayMessage(layer Layer, origin Origin, target wol.Target, payload []byte) RelayMessage {
	return RelayMessage{
		ID:       xid.New().String(),
		Layer:    layer,
		Origin:   origin,
		Target:   target,
		Payload:  payload,
		Captured: time.Now(),
	}
}

// RelayEvent records the outcome of one relay decision.
type RelayEvent struct {
	Timestamp  time.Time
	Layer      Layer
	Origin     string
	Target     string
	Length     int
	Suppressed bool
	Egress     int // successful egress sends
	Failed     int // failed egress sends
}
