package transport

import (
	"context"
	"io"
)

// Device is an open duplex byte-stream link to a bus master.
//
// Read follows io.Reader. It may return fewer bytes than asked for. Links
// that poll may also return 0 bytes with a nil error when nothing has
// arrived yet; only profiles with RetryEmptyReads tolerate that, so links
// used with the async profile must block until data arrives.
type Device interface {
	io.ReadWriter

	// Flush discards any data buffered in either direction
	Flush() error
}

// FlowControl selects the handshake used on the link.
type FlowControl uint16

// Flow control modes, encoded as the FTDI SIO_SET_FLOW_CTRL index high byte.
const (
	FlowNone   FlowControl = 0x0000
	FlowRTSCTS FlowControl = 0x0100
	FlowDTRDSR FlowControl = 0x0200
	FlowXONOFF FlowControl = 0x0400
)

// Bit modes understood by SetBitMode.
const (
	BitModeReset  byte = 0x00
	BitModeSyncFF byte = 0x40
)

// Configurer is implemented by devices whose link mode can be changed after open.
type Configurer interface {
	// SetBitMode switches the channel mode; mask selects pin directions
	SetBitMode(mask, mode byte) error

	// SetFlowControl enables a hardware or software handshake
	SetFlowControl(fc FlowControl) error
}

// Opener opens a Device on demand.
type Opener interface {
	Open(ctx context.Context) (Device, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Device, error)

// Open calls f(ctx).
func (f OpenerFunc) Open(ctx context.Context) (Device, error) {
	return f(ctx)
}

// Logger is the subset of the bus logger used by links.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
}
