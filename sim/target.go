package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/moffa90/go-fifobus/protocol"
	"github.com/moffa90/go-fifobus/transport"
)

// ErrClosed is returned by I/O on a closed Target.
var ErrClosed = errors.New("sim: target closed")

// Command is a decoded command as seen by the target.
type Command struct {
	Opcode  protocol.Opcode
	Address uint32
	Length  int
}

// Option configures a Target.
type Option func(*Target)

// WithBurst limits how many response bytes a single Read returns.
func WithBurst(n int) Option {
	return func(t *Target) {
		if n > 0 {
			t.burst = n
		}
	}
}

// WithEmptyReads makes every nth Read return no data, even when a response is queued.
func WithEmptyReads(every int) Option {
	return func(t *Target) {
		if every > 0 {
			t.emptyEvery = every
		}
	}
}

// WithGPIOInput sets the byte returned by GPIO reads.
func WithGPIOInput(v uint8) Option {
	return func(t *Target) {
		t.gpioIn = v
	}
}

// Target is a simulated bus master.
type Target struct {
	mu sync.Mutex

	mem     map[uint32]byte
	gpioIn  uint8
	gpioOut uint8

	rx []byte
	tx []byte

	burst      int
	emptyEvery int
	reads      int

	commands []Command
	bitMode  byte
	flow     transport.FlowControl
	flushes  int
	opens    int
	closed   bool
}

// New creates a Target with empty (zero-filled) memory.
func New(opts ...Option) *Target {
	t := &Target{
		mem: make(map[uint32]byte),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Opener returns an opener that hands out this target and reopens it after Close.
func (t *Target) Opener() transport.Opener {
	return transport.OpenerFunc(func(ctx context.Context) (transport.Device, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		t.opens++
		t.closed = false
		return t, nil
	})
}

// Write accepts command bytes. Commands may be split across calls; each one
// is executed as soon as it is complete.
func (t *Target) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}

	t.rx = append(t.rx, p...)
	for {
		n, err := t.execute(t.rx)
		if err != nil {
			t.rx = t.rx[:0]
			return len(p), err
		}
		if n == 0 {
			break
		}
		t.rx = t.rx[n:]
	}

	return len(p), nil
}

// Read returns queued response bytes, or none if nothing is queued.
func (t *Target) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}

	t.reads++
	if t.emptyEvery > 0 && t.reads%t.emptyEvery == 0 {
		return 0, nil
	}

	n := len(p)
	if t.burst > 0 && n > t.burst {
		n = t.burst
	}
	n = copy(p[:n], t.tx)
	t.tx = t.tx[n:]
	return n, nil
}

// Flush drops partial commands and unread responses.
func (t *Target) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rx = t.rx[:0]
	t.tx = t.tx[:0]
	t.flushes++
	return nil
}

// SetBitMode records the requested mode.
func (t *Target) SetBitMode(mask, mode byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.bitMode = mode
	return nil
}

// SetFlowControl records the requested handshake.
func (t *Target) SetFlowControl(fc transport.FlowControl) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.flow = fc
	return nil
}

// Close marks the target closed until it is opened again.
func (t *Target) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	return nil
}

// execute runs the command at the start of buf and returns how many bytes it
// used, or 0 if the command is not complete yet.
func (t *Target) execute(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	op := protocol.Opcode(buf[0] & 0x0F)
	switch op {
	case protocol.OpGPIORead:
		t.commands = append(t.commands, Command{Opcode: op})
		t.tx = append(t.tx, t.gpioIn)
		return protocol.GPIOReadFrameSize, nil

	case protocol.OpGPIOWrite:
		if len(buf) < protocol.GPIOWriteFrameSize {
			return 0, nil
		}
		t.commands = append(t.commands, Command{Opcode: op, Length: 1})
		t.gpioOut = buf[1]
		return protocol.GPIOWriteFrameSize, nil

	case protocol.OpNop, protocol.OpWrite, protocol.OpRead:
		hdr, err := protocol.DecodeHeader(buf)
		if err != nil {
			return 0, nil
		}
		size := protocol.HeaderSize
		if op == protocol.OpWrite {
			size += hdr.Length
		}
		if len(buf) < size {
			return 0, nil
		}

		t.commands = append(t.commands, Command{Opcode: op, Address: hdr.Address, Length: hdr.Length})

		switch op {
		case protocol.OpWrite:
			for i, b := range buf[protocol.HeaderSize:size] {
				t.mem[hdr.Address+uint32(i)] = b
			}
		case protocol.OpRead:
			for i := 0; i < hdr.Length; i++ {
				t.tx = append(t.tx, t.mem[hdr.Address+uint32(i)])
			}
		}
		return size, nil

	default:
		return 0, fmt.Errorf("sim: unknown opcode 0x%X", uint8(op))
	}
}

// Load writes data straight into memory, bypassing the protocol.
func (t *Target) Load(addr uint32, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, b := range data {
		t.mem[addr+uint32(i)] = b
	}
}

// Memory returns n bytes of memory starting at addr.
func (t *Target) Memory(addr uint32, n int) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]byte, n)
	for i := range out {
		out[i] = t.mem[addr+uint32(i)]
	}
	return out
}

// SetGPIOInput sets the byte returned by GPIO reads.
func (t *Target) SetGPIOInput(v uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gpioIn = v
}

// GPIOOutput returns the last byte written with a GPIO write.
func (t *Target) GPIOOutput() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.gpioOut
}

// Commands returns every command executed so far, in order.
func (t *Target) Commands() []Command {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Command, len(t.commands))
	copy(out, t.commands)
	return out
}

// LinkMode returns the last bit mode and flow control requested.
func (t *Target) LinkMode() (byte, transport.FlowControl) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.bitMode, t.flow
}

// Flushes returns how many times Flush was called.
func (t *Target) Flushes() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.flushes
}

// Opens returns how many times the target was handed out by its opener.
func (t *Target) Opens() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.opens
}

// Pending returns the number of response bytes not yet read.
func (t *Target) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.tx)
}
