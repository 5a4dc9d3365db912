package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/jacobsa/go-serial/serial"
)

// DefaultBaudRate is used when SerialOptions.BaudRate is zero. FIFO bridges
// ignore the rate; the tty layer still needs one.
const DefaultBaudRate = 3000000

// SerialOptions configures a tty-backed link.
type SerialOptions struct {
	// Port is the tty path, e.g. /dev/ttyUSB1
	Port string

	// BaudRate is the line rate; 0 selects DefaultBaudRate
	BaudRate uint

	// RTSCTS enables hardware handshake at open
	RTSCTS bool
}

// Serial is a FIFO channel exposed as a tty by the kernel driver.
// It cannot change bit mode after open, so it does not implement Configurer.
type Serial struct {
	port io.ReadWriteCloser
	name string
}

var openPort = serial.Open

// OpenSerial opens the tty in raw 8N1 mode with blocking single-byte reads.
func OpenSerial(ctx context.Context, opts SerialOptions) (*Serial, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Port == "" {
		return nil, fmt.Errorf("%w: serial port path is empty", ErrInvalidIdentifier)
	}

	baud := opts.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}

	port, err := openPort(serial.OpenOptions{
		PortName:          opts.Port,
		BaudRate:          baud,
		DataBits:          8,
		StopBits:          1,
		MinimumReadSize:   1,
		RTSCTSFlowControl: opts.RTSCTS,
	})
	if err != nil {
		return nil, fmt.Errorf("serial.Open %s: %w", opts.Port, err)
	}

	return &Serial{port: port, name: opts.Port}, nil
}

// Read reads whatever the tty has buffered, blocking for at least one byte.
func (s *Serial) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

// Write writes p to the tty.
func (s *Serial) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// Flush is a no-op: the tty layer offers no purge through go-serial, and a
// freshly opened port starts empty.
func (s *Serial) Flush() error {
	return nil
}

// Close closes the tty.
func (s *Serial) Close() error {
	return s.port.Close()
}

func (s *Serial) String() string {
	return s.name
}
