package transport

import (
	"context"
	"fmt"

	"github.com/google/gousb"
)

// FTDI USB identifiers.
const (
	ftdiVendorID gousb.ID = 0x0403

	ft232rProductID  gousb.ID = 0x6001
	ft2232hProductID gousb.ID = 0x6010
	ft4232hProductID gousb.ID = 0x6011
	ft232hProductID  gousb.ID = 0x6014
)

// SIO vendor requests, as used by libftdi.
const (
	sioReset       uint8 = 0x00
	sioSetFlowCtrl uint8 = 0x02
	sioSetLatency  uint8 = 0x09
	sioSetBitMode  uint8 = 0x0B

	sioResetSIO     uint16 = 0
	sioResetPurgeRX uint16 = 1
	sioResetPurgeTX uint16 = 2

	rTypeVendorOut uint8 = gousb.ControlOut | gousb.ControlVendor | gousb.ControlDevice
)

// modemStatusLength is the number of status bytes leading every bulk IN packet.
const modemStatusLength = 2

const (
	// DefaultLatencyTimer is the latency timer programmed at open, in milliseconds
	DefaultLatencyTimer = 2

	// readPackets is how many bulk packets one USB read may return
	readPackets = 8
)

type usbControl interface {
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
}

type usbReader interface {
	Read(p []byte) (int, error)
}

type usbWriter interface {
	Write(p []byte) (int, error)
}

// FTDI is a channel of an FTDI USB FIFO bridge opened through libusb.
//
// Every bulk IN packet from the chip starts with two modem status bytes;
// FTDI strips them so Read returns payload only. The chip answers every poll,
// even with nothing to send; Read polls again until payload arrives.
type FTDI struct {
	id     Identifier
	ctrl   usbControl
	in     usbReader
	out    usbWriter
	index  uint16
	logger Logger

	packetSize int
	buf        []byte
	pendBuf    []byte
	pending    []byte

	closers []func() error
}

// OpenFTDI claims the channel selected by id on the first matching FTDI device.
// The kernel serial driver is detached from the interface while it is held.
//
// Example:
//
//	id, _ := transport.ParseIdentifier("FT3XO4LY.2", 2)
//	dev, err := transport.OpenFTDI(ctx, id, nil)
func OpenFTDI(ctx context.Context, id Identifier, logger Logger) (*FTDI, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id.Interface < 1 || id.Interface > MaxInterface {
		return nil, fmt.Errorf("%w: interface %d out of range 1-%d", ErrInvalidIdentifier, id.Interface, MaxInterface)
	}

	usb := gousb.NewContext()
	d := &FTDI{
		id:     id,
		index:  uint16(id.Interface),
		logger: logger,
	}
	d.closers = append(d.closers, usb.Close)

	failed := true
	defer func() {
		if failed {
			_ = d.Close()
		}
	}()

	dev, err := findFTDI(usb, id.Serial)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, dev.Close)

	if err := dev.SetAutoDetach(true); err != nil {
		return nil, fmt.Errorf("set auto detach: %w", err)
	}

	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		return nil, fmt.Errorf("get active config of %s: %w", id, err)
	}
	cfg, err := dev.Config(cfgNum)
	if err != nil {
		return nil, fmt.Errorf("claim config %d of %s: %w", cfgNum, id, err)
	}
	d.closers = append(d.closers, cfg.Close)

	intfNum := id.Interface - 1
	intf, err := cfg.Interface(intfNum, 0)
	if err != nil {
		return nil, fmt.Errorf("claim interface %d of %s: %w", intfNum, id, err)
	}
	d.closers = append(d.closers, func() error { intf.Close(); return nil })

	// Channel N uses IN endpoint 2N+1 and OUT endpoint 2N+2.
	in, err := intf.InEndpoint(2*intfNum + 1)
	if err != nil {
		return nil, fmt.Errorf("open IN endpoint: %w", err)
	}
	out, err := intf.OutEndpoint(2*intfNum + 2)
	if err != nil {
		return nil, fmt.Errorf("open OUT endpoint: %w", err)
	}

	d.ctrl = dev
	d.in = in
	d.out = out
	d.packetSize = in.Desc.MaxPacketSize
	d.buf = make([]byte, d.packetSize*readPackets)
	d.pendBuf = make([]byte, 0, len(d.buf))

	if err := d.reset(); err != nil {
		return nil, err
	}
	if err := d.SetLatencyTimer(DefaultLatencyTimer); err != nil {
		return nil, err
	}

	d.logDebug("opened FTDI channel", "device", id.String(), "packet_size", d.packetSize)

	failed = false
	return d, nil
}

// findFTDI opens every FTDI bridge on the bus and keeps the one whose serial
// number matches. An empty serial keeps the first one.
func findFTDI(usb *gousb.Context, serial string) (*gousb.Device, error) {
	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if desc.Vendor != ftdiVendorID {
			return false
		}
		switch desc.Product {
		case ft232rProductID, ft2232hProductID, ft4232hProductID, ft232hProductID:
			return true
		}
		return false
	})
	if err != nil && len(devs) == 0 {
		return nil, fmt.Errorf("enumerate USB devices: %w", err)
	}

	var found *gousb.Device
	for _, dev := range devs {
		if found == nil {
			if serial == "" {
				found = dev
				continue
			}
			if sn, err := dev.SerialNumber(); err == nil && sn == serial {
				found = dev
				continue
			}
		}
		_ = dev.Close()
	}

	if found == nil {
		return nil, fmt.Errorf("%w: no FTDI device with serial %q", ErrDeviceNotFound, serial)
	}
	return found, nil
}

// Read returns payload bytes received from the chip, with modem status
// bytes removed. Status-only polls are skipped, so Read blocks until at least
// one byte arrives or the bulk read fails.
func (d *FTDI) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(d.pending) == 0 {
		n, err := d.in.Read(d.buf)
		if err != nil {
			return 0, fmt.Errorf("bulk read: %w", err)
		}
		d.pendBuf = stripModemStatus(d.pendBuf[:0], d.buf[:n], d.packetSize)
		d.pending = d.pendBuf
	}

	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

// Write sends p to the chip's transmit FIFO.
func (d *FTDI) Write(p []byte) (int, error) {
	n, err := d.out.Write(p)
	if err != nil {
		return n, fmt.Errorf("bulk write: %w", err)
	}
	return n, nil
}

// Flush purges the chip's receive and transmit buffers and drops anything
// already read but not yet consumed.
func (d *FTDI) Flush() error {
	d.pending = nil
	if err := d.control(sioReset, sioResetPurgeRX, d.index); err != nil {
		return fmt.Errorf("purge rx: %w", err)
	}
	if err := d.control(sioReset, sioResetPurgeTX, d.index); err != nil {
		return fmt.Errorf("purge tx: %w", err)
	}
	return nil
}

// SetBitMode switches the channel mode, e.g. BitModeSyncFF for 245 sync FIFO.
func (d *FTDI) SetBitMode(mask, mode byte) error {
	if err := d.control(sioSetBitMode, uint16(mode)<<8|uint16(mask), d.index); err != nil {
		return fmt.Errorf("set bit mode 0x%02X: %w", mode, err)
	}
	return nil
}

// SetFlowControl selects the link handshake.
func (d *FTDI) SetFlowControl(fc FlowControl) error {
	if err := d.control(sioSetFlowCtrl, 0, uint16(fc)|d.index); err != nil {
		return fmt.Errorf("set flow control 0x%04X: %w", uint16(fc), err)
	}
	return nil
}

// SetLatencyTimer sets how long the chip holds a partial packet before sending it.
func (d *FTDI) SetLatencyTimer(ms uint8) error {
	if err := d.control(sioSetLatency, uint16(ms), d.index); err != nil {
		return fmt.Errorf("set latency timer: %w", err)
	}
	return nil
}

// Close releases the interface, the device and the libusb context.
func (d *FTDI) Close() error {
	var firstErr error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.closers = nil
	return firstErr
}

func (d *FTDI) reset() error {
	if err := d.control(sioReset, sioResetSIO, d.index); err != nil {
		return fmt.Errorf("reset channel: %w", err)
	}
	return nil
}

func (d *FTDI) control(request uint8, val, idx uint16) error {
	_, err := d.ctrl.Control(rTypeVendorOut, request, val, idx, nil)
	return err
}

func (d *FTDI) logDebug(msg string, keysAndValues ...interface{}) {
	if d.logger != nil {
		d.logger.Debug(msg, keysAndValues...)
	}
}

// stripModemStatus appends the payload of each bulk packet in src to dst,
// skipping the two status bytes that lead every packet.
func stripModemStatus(dst, src []byte, packetSize int) []byte {
	if packetSize <= modemStatusLength {
		return dst
	}
	for off := 0; off < len(src); off += packetSize {
		end := off + packetSize
		if end > len(src) {
			end = len(src)
		}
		if end-off > modemStatusLength {
			dst = append(dst, src[off+modemStatusLength:end]...)
		}
	}
	return dst
}
