// Package transport defines the byte-stream boundary between the bus engine
// and the hardware link, and provides the concrete links used in practice.
//
// The engine only ever sees a Device: something it can write command bytes
// to, read response bytes from, and flush. Reads may return fewer bytes than
// requested, including none at all; what to do about that is the caller's
// decision, not the device's.
//
// Devices that can change link mode (bit mode, flow control) also implement
// Configurer. The synchronous FIFO profile needs it; the async profile does not.
//
// # Links
//
//   - FTDI: USB FIFO on an FT2232H/FT232H class part, driven directly over
//     libusb with github.com/google/gousb. Supports async and sync FIFO modes.
//   - Serial: a FIFO channel exposed by the kernel as a tty, opened with
//     github.com/jacobsa/go-serial. Async FIFO only.
//
// # Device Identifiers
//
// Devices are selected by "SERIAL" or "SERIAL.IFACE" strings, e.g. "FT3XO4LY.1".
// IFACE counts from 1 (1 = channel A, 2 = channel B).
package transport
