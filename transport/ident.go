package transport

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxInterface is the highest channel number on a quad-channel part.
const MaxInterface = 4

// Identifier selects one channel of one attached device.
type Identifier struct {
	// Serial is the USB serial number; empty matches the first device found
	Serial string

	// Interface is the channel, counting from 1 (channel A)
	Interface int
}

func (id Identifier) String() string {
	serial := id.Serial
	if serial == "" {
		serial = "*"
	}
	return fmt.Sprintf("%s.%d", serial, id.Interface)
}

// ParseIdentifier parses "SERIAL" or "SERIAL.IFACE". The empty string selects
// the first device. When no interface is given, defaultIface is used.
//
// Example:
//
//	id, err := transport.ParseIdentifier("FT3XO4LY.1", 2)
//	// id.Serial = "FT3XO4LY", id.Interface = 1
func ParseIdentifier(s string, defaultIface int) (Identifier, error) {
	id := Identifier{Interface: defaultIface}

	serial, iface, hasIface := strings.Cut(strings.TrimSpace(s), ".")
	id.Serial = serial

	if hasIface {
		n, err := strconv.Atoi(iface)
		if err != nil {
			return Identifier{}, fmt.Errorf("%w %q: interface %q is not a number", ErrInvalidIdentifier, s, iface)
		}
		id.Interface = n
	}

	if id.Interface < 1 || id.Interface > MaxInterface {
		return Identifier{}, fmt.Errorf("%w %q: interface %d out of range 1-%d",
			ErrInvalidIdentifier, s, id.Interface, MaxInterface)
	}

	return id, nil
}
