package protocol

import "fmt"

// Opcode identifies the command carried by a frame.
type Opcode uint8

func (o Opcode) String() string {
	switch o {
	case OpNop:
		return "nop"
	case OpWrite:
		return "write"
	case OpRead:
		return "read"
	case OpGPIOWrite:
		return "gpio-write"
	case OpGPIORead:
		return "gpio-read"
	default:
		return fmt.Sprintf("opcode(0x%X)", uint8(o))
	}
}

// Valid reports whether o is one of the defined opcodes.
func (o Opcode) Valid() bool {
	return o <= OpGPIORead
}

// Header is a decoded bus command header.
type Header struct {
	// Opcode is the command
	Opcode Opcode

	// Length is the payload length (0 to MaxLength)
	Length int

	// Address is the 32-bit bus address
	Address uint32
}
