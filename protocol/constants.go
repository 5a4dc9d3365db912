package protocol

// Opcode values carried in the low nibble of the first frame byte.
const (
	// OpNop does nothing
	OpNop Opcode = 0x0

	// OpWrite writes the inline payload starting at the header address
	OpWrite Opcode = 0x1

	// OpRead reads LEN bytes starting at the header address
	OpRead Opcode = 0x2

	// OpGPIOWrite drives the GPIO output byte
	OpGPIOWrite Opcode = 0x3

	// OpGPIORead samples the GPIO input byte
	OpGPIORead Opcode = 0x4
)

// Frame structure constants.
const (
	// HeaderSize is the size of a bus command header:
	// LEN_H/OPCODE(1) + LEN_L(1) + ADDR(4)
	HeaderSize = 6

	// MaxLength is the largest payload length the 12-bit length field can hold
	MaxLength = 0xFFF

	// WordSize is the payload size of the single-word commands
	WordSize = 4

	// Word32FrameSize is the size of a single-word write frame (header + value)
	Word32FrameSize = HeaderSize + WordSize

	// GPIOReadFrameSize is the size of a GPIO read command
	GPIOReadFrameSize = 1

	// GPIOWriteFrameSize is the size of a GPIO write command
	GPIOWriteFrameSize = 2

	// GPIOResponseSize is the number of bytes returned by a GPIO read
	GPIOResponseSize = 1
)

// MagicAddr is reserved by the bus master as an alias for the GPIO port.
// Word accesses to it are not redirected; use the GPIO commands instead.
const MagicAddr uint32 = 0xF0000000

const (
	opcodeMask    = 0x0F
	lengthHiShift = 4
)
