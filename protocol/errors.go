package protocol

import (
	"errors"
	"fmt"
)

// LengthError reports a payload length that does not fit the 12-bit header field.
type LengthError struct {
	// Length is the rejected length
	Length int

	// Max is the largest accepted length
	Max int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("payload length %d out of range: valid range is 0-%d", e.Length, e.Max)
}

// IsLengthError returns true if err is, or wraps, a LengthError.
func IsLengthError(err error) bool {
	var le *LengthError
	return errors.As(err, &le)
}

// OpcodeError reports an opcode outside the defined set.
type OpcodeError struct {
	Opcode Opcode
}

func (e *OpcodeError) Error() string {
	return fmt.Sprintf("invalid opcode 0x%02X", uint8(e.Opcode))
}

// IsOpcodeError returns true if err is, or wraps, an OpcodeError.
func IsOpcodeError(err error) bool {
	var oe *OpcodeError
	return errors.As(err, &oe)
}
