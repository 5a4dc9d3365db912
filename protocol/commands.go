package protocol

import (
	"encoding/binary"
	"fmt"
)

// EncodeHeader constructs the 6-byte header for a bus command.
//
// Header structure:
//
//	[LEN_H:4|OPCODE:4][LEN_L][ADDR_3][ADDR_2][ADDR_1][ADDR_0]
//
// Returns an OpcodeError for an undefined opcode and a LengthError if length
// does not fit in 12 bits.
func EncodeHeader(op Opcode, length int, addr uint32) ([]byte, error) {
	if !op.Valid() {
		return nil, &OpcodeError{Opcode: op}
	}
	if length < 0 || length > MaxLength {
		return nil, &LengthError{Length: length, Max: MaxLength}
	}

	hdr := make([]byte, HeaderSize)
	hdr[0] = byte((length>>8)&0xF)<<lengthHiShift | byte(op)&opcodeMask
	hdr[1] = byte(length)
	binary.BigEndian.PutUint32(hdr[2:], addr)

	return hdr, nil
}

// BuildFrame constructs a complete command frame: header followed by the
// payload, verbatim. A nil payload produces a header-only frame, which is
// what read commands use. A non-nil payload must be exactly length bytes.
func BuildFrame(op Opcode, length int, addr uint32, payload []byte) ([]byte, error) {
	if payload != nil && len(payload) != length {
		return nil, fmt.Errorf("payload is %d bytes, header length is %d", len(payload), length)
	}

	hdr, err := EncodeHeader(op, length, addr)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 0, HeaderSize+len(payload))
	frame = append(frame, hdr...)
	frame = append(frame, payload...)

	return frame, nil
}

// BuildWriteCmd constructs a write command carrying data inline.
//
// Frame structure:
//
//	[LEN_H|OP_WR][LEN_L][ADDR(4, big-endian)][DATA...]
func BuildWriteCmd(addr uint32, data []byte) ([]byte, error) {
	if data == nil {
		data = []byte{}
	}
	return BuildFrame(OpWrite, len(data), addr, data)
}

// BuildReadCmd constructs a read command for length bytes.
// The device answers with exactly length raw bytes.
//
// Frame structure:
//
//	[LEN_H|OP_RD][LEN_L][ADDR(4, big-endian)]
func BuildReadCmd(addr uint32, length int) ([]byte, error) {
	return BuildFrame(OpRead, length, addr, nil)
}

// BuildWrite32Cmd constructs a single-word write command.
// The address is big-endian, the value little-endian.
//
// Frame structure:
//
//	[OP_WR][0x04][ADDR(4, big-endian)][VALUE(4, little-endian)]
func BuildWrite32Cmd(addr uint32, value uint32) ([]byte, error) {
	payload := make([]byte, WordSize)
	binary.LittleEndian.PutUint32(payload, value)
	return BuildFrame(OpWrite, WordSize, addr, payload)
}

// BuildRead32Cmd constructs a single-word read command.
// The device answers with 4 bytes, least significant first.
func BuildRead32Cmd(addr uint32) ([]byte, error) {
	return BuildReadCmd(addr, WordSize)
}

// BuildGPIOReadCmd constructs a GPIO read command. The device answers with one byte.
//
// Frame structure:
//
//	[OP_GP_RD]
func BuildGPIOReadCmd() []byte {
	return []byte{byte(OpGPIORead)}
}

// BuildGPIOWriteCmd constructs a GPIO write command. The device sends nothing back.
//
// Frame structure:
//
//	[OP_GP_WR][VALUE]
func BuildGPIOWriteCmd(value uint8) []byte {
	return []byte{byte(OpGPIOWrite), value}
}
