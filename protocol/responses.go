package protocol

import (
	"encoding/binary"
	"fmt"
)

// DecodeHeader parses the 6-byte header at the start of frame.
// This is the device side of EncodeHeader, used by simulated targets and tests.
func DecodeHeader(frame []byte) (Header, error) {
	if len(frame) < HeaderSize {
		return Header{}, fmt.Errorf("header too short: got %d bytes, need %d", len(frame), HeaderSize)
	}

	return Header{
		Opcode:  Opcode(frame[0] & opcodeMask),
		Length:  int(frame[0]>>lengthHiShift)<<8 | int(frame[1]),
		Address: binary.BigEndian.Uint32(frame[2:HeaderSize]),
	}, nil
}

// ParseWord32 reassembles the response to a single-word read.
// The first byte received is bits 0-7 of the value.
func ParseWord32(data []byte) (uint32, error) {
	if len(data) != WordSize {
		return 0, fmt.Errorf("invalid word response: got %d bytes, expected %d", len(data), WordSize)
	}
	return binary.LittleEndian.Uint32(data), nil
}

// ParseGPIO extracts the value returned by a GPIO read.
func ParseGPIO(data []byte) (uint8, error) {
	if len(data) != GPIOResponseSize {
		return 0, fmt.Errorf("invalid GPIO response: got %d bytes, expected %d", len(data), GPIOResponseSize)
	}
	return data[0], nil
}
