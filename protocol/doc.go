// Package protocol implements the command framing of the FIFO bus protocol.
//
// This package provides pure functions to build command frames sent from the
// host to a bus master sitting behind a USB FIFO link. Nothing here touches a
// transport.
//
// # Frame Layout
//
// Every bus command starts with a 6-byte header:
//
//	[LEN_H:4|OPCODE:4][LEN_L][ADDR_3][ADDR_2][ADDR_1][ADDR_0]
//
// Where:
//   - OPCODE = one of OpNop, OpWrite, OpRead, OpGPIOWrite, OpGPIORead
//   - LEN = 12-bit payload length (high nibble in byte 0, low byte in byte 1)
//   - ADDR = 32-bit bus address, big-endian
//
// Write commands carry LEN payload bytes directly after the header. Read
// commands carry no payload; the device answers with exactly LEN raw bytes
// and no envelope, so the requester must remember how many bytes it asked for.
//
// GPIO commands are shorter and have no header at all:
//
//	GPIO read:  [OPCODE]
//	GPIO write: [OPCODE][VALUE]
//
// # Byte Order
//
// Addresses are big-endian inside the header. 32-bit values moved by the
// single-word commands are little-endian on the wire:
//
//	frame, _ := protocol.BuildWrite32Cmd(0x1000, 0xDEADBEEF)
//	// frame = 01 04 00 00 10 00 EF BE AD DE
//
// # Command Builders
//
//	frame, err := protocol.BuildWriteCmd(addr, chunk)
//	frame, err := protocol.BuildReadCmd(addr, n)
//	frame := protocol.BuildGPIOReadCmd()
//
// Lengths above MaxLength are rejected with a LengthError; they are never
// truncated into the 12-bit field.
package protocol
