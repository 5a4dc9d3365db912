package bus

import (
	"fmt"

	"github.com/moffa90/go-fifobus/protocol"
)

// ChunkSizeError indicates a maximum chunk size outside 1-protocol.MaxLength.
type ChunkSizeError struct {
	Size int
}

func (e *ChunkSizeError) Error() string {
	return fmt.Sprintf("chunk size %d is out of range: valid range is 1-%d", e.Size, protocol.MaxLength)
}

// AddressRangeError indicates an incrementing transfer that would run past
// the top of the 32-bit address space.
type AddressRangeError struct {
	Address uint32
	Length  int
}

func (e *AddressRangeError) Error() string {
	return fmt.Sprintf("transfer of %d bytes at 0x%08X runs past the end of the address space",
		e.Length, e.Address)
}

// VerificationError indicates that data read back differs from the data written.
type VerificationError struct {
	// Address is the bus address of the first differing byte
	Address uint32

	// Offset is the index of the first differing byte within the transfer
	Offset int

	// Expected is the byte that was written
	Expected byte

	// Actual is the byte that was read back
	Actual byte
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("data mismatch at 0x%08X (offset %d): expected 0x%02X, got 0x%02X",
		e.Address, e.Offset, e.Expected, e.Actual)
}
