package bus

import (
	"context"
	"fmt"
)

// Compare checks data read back from addr against the data that was written
// there. It returns a VerificationError for the first differing byte.
func Compare(addr uint32, want, got []byte) error {
	if len(got) != len(want) {
		return fmt.Errorf("read back %d bytes, expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return &VerificationError{
				Address:  addr + uint32(i),
				Offset:   i,
				Expected: want[i],
				Actual:   got[i],
			}
		}
	}
	return nil
}

// Verify reads len(want) bytes back from addr and compares them with want.
//
// Example:
//
//	if err := eng.Write(ctx, addr, image); err != nil {
//	    return err
//	}
//	var mismatch *bus.VerificationError
//	if err := eng.Verify(ctx, addr, image); errors.As(err, &mismatch) {
//	    fmt.Printf("bad byte at 0x%08X\n", mismatch.Address)
//	}
func (e *Engine) Verify(ctx context.Context, addr uint32, want []byte, opts ...TransferOption) error {
	got, err := e.Read(ctx, addr, len(want), opts...)
	if err != nil {
		return err
	}
	return Compare(addr, want, got)
}
